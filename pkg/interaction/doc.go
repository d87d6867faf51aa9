// Package interaction implements the pointer/keyboard state machine that
// arbitrates canvas gestures: dragging a node, drawing a connection,
// panning the canvas, or hovering a handle.
//
// The machine is the single writer of its interaction state. Events are
// processed strictly in arrival order, exactly one gesture can be active
// at a time, and every gesture ends back in [ModeIdle] whether it finished
// (mouse up), was cancelled (Escape), or was displaced by a conflicting
// press.
//
// The machine knows nothing about the strategy graph. It resolves what
// sits under the pointer through a [ViewportProvider] and reports gesture
// progress through a [Handler]; the host forwards those callbacks into its
// graph manager and node store. This keeps the machine testable without a
// rendering surface and free of dependency cycles.
//
// A node press does not start a drag by itself: the pointer must first
// travel the drag threshold (5px by default). Below the threshold the
// press-and-release is a click and no drag callback ever fires. A handle
// press always wins over a pending drag, so connections can be started
// even mid-click.
package interaction
