// Package editor composes the strategraph core packages into the editing
// surface a host application embeds.
//
// An [Editor] owns a graph manager wired to the trading block catalog, the
// placement search for new blocks, and an interaction machine it serves as
// both viewport provider and gesture handler. The host's responsibilities
// shrink to three things: push the viewport size with [Editor.SetViewport],
// feed raw pointer and keyboard events ([Editor.MouseDown] and friends),
// and redraw from [Editor.Snapshot] whenever a subscription fires.
//
//	ed, _ := editor.New(editor.WithViewport(geometry.Rect{Width: 1920, Height: 1080}))
//	defer ed.Close()
//
//	ed.AddBlock(strategy.BlockDataSource)
//	ed.ApplyTemplate(editor.BuiltinTemplates()[0])
//
//	unsubscribe := ed.Subscribe(func(s graph.Snapshot) { render(s) })
//	defer unsubscribe()
//
// Dragging a node body moves it, dragging from a handle draws a
// connection, dragging the background pans, and Escape cancels; the
// gesture grammar lives in the interaction package. The editor itself is
// not safe for concurrent use; feed it from one event loop.
package editor
