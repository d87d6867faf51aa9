// Package strategy defines the trading block vocabulary that strategy
// graphs are composed from.
//
// # Catalog
//
// Seven block types form a pipeline from market data to execution:
//
//	data-source -> indicator -> condition -> logic -> signal -> order -> risk
//
// [Blocks] lists every [BlockSpec] with its label, canvas footprint,
// offered handles, and allowed downstream types. [Checker] turns the
// catalog's feed rules into a graph.CompatibilityChecker: connecting an
// indicator straight into an order is flagged as a warning, never blocked,
// so half-built strategies stay editable.
//
// # Parameters
//
// A node's free-form Data payload decodes into a typed parameter struct:
//
//	var p strategy.IndicatorParams
//	err := strategy.DecodeParams(strategy.BlockIndicator, node.Data, &p)
//
// Catalog types are validated after decoding; unknown block types pass
// through untouched.
package strategy
