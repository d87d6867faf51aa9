package strategy

import (
	"fmt"
	"slices"

	"github.com/fbecker/strategraph/pkg/geometry"
)

// BlockType identifies a kind of trading block.
type BlockType string

const (
	// BlockDataSource emits market data (candles, ticks) for a symbol.
	BlockDataSource BlockType = "data-source"

	// BlockIndicator computes a derived series (RSI, SMA, MACD) from its input.
	BlockIndicator BlockType = "indicator"

	// BlockCondition compares a series against a threshold or another series.
	BlockCondition BlockType = "condition"

	// BlockLogic combines condition outputs with a boolean gate.
	BlockLogic BlockType = "logic"

	// BlockSignal turns a boolean stream into an entry or exit signal.
	BlockSignal BlockType = "signal"

	// BlockOrder submits an order when its signal fires.
	BlockOrder BlockType = "order"

	// BlockRisk constrains downstream execution (stops, position limits).
	// Terminal: risk blocks feed nothing.
	BlockRisk BlockType = "risk"
)

// BlockSpec is one catalog entry: how a block presents on the canvas and
// what it is allowed to feed.
type BlockSpec struct {
	Type       BlockType             `json:"type"`
	Label      string                `json:"label"`
	Dimensions geometry.Dimensions   `json:"dimensions"`
	Handles    []geometry.HandleKind `json:"handles"`
	FeedsInto  []BlockType           `json:"feeds_into,omitempty"`
}

// HasHandle reports whether the block offers the given handle.
func (s BlockSpec) HasHandle(h geometry.HandleKind) bool {
	return slices.Contains(s.Handles, h)
}

var catalog = []BlockSpec{
	{
		Type:       BlockDataSource,
		Label:      "Data Source",
		Dimensions: geometry.DefaultNodeDimensions(),
		Handles:    []geometry.HandleKind{geometry.HandleOutput},
		FeedsInto:  []BlockType{BlockIndicator, BlockCondition},
	},
	{
		Type:       BlockIndicator,
		Label:      "Indicator",
		Dimensions: geometry.DefaultNodeDimensions(),
		Handles:    []geometry.HandleKind{geometry.HandleInput, geometry.HandleOutput},
		FeedsInto:  []BlockType{BlockIndicator, BlockCondition},
	},
	{
		Type:       BlockCondition,
		Label:      "Condition",
		Dimensions: geometry.DefaultNodeDimensions(),
		Handles:    []geometry.HandleKind{geometry.HandleInput, geometry.HandleOutput},
		FeedsInto:  []BlockType{BlockLogic, BlockSignal},
	},
	{
		Type:       BlockLogic,
		Label:      "Logic Gate",
		Dimensions: geometry.Dimensions{Width: 200, Height: 100},
		Handles:    []geometry.HandleKind{geometry.HandleInput, geometry.HandleOutput},
		FeedsInto:  []BlockType{BlockLogic, BlockSignal},
	},
	{
		Type:       BlockSignal,
		Label:      "Signal",
		Dimensions: geometry.DefaultNodeDimensions(),
		Handles:    []geometry.HandleKind{geometry.HandleInput, geometry.HandleOutput},
		FeedsInto:  []BlockType{BlockOrder},
	},
	{
		Type:       BlockOrder,
		Label:      "Order",
		Dimensions: geometry.DefaultNodeDimensions(),
		Handles:    []geometry.HandleKind{geometry.HandleInput, geometry.HandleOutput},
		FeedsInto:  []BlockType{BlockRisk},
	},
	{
		Type:       BlockRisk,
		Label:      "Risk Control",
		Dimensions: geometry.Dimensions{Width: 240, Height: 140},
		Handles:    []geometry.HandleKind{geometry.HandleInput},
	},
}

var blockIndex = make(map[BlockType]BlockSpec, len(catalog))

func init() {
	for _, s := range catalog {
		blockIndex[s.Type] = s
	}
}

// Blocks returns every catalog entry in pipeline order, data sources first.
func Blocks() []BlockSpec {
	return slices.Clone(catalog)
}

// Lookup returns the catalog entry for a block type.
func Lookup(t BlockType) (BlockSpec, bool) {
	s, ok := blockIndex[t]
	return s, ok
}

// Valid reports whether t is a catalog block type.
func (t BlockType) Valid() bool {
	_, ok := blockIndex[t]
	return ok
}

// Dimensions maps a node type to its catalog footprint, falling back to the
// standard block size for unknown types. Satisfies [graph.DimensionsFunc].
func Dimensions(nodeType string) geometry.Dimensions {
	if s, ok := blockIndex[BlockType(nodeType)]; ok {
		return s.Dimensions
	}
	return geometry.DefaultNodeDimensions()
}

// Checker validates block-type pairings against the catalog. It implements
// graph.CompatibilityChecker; plug it into a manager with
// graph.WithCompatibilityChecker.
type Checker struct{}

// Compatible delegates to [Compatibility].
func (Checker) Compatible(sourceType, targetType string) (bool, string) {
	return Compatibility(sourceType, targetType)
}

// Compatibility reports whether a source block may feed a target block.
// Types outside the catalog are accepted without comment so hosts can mix
// in custom blocks. A false result carries the reason a reviewer would
// surface as a warning.
func Compatibility(sourceType, targetType string) (ok bool, reason string) {
	src, srcKnown := Lookup(BlockType(sourceType))
	tgt, tgtKnown := Lookup(BlockType(targetType))
	if !srcKnown || !tgtKnown {
		return true, ""
	}
	if !src.HasHandle(geometry.HandleOutput) {
		return false, fmt.Sprintf("%s blocks offer no output", src.Type)
	}
	if !tgt.HasHandle(geometry.HandleInput) {
		return false, fmt.Sprintf("%s blocks accept no input", tgt.Type)
	}
	if !slices.Contains(src.FeedsInto, tgt.Type) {
		return false, fmt.Sprintf("%s output does not feed %s blocks", src.Type, tgt.Type)
	}
	return true, ""
}
