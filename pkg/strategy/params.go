package strategy

import (
	"math"
	"slices"

	"github.com/mitchellh/mapstructure"

	"github.com/fbecker/strategraph/pkg/errors"
)

// Params is implemented by every typed parameter struct in the catalog.
type Params interface {
	// Validate reports whether the parameters describe a runnable block.
	Validate() error
}

// DecodeParams decodes a node's raw Data payload into out, which should be
// a pointer to one of the typed parameter structs. Catalog block types are
// validated after decoding; unknown types decode as-is so hosts can carry
// custom blocks through untouched.
func DecodeParams(blockType BlockType, data map[string]any, out any) error {
	if out == nil {
		return errors.New(errors.ErrCodeInvalidInput, "decode target must not be nil")
	}
	if err := mapstructure.Decode(data, out); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decoding %s parameters", blockType)
	}
	if !blockType.Valid() {
		return nil
	}
	if p, ok := out.(Params); ok {
		return p.Validate()
	}
	return nil
}

// NewParams returns a pointer to the zero parameter struct for a block
// type, for callers that decode without knowing the concrete type up front.
func NewParams(t BlockType) (Params, bool) {
	switch t {
	case BlockDataSource:
		return &DataSourceParams{}, true
	case BlockIndicator:
		return &IndicatorParams{}, true
	case BlockCondition:
		return &ConditionParams{}, true
	case BlockLogic:
		return &LogicParams{}, true
	case BlockSignal:
		return &SignalParams{}, true
	case BlockOrder:
		return &OrderParams{}, true
	case BlockRisk:
		return &RiskParams{}, true
	default:
		return nil, false
	}
}

// =============================================================================
// Data Source
// =============================================================================

// Intervals supported by data-source blocks.
var Intervals = []string{"1m", "5m", "15m", "1h", "4h", "1d"}

// DataSourceParams configures a data-source block.
type DataSourceParams struct {
	Symbol   string `json:"symbol" mapstructure:"symbol"`
	Interval string `json:"interval" mapstructure:"interval"`
}

// WithDefaults returns a copy with zero values replaced by defaults.
func (p DataSourceParams) WithDefaults() DataSourceParams {
	if p.Interval == "" {
		p.Interval = "1d"
	}
	return p
}

// Validate checks the parameters.
func (p DataSourceParams) Validate() error {
	if p.Symbol == "" {
		return errors.New(errors.ErrCodeInvalidInput, "data source requires a symbol")
	}
	if p.Interval != "" && !slices.Contains(Intervals, p.Interval) {
		return errors.New(errors.ErrCodeInvalidInput, "unknown interval %q", p.Interval)
	}
	return nil
}

// =============================================================================
// Indicator
// =============================================================================

// IndicatorKinds supported by indicator blocks.
var IndicatorKinds = []string{"rsi", "sma", "ema", "macd"}

// PriceSources an indicator may read from.
var PriceSources = []string{"open", "high", "low", "close"}

// IndicatorParams configures an indicator block. Overbought and Oversold
// only apply to oscillators (rsi).
type IndicatorParams struct {
	Kind       string  `json:"kind" mapstructure:"kind"`
	Period     int     `json:"period" mapstructure:"period"`
	Source     string  `json:"source,omitempty" mapstructure:"source"`
	Overbought float64 `json:"overbought,omitempty" mapstructure:"overbought"`
	Oversold   float64 `json:"oversold,omitempty" mapstructure:"oversold"`
}

// WithDefaults returns a copy with zero values replaced by defaults.
func (p IndicatorParams) WithDefaults() IndicatorParams {
	if p.Source == "" {
		p.Source = "close"
	}
	if p.Kind == "rsi" {
		if p.Overbought == 0 {
			p.Overbought = 70
		}
		if p.Oversold == 0 {
			p.Oversold = 30
		}
	}
	return p
}

// Validate checks the parameters.
func (p IndicatorParams) Validate() error {
	if !slices.Contains(IndicatorKinds, p.Kind) {
		return errors.New(errors.ErrCodeInvalidInput, "unknown indicator kind %q", p.Kind)
	}
	if p.Period <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "indicator period must be positive, got %d", p.Period)
	}
	if p.Source != "" && !slices.Contains(PriceSources, p.Source) {
		return errors.New(errors.ErrCodeInvalidInput, "unknown price source %q", p.Source)
	}
	if p.Overbought != 0 && p.Oversold != 0 && p.Oversold >= p.Overbought {
		return errors.New(errors.ErrCodeInvalidInput,
			"oversold level %v must be below overbought level %v", p.Oversold, p.Overbought)
	}
	return nil
}

// =============================================================================
// Condition
// =============================================================================

// ConditionOperators supported by condition blocks.
var ConditionOperators = []string{
	"crosses-above", "crosses-below", "greater-than", "less-than",
}

// ConditionParams configures a condition block.
type ConditionParams struct {
	Operator  string  `json:"operator" mapstructure:"operator"`
	Threshold float64 `json:"threshold" mapstructure:"threshold"`
}

// Validate checks the parameters.
func (p ConditionParams) Validate() error {
	if !slices.Contains(ConditionOperators, p.Operator) {
		return errors.New(errors.ErrCodeInvalidInput, "unknown condition operator %q", p.Operator)
	}
	if math.IsNaN(p.Threshold) || math.IsInf(p.Threshold, 0) {
		return errors.New(errors.ErrCodeInvalidInput, "condition threshold must be finite")
	}
	return nil
}

// =============================================================================
// Logic, Signal, Order, Risk
// =============================================================================

// LogicGates supported by logic blocks.
var LogicGates = []string{"and", "or", "not"}

// LogicParams configures a logic block.
type LogicParams struct {
	Gate string `json:"gate" mapstructure:"gate"`
}

// Validate checks the parameters.
func (p LogicParams) Validate() error {
	if !slices.Contains(LogicGates, p.Gate) {
		return errors.New(errors.ErrCodeInvalidInput, "unknown logic gate %q", p.Gate)
	}
	return nil
}

// SignalParams configures a signal block.
type SignalParams struct {
	Direction string `json:"direction" mapstructure:"direction"`
	Action    string `json:"action" mapstructure:"action"`
}

// Validate checks the parameters.
func (p SignalParams) Validate() error {
	if p.Direction != "long" && p.Direction != "short" {
		return errors.New(errors.ErrCodeInvalidInput, "signal direction must be long or short, got %q", p.Direction)
	}
	if p.Action != "enter" && p.Action != "exit" {
		return errors.New(errors.ErrCodeInvalidInput, "signal action must be enter or exit, got %q", p.Action)
	}
	return nil
}

// OrderParams configures an order block. LimitPrice is required for limit
// orders and ignored otherwise.
type OrderParams struct {
	Kind       string  `json:"kind" mapstructure:"kind"`
	Quantity   float64 `json:"quantity" mapstructure:"quantity"`
	LimitPrice float64 `json:"limit_price,omitempty" mapstructure:"limit_price"`
}

// Validate checks the parameters.
func (p OrderParams) Validate() error {
	if p.Kind != "market" && p.Kind != "limit" {
		return errors.New(errors.ErrCodeInvalidInput, "order kind must be market or limit, got %q", p.Kind)
	}
	if p.Quantity <= 0 || math.IsNaN(p.Quantity) || math.IsInf(p.Quantity, 0) {
		return errors.New(errors.ErrCodeInvalidInput, "order quantity must be positive, got %v", p.Quantity)
	}
	if p.Kind == "limit" && p.LimitPrice <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "limit orders require a positive limit price")
	}
	return nil
}

// RiskParams configures a risk block. Percentages are of position value,
// in (0, 100]. Zero fields are treated as unset; at least one control must
// be set.
type RiskParams struct {
	StopLossPct    float64 `json:"stop_loss_pct,omitempty" mapstructure:"stop_loss_pct"`
	TakeProfitPct  float64 `json:"take_profit_pct,omitempty" mapstructure:"take_profit_pct"`
	MaxPositionPct float64 `json:"max_position_pct,omitempty" mapstructure:"max_position_pct"`
}

// Validate checks the parameters.
func (p RiskParams) Validate() error {
	if p.StopLossPct == 0 && p.TakeProfitPct == 0 && p.MaxPositionPct == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "risk block requires at least one control")
	}
	for _, pct := range []struct {
		name  string
		value float64
	}{
		{"stop_loss_pct", p.StopLossPct},
		{"take_profit_pct", p.TakeProfitPct},
		{"max_position_pct", p.MaxPositionPct},
	} {
		if pct.value == 0 {
			continue
		}
		if pct.value < 0 || pct.value > 100 || math.IsNaN(pct.value) {
			return errors.New(errors.ErrCodeInvalidInput, "%s must be in (0, 100], got %v", pct.name, pct.value)
		}
	}
	return nil
}
