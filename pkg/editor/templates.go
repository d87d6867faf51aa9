package editor

import (
	"github.com/google/uuid"

	"github.com/fbecker/strategraph/pkg/errors"
	"github.com/fbecker/strategraph/pkg/geometry"
	"github.com/fbecker/strategraph/pkg/graph"
	"github.com/fbecker/strategraph/pkg/placement"
	"github.com/fbecker/strategraph/pkg/strategy"
)

// Template is a reusable strategy skeleton: a set of pre-configured blocks
// and the connections between them, inserted as a unit.
type Template struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Blocks      []TemplateBlock `json:"blocks"`
	Links       []TemplateLink  `json:"links,omitempty"`
}

// TemplateBlock is one block in a template. An empty Label falls back to
// the catalog label for the type.
type TemplateBlock struct {
	Type  strategy.BlockType `json:"type"`
	Label string             `json:"label,omitempty"`
	Data  map[string]any     `json:"data,omitempty"`
}

// TemplateLink connects two template blocks by index, output to input.
type TemplateLink struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// ApplyTemplate inserts every block of a template, arranged in a grid
// centered on the visible canvas region, then wires the template's links
// through the normal connection validation path. Links a half-built graph
// would reject (none, for the built-in templates) are skipped.
func (e *Editor) ApplyTemplate(tpl Template) ([]graph.Node, error) {
	if len(tpl.Blocks) == 0 {
		return nil, nil
	}
	for i, l := range tpl.Links {
		if l.From < 0 || l.From >= len(tpl.Blocks) || l.To < 0 || l.To >= len(tpl.Blocks) {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"template %q link %d references a block outside 0..%d", tpl.Name, i, len(tpl.Blocks)-1)
		}
	}

	viewport, err := e.canvasViewport()
	if err != nil {
		return nil, err
	}
	positions := placement.Arrangement(len(tpl.Blocks), viewport, &e.place)

	nodes := make([]graph.Node, 0, len(tpl.Blocks))
	for i, b := range tpl.Blocks {
		label := b.Label
		if label == "" {
			label = string(b.Type)
			if spec, ok := strategy.Lookup(b.Type); ok {
				label = spec.Label
			}
		}
		n := graph.Node{
			ID:       uuid.NewString(),
			Type:     string(b.Type),
			Position: positions[i],
			Label:    label,
			Data:     b.Data,
		}
		if err := e.manager.AddNode(n); err != nil {
			for _, added := range nodes {
				e.manager.RemoveNode(added.ID)
			}
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "inserting template %q block %d", tpl.Name, i)
		}
		nodes = append(nodes, n)
	}

	for _, l := range tpl.Links {
		from, to := nodes[l.From], nodes[l.To]
		start, err := geometry.HandleScreenPosition(
			from.Position, geometry.HandleOutput, strategy.Dimensions(from.Type), e.manager.CanvasState())
		if err != nil {
			continue
		}
		if err := e.manager.StartConnection(from.ID, geometry.HandleOutput, start); err != nil {
			e.logger.Warn("template link skipped", "template", tpl.Name, "from", from.Label, "err", err)
			continue
		}
		if !e.manager.CompleteConnection(to.ID, geometry.HandleInput) {
			e.logger.Warn("template link rejected", "template", tpl.Name, "from", from.Label, "to", to.Label)
		}
	}
	return nodes, nil
}

// BuiltinTemplates returns the strategy skeletons shipped with the editor.
func BuiltinTemplates() []Template {
	return []Template{
		{
			Name:        "rsi-reversal",
			Description: "Buy oversold dips: RSI crossing below 30 opens a long with a protective stop.",
			Blocks: []TemplateBlock{
				{Type: strategy.BlockDataSource, Data: map[string]any{"symbol": "BTC-USD", "interval": "1h"}},
				{Type: strategy.BlockIndicator, Label: "RSI 14", Data: map[string]any{"kind": "rsi", "period": 14}},
				{Type: strategy.BlockCondition, Label: "Oversold", Data: map[string]any{"operator": "crosses-below", "threshold": 30}},
				{Type: strategy.BlockSignal, Label: "Enter Long", Data: map[string]any{"direction": "long", "action": "enter"}},
				{Type: strategy.BlockOrder, Data: map[string]any{"kind": "market", "quantity": 1}},
				{Type: strategy.BlockRisk, Data: map[string]any{"stop_loss_pct": 2, "take_profit_pct": 6}},
			},
			Links: []TemplateLink{{0, 1}, {1, 2}, {2, 3}, {3, 4}, {4, 5}},
		},
		{
			Name:        "sma-crossover",
			Description: "Golden cross: fast SMA crossing above the slow SMA enters a long.",
			Blocks: []TemplateBlock{
				{Type: strategy.BlockDataSource, Data: map[string]any{"symbol": "SPY", "interval": "1d"}},
				{Type: strategy.BlockIndicator, Label: "SMA 50", Data: map[string]any{"kind": "sma", "period": 50}},
				{Type: strategy.BlockIndicator, Label: "SMA 200", Data: map[string]any{"kind": "sma", "period": 200}},
				{Type: strategy.BlockCondition, Label: "Golden Cross", Data: map[string]any{"operator": "crosses-above", "threshold": 0}},
				{Type: strategy.BlockSignal, Label: "Enter Long", Data: map[string]any{"direction": "long", "action": "enter"}},
				{Type: strategy.BlockOrder, Data: map[string]any{"kind": "market", "quantity": 10}},
			},
			Links: []TemplateLink{{0, 1}, {0, 2}, {1, 3}, {2, 3}, {3, 4}, {4, 5}},
		},
	}
}

// TemplateByName finds a built-in template.
func TemplateByName(name string) (Template, bool) {
	for _, tpl := range BuiltinTemplates() {
		if tpl.Name == name {
			return tpl, true
		}
	}
	return Template{}, false
}
