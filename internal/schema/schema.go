// Package schema proposes a mapping from canonical fields to the physical
// columns of the gold and growth files.
package schema

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/loader"
	"github.com/sells-group/recon-cli/internal/model"
)

// Options tunes matching.
type Options struct {
	SampleSize       int
	AcceptThreshold  float64
	AutoMatchCutover float64
}

// DefaultOptions returns the matcher defaults.
func DefaultOptions() Options {
	return Options{SampleSize: 5, AcceptThreshold: 0.70, AutoMatchCutover: 0.85}
}

// Suggestion is the proposed column pair for one canonical field.
type Suggestion struct {
	Target       model.Field `json:"target"`
	GoldColumn   string      `json:"gold_column,omitempty"`
	GrowthColumn string      `json:"growth_column,omitempty"`
	AutoMatched  bool        `json:"auto_matched"`
	GoldScore    float64     `json:"gold_score"`
	GrowthScore  float64     `json:"growth_score"`
	Method       string      `json:"method"`
}

// Warning flags a suggested column whose type does not suit its field.
type Warning struct {
	Target  model.Field `json:"target"`
	Side    model.Side  `json:"side"`
	Column  string      `json:"column"`
	Message string      `json:"message"`
}

// Preview is the Schema Matcher output.
type Preview struct {
	GoldColumns       []model.ColumnDescriptor `json:"gold_columns"`
	GrowthColumns     []model.ColumnDescriptor `json:"growth_columns"`
	SuggestedMappings []Suggestion             `json:"suggested_mappings"`
	Warnings          []Warning                `json:"warnings"`
}

// Mapping converts the suggestions into a field mapping, dropping fields
// that resolved on neither side.
func (p *Preview) Mapping() model.FieldMapping {
	m := model.FieldMapping{}
	for _, s := range p.SuggestedMappings {
		if s.GoldColumn == "" && s.GrowthColumn == "" {
			continue
		}
		m[s.Target] = model.ColumnPair{Gold: s.GoldColumn, Growth: s.GrowthColumn}
	}
	return m
}

// AutoMatched reports whether every required field was auto-matched.
func (p *Preview) AutoMatched() bool {
	auto := make(map[model.Field]bool, len(p.SuggestedMappings))
	for _, s := range p.SuggestedMappings {
		auto[s.Target] = s.AutoMatched
	}
	for _, f := range model.RequiredFields {
		if !auto[f] {
			return false
		}
	}
	return true
}

// PreviewColumns describes both tables and suggests a mapping for every
// canonical field. Inputs are not modified.
func PreviewColumns(gold, growth model.Table, opts Options) *Preview {
	opts = withDefaults(opts)
	p := &Preview{
		GoldColumns:   Describe(gold, opts.SampleSize),
		GrowthColumns: Describe(growth, opts.SampleSize),
	}

	claimed := map[model.Side]map[string]bool{
		model.SideGold:   {},
		model.SideGrowth: {},
	}
	for _, f := range model.AllFields() {
		s := Suggestion{Target: f, Method: MethodNone}
		g, gok := bestColumn(f, gold.Columns, claimed[model.SideGold], opts.AcceptThreshold)
		w, wok := bestColumn(f, growth.Columns, claimed[model.SideGrowth], opts.AcceptThreshold)
		if gok {
			claimed[model.SideGold][g.column] = true
			s.GoldColumn, s.GoldScore = g.column, g.score
		}
		if wok {
			claimed[model.SideGrowth][w.column] = true
			s.GrowthColumn, s.GrowthScore = w.column, w.score
		}
		s.Method = combineMethod(gok, g.method, wok, w.method)
		s.AutoMatched = gok && wok &&
			g.score >= opts.AutoMatchCutover && w.score >= opts.AutoMatchCutover
		p.SuggestedMappings = append(p.SuggestedMappings, s)
	}

	p.Warnings = TypeWarnings(p.Mapping(), p.GoldColumns, p.GrowthColumns)

	zap.L().Debug("schema: columns previewed",
		zap.String("gold", gold.Name),
		zap.String("growth", growth.Name),
		zap.Int("warnings", len(p.Warnings)),
	)
	return p
}

// PreviewFiles loads both files and previews them.
func PreviewFiles(ctx context.Context, goldPath, growthPath string, opts Options, lopts loader.Options) (*Preview, error) {
	gold, err := loader.Load(ctx, goldPath, lopts)
	if err != nil {
		return nil, eris.Wrap(err, "schema: load gold")
	}
	growth, err := loader.Load(ctx, growthPath, lopts)
	if err != nil {
		return nil, eris.Wrap(err, "schema: load growth")
	}
	return PreviewColumns(gold, growth, opts), nil
}

// TypeWarnings flags metric fields mapped to columns that are not numeric.
func TypeWarnings(m model.FieldMapping, gold, growth []model.ColumnDescriptor) []Warning {
	types := map[model.Side]map[string]model.ColumnType{
		model.SideGold:   typeIndex(gold),
		model.SideGrowth: typeIndex(growth),
	}
	var out []Warning
	for _, f := range m.Fields() {
		if !f.IsMetric() {
			continue
		}
		for _, side := range []model.Side{model.SideGold, model.SideGrowth} {
			col, ok := m.Column(f, side)
			if !ok {
				continue
			}
			typ, known := types[side][col]
			if !known || typ == model.ColumnNumeric {
				continue
			}
			out = append(out, Warning{
				Target:  f,
				Side:    side,
				Column:  col,
				Message: fmt.Sprintf("metric %s mapped to %s column %q on %s side", f, typ, col, side),
			})
		}
	}
	return out
}

func typeIndex(cols []model.ColumnDescriptor) map[string]model.ColumnType {
	out := make(map[string]model.ColumnType, len(cols))
	for _, c := range cols {
		out[c.Name] = c.InferredType
	}
	return out
}

func combineMethod(gok bool, gm string, wok bool, wm string) string {
	switch {
	case !gok && !wok:
		return MethodNone
	case (gok && gm == MethodFuzzy) || (wok && wm == MethodFuzzy):
		return MethodFuzzy
	default:
		return MethodExact
	}
}

func withDefaults(o Options) Options {
	d := DefaultOptions()
	if o.SampleSize <= 0 {
		o.SampleSize = d.SampleSize
	}
	if o.AcceptThreshold <= 0 {
		o.AcceptThreshold = d.AcceptThreshold
	}
	if o.AutoMatchCutover <= 0 {
		o.AutoMatchCutover = d.AutoMatchCutover
	}
	return o
}
