// Package rootcause classifies comparison mismatches with a fixed battery of
// deterministic rules. Every finding is reproducible from the stored
// segment results alone.
package rootcause

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/model"
)

// Config holds the rule thresholds.
type Config struct {
	DuplicateRatio      float64 `mapstructure:"duplicate_ratio"`
	GrainGap            float64 `mapstructure:"grain_gap"`
	ShiftWindow         int     `mapstructure:"shift_window"`
	ShiftMinImprovement float64 `mapstructure:"shift_min_improvement"`
	MissingProportion   float64 `mapstructure:"missing_proportion"`
	BiasConsistency     float64 `mapstructure:"bias_consistency"`
	SampleKeys          int     `mapstructure:"sample_keys"`
}

// DefaultConfig returns the standard rule thresholds.
func DefaultConfig() Config {
	return Config{
		DuplicateRatio:      1.10,
		GrainGap:            20,
		ShiftWindow:         3,
		ShiftMinImprovement: 0.25,
		MissingProportion:   0.10,
		BiasConsistency:     0.80,
		SampleKeys:          5,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DuplicateRatio <= 0 {
		c.DuplicateRatio = d.DuplicateRatio
	}
	if c.GrainGap <= 0 {
		c.GrainGap = d.GrainGap
	}
	if c.ShiftWindow <= 0 {
		c.ShiftWindow = d.ShiftWindow
	}
	if c.ShiftMinImprovement <= 0 {
		c.ShiftMinImprovement = d.ShiftMinImprovement
	}
	if c.MissingProportion <= 0 {
		c.MissingProportion = d.MissingProportion
	}
	if c.BiasConsistency <= 0 {
		c.BiasConsistency = d.BiasConsistency
	}
	if c.SampleKeys <= 0 {
		c.SampleKeys = d.SampleKeys
	}
	return c
}

// Input is the results bundle the rules read. Segments are in contract order.
type Input struct {
	Segments      []model.SegmentResult
	Threshold     float64
	GoldQuality   model.DataQuality
	GrowthQuality model.DataQuality
}

func (in Input) segment(name string) (*model.SegmentResult, bool) {
	for i := range in.Segments {
		if in.Segments[i].Name == name {
			return &in.Segments[i], true
		}
	}
	return nil, false
}

// Rule inspects the bundle and fires at most one finding.
type Rule func(in Input, cfg Config) (model.Finding, bool)

// Rules is the fixed evaluation order.
var Rules = []Rule{
	DuplicateRecords,
	GrainMismatch,
	DateShift,
	MissingEntities,
	SystematicBias,
}

// Diagnose runs every rule in order and collects the findings that fire.
func Diagnose(in Input, cfg Config) []model.Finding {
	cfg = cfg.withDefaults()
	findings := make([]model.Finding, 0, len(Rules))
	for _, rule := range Rules {
		if f, ok := rule(in, cfg); ok {
			f.Confidence = round4(f.Confidence)
			findings = append(findings, f)
		}
	}
	zap.L().Debug("rootcause: diagnosed", zap.Int("findings", len(findings)))
	return findings
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// median of a sorted copy of vs; vs must be non-empty.
func median(vs []float64) float64 {
	s := append([]float64(nil), vs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// pearson returns the correlation of xs and ys, or 0 when undefined.
func pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return 0
	}
	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= float64(n)
	my /= float64(n)
	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0
	}
	return sxy / math.Sqrt(sxx*syy)
}

func firstN(keys []string, n int) []string {
	if len(keys) > n {
		keys = keys[:n]
	}
	return append([]string{}, keys...)
}
