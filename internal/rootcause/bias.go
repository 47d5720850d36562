package rootcause

import (
	"fmt"
	"math"

	"github.com/sells-group/recon-cli/internal/model"
)

// minBiasSamples is the fewest failing diffs a segment needs to be judged.
const minBiasSamples = 3

type biasStats struct {
	seg         *model.SegmentResult
	median      float64
	consistency float64
	tightness   float64
	confidence  float64
	samples     int
	metrics     []model.Field
}

// segmentBias measures how consistently signed and tightly clustered the
// failing diff percentages of a segment are.
func segmentBias(s *model.SegmentResult, cfg Config) (biasStats, bool) {
	var (
		values []float64
		used   = make(map[model.Field]bool)
	)
	for _, r := range s.Rows {
		if r.OneSided {
			continue
		}
		for _, f := range model.Metrics {
			mc, ok := r.PerMetric[f]
			if !ok || !mc.Compared || mc.Match || mc.DiffPct == nil {
				continue
			}
			values = append(values, *mc.DiffPct)
			used[f] = true
		}
	}
	if len(values) < minBiasSamples {
		return biasStats{}, false
	}

	med := median(values)
	if med == 0 {
		return biasStats{}, false
	}
	same := 0
	deviations := make([]float64, len(values))
	for i, v := range values {
		if (v > 0) == (med > 0) && v != 0 {
			same++
		}
		deviations[i] = math.Abs(v - med)
	}
	consistency := float64(same) / float64(len(values))
	if consistency < cfg.BiasConsistency {
		return biasStats{}, false
	}
	tightness := clamp(1-median(deviations)/math.Abs(med), 0, 1)

	st := biasStats{
		seg:         s,
		median:      med,
		consistency: consistency,
		tightness:   tightness,
		confidence:  min(0.99, 0.5*consistency+0.5*tightness),
		samples:     len(values),
	}
	for _, f := range model.Metrics {
		if used[f] {
			st.metrics = append(st.metrics, f)
		}
	}
	return st, true
}

// SystematicBias fires when the failing rows of a segment are off in the
// same direction by a similar amount rather than scattered around zero.
func SystematicBias(in Input, cfg Config) (model.Finding, bool) {
	var (
		best     *biasStats
		affected []string
	)
	for i := range in.Segments {
		st, ok := segmentBias(&in.Segments[i], cfg)
		if !ok {
			continue
		}
		affected = append(affected, st.seg.Name)
		if best == nil || st.confidence > best.confidence {
			best = &st
		}
	}
	if best == nil {
		return model.Finding{}, false
	}

	direction := model.DirectionGrowthHigher
	higher := "higher"
	if best.median < 0 {
		direction = model.DirectionGoldHigher
		higher = "lower"
	}

	return model.Finding{
		Kind:       model.KindSystematicBias,
		Confidence: best.confidence,
		Description: fmt.Sprintf("Failing %s rows are consistently %s in growth (median %+.2f%%, %.0f%% same sign).",
			best.seg.Name, higher, best.median, best.consistency*100),
		Evidence: model.Evidence{Bias: &model.BiasEvidence{
			Segment:       best.seg.Name,
			MedianDiffPct: round4(best.median),
			Direction:     direction,
			Consistency:   round4(best.consistency),
			Tightness:     round4(best.tightness),
			Samples:       best.samples,
			Metrics:       best.metrics,
			CoercedValues: in.GrowthQuality.UnparseableTotal() + in.GoldQuality.UnparseableTotal(),
		}},
		AffectedGranularities: affected,
	}, true
}
