package rootcause

import (
	"fmt"
	"sort"
	"time"

	"github.com/sells-group/recon-cli/internal/aggregate"
	"github.com/sells-group/recon-cli/internal/compare"
	"github.com/sells-group/recon-cli/internal/model"
)

// minShiftPairs is the fewest paired dates an offset is scored on.
const minShiftPairs = 3

// dailySeries is one metric per calendar day for each side.
type dailySeries struct {
	gold, growth map[time.Time]float64
	goldOnly     []string
	growthOnly   []string
}

// shiftMetric picks cost when compared on by_date, else the first compared
// metric in priority order.
func shiftMetric(seg *model.SegmentResult) (model.Field, bool) {
	compared := make(map[model.Field]bool)
	for _, r := range seg.Rows {
		for f, mc := range r.PerMetric {
			if mc.Compared {
				compared[f] = true
			}
		}
	}
	for _, f := range model.Metrics {
		if compared[f] {
			return f, true
		}
	}
	return "", false
}

func buildSeries(seg *model.SegmentResult, metric model.Field) dailySeries {
	ds := dailySeries{gold: map[time.Time]float64{}, growth: map[time.Time]float64{}}
	for _, r := range seg.Rows {
		if len(r.GroupKey) != 1 {
			continue
		}
		day, err := time.Parse(time.DateOnly, r.GroupKey[0])
		if err != nil {
			continue
		}
		mc := r.PerMetric[metric]
		if !r.OneSided || r.PresentIn == model.SideGold {
			ds.gold[day] = mc.GoldValue
		}
		if !r.OneSided || r.PresentIn == model.SideGrowth {
			ds.growth[day] = mc.GrowthValue
		}
		if r.OneSided && r.PresentIn == model.SideGold {
			ds.goldOnly = append(ds.goldOnly, r.GroupKey[0])
		}
		if r.OneSided && r.PresentIn == model.SideGrowth {
			ds.growthOnly = append(ds.growthOnly, r.GroupKey[0])
		}
	}
	return ds
}

// shiftScore pairs growth(D) with gold(D-k) and returns the share of pairs
// that match under the threshold, the paired values, and whether enough
// pairs exist to score.
func (ds dailySeries) shiftScore(k int, threshold float64) (score float64, golds, growths []float64, ok bool) {
	days := make([]time.Time, 0, len(ds.growth))
	for d := range ds.growth {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	matched := 0
	for _, d := range days {
		g, present := ds.gold[d.AddDate(0, 0, -k)]
		if !present {
			continue
		}
		w := ds.growth[d]
		golds = append(golds, g)
		growths = append(growths, w)
		if compare.Evaluate(g, w, threshold).Match {
			matched++
		}
	}
	if len(golds) < minShiftPairs {
		return 0, golds, growths, false
	}
	return float64(matched) / float64(len(golds)), golds, growths, true
}

// DateShift fires when realigning growth dates by a small offset makes far
// more days match than the unshifted alignment. A positive offset means
// growth reports a day later than gold.
func DateShift(in Input, cfg Config) (model.Finding, bool) {
	seg, ok := in.segment(aggregate.ByDate)
	if !ok {
		return model.Finding{}, false
	}
	metric, ok := shiftMetric(seg)
	if !ok {
		return model.Finding{}, false
	}
	series := buildSeries(seg, metric)

	base, baseGold, baseGrowth, _ := series.shiftScore(0, in.Threshold)

	bestK, bestScore := 0, base
	var bestGold, bestGrowth []float64
	for step := 1; step <= cfg.ShiftWindow; step++ {
		for _, k := range []int{step, -step} {
			s, golds, growths, scored := series.shiftScore(k, in.Threshold)
			if scored && s > bestScore {
				bestK, bestScore, bestGold, bestGrowth = k, s, golds, growths
			}
		}
	}
	improvement := bestScore - base
	if bestK == 0 || improvement < cfg.ShiftMinImprovement {
		return model.Finding{}, false
	}

	direction := "later"
	if bestK < 0 {
		direction = "earlier"
	}
	days := bestK
	if days < 0 {
		days = -days
	}

	return model.Finding{
		Kind:       model.KindDateShift,
		Confidence: min(0.99, 0.5+0.5*improvement),
		Description: fmt.Sprintf("Growth %s totals line up with gold when shifted %d day(s): growth reports %s (%.0f%% of days match aligned vs %.0f%% unshifted).",
			metric, days, direction, bestScore*100, base*100),
		Evidence: model.Evidence{DateShift: &model.DateShiftEvidence{
			Metric:           metric,
			OffsetDays:       bestK,
			AlignedScore:     round4(bestScore),
			UnshiftedScore:   round4(base),
			AlignedPearson:   round4(pearson(bestGold, bestGrowth)),
			UnshiftedPearson: round4(pearson(baseGold, baseGrowth)),
			PairedDates:      len(bestGold),
			GrowthOnlyDates:  firstN(series.growthOnly, cfg.SampleKeys),
			GoldOnlyDates:    firstN(series.goldOnly, cfg.SampleKeys),
		}},
		AffectedGranularities: affectedDateSegments(in),
	}, true
}

// affectedDateSegments lists every segment keyed by date.
func affectedDateSegments(in Input) []string {
	var out []string
	for _, s := range in.Segments {
		for _, d := range s.Dimensions {
			if d == model.FieldDate {
				out = append(out, s.Name)
				break
			}
		}
	}
	return out
}
