// Package compare outer-joins gold and growth rollups and applies the
// tolerance threshold per metric.
package compare

import (
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/model"
)

// DefaultThreshold is the tolerance in percent.
const DefaultThreshold = 3.0

// Round4 rounds v to four decimals.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Evaluate compares one metric value pair. Both zero is a match with zero
// percent; gold zero against nonzero growth is a non-match with no percent.
func Evaluate(gold, growth, threshold float64) model.MetricComparison {
	mc := model.MetricComparison{
		GrowthValue: growth,
		GoldValue:   gold,
		Diff:        growth - gold,
		Compared:    true,
	}
	switch {
	case gold == 0 && growth == 0:
		zero := 0.0
		mc.DiffPct = &zero
		mc.Match = true
	case gold == 0:
		mc.Match = false
	default:
		pct := Round4(mc.Diff / gold * 100)
		mc.DiffPct = &pct
		mc.Match = math.Abs(pct) <= threshold
	}
	return mc
}

// Compare joins one granularity's rollups. Keys present on one side only
// are kept with the absent side at zero and flagged one-sided. Metrics
// measured on a single side are reported but excluded from perfect_match.
func Compare(name string, dims []model.Field, gold, growth []model.AggregateRow, measured model.MeasuredMetrics, threshold float64) model.SegmentResult {
	type pair struct {
		key          model.GroupKey
		gold, growth *model.AggregateRow
	}
	joined := make(map[string]*pair, len(gold)+len(growth))
	add := func(rows []model.AggregateRow, side model.Side) {
		for i := range rows {
			r := &rows[i]
			id := strings.Join(r.GroupKey, "\x1f")
			p, ok := joined[id]
			if !ok {
				p = &pair{key: r.GroupKey}
				joined[id] = p
			}
			if side == model.SideGold {
				p.gold = r
			} else {
				p.growth = r
			}
		}
	}
	add(gold, model.SideGold)
	add(growth, model.SideGrowth)

	var metrics []model.Field
	for _, f := range model.Metrics {
		if measured[f].Any() {
			metrics = append(metrics, f)
		}
	}

	rows := make([]model.ComparisonRow, 0, len(joined))
	for _, p := range joined {
		row := model.ComparisonRow{
			GroupKey:     p.key,
			PerMetric:    make(map[model.Field]model.MetricComparison, len(metrics)),
			PerfectMatch: true,
		}
		var gv, wv map[model.Field]float64
		if p.gold != nil {
			gv, row.GoldRows = p.gold.MetricValues, p.gold.RowCount
		}
		if p.growth != nil {
			wv, row.GrowthRows = p.growth.MetricValues, p.growth.RowCount
		}
		switch {
		case p.gold == nil:
			row.OneSided, row.PresentIn = true, model.SideGrowth
		case p.growth == nil:
			row.OneSided, row.PresentIn = true, model.SideGold
		}

		for _, f := range metrics {
			if measured[f].Both() {
				mc := Evaluate(gv[f], wv[f], threshold)
				row.PerMetric[f] = mc
				row.PerfectMatch = row.PerfectMatch && mc.Match
				continue
			}
			row.PerMetric[f] = model.MetricComparison{
				GrowthValue: wv[f],
				GoldValue:   gv[f],
				Diff:        wv[f] - gv[f],
			}
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].GroupKey.Less(rows[j].GroupKey) })

	res := model.SegmentResult{
		Name:       name,
		Dimensions: dims,
		Rows:       rows,
		Summary:    model.NewSegmentSummary(name, rows),
	}
	zap.L().Debug("compare: segment compared",
		zap.String("segment", name),
		zap.Int("rows", res.Summary.TotalRows),
		zap.Int("passing", res.Summary.PassingRows),
	)
	return res
}

// Summarize derives the segment summary from its rows.
func Summarize(name string, rows []model.ComparisonRow) model.SegmentSummary {
	return model.NewSegmentSummary(name, rows)
}

// SessionSummary rolls segment summaries up. The overall match rate is
// weighted by rows, so large segments dominate. A segment passes when
// every one of its rows passes.
func SessionSummary(details []model.SegmentSummary) model.SessionSummary {
	s := model.SessionSummary{
		TotalSegments: len(details),
		Details:       details,
	}
	for _, d := range details {
		s.PassingRows += d.PassingRows
		s.TotalRows += d.TotalRows
		if d.TotalRows > 0 && d.PassingRows == d.TotalRows {
			s.PassingSegments++
		}
	}
	s.OverallMatchRate = model.Percent(s.PassingRows, s.TotalRows)
	return s
}
