package rootcause

import (
	"fmt"

	"github.com/sells-group/recon-cli/internal/aggregate"
	"github.com/sells-group/recon-cli/internal/model"
)

// GrainMismatch fires when overall totals agree but a finer segment's match
// rate falls at least GrainGap points short: the sources roll up the same
// totals at different levels of detail.
func GrainMismatch(in Input, cfg Config) (model.Finding, bool) {
	overall, ok := in.segment(aggregate.Overall)
	if !ok || len(overall.Rows) != 1 || !overall.Rows[0].PerfectMatch {
		return model.Finding{}, false
	}

	var (
		worst    *model.SegmentResult
		worstGap float64
		affected []string
	)
	for i := range in.Segments {
		s := &in.Segments[i]
		if len(s.Dimensions) == 0 || s.Summary.TotalRows == 0 {
			continue
		}
		gap := 100 - s.Summary.Percent
		if gap < cfg.GrainGap {
			continue
		}
		affected = append(affected, s.Name)
		if worst == nil || gap > worstGap {
			worst, worstGap = s, gap
		}
	}
	if worst == nil {
		return model.Finding{}, false
	}

	row := overall.Rows[0]
	rowDiff := 0.0
	if row.GoldRows > 0 {
		rowDiff = float64(row.GrowthRows-row.GoldRows) / float64(row.GoldRows) * 100
	}

	return model.Finding{
		Kind:       model.KindGrainMismatch,
		Confidence: clamp(worstGap/100, 0.30, 0.95),
		Description: fmt.Sprintf("Overall totals match but %s passes only %.1f%% of rows (%d growth rows vs %d gold rows).",
			worst.Name, worst.Summary.Percent, row.GrowthRows, row.GoldRows),
		Evidence: model.Evidence{Grain: &model.GrainEvidence{
			OverallMatch:     true,
			WorstSegment:     worst.Name,
			WorstPercent:     round4(worst.Summary.Percent),
			Gap:              round4(worstGap),
			GrowthSourceRows: row.GrowthRows,
			GoldSourceRows:   row.GoldRows,
			RowDiffPct:       round4(rowDiff),
		}},
		AffectedGranularities: affected,
	}, true
}
