package rootcause

import (
	"fmt"
	"sort"

	"github.com/sells-group/recon-cli/internal/aggregate"
	"github.com/sells-group/recon-cli/internal/model"
)

// naturalKeySegment picks the segment whose key best identifies one source
// row: campaign+date when present, else the one with most dimensions.
func naturalKeySegment(in Input) (*model.SegmentResult, bool) {
	if s, ok := in.segment(aggregate.ByCampaignDate); ok {
		return s, true
	}
	var best *model.SegmentResult
	for i := range in.Segments {
		s := &in.Segments[i]
		if len(s.Dimensions) == 0 {
			continue
		}
		if best == nil || len(s.Dimensions) > len(best.Dimensions) {
			best = s
		}
	}
	return best, best != nil
}

// DuplicateRecords fires when growth carries more raw rows per natural key
// than gold does, beyond the configured ratio.
func DuplicateRecords(in Input, cfg Config) (model.Finding, bool) {
	seg, ok := naturalKeySegment(in)
	if !ok {
		return model.Finding{}, false
	}

	type dup struct {
		key   string
		extra int
	}
	var (
		observed int
		extra    int
		dups     []dup
	)
	for _, r := range seg.Rows {
		observed += r.GrowthRows
		expected := max(r.GoldRows, 1)
		if r.GrowthRows > expected {
			e := r.GrowthRows - expected
			extra += e
			dups = append(dups, dup{key: r.GroupKey.String(), extra: e})
		}
	}
	if observed == 0 || extra == 0 {
		return model.Finding{}, false
	}
	distinct := observed - extra
	ratio := float64(observed) / float64(distinct)
	if ratio <= cfg.DuplicateRatio {
		return model.Finding{}, false
	}

	sort.Slice(dups, func(i, j int) bool {
		if dups[i].extra != dups[j].extra {
			return dups[i].extra > dups[j].extra
		}
		return dups[i].key < dups[j].key
	})
	samples := make([]string, 0, cfg.SampleKeys)
	for i := 0; i < len(dups) && i < cfg.SampleKeys; i++ {
		samples = append(samples, dups[i].key)
	}

	return model.Finding{
		Kind:       model.KindDuplicateRecords,
		Confidence: min(0.99, 0.5+5*(ratio-cfg.DuplicateRatio)),
		Description: fmt.Sprintf("Growth has %d more rows than distinct %s keys (%d observed vs %d distinct, ratio %.2f).",
			extra, seg.Name, observed, distinct, ratio),
		Evidence: model.Evidence{Duplicate: &model.DuplicateEvidence{
			Segment:            seg.Name,
			DuplicateRows:      extra,
			ObservedRows:       observed,
			DistinctRows:       distinct,
			Ratio:              round4(ratio),
			SampleKeys:         samples,
			ExactDuplicateRows: in.GrowthQuality.ExactDuplicates,
		}},
		AffectedGranularities: []string{seg.Name},
	}, true
}
