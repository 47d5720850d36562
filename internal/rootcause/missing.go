package rootcause

import (
	"fmt"

	"github.com/sells-group/recon-cli/internal/aggregate"
	"github.com/sells-group/recon-cli/internal/model"
)

type missingStats struct {
	seg        *model.SegmentResult
	growthOnly []string
	goldOnly   []string
	proportion float64
}

func oneSidedStats(s *model.SegmentResult) missingStats {
	st := missingStats{seg: s}
	for _, r := range s.Rows {
		if !r.OneSided {
			continue
		}
		if r.PresentIn == model.SideGrowth {
			st.growthOnly = append(st.growthOnly, r.GroupKey.String())
		} else {
			st.goldOnly = append(st.goldOnly, r.GroupKey.String())
		}
	}
	if n := len(s.Rows); n > 0 {
		st.proportion = float64(len(st.growthOnly)+len(st.goldOnly)) / float64(n)
	}
	return st
}

// MissingEntities fires when a dimensional segment has too many keys that
// exist on one side only. by_campaign is reported first when it qualifies.
func MissingEntities(in Input, cfg Config) (model.Finding, bool) {
	var (
		qualifying []missingStats
		primary    *missingStats
	)
	for i := range in.Segments {
		s := &in.Segments[i]
		if len(s.Dimensions) == 0 || len(s.Rows) == 0 {
			continue
		}
		st := oneSidedStats(s)
		if st.proportion <= cfg.MissingProportion {
			continue
		}
		qualifying = append(qualifying, st)
	}
	if len(qualifying) == 0 {
		return model.Finding{}, false
	}
	for i := range qualifying {
		q := &qualifying[i]
		if q.seg.Name == aggregate.ByCampaign {
			primary = q
			break
		}
		if primary == nil || q.proportion > primary.proportion {
			primary = q
		}
	}

	affected := make([]string, len(qualifying))
	for i, q := range qualifying {
		affected[i] = q.seg.Name
	}
	oneSided := len(primary.growthOnly) + len(primary.goldOnly)

	return model.Finding{
		Kind:       model.KindMissingEntities,
		Confidence: min(0.99, 0.5+primary.proportion),
		Description: fmt.Sprintf("%d of %d %s keys exist on one side only (%d growth only, %d gold only).",
			oneSided, len(primary.seg.Rows), primary.seg.Name, len(primary.growthOnly), len(primary.goldOnly)),
		Evidence: model.Evidence{Missing: &model.MissingEvidence{
			Segment:          primary.seg.Name,
			OneSidedRows:     oneSided,
			TotalRows:        len(primary.seg.Rows),
			Proportion:       round4(primary.proportion),
			GrowthOnly:       len(primary.growthOnly),
			GoldOnly:         len(primary.goldOnly),
			SampleGrowthOnly: firstN(primary.growthOnly, cfg.SampleKeys),
			SampleGoldOnly:   firstN(primary.goldOnly, cfg.SampleKeys),
		}},
		AffectedGranularities: affected,
	}, true
}
