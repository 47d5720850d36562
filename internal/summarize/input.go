package summarize

import (
	"github.com/sells-group/recon-cli/internal/model"
)

// Input is the digest of a session handed to a model.
type Input struct {
	SessionID        string          `json:"session_id"`
	GoldFile         string          `json:"gold_file"`
	GrowthFile       string          `json:"growth_file"`
	Threshold        float64         `json:"threshold"`
	OverallMatchRate float64         `json:"overall_match_rate"`
	PassingSegments  int             `json:"passing_segments"`
	TotalSegments    int             `json:"total_segments"`
	Segments         []SegmentDigest `json:"segments"`
	Skipped          []string        `json:"skipped_segments,omitempty"`
	Findings         []FindingDigest `json:"findings"`
}

// SegmentDigest is one granularity's pass rate.
type SegmentDigest struct {
	Name        string  `json:"name"`
	Percent     float64 `json:"percent"`
	PassingRows int     `json:"passing_rows"`
	TotalRows   int     `json:"total_rows"`
}

// FindingDigest pairs a finding with its remediation narrative.
type FindingDigest struct {
	Kind        model.FindingKind `json:"kind"`
	Confidence  float64           `json:"confidence"`
	Description string            `json:"description"`
	Fix         string            `json:"fix,omitempty"`
	Prevention  string            `json:"prevention,omitempty"`
}

// BuildInput digests a session. Findings keep their ranked order.
func BuildInput(s *model.Session) Input {
	in := Input{
		SessionID:        s.ID,
		GoldFile:         s.GoldFile,
		GrowthFile:       s.GrowthFile,
		Threshold:        s.Threshold,
		OverallMatchRate: s.Summary.OverallMatchRate,
		PassingSegments:  s.Summary.PassingSegments,
		TotalSegments:    s.Summary.TotalSegments,
		Skipped:          s.SkippedSegments,
	}
	for _, seg := range s.Segments {
		in.Segments = append(in.Segments, SegmentDigest{
			Name:        seg.Name,
			Percent:     seg.Summary.PercentRounded(),
			PassingRows: seg.Summary.PassingRows,
			TotalRows:   seg.Summary.TotalRows,
		})
	}

	fixes := make(map[model.FindingKind]model.FixSuggestion, len(s.Fixes))
	for _, f := range s.Fixes {
		fixes[f.RootCauseKind] = f
	}
	for _, f := range s.Findings {
		in.Findings = append(in.Findings, FindingDigest{
			Kind:        f.Kind,
			Confidence:  f.Confidence,
			Description: f.Description,
			Fix:         fixes[f.Kind].Narrative,
			Prevention:  fixes[f.Kind].PreventionNote,
		})
	}
	return in
}
