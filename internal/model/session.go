package model

import "time"

// Session is the immutable outcome of one validation submission.
type Session struct {
	ID              string          `json:"session_id"`
	CreatedAt       time.Time       `json:"created_at"`
	GoldFile        string          `json:"gold_file"`
	GrowthFile      string          `json:"growth_file"`
	Threshold       float64         `json:"threshold"`
	Mapping         FieldMapping    `json:"mapping"`
	Segments        []SegmentResult `json:"segments"`
	SkippedSegments []string        `json:"skipped_segments"`
	Summary         SessionSummary  `json:"summary"`
	Findings        []Finding       `json:"findings"`
	Fixes           []FixSuggestion `json:"fixes"`
	GoldQuality     DataQuality     `json:"gold_quality"`
	GrowthQuality   DataQuality     `json:"growth_quality"`
}

// Segment returns the named segment result, if present.
func (s *Session) Segment(name string) (*SegmentResult, bool) {
	for i := range s.Segments {
		if s.Segments[i].Name == name {
			return &s.Segments[i], true
		}
	}
	return nil, false
}

// SessionInfo is the listing view of a stored session.
type SessionInfo struct {
	ID               string    `json:"session_id"`
	GoldFile         string    `json:"gold_file"`
	GrowthFile       string    `json:"growth_file"`
	OverallMatchRate float64   `json:"overall_match_rate"`
	Findings         int       `json:"findings"`
	CreatedAt        time.Time `json:"created_at"`
}

// Info projects the session onto its listing view.
func (s *Session) Info() SessionInfo {
	return SessionInfo{
		ID:               s.ID,
		GoldFile:         s.GoldFile,
		GrowthFile:       s.GrowthFile,
		OverallMatchRate: s.Summary.OverallMatchRate,
		Findings:         len(s.Findings),
		CreatedAt:        s.CreatedAt,
	}
}
