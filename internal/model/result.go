package model

import (
	"math"
	"strings"
)

// UnknownValue is the group key bucket for rows with a missing dimension value.
const UnknownValue = "unknown"

// KeySeparator joins composite group keys for display and export.
const KeySeparator = " | "

// GroupKey is the ordered tuple of grouping-dimension values. The overall
// granularity uses an empty key.
type GroupKey []string

// String joins the key for display.
func (k GroupKey) String() string {
	return strings.Join(k, KeySeparator)
}

// Less orders keys lexicographically by tuple element.
func (k GroupKey) Less(o GroupKey) bool {
	for i := 0; i < len(k) && i < len(o); i++ {
		if k[i] != o[i] {
			return k[i] < o[i]
		}
	}
	return len(k) < len(o)
}

// AggregateRow is one rolled-up group for a single source and granularity.
// Metrics omits fields that are not mapped on the source.
type AggregateRow struct {
	GroupKey     GroupKey          `json:"group_key"`
	MetricValues map[Field]float64 `json:"metric_values"`
	RowCount     int               `json:"row_count"`
}

// DataQuality collects coercion statistics for one source file.
type DataQuality struct {
	SourceRows      int           `json:"source_rows"`
	Unparseable     map[Field]int `json:"unparseable,omitempty"`
	ExactDuplicates int           `json:"exact_duplicates"`
}

// UnparseableTotal sums unparseable metric values across fields.
func (q DataQuality) UnparseableTotal() int {
	n := 0
	for _, c := range q.Unparseable {
		n += c
	}
	return n
}

// MetricComparison holds the verdict for one metric of one comparison row.
// DiffPct is nil when gold is zero and growth is not.
type MetricComparison struct {
	GrowthValue float64  `json:"growth_value"`
	GoldValue   float64  `json:"gold_value"`
	Diff        float64  `json:"diff"`
	DiffPct     *float64 `json:"diff_pct"`
	Match       bool     `json:"match"`
	Compared    bool     `json:"compared"`
}

// ComparisonRow is the outer-joined verdict for one group key.
type ComparisonRow struct {
	GroupKey     GroupKey                   `json:"group_key"`
	PerMetric    map[Field]MetricComparison `json:"per_metric"`
	PerfectMatch bool                       `json:"perfect_match"`
	OneSided     bool                       `json:"one_sided"`
	PresentIn    Side                       `json:"present_in,omitempty"`
	GoldRows     int                        `json:"gold_rows"`
	GrowthRows   int                        `json:"growth_rows"`
}

// SegmentSummary is the pass rate of one granularity. Percent is derived from
// the row counts at construction time.
type SegmentSummary struct {
	SegmentName string  `json:"segment_name"`
	TotalRows   int     `json:"total_rows"`
	PassingRows int     `json:"passing_rows"`
	Percent     float64 `json:"percent"`
}

// NewSegmentSummary derives the summary for a segment from its rows.
func NewSegmentSummary(name string, rows []ComparisonRow) SegmentSummary {
	s := SegmentSummary{SegmentName: name, TotalRows: len(rows)}
	for _, r := range rows {
		if r.PerfectMatch {
			s.PassingRows++
		}
	}
	s.Percent = Percent(s.PassingRows, s.TotalRows)
	return s
}

// PercentRounded returns Percent rounded to two decimals for display.
func (s SegmentSummary) PercentRounded() float64 {
	return math.Round(s.Percent*100) / 100
}

// Percent returns part/total*100, or 0 when total is zero.
func Percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// SegmentResult pairs a granularity's comparison rows with their summary.
type SegmentResult struct {
	Name       string          `json:"name"`
	Dimensions []Field         `json:"dimensions"`
	Rows       []ComparisonRow `json:"rows"`
	Summary    SegmentSummary  `json:"summary"`
}

// SessionSummary aggregates segment summaries. The match rate is row-weighted.
type SessionSummary struct {
	OverallMatchRate float64          `json:"overall_match_rate"`
	PassingRows      int              `json:"passing_rows"`
	TotalRows        int              `json:"total_rows"`
	PassingSegments  int              `json:"passing_segments"`
	TotalSegments    int              `json:"total_segments"`
	Details          []SegmentSummary `json:"details"`
}
