package model

import "sort"

// FindingKind enumerates the deterministic root-cause classifications.
type FindingKind string

const (
	KindDuplicateRecords FindingKind = "duplicate_records"
	KindGrainMismatch    FindingKind = "grain_mismatch"
	KindDateShift        FindingKind = "date_shift"
	KindMissingEntities  FindingKind = "missing_entities"
	KindSystematicBias   FindingKind = "systematic_bias"
)

// FindingKinds lists every kind in rule evaluation order.
var FindingKinds = []FindingKind{
	KindDuplicateRecords,
	KindGrainMismatch,
	KindDateShift,
	KindMissingEntities,
	KindSystematicBias,
}

// Order returns the rule position of k, or len(FindingKinds) if unknown.
func (k FindingKind) Order() int {
	for i, kk := range FindingKinds {
		if kk == k {
			return i
		}
	}
	return len(FindingKinds)
}

// Finding is one fired root-cause rule with self-contained evidence.
type Finding struct {
	Kind                  FindingKind `json:"kind"`
	Confidence            float64     `json:"confidence"`
	Description           string      `json:"description"`
	Evidence              Evidence    `json:"evidence"`
	AffectedGranularities []string    `json:"affected_granularities"`
}

// Evidence carries exactly one populated member matching the finding kind.
type Evidence struct {
	Duplicate *DuplicateEvidence `json:"duplicate,omitempty"`
	Grain     *GrainEvidence     `json:"grain,omitempty"`
	DateShift *DateShiftEvidence `json:"date_shift,omitempty"`
	Missing   *MissingEvidence   `json:"missing,omitempty"`
	Bias      *BiasEvidence      `json:"bias,omitempty"`
}

// DuplicateEvidence supports a duplicate_records finding.
type DuplicateEvidence struct {
	Segment            string   `json:"segment"`
	DuplicateRows      int      `json:"duplicate_rows"`
	ObservedRows       int      `json:"observed_rows"`
	DistinctRows       int      `json:"distinct_rows"`
	Ratio              float64  `json:"ratio"`
	SampleKeys         []string `json:"sample_keys"`
	ExactDuplicateRows int      `json:"exact_duplicate_rows"`
}

// GrainEvidence supports a grain_mismatch finding.
type GrainEvidence struct {
	OverallMatch     bool    `json:"overall_match"`
	WorstSegment     string  `json:"worst_segment"`
	WorstPercent     float64 `json:"worst_percent"`
	Gap              float64 `json:"gap"`
	GrowthSourceRows int     `json:"growth_source_rows"`
	GoldSourceRows   int     `json:"gold_source_rows"`
	RowDiffPct       float64 `json:"row_diff_pct"`
}

// DateShiftEvidence supports a date_shift finding. A positive offset means
// growth dates lag gold dates.
type DateShiftEvidence struct {
	Metric           Field    `json:"metric"`
	OffsetDays       int      `json:"offset_days"`
	AlignedScore     float64  `json:"aligned_score"`
	UnshiftedScore   float64  `json:"unshifted_score"`
	AlignedPearson   float64  `json:"aligned_pearson"`
	UnshiftedPearson float64  `json:"unshifted_pearson"`
	PairedDates      int      `json:"paired_dates"`
	GrowthOnlyDates  []string `json:"growth_only_dates"`
	GoldOnlyDates    []string `json:"gold_only_dates"`
}

// MissingEvidence supports a missing_entities finding.
type MissingEvidence struct {
	Segment          string   `json:"segment"`
	OneSidedRows     int      `json:"one_sided_rows"`
	TotalRows        int      `json:"total_rows"`
	Proportion       float64  `json:"proportion"`
	GrowthOnly       int      `json:"growth_only"`
	GoldOnly         int      `json:"gold_only"`
	SampleGrowthOnly []string `json:"sample_growth_only"`
	SampleGoldOnly   []string `json:"sample_gold_only"`
}

// BiasEvidence supports a systematic_bias finding.
type BiasEvidence struct {
	Segment       string  `json:"segment"`
	MedianDiffPct float64 `json:"median_diff_pct"`
	Direction     string  `json:"direction"`
	Consistency   float64 `json:"consistency"`
	Tightness     float64 `json:"tightness"`
	Samples       int     `json:"samples"`
	Metrics       []Field `json:"metrics"`
	CoercedValues int     `json:"coerced_values"`
}

// Bias directions.
const (
	DirectionGrowthHigher = "growth_higher"
	DirectionGoldHigher   = "gold_higher"
)

// RankFindings returns a copy ordered by confidence, highest first, with
// rule order breaking ties.
func RankFindings(findings []Finding) []Finding {
	out := make([]Finding, len(findings))
	copy(out, findings)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Kind.Order() < out[j].Kind.Order()
	})
	return out
}

// FixSuggestion is the canned remediation for one finding.
type FixSuggestion struct {
	RootCauseKind  FindingKind `json:"root_cause_kind"`
	Narrative      string      `json:"narrative"`
	DataSnippet    string      `json:"data_snippet"`
	QuerySnippet   string      `json:"query_snippet"`
	PreventionNote string      `json:"prevention_note"`
}
