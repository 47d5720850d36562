// Package export flattens stored sessions into tabular form.
package export

import (
	"encoding/csv"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/recon-cli/internal/model"
)

// Line is one (segment, key, metric) verdict.
type Line struct {
	Segment      string   `csv:"segment" json:"segment"`
	Key          string   `csv:"key" json:"key"`
	Metric       string   `csv:"metric" json:"metric"`
	Growth       float64  `csv:"growth" json:"growth"`
	Gold         float64  `csv:"gold" json:"gold"`
	Diff         float64  `csv:"diff" json:"diff"`
	DiffPct      *float64 `csv:"diff_pct" json:"diff_pct"`
	Match        bool     `csv:"match" json:"match"`
	Compared     bool     `csv:"compared" json:"compared"`
	OneSided     bool     `csv:"one_sided" json:"one_sided"`
	PresentIn    string   `csv:"present_in" json:"present_in"`
	PerfectMatch bool     `csv:"perfect_match" json:"perfect_match"`
}

// Lines flattens every comparison row of the session, segments in contract
// order, rows in key order, metrics in canonical order.
func Lines(s *model.Session) []Line {
	var out []Line
	for _, seg := range s.Segments {
		for _, row := range seg.Rows {
			key := row.GroupKey.String()
			for _, f := range model.Metrics {
				mc, ok := row.PerMetric[f]
				if !ok {
					continue
				}
				out = append(out, Line{
					Segment:      seg.Name,
					Key:          key,
					Metric:       string(f),
					Growth:       mc.GrowthValue,
					Gold:         mc.GoldValue,
					Diff:         mc.Diff,
					DiffPct:      mc.DiffPct,
					Match:        mc.Match,
					Compared:     mc.Compared,
					OneSided:     row.OneSided,
					PresentIn:    string(row.PresentIn),
					PerfectMatch: row.PerfectMatch,
				})
			}
		}
	}
	return out
}

// ComparisonCSV writes Lines(s) as CSV with a header row. An undefined
// diff_pct is written as an empty cell.
func ComparisonCSV(w io.Writer, s *model.Session) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if err := enc.EncodeHeader(Line{}); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, l := range Lines(s) {
		if err := enc.Encode(l); err != nil {
			return eris.Wrap(err, "export: encode line")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush")
}
