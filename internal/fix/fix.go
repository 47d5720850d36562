// Package fix renders canned remediation advice for root-cause findings.
package fix

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recon-cli/internal/model"
)

// entry holds the templates for one finding kind.
type entry struct {
	narrative  *template.Template
	data       *template.Template
	query      *template.Template
	prevention *template.Template
}

var funcs = template.FuncMap{
	"join": strings.Join,
	"pct":  func(v float64) float64 { return v * 100 },
	"abs": func(v int) int {
		if v < 0 {
			return -v
		}
		return v
	},
	"quoted": func(keys []string) string {
		q := make([]string, len(keys))
		for i, k := range keys {
			q[i] = "'" + strings.ReplaceAll(k, "'", "''") + "'"
		}
		return strings.Join(q, ", ")
	},
}

func parse(kind model.FindingKind, part, text string) *template.Template {
	return template.Must(template.New(string(kind) + "." + part).Funcs(funcs).Parse(text))
}

// table is the closed set of templates, one per finding kind.
var table = map[model.FindingKind]entry{}

func init() {
	for kind, t := range templates {
		table[kind] = entry{
			narrative:  parse(kind, "narrative", t[0]),
			data:       parse(kind, "data", t[1]),
			query:      parse(kind, "query", t[2]),
			prevention: parse(kind, "prevention", t[3]),
		}
	}
}

// Suggest renders one suggestion per finding, in finding order.
func Suggest(findings []model.Finding) ([]model.FixSuggestion, error) {
	out := make([]model.FixSuggestion, 0, len(findings))
	for _, f := range findings {
		e, ok := table[f.Kind]
		if !ok {
			return nil, eris.Errorf("fix: no template for kind %q", f.Kind)
		}
		s := model.FixSuggestion{RootCauseKind: f.Kind}
		for _, part := range []struct {
			tmpl *template.Template
			dst  *string
		}{
			{e.narrative, &s.Narrative},
			{e.data, &s.DataSnippet},
			{e.query, &s.QuerySnippet},
			{e.prevention, &s.PreventionNote},
		} {
			var buf bytes.Buffer
			if err := part.tmpl.Execute(&buf, f); err != nil {
				return nil, eris.Wrapf(err, "fix: render %s", part.tmpl.Name())
			}
			*part.dst = strings.TrimSpace(buf.String())
		}
		out = append(out, s)
	}
	return out, nil
}

// MustSuggest is Suggest for findings produced by the rule engine, whose
// kinds always have templates.
func MustSuggest(findings []model.Finding) []model.FixSuggestion {
	out, err := Suggest(findings)
	if err != nil {
		panic(err)
	}
	return out
}
