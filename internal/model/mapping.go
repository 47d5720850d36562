package model

import (
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Side identifies one of the two datasets under reconciliation.
type Side string

const (
	SideGold   Side = "gold"
	SideGrowth Side = "growth"
)

// ColumnPair holds the physical column resolved for a field on each side.
// An empty string means the field is unmapped on that side.
type ColumnPair struct {
	Gold   string `json:"gold_column,omitempty" yaml:"gold,omitempty"`
	Growth string `json:"growth_column,omitempty" yaml:"growth,omitempty"`
}

// Column returns the column for the given side.
func (p ColumnPair) Column(s Side) string {
	if s == SideGold {
		return p.Gold
	}
	return p.Growth
}

// FieldMapping maps canonical fields to their physical columns.
type FieldMapping map[Field]ColumnPair

// Column returns the column mapped for f on side s.
func (m FieldMapping) Column(f Field, s Side) (string, bool) {
	col := m[f].Column(s)
	return col, col != ""
}

// Mapped reports whether f resolves on side s.
func (m FieldMapping) Mapped(f Field, s Side) bool {
	_, ok := m.Column(f, s)
	return ok
}

// Fields returns mapped fields in canonical order.
func (m FieldMapping) Fields() []Field {
	var out []Field
	for _, f := range AllFields() {
		if p, ok := m[f]; ok && (p.Gold != "" || p.Growth != "") {
			out = append(out, f)
		}
	}
	return out
}

// Incomplete returns the first required field left unmapped, or nil.
func (m FieldMapping) Incomplete() *MappingIncompleteError {
	for _, f := range RequiredFields {
		var missing []Side
		if !m.Mapped(f, SideGold) {
			missing = append(missing, SideGold)
		}
		if !m.Mapped(f, SideGrowth) {
			missing = append(missing, SideGrowth)
		}
		if len(missing) > 0 {
			return &MappingIncompleteError{Field: f, Sides: missing}
		}
	}
	return nil
}

// Validate checks every mapped column exists in its table and that the
// required fields resolve on both sides.
func (m FieldMapping) Validate(gold, growth Table) error {
	keys := make([]string, 0, len(m))
	for f := range m {
		keys = append(keys, string(f))
	}
	sort.Strings(keys)

	for _, k := range keys {
		f := Field(k)
		if !f.Valid() {
			return &UnknownFieldError{Name: k}
		}
		pair := m[f]
		if pair.Gold != "" && !gold.HasColumn(pair.Gold) {
			return &ColumnNotFoundError{Field: f, Side: SideGold, Column: pair.Gold}
		}
		if pair.Growth != "" && !growth.HasColumn(pair.Growth) {
			return &ColumnNotFoundError{Field: f, Side: SideGrowth, Column: pair.Growth}
		}
	}
	if err := m.Incomplete(); err != nil {
		return err
	}
	return nil
}

// MeasuredMetrics reports, per metric, which sides carry a mapped column.
func (m FieldMapping) MeasuredMetrics() MeasuredMetrics {
	out := MeasuredMetrics{}
	for _, f := range Metrics {
		out[f] = Presence{Gold: m.Mapped(f, SideGold), Growth: m.Mapped(f, SideGrowth)}
	}
	return out
}

// Presence records on which sides a metric is measured.
type Presence struct {
	Gold   bool `json:"gold"`
	Growth bool `json:"growth"`
}

// Both reports whether the metric is measured on both sides.
func (p Presence) Both() bool { return p.Gold && p.Growth }

// Any reports whether the metric is measured on at least one side.
func (p Presence) Any() bool { return p.Gold || p.Growth }

// MeasuredMetrics is keyed by metric field.
type MeasuredMetrics map[Field]Presence

// ParseMapping converts loosely-keyed targets into a FieldMapping, rejecting
// names outside the canonical set.
func ParseMapping(raw map[string]ColumnPair) (FieldMapping, error) {
	out := make(FieldMapping, len(raw))
	for name, pair := range raw {
		f, err := ParseField(name)
		if err != nil {
			return nil, err
		}
		if pair.Gold == "" && pair.Growth == "" {
			continue
		}
		out[f] = pair
	}
	return out, nil
}

// LoadMappingFile reads a YAML mapping file of the form
//
//	cost:
//	  gold: spend
//	  growth: Amount spent (INR)
func LoadMappingFile(path string) (FieldMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "mapping: read %s", path)
	}
	var raw map[string]ColumnPair
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrapf(err, "mapping: parse %s", path)
	}
	m, err := ParseMapping(raw)
	if err != nil {
		return nil, eris.Wrapf(err, "mapping: %s", path)
	}
	return m, nil
}
