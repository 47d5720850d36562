package model

import (
	"strings"
)

// Field is a canonical target field that both files' columns are mapped onto.
type Field string

// Metric fields, in reporting priority order.
const (
	FieldCost            Field = "cost"
	FieldImpressions     Field = "impressions"
	FieldClicks          Field = "clicks"
	FieldReach           Field = "reach"
	FieldPurchases       Field = "purchases"
	FieldConversionValue Field = "conversion_value"
)

// Dimension fields.
const (
	FieldCampaign  Field = "campaign"
	FieldDate      Field = "date"
	FieldPlatform  Field = "platform"
	FieldPlacement Field = "placement"
	FieldDevice    Field = "device"
	FieldGender    Field = "gender"
	FieldAge       Field = "age"
)

// Metrics lists every numeric canonical field in priority order.
var Metrics = []Field{
	FieldCost,
	FieldImpressions,
	FieldClicks,
	FieldReach,
	FieldPurchases,
	FieldConversionValue,
}

// Dimensions lists every grouping canonical field.
var Dimensions = []Field{
	FieldCampaign,
	FieldDate,
	FieldPlatform,
	FieldPlacement,
	FieldDevice,
	FieldGender,
	FieldAge,
}

// RequiredFields must resolve on both sides before aggregation.
var RequiredFields = []Field{FieldCost, FieldImpressions, FieldClicks}

// AllFields returns metrics followed by dimensions.
func AllFields() []Field {
	out := make([]Field, 0, len(Metrics)+len(Dimensions))
	out = append(out, Metrics...)
	return append(out, Dimensions...)
}

// legacyAliases maps historical target names onto canonical fields.
var legacyAliases = map[string]Field{
	"campaign_name": FieldCampaign,
	"day":           FieldDate,
}

// IsMetric reports whether f is a summed numeric field.
func (f Field) IsMetric() bool {
	for _, m := range Metrics {
		if m == f {
			return true
		}
	}
	return false
}

// IsDimension reports whether f is a grouping field.
func (f Field) IsDimension() bool {
	for _, d := range Dimensions {
		if d == f {
			return true
		}
	}
	return false
}

// IsRequired reports whether f must be mapped on both sides.
func (f Field) IsRequired() bool {
	for _, r := range RequiredFields {
		if r == f {
			return true
		}
	}
	return false
}

// Valid reports whether f belongs to the canonical enumeration.
func (f Field) Valid() bool {
	return f.IsMetric() || f.IsDimension()
}

// ParseField resolves a user-supplied target name to a canonical field.
// Matching is case-insensitive and tolerates surrounding whitespace.
func ParseField(name string) (Field, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if f := Field(key); f.Valid() {
		return f, nil
	}
	if f, ok := legacyAliases[key]; ok {
		return f, nil
	}
	return "", &UnknownFieldError{Name: name}
}
