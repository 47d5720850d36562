package schema

import (
	"github.com/sells-group/recon-cli/internal/aggregate"
	"github.com/sells-group/recon-cli/internal/model"
)

const (
	categoricalMaxRatio    = 0.5
	categoricalMaxDistinct = 50
)

// Describe returns one descriptor per column in file order with up to
// sampleSize non-empty sample values.
func Describe(t model.Table, sampleSize int) []model.ColumnDescriptor {
	out := make([]model.ColumnDescriptor, 0, len(t.Columns))
	for _, col := range t.Columns {
		values := t.Values(col)
		samples := make([]string, 0, sampleSize)
		for _, v := range values {
			if len(samples) >= sampleSize {
				break
			}
			if v != "" {
				samples = append(samples, v)
			}
		}
		out = append(out, model.ColumnDescriptor{
			Name:         col,
			InferredType: InferType(values),
			SampleValues: samples,
		})
	}
	return out
}

// InferType classifies a column from all of its raw values. Placeholders are
// ignored; a column with no real values is a string column.
func InferType(values []string) model.ColumnType {
	var present []string
	for _, v := range values {
		if !aggregate.IsPlaceholder(v) {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return model.ColumnString
	}

	numeric, date := true, true
	distinct := make(map[string]struct{})
	for _, v := range present {
		if numeric {
			if _, ok := aggregate.ParseNumber(v); !ok {
				numeric = false
			}
		}
		if date {
			if _, ok := aggregate.ParseDate(v); !ok {
				date = false
			}
		}
		distinct[v] = struct{}{}
	}

	switch {
	case numeric:
		return model.ColumnNumeric
	case date:
		return model.ColumnDate
	case len(distinct) <= categoricalMaxDistinct &&
		float64(len(distinct))/float64(len(present)) <= categoricalMaxRatio:
		return model.ColumnCategorical
	default:
		return model.ColumnString
	}
}
