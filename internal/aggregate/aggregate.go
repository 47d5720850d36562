// Package aggregate rolls a source table up to comparable per-granularity
// totals.
package aggregate

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/model"
)

// ErrGranularityUnavailable is returned when a granularity groups by a
// dimension the mapping leaves unresolved. Callers skip the segment.
var ErrGranularityUnavailable = errors.New("aggregate: granularity dimensions not mapped")

// checkEvery is the row interval between context checks.
const checkEvery = 4096

// keySep joins group key parts internally; it cannot occur in trimmed cells.
const keySep = "\x1f"

// record is one coerced source row.
type record struct {
	dims   map[model.Field]string
	values []float64
}

// Dataset is one side's table with metrics coerced and dimensions
// normalized, ready to be rolled up at any granularity.
type Dataset struct {
	Side    model.Side
	Metrics []model.Field
	Quality model.DataQuality

	dims    map[model.Field]bool
	records []record
}

// Prepare coerces every mapped column of table once. Required metrics must
// be mapped on this side.
func Prepare(ctx context.Context, table model.Table, m model.FieldMapping, side model.Side) (*Dataset, error) {
	for _, f := range model.RequiredFields {
		if !m.Mapped(f, side) {
			return nil, &model.MappingIncompleteError{Field: f, Sides: []model.Side{side}}
		}
	}

	ds := &Dataset{
		Side:    side,
		dims:    make(map[model.Field]bool),
		records: make([]record, 0, len(table.Rows)),
		Quality: model.DataQuality{SourceRows: len(table.Rows), Unparseable: map[model.Field]int{}},
	}
	var metricCols []string
	for _, f := range model.Metrics {
		if col, ok := m.Column(f, side); ok {
			ds.Metrics = append(ds.Metrics, f)
			metricCols = append(metricCols, col)
		}
	}
	dimCols := make(map[model.Field]string)
	var projection []string
	for _, f := range model.Dimensions {
		if col, ok := m.Column(f, side); ok {
			ds.dims[f] = true
			dimCols[f] = col
			projection = append(projection, col)
		}
	}
	projection = append(projection, metricCols...)

	seen := make(map[string]struct{}, len(table.Rows))
	for i, row := range table.Rows {
		if i%checkEvery == 0 && ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "aggregate: prepare cancelled")
		}

		rec := record{
			dims:   make(map[model.Field]string, len(dimCols)),
			values: make([]float64, len(metricCols)),
		}
		for f, col := range dimCols {
			rec.dims[f] = NormalizeDimension(f, row[col])
		}
		for j, col := range metricCols {
			v, ok := ParseNumber(row[col])
			if !ok {
				ds.Quality.Unparseable[ds.Metrics[j]]++
			}
			rec.values[j] = v
		}
		ds.records = append(ds.records, rec)

		raw := make([]string, len(projection))
		for j, col := range projection {
			raw[j] = row[col]
		}
		key := strings.Join(raw, keySep)
		if _, dup := seen[key]; dup {
			ds.Quality.ExactDuplicates++
		} else {
			seen[key] = struct{}{}
		}
	}
	if len(ds.Quality.Unparseable) == 0 {
		ds.Quality.Unparseable = nil
	}

	zap.L().Debug("aggregate: dataset prepared",
		zap.String("side", string(side)),
		zap.Int("rows", len(ds.records)),
		zap.Int("unparseable", ds.Quality.UnparseableTotal()),
		zap.Int("exact_duplicates", ds.Quality.ExactDuplicates),
	)
	return ds, nil
}

// Supports reports whether every dimension of g is mapped on this side.
func (ds *Dataset) Supports(g Granularity) bool {
	for _, d := range g.Dimensions {
		if !ds.dims[d] {
			return false
		}
	}
	return true
}

// Rollup sums metrics per group key. Rows come back sorted by key, unique
// per key, each carrying the number of source rows folded in.
func (ds *Dataset) Rollup(ctx context.Context, g Granularity) ([]model.AggregateRow, error) {
	if !ds.Supports(g) {
		return nil, ErrGranularityUnavailable
	}

	type acc struct {
		key    model.GroupKey
		values []float64
		count  int
	}
	groups := make(map[string]*acc)
	for i, rec := range ds.records {
		if i%checkEvery == 0 && ctx.Err() != nil {
			return nil, eris.Wrapf(ctx.Err(), "aggregate: rollup %s cancelled", g.Name)
		}
		key := make(model.GroupKey, len(g.Dimensions))
		for j, d := range g.Dimensions {
			key[j] = rec.dims[d]
		}
		id := strings.Join(key, keySep)
		a, ok := groups[id]
		if !ok {
			a = &acc{key: key, values: make([]float64, len(ds.Metrics))}
			groups[id] = a
		}
		for j, v := range rec.values {
			a.values[j] += v
		}
		a.count++
	}

	out := make([]model.AggregateRow, 0, len(groups))
	for _, a := range groups {
		metrics := make(map[model.Field]float64, len(ds.Metrics))
		for j, f := range ds.Metrics {
			metrics[f] = a.values[j]
		}
		out = append(out, model.AggregateRow{GroupKey: a.key, MetricValues: metrics, RowCount: a.count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GroupKey.Less(out[j].GroupKey) })
	return out, nil
}

// Aggregate prepares table and rolls it up at a single granularity.
func Aggregate(ctx context.Context, table model.Table, m model.FieldMapping, side model.Side, g Granularity) ([]model.AggregateRow, error) {
	ds, err := Prepare(ctx, table, m, side)
	if err != nil {
		return nil, err
	}
	return ds.Rollup(ctx, g)
}
