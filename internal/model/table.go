package model

// Table is the uniform tabular structure handed over by the file loader.
// Rows map a column name to its raw cell value.
type Table struct {
	Name    string              `json:"name"`
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
}

// HasColumn reports whether name is one of the table's columns.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Values returns the raw values of a column in row order.
func (t Table) Values(column string) []string {
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[column]
	}
	return out
}

// ColumnType is the inferred type of a physical column.
type ColumnType string

const (
	ColumnNumeric     ColumnType = "numeric"
	ColumnDate        ColumnType = "date"
	ColumnString      ColumnType = "string"
	ColumnCategorical ColumnType = "categorical"
)

// ColumnDescriptor describes one physical column of an uploaded file.
type ColumnDescriptor struct {
	Name         string     `json:"name"`
	InferredType ColumnType `json:"inferred_type"`
	SampleValues []string   `json:"sample_values"`
}
