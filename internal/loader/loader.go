// Package loader parses uploaded gold and growth extracts (CSV or XLSX) into
// the uniform model.Table handed to the reconciliation core.
package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/model"
)

// Options configures file loading.
type Options struct {
	// MaxHeaderScan is how many leading rows are searched for the header.
	// Ad platform exports often prepend report-title rows. Default 4.
	MaxHeaderScan int
}

// DefaultOptions returns the loader defaults.
func DefaultOptions() Options {
	return Options{MaxHeaderScan: 4}
}

// headerKeywords mark a row as the header row when any cell contains one.
var headerKeywords = []string{
	"campaign", "cost", "spend", "amount", "impr", "click", "reach",
	"day", "date", "purchase", "conversion",
}

// checkEvery is the row interval between context checks.
const checkEvery = 1024

// Load reads the file at path, dispatching on its extension.
func Load(ctx context.Context, path string, opts Options) (model.Table, error) {
	if opts.MaxHeaderScan <= 0 {
		opts.MaxHeaderScan = DefaultOptions().MaxHeaderScan
	}
	name := filepath.Base(path)

	var (
		records [][]string
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".txt":
		records, err = readCSVFile(ctx, path)
	case ".xlsx":
		records, err = ReadXLSX(ctx, path)
	default:
		return model.Table{}, &model.FileFormatError{File: name, Reason: fmt.Sprintf("unsupported format %q (use CSV or XLSX)", ext)}
	}
	if err != nil {
		if model.IsFileFormatError(err) || ctx.Err() != nil {
			return model.Table{}, err
		}
		return model.Table{}, &model.FileFormatError{File: name, Reason: "unreadable", Err: err}
	}

	table, err := Build(ctx, name, records, opts)
	if err != nil {
		return model.Table{}, err
	}
	zap.L().Info("loader: file loaded",
		zap.String("file", name),
		zap.Int("rows", len(table.Rows)),
		zap.Int("columns", len(table.Columns)),
	)
	return table, nil
}

// Build turns raw records into a Table: locates the header row, cleans column
// names, drops unnamed columns and blank rows.
func Build(ctx context.Context, name string, records [][]string, opts Options) (model.Table, error) {
	if opts.MaxHeaderScan <= 0 {
		opts.MaxHeaderScan = DefaultOptions().MaxHeaderScan
	}
	if len(records) == 0 {
		return model.Table{}, &model.FileFormatError{File: name, Reason: "file is empty"}
	}

	hdr := detectHeader(records, opts.MaxHeaderScan)
	header := records[hdr]

	type col struct {
		idx  int
		name string
	}
	var cols []col
	seen := make(map[string]int)
	for i, h := range header {
		clean := cleanHeader(h)
		if clean == "" || strings.HasPrefix(strings.ToLower(clean), "unnamed") {
			continue
		}
		seen[clean]++
		if n := seen[clean]; n > 1 {
			clean = fmt.Sprintf("%s_%d", clean, n)
		}
		cols = append(cols, col{idx: i, name: clean})
	}
	if len(cols) == 0 {
		return model.Table{}, &model.FileFormatError{File: name, Reason: "no usable header row"}
	}

	table := model.Table{Name: name, Columns: make([]string, len(cols))}
	for i, c := range cols {
		table.Columns[i] = c.name
	}

	for n, rec := range records[hdr+1:] {
		if n%checkEvery == 0 && ctx.Err() != nil {
			return model.Table{}, eris.Wrap(ctx.Err(), "loader: build cancelled")
		}
		row := make(map[string]string, len(cols))
		blank := true
		for _, c := range cols {
			var v string
			if c.idx < len(rec) {
				v = strings.TrimSpace(rec[c.idx])
			}
			if v != "" {
				blank = false
			}
			row[c.name] = v
		}
		if blank {
			continue
		}
		table.Rows = append(table.Rows, row)
	}

	if len(table.Rows) == 0 {
		return model.Table{}, &model.FileFormatError{File: name, Reason: "no data rows"}
	}
	return table, nil
}

// detectHeader returns the index of the first row within the scan window
// that looks like a header; row 0 otherwise.
func detectHeader(records [][]string, scan int) int {
	for i := 0; i < len(records) && i < scan; i++ {
		filled := 0
		hit := false
		for _, cell := range records[i] {
			c := strings.ToLower(strings.TrimSpace(cell))
			if c == "" {
				continue
			}
			filled++
			for _, kw := range headerKeywords {
				if strings.Contains(c, kw) {
					hit = true
					break
				}
			}
		}
		if hit && filled >= 2 {
			return i
		}
	}
	return 0
}

func cleanHeader(h string) string {
	h = strings.TrimSpace(h)
	h = strings.ReplaceAll(h, `"`, "")
	return strings.TrimSpace(h)
}
