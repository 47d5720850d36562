package loader

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/recon-cli/internal/model"
)

// ReadXLSX reads the first sheet of an XLSX workbook as string records.
func ReadXLSX(ctx context.Context, path string) ([][]string, error) {
	name := filepath.Base(path)
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, &model.FileFormatError{File: name, Reason: "malformed XLSX", Err: err}
	}
	if len(f.Sheets) == 0 {
		return nil, &model.FileFormatError{File: name, Reason: "workbook has no sheets"}
	}

	sheet := f.Sheets[0]
	records := make([][]string, 0, len(sheet.Rows))
	for i, row := range sheet.Rows {
		if i%checkEvery == 0 && ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "loader: xlsx cancelled")
		}
		if row == nil {
			records = append(records, nil)
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		records = append(records, cells)
	}
	return records, nil
}
