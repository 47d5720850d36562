package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/sells-group/recon-cli/internal/model"
)

// createTestXLSX builds an XLSX file with the given sheets in a temp dir.
func createTestXLSX(t *testing.T, sheets map[string][][]string, order ...string) string {
	t.Helper()

	f := xlsx.NewFile()
	if len(order) == 0 {
		for name := range sheets {
			order = append(order, name)
		}
	}
	for _, name := range order {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, row := range sheets[name] {
			r := sheet.AddRow()
			for _, val := range row {
				r.AddCell().SetString(val)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "test.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoad_CSV(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "gold.csv", []byte("date,campaign_name,spend,impressions,clicks\n"+
		"2024-01-01,Spring,\"1,000.50\",10000,200\n"+
		"2024-01-02, Spring ,900,9000,180\n"))

	table, err := Load(context.Background(), path, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "gold.csv", table.Name)
	assert.Equal(t, []string{"date", "campaign_name", "spend", "impressions", "clicks"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "1,000.50", table.Rows[0]["spend"])
	assert.Equal(t, "Spring", table.Rows[1]["campaign_name"])
}

func TestLoad_CSV_ReportTitleRows(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "growth.csv", []byte("Campaign performance report\n"+
		"\"January 1, 2024 - January 31, 2024\"\n"+
		"Day,Campaign,Cost,Impr.,Clicks\n"+
		"2024-01-01,Spring,1000,10000,200\n"))

	table, err := Load(context.Background(), path, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"Day", "Campaign", "Cost", "Impr.", "Clicks"}, table.Columns)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "1000", table.Rows[0]["Cost"])
}

func TestLoad_CSV_CleansHeaders(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "g.csv", []byte(",Campaign,Cost,Cost,Unnamed: 4, Clicks \n"+
		"0,Spring,10,11,x,5\n"+
		",,,,,\n"+
		"1,Summer,20,21,y,6\n"))

	table, err := Load(context.Background(), path, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"Campaign", "Cost", "Cost_2", "Clicks"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "11", table.Rows[0]["Cost_2"])
	assert.Equal(t, "Summer", table.Rows[1]["Campaign"])
}

func TestLoad_CSV_Encodings(t *testing.T) {
	t.Parallel()

	body := "Campaign,Cost\nCafé,10\n"

	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(body))
	require.NoError(t, err)
	cp1252, err := charmap.Windows1252.NewEncoder().Bytes([]byte(body))
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"utf8", []byte(body)},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, body...)},
		{"utf16 bom", utf16},
		{"windows-1252", cp1252},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := writeFile(t, "enc.csv", tt.data)
			table, err := Load(context.Background(), path, DefaultOptions())
			require.NoError(t, err)
			assert.Equal(t, []string{"Campaign", "Cost"}, table.Columns)
			assert.Equal(t, "Café", table.Rows[0]["Campaign"])
		})
	}
}

func TestLoad_XLSX_FirstSheet(t *testing.T) {
	t.Parallel()

	path := createTestXLSX(t, map[string][][]string{
		"Report": {
			{"Day", "Campaign", "Cost", "Impr.", "Clicks"},
			{"2024-01-01", "Spring", "1000", "10000", "200"},
			{"2024-01-02", "Spring", "900", "9000", "180"},
		},
		"Notes": {
			{"ignored"},
		},
	}, "Report", "Notes")

	table, err := Load(context.Background(), path, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"Day", "Campaign", "Cost", "Impr.", "Clicks"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "900", table.Rows[1]["Cost"])
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		file   string
		data   []byte
		reason string
	}{
		{"unsupported", "data.json", []byte("{}"), "unsupported format"},
		{"empty", "empty.csv", nil, "file is empty"},
		{"header only", "hdr.csv", []byte("Campaign,Cost\n"), "no data rows"},
		{"corrupt xlsx", "bad.xlsx", []byte("not a zip"), "malformed XLSX"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := writeFile(t, tt.file, tt.data)
			_, err := Load(context.Background(), path, DefaultOptions())
			require.Error(t, err)
			assert.True(t, model.IsFileFormatError(err))
			assert.Contains(t, err.Error(), tt.file)
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestLoad_Cancelled(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "g.csv", []byte("Campaign,Cost\nA,1\n"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, path, DefaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, model.IsFileFormatError(err))
}

func TestDetectHeader(t *testing.T) {
	t.Parallel()

	records := [][]string{
		{"Report"},
		{"", ""},
		{"Campaign", "Cost"},
	}
	assert.Equal(t, 2, detectHeader(records, 4))
	assert.Equal(t, 0, detectHeader(records, 2))
	assert.Equal(t, 0, detectHeader([][]string{{"a", "b"}, {"1", "2"}}, 4))
}
