package loader

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sells-group/recon-cli/internal/model"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

func readCSVFile(ctx context.Context, path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: read %s", path)
	}
	return ReadCSV(ctx, filepath.Base(path), data)
}

// ReadCSV decodes raw CSV bytes and returns every record. Input may be UTF-8
// (with or without BOM), UTF-16 with BOM, or Windows-1252.
func ReadCSV(ctx context.Context, name string, data []byte) ([][]string, error) {
	text, err := Decode(data)
	if err != nil {
		return nil, &model.FileFormatError{File: name, Reason: "undecodable text", Err: err}
	}

	reader := csv.NewReader(bytes.NewReader(text))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var records [][]string
	for {
		if len(records)%checkEvery == 0 && ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "loader: csv cancelled")
		}
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &model.FileFormatError{File: name, Reason: "malformed CSV", Err: err}
		}
		records = append(records, rec)
	}
	return records, nil
}

// Decode normalizes file bytes to UTF-8.
func Decode(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8),
		bytes.HasPrefix(data, bomUTF16LE),
		bytes.HasPrefix(data, bomUTF16BE):
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		return out, err
	case utf8.Valid(data):
		return data, nil
	default:
		return charmap.Windows1252.NewDecoder().Bytes(data)
	}
}
