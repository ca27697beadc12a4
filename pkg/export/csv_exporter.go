package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
)

// formulaPrefixes start cells that spreadsheet applications evaluate. Names of people are user
// supplied, so such cells are quoted with a leading apostrophe.
const formulaPrefixes = "=+-@\t\r"

// CSVExporter writes a Dataset as RFC 4180 CSV with a header row.
type CSVExporter struct {
	comma rune
}

// NewCSVExporter builds a comma separated exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{comma: ','}
}

// Render encodes data. Cells absent from a row are left empty.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, errors.New("csv export needs at least one column")
	}

	var out bytes.Buffer
	w := csv.NewWriter(&out)
	w.Comma = e.comma

	records := make([][]string, 0, len(data.Rows)+1)
	records = append(records, data.Headers)
	for _, row := range data.Rows {
		record := make([]string, len(data.Headers))
		for col, header := range data.Headers {
			record[col] = neutralise(row[header])
		}
		records = append(records, record)
	}
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return out.Bytes(), nil
}

func neutralise(cell string) string {
	if cell != "" && strings.ContainsRune(formulaPrefixes, rune(cell[0])) {
		return "'" + cell
	}
	return cell
}
