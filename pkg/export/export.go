// Package export renders tabular data as downloadable documents.
package export

import (
	"fmt"
	"strings"
)

// Format identifies an output document type.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat normalises a user-supplied format. An empty value selects CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}

// Dataset defines tabular export content. Rows are keyed by header.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Document is a rendered export.
type Document struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// Renderer dispatches to the CSV and PDF exporters.
type Renderer struct {
	csv *CSVExporter
	pdf *PDFExporter
}

// NewRenderer builds a renderer with both exporters.
func NewRenderer() *Renderer {
	return &Renderer{csv: NewCSVExporter(), pdf: NewPDFExporter()}
}

// Render produces a document named after base with the extension of format.
func (r *Renderer) Render(format Format, data Dataset, base, title string) (*Document, error) {
	var (
		payload []byte
		err     error
	)
	switch format {
	case FormatPDF:
		payload, err = r.pdf.Render(data, title)
	case FormatCSV:
		payload, err = r.csv.Render(data)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return &Document{
		Filename:    fmt.Sprintf("%s.%s", base, format),
		ContentType: format.ContentType(),
		Payload:     payload,
	}, nil
}
