package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVExporter writes a header line followed by one line per row.
type CSVExporter struct {
	// Comma overrides the field delimiter. Zero means ','.
	Comma rune
}

// NewCSVExporter builds a comma separated exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render encodes the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if err := data.validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if e.Comma != 0 {
		w.Comma = e.Comma
	}
	if err := w.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for i := range data.Rows {
		if err := w.Write(data.Record(i)); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
