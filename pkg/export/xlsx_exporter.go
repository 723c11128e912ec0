package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

var sheetNameReplacer = strings.NewReplacer(":", "-", "\\", "-", "/", "-", "?", "", "*", "", "[", "(", "]", ")")

// XLSXExporter renders datasets into a single-sheet workbook.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render writes headers on the first row followed by one row per record.
func (e *XLSXExporter) Render(data Dataset, sheet string) ([]byte, error) {
	if err := data.validate(); err != nil {
		return nil, err
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	sheet = sheetNameReplacer.Replace(strings.TrimSpace(sheet))
	if sheet == "" {
		sheet = "Sheet1"
	}
	if len(sheet) > 31 {
		sheet = sheet[:31]
	}
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
	}

	for col, header := range data.Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("write header %s: %w", header, err)
		}
	}
	for i := range data.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("row cell: %w", err)
		}
		record := data.Record(i)
		values := make([]interface{}, len(record))
		for col, v := range record {
			values[col] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
