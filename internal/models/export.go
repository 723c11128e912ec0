package models

import "strings"

// ExportFormat enumerates supported grade sheet formats.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatXLSX ExportFormat = "xlsx"
)

// ParseExportFormat normalises a user supplied format. Empty defaults to CSV.
func ParseExportFormat(raw string) (ExportFormat, bool) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return ExportFormatCSV, true
	case ExportFormatCSV, ExportFormatPDF, ExportFormatXLSX:
		return f, true
	default:
		return f, false
	}
}

// ContentType returns the MIME type served for the format.
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportFormatPDF:
		return "application/pdf"
	case ExportFormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}
