package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfMargin     = 10.0
	pdfHeaderRow  = 8.0
	pdfBodyRow    = 7.0
	pdfWideColumn = 6
)

// PDFExporter renders a dataset as a single bordered table. Sheets with many columns switch
// to landscape.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render lays out the title, the header row and the body, repeating the header on page breaks.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if err := data.validate(); err != nil {
		return nil, err
	}
	orientation := "P"
	if len(data.Headers) > pdfWideColumn {
		orientation = "L"
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(pdfMargin, 15, pdfMargin)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AliasNbPages("")
	pdf.AddPage()

	pageWidth, _ := pdf.GetPageSize()
	colWidth := (pageWidth - 2*pdfMargin) / float64(len(data.Headers))

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for _, h := range data.Headers {
			pdf.CellFormat(colWidth, pdfHeaderRow, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for i := range data.Rows {
		if pdf.GetY()+pdfBodyRow > pageHeight-bottom-15 {
			pdf.AddPage()
			header()
		}
		for _, value := range data.Record(i) {
			pdf.CellFormat(colWidth, pdfBodyRow, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
