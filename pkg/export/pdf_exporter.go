package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfMargin     = 10.0
	pdfRowHeight  = 6.0
	pdfHeadHeight = 8.0
)

// PDFExporter renders datasets into a landscape A4 table.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with title, optional banner and details, the
// table body and a trailing summary block.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	layout := data.Layout
	if len(layout.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, 12, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()
	widths := scaleWidths(layout, pageW-2*pdfMargin)

	if layout.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 9, tr(strings.ToUpper(layout.Title)), "", 1, "C", false, 0, "")
	}
	if layout.Subtitle != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 6, tr(layout.Subtitle), "", 1, "C", false, 0, "")
	}
	pdf.Ln(2)

	if data.Banner != "" {
		pdf.SetFont("Arial", "I", 9)
		pdf.SetFillColor(255, 243, 205)
		pdf.CellFormat(0, 7, tr(data.Banner), "1", 1, "L", true, 0, "")
		pdf.Ln(2)
	}

	if len(layout.Details) > 0 {
		for _, detail := range layout.Details {
			pdf.SetFont("Arial", "B", 9)
			pdf.CellFormat(40, 5, tr(detail.Label), "", 0, "", false, 0, "")
			pdf.SetFont("Arial", "", 9)
			pdf.CellFormat(0, 5, tr(detail.Value), "", 1, "", false, 0, "")
		}
		pdf.Ln(2)
	}

	header := func() {
		pdf.SetFont("Arial", "B", 8)
		pdf.SetFillColor(68, 114, 196)
		pdf.SetTextColor(255, 255, 255)
		for i, h := range layout.Headers {
			pdf.CellFormat(widths[i], pdfHeadHeight, tr(fit(pdf, h, widths[i])), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Arial", "", 7.5)
	}
	header()

	bottom := pageH - pdfMargin
	for _, row := range data.Rows {
		if pdf.GetY()+pdfRowHeight > bottom {
			pdf.AddPage()
			header()
		}
		for i := range layout.Headers {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			pdf.CellFormat(widths[i], pdfRowHeight, tr(fit(pdf, value, widths[i])), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(data.Summary) > 0 {
		needed := float64(len(data.Summary)+2) * 6
		if pdf.GetY()+needed > bottom {
			pdf.AddPage()
		}
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 7, "Summary", "", 1, "", false, 0, "")
		for _, field := range data.Summary {
			pdf.SetFont("Arial", "B", 9)
			pdf.CellFormat(60, 6, tr(field.Label), "1", 0, "", false, 0, "")
			pdf.SetFont("Arial", "", 9)
			pdf.CellFormat(30, 6, tr(field.Value), "1", 1, "C", false, 0, "")
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func scaleWidths(layout Layout, available float64) []float64 {
	widths := make([]float64, len(layout.Headers))
	sum := 0.0
	for i := range widths {
		widths[i] = layout.width(i)
		sum += widths[i]
	}
	for i := range widths {
		widths[i] = widths[i] / sum * available
	}
	return widths
}

// fit truncates text so it stays inside a cell of width w.
func fit(pdf *gofpdf.Fpdf, text string, w float64) string {
	limit := w - 2*pdf.GetCellMargin()
	if pdf.GetStringWidth(text) <= limit {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
