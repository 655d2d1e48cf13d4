package export

import (
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	xlsxSheetName = "Report"
	xlsxMaxWidth  = 60.0
)

// XLSXBuilder lays out a workbook incrementally: title and header first,
// then rows in chunks, then the summary block once the row count is known.
type XLSXBuilder struct {
	file   *excelize.File
	sheet  string
	layout Layout
	row    int
	widths []float64

	bodyStyle    int
	headerStyle  int
	labelStyle   int
	summaryStyle int
}

// NewXLSXBuilder creates a workbook and writes title, details and header.
func NewXLSXBuilder(layout Layout) (*XLSXBuilder, error) {
	if len(layout.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	f := excelize.NewFile()
	b := &XLSXBuilder{file: f, sheet: xlsxSheetName, layout: layout}
	if err := f.SetSheetName(f.GetSheetName(0), b.sheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := b.initStyles(); err != nil {
		_ = f.Close()
		return nil, err
	}
	b.widths = make([]float64, len(layout.Headers))
	for i := range layout.Headers {
		b.widths[i] = layout.width(i)
	}
	if err := b.writePreamble(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return b, nil
}

func (b *XLSXBuilder) initStyles() error {
	border := []excelize.Border{
		{Type: "left", Color: "BFBFBF", Style: 1},
		{Type: "right", Color: "BFBFBF", Style: 1},
		{Type: "top", Color: "BFBFBF", Style: 1},
		{Type: "bottom", Color: "BFBFBF", Style: 1},
	}
	var err error
	if b.headerStyle, err = b.file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    border,
	}); err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if b.labelStyle, err = b.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	}); err != nil {
		return fmt.Errorf("create label style: %w", err)
	}
	if b.bodyStyle, err = b.file.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "center"},
		Border:    border,
	}); err != nil {
		return fmt.Errorf("create body style: %w", err)
	}
	if b.summaryStyle, err = b.file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12},
		Alignment: &excelize.Alignment{Horizontal: "left"},
	}); err != nil {
		return fmt.Errorf("create summary style: %w", err)
	}
	return nil
}

func (b *XLSXBuilder) writePreamble() error {
	lastCol := len(b.layout.Headers)
	titleStyle, err := b.file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("create title style: %w", err)
	}

	b.row = 1
	if err := b.mergedLine(b.layout.Title, lastCol, titleStyle); err != nil {
		return err
	}
	if err := b.file.SetRowHeight(b.sheet, 1, 28); err != nil {
		return fmt.Errorf("set title height: %w", err)
	}
	if b.layout.Subtitle != "" {
		b.row++
		if err := b.mergedLine(b.layout.Subtitle, lastCol, 0); err != nil {
			return err
		}
	}
	b.row++

	for _, detail := range b.layout.Details {
		b.row++
		if err := b.setLabelValue(detail); err != nil {
			return err
		}
	}
	if len(b.layout.Details) > 0 {
		b.row++
	}

	b.row++
	start := cellName(1, b.row)
	if err := b.file.SetSheetRow(b.sheet, start, &b.layout.Headers); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}
	if err := b.file.SetCellStyle(b.sheet, start, cellName(lastCol, b.row), b.headerStyle); err != nil {
		return fmt.Errorf("style xlsx header: %w", err)
	}
	if err := b.file.SetRowHeight(b.sheet, b.row, 22); err != nil {
		return fmt.Errorf("set header height: %w", err)
	}
	return nil
}

func (b *XLSXBuilder) mergedLine(text string, lastCol, style int) error {
	start, end := cellName(1, b.row), cellName(lastCol, b.row)
	if err := b.file.SetCellValue(b.sheet, start, text); err != nil {
		return fmt.Errorf("write xlsx line: %w", err)
	}
	if lastCol > 1 {
		if err := b.file.MergeCell(b.sheet, start, end); err != nil {
			return fmt.Errorf("merge xlsx line: %w", err)
		}
	}
	if style != 0 {
		if err := b.file.SetCellStyle(b.sheet, start, end, style); err != nil {
			return fmt.Errorf("style xlsx line: %w", err)
		}
	}
	return nil
}

func (b *XLSXBuilder) setLabelValue(field Field) error {
	label, value := cellName(1, b.row), cellName(2, b.row)
	if err := b.file.SetCellValue(b.sheet, label, field.Label); err != nil {
		return fmt.Errorf("write xlsx label: %w", err)
	}
	if err := b.file.SetCellStyle(b.sheet, label, label, b.labelStyle); err != nil {
		return fmt.Errorf("style xlsx label: %w", err)
	}
	if err := b.file.SetCellValue(b.sheet, value, field.Value); err != nil {
		return fmt.Errorf("write xlsx value: %w", err)
	}
	return nil
}

// AppendRows writes rows below the current position and tracks column widths.
func (b *XLSXBuilder) AppendRows(rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	first := b.row + 1
	for i := range rows {
		b.row++
		if err := b.file.SetSheetRow(b.sheet, cellName(1, b.row), &rows[i]); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", b.row, err)
		}
		for col, value := range rows[i] {
			if col >= len(b.widths) {
				break
			}
			if w := float64(utf8.RuneCountInString(value) + 2); w > b.widths[col] {
				b.widths[col] = w
			}
		}
	}
	if err := b.file.SetCellStyle(b.sheet, cellName(1, first), cellName(len(b.layout.Headers), b.row), b.bodyStyle); err != nil {
		return fmt.Errorf("style xlsx rows: %w", err)
	}
	return nil
}

// Finish writes the summary block and column widths and returns the workbook
// bytes. The builder cannot be used afterwards.
func (b *XLSXBuilder) Finish(summary []Field) ([]byte, error) {
	defer b.file.Close() //nolint:errcheck

	if len(summary) > 0 {
		b.row += 2
		if err := b.file.SetCellValue(b.sheet, cellName(1, b.row), "Summary"); err != nil {
			return nil, fmt.Errorf("write xlsx summary: %w", err)
		}
		if err := b.file.SetCellStyle(b.sheet, cellName(1, b.row), cellName(1, b.row), b.summaryStyle); err != nil {
			return nil, fmt.Errorf("style xlsx summary: %w", err)
		}
		for _, field := range summary {
			b.row++
			if err := b.setLabelValue(field); err != nil {
				return nil, err
			}
		}
	}

	for i, width := range b.widths {
		if width > xlsxMaxWidth {
			width = xlsxMaxWidth
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("resolve column: %w", err)
		}
		if err := b.file.SetColWidth(b.sheet, col, col, width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	buf, err := b.file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// Discard releases the workbook without rendering it.
func (b *XLSXBuilder) Discard() {
	_ = b.file.Close()
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
