package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// utf8BOM lets spreadsheet applications detect the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter streams rows into a CSV document. The header is written by the
// constructor; the summary block, if any, goes after the last row.
type CSVWriter struct {
	w    *csv.Writer
	cols int
	rows int
}

// NewCSVWriter writes the byte-order mark and header row to out.
func NewCSVWriter(out io.Writer, headers []string) (*CSVWriter, error) {
	if len(headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	if _, err := out.Write(utf8BOM); err != nil {
		return nil, fmt.Errorf("write csv bom: %w", err)
	}
	w := csv.NewWriter(out)
	if err := w.Write(headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	return &CSVWriter{w: w, cols: len(headers)}, nil
}

// WriteRows appends data rows.
func (c *CSVWriter) WriteRows(rows [][]string) error {
	for _, row := range rows {
		if err := c.w.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
		c.rows++
	}
	c.w.Flush()
	return c.w.Error()
}

// Rows returns the number of data rows written.
func (c *CSVWriter) Rows() int {
	return c.rows
}

// Close writes the summary block after a blank separator and flushes.
func (c *CSVWriter) Close(summary []Field) error {
	if len(summary) > 0 {
		if err := c.w.Write([]string{}); err != nil {
			return fmt.Errorf("write csv separator: %w", err)
		}
		if err := c.w.Write([]string{"Summary"}); err != nil {
			return fmt.Errorf("write csv summary: %w", err)
		}
		for _, field := range summary {
			if err := c.w.Write([]string{field.Label, field.Value}); err != nil {
				return fmt.Errorf("write csv summary: %w", err)
			}
		}
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
