package export

// Field is a label/value pair rendered outside the table body, such as an
// employee detail or a summary total.
type Field struct {
	Label string
	Value string
}

// Layout describes the fixed parts of a tabular document.
type Layout struct {
	Title    string
	Subtitle string
	Headers  []string
	// Widths are relative column widths; missing entries use the header length.
	Widths  []float64
	Details []Field
}

// Dataset is a fully rendered table ready for a buffered writer.
type Dataset struct {
	Layout  Layout
	Rows    [][]string
	Summary []Field
	// Banner is shown above the table when set.
	Banner string
}

func (l Layout) width(i int) float64 {
	if i < len(l.Widths) && l.Widths[i] > 0 {
		return l.Widths[i]
	}
	if i < len(l.Headers) {
		return float64(len(l.Headers[i]) + 2)
	}
	return 10
}
