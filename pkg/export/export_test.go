package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Layout: Layout{
			Title:    "Daily Attendance Report",
			Subtitle: "01-03-2024 to 31-03-2024",
			Headers:  []string{"Employee No", "Date", "Late"},
			Widths:   []float64{14, 12, 10},
			Details:  []Field{{Label: "Employee No", Value: "E1"}},
		},
		Rows: [][]string{
			{"E1", "05-03-2024", "00:30:00"},
			{"E1", "06-03-2024", "00:00:00"},
		},
		Summary: []Field{{Label: "Total Late", Value: "00:30"}},
	}
}

func renderCSV(t *testing.T, data Dataset) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	w, err := NewCSVWriter(buf, data.Layout.Headers)
	require.NoError(t, err)
	require.NoError(t, w.WriteRows(data.Rows))
	require.NoError(t, w.Close(data.Summary))
	return buf.Bytes()
}

func renderXLSX(t *testing.T, data Dataset) []byte {
	t.Helper()
	b, err := NewXLSXBuilder(data.Layout)
	require.NoError(t, err)
	require.NoError(t, b.AppendRows(data.Rows))
	out, err := b.Finish(data.Summary)
	require.NoError(t, err)
	return out
}

func TestCSVWriterPrependsBOMAndAppendsSummary(t *testing.T) {
	out := renderCSV(t, sampleDataset())
	require.True(t, bytes.HasPrefix(out, utf8BOM))

	lines := strings.Split(strings.TrimRight(string(out[len(utf8BOM):]), "\n"), "\n")
	assert.Equal(t, []string{
		"Employee No,Date,Late",
		"E1,05-03-2024,00:30:00",
		"E1,06-03-2024,00:00:00",
		"",
		"Summary",
		"Total Late,00:30",
	}, lines)
}

func TestCSVWriterStreamsInChunks(t *testing.T) {
	buf := &bytes.Buffer{}
	w, err := NewCSVWriter(buf, []string{"a", "b"})
	require.NoError(t, err)
	require.NoError(t, w.WriteRows([][]string{{"1", "x,y"}}))
	require.NoError(t, w.WriteRows([][]string{{"2", "z"}}))
	require.NoError(t, w.Close(nil))
	require.Equal(t, 2, w.Rows())
	require.Equal(t, "a,b\n1,\"x,y\"\n2,z\n", buf.String()[len(utf8BOM):])
}

func TestCSVRequiresHeaders(t *testing.T) {
	_, err := NewCSVWriter(&bytes.Buffer{}, nil)
	require.Error(t, err)
}

func TestXLSXBuilderLayout(t *testing.T) {
	out := renderXLSX(t, sampleDataset())

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	title, err := f.GetCellValue(xlsxSheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Daily Attendance Report", title)

	merged, err := f.GetMergeCells(xlsxSheetName)
	require.NoError(t, err)
	require.NotEmpty(t, merged)
	assert.Equal(t, "A1", merged[0].GetStartAxis())
	assert.Equal(t, "C1", merged[0].GetEndAxis())

	rows, err := f.GetRows(xlsxSheetName)
	require.NoError(t, err)

	var headerRow, summaryRow = -1, -1
	for i, row := range rows {
		if len(row) > 0 && row[0] == "Employee No" && len(row) == 3 {
			headerRow = i
		}
		if len(row) > 0 && row[0] == "Summary" {
			summaryRow = i
		}
	}
	require.NotEqual(t, -1, headerRow)
	require.NotEqual(t, -1, summaryRow)
	assert.Equal(t, []string{"E1", "05-03-2024", "00:30:00"}, rows[headerRow+1])
	assert.Greater(t, summaryRow, headerRow+2)
	assert.Equal(t, []string{"Total Late", "00:30"}, rows[summaryRow+1])
}

func TestXLSXBuilderWidensColumns(t *testing.T) {
	b, err := NewXLSXBuilder(Layout{Title: "T", Headers: []string{"Name"}})
	require.NoError(t, err)
	require.NoError(t, b.AppendRows([][]string{{"a much longer employee name"}}))
	assert.Equal(t, float64(len("a much longer employee name")+2), b.widths[0])
	_, err = b.Finish(nil)
	require.NoError(t, err)
}

func TestPDFExporterRenders(t *testing.T) {
	data := sampleDataset()
	data.Banner = "Showing the latest 2 of 5 records"
	for i := 0; i < 80; i++ {
		data.Rows = append(data.Rows, []string{"E2", "07-03-2024", "01:00:00"})
	}
	out, err := NewPDFExporter().Render(data)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestPDFRequiresHeaders(t *testing.T) {
	_, err := NewPDFExporter().Render(Dataset{})
	require.Error(t, err)
}
