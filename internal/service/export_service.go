package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/workforce-export-api/internal/models"
	"github.com/noah-isme/workforce-export-api/pkg/export"
)

const (
	exportOutcomeFinished = "finished"
	exportOutcomeNoData   = "no_data"
	exportOutcomeFailed   = "failed"

	// NoDataNotice is shown when the filters match nothing.
	NoDataNotice = "No data found for the selected filters"

	filenameDateLayout = "2006-01-02"
	defaultChunkSize   = 500
	defaultPDFRowCap   = 1000
)

type attendanceFetcher interface {
	FetchAll(ctx context.Context, filters models.FilterCriteria, progress ProgressReporter) ([]models.AttendanceRecord, error)
	ForEachBatch(ctx context.Context, filters models.FilterCriteria, progress ProgressReporter, onBatch BatchHandler) (int, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportSettings tunes the buffered writers.
type ExportSettings struct {
	ExcelChunkSize int
	PDFRowCap      int
	Timezone       string
}

// ExportRequest describes one export run.
type ExportRequest struct {
	Variant models.ReportVariant
	Format  models.ReportFormat
	Filters models.FilterCriteria
}

// ExportArtifact is the generated file.
type ExportArtifact struct {
	Filename    string
	ContentType string
	Data        []byte
	// Rows is the number of table rows rendered, which can be lower than the
	// record count when a format caps its table.
	Rows int
}

// ExportResult is the outcome of a run. Artifact is nil when Empty is set.
type ExportResult struct {
	Empty       bool
	Notice      string
	RecordCount int
	Totals      models.SummaryTotals
	Artifact    *ExportArtifact
}

type formatStrategy func(ctx context.Context, run *exportRun) (*ExportArtifact, error)

// ExportService runs the fetch, format, summarise and render pipeline for one
// report variant and format.
type ExportService struct {
	fetcher    attendanceFetcher
	pdf        datasetRenderer
	formatter  *RowFormatter
	settings   ExportSettings
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
	strategies map[models.ReportFormat]formatStrategy
}

// NewExportService constructs an ExportService. pdf may be nil to use the
// default gofpdf renderer.
func NewExportService(fetcher attendanceFetcher, pdf datasetRenderer, settings ExportSettings, metrics *MetricsService, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if settings.ExcelChunkSize <= 0 {
		settings.ExcelChunkSize = defaultChunkSize
	}
	if settings.PDFRowCap <= 0 {
		settings.PDFRowCap = defaultPDFRowCap
	}
	svc := &ExportService{
		fetcher:   fetcher,
		pdf:       pdf,
		formatter: NewRowFormatter(settings.Timezone),
		settings:  settings,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
	svc.strategies = map[models.ReportFormat]formatStrategy{
		models.ReportFormatCSV:  svc.writeCSV,
		models.ReportFormatXLSX: svc.writeXLSX,
		models.ReportFormatPDF:  svc.writePDF,
	}
	return svc
}

// WithClock overrides the time source used for filenames and subtitles.
func (s *ExportService) WithClock(now func() time.Time) *ExportService {
	if now != nil {
		s.now = now
	}
	return s
}

// Supports reports whether the format has a writer.
func (s *ExportService) Supports(format models.ReportFormat) bool {
	_, ok := s.strategies[format]
	return ok
}

type exportRun struct {
	req      ExportRequest
	layout   ReportLayout
	progress ProgressReporter
	summary  *SummaryAccumulator
	started  time.Time
	fetched  int
	total    int
}

func (r *exportRun) trackFetch(current, total int, phase models.ExportPhase) {
	r.fetched = current
	r.total = total
	r.progress.OnProgress(current, total, phase)
}

// Export runs the pipeline. A run that matches no records returns a result
// with Empty set and no artifact. Every outcome ends with a complete phase.
func (s *ExportService) Export(ctx context.Context, req ExportRequest, progress ProgressReporter) (*ExportResult, error) {
	layout, err := LayoutFor(req.Variant)
	if err != nil {
		return nil, err
	}
	strategy, ok := s.strategies[req.Format]
	if !ok {
		return nil, fmt.Errorf("unsupported format %q", req.Format)
	}

	run := &exportRun{
		req:      req,
		layout:   layout,
		progress: reporterOrNoop(progress),
		summary:  NewSummaryAccumulator(layout.Convention),
		started:  s.now(),
	}
	logger := s.logger.With(zap.String("variant", string(req.Variant)), zap.String("format", string(req.Format)))

	s.metrics.ExportStarted()
	outcome := exportOutcomeFailed
	defer func() {
		run.progress.OnProgress(run.fetched, run.total, models.PhaseComplete)
		s.metrics.ObserveExport(req.Variant, req.Format, outcome, run.fetched, time.Since(run.started))
	}()

	run.progress.OnProgress(0, 0, models.PhaseInitializing)
	artifact, err := strategy(ctx, run)
	if err != nil {
		logger.Warn("export failed", zap.Int("fetched", run.fetched), zap.Error(err))
		return nil, err
	}

	result := &ExportResult{
		RecordCount: run.summary.Count(),
		Totals:      run.summary.Totals(),
	}
	if artifact == nil {
		outcome = exportOutcomeNoData
		result.Empty = true
		result.Notice = NoDataNotice
		logger.Info("export matched no records")
		return result, nil
	}

	outcome = exportOutcomeFinished
	result.Artifact = artifact
	logger.Info("export generated",
		zap.String("filename", artifact.Filename),
		zap.Int("records", result.RecordCount),
		zap.Int("rows", artifact.Rows),
		zap.Int("bytes", len(artifact.Data)),
	)
	return result, nil
}

// writeCSV streams every batch straight into the CSV buffer.
func (s *ExportService) writeCSV(ctx context.Context, run *exportRun) (*ExportArtifact, error) {
	buf := &bytes.Buffer{}
	var writer *export.CSVWriter

	count, err := s.fetcher.ForEachBatch(ctx, run.req.Filters, ProgressFunc(run.trackFetch), func(batch models.ExportBatch) error {
		if writer == nil {
			w, err := export.NewCSVWriter(buf, run.layout.Headers())
			if err != nil {
				return err
			}
			writer = w
		}
		rows := make([][]string, len(batch.Records))
		for i := range batch.Records {
			rows[i] = s.formatter.FormatRow(&batch.Records[i], run.layout.Columns)
			run.summary.Add(&batch.Records[i])
		}
		return writer.WriteRows(rows)
	})
	if err != nil {
		return nil, err
	}
	if count == 0 || writer == nil {
		return nil, nil
	}

	run.progress.OnProgress(count, count, models.PhaseProcessing)
	run.progress.OnProgress(count, count, models.PhaseGenerating)
	if err := writer.Close(summaryBlock(run.summary.Totals())); err != nil {
		return nil, err
	}
	return s.artifact(run, buf.Bytes(), writer.Rows()), nil
}

// writeXLSX buffers all records, then lays rows out chunk by chunk.
func (s *ExportService) writeXLSX(ctx context.Context, run *exportRun) (*ExportArtifact, error) {
	records, err := s.fetchBuffered(ctx, run)
	if err != nil || len(records) == 0 {
		return nil, err
	}

	run.progress.OnProgress(len(records), len(records), models.PhaseGenerating)
	builder, err := export.NewXLSXBuilder(s.documentLayout(run, records))
	if err != nil {
		return nil, err
	}
	chunk := s.settings.ExcelChunkSize
	for start := 0; start < len(records); start += chunk {
		if err := ctx.Err(); err != nil {
			builder.Discard()
			return nil, err
		}
		end := start + chunk
		if end > len(records) {
			end = len(records)
		}
		if err := builder.AppendRows(s.formatRows(records[start:end], run.layout.Columns)); err != nil {
			builder.Discard()
			return nil, err
		}
	}
	data, err := builder.Finish(summaryBlock(run.summary.Totals()))
	if err != nil {
		return nil, err
	}
	return s.artifact(run, data, len(records)), nil
}

// writePDF renders the most recent PDFRowCap records while the summary covers
// the whole dataset.
func (s *ExportService) writePDF(ctx context.Context, run *exportRun) (*ExportArtifact, error) {
	records, err := s.fetchBuffered(ctx, run)
	if err != nil || len(records) == 0 {
		return nil, err
	}

	shown := records
	banner := ""
	if limit := s.settings.PDFRowCap; len(records) > limit {
		shown = records[len(records)-limit:]
		banner = fmt.Sprintf("Showing the latest %d of %d records. Summary totals cover all %d records.", limit, len(records), len(records))
	}

	run.progress.OnProgress(len(records), len(records), models.PhaseGenerating)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.pdf.Render(export.Dataset{
		Layout:  s.documentLayout(run, records),
		Rows:    s.formatRows(shown, run.layout.Columns),
		Summary: summaryBlock(run.summary.Totals()),
		Banner:  banner,
	})
	if err != nil {
		return nil, err
	}
	return s.artifact(run, data, len(shown)), nil
}

func (s *ExportService) fetchBuffered(ctx context.Context, run *exportRun) ([]models.AttendanceRecord, error) {
	records, err := s.fetcher.FetchAll(ctx, run.req.Filters, ProgressFunc(run.trackFetch))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	run.summary.AddAll(records)
	run.progress.OnProgress(len(records), len(records), models.PhaseProcessing)
	return records, nil
}

func (s *ExportService) formatRows(records []models.AttendanceRecord, columns []Column) [][]string {
	rows := make([][]string, len(records))
	for i := range records {
		rows[i] = s.formatter.FormatRow(&records[i], columns)
	}
	return rows
}

func (s *ExportService) documentLayout(run *exportRun, records []models.AttendanceRecord) export.Layout {
	widths := make([]float64, len(run.layout.Columns))
	for i, col := range run.layout.Columns {
		widths[i] = col.Width
	}
	layout := export.Layout{
		Title:    run.layout.Title,
		Subtitle: s.subtitle(run.req.Filters, len(records)),
		Headers:  run.layout.Headers(),
		Widths:   widths,
	}
	if len(run.layout.Details) > 0 && len(records) > 0 {
		first := &records[0]
		for _, col := range run.layout.Details {
			layout.Details = append(layout.Details, export.Field{
				Label: col.Header,
				Value: s.formatter.FormatCell(col.Key, first.Field(col.Key)),
			})
		}
	}
	return layout
}

func (s *ExportService) subtitle(filters models.FilterCriteria, count int) string {
	parts := make([]string, 0, 3)
	if filters.FromDate != nil || filters.ToDate != nil {
		parts = append(parts, fmt.Sprintf("Period: %s to %s", displayDate(filters.FromDate), displayDate(filters.ToDate)))
	}
	parts = append(parts, fmt.Sprintf("Records: %d", count))
	parts = append(parts, "Generated: "+s.now().In(s.formatter.Location).Format("02-01-2006 15:04"))
	return strings.Join(parts, " | ")
}

func displayDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format(cellDateLayout)
}

func (s *ExportService) artifact(run *exportRun, data []byte, rows int) *ExportArtifact {
	return &ExportArtifact{
		Filename:    BuildFilename(run.req.Filters, run.req.Format, s.now()),
		ContentType: run.req.Format.ContentType(),
		Data:        data,
		Rows:        rows,
	}
}

// BuildFilename returns report_<employee_{id}|all>_<yyyy-MM-dd>.<ext>.
func BuildFilename(filters models.FilterCriteria, format models.ReportFormat, now time.Time) string {
	scope := "all"
	if id := sanitizeFilename(strings.TrimSpace(filters.EmployeeID)); id != "" {
		scope = "employee_" + id
	}
	return fmt.Sprintf("report_%s_%s.%s", scope, now.Format(filenameDateLayout), format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return ""
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 64 {
		return result[:64]
	}
	return result
}

func summaryBlock(totals models.SummaryTotals) []export.Field {
	return []export.Field{
		{Label: "Total Late (hh:mm)", Value: totals.TotalLateInHours},
		{Label: "Total Worked (hh:mm)", Value: totals.TotalWorkedInHours},
		{Label: "Total Early Out (hh:mm)", Value: totals.TotalEarlyOutInHours},
		{Label: "Total Missed (hh:mm)", Value: totals.TotalMissedInHours},
		{Label: "Total Extra (hh:mm)", Value: totals.TotalExtraInHours},
		{Label: "Total Absents", Value: totals.TotalAbsents},
	}
}
