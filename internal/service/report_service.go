package service

import (
	"context"
	"errors"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/workforce-export-api/internal/dto"
	"github.com/noah-isme/workforce-export-api/internal/models"
	"github.com/noah-isme/workforce-export-api/internal/repository"
	appErrors "github.com/noah-isme/workforce-export-api/pkg/errors"
	"github.com/noah-isme/workforce-export-api/pkg/jobs"
	"github.com/noah-isme/workforce-export-api/pkg/logger"
	"github.com/noah-isme/workforce-export-api/pkg/upstream"
)

// ExportJobType labels export jobs on the queue.
const ExportJobType = "attendance_export"

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	UpdateProgress(ctx context.Context, id string, phase models.ExportPhase, progress int) error
	ListPending(ctx context.Context, limit int) ([]models.ReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

type progressStore interface {
	SetProgress(ctx context.Context, snapshot models.ProgressSnapshot, ttl time.Duration) error
	GetProgress(ctx context.Context, jobID string) (*models.ProgressSnapshot, error)
	DeleteProgress(ctx context.Context, jobID string) error
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportRunner interface {
	Export(ctx context.Context, req ExportRequest, progress ProgressReporter) (*ExportResult, error)
	Supports(format models.ReportFormat) bool
}

type artifactStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type downloadSigner interface {
	Generate(jobID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error)
}

// ExportJobPayload rides along with a queued job. The caller's token is kept
// in memory only; recovered jobs fall back to the service token.
type ExportJobPayload struct {
	Token string
}

// ReportService orchestrates export job lifecycle management.
type ReportService struct {
	repo      reportJobStore
	progress  progressStore
	queue     jobDispatcher
	exporter  exportRunner
	storage   artifactStore
	signer    downloadSigner
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ReportServiceConfig
}

// ReportServiceConfig governs queue recovery and cleanup.
type ReportServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// NewReportService constructs the report service.
func NewReportService(repo reportJobStore, progress progressStore, queue jobDispatcher, exporter exportRunner, storage artifactStore, signer downloadSigner, validate *validator.Validate, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	svc := &ReportService{
		repo:      repo,
		progress:  progress,
		queue:     queue,
		exporter:  exporter,
		storage:   storage,
		signer:    signer,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
	svc.validator.RegisterValidation("report_variant", func(fl validator.FieldLevel) bool {
		_, err := LayoutFor(models.ReportVariant(fl.Field().String()))
		return err == nil
	})
	svc.validator.RegisterValidation("report_format", func(fl validator.FieldLevel) bool {
		return svc.exporter.Supports(models.ReportFormat(fl.Field().String()))
	})
	return svc
}

// CreateJob validates request, persists job, and enqueues processing.
func (s *ReportService) CreateJob(ctx context.Context, req dto.ExportRequest, principal models.Principal) (*dto.ExportJobResponse, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	job := &models.ReportJob{
		Variant:   req.Variant,
		Params:    models.ReportJobParams{Format: req.Format, Filters: req.Filters},
		Status:    models.ReportStatusQueued,
		Phase:     models.PhaseInitializing,
		CreatedBy: actorID(principal),
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: ExportJobType, Payload: ExportJobPayload{Token: principal.Token}}); err != nil {
		status := models.ReportStatusFailed
		phase := models.PhaseComplete
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		progress := 100
		if updateErr := s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
			Status:       &status,
			Phase:        &phase,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		}); updateErr != nil {
			s.logger.Sugar().Warnw("failed to mark job failed", "job_id", job.ID, "error", updateErr)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	return &dto.ExportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

// ExportDirect runs an export inline for callers that wait for the file.
func (s *ReportService) ExportDirect(ctx context.Context, req dto.ExportRequest, principal models.Principal) (*ExportResult, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	if principal.Token != "" {
		ctx = upstream.WithToken(ctx, principal.Token)
	}
	return s.exporter.Export(ctx, ExportRequest{Variant: req.Variant, Format: req.Format, Filters: req.Filters}, nil)
}

// GetStatus exposes job metadata to clients. Managers only see their own jobs.
func (s *ReportService) GetStatus(ctx context.Context, id string, principal models.Principal) (*dto.ExportStatusResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if !canSeeAllJobs(principal) && job.CreatedBy != actorID(principal) {
		return nil, appErrors.ErrForbidden
	}
	resp := &dto.ExportStatusResponse{
		ID:          job.ID,
		Variant:     job.Variant,
		Format:      job.Params.Format,
		Status:      job.Status,
		Phase:       job.Phase,
		Progress:    job.Progress,
		RecordCount: job.RecordCount,
		ResultURL:   job.ResultURL,
		Notice:      job.Notice,
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	if !job.Status.Terminal() && s.progress != nil {
		snapshot, err := s.progress.GetProgress(ctx, id)
		switch {
		case err == nil:
			resp.Status = snapshot.Status
			resp.Phase = snapshot.Phase
			resp.Progress = snapshot.Percent
		case !appErrors.Is(err, appErrors.ErrCacheMiss):
			s.logger.Sugar().Warnw("progress snapshot unavailable", "job_id", id, "error", err)
		}
	}
	return resp, nil
}

// ResolveDownload validates token and opens the stored export file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not ready")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ReportDownload{
		File:      file,
		Filename:  path.Base(relPath),
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// RecoverPendingJobs replays unfinished jobs after a process restart.
func (s *ReportService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListPending(ctx, 50)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recover pending export jobs", "error", err)
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: ExportJobType, Payload: ExportJobPayload{}}); err != nil {
			s.logger.Sugar().Warnw("failed to requeue pending job", "job_id", job.ID, "error", err)
		}
	}
	if len(pending) > 0 {
		s.logger.Sugar().Infow("recovered pending export jobs", "count", len(pending))
	}
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *ReportService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	expired, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
	if err != nil {
		s.logger.Sugar().Warnw("cleanup list failed", "error", err)
		return
	}
	for _, job := range expired {
		if job.ResultURL == nil {
			continue
		}
		token := extractToken(*job.ResultURL)
		if token == "" {
			continue
		}
		_, relPath, _, err := s.signer.Parse(token, true)
		if err != nil {
			continue
		}
		if err := s.storage.Delete(relPath); err != nil {
			s.logger.Sugar().Warnw("cleanup delete failed", "job_id", job.ID, "error", err)
		}
	}
	if _, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL); err != nil {
		s.logger.Sugar().Warnw("filesystem cleanup failed", "error", err)
	}
}

func (s *ReportService) validateRequest(req dto.ExportRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export request")
	}
	f := req.Filters
	if f.FromDate != nil && f.ToDate != nil && f.FromDate.After(*f.ToDate) {
		return appErrors.Clone(appErrors.ErrValidation, "fromDate must not be after toDate")
	}
	return nil
}

func actorID(principal models.Principal) string {
	if principal.Claims == nil {
		return ""
	}
	return principal.Claims.UserID
}

func canSeeAllJobs(principal models.Principal) bool {
	if principal.Claims == nil {
		return false
	}
	return principal.Claims.Role == models.RoleAdmin || principal.Claims.Role == models.RoleHR
}

func extractToken(url string) string {
	if url == "" {
		return ""
	}
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

// ExportWorkerConfig tunes the queue worker.
type ExportWorkerConfig struct {
	ProgressTTL time.Duration
	// DownloadPrefix is prepended to signed tokens, e.g. "/api/v1/export".
	DownloadPrefix string
}

// ExportWorker bridges queue jobs to ExportService.
type ExportWorker struct {
	repo     reportJobStore
	progress progressStore
	exporter exportRunner
	storage  artifactStore
	signer   downloadSigner
	cfg      ExportWorkerConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportWorker constructs a worker.
func NewExportWorker(repo reportJobStore, progress progressStore, exporter exportRunner, storage artifactStore, signer downloadSigner, cfg ExportWorkerConfig, logger *zap.Logger) *ExportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProgressTTL <= 0 {
		cfg.ProgressTTL = time.Hour
	}
	return &ExportWorker{
		repo:     repo,
		progress: progress,
		exporter: exporter,
		storage:  storage,
		signer:   signer,
		cfg:      cfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Handle processes a queue job. Retryable failures put the job back to
// QUEUED and return the error so the queue retries it; everything else ends
// the job.
func (w *ExportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			return jobs.Permanent(err)
		}
		return err
	}
	if record.Status.Terminal() {
		return nil
	}
	processing := models.ReportStatusProcessing
	if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{Status: &processing}); err != nil {
		return err
	}

	if payload, ok := job.Payload.(ExportJobPayload); ok && payload.Token != "" {
		ctx = upstream.WithToken(ctx, payload.Token)
	}
	log := logger.ForJob(w.logger, job.ID, string(record.Variant), string(record.Params.Format))
	log.Info("export job started", zap.Int("attempt", job.Attempt))
	tracker := NewJobProgressTracker(ctx, job.ID, w.repo, w.progress, w.cfg.ProgressTTL, log)
	result, err := w.exporter.Export(ctx, ExportRequest{
		Variant: record.Variant,
		Format:  record.Params.Format,
		Filters: record.Params.Filters,
	}, tracker)
	if err != nil {
		// Every export failure is terminal; the user starts a new export.
		log.Warn("export failed", zap.Error(err))
		w.Fail(ctx, job, err)
		return jobs.Permanent(err)
	}

	if result.Empty {
		return w.finish(ctx, job.ID, models.ReportStatusNoData, result, nil)
	}

	relPath := path.Join(job.ID, result.Artifact.Filename)
	if _, err := w.storage.Save(relPath, result.Artifact.Data); err != nil {
		w.Fail(ctx, job, err)
		return jobs.Permanent(err)
	}
	token, _, err := w.signer.Generate(job.ID, relPath)
	if err != nil {
		w.Fail(ctx, job, err)
		return jobs.Permanent(err)
	}
	url := strings.TrimRight(w.cfg.DownloadPrefix, "/") + "/" + token
	return w.finish(ctx, job.ID, models.ReportStatusFinished, result, &url)
}

// Exhausted is the queue failure hook. Permanent failures were already
// recorded by Handle.
func (w *ExportWorker) Exhausted(ctx context.Context, job jobs.Job, err error) {
	if jobs.IsPermanent(err) {
		return
	}
	w.Fail(ctx, job, err)
}

// Fail marks the job terminally failed.
func (w *ExportWorker) Fail(ctx context.Context, job jobs.Job, cause error) {
	ctx = context.WithoutCancel(ctx)
	failed := models.ReportStatusFailed
	phase := models.PhaseComplete
	progress := 100
	now := w.now()
	msg := failureMessage(cause)
	if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:       &failed,
		Phase:        &phase,
		Progress:     &progress,
		ErrorMessage: &msg,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark job failed", "job_id", job.ID, "error", err)
	}
	w.dropProgress(ctx, job.ID)
}

func (w *ExportWorker) finish(ctx context.Context, id string, status models.ReportStatus, result *ExportResult, url *string) error {
	ctx = context.WithoutCancel(ctx)
	phase := models.PhaseComplete
	progress := 100
	count := result.RecordCount
	now := w.now()
	noError := ""
	params := repository.UpdateReportJobParams{
		Status:       &status,
		Phase:        &phase,
		Progress:     &progress,
		RecordCount:  &count,
		ResultURL:    url,
		ErrorMessage: &noError,
		FinishedAt:   &now,
	}
	if result.Notice != "" {
		notice := result.Notice
		params.Notice = &notice
	}
	if err := w.repo.Update(ctx, id, params); err != nil {
		w.logger.Sugar().Warnw("failed to mark job finished", "job_id", id, "status", status, "error", err)
		return err
	}
	w.dropProgress(ctx, id)
	w.logger.Sugar().Infow("export job finished", "job_id", id, "status", status, "records", count)
	return nil
}

func (w *ExportWorker) dropProgress(ctx context.Context, id string) {
	if w.progress == nil {
		return
	}
	if err := w.progress.DeleteProgress(ctx, id); err != nil {
		w.logger.Sugar().Warnw("failed to drop progress snapshot", "job_id", id, "error", err)
	}
}

func failureMessage(err error) string {
	if errors.Is(err, context.Canceled) {
		return "export cancelled"
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
