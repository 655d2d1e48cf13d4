package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/workforce-export-api/internal/models"
	appErrors "github.com/noah-isme/workforce-export-api/pkg/errors"
)

const exportJobColumns = `id, variant, params, status, phase, progress, record_count, result_url, notice, created_by, created_at, finished_at, error_message`

// QueryObserver receives the latency of each statement.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// ReportRepository persists export job metadata.
type ReportRepository struct {
	db       *sqlx.DB
	observer QueryObserver
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// WithObserver reports statement latency to observer.
func (r *ReportRepository) WithObserver(observer QueryObserver) *ReportRepository {
	r.observer = observer
	return r
}

func (r *ReportRepository) observe(label string, start time.Time) {
	if r.observer != nil {
		r.observer.ObserveDBQuery(label, time.Since(start))
	}
}

// Create inserts a new export job row with generated defaults.
func (r *ReportRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ReportStatusQueued
	}
	if job.Phase == "" {
		job.Phase = models.PhaseInitializing
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO export_jobs (` + exportJobColumns + `)
VALUES (:id, :variant, :params, :status, :phase, :progress, :record_count, :result_url, :notice, :created_by, :created_at, :finished_at, :error_message)`
	defer r.observe("export_jobs.create", time.Now())
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// GetByID returns a job row by its identifier.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	const query = `SELECT ` + exportJobColumns + `
FROM export_jobs WHERE id = $1`
	defer r.observe("export_jobs.get", time.Now())
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, fmt.Errorf("get export job: %w", err)
	}
	return &job, nil
}

// UpdateReportJobParams defines the mutable fields.
type UpdateReportJobParams struct {
	Status       *models.ReportStatus
	Phase        *models.ExportPhase
	Progress     *int
	RecordCount  *int
	ResultURL    *string
	Notice       *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update persists the provided changes for a job row.
func (r *ReportRepository) Update(ctx context.Context, id string, params UpdateReportJobParams) error {
	set := make([]string, 0, 8)
	args := make([]interface{}, 0, 9)

	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if params.Status != nil {
		add("status", *params.Status)
	}
	if params.Phase != nil {
		add("phase", *params.Phase)
	}
	if params.Progress != nil {
		add("progress", *params.Progress)
	}
	if params.RecordCount != nil {
		add("record_count", *params.RecordCount)
	}
	if params.ResultURL != nil {
		add("result_url", *params.ResultURL)
	}
	if params.Notice != nil {
		add("notice", *params.Notice)
	}
	if params.ErrorMessage != nil {
		add("error_message", *params.ErrorMessage)
	}
	if params.FinishedAt != nil {
		add("finished_at", *params.FinishedAt)
	}

	if len(set) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE export_jobs SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))

	defer r.observe("export_jobs.update", time.Now())
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update export job: %w", err)
	}
	return nil
}

// UpdateProgress records the phase and percent of a running job. Terminal
// jobs are left untouched.
func (r *ReportRepository) UpdateProgress(ctx context.Context, id string, phase models.ExportPhase, progress int) error {
	const query = `UPDATE export_jobs SET phase = $1, progress = $2
WHERE id = $3 AND status IN ('QUEUED', 'PROCESSING')`
	defer r.observe("export_jobs.progress", time.Now())
	if _, err := r.db.ExecContext(ctx, query, phase, progress, id); err != nil {
		return fmt.Errorf("update export job progress: %w", err)
	}
	return nil
}

// ListPending fetches jobs that never reached a terminal status (used for
// cold start recovery).
func (r *ReportRepository) ListPending(ctx context.Context, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT ` + exportJobColumns + `
FROM export_jobs WHERE status IN ('QUEUED', 'PROCESSING') ORDER BY created_at ASC LIMIT $1`
	defer r.observe("export_jobs.list_pending", time.Now())
	var jobs []models.ReportJob
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("list pending export jobs: %w", err)
	}
	return jobs, nil
}

// ListFinishedBefore retrieves jobs with artifacts that finished before cutoff.
func (r *ReportRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT ` + exportJobColumns + `
FROM export_jobs WHERE status = 'FINISHED' AND finished_at IS NOT NULL AND finished_at < $1 ORDER BY finished_at ASC LIMIT $2`
	defer r.observe("export_jobs.list_finished", time.Now())
	var jobs []models.ReportJob
	if err := r.db.SelectContext(ctx, &jobs, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list finished export jobs: %w", err)
	}
	return jobs, nil
}
