package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/workforce-export-api/internal/models"
	appErrors "github.com/noah-isme/workforce-export-api/pkg/errors"
)

var exportJobRowColumns = []string{"id", "variant", "params", "status", "phase", "progress", "record_count", "result_url", "notice", "created_by", "created_at", "finished_at", "error_message"}

func newReportRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestReportRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()

	repo := NewReportRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO export_jobs")).
		WithArgs(sqlmock.AnyArg(), "daily_attendance", sqlmock.AnyArg(), "QUEUED", "initializing", 0, 0, nil, nil, "user-1", sqlmock.AnyArg(), nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.ReportJob{
		Variant:   models.ReportVariantDailyAttendance,
		Params:    models.ReportJobParams{Format: models.ReportFormatCSV, Filters: models.FilterCriteria{EmployeeID: "42"}},
		CreatedBy: "user-1",
	}
	require.NoError(t, repo.Create(context.Background(), job))
	require.NotEmpty(t, job.ID)

	rows := sqlmock.NewRows(exportJobRowColumns).
		AddRow(job.ID, "daily_attendance", `{"format":"csv","filters":{"employee":"42"}}`, "QUEUED", "initializing", 0, 0, nil, nil, "user-1", time.Now(), nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + exportJobColumns + " FROM export_jobs WHERE id = $1")).
		WithArgs(job.ID).
		WillReturnRows(rows)

	fetched, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, job.ID, fetched.ID)
	require.Equal(t, models.ReportFormatCSV, fetched.Params.Format)
	require.Equal(t, "42", fetched.Params.Filters.EmployeeID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM export_jobs WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	now := time.Now()
	status := models.ReportStatusFinished
	phase := models.PhaseComplete
	progress := 100
	count := 42
	result := "/api/v1/exports/download/token"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE export_jobs SET status = $1, phase = $2, progress = $3, record_count = $4, result_url = $5, finished_at = $6 WHERE id = $7")).
		WithArgs(status, phase, progress, count, result, now, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "job-1", UpdateReportJobParams{
		Status:      &status,
		Phase:       &phase,
		Progress:    &progress,
		RecordCount: &count,
		ResultURL:   &result,
		FinishedAt:  &now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpdateWithoutChangesIsNoop(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	require.NoError(t, repo.Update(context.Background(), "job-1", UpdateReportJobParams{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpdateProgress(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	observer := &queryObserverStub{}
	repo := NewReportRepository(db).WithObserver(observer)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE export_jobs SET phase = $1, progress = $2 WHERE id = $3 AND status IN ('QUEUED', 'PROCESSING')")).
		WithArgs(models.PhaseFetching, 35, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateProgress(context.Background(), "job-1", models.PhaseFetching, 35))
	require.NoError(t, mock.ExpectationsWereMet())
	require.Equal(t, []string{"export_jobs.progress"}, observer.labels)
}

type queryObserverStub struct {
	labels []string
}

func (o *queryObserverStub) ObserveDBQuery(label string, duration time.Duration) {
	o.labels = append(o.labels, label)
}

func TestReportRepositoryListPending(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	rows := sqlmock.NewRows(exportJobRowColumns).
		AddRow("job-1", "work_hours", `{"format":"xlsx","filters":{}}`, "QUEUED", "initializing", 0, 0, nil, nil, "user-1", time.Now(), nil, nil).
		AddRow("job-2", "daily_attendance", `{"format":"pdf","filters":{}}`, "PROCESSING", "fetching", 35, 0, nil, nil, "user-2", time.Now(), nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + exportJobColumns + " FROM export_jobs WHERE status IN ('QUEUED', 'PROCESSING') ORDER BY created_at ASC LIMIT $1")).
		WithArgs(20).
		WillReturnRows(rows)

	jobs, err := repo.ListPending(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	require.Equal(t, models.ReportFormatPDF, jobs[1].Params.Format)
	require.Equal(t, models.PhaseFetching, jobs[1].Phase)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryListFinishedBefore(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	rows := sqlmock.NewRows(exportJobRowColumns).
		AddRow("job-1", "daily_attendance", `{"format":"csv","filters":{}}`, "FINISHED", "complete", 100, 12, "/api/v1/exports/download/token", nil, "user-1", time.Now().Add(-48*time.Hour), time.Now().Add(-25*time.Hour), nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + exportJobColumns + " FROM export_jobs WHERE status = 'FINISHED' AND finished_at IS NOT NULL AND finished_at < $1 ORDER BY finished_at ASC LIMIT $2")).
		WithArgs(sqlmock.AnyArg(), 50).
		WillReturnRows(rows)

	jobs, err := repo.ListFinishedBefore(context.Background(), time.Now(), 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, 12, jobs[0].RecordCount)
	require.NoError(t, mock.ExpectationsWereMet())
}
