package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/workforce-export-api/internal/models"
)

// ProgressReporter receives export lifecycle notifications. Implementations
// must not block for long; callers emit phases in order.
type ProgressReporter interface {
	OnProgress(current, total int, phase models.ExportPhase)
}

// ProgressFunc adapts a plain function to ProgressReporter.
type ProgressFunc func(current, total int, phase models.ExportPhase)

// OnProgress implements ProgressReporter. A nil func is a no-op.
func (f ProgressFunc) OnProgress(current, total int, phase models.ExportPhase) {
	if f != nil {
		f(current, total, phase)
	}
}

func reporterOrNoop(r ProgressReporter) ProgressReporter {
	if r == nil {
		return ProgressFunc(nil)
	}
	return r
}

const (
	fetchingCeiling   = 70
	processingPercent = 85
	generatingPercent = 95
)

// PhasePercent maps a phase and its counts onto the 0-100 progress scale.
func PhasePercent(phase models.ExportPhase, current, total int) int {
	switch phase {
	case models.PhaseInitializing:
		return 0
	case models.PhaseFetching:
		if total <= 0 || current <= 0 {
			return 0
		}
		if current >= total {
			return fetchingCeiling
		}
		return current * fetchingCeiling / total
	case models.PhaseProcessing:
		return processingPercent
	case models.PhaseGenerating:
		return generatingPercent
	case models.PhaseComplete:
		return 100
	default:
		return 0
	}
}

type jobProgressWriter interface {
	UpdateProgress(ctx context.Context, id string, phase models.ExportPhase, progress int) error
}

type progressSnapshotWriter interface {
	SetProgress(ctx context.Context, snapshot models.ProgressSnapshot, ttl time.Duration) error
}

// JobProgressTracker persists progress of a background export. Percent is kept
// monotonic and the database is only touched when the percent changes.
type JobProgressTracker struct {
	ctx    context.Context
	jobID  string
	repo   jobProgressWriter
	cache  progressSnapshotWriter
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	percent int
	phase   models.ExportPhase
}

// NewJobProgressTracker builds a tracker bound to one job. cache may be nil.
func NewJobProgressTracker(ctx context.Context, jobID string, repo jobProgressWriter, cache progressSnapshotWriter, ttl time.Duration, logger *zap.Logger) *JobProgressTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobProgressTracker{
		ctx:     ctx,
		jobID:   jobID,
		repo:    repo,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
		percent: -1,
		phase:   models.PhaseInitializing,
	}
}

// OnProgress implements ProgressReporter.
func (t *JobProgressTracker) OnProgress(current, total int, phase models.ExportPhase) {
	percent := PhasePercent(phase, current, total)

	t.mu.Lock()
	if phase.Rank() < t.phase.Rank() {
		phase = t.phase
	}
	if percent < t.percent {
		percent = t.percent
	}
	changed := percent != t.percent || phase != t.phase
	t.percent = percent
	t.phase = phase
	t.mu.Unlock()

	if t.cache != nil {
		snapshot := models.ProgressSnapshot{
			JobID:     t.jobID,
			Status:    models.ReportStatusProcessing,
			Phase:     phase,
			Current:   current,
			Total:     total,
			Percent:   percent,
			UpdatedAt: t.now().UTC(),
		}
		if err := t.cache.SetProgress(t.ctx, snapshot, t.ttl); err != nil {
			t.logger.Warn("cache export progress", zap.String("job_id", t.jobID), zap.Error(err))
		}
	}

	if !changed || t.repo == nil {
		return
	}
	if err := t.repo.UpdateProgress(t.ctx, t.jobID, phase, percent); err != nil {
		t.logger.Warn("persist export progress", zap.String("job_id", t.jobID), zap.Error(err))
	}
}

// Percent returns the last recorded percent, or 0 before any update.
func (t *JobProgressTracker) Percent() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.percent < 0 {
		return 0
	}
	return t.percent
}
