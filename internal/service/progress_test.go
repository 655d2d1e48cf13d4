package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/workforce-export-api/internal/models"
)

func TestPhasePercent(t *testing.T) {
	assert.Equal(t, 0, PhasePercent(models.PhaseInitializing, 0, 0))
	assert.Equal(t, 0, PhasePercent(models.PhaseFetching, 0, 100))
	assert.Equal(t, 35, PhasePercent(models.PhaseFetching, 50, 100))
	assert.Equal(t, 70, PhasePercent(models.PhaseFetching, 100, 100))
	assert.Equal(t, 70, PhasePercent(models.PhaseFetching, 120, 100))
	assert.Equal(t, 85, PhasePercent(models.PhaseProcessing, 1, 1))
	assert.Equal(t, 95, PhasePercent(models.PhaseGenerating, 1, 1))
	assert.Equal(t, 100, PhasePercent(models.PhaseComplete, 0, 0))
}

func TestProgressFuncNilIsNoop(t *testing.T) {
	var f ProgressFunc
	require.NotPanics(t, func() { f.OnProgress(1, 2, models.PhaseFetching) })
	require.NotPanics(t, func() { reporterOrNoop(nil).OnProgress(1, 2, models.PhaseFetching) })
}

type progressWriterStub struct {
	updates []int
	phases  []models.ExportPhase
	err     error
}

func (s *progressWriterStub) UpdateProgress(ctx context.Context, id string, phase models.ExportPhase, progress int) error {
	s.updates = append(s.updates, progress)
	s.phases = append(s.phases, phase)
	return s.err
}

type snapshotStub struct {
	snapshots []models.ProgressSnapshot
	ttl       time.Duration
}

func (s *snapshotStub) SetProgress(ctx context.Context, snapshot models.ProgressSnapshot, ttl time.Duration) error {
	s.snapshots = append(s.snapshots, snapshot)
	s.ttl = ttl
	return nil
}

func TestJobProgressTrackerPersistsChangesOnly(t *testing.T) {
	repo := &progressWriterStub{}
	cache := &snapshotStub{}
	tracker := NewJobProgressTracker(context.Background(), "job-1", repo, cache, time.Minute, nil)

	tracker.OnProgress(0, 0, models.PhaseInitializing)
	tracker.OnProgress(10, 100, models.PhaseFetching)
	tracker.OnProgress(11, 100, models.PhaseFetching)
	tracker.OnProgress(100, 100, models.PhaseFetching)
	tracker.OnProgress(100, 100, models.PhaseProcessing)

	assert.Equal(t, []int{0, 7, 70, 85}, repo.updates)
	assert.Len(t, cache.snapshots, 5)
	assert.Equal(t, time.Minute, cache.ttl)
	last := cache.snapshots[len(cache.snapshots)-1]
	assert.Equal(t, "job-1", last.JobID)
	assert.Equal(t, models.PhaseProcessing, last.Phase)
	assert.Equal(t, 85, last.Percent)
	assert.Equal(t, 85, tracker.Percent())
}

func TestJobProgressTrackerNeverMovesBackward(t *testing.T) {
	repo := &progressWriterStub{}
	tracker := NewJobProgressTracker(context.Background(), "job-1", repo, nil, time.Minute, nil)

	tracker.OnProgress(1, 1, models.PhaseGenerating)
	tracker.OnProgress(5, 10, models.PhaseFetching)

	assert.Equal(t, []int{95}, repo.updates)
	assert.Equal(t, 95, tracker.Percent())
}

func TestJobProgressTrackerToleratesStoreErrors(t *testing.T) {
	repo := &progressWriterStub{err: errors.New("db down")}
	tracker := NewJobProgressTracker(context.Background(), "job-1", repo, nil, time.Minute, nil)
	require.NotPanics(t, func() { tracker.OnProgress(1, 1, models.PhaseComplete) })
	require.Equal(t, 100, tracker.Percent())
}
