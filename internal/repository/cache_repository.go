package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/workforce-export-api/internal/models"
	appErrors "github.com/noah-isme/workforce-export-api/pkg/errors"
)

const progressKeyPrefix = "export:progress:"

// CacheObserver receives the outcome of every cache read.
type CacheObserver interface {
	RecordCacheOperation(hit bool, duration time.Duration)
}

// CacheRepository provides JSON helpers around Redis. A nil client turns every
// call into a miss so the service keeps working without Redis.
type CacheRepository struct {
	client   *redis.Client
	observer CacheObserver
	logger   *zap.Logger
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client, observer CacheObserver, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, observer: observer, logger: logger}
}

// Get retrieves and unmarshals the cached value into the provided destination.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	start := time.Now()
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.observe(false, start)
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	r.observe(true, start)

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}

	return nil
}

// Set marshals the provided value and stores it with the given TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}

	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

// Delete removes a single key.
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// SetProgress stores the live progress snapshot of an export job.
func (r *CacheRepository) SetProgress(ctx context.Context, snapshot models.ProgressSnapshot, ttl time.Duration) error {
	return r.Set(ctx, ProgressKey(snapshot.JobID), snapshot, ttl)
}

// GetProgress returns the live snapshot or ErrCacheMiss.
func (r *CacheRepository) GetProgress(ctx context.Context, jobID string) (*models.ProgressSnapshot, error) {
	var snapshot models.ProgressSnapshot
	if err := r.Get(ctx, ProgressKey(jobID), &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// DeleteProgress drops the snapshot once the job is terminal.
func (r *CacheRepository) DeleteProgress(ctx context.Context, jobID string) error {
	return r.Delete(ctx, ProgressKey(jobID))
}

// ProgressKey is the Redis key of a job's progress snapshot.
func ProgressKey(jobID string) string {
	return progressKeyPrefix + jobID
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

func (r *CacheRepository) observe(hit bool, start time.Time) {
	if r.observer == nil {
		return
	}
	r.observer.RecordCacheOperation(hit, time.Since(start))
}
