package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/workforce-export-api/internal/models"
	appErrors "github.com/noah-isme/workforce-export-api/pkg/errors"
	"github.com/noah-isme/workforce-export-api/pkg/upstream"
)

const defaultBatchSize = 2000

type attendanceSource interface {
	Request(ctx context.Context, path, method string) (*models.AttendancePage, error)
}

// BatchHandler consumes one fetched page. Returning an error aborts the fetch.
type BatchHandler func(batch models.ExportBatch) error

// AttendanceFetcher pages through the attendance list endpoint.
type AttendanceFetcher struct {
	source    attendanceSource
	endpoint  string
	batchSize int
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceFetcher constructs a fetcher. batchSize <= 0 falls back to 2000.
func NewAttendanceFetcher(source attendanceSource, endpoint string, batchSize int, validate *validator.Validate, logger *zap.Logger) *AttendanceFetcher {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(models.Value); ok {
			return v.String()
		}
		return nil
	}, models.Value{})
	return &AttendanceFetcher{
		source:    source,
		endpoint:  endpoint,
		batchSize: batchSize,
		validator: validate,
		logger:    logger,
	}
}

// FetchAll buffers every record matching filters.
func (f *AttendanceFetcher) FetchAll(ctx context.Context, filters models.FilterCriteria, progress ProgressReporter) ([]models.AttendanceRecord, error) {
	records := make([]models.AttendanceRecord, 0)
	_, err := f.ForEachBatch(ctx, filters, progress, func(batch models.ExportBatch) error {
		records = append(records, batch.Records...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ForEachBatch streams pages to onBatch and returns the number of records
// fetched. Fetching stops on an empty page, a short page or hasNext=false.
func (f *AttendanceFetcher) ForEachBatch(ctx context.Context, filters models.FilterCriteria, progress ProgressReporter, onBatch BatchHandler) (int, error) {
	progress = reporterOrNoop(progress)
	params := BuildQueryParams(filters)
	params[paramLimit] = strconv.Itoa(f.batchSize)

	offset := 0
	fetched := 0
	reportedTotal := 0
	first := true

	for {
		if err := ctx.Err(); err != nil {
			return fetched, err
		}

		params[paramOffset] = strconv.Itoa(offset)
		page, err := f.source.Request(ctx, BuildURL(f.endpoint, params), "GET")
		if err != nil {
			return fetched, f.mapFetchError(ctx, err, offset)
		}
		if page == nil {
			page = &models.AttendancePage{}
		}

		if first {
			if page.Total != nil && *page.Total > 0 {
				reportedTotal = *page.Total
			}
			first = false
		}

		count := len(page.Records)
		if count == 0 {
			return fetched, nil
		}
		f.validateRecords(page.Records, offset)

		fetched += count
		total := reportedTotal
		if total <= 0 {
			total = fetched
		}

		hasNext := count >= f.batchSize
		if page.HasNext != nil && !*page.HasNext {
			hasNext = false
		}

		batch := models.ExportBatch{
			Records: page.Records,
			Offset:  offset,
			Limit:   f.batchSize,
			HasNext: hasNext,
			Total:   total,
		}
		if onBatch != nil {
			if err := onBatch(batch); err != nil {
				return fetched, err
			}
		}
		progress.OnProgress(fetched, total, models.PhaseFetching)

		if !hasNext {
			return fetched, nil
		}
		offset += f.batchSize
	}
}

func (f *AttendanceFetcher) mapFetchError(ctx context.Context, err error, offset int) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var reqErr *upstream.RequestError
	if errors.As(err, &reqErr) && reqErr.RequireLogin {
		f.logger.Info("attendance fetch requires login", zap.Int("offset", offset))
		return appErrors.Wrap(err, appErrors.ErrSessionExpired.Code, appErrors.ErrSessionExpired.Status, appErrors.ErrSessionExpired.Message)
	}
	f.logger.Warn("attendance fetch failed", zap.Int("offset", offset), zap.Error(err))
	return appErrors.Wrap(fmt.Errorf("fetch offset %d: %w", offset, err), appErrors.ErrFetchFailed.Code, appErrors.ErrFetchFailed.Status, appErrors.ErrFetchFailed.Message)
}

func (f *AttendanceFetcher) validateRecords(records []models.AttendanceRecord, offset int) {
	for i := range records {
		if err := f.validator.Struct(&records[i]); err != nil {
			f.logger.Warn("attendance record failed validation",
				zap.Int("row", offset+i),
				zap.String("employee_number", records[i].EmployeeNumber.String()),
				zap.Error(err),
			)
		}
	}
}
