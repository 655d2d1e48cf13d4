package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReportVariant names a column layout of the attendance export.
type ReportVariant string

const (
	ReportVariantDailyAttendance    ReportVariant = "daily_attendance"
	ReportVariantEmployeeAttendance ReportVariant = "employee_attendance"
	ReportVariantWorkHours          ReportVariant = "work_hours"
)

// ReportFormat enumerates supported export formats.
type ReportFormat string

const (
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatXLSX ReportFormat = "xlsx"
	ReportFormatPDF  ReportFormat = "pdf"
)

// ContentType returns the MIME type served for the format.
func (f ReportFormat) ContentType() string {
	switch f {
	case ReportFormatCSV:
		return "text/csv; charset=utf-8"
	case ReportFormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ReportFormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// ReportStatus captures background job lifecycle states.
type ReportStatus string

const (
	ReportStatusQueued     ReportStatus = "QUEUED"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusFinished   ReportStatus = "FINISHED"
	ReportStatusNoData     ReportStatus = "NO_DATA"
	ReportStatusFailed     ReportStatus = "FAILED"
)

// Terminal reports whether no further work happens for the status.
func (s ReportStatus) Terminal() bool {
	return s == ReportStatusFinished || s == ReportStatusNoData || s == ReportStatusFailed
}

// ReportJob persisted export job metadata.
type ReportJob struct {
	ID           string          `db:"id" json:"id"`
	Variant      ReportVariant   `db:"variant" json:"variant"`
	Params       ReportJobParams `db:"params" json:"params"`
	Status       ReportStatus    `db:"status" json:"status"`
	Phase        ExportPhase     `db:"phase" json:"phase"`
	Progress     int             `db:"progress" json:"progress"`
	RecordCount  int             `db:"record_count" json:"record_count"`
	ResultURL    *string         `db:"result_url" json:"result_url,omitempty"`
	Notice       *string         `db:"notice" json:"notice,omitempty"`
	CreatedBy    string          `db:"created_by" json:"created_by"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
}

// ReportJobParams stores request-scoped options persisted as JSONB.
type ReportJobParams struct {
	Format  ReportFormat   `json:"format"`
	Filters FilterCriteria `json:"filters"`
}

// Value marshals params to JSON for persistence.
func (p ReportJobParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal report job params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the params struct.
func (p *ReportJobParams) Scan(value interface{}) error {
	if value == nil {
		*p = ReportJobParams{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ReportJobParams", value)
	}
	if len(data) == 0 {
		*p = ReportJobParams{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal report job params: %w", err)
	}
	return nil
}

// ProgressSnapshot is the live view of a running job kept in the cache.
type ProgressSnapshot struct {
	JobID     string       `json:"jobId"`
	Status    ReportStatus `json:"status"`
	Phase     ExportPhase  `json:"phase"`
	Current   int          `json:"current"`
	Total     int          `json:"total"`
	Percent   int          `json:"percent"`
	UpdatedAt time.Time    `json:"updatedAt"`
}
