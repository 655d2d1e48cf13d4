package dto

import "github.com/noah-isme/workforce-export-api/internal/models"

// ExportRequest captures the POST /exports and POST /exports/direct payload.
type ExportRequest struct {
	Variant models.ReportVariant  `json:"variant" validate:"required,report_variant"`
	Format  models.ReportFormat   `json:"format" validate:"required,report_format"`
	Filters models.FilterCriteria `json:"filters"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID          string               `json:"id"`
	Variant     models.ReportVariant `json:"variant"`
	Format      models.ReportFormat  `json:"format"`
	Status      models.ReportStatus  `json:"status"`
	Phase       models.ExportPhase   `json:"phase"`
	Progress    int                  `json:"progress"`
	RecordCount int                  `json:"recordCount"`
	ResultURL   *string              `json:"resultUrl,omitempty"`
	Notice      *string              `json:"notice,omitempty"`
	Error       *string              `json:"error,omitempty"`
}

// ExportNoticeResponse is returned by a direct export that found no records.
type ExportNoticeResponse struct {
	Notice string `json:"notice"`
}
