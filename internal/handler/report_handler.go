package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/workforce-export-api/internal/dto"
	"github.com/noah-isme/workforce-export-api/internal/models"
	"github.com/noah-isme/workforce-export-api/internal/service"
	appErrors "github.com/noah-isme/workforce-export-api/pkg/errors"
	"github.com/noah-isme/workforce-export-api/pkg/response"
)

type reportService interface {
	CreateJob(ctx context.Context, req dto.ExportRequest, principal models.Principal) (*dto.ExportJobResponse, error)
	ExportDirect(ctx context.Context, req dto.ExportRequest, principal models.Principal) (*service.ExportResult, error)
	GetStatus(ctx context.Context, id string, principal models.Principal) (*dto.ExportStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error)
}

// ReportHandler exposes attendance export endpoints.
type ReportHandler struct {
	reports reportService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports reportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// GenerateReport godoc
// @Summary Queue an attendance export
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body dto.ExportRequest true "Export request"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /exports [post]
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	resp, err := h.reports.CreateJob(c.Request.Context(), req, principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, resp)
}

// DirectExport godoc
// @Summary Run an attendance export and download it
// @Tags Exports
// @Accept json
// @Produce application/octet-stream
// @Param payload body dto.ExportRequest true "Export request"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /exports/direct [post]
func (h *ReportHandler) DirectExport(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	result, err := h.reports.ExportDirect(c.Request.Context(), req, principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Empty || result.Artifact == nil {
		response.JSON(c, http.StatusOK, dto.ExportNoticeResponse{Notice: result.Notice})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Header("Content-Disposition", attachment(result.Artifact.Filename))
	c.Data(http.StatusOK, result.Artifact.ContentType, result.Artifact.Data)
}

// ReportStatus godoc
// @Summary Export job status
// @Tags Exports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /exports/{id} [get]
func (h *ReportHandler) ReportStatus(c *gin.Context) {
	resp, err := h.reports.GetStatus(c.Request.Context(), c.Param("id"), principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// DownloadReport godoc
// @Summary Download a finished export through its signed link
// @Tags Exports
// @Produce application/octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /export/{token} [get]
func (h *ReportHandler) DownloadReport(c *gin.Context) {
	download, err := h.reports.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export file"))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), download.Format.ContentType(), download.File, map[string]string{
		"Content-Disposition": attachment(download.Filename),
	})
}

func attachment(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}
