package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/workforce-export-api/internal/dto"
	"github.com/noah-isme/workforce-export-api/internal/middleware"
	"github.com/noah-isme/workforce-export-api/internal/models"
	"github.com/noah-isme/workforce-export-api/internal/service"
	appErrors "github.com/noah-isme/workforce-export-api/pkg/errors"
)

type reportServiceMock struct {
	createResp  *dto.ExportJobResponse
	createErr   error
	direct      *service.ExportResult
	directErr   error
	statusResp  *dto.ExportStatusResponse
	statusErr   error
	download    *service.ReportDownload
	downloadErr error

	lastRequest   dto.ExportRequest
	lastPrincipal models.Principal
}

func (m *reportServiceMock) CreateJob(ctx context.Context, req dto.ExportRequest, principal models.Principal) (*dto.ExportJobResponse, error) {
	m.lastRequest = req
	m.lastPrincipal = principal
	return m.createResp, m.createErr
}

func (m *reportServiceMock) ExportDirect(ctx context.Context, req dto.ExportRequest, principal models.Principal) (*service.ExportResult, error) {
	m.lastRequest = req
	m.lastPrincipal = principal
	return m.direct, m.directErr
}

func (m *reportServiceMock) GetStatus(ctx context.Context, id string, principal models.Principal) (*dto.ExportStatusResponse, error) {
	return m.statusResp, m.statusErr
}

func (m *reportServiceMock) ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error) {
	return m.download, m.downloadErr
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func authenticate(c *gin.Context) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "hr-1", Role: models.RoleHR})
	c.Set(middleware.ContextTokenKey, "bearer-token")
}

func TestReportHandlerGenerateReport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{
		createResp: &dto.ExportJobResponse{ID: "job-1", Status: models.ReportStatusQueued, Progress: 0},
	}
	handler := NewReportHandler(mockSvc)

	payload := []byte(`{"variant":"daily_attendance","format":"xlsx","filters":{"fromDate":"2024-03-01T00:00:00Z","department":"d-9"}}`)
	c, w := newGinContext(http.MethodPost, "/exports", payload)
	authenticate(c)

	handler.GenerateReport(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, models.ReportFormatXLSX, mockSvc.lastRequest.Format)
	assert.Equal(t, "d-9", mockSvc.lastRequest.Filters.DepartmentID)
	require.NotNil(t, mockSvc.lastRequest.Filters.FromDate)
	assert.Equal(t, "bearer-token", mockSvc.lastPrincipal.Token)
	assert.Equal(t, "hr-1", mockSvc.lastPrincipal.Claims.UserID)
}

func TestReportHandlerGenerateReportAcceptsPlainDates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{
		createResp: &dto.ExportJobResponse{ID: "job-2", Status: models.ReportStatusQueued},
	}
	handler := NewReportHandler(mockSvc)

	payload := []byte(`{"variant":"work_hours","format":"csv","filters":{"fromDate":"2024-03-01","toDate":"2024-03-31"}}`)
	c, w := newGinContext(http.MethodPost, "/exports", payload)
	authenticate(c)

	handler.GenerateReport(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.NotNil(t, mockSvc.lastRequest.Filters.FromDate)
	require.NotNil(t, mockSvc.lastRequest.Filters.ToDate)
	assert.Equal(t, "2024-03-01", mockSvc.lastRequest.Filters.FromDate.Format("2006-01-02"))
	assert.Equal(t, "2024-03-31", mockSvc.lastRequest.Filters.ToDate.Format("2006-01-02"))
}

func TestReportHandlerGenerateReportRejectsBadBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&reportServiceMock{})

	c, w := newGinContext(http.MethodPost, "/exports", []byte(`{"variant":`))
	authenticate(c)
	handler.GenerateReport(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestReportHandlerDirectExportStreamsFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{
		direct: &service.ExportResult{
			RecordCount: 1,
			Artifact: &service.ExportArtifact{
				Filename:    "report_all_2024-03-09.csv",
				ContentType: models.ReportFormatCSV.ContentType(),
				Data:        []byte("\xEF\xBB\xBFEmployee No\n"),
				Rows:        1,
			},
		},
	}
	handler := NewReportHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/exports/direct", []byte(`{"variant":"work_hours","format":"csv"}`))
	authenticate(c)
	handler.DirectExport(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="report_all_2024-03-09.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, models.ReportFormatCSV.ContentType(), w.Header().Get("Content-Type"))
	assert.Equal(t, "\xEF\xBB\xBFEmployee No\n", w.Body.String())
}

func TestReportHandlerDirectExportNoData(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{direct: &service.ExportResult{Empty: true, Notice: service.NoDataNotice}}
	handler := NewReportHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/exports/direct", []byte(`{"variant":"work_hours","format":"pdf"}`))
	authenticate(c)
	handler.DirectExport(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Content-Disposition"))
	var body struct {
		Data dto.ExportNoticeResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, service.NoDataNotice, body.Data.Notice)
}

func TestReportHandlerDirectExportSessionExpired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{directErr: appErrors.ErrSessionExpired}
	handler := NewReportHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/exports/direct", []byte(`{"variant":"work_hours","format":"pdf"}`))
	authenticate(c)
	handler.DirectExport(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "SESSION_EXPIRED")
}

func TestReportHandlerReportStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{
		statusResp: &dto.ExportStatusResponse{ID: "job-1", Status: models.ReportStatusFinished, Phase: models.PhaseComplete, Progress: 100},
	}
	handler := NewReportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/exports/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	authenticate(c)

	handler.ReportStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"phase":"complete"`)

	mockSvc.statusErr = appErrors.ErrNotFound
	c, w = newGinContext(http.MethodGet, "/exports/job-2", nil)
	authenticate(c)
	handler.ReportStatus(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportHandlerDownloadReport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	path := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	file, err := os.Open(path)
	require.NoError(t, err)

	mockSvc := &reportServiceMock{
		download: &service.ReportDownload{
			File:      file,
			Filename:  "report.csv",
			Format:    models.ReportFormatCSV,
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}
	handler := NewReportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/export/token", nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}

	handler.DownloadReport(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "data", w.Body.String())
	assert.Equal(t, `attachment; filename="report.csv"`, w.Header().Get("Content-Disposition"))
}

func TestReportHandlerDownloadReportForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&reportServiceMock{downloadErr: appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")})

	c, w := newGinContext(http.MethodGet, "/export/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	handler.DownloadReport(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}
