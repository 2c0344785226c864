package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/transit-mediation/mediation-api/internal/models"
	"github.com/transit-mediation/mediation-api/internal/service"
	appErrors "github.com/transit-mediation/mediation-api/pkg/errors"
	"github.com/transit-mediation/mediation-api/pkg/response"
)

type reportService interface {
	DailySummary(ctx context.Context, operatorID string, date string) (*models.DailySummary, error)
	Export(ctx context.Context, operatorID string, date string, format service.ReportFormat) (*service.ReportResult, error)
	ParseToken(token string) (operatorID, relPath string, expiresAt time.Time, err error)
	Open(relPath string) (*os.File, error)
}

type reportObserver interface {
	RecordReportRendered(format string)
}

// ReportHandler exposes the daily summary and report export endpoints.
type ReportHandler struct {
	service reportService
	metrics reportObserver
}

// NewReportHandler constructs the handler.
func NewReportHandler(service reportService, metrics reportObserver) *ReportHandler {
	return &ReportHandler{service: service, metrics: metrics}
}

// Summary handles GET /reports/summary?date=YYYY-MM-DD.
func (h *ReportHandler) Summary(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	summary, err := h.service.DailySummary(c.Request.Context(), claims.UserID, c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

// Export handles POST /reports/export?date=YYYY-MM-DD&format=html.
func (h *ReportHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	format := service.ReportFormat(c.DefaultQuery("format", string(service.ReportFormatHTML)))
	result, err := h.service.Export(c.Request.Context(), claims.UserID, c.Query("date"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordReportRendered(string(result.Format))
	}
	response.JSON(c, http.StatusOK, gin.H{
		"url":        result.URL,
		"token":      result.Token,
		"format":     result.Format,
		"expires_at": result.ExpiresAt,
	})
}

// Download handles GET /reports/download/:token.
func (h *ReportHandler) Download(c *gin.Context) {
	_, relPath, _, err := h.service.ParseToken(c.Param("token"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token"))
		return
	}
	file, err := h.service.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "report no longer available"))
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat report"))
		return
	}
	filename := path.Base(relPath)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), contentTypeFor(filename), file, nil)
}

func contentTypeFor(filename string) string {
	switch path.Ext(filename) {
	case ".csv":
		return "text/csv"
	case ".pdf":
		return "application/pdf"
	case ".html":
		return "text/html; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
