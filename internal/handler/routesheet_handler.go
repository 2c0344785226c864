package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/transit-mediation/mediation-api/internal/models"
	"github.com/transit-mediation/mediation-api/internal/service"
	appErrors "github.com/transit-mediation/mediation-api/pkg/errors"
	"github.com/transit-mediation/mediation-api/pkg/response"
)

type routeSheetService interface {
	Upload(ctx context.Context, uploaderID string, req service.UploadRouteSheetRequest) (*models.RouteSheet, error)
	List(ctx context.Context, category, subcategory string) ([]models.RouteSheet, error)
	Delete(ctx context.Context, id string) error
	DownloadURL(ctx context.Context, id string) (string, time.Time, error)
	Download(ctx context.Context, token string) (*models.RouteSheet, *os.File, error)
	Categories() ([]string, map[string][]string)
}

type uploadObserver interface {
	RecordUpload()
}

// RouteSheetHandler exposes the document catalog endpoints.
type RouteSheetHandler struct {
	service routeSheetService
	metrics uploadObserver
}

// NewRouteSheetHandler constructs the handler.
func NewRouteSheetHandler(service routeSheetService, metrics uploadObserver) *RouteSheetHandler {
	return &RouteSheetHandler{service: service, metrics: metrics}
}

// Upload handles POST /route-sheets (multipart form).
func (h *RouteSheetHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	sheet, err := h.service.Upload(c.Request.Context(), claims.UserID, service.UploadRouteSheetRequest{
		Name:        c.PostForm("name"),
		Category:    c.PostForm("category"),
		Subcategory: c.PostForm("subcategory"),
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		File:        src,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordUpload()
	}
	response.Created(c, sheet)
}

// List handles GET /route-sheets?category=&subcategory=.
func (h *RouteSheetHandler) List(c *gin.Context) {
	sheets, err := h.service.List(c.Request.Context(), strings.TrimSpace(c.Query("category")), strings.TrimSpace(c.Query("subcategory")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheets)
}

// Categories handles GET /route-sheets/categories.
func (h *RouteSheetHandler) Categories(c *gin.Context) {
	categories, subcategories := h.service.Categories()
	response.JSON(c, http.StatusOK, gin.H{
		"categories":    categories,
		"subcategories": subcategories,
	})
}

// DownloadURL handles GET /route-sheets/:id/url.
func (h *RouteSheetHandler) DownloadURL(c *gin.Context) {
	token, expiresAt, err := h.service.DownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt,
	})
}

// Download handles GET /route-sheets/download?token=.
func (h *RouteSheetHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	sheet, file, err := h.service.Download(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat file"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sheet.Name))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), sheet.FileType, file, nil)
}

// Delete handles DELETE /route-sheets/:id.
func (h *RouteSheetHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
