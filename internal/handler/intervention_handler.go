package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/transit-mediation/mediation-api/internal/models"
	"github.com/transit-mediation/mediation-api/internal/service"
	appErrors "github.com/transit-mediation/mediation-api/pkg/errors"
	"github.com/transit-mediation/mediation-api/pkg/response"
)

type interventionService interface {
	Create(ctx context.Context, operatorID string, req service.CreateInterventionRequest) (*models.Intervention, error)
	ListForDay(ctx context.Context, operatorID string, date string) ([]models.Intervention, error)
	Update(ctx context.Context, operatorID, id string, req service.UpdateInterventionRequest) (*models.Intervention, error)
	AdjustCounter(ctx context.Context, operatorID, id, counterKey string, delta int) (*models.Intervention, error)
	Delete(ctx context.Context, operatorID, id string) error
	ResetDay(ctx context.Context, operatorID string, date string) (int64, error)
}

// InterventionHandler exposes the capture endpoints agents use in the field.
type InterventionHandler struct {
	service interventionService
}

// NewInterventionHandler constructs the handler.
func NewInterventionHandler(service interventionService) *InterventionHandler {
	return &InterventionHandler{service: service}
}

// Create handles POST /interventions.
func (h *InterventionHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateInterventionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid intervention payload"))
		return
	}
	record, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// List handles GET /interventions?date=YYYY-MM-DD.
func (h *InterventionHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	records, err := h.service.ListForDay(c.Request.Context(), claims.UserID, c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records)
}

// Update handles PATCH /interventions/:id.
func (h *InterventionHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateInterventionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid intervention payload"))
		return
	}
	record, err := h.service.Update(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// AdjustCounter handles POST /interventions/:id/counters/:counter.
func (h *InterventionHandler) AdjustCounter(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	delta := 1
	if raw := c.Query("delta"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "delta must be an integer"))
			return
		}
		delta = parsed
	}
	record, err := h.service.AdjustCounter(c.Request.Context(), claims.UserID, c.Param("id"), c.Param("counter"), delta)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// Delete handles DELETE /interventions/:id.
func (h *InterventionHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ResetDay handles DELETE /interventions?date=YYYY-MM-DD.
func (h *InterventionHandler) ResetDay(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	removed, err := h.service.ResetDay(c.Request.Context(), claims.UserID, c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"removed": removed})
}
