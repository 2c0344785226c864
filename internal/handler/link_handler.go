package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/transit-mediation/mediation-api/internal/models"
	"github.com/transit-mediation/mediation-api/internal/service"
	appErrors "github.com/transit-mediation/mediation-api/pkg/errors"
	"github.com/transit-mediation/mediation-api/pkg/response"
)

type linkService interface {
	List(ctx context.Context) ([]models.UsefulLink, error)
	Create(ctx context.Context, createdBy string, req service.CreateLinkRequest) (*models.UsefulLink, error)
	Update(ctx context.Context, id string, req service.UpdateLinkRequest) (*models.UsefulLink, error)
	Delete(ctx context.Context, id string) error
	Move(ctx context.Context, id string, direction models.MoveDirection) ([]models.UsefulLink, error)
}

// LinkHandler exposes the useful-links endpoints.
type LinkHandler struct {
	service linkService
}

// NewLinkHandler constructs the handler.
func NewLinkHandler(service linkService) *LinkHandler {
	return &LinkHandler{service: service}
}

// List handles GET /links.
func (h *LinkHandler) List(c *gin.Context) {
	links, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, links)
}

// Create handles POST /links.
func (h *LinkHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid link payload"))
		return
	}
	link, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// Update handles PUT /links/:id.
func (h *LinkHandler) Update(c *gin.Context) {
	var req service.UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid link payload"))
		return
	}
	link, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link)
}

// Delete handles DELETE /links/:id.
func (h *LinkHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Move handles POST /links/:id/move.
func (h *LinkHandler) Move(c *gin.Context) {
	var req struct {
		Direction string `json:"direction"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid move payload"))
		return
	}
	links, err := h.service.Move(c.Request.Context(), c.Param("id"), models.MoveDirection(req.Direction))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, links)
}
