package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/transit-mediation/mediation-api/internal/models"
	appErrors "github.com/transit-mediation/mediation-api/pkg/errors"
)

type linkRepository interface {
	ListOrdered(ctx context.Context) ([]models.UsefulLink, error)
	GetByID(ctx context.Context, id string) (*models.UsefulLink, error)
	Create(ctx context.Context, link *models.UsefulLink) error
	Update(ctx context.Context, link *models.UsefulLink) error
	Delete(ctx context.Context, id string) error
	SwapOrderIndexes(ctx context.Context, firstID string, firstIndex int, secondID string, secondIndex int) error
}

// LinkService manages the ordered list of support links shown to agents.
type LinkService struct {
	repo      linkRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLinkService constructs the service.
func NewLinkService(repo linkRepository, validate *validator.Validate, logger *zap.Logger) *LinkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkService{repo: repo, validator: validate, logger: logger}
}

// CreateLinkRequest describes the create payload. The link type is derived
// from the URL, so callers never submit it.
type CreateLinkRequest struct {
	Label       string  `json:"label" validate:"required"`
	URL         string  `json:"url" validate:"required"`
	Information *string `json:"information"`
}

// UpdateLinkRequest describes the update payload. A changed URL re-derives
// the type.
type UpdateLinkRequest struct {
	Label       string  `json:"label" validate:"required"`
	URL         string  `json:"url" validate:"required"`
	Information *string `json:"information"`
}

// List returns every link in display order.
func (s *LinkService) List(ctx context.Context) ([]models.UsefulLink, error) {
	links, err := s.repo.ListOrdered(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list links")
	}
	if links == nil {
		links = []models.UsefulLink{}
	}
	return links, nil
}

// Create appends a link at the end of the list.
func (s *LinkService) Create(ctx context.Context, createdBy string, req CreateLinkRequest) (*models.UsefulLink, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	link := &models.UsefulLink{
		Label:       req.Label,
		URL:         req.URL,
		Type:        models.DetectLinkType(req.URL),
		Information: req.Information,
	}
	if createdBy != "" {
		link.CreatedBy = &createdBy
	}
	if err := s.repo.Create(ctx, link); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to create link")
	}
	return link, nil
}

// Update modifies label, target and note of a link.
func (s *LinkService) Update(ctx context.Context, id string, req UpdateLinkRequest) (*models.UsefulLink, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	link, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "link not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load link")
	}

	link.Label = req.Label
	link.URL = req.URL
	link.Type = models.DetectLinkType(req.URL)
	link.Information = req.Information

	if err := s.repo.Update(ctx, link); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "link not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to update link")
	}
	return link, nil
}

// Delete removes a link. Remaining order indices keep their values; order
// is relative, so gaps are fine.
func (s *LinkService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "link not found")
		}
		return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to delete link")
	}
	return nil
}

// Move shifts a link one position up or down by swapping order indices
// with its neighbour. Moving past either end is a silent no-op. The full
// reordered list is returned so clients can redraw from one response.
func (s *LinkService) Move(ctx context.Context, id string, direction models.MoveDirection) ([]models.UsefulLink, error) {
	if !direction.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "direction must be up or down")
	}

	links, err := s.repo.ListOrdered(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list links")
	}

	position := -1
	for i := range links {
		if links[i].ID == id {
			position = i
			break
		}
	}
	if position == -1 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "link not found")
	}

	neighbour := position - 1
	if direction == models.MoveDown {
		neighbour = position + 1
	}
	if neighbour < 0 || neighbour >= len(links) {
		// Already at the boundary, nothing to move.
		return links, nil
	}

	current, other := links[position], links[neighbour]
	if err := s.repo.SwapOrderIndexes(ctx, current.ID, current.OrderIndex, other.ID, other.OrderIndex); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to reorder links")
	}

	reordered, err := s.repo.ListOrdered(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to reload links")
	}
	return reordered, nil
}
