package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transit-mediation/mediation-api/internal/models"
	"github.com/transit-mediation/mediation-api/internal/service"
	appErrors "github.com/transit-mediation/mediation-api/pkg/errors"
)

type linkServiceMock struct {
	listResp []models.UsefulLink
	moveResp []models.UsefulLink
	moveErr  error

	lastDirection models.MoveDirection
	lastID        string
}

func (m *linkServiceMock) List(ctx context.Context) ([]models.UsefulLink, error) {
	return m.listResp, nil
}

func (m *linkServiceMock) Create(ctx context.Context, createdBy string, req service.CreateLinkRequest) (*models.UsefulLink, error) {
	return &models.UsefulLink{ID: "l1", Label: req.Label, URL: req.URL, Type: models.DetectLinkType(req.URL)}, nil
}

func (m *linkServiceMock) Update(ctx context.Context, id string, req service.UpdateLinkRequest) (*models.UsefulLink, error) {
	return &models.UsefulLink{ID: id, Label: req.Label, URL: req.URL}, nil
}

func (m *linkServiceMock) Delete(ctx context.Context, id string) error {
	m.lastID = id
	return nil
}

func (m *linkServiceMock) Move(ctx context.Context, id string, direction models.MoveDirection) ([]models.UsefulLink, error) {
	m.lastID = id
	m.lastDirection = direction
	return m.moveResp, m.moveErr
}

func TestLinkHandlerList(t *testing.T) {
	mockSvc := &linkServiceMock{listResp: []models.UsefulLink{{ID: "l1"}, {ID: "l2"}}}
	handler := NewLinkHandler(mockSvc)

	w := httptest.NewRecorder()
	c := authedContext(t, w, http.MethodGet, "/links", nil)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"l1"`)
}

func TestLinkHandlerCreate(t *testing.T) {
	handler := NewLinkHandler(&linkServiceMock{})

	w := httptest.NewRecorder()
	c := authedContext(t, w, http.MethodPost, "/links", []byte(`{"label":"Plan","url":"https://files.example/plan.pdf"}`))

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"pdf"`)
}

func TestLinkHandlerMove(t *testing.T) {
	mockSvc := &linkServiceMock{moveResp: []models.UsefulLink{{ID: "l2"}, {ID: "l1"}}}
	handler := NewLinkHandler(mockSvc)

	w := httptest.NewRecorder()
	c := authedContext(t, w, http.MethodPost, "/links/l1/move", []byte(`{"direction":"down"}`))
	c.Params = gin.Params{{Key: "id", Value: "l1"}}

	handler.Move(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.MoveDown, mockSvc.lastDirection)
	assert.Equal(t, "l1", mockSvc.lastID)
}

func TestLinkHandlerMoveUnknownLink(t *testing.T) {
	mockSvc := &linkServiceMock{moveErr: appErrors.Clone(appErrors.ErrNotFound, "link not found")}
	handler := NewLinkHandler(mockSvc)

	w := httptest.NewRecorder()
	c := authedContext(t, w, http.MethodPost, "/links/ghost/move", []byte(`{"direction":"up"}`))
	c.Params = gin.Params{{Key: "id", Value: "ghost"}}

	handler.Move(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}
