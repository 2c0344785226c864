package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transit-mediation/mediation-api/internal/middleware"
	"github.com/transit-mediation/mediation-api/internal/models"
	"github.com/transit-mediation/mediation-api/internal/service"
	appErrors "github.com/transit-mediation/mediation-api/pkg/errors"
)

type interventionServiceMock struct {
	createResp   *models.Intervention
	createErr    error
	listResp     []models.Intervention
	listErr      error
	adjustResp   *models.Intervention
	adjustErr    error
	resetRemoved int64

	lastOperator string
	lastCounter  string
	lastDelta    int
	lastDate     string
}

func (m *interventionServiceMock) Create(ctx context.Context, operatorID string, req service.CreateInterventionRequest) (*models.Intervention, error) {
	m.lastOperator = operatorID
	return m.createResp, m.createErr
}

func (m *interventionServiceMock) ListForDay(ctx context.Context, operatorID string, date string) ([]models.Intervention, error) {
	m.lastOperator = operatorID
	m.lastDate = date
	return m.listResp, m.listErr
}

func (m *interventionServiceMock) Update(ctx context.Context, operatorID, id string, req service.UpdateInterventionRequest) (*models.Intervention, error) {
	m.lastOperator = operatorID
	return m.createResp, m.createErr
}

func (m *interventionServiceMock) AdjustCounter(ctx context.Context, operatorID, id, counterKey string, delta int) (*models.Intervention, error) {
	m.lastOperator = operatorID
	m.lastCounter = counterKey
	m.lastDelta = delta
	return m.adjustResp, m.adjustErr
}

func (m *interventionServiceMock) Delete(ctx context.Context, operatorID, id string) error {
	m.lastOperator = operatorID
	return nil
}

func (m *interventionServiceMock) ResetDay(ctx context.Context, operatorID string, date string) (int64, error) {
	m.lastOperator = operatorID
	m.lastDate = date
	return m.resetRemoved, nil
}

func authedContext(t *testing.T, w *httptest.ResponseRecorder, method, target string, body []byte) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "op-1", Role: models.RoleAgent})
	return c
}

func TestInterventionHandlerCreate(t *testing.T) {
	mockSvc := &interventionServiceMock{
		createResp: &models.Intervention{ID: "i1", UserID: "op-1", Line: models.LineA},
	}
	handler := NewInterventionHandler(mockSvc)

	w := httptest.NewRecorder()
	c := authedContext(t, w, http.MethodPost, "/interventions", []byte(`{"line":"A","vehicle_number":"1234"}`))

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "op-1", mockSvc.lastOperator)
}

func TestInterventionHandlerCreateRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewInterventionHandler(&interventionServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/interventions", bytes.NewBufferString(`{}`))
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInterventionHandlerCreateInvalidBody(t *testing.T) {
	handler := NewInterventionHandler(&interventionServiceMock{})

	w := httptest.NewRecorder()
	c := authedContext(t, w, http.MethodPost, "/interventions", []byte(`{"line":`))

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInterventionHandlerListPassesDate(t *testing.T) {
	mockSvc := &interventionServiceMock{listResp: []models.Intervention{}}
	handler := NewInterventionHandler(mockSvc)

	w := httptest.NewRecorder()
	c := authedContext(t, w, http.MethodGet, "/interventions?date=2025-06-02", nil)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2025-06-02", mockSvc.lastDate)
}

func TestInterventionHandlerAdjustCounter(t *testing.T) {
	mockSvc := &interventionServiceMock{
		adjustResp: &models.Intervention{ID: "i1"},
	}
	handler := NewInterventionHandler(mockSvc)

	w := httptest.NewRecorder()
	c := authedContext(t, w, http.MethodPost, "/interventions/i1/counters/incivility?delta=-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "i1"}, {Key: "counter", Value: "incivility"}}

	handler.AdjustCounter(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "incivility", mockSvc.lastCounter)
	assert.Equal(t, -1, mockSvc.lastDelta)
}

func TestInterventionHandlerAdjustCounterBadDelta(t *testing.T) {
	handler := NewInterventionHandler(&interventionServiceMock{})

	w := httptest.NewRecorder()
	c := authedContext(t, w, http.MethodPost, "/interventions/i1/counters/help?delta=two", nil)
	c.Params = gin.Params{{Key: "id", Value: "i1"}, {Key: "counter", Value: "help"}}

	handler.AdjustCounter(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInterventionHandlerServiceErrorPropagates(t *testing.T) {
	mockSvc := &interventionServiceMock{
		createErr: appErrors.Clone(appErrors.ErrValidation, "invalid payload"),
	}
	handler := NewInterventionHandler(mockSvc)

	w := httptest.NewRecorder()
	c := authedContext(t, w, http.MethodPost, "/interventions", []byte(`{"line":"A","vehicle_number":"1"}`))

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInterventionHandlerResetDay(t *testing.T) {
	mockSvc := &interventionServiceMock{resetRemoved: 4}
	handler := NewInterventionHandler(mockSvc)

	w := httptest.NewRecorder()
	c := authedContext(t, w, http.MethodDelete, "/interventions?date=2025-06-02", nil)

	handler.ResetDay(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"removed":4`)
}
