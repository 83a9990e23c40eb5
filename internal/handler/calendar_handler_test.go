package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/internal/service"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
)

type calendarServiceMock struct {
	created  service.CreateCalendarRequest
	listReq  service.CalendarListRequest
	getErr   error
	createFn func(req service.CreateCalendarRequest) (*models.Calendar, error)
}

func (m *calendarServiceMock) List(ctx context.Context, req service.CalendarListRequest) ([]models.Calendar, *models.Pagination, error) {
	m.listReq = req
	return []models.Calendar{{ID: "cal-1"}}, &models.Pagination{Page: 1, PageSize: 50, TotalCount: 1}, nil
}

func (m *calendarServiceMock) Get(ctx context.Context, id string) (*models.Calendar, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &models.Calendar{ID: id}, nil
}

func (m *calendarServiceMock) Create(ctx context.Context, req service.CreateCalendarRequest) (*models.Calendar, error) {
	m.created = req
	if m.createFn != nil {
		return m.createFn(req)
	}
	return &models.Calendar{ID: "cal-new", AgentID: req.AgentID, Name: req.Name}, nil
}

func (m *calendarServiceMock) Update(ctx context.Context, id string, req service.UpdateCalendarRequest) (*models.Calendar, error) {
	return &models.Calendar{ID: id, Name: req.Name}, nil
}

func newCalendarRouter(svc calendarService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewCalendarHandler(svc)
	r := gin.New()
	r.GET("/calendars", h.List)
	r.POST("/calendars", h.Create)
	r.GET("/calendars/:calendarId", h.Get)
	r.PUT("/calendars/:calendarId", h.Update)
	return r
}

func TestCalendarHandlerCreate(t *testing.T) {
	svc := &calendarServiceMock{}
	r := newCalendarRouter(svc)

	w := do(r, http.MethodPost, "/calendars", `{"agent_id":"agent-1","name":"Showings"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "agent-1", svc.created.AgentID)

	w = do(r, http.MethodPost, "/calendars", `{"agent_id":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCalendarHandlerCreateValidationError(t *testing.T) {
	svc := &calendarServiceMock{createFn: func(service.CreateCalendarRequest) (*models.Calendar, error) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid payload")
	}}
	w := do(newCalendarRouter(svc), http.MethodPost, "/calendars", `{"name":"x"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCalendarHandlerListAndGet(t *testing.T) {
	svc := &calendarServiceMock{}
	r := newCalendarRouter(svc)

	w := do(r, http.MethodGet, "/calendars?agent_id=agent-1&page=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "agent-1", svc.listReq.AgentID)
	assert.Equal(t, 2, svc.listReq.Page)
	assert.NotNil(t, decode(t, w)["pagination"])

	svc.getErr = appErrors.Clone(appErrors.ErrNotFound, "calendar not found")
	w = do(r, http.MethodGet, "/calendars/nope", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCalendarHandlerUpdate(t *testing.T) {
	w := do(newCalendarRouter(&calendarServiceMock{}), http.MethodPut, "/calendars/cal-1", `{"name":"Renamed"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Renamed", decode(t, w)["data"].(map[string]interface{})["name"])
}
