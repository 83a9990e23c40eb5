package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/internal/service"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
)

type appointmentServiceMock struct {
	scheduleReq   service.ScheduleRequest
	scheduleRes   *models.ScheduleResult
	scheduleErr   error
	listQuery     service.ListAppointmentsQuery
	slotQuery     service.SlotQuery
	dayQuery      service.DayRangeQuery
	report        *models.DayReport
	batchUpdates  []service.BatchUpdate
	availability  *models.Availability
	availStart    time.Time
	getErr        error
	rescheduleReq service.RescheduleRequest
}

func (m *appointmentServiceMock) CheckAvailability(ctx context.Context, calendarID string, start, end time.Time) (*models.Availability, error) {
	m.availStart = start
	return m.availability, nil
}

func (m *appointmentServiceMock) Schedule(ctx context.Context, calendarID string, req service.ScheduleRequest) (*models.ScheduleResult, error) {
	m.scheduleReq = req
	return m.scheduleRes, m.scheduleErr
}

func (m *appointmentServiceMock) Reschedule(ctx context.Context, calendarID, appointmentID string, req service.RescheduleRequest) (*models.ScheduleResult, error) {
	m.rescheduleReq = req
	return models.NewScheduleResult(), nil
}

func (m *appointmentServiceMock) Cancel(ctx context.Context, calendarID, appointmentID string) (*models.CancelResult, error) {
	return &models.CancelResult{Cancelled: true}, nil
}

func (m *appointmentServiceMock) Get(ctx context.Context, calendarID, appointmentID string) (*models.Appointment, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &models.Appointment{ID: appointmentID, CalendarID: calendarID}, nil
}

func (m *appointmentServiceMock) List(ctx context.Context, calendarID string, query service.ListAppointmentsQuery) ([]models.Appointment, error) {
	m.listQuery = query
	return []models.Appointment{}, nil
}

func (m *appointmentServiceMock) FindSlots(ctx context.Context, calendarID string, query service.SlotQuery) ([]models.Slot, error) {
	m.slotQuery = query
	return []models.Slot{}, nil
}

func (m *appointmentServiceMock) AnalyzeDays(ctx context.Context, calendarID string, query service.DayRangeQuery) (*models.DayReport, error) {
	m.dayQuery = query
	return m.report, nil
}

func (m *appointmentServiceMock) ApplyBatch(ctx context.Context, calendarID string, updates []service.BatchUpdate) (*models.BatchResult, error) {
	m.batchUpdates = updates
	return &models.BatchResult{Updated: []models.Appointment{}, Conflicts: []models.BatchConflict{}}, nil
}

func newAppointmentRouter(svc appointmentService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAppointmentHandler(svc)
	r := gin.New()
	g := r.Group("/calendars/:calendarId")
	g.GET("/availability", h.Availability)
	g.GET("/appointments", h.List)
	g.POST("/appointments", h.Schedule)
	g.POST("/appointments/batch", h.Batch)
	g.GET("/appointments/:id", h.Get)
	g.POST("/appointments/:id/reschedule", h.Reschedule)
	g.POST("/slots/search", h.SearchSlots)
	g.GET("/days", h.Days)
	return r
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req, _ = http.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestAppointmentHandlerScheduleNormalizesStart(t *testing.T) {
	res := models.NewScheduleResult()
	res.Status = models.ScheduleStatusScheduled
	svc := &appointmentServiceMock{scheduleRes: res}
	r := newAppointmentRouter(svc)

	w := do(r, http.MethodPost, "/calendars/cal-1/appointments", `{"title":"Viewing","start":"2025-03-02T16:00:00+02:00","duration_minutes":60,"priority":3}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, time.Date(2025, 3, 2, 14, 0, 0, 0, time.UTC), svc.scheduleReq.Start)
	assert.Equal(t, time.Hour, svc.scheduleReq.Duration)
	assert.Nil(t, decode(t, w)["meta"], "explicit offset needs no zone assumption")
}

func TestAppointmentHandlerScheduleReportsAssumedZone(t *testing.T) {
	res := models.NewScheduleResult()
	svc := &appointmentServiceMock{scheduleRes: res}
	r := newAppointmentRouter(svc)

	w := do(r, http.MethodPost, "/calendars/cal-1/appointments", `{"title":"Viewing","start":"2025-03-02 14:00","duration_minutes":30,"priority":3}`)

	require.Equal(t, http.StatusCreated, w.Code)
	meta := decode(t, w)["meta"].(map[string]interface{})
	assert.Equal(t, []interface{}{"start"}, meta["zone_assumed"])
}

func TestAppointmentHandlerScheduleRejectedKeepsResult(t *testing.T) {
	svc := &appointmentServiceMock{
		scheduleRes: models.RejectedResult("title is required"),
		scheduleErr: appErrors.Clone(appErrors.ErrInvalidAppointment, "invalid appointment"),
	}
	r := newAppointmentRouter(svc)

	w := do(r, http.MethodPost, "/calendars/cal-1/appointments", `{"title":"","start":"2025-03-02T14:00:00Z","duration_minutes":30,"priority":3}`)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode(t, w)
	assert.Equal(t, "rejected", body["data"].(map[string]interface{})["status"])
	assert.Equal(t, appErrors.ErrInvalidAppointment.Code, body["error"].(map[string]interface{})["code"])
}

func TestAppointmentHandlerScheduleBadTime(t *testing.T) {
	r := newAppointmentRouter(&appointmentServiceMock{})

	w := do(r, http.MethodPost, "/calendars/cal-1/appointments", `{"title":"x","start":"next tuesday","duration_minutes":30,"priority":3}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrInvalidTime.Code, decode(t, w)["error"].(map[string]interface{})["code"])
}

func TestAppointmentHandlerAvailabilityRequiresBounds(t *testing.T) {
	svc := &appointmentServiceMock{availability: &models.Availability{Available: true, Conflicts: []models.Appointment{}}}
	r := newAppointmentRouter(svc)

	w := do(r, http.MethodGet, "/calendars/cal-1/availability?start=2025-03-02T10:00:00Z", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/calendars/cal-1/availability?start=2025-03-02T10:00:00Z&end=2025-03-02T11:00:00Z", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC), svc.availStart)
}

func TestAppointmentHandlerListParsesFilters(t *testing.T) {
	svc := &appointmentServiceMock{}
	r := newAppointmentRouter(svc)

	w := do(r, http.MethodGet, "/calendars/cal-1/appointments?title=viewing&priority=2&type=client_meeting", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "viewing", svc.listQuery.TitleFilter)
	require.NotNil(t, svc.listQuery.Priority)
	assert.Equal(t, 2, *svc.listQuery.Priority)
	assert.True(t, svc.listQuery.Start.IsZero())

	w = do(r, http.MethodGet, "/calendars/cal-1/appointments?priority=high", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppointmentHandlerGetNotFound(t *testing.T) {
	r := newAppointmentRouter(&appointmentServiceMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "appointment not found")})
	w := do(r, http.MethodGet, "/calendars/cal-1/appointments/missing", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAppointmentHandlerRescheduleKeepsDurationWhenOmitted(t *testing.T) {
	svc := &appointmentServiceMock{}
	r := newAppointmentRouter(svc)
	w := do(r, http.MethodPost, "/calendars/cal-1/appointments/a-1/reschedule", `{"start":"2025-03-03T09:00:00Z"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, svc.rescheduleReq.Duration)
}

func TestAppointmentHandlerBatchConvertsPatches(t *testing.T) {
	svc := &appointmentServiceMock{}
	r := newAppointmentRouter(svc)

	w := do(r, http.MethodPost, "/calendars/cal-1/appointments/batch",
		`{"updates":[{"appointment_id":"a-1","start":"2025-03-02T13:00:00Z","end":"2025-03-02T14:00:00Z"},{"appointment_id":"a-2","status":"Cancelled"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.batchUpdates, 2)
	assert.Equal(t, time.Date(2025, 3, 2, 13, 0, 0, 0, time.UTC), *svc.batchUpdates[0].Patch.Start)
	assert.Equal(t, models.AppointmentStatusCancelled, *svc.batchUpdates[1].Patch.Status)

	w = do(r, http.MethodPost, "/calendars/cal-1/appointments/batch", `{"updates":[{"appointment_id":"a-1"},{"appointment_id":"a-2","status":"tentative"}]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["error"].(map[string]interface{})["details"].(map[string]interface{})["update_index"])
}

func TestAppointmentHandlerSearchSlots(t *testing.T) {
	svc := &appointmentServiceMock{}
	r := newAppointmentRouter(svc)

	w := do(r, http.MethodPost, "/calendars/cal-1/slots/search",
		`{"window_start":"2025-03-02T09:00:00Z","window_end":"2025-03-02T17:00:00Z","duration_minutes":30,"allow_override_below_priority":3,"ranking":"day_openness","working_hours_start":"09:00","working_hours_end":"17:00"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 30*time.Minute, svc.slotQuery.Duration)
	require.NotNil(t, svc.slotQuery.AllowOverrideBelowPriority)
	assert.Equal(t, models.SlotRankingDayOpenness, svc.slotQuery.Ranking)
	require.NotNil(t, svc.slotQuery.WorkingHours)
	assert.Equal(t, 17, svc.slotQuery.WorkingHours.End.Hour)
	assert.Equal(t, []interface{}{}, decode(t, w)["data"])

	w = do(r, http.MethodPost, "/calendars/cal-1/slots/search",
		`{"window_start":"2025-03-02T09:00:00Z","window_end":"2025-03-02T17:00:00Z","duration_minutes":30,"working_hours_start":"09:00"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppointmentHandlerDaysUnderutilized(t *testing.T) {
	svc := &appointmentServiceMock{report: &models.DayReport{
		CalendarID: "cal-1",
		Days: []models.DayUtilization{
			{Date: "2025-03-02", FreeSeconds: 2 * 3600},
			{Date: "2025-03-03", FreeSeconds: 7 * 3600},
		},
	}}
	r := newAppointmentRouter(svc)

	w := do(r, http.MethodGet, "/calendars/cal-1/days?from=2025-03-02&to=2025-03-03&underutilized_free_hours=4", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	under := data["underutilized"].([]interface{})
	require.Len(t, under, 1)
	assert.Equal(t, "2025-03-03", under[0].(map[string]interface{})["date"])
	assert.Nil(t, svc.dayQuery.WorkingHours)

	w = do(r, http.MethodGet, "/calendars/cal-1/days?from=2025-03-02&to=2025-03-03&underutilized_free_hours=-1", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}
