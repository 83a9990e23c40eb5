package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/agenda-api/internal/dto"
	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/internal/service"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
	"github.com/noah-isme/agenda-api/pkg/response"
)

type appointmentService interface {
	CheckAvailability(ctx context.Context, calendarID string, start, end time.Time) (*models.Availability, error)
	Schedule(ctx context.Context, calendarID string, req service.ScheduleRequest) (*models.ScheduleResult, error)
	Reschedule(ctx context.Context, calendarID, appointmentID string, req service.RescheduleRequest) (*models.ScheduleResult, error)
	Cancel(ctx context.Context, calendarID, appointmentID string) (*models.CancelResult, error)
	Get(ctx context.Context, calendarID, appointmentID string) (*models.Appointment, error)
	List(ctx context.Context, calendarID string, query service.ListAppointmentsQuery) ([]models.Appointment, error)
	FindSlots(ctx context.Context, calendarID string, query service.SlotQuery) ([]models.Slot, error)
	AnalyzeDays(ctx context.Context, calendarID string, query service.DayRangeQuery) (*models.DayReport, error)
	ApplyBatch(ctx context.Context, calendarID string, updates []service.BatchUpdate) (*models.BatchResult, error)
}

// AppointmentHandler exposes the scheduling engine over HTTP.
type AppointmentHandler struct {
	service appointmentService
}

// NewAppointmentHandler constructs the handler.
func NewAppointmentHandler(service appointmentService) *AppointmentHandler {
	return &AppointmentHandler{service: service}
}

// Availability godoc
// @Summary Check whether an interval is free
// @Tags Appointments
// @Produce json
// @Param calendarId path string true "Calendar ID"
// @Param start query string true "Interval start"
// @Param end query string true "Interval end"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /calendars/{calendarId}/availability [get]
func (h *AppointmentHandler) Availability(c *gin.Context) {
	times := &dto.TimeReader{}
	start, err := times.Required("start", c.Query("start"))
	if err != nil {
		response.Error(c, err)
		return
	}
	end, err := times.Required("end", c.Query("end"))
	if err != nil {
		response.Error(c, err)
		return
	}
	availability, err := h.service.CheckAvailability(c.Request.Context(), c.Param("calendarId"), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availability, nil, times.Meta())
}

// Schedule godoc
// @Summary Schedule an appointment, resolving conflicts by priority
// @Tags Appointments
// @Accept json
// @Produce json
// @Param calendarId path string true "Calendar ID"
// @Param payload body dto.ScheduleAppointmentRequest true "Appointment"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /calendars/{calendarId}/appointments [post]
func (h *AppointmentHandler) Schedule(c *gin.Context) {
	var body dto.ScheduleAppointmentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid appointment payload"))
		return
	}
	times := &dto.TimeReader{}
	req, err := body.ToService(times)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.Schedule(c.Request.Context(), c.Param("calendarId"), req)
	if err != nil {
		respondWithResult(c, err, result)
		return
	}
	response.JSON(c, http.StatusCreated, result, nil, times.Meta())
}

// Reschedule godoc
// @Summary Move an appointment, resolving conflicts at the new position
// @Tags Appointments
// @Accept json
// @Produce json
// @Param calendarId path string true "Calendar ID"
// @Param id path string true "Appointment ID"
// @Param payload body dto.RescheduleAppointmentRequest true "New start"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /calendars/{calendarId}/appointments/{id}/reschedule [post]
func (h *AppointmentHandler) Reschedule(c *gin.Context) {
	var body dto.RescheduleAppointmentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reschedule payload"))
		return
	}
	times := &dto.TimeReader{}
	req, err := body.ToService(times)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.Reschedule(c.Request.Context(), c.Param("calendarId"), c.Param("id"), req)
	if err != nil {
		respondWithResult(c, err, result)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, times.Meta())
}

// Cancel godoc
// @Summary Cancel an appointment
// @Tags Appointments
// @Produce json
// @Param calendarId path string true "Calendar ID"
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /calendars/{calendarId}/appointments/{id}/cancel [post]
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	result, err := h.service.Cancel(c.Request.Context(), c.Param("calendarId"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Get godoc
// @Summary Get an appointment
// @Tags Appointments
// @Produce json
// @Param calendarId path string true "Calendar ID"
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /calendars/{calendarId}/appointments/{id} [get]
func (h *AppointmentHandler) Get(c *gin.Context) {
	appt, err := h.service.Get(c.Request.Context(), c.Param("calendarId"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// List godoc
// @Summary List confirmed appointments
// @Tags Appointments
// @Produce json
// @Param calendarId path string true "Calendar ID"
// @Param start query string false "Window start (default: today)"
// @Param end query string false "Window end (default: start plus seven days)"
// @Param title query string false "Case-insensitive title substring"
// @Param priority query int false "Exact priority"
// @Param type query string false "client_meeting, internal, personal, administrative or other"
// @Success 200 {object} response.Envelope
// @Router /calendars/{calendarId}/appointments [get]
func (h *AppointmentHandler) List(c *gin.Context) {
	times := &dto.TimeReader{}
	start, err := times.Optional("start", c.Query("start"))
	if err != nil {
		response.Error(c, err)
		return
	}
	end, err := times.Optional("end", c.Query("end"))
	if err != nil {
		response.Error(c, err)
		return
	}
	query := service.ListAppointmentsQuery{
		Start:       start,
		End:         end,
		TitleFilter: strings.TrimSpace(c.Query("title")),
		Type:        strings.TrimSpace(c.Query("type")),
	}
	if raw := strings.TrimSpace(c.Query("priority")); raw != "" {
		priority, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "priority must be an integer"))
			return
		}
		query.Priority = &priority
	}
	appointments, err := h.service.List(c.Request.Context(), c.Param("calendarId"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := times.Meta()
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["count"] = len(appointments)
	response.JSON(c, http.StatusOK, appointments, nil, meta)
}

// Batch godoc
// @Summary Apply independent partial updates in order
// @Tags Appointments
// @Accept json
// @Produce json
// @Param calendarId path string true "Calendar ID"
// @Param payload body dto.BatchUpdateRequest true "Updates"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /calendars/{calendarId}/appointments/batch [post]
func (h *AppointmentHandler) Batch(c *gin.Context) {
	var body dto.BatchUpdateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid batch payload"))
		return
	}
	times := &dto.TimeReader{}
	updates, err := body.ToService(times)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.ApplyBatch(c.Request.Context(), c.Param("calendarId"), updates)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, times.Meta())
}

// SearchSlots godoc
// @Summary Search for free or override-eligible slots
// @Tags Slots
// @Accept json
// @Produce json
// @Param calendarId path string true "Calendar ID"
// @Param payload body dto.SlotSearchRequest true "Search window"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /calendars/{calendarId}/slots/search [post]
func (h *AppointmentHandler) SearchSlots(c *gin.Context) {
	var body dto.SlotSearchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot search payload"))
		return
	}
	times := &dto.TimeReader{}
	query, err := body.ToService(times)
	if err != nil {
		response.Error(c, err)
		return
	}
	slots, err := h.service.FindSlots(c.Request.Context(), c.Param("calendarId"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil, times.Meta())
}

// Days godoc
// @Summary Per-day free time, busiest and most open day
// @Tags Days
// @Produce json
// @Param calendarId path string true "Calendar ID"
// @Param from query string true "First day"
// @Param to query string true "Last day, inclusive"
// @Param working_start query string false "HH:MM"
// @Param working_end query string false "HH:MM"
// @Param underutilized_free_hours query number false "Flag days with more free hours than this"
// @Success 200 {object} response.Envelope
// @Router /calendars/{calendarId}/days [get]
func (h *AppointmentHandler) Days(c *gin.Context) {
	times := &dto.TimeReader{}
	query, err := dayRangeQuery(c, times)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.service.AnalyzeDays(c.Request.Context(), c.Param("calendarId"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	out := dto.DayReportResponse{DayReport: report}
	if raw := strings.TrimSpace(c.Query("underutilized_free_hours")); raw != "" {
		cutoff, err := strconv.ParseFloat(raw, 64)
		if err != nil || cutoff < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "underutilized_free_hours must be a non-negative number"))
			return
		}
		out.UnderutilizedFreeHours = &cutoff
		out.Underutilized = report.Underutilized(cutoff)
	}
	response.JSON(c, http.StatusOK, out, nil, times.Meta())
}

func dayRangeQuery(c *gin.Context, times *dto.TimeReader) (service.DayRangeQuery, error) {
	from, err := times.Required("from", c.Query("from"))
	if err != nil {
		return service.DayRangeQuery{}, err
	}
	to, err := times.Required("to", c.Query("to"))
	if err != nil {
		return service.DayRangeQuery{}, err
	}
	wh, err := dto.OptionalWorkingHours(c.Query("working_start"), c.Query("working_end"))
	if err != nil {
		return service.DayRangeQuery{}, err
	}
	return service.DayRangeQuery{From: from, To: to, WorkingHours: wh}, nil
}

// A rejected schedule still reports its reason alongside the error.
func respondWithResult(c *gin.Context, err error, result *models.ScheduleResult) {
	if result != nil {
		response.ErrorWithData(c, err, result)
		return
	}
	response.Error(c, err)
}
