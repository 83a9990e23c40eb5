package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/internal/service"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
	"github.com/noah-isme/agenda-api/pkg/response"
)

type calendarService interface {
	List(ctx context.Context, req service.CalendarListRequest) ([]models.Calendar, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Calendar, error)
	Create(ctx context.Context, req service.CreateCalendarRequest) (*models.Calendar, error)
	Update(ctx context.Context, id string, req service.UpdateCalendarRequest) (*models.Calendar, error)
}

// CalendarHandler manages calendar endpoints.
type CalendarHandler struct {
	service calendarService
}

// NewCalendarHandler constructs the handler.
func NewCalendarHandler(service calendarService) *CalendarHandler {
	return &CalendarHandler{service: service}
}

// List godoc
// @Summary List calendars
// @Tags Calendars
// @Produce json
// @Param agent_id query string false "Owning agent"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /calendars [get]
func (h *CalendarHandler) List(c *gin.Context) {
	var req service.CalendarListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	calendars, pagination, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, calendars, pagination)
}

// Get godoc
// @Summary Get calendar
// @Tags Calendars
// @Produce json
// @Param calendarId path string true "Calendar ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /calendars/{calendarId} [get]
func (h *CalendarHandler) Get(c *gin.Context) {
	calendar, err := h.service.Get(c.Request.Context(), c.Param("calendarId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, calendar, nil)
}

// Create godoc
// @Summary Create calendar
// @Tags Calendars
// @Accept json
// @Produce json
// @Param payload body service.CreateCalendarRequest true "Calendar"
// @Success 201 {object} response.Envelope
// @Router /calendars [post]
func (h *CalendarHandler) Create(c *gin.Context) {
	var req service.CreateCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid calendar payload"))
		return
	}
	calendar, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, calendar)
}

// Update godoc
// @Summary Update calendar
// @Tags Calendars
// @Accept json
// @Produce json
// @Param calendarId path string true "Calendar ID"
// @Param payload body service.UpdateCalendarRequest true "Calendar"
// @Success 200 {object} response.Envelope
// @Router /calendars/{calendarId} [put]
func (h *CalendarHandler) Update(c *gin.Context) {
	var req service.UpdateCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid calendar payload"))
		return
	}
	calendar, err := h.service.Update(c.Request.Context(), c.Param("calendarId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, calendar, nil)
}
