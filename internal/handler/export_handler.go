package handler

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/agenda-api/internal/dto"
	"github.com/noah-isme/agenda-api/internal/service"
	"github.com/noah-isme/agenda-api/pkg/response"
	"github.com/noah-isme/agenda-api/pkg/timeutil"
)

type exportService interface {
	ExportDayReport(ctx context.Context, calendarID string, query service.DayRangeQuery, format service.ExportFormat) (*service.ExportFile, error)
	ExportCalendar(ctx context.Context, calendarID string, start, end time.Time) (*service.ExportFile, error)
}

// ExportHandler serves file downloads.
type ExportHandler struct {
	service exportService
	now     func() time.Time
	// window exported when the .ics request names no end
	defaultWindow time.Duration
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService, defaultWindow time.Duration) *ExportHandler {
	if defaultWindow <= 0 {
		defaultWindow = 30 * 24 * time.Hour
	}
	return &ExportHandler{service: service, now: time.Now, defaultWindow: defaultWindow}
}

// Days godoc
// @Summary Download the day report as CSV or PDF
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param calendarId path string true "Calendar ID"
// @Param from query string true "First day"
// @Param to query string true "Last day, inclusive"
// @Param format query string false "csv (default) or pdf"
// @Param working_start query string false "HH:MM"
// @Param working_end query string false "HH:MM"
// @Success 200 {file} file
// @Router /calendars/{calendarId}/days/export [get]
func (h *ExportHandler) Days(c *gin.Context) {
	query, err := dayRangeQuery(c, &dto.TimeReader{})
	if err != nil {
		response.Error(c, err)
		return
	}
	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(service.ExportFormatCSV))))
	file, err := h.service.ExportDayReport(c.Request.Context(), c.Param("calendarId"), query, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// Calendar godoc
// @Summary Download appointments as iCalendar
// @Tags Exports
// @Produce text/calendar
// @Param calendarId path string true "Calendar ID"
// @Param start query string false "Window start (default: today)"
// @Param end query string false "Window end (default: start plus thirty days)"
// @Success 200 {file} file
// @Router /calendars/{calendarId}/appointments.ics [get]
func (h *ExportHandler) Calendar(c *gin.Context) {
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
	if start.IsZero() {
		start = timeutil.StartOfDay(h.now())
	}
	if end.IsZero() {
		end = start.Add(h.defaultWindow)
	}
	file, err := h.service.ExportCalendar(c.Request.Context(), c.Param("calendarId"), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
