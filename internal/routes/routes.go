package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/agenda-api/internal/handler"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Calendars    *handler.CalendarHandler
	Appointments *handler.AppointmentHandler
	Exports      *handler.ExportHandler
	Metrics      *handler.MetricsHandler

	// SearchLimit guards the slot search and day report routes. Nil means unlimited.
	SearchLimit gin.HandlerFunc
}

// Register mounts probes at the root and the API under prefix.
func Register(r *gin.Engine, prefix string, h Handlers) {
	limit := h.SearchLimit
	if limit == nil {
		limit = func(c *gin.Context) { c.Next() }
	}

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)

	calendars := api.Group("/calendars")
	calendars.GET("", h.Calendars.List)
	calendars.POST("", h.Calendars.Create)
	calendars.GET("/:calendarId", h.Calendars.Get)
	calendars.PUT("/:calendarId", h.Calendars.Update)

	calendar := calendars.Group("/:calendarId")
	calendar.GET("/availability", h.Appointments.Availability)
	calendar.GET("/appointments", h.Appointments.List)
	calendar.POST("/appointments", h.Appointments.Schedule)
	calendar.POST("/appointments/batch", h.Appointments.Batch)
	calendar.GET("/appointments/:id", h.Appointments.Get)
	calendar.POST("/appointments/:id/reschedule", h.Appointments.Reschedule)
	calendar.POST("/appointments/:id/cancel", h.Appointments.Cancel)
	calendar.POST("/slots/search", limit, h.Appointments.SearchSlots)
	calendar.GET("/days", limit, h.Appointments.Days)
	calendar.GET("/days/export", limit, h.Exports.Days)
	calendar.GET("/appointments.ics", h.Exports.Calendar)
}
