package dto

import (
	"strings"
	"time"

	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/internal/service"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
	"github.com/noah-isme/agenda-api/pkg/timeutil"
)

// TimeReader parses textual timestamps and remembers which fields carried no zone.
type TimeReader struct {
	Assumed []string
}

// Required parses a mandatory timestamp.
func (r *TimeReader) Required(field, raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, field+" is required"),
			map[string]interface{}{"field": field},
		)
	}
	return r.parse(field, raw)
}

// Optional parses a timestamp that may be blank, returning the zero time when it is.
func (r *TimeReader) Optional(field, raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	return r.parse(field, raw)
}

// Meta reports assumed-zone fields for the response envelope, or nil when there are none.
func (r *TimeReader) Meta() map[string]interface{} {
	if len(r.Assumed) == 0 {
		return nil
	}
	return map[string]interface{}{"zone_assumed": r.Assumed, "zone": timeutil.Canonical.String()}
}

func (r *TimeReader) parse(field, raw string) (time.Time, error) {
	inst, err := timeutil.Parse(raw)
	if err != nil {
		return time.Time{}, appErrors.WithDetails(appErrors.FromError(err), map[string]interface{}{"field": field})
	}
	if inst.Assumed {
		r.Assumed = append(r.Assumed, field)
	}
	return inst.Time, nil
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

// ScheduleAppointmentRequest is the body of POST /appointments.
type ScheduleAppointmentRequest struct {
	Title           string  `json:"title"`
	Start           string  `json:"start"`
	DurationMinutes int     `json:"duration_minutes"`
	Priority        int     `json:"priority"`
	Description     *string `json:"description,omitempty"`
	Location        *string `json:"location,omitempty"`
}

// ToService converts the body into the typed request.
func (r ScheduleAppointmentRequest) ToService(times *TimeReader) (service.ScheduleRequest, error) {
	start, err := times.Required("start", r.Start)
	if err != nil {
		return service.ScheduleRequest{}, err
	}
	return service.ScheduleRequest{
		Title:       r.Title,
		Start:       start,
		Duration:    minutes(r.DurationMinutes),
		Priority:    r.Priority,
		Description: r.Description,
		Location:    r.Location,
	}, nil
}

// RescheduleAppointmentRequest is the body of POST /appointments/:id/reschedule.
type RescheduleAppointmentRequest struct {
	Start           string `json:"start"`
	DurationMinutes int    `json:"duration_minutes"`
}

// ToService converts the body into the typed request.
func (r RescheduleAppointmentRequest) ToService(times *TimeReader) (service.RescheduleRequest, error) {
	start, err := times.Required("start", r.Start)
	if err != nil {
		return service.RescheduleRequest{}, err
	}
	return service.RescheduleRequest{Start: start, Duration: minutes(r.DurationMinutes)}, nil
}

// BatchUpdateItem is one partial update. Absent fields are retained.
type BatchUpdateItem struct {
	AppointmentID   string  `json:"appointment_id"`
	Title           *string `json:"title,omitempty"`
	Start           *string `json:"start,omitempty"`
	End             *string `json:"end,omitempty"`
	Priority        *int    `json:"priority,omitempty"`
	Status          *string `json:"status,omitempty"`
	Description     *string `json:"description,omitempty"`
	Location        *string `json:"location,omitempty"`
	ExpectedVersion *int    `json:"expected_version,omitempty"`
}

// BatchUpdateRequest is the body of POST /appointments/batch.
type BatchUpdateRequest struct {
	Updates []BatchUpdateItem `json:"updates"`
}

// ToService converts every item, failing on the first unparseable value.
func (r BatchUpdateRequest) ToService(times *TimeReader) ([]service.BatchUpdate, error) {
	updates := make([]service.BatchUpdate, 0, len(r.Updates))
	for i, item := range r.Updates {
		patch := models.AppointmentPatch{
			Title:           item.Title,
			Priority:        item.Priority,
			Description:     item.Description,
			Location:        item.Location,
			ExpectedVersion: item.ExpectedVersion,
		}
		if item.Start != nil {
			start, err := times.Required("start", *item.Start)
			if err != nil {
				return nil, withIndex(err, i)
			}
			patch.Start = &start
		}
		if item.End != nil {
			end, err := times.Required("end", *item.End)
			if err != nil {
				return nil, withIndex(err, i)
			}
			patch.End = &end
		}
		if item.Status != nil {
			status := models.AppointmentStatus(strings.ToLower(strings.TrimSpace(*item.Status)))
			if status != models.AppointmentStatusConfirmed && status != models.AppointmentStatusCancelled {
				return nil, withIndex(appErrors.Clone(appErrors.ErrValidation, "status must be confirmed or cancelled"), i)
			}
			patch.Status = &status
		}
		updates = append(updates, service.BatchUpdate{AppointmentID: item.AppointmentID, Patch: patch})
	}
	return updates, nil
}

func withIndex(err error, index int) error {
	return appErrors.WithDetails(appErrors.FromError(err), map[string]interface{}{"update_index": index})
}

// SlotSearchRequest is the body of POST /slots/search.
type SlotSearchRequest struct {
	WindowStart                string `json:"window_start"`
	WindowEnd                  string `json:"window_end"`
	DurationMinutes            int    `json:"duration_minutes"`
	AllowOverrideBelowPriority *int   `json:"allow_override_below_priority,omitempty"`
	MaxResults                 int    `json:"max_results"`
	Ranking                    string `json:"ranking,omitempty"`
	WorkingHoursStart          string `json:"working_hours_start,omitempty"`
	WorkingHoursEnd            string `json:"working_hours_end,omitempty"`
}

// ToService converts the body into a slot query.
func (r SlotSearchRequest) ToService(times *TimeReader) (service.SlotQuery, error) {
	start, err := times.Required("window_start", r.WindowStart)
	if err != nil {
		return service.SlotQuery{}, err
	}
	end, err := times.Required("window_end", r.WindowEnd)
	if err != nil {
		return service.SlotQuery{}, err
	}
	wh, err := OptionalWorkingHours(r.WorkingHoursStart, r.WorkingHoursEnd)
	if err != nil {
		return service.SlotQuery{}, err
	}
	return service.SlotQuery{
		WindowStart:                start,
		WindowEnd:                  end,
		Duration:                   minutes(r.DurationMinutes),
		AllowOverrideBelowPriority: r.AllowOverrideBelowPriority,
		MaxResults:                 r.MaxResults,
		Ranking:                    models.SlotRanking(strings.TrimSpace(r.Ranking)),
		WorkingHours:               wh,
	}, nil
}

// OptionalWorkingHours parses a working-hours pair; both blank yields nil.
func OptionalWorkingHours(start, end string) (*service.WorkingHours, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" || end == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "working hours need both start and end")
	}
	wh, err := service.ParseWorkingHours(start, end)
	if err != nil {
		return nil, err
	}
	return &wh, nil
}

// DayReportResponse adds the caller's underutilized cutoff to a day report.
type DayReportResponse struct {
	*models.DayReport
	UnderutilizedFreeHours *float64                `json:"underutilized_free_hours,omitempty"`
	Underutilized          []models.DayUtilization `json:"underutilized,omitempty"`
}
