package models

import (
	"strings"
	"time"
)

// AppointmentStatus enumerates lifecycle states of an appointment.
type AppointmentStatus string

const (
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Priority bounds. 1 is the most urgent.
const (
	PriorityHighest = 1
	PriorityLowest  = 5
)

// Appointment is a time-bounded entry owned by a calendar. The interval is half-open [Start, End).
type Appointment struct {
	ID          string            `db:"id" json:"id" gorm:"primaryKey;type:varchar(36)"`
	CalendarID  string            `db:"calendar_id" json:"calendar_id" gorm:"type:varchar(36);not null;index:idx_appointments_calendar_start,priority:1"`
	Title       string            `db:"title" json:"title" gorm:"type:varchar(255);not null"`
	Start       time.Time         `db:"start_time" json:"start" gorm:"column:start_time;not null;index:idx_appointments_calendar_start,priority:2"`
	End         time.Time         `db:"end_time" json:"end" gorm:"column:end_time;not null"`
	Priority    int               `db:"priority" json:"priority" gorm:"not null"`
	Status      AppointmentStatus `db:"status" json:"status" gorm:"type:varchar(16);not null"`
	Description *string           `db:"description" json:"description,omitempty"`
	Location    *string           `db:"location" json:"location,omitempty"`
	Version     int               `db:"version" json:"version" gorm:"not null;default:1"`
	Type        AppointmentType   `db:"-" json:"type,omitempty" gorm:"-"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
}

// TableName pins the gorm table to the same schema used by the sqlx store.
func (Appointment) TableName() string {
	return "appointments"
}

// Duration is derived from the interval, never stored.
func (a Appointment) Duration() time.Duration {
	return a.End.Sub(a.Start)
}

// IsConfirmed reports whether the appointment takes part in conflict computations.
func (a Appointment) IsConfirmed() bool {
	return a.Status == AppointmentStatusConfirmed
}

// Overlaps applies the half-open overlap test against [start, end).
func (a Appointment) Overlaps(start, end time.Time) bool {
	return Overlap(a.Start, a.End, start, end)
}

// Summary projects the fields an override slot reports for a conflicting appointment.
func (a Appointment) Summary() ConflictSummary {
	return ConflictSummary{ID: a.ID, Title: a.Title, Priority: a.Priority, Start: a.Start, End: a.End}
}

// Overlap reports whether [s1,e1) and [s2,e2) intersect. Back-to-back intervals do not.
func Overlap(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// ValidPriority reports whether p is inside the closed priority range.
func ValidPriority(p int) bool {
	return p >= PriorityHighest && p <= PriorityLowest
}

// AppointmentFields carries the attributes used to create an appointment.
type AppointmentFields struct {
	Title       string
	Start       time.Time
	End         time.Time
	Priority    int
	Description *string
	Location    *string
}

// Problems lists every invariant the fields violate.
func (f AppointmentFields) Problems() []string {
	var problems []string
	if strings.TrimSpace(f.Title) == "" {
		problems = append(problems, "title must not be empty")
	}
	if f.Start.IsZero() || f.End.IsZero() {
		problems = append(problems, "start and end are required")
	} else if !f.Start.Before(f.End) {
		problems = append(problems, "start must be before end")
	}
	if !ValidPriority(f.Priority) {
		problems = append(problems, "priority must be between 1 and 5")
	}
	return problems
}

// AppointmentPatch is a partial update; nil fields are retained.
type AppointmentPatch struct {
	Title       *string
	Start       *time.Time
	End         *time.Time
	Priority    *int
	Status      *AppointmentStatus
	Description *string
	Location    *string
	// ExpectedVersion enables an optimistic check against concurrent writers.
	ExpectedVersion *int
}

// ChangesInterval reports whether the patch moves the appointment.
func (p AppointmentPatch) ChangesInterval() bool {
	return p.Start != nil || p.End != nil
}

// Apply returns a copy of a with the patch merged in.
func (p AppointmentPatch) Apply(a Appointment) Appointment {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Start != nil {
		a.Start = *p.Start
	}
	if p.End != nil {
		a.End = *p.End
	}
	if p.Priority != nil {
		a.Priority = *p.Priority
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Description != nil {
		a.Description = p.Description
	}
	if p.Location != nil {
		a.Location = p.Location
	}
	return a
}

// AppointmentFilter narrows list results.
type AppointmentFilter struct {
	Start       time.Time
	End         time.Time
	TitleFilter string
	Priority    *int
	Type        AppointmentType
}

// Matches applies the optional title, priority and type filters.
func (f AppointmentFilter) Matches(a Appointment) bool {
	if f.TitleFilter != "" && !strings.Contains(strings.ToLower(a.Title), strings.ToLower(f.TitleFilter)) {
		return false
	}
	if f.Priority != nil && a.Priority != *f.Priority {
		return false
	}
	if f.Type != "" && Classify(a.Title, deref(a.Description)) != f.Type {
		return false
	}
	return true
}

// Availability answers whether an interval is free.
type Availability struct {
	Available bool          `json:"available"`
	Conflicts []Appointment `json:"conflicts"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
