package models

import "strings"

// AppointmentType is a keyword-derived category of an appointment.
type AppointmentType string

const (
	AppointmentTypeClientMeeting  AppointmentType = "client_meeting"
	AppointmentTypeInternal       AppointmentType = "internal"
	AppointmentTypePersonal       AppointmentType = "personal"
	AppointmentTypeAdministrative AppointmentType = "administrative"
	AppointmentTypeOther          AppointmentType = "other"
)

// Checked in order; the first category with a matching term wins.
var typeKeywords = []struct {
	kind  AppointmentType
	terms []string
}{
	{AppointmentTypeClientMeeting, []string{"client", "customer", "external", "meeting with"}},
	{AppointmentTypeInternal, []string{"team", "internal", "staff", "sync", "standup", "review"}},
	{AppointmentTypePersonal, []string{"doctor", "dentist", "personal", "break", "lunch", "appointment"}},
	{AppointmentTypeAdministrative, []string{"admin", "paperwork", "report", "planning", "email"}},
}

// Classify derives the appointment type from its title and description.
func Classify(title, description string) AppointmentType {
	title = strings.ToLower(title)
	description = strings.ToLower(description)
	for _, group := range typeKeywords {
		for _, term := range group.terms {
			if strings.Contains(title, term) || strings.Contains(description, term) {
				return group.kind
			}
		}
	}
	return AppointmentTypeOther
}

// ParseAppointmentType accepts a known type name, case-insensitively.
func ParseAppointmentType(raw string) (AppointmentType, bool) {
	switch t := AppointmentType(strings.ToLower(strings.TrimSpace(raw))); t {
	case AppointmentTypeClientMeeting, AppointmentTypeInternal, AppointmentTypePersonal, AppointmentTypeAdministrative, AppointmentTypeOther:
		return t, true
	default:
		return "", false
	}
}

// WithType fills the derived Type field.
func (a Appointment) WithType() Appointment {
	a.Type = Classify(a.Title, deref(a.Description))
	return a
}
