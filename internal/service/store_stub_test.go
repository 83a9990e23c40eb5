package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/agenda-api/internal/models"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
)

// memoryStore is a versioned in-memory AppointmentStore for service tests.
type memoryStore struct {
	mu         sync.Mutex
	seq        int
	calendars  map[string]bool
	appts      map[string]models.Appointment
	updateErr  map[string]error
	rangeCalls int
	// onRange runs before the nth GetRange call (1-based), outside the lock.
	onRange func(call int)
}

func newMemoryStore(calendars ...string) *memoryStore {
	m := &memoryStore{calendars: map[string]bool{}, appts: map[string]models.Appointment{}, updateErr: map[string]error{}}
	for _, c := range calendars {
		m.calendars[c] = true
	}
	return m
}

func (m *memoryStore) seed(calendarID, title string, start, end time.Time, priority int) models.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	appt := models.Appointment{
		ID:         fmt.Sprintf("seed-%02d", m.seq),
		CalendarID: calendarID,
		Title:      title,
		Start:      start,
		End:        end,
		Priority:   priority,
		Status:     models.AppointmentStatusConfirmed,
		Version:    1,
	}
	m.appts[appt.ID] = appt
	return appt
}

func (m *memoryStore) snapshot(id string) models.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appts[id]
}

func (m *memoryStore) confirmed(calendarID string) []models.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Appointment
	for _, a := range m.appts {
		if a.CalendarID == calendarID && a.IsConfirmed() {
			out = append(out, a)
		}
	}
	return out
}

func (m *memoryStore) GetRange(_ context.Context, calendarID string, start, end time.Time, includeCancelled bool) ([]models.Appointment, error) {
	m.mu.Lock()
	m.rangeCalls++
	call, hook := m.rangeCalls, m.onRange
	m.mu.Unlock()
	if hook != nil {
		hook(call)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Appointment{}
	for _, a := range m.appts {
		if a.CalendarID != calendarID || !a.Overlaps(start, end) {
			continue
		}
		if !includeCancelled && !a.IsConfirmed() {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memoryStore) Get(_ context.Context, calendarID, appointmentID string) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[appointmentID]
	if !ok || a.CalendarID != calendarID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
	}
	return &a, nil
}

func (m *memoryStore) Create(_ context.Context, calendarID string, fields models.AppointmentFields) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.calendars[calendarID] {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "calendar not found")
	}
	m.seq++
	a := models.Appointment{
		ID:          fmt.Sprintf("appt-%02d", m.seq),
		CalendarID:  calendarID,
		Title:       fields.Title,
		Start:       fields.Start,
		End:         fields.End,
		Priority:    fields.Priority,
		Status:      models.AppointmentStatusConfirmed,
		Description: fields.Description,
		Location:    fields.Location,
		Version:     1,
	}
	m.appts[a.ID] = a
	return &a, nil
}

func (m *memoryStore) Update(_ context.Context, calendarID, appointmentID string, patch models.AppointmentPatch) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.updateErr[appointmentID]; err != nil {
		return nil, err
	}
	a, ok := m.appts[appointmentID]
	if !ok || a.CalendarID != calendarID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
	}
	if patch.ExpectedVersion != nil && *patch.ExpectedVersion != a.Version {
		return nil, appErrors.Clone(appErrors.ErrConcurrentModification, "stale version")
	}
	next := patch.Apply(a)
	next.Version = a.Version + 1
	m.appts[appointmentID] = next
	return &next, nil
}

func (m *memoryStore) Cancel(_ context.Context, calendarID, appointmentID string) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[appointmentID]
	if !ok || a.CalendarID != calendarID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
	}
	if a.Status != models.AppointmentStatusCancelled {
		a.Status = models.AppointmentStatusCancelled
		a.Version++
		m.appts[appointmentID] = a
	}
	return &a, nil
}

// move rewrites an appointment's interval as another writer would, bumping its version.
func (m *memoryStore) move(id string, start, end time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.appts[id]
	a.Start, a.End = start, end
	a.Version++
	m.appts[id] = a
}

func at(day, hour, minute int) time.Time {
	return time.Date(2025, 3, day, hour, minute, 0, 0, time.UTC)
}

// noLookahead restricts reschedule targets to the displaced appointment's own day.
func noLookahead(cfg EngineConfig) EngineConfig {
	cfg.RescheduleLookaheadDays = 0
	return cfg
}
