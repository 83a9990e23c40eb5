package service

import (
	"context"
	"time"

	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/pkg/timeutil"
)

// ConflictDetector finds confirmed appointments overlapping an interval. It never mutates the store.
type ConflictDetector struct {
	store AppointmentStore
}

// NewConflictDetector constructs a detector over the given store.
func NewConflictDetector(store AppointmentStore) *ConflictDetector {
	return &ConflictDetector{store: store}
}

// FindConflicts returns every confirmed appointment in calendarID overlapping [start, end),
// ignoring excludeID when set.
func (d *ConflictDetector) FindConflicts(ctx context.Context, calendarID string, start, end time.Time, excludeID string) ([]models.Appointment, error) {
	start, end = timeutil.Normalize(start), timeutil.Normalize(end)
	if !start.Before(end) {
		return nil, invalidAppointment(calendarID, []string{"start must be before end"}, start, end)
	}
	candidates, err := d.store.GetRange(ctx, calendarID, start, end, false)
	if err != nil {
		return nil, storeError(err, "failed to load appointments for conflict check")
	}
	return FilterConflicts(candidates, start, end, excludeID), nil
}

// FilterConflicts applies the precise half-open overlap test to an already fetched set.
// The result keeps the input order.
func FilterConflicts(appointments []models.Appointment, start, end time.Time, excludeID string) []models.Appointment {
	conflicts := make([]models.Appointment, 0)
	for _, appt := range appointments {
		if !appt.IsConfirmed() {
			continue
		}
		if excludeID != "" && appt.ID == excludeID {
			continue
		}
		if appt.Overlaps(start, end) {
			conflicts = append(conflicts, appt)
		}
	}
	return conflicts
}
