package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/agenda-api/internal/models"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
)

// AppointmentStore is the persistence collaborator consumed by the engine. Implementations own
// durability and must serialise concurrent writes to the same appointment.
type AppointmentStore interface {
	// GetRange returns appointments overlapping [start, end) ordered by start ascending.
	GetRange(ctx context.Context, calendarID string, start, end time.Time, includeCancelled bool) ([]models.Appointment, error)
	Get(ctx context.Context, calendarID, appointmentID string) (*models.Appointment, error)
	Create(ctx context.Context, calendarID string, fields models.AppointmentFields) (*models.Appointment, error)
	Update(ctx context.Context, calendarID, appointmentID string, patch models.AppointmentPatch) (*models.Appointment, error)
	// Cancel is idempotent.
	Cancel(ctx context.Context, calendarID, appointmentID string) (*models.Appointment, error)
}

// storeError passes typed store errors through untouched and wraps anything else.
func storeError(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func invalidAppointment(calendarID string, problems []string, start, end time.Time) *appErrors.Error {
	details := map[string]interface{}{"calendar_id": calendarID, "problems": problems}
	if !start.IsZero() {
		details["start"] = start
	}
	if !end.IsZero() {
		details["end"] = end
	}
	return appErrors.WithDetails(
		appErrors.Clone(appErrors.ErrInvalidAppointment, fmt.Sprintf("invalid appointment: %s", strings.Join(problems, "; "))),
		details,
	)
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
