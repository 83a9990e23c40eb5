package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/agenda-api/internal/models"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
)

const appointmentColumns = `id, calendar_id, title, start_time, end_time, priority, status, description, location, version, created_at, updated_at`

// pq code for foreign_key_violation.
const pqForeignKeyViolation = "23503"

// AppointmentRepository is the Postgres appointment store. Writes are guarded by the version column.
type AppointmentRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewAppointmentRepository constructs the repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db, now: time.Now}
}

// GetRange returns appointments overlapping [start, end) ordered by start.
func (r *AppointmentRepository) GetRange(ctx context.Context, calendarID string, start, end time.Time, includeCancelled bool) ([]models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE calendar_id = $1 AND start_time < $3 AND end_time > $2`
	if !includeCancelled {
		query += ` AND status = 'confirmed'`
	}
	query += ` ORDER BY start_time ASC, id ASC`

	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, calendarID, start.UTC(), end.UTC()); err != nil {
		return nil, fmt.Errorf("list appointments in range: %w", err)
	}
	if appointments == nil {
		appointments = []models.Appointment{}
	}
	for i := range appointments {
		normalizeTimes(&appointments[i])
	}
	return appointments, nil
}

// Get fetches one appointment scoped to its calendar.
func (r *AppointmentRepository) Get(ctx context.Context, calendarID, appointmentID string) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE calendar_id = $1 AND id = $2`
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, calendarID, appointmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appointmentNotFound(calendarID, appointmentID)
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	normalizeTimes(&appt)
	return &appt, nil
}

// Create inserts a confirmed appointment at version 1.
func (r *AppointmentRepository) Create(ctx context.Context, calendarID string, fields models.AppointmentFields) (*models.Appointment, error) {
	now := r.now().UTC()
	appt := models.Appointment{
		ID:          uuid.NewString(),
		CalendarID:  calendarID,
		Title:       fields.Title,
		Start:       fields.Start.UTC(),
		End:         fields.End.UTC(),
		Priority:    fields.Priority,
		Status:      models.AppointmentStatusConfirmed,
		Description: fields.Description,
		Location:    fields.Location,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	query := `INSERT INTO appointments (` + appointmentColumns + `)
VALUES (:id, :calendar_id, :title, :start_time, :end_time, :priority, :status, :description, :location, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, appt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqForeignKeyViolation {
			return nil, calendarNotFound(calendarID)
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	return &appt, nil
}

// Update merges the patch and bumps the version. A stale ExpectedVersion or a concurrent
// writer yields CONCURRENT_MODIFICATION.
func (r *AppointmentRepository) Update(ctx context.Context, calendarID, appointmentID string, patch models.AppointmentPatch) (*models.Appointment, error) {
	current, err := r.Get(ctx, calendarID, appointmentID)
	if err != nil {
		return nil, err
	}
	if patch.ExpectedVersion != nil && *patch.ExpectedVersion != current.Version {
		return nil, concurrentModification(calendarID, appointmentID, *patch.ExpectedVersion, current.Version)
	}

	next := patch.Apply(*current)
	next.Start, next.End = next.Start.UTC(), next.End.UTC()
	next.Version = current.Version + 1
	next.UpdatedAt = r.now().UTC()

	const query = `UPDATE appointments SET title = $1, start_time = $2, end_time = $3, priority = $4, status = $5,
description = $6, location = $7, version = $8, updated_at = $9
WHERE calendar_id = $10 AND id = $11 AND version = $12`
	res, err := r.db.ExecContext(ctx, query,
		next.Title, next.Start, next.End, next.Priority, next.Status,
		next.Description, next.Location, next.Version, next.UpdatedAt,
		calendarID, appointmentID, current.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("update appointment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update appointment rows affected: %w", err)
	}
	if affected == 0 {
		return nil, concurrentModification(calendarID, appointmentID, current.Version, -1)
	}
	return &next, nil
}

// Cancel marks the appointment cancelled. Cancelling an already cancelled appointment is a no-op.
func (r *AppointmentRepository) Cancel(ctx context.Context, calendarID, appointmentID string) (*models.Appointment, error) {
	query := `UPDATE appointments SET status = 'cancelled', version = version + 1, updated_at = $1
WHERE calendar_id = $2 AND id = $3 AND status <> 'cancelled'
RETURNING ` + appointmentColumns
	var appt models.Appointment
	err := r.db.GetContext(ctx, &appt, query, r.now().UTC(), calendarID, appointmentID)
	if err == nil {
		normalizeTimes(&appt)
		return &appt, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}
	// Either absent or already cancelled.
	return r.Get(ctx, calendarID, appointmentID)
}

func normalizeTimes(appt *models.Appointment) {
	appt.Start = appt.Start.UTC()
	appt.End = appt.End.UTC()
	appt.CreatedAt = appt.CreatedAt.UTC()
	appt.UpdatedAt = appt.UpdatedAt.UTC()
}

func appointmentNotFound(calendarID, appointmentID string) error {
	return appErrors.WithDetails(
		appErrors.Clone(appErrors.ErrNotFound, "appointment not found"),
		map[string]interface{}{"calendar_id": calendarID, "appointment_id": appointmentID},
	)
}

func calendarNotFound(calendarID string) error {
	return appErrors.WithDetails(
		appErrors.Clone(appErrors.ErrNotFound, "calendar not found"),
		map[string]interface{}{"calendar_id": calendarID},
	)
}

// actual < 0 means the row changed between read and write.
func concurrentModification(calendarID, appointmentID string, expected, actual int) error {
	details := map[string]interface{}{
		"calendar_id":      calendarID,
		"appointment_id":   appointmentID,
		"expected_version": expected,
	}
	if actual >= 0 {
		details["actual_version"] = actual
	}
	return appErrors.WithDetails(appErrors.Clone(appErrors.ErrConcurrentModification, "appointment was modified concurrently"), details)
}
