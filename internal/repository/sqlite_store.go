package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/agenda-api/internal/models"
)

// MigrateSQLite creates the calendars and appointments tables.
func MigrateSQLite(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Calendar{}, &models.Appointment{}); err != nil {
		return fmt.Errorf("automigrate sqlite: %w", err)
	}
	return nil
}

// SQLiteAppointmentStore is the embedded appointment store used for local runs and tests.
type SQLiteAppointmentStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSQLiteAppointmentStore constructs the store over an already migrated database.
func NewSQLiteAppointmentStore(db *gorm.DB) *SQLiteAppointmentStore {
	return &SQLiteAppointmentStore{db: db, now: time.Now}
}

// GetRange returns appointments overlapping [start, end) ordered by start.
func (s *SQLiteAppointmentStore) GetRange(ctx context.Context, calendarID string, start, end time.Time, includeCancelled bool) ([]models.Appointment, error) {
	q := s.db.WithContext(ctx).
		Where("calendar_id = ? AND start_time < ? AND end_time > ?", calendarID, end.UTC(), start.UTC())
	if !includeCancelled {
		q = q.Where("status = ?", models.AppointmentStatusConfirmed)
	}
	appointments := []models.Appointment{}
	if err := q.Order("start_time ASC, id ASC").Find(&appointments).Error; err != nil {
		return nil, fmt.Errorf("list appointments in range: %w", err)
	}
	for i := range appointments {
		normalizeTimes(&appointments[i])
	}
	return appointments, nil
}

// Get fetches one appointment scoped to its calendar.
func (s *SQLiteAppointmentStore) Get(ctx context.Context, calendarID, appointmentID string) (*models.Appointment, error) {
	return s.get(s.db.WithContext(ctx), calendarID, appointmentID)
}

func (s *SQLiteAppointmentStore) get(tx *gorm.DB, calendarID, appointmentID string) (*models.Appointment, error) {
	var appt models.Appointment
	if err := tx.Where("calendar_id = ? AND id = ?", calendarID, appointmentID).Take(&appt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appointmentNotFound(calendarID, appointmentID)
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	normalizeTimes(&appt)
	return &appt, nil
}

// Create inserts a confirmed appointment at version 1 after checking the calendar exists.
func (s *SQLiteAppointmentStore) Create(ctx context.Context, calendarID string, fields models.AppointmentFields) (*models.Appointment, error) {
	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.Calendar{}).Where("id = ?", calendarID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check calendar: %w", err)
	}
	if count == 0 {
		return nil, calendarNotFound(calendarID)
	}

	now := s.now().UTC()
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
	if err := db.Create(&appt).Error; err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	return &appt, nil
}

// Update merges the patch under a version check inside one transaction.
func (s *SQLiteAppointmentStore) Update(ctx context.Context, calendarID, appointmentID string, patch models.AppointmentPatch) (*models.Appointment, error) {
	var updated *models.Appointment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.get(tx, calendarID, appointmentID)
		if err != nil {
			return err
		}
		if patch.ExpectedVersion != nil && *patch.ExpectedVersion != current.Version {
			return concurrentModification(calendarID, appointmentID, *patch.ExpectedVersion, current.Version)
		}

		next := patch.Apply(*current)
		next.Start, next.End = next.Start.UTC(), next.End.UTC()
		next.Version = current.Version + 1
		next.UpdatedAt = s.now().UTC()

		res := tx.Model(&models.Appointment{}).
			Where("calendar_id = ? AND id = ? AND version = ?", calendarID, appointmentID, current.Version).
			Updates(map[string]interface{}{
				"title":       next.Title,
				"start_time":  next.Start,
				"end_time":    next.End,
				"priority":    next.Priority,
				"status":      next.Status,
				"description": next.Description,
				"location":    next.Location,
				"version":     next.Version,
				"updated_at":  next.UpdatedAt,
			})
		if res.Error != nil {
			return fmt.Errorf("update appointment: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return concurrentModification(calendarID, appointmentID, current.Version, -1)
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Cancel marks the appointment cancelled; repeated calls succeed without changes.
func (s *SQLiteAppointmentStore) Cancel(ctx context.Context, calendarID, appointmentID string) (*models.Appointment, error) {
	db := s.db.WithContext(ctx)
	res := db.Model(&models.Appointment{}).
		Where("calendar_id = ? AND id = ? AND status <> ?", calendarID, appointmentID, models.AppointmentStatusCancelled).
		Updates(map[string]interface{}{
			"status":     models.AppointmentStatusCancelled,
			"version":    gorm.Expr("version + 1"),
			"updated_at": s.now().UTC(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("cancel appointment: %w", res.Error)
	}
	return s.get(db, calendarID, appointmentID)
}

// SQLiteCalendarStore mirrors CalendarRepository on the embedded database.
type SQLiteCalendarStore struct {
	db *gorm.DB
}

// NewSQLiteCalendarStore constructs the store.
func NewSQLiteCalendarStore(db *gorm.DB) *SQLiteCalendarStore {
	return &SQLiteCalendarStore{db: db}
}

// List returns calendars matching the filter, newest first.
func (s *SQLiteCalendarStore) List(ctx context.Context, filter models.CalendarFilter) ([]models.Calendar, int, error) {
	scoped := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.Calendar{})
		if filter.AgentID != "" {
			q = q.Where("agent_id = ?", filter.AgentID)
		}
		return q
	}
	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count calendars: %w", err)
	}
	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 200 {
		size = 50
	}
	calendars := []models.Calendar{}
	if err := scoped().Order("created_at DESC, id").Limit(size).Offset((page - 1) * size).Find(&calendars).Error; err != nil {
		return nil, 0, fmt.Errorf("list calendars: %w", err)
	}
	return calendars, int(total), nil
}

// GetByID returns sql.ErrNoRows when the calendar is absent, matching CalendarRepository.
func (s *SQLiteCalendarStore) GetByID(ctx context.Context, id string) (*models.Calendar, error) {
	var calendar models.Calendar
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&calendar).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get calendar: %w", err)
	}
	return &calendar, nil
}

// Create inserts a calendar.
func (s *SQLiteCalendarStore) Create(ctx context.Context, calendar *models.Calendar) error {
	if calendar.ID == "" {
		calendar.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(calendar).Error; err != nil {
		return fmt.Errorf("create calendar: %w", err)
	}
	return nil
}

// Update saves the name and time zone.
func (s *SQLiteCalendarStore) Update(ctx context.Context, calendar *models.Calendar) error {
	calendar.UpdatedAt = time.Now().UTC()
	err := s.db.WithContext(ctx).Model(&models.Calendar{}).Where("id = ?", calendar.ID).
		Updates(map[string]interface{}{"name": calendar.Name, "time_zone": calendar.TimeZone, "updated_at": calendar.UpdatedAt}).Error
	if err != nil {
		return fmt.Errorf("update calendar: %w", err)
	}
	return nil
}
