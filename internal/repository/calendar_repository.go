package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/agenda-api/internal/models"
)

// CalendarRepository persists calendars.
type CalendarRepository struct {
	db *sqlx.DB
}

// NewCalendarRepository constructs a calendar repository.
func NewCalendarRepository(db *sqlx.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// List returns calendars matching the filter, newest first.
func (r *CalendarRepository) List(ctx context.Context, filter models.CalendarFilter) ([]models.Calendar, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.AgentID != "" {
		where = append(where, fmt.Sprintf("agent_id = $%d", len(args)+1))
		args = append(args, filter.AgentID)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, agent_id, name, time_zone, created_at, updated_at
FROM calendars WHERE %s ORDER BY created_at DESC, id LIMIT %d OFFSET %d`, whereClause, size, offset)
	var calendars []models.Calendar
	if err := r.db.SelectContext(ctx, &calendars, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list calendars: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM calendars WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count calendars: %w", err)
	}
	return calendars, total, nil
}

// GetByID fetches a calendar. It returns sql.ErrNoRows when absent.
func (r *CalendarRepository) GetByID(ctx context.Context, id string) (*models.Calendar, error) {
	const query = `SELECT id, agent_id, name, time_zone, created_at, updated_at FROM calendars WHERE id = $1`
	var calendar models.Calendar
	if err := r.db.GetContext(ctx, &calendar, query, id); err != nil {
		return nil, err
	}
	return &calendar, nil
}

// Create inserts a calendar.
func (r *CalendarRepository) Create(ctx context.Context, calendar *models.Calendar) error {
	if calendar.ID == "" {
		calendar.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if calendar.CreatedAt.IsZero() {
		calendar.CreatedAt = now
	}
	calendar.UpdatedAt = now
	query := `INSERT INTO calendars (id, agent_id, name, time_zone, created_at, updated_at)
VALUES (:id, :agent_id, :name, :time_zone, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, calendar); err != nil {
		return fmt.Errorf("create calendar: %w", err)
	}
	return nil
}

// Update renames a calendar or changes its display time zone.
func (r *CalendarRepository) Update(ctx context.Context, calendar *models.Calendar) error {
	calendar.UpdatedAt = time.Now().UTC()
	query := `UPDATE calendars SET name = :name, time_zone = :time_zone, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, calendar); err != nil {
		return fmt.Errorf("update calendar: %w", err)
	}
	return nil
}
