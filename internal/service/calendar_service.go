package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/agenda-api/internal/models"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
)

// CalendarRepository persists calendars. GetByID returns sql.ErrNoRows for unknown ids.
type CalendarRepository interface {
	List(ctx context.Context, filter models.CalendarFilter) ([]models.Calendar, int, error)
	GetByID(ctx context.Context, id string) (*models.Calendar, error)
	Create(ctx context.Context, calendar *models.Calendar) error
	Update(ctx context.Context, calendar *models.Calendar) error
}

// CalendarService manages the calendars appointments belong to.
type CalendarService struct {
	repo      CalendarRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCalendarService constructs the service.
func NewCalendarService(repo CalendarRepository, validate *validator.Validate, logger *zap.Logger) *CalendarService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{repo: repo, validator: validate, logger: logger}
}

// CalendarListRequest describes filters for listing calendars.
type CalendarListRequest struct {
	AgentID  string `form:"agent_id"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// CreateCalendarRequest describes the create payload.
type CreateCalendarRequest struct {
	AgentID  string `json:"agent_id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	TimeZone string `json:"time_zone" validate:"omitempty,timezone"`
}

// UpdateCalendarRequest describes the update payload.
type UpdateCalendarRequest struct {
	Name     string `json:"name" validate:"required"`
	TimeZone string `json:"time_zone" validate:"omitempty,timezone"`
}

// List returns calendars with pagination metadata.
func (s *CalendarService) List(ctx context.Context, req CalendarListRequest) ([]models.Calendar, *models.Pagination, error) {
	filter := models.CalendarFilter{AgentID: strings.TrimSpace(req.AgentID), Page: req.Page, PageSize: req.PageSize}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	calendars, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list calendars")
	}
	return calendars, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a calendar by id.
func (s *CalendarService) Get(ctx context.Context, id string) (*models.Calendar, error) {
	calendar, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrNotFound, "calendar not found"), map[string]interface{}{"calendar_id": id})
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get calendar")
	}
	return calendar, nil
}

// Create registers a new calendar. The time zone defaults to UTC.
func (s *CalendarService) Create(ctx context.Context, req CreateCalendarRequest) (*models.Calendar, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	calendar := &models.Calendar{
		AgentID:  strings.TrimSpace(req.AgentID),
		Name:     strings.TrimSpace(req.Name),
		TimeZone: req.TimeZone,
	}
	if calendar.TimeZone == "" {
		calendar.TimeZone = "UTC"
	}
	if err := s.repo.Create(ctx, calendar); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create calendar")
	}
	s.logger.Info("calendar created", zap.String("calendar_id", calendar.ID), zap.String("agent_id", calendar.AgentID))
	return calendar, nil
}

// Update renames a calendar or changes its display time zone.
func (s *CalendarService) Update(ctx context.Context, id string, req UpdateCalendarRequest) (*models.Calendar, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	calendar, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	calendar.Name = strings.TrimSpace(req.Name)
	if req.TimeZone != "" {
		calendar.TimeZone = req.TimeZone
	}
	if err := s.repo.Update(ctx, calendar); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update calendar")
	}
	return calendar, nil
}
