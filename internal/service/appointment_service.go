package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/agenda-api/internal/models"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
	"github.com/noah-isme/agenda-api/pkg/timeutil"
)

// ScheduleRequest is the typed input of Schedule.
type ScheduleRequest struct {
	Title       string        `json:"title" validate:"required"`
	Start       time.Time     `json:"start" validate:"required"`
	Duration    time.Duration `json:"duration" validate:"gt=0"`
	Priority    int           `json:"priority" validate:"min=1,max=5"`
	Description *string       `json:"description,omitempty"`
	Location    *string       `json:"location,omitempty"`
}

// RescheduleRequest moves an appointment; a zero Duration keeps the current length.
type RescheduleRequest struct {
	Start    time.Time     `json:"start" validate:"required"`
	Duration time.Duration `json:"duration" validate:"gte=0"`
}

// ListAppointmentsQuery narrows List. A zero Start defaults to the beginning of today and a zero
// End to Start plus the configured list window.
type ListAppointmentsQuery struct {
	Start       time.Time
	End         time.Time
	TitleFilter string
	Priority    *int   `validate:"omitempty,min=1,max=5"`
	Type        string `validate:"omitempty,oneof=client_meeting internal personal administrative other"`
}

// DayRangeQuery selects the dates analysed by AnalyzeDays.
type DayRangeQuery struct {
	From         time.Time `validate:"required"`
	To           time.Time `validate:"required"`
	WorkingHours *WorkingHours
}

// AppointmentService is the entry point the orchestration layer calls.
type AppointmentService struct {
	store     AppointmentStore
	detector  *ConflictDetector
	resolver  *ConflictResolver
	slots     *SlotSearchEngine
	days      *DayAnalyzer
	batch     *BatchCoordinator
	cache     *CacheService
	cfg       EngineConfig
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAppointmentService wires the engine components over one store.
func NewAppointmentService(store AppointmentStore, cfg EngineConfig, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AppointmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	return &AppointmentService{
		store:     store,
		detector:  NewConflictDetector(store),
		resolver:  NewConflictResolver(store, cfg, metrics, logger),
		slots:     NewSlotSearchEngine(store, cfg, metrics, logger),
		days:      NewDayAnalyzer(store, cfg, logger),
		batch:     NewBatchCoordinator(store, metrics, logger),
		cache:     cache,
		cfg:       cfg,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// CheckAvailability reports whether [start, end) is free.
func (s *AppointmentService) CheckAvailability(ctx context.Context, calendarID string, start, end time.Time) (*models.Availability, error) {
	conflicts, err := s.detector.FindConflicts(ctx, calendarID, start, end, "")
	if err != nil {
		return nil, err
	}
	return &models.Availability{Available: len(conflicts) == 0, Conflicts: conflicts}, nil
}

// Schedule admits a new appointment of the requested duration.
func (s *AppointmentService) Schedule(ctx context.Context, calendarID string, req ScheduleRequest) (*models.ScheduleResult, error) {
	if err := s.validator.Struct(req); err != nil {
		problems := validationProblems(err)
		return models.RejectedResult(strings.Join(problems, "; ")), invalidAppointment(calendarID, problems, req.Start, time.Time{})
	}
	start := timeutil.Normalize(req.Start)
	result, err := s.resolver.Schedule(ctx, calendarID, models.AppointmentFields{
		Title:       strings.TrimSpace(req.Title),
		Start:       start,
		End:         start.Add(req.Duration),
		Priority:    req.Priority,
		Description: req.Description,
		Location:    req.Location,
	})
	s.invalidateAfter(ctx, calendarID, err)
	return result, err
}

// Reschedule moves an existing appointment, resolving conflicts at the new position.
func (s *AppointmentService) Reschedule(ctx context.Context, calendarID, appointmentID string, req RescheduleRequest) (*models.ScheduleResult, error) {
	if err := s.validator.Struct(req); err != nil {
		problems := validationProblems(err)
		return models.RejectedResult(strings.Join(problems, "; ")), appErrors.WithDetails(
			invalidAppointment(calendarID, problems, req.Start, time.Time{}),
			map[string]interface{}{"appointment_id": appointmentID},
		)
	}
	result, err := s.resolver.Reschedule(ctx, calendarID, appointmentID, req.Start, req.Duration)
	s.invalidateAfter(ctx, calendarID, err)
	return result, err
}

// Cancel marks an appointment cancelled. Cancelling twice succeeds both times.
func (s *AppointmentService) Cancel(ctx context.Context, calendarID, appointmentID string) (*models.CancelResult, error) {
	appt, err := s.store.Cancel(ctx, calendarID, appointmentID)
	if err != nil {
		return nil, storeError(err, "failed to cancel appointment")
	}
	s.invalidate(ctx, calendarID)
	typed := appt.WithType()
	return &models.CancelResult{Cancelled: true, Appointment: &typed}, nil
}

// Get returns one appointment with its derived type.
func (s *AppointmentService) Get(ctx context.Context, calendarID, appointmentID string) (*models.Appointment, error) {
	appt, err := s.store.Get(ctx, calendarID, appointmentID)
	if err != nil {
		return nil, storeError(err, "failed to load appointment")
	}
	typed := appt.WithType()
	return &typed, nil
}

// List returns confirmed appointments overlapping the query window that match its filters.
func (s *AppointmentService) List(ctx context.Context, calendarID string, query ListAppointmentsQuery) ([]models.Appointment, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError(err, "invalid list query")
	}
	start, end := query.Start, query.End
	if start.IsZero() {
		start = timeutil.StartOfDay(s.now())
	}
	if end.IsZero() {
		end = start.Add(s.cfg.DefaultListWindow)
	}
	start, end = timeutil.Normalize(start), timeutil.Normalize(end)
	if !start.Before(end) {
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, "list window start must be before end"),
			map[string]interface{}{"calendar_id": calendarID, "start": start, "end": end},
		)
	}

	filter := models.AppointmentFilter{Start: start, End: end, TitleFilter: query.TitleFilter, Priority: query.Priority}
	if query.Type != "" {
		filter.Type, _ = models.ParseAppointmentType(query.Type)
	}

	appointments, err := s.store.GetRange(ctx, calendarID, start, end, false)
	if err != nil {
		return nil, storeError(err, "failed to list appointments")
	}
	out := make([]models.Appointment, 0, len(appointments))
	for _, appt := range appointments {
		if !appt.IsConfirmed() || !filter.Matches(appt) {
			continue
		}
		out = append(out, appt.WithType())
	}
	return out, nil
}

// FindSlots delegates to the slot search engine.
func (s *AppointmentService) FindSlots(ctx context.Context, calendarID string, query SlotQuery) ([]models.Slot, error) {
	return s.slots.FindSlots(ctx, calendarID, query)
}

// AnalyzeDays returns per-day utilization, served from cache when enabled.
func (s *AppointmentService) AnalyzeDays(ctx context.Context, calendarID string, query DayRangeQuery) (*models.DayReport, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError(err, "invalid day range")
	}
	wh := s.cfg.WorkingHours
	if query.WorkingHours != nil {
		wh = *query.WorkingHours
	}
	key := DayReportCacheKey(calendarID, query.From, query.To, wh)

	var cached models.DayReport
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	report, err := s.days.AnalyzeDays(ctx, calendarID, query.From, query.To, &wh)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, report, 0); err != nil {
		s.logger.Warn("day report cache write failed", zap.String("key", key), zap.Error(err))
	}
	return report, nil
}

// ApplyBatch delegates to the batch coordinator and invalidates cached reports when anything changed.
func (s *AppointmentService) ApplyBatch(ctx context.Context, calendarID string, updates []BatchUpdate) (*models.BatchResult, error) {
	result, err := s.batch.ApplyBatch(ctx, calendarID, updates)
	if err != nil {
		s.invalidateAfter(ctx, calendarID, err)
		return nil, err
	}
	if len(result.Updated) > 0 {
		s.invalidate(ctx, calendarID)
	}
	return result, nil
}

// invalidateAfter drops cached reports unless err shows the call was rejected before any write.
// A failed resolution may already have displaced conflicts.
func (s *AppointmentService) invalidateAfter(ctx context.Context, calendarID string, err error) {
	if appErrors.HasCode(err, appErrors.ErrInvalidAppointment) || appErrors.HasCode(err, appErrors.ErrValidation) {
		return
	}
	s.invalidate(ctx, calendarID)
}

func (s *AppointmentService) invalidate(ctx context.Context, calendarID string) {
	if err := s.cache.Invalidate(ctx, DayReportCachePattern(calendarID)); err != nil {
		s.logger.Warn("day report cache invalidation failed", zap.String("calendar_id", calendarID), zap.Error(err))
	}
}

func validationProblems(err error) []string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			problems = append(problems, fmt.Sprintf("%s is required", field))
		case "min", "max":
			problems = append(problems, fmt.Sprintf("%s must be between 1 and 5", field))
		case "gt", "gte":
			problems = append(problems, fmt.Sprintf("%s must be positive", field))
		default:
			problems = append(problems, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return problems
}
