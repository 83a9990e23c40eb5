package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/pkg/timeutil"
)

// interval is a half-open busy span used while searching reschedule targets.
type interval struct {
	start time.Time
	end   time.Time
}

// candidate describes the appointment being admitted.
type candidate struct {
	selfID   string
	start    time.Time
	end      time.Time
	priority int
}

// ConflictResolver admits appointments by displacing strictly lower priority conflicts.
type ConflictResolver struct {
	store    AppointmentStore
	detector *ConflictDetector
	cfg      EngineConfig
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewConflictResolver wires the resolver. A nil logger falls back to a no-op logger.
func NewConflictResolver(store AppointmentStore, cfg EngineConfig, metrics *MetricsService, logger *zap.Logger) *ConflictResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictResolver{
		store:    store,
		detector: NewConflictDetector(store),
		cfg:      cfg.withDefaults(),
		metrics:  metrics,
		logger:   logger,
	}
}

// Schedule creates an appointment, resolving any conflicts it has with existing ones first.
// A validation failure returns a rejected result together with the error and touches nothing.
func (r *ConflictResolver) Schedule(ctx context.Context, calendarID string, fields models.AppointmentFields) (*models.ScheduleResult, error) {
	fields.Start, fields.End = timeutil.Normalize(fields.Start), timeutil.Normalize(fields.End)
	if problems := fields.Problems(); len(problems) > 0 {
		return models.RejectedResult(strings.Join(problems, "; ")), invalidAppointment(calendarID, problems, fields.Start, fields.End)
	}

	conflicts, err := r.detector.FindConflicts(ctx, calendarID, fields.Start, fields.End, "")
	if err != nil {
		return nil, err
	}

	result := models.NewScheduleResult()
	in := candidate{start: fields.Start, end: fields.End, priority: fields.Priority}
	if err := r.resolve(ctx, calendarID, in, conflicts, result); err != nil {
		return nil, err
	}

	created, err := r.store.Create(ctx, calendarID, fields)
	if err != nil {
		return nil, storeError(err, "failed to create appointment")
	}
	result.Appointment = created
	r.finish("schedule", calendarID, result)
	return result, nil
}

// Reschedule moves an existing appointment to newStart. A zero newDuration keeps its current length.
// The appointment keeps its own priority when resolving conflicts at the new position.
func (r *ConflictResolver) Reschedule(ctx context.Context, calendarID, appointmentID string, newStart time.Time, newDuration time.Duration) (*models.ScheduleResult, error) {
	current, err := r.store.Get(ctx, calendarID, appointmentID)
	if err != nil {
		return nil, storeError(err, "failed to load appointment")
	}
	if !current.IsConfirmed() {
		problems := []string{"cancelled appointments cannot be rescheduled"}
		return models.RejectedResult(problems[0]), invalidAppointment(calendarID, problems, current.Start, current.End)
	}

	if newDuration == 0 {
		newDuration = current.Duration()
	}
	start := timeutil.Normalize(newStart)
	end := start.Add(newDuration)
	fields := models.AppointmentFields{Title: current.Title, Start: start, End: end, Priority: current.Priority}
	if problems := fields.Problems(); len(problems) > 0 {
		return models.RejectedResult(strings.Join(problems, "; ")), invalidAppointment(calendarID, problems, start, end)
	}

	conflicts, err := r.detector.FindConflicts(ctx, calendarID, start, end, current.ID)
	if err != nil {
		return nil, err
	}

	result := models.NewScheduleResult()
	in := candidate{selfID: current.ID, start: start, end: end, priority: current.Priority}
	if err := r.resolve(ctx, calendarID, in, conflicts, result); err != nil {
		return nil, err
	}

	version := current.Version
	updated, err := r.store.Update(ctx, calendarID, current.ID, models.AppointmentPatch{
		Start:           &start,
		End:             &end,
		ExpectedVersion: &version,
	})
	if err != nil {
		return nil, storeError(err, "failed to move appointment")
	}
	result.Appointment = updated
	r.finish("reschedule", calendarID, result)
	return result, nil
}

// resolve walks every conflict through detected -> reschedule_attempted -> {moved | cancel_attempted -> cancelled},
// or detected -> unresolved when the conflict does not yield.
func (r *ConflictResolver) resolve(ctx context.Context, calendarID string, in candidate, conflicts []models.Appointment, result *models.ScheduleResult) error {
	ordered := append([]models.Appointment(nil), conflicts...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Start.Equal(ordered[j].Start) {
			return ordered[i].Start.Before(ordered[j].Start)
		}
		return ordered[i].ID < ordered[j].ID
	})

	for _, conflict := range ordered {
		state := models.ResolutionDetected
		trail := []models.ResolutionState{state}
		for !state.Terminal() {
			switch state {
			case models.ResolutionDetected:
				if conflict.Priority > in.priority {
					state = models.ResolutionRescheduleAttempted
				} else {
					state = models.ResolutionUnresolved
					result.Unresolved = append(result.Unresolved, conflict)
				}
			case models.ResolutionRescheduleAttempted:
				moved, err := r.tryReschedule(ctx, calendarID, conflict, in)
				if err != nil {
					return err
				}
				if moved != nil {
					state = models.ResolutionMoved
					result.Moved = append(result.Moved, *moved)
				} else {
					state = models.ResolutionCancelAttempted
				}
			case models.ResolutionCancelAttempted:
				cancelled, err := r.cancelDisplaced(ctx, calendarID, conflict)
				if err != nil {
					return storeError(err, "failed to cancel displaced appointment")
				}
				state = models.ResolutionCancelled
				result.Cancelled = append(result.Cancelled, *cancelled)
			}
			trail = append(trail, state)
		}
		result.Resolutions = append(result.Resolutions, models.Resolution{AppointmentID: conflict.ID, Trail: trail})
	}
	return nil
}

// tryReschedule moves appt to the nearest later grid slot of equal length inside the look-ahead horizon.
// It returns nil when no such slot exists.
func (r *ConflictResolver) tryReschedule(ctx context.Context, calendarID string, appt models.Appointment, in candidate) (*models.Appointment, error) {
	step := r.cfg.Granularity
	duration := appt.Duration()
	first := timeutil.AlignUp(appt.Start, step)
	if !first.After(appt.Start) {
		first = first.Add(step)
	}
	horizon := timeutil.StartOfDay(appt.Start).Add(time.Duration(1+r.cfg.RescheduleLookaheadDays) * 24 * time.Hour)
	if first.Add(duration).After(horizon) {
		return nil, nil
	}

	existing, err := r.store.GetRange(ctx, calendarID, first, horizon, false)
	if err != nil {
		return nil, storeError(err, "failed to load appointments for reschedule")
	}
	busy := make([]interval, 0, len(existing)+1)
	busy = append(busy, interval{start: in.start, end: in.end})
	for _, other := range existing {
		if other.ID == appt.ID || other.ID == in.selfID || !other.IsConfirmed() {
			continue
		}
		busy = append(busy, interval{start: other.Start, end: other.End})
	}

	for t := first; !t.Add(duration).After(horizon); t = t.Add(step) {
		end := t.Add(duration)
		if wh := r.cfg.RescheduleWorkingHours; wh != nil && !wh.Contains(t, end) {
			continue
		}
		if overlapsAny(busy, t, end) {
			continue
		}
		version := appt.Version
		moved, err := r.store.Update(ctx, calendarID, appt.ID, models.AppointmentPatch{
			Start:           &t,
			End:             &end,
			ExpectedVersion: &version,
		})
		if err != nil {
			return nil, storeError(err, "failed to move displaced appointment")
		}
		return moved, nil
	}
	return nil, nil
}

// cancelDisplaced cancels appt only if it is still the version the resolver read.
func (r *ConflictResolver) cancelDisplaced(ctx context.Context, calendarID string, appt models.Appointment) (*models.Appointment, error) {
	status := models.AppointmentStatusCancelled
	version := appt.Version
	return r.store.Update(ctx, calendarID, appt.ID, models.AppointmentPatch{
		Status:          &status,
		ExpectedVersion: &version,
	})
}

func (r *ConflictResolver) finish(operation, calendarID string, result *models.ScheduleResult) {
	result.Status = models.ScheduleStatusScheduled
	if len(result.Unresolved) > 0 {
		result.Status = models.ScheduleStatusPartial
	}
	r.metrics.RecordScheduleOutcome(operation, string(result.Status), len(result.Moved), len(result.Cancelled), len(result.Unresolved))
	r.logger.Info("appointment "+operation+"d",
		zap.String("calendar_id", calendarID),
		zap.String("appointment_id", result.Appointment.ID),
		zap.String("status", string(result.Status)),
		zap.Int("moved", len(result.Moved)),
		zap.Int("cancelled", len(result.Cancelled)),
		zap.Int("unresolved", len(result.Unresolved)),
	)
}

func overlapsAny(busy []interval, start, end time.Time) bool {
	for _, b := range busy {
		if models.Overlap(b.start, b.end, start, end) {
			return true
		}
	}
	return false
}
