package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/agenda-api/internal/models"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
	"github.com/noah-isme/agenda-api/pkg/timeutil"
)

// deadline is polled once per this many candidates.
const deadlineCheckEvery = 64

// SlotQuery describes a slot search over a bounded window.
type SlotQuery struct {
	WindowStart time.Time
	WindowEnd   time.Time
	Duration    time.Duration
	// AllowOverrideBelowPriority admits override slots whose every conflict has a numerically greater priority.
	AllowOverrideBelowPriority *int
	MaxResults                 int
	Ranking                    models.SlotRanking
	// WorkingHours optionally confines candidates to each day's working window.
	WorkingHours *WorkingHours
}

// SlotSearchEngine enumerates grid-aligned candidate slots and ranks them.
type SlotSearchEngine struct {
	store   AppointmentStore
	cfg     EngineConfig
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewSlotSearchEngine constructs the engine.
func NewSlotSearchEngine(store AppointmentStore, cfg EngineConfig, metrics *MetricsService, logger *zap.Logger) *SlotSearchEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotSearchEngine{store: store, cfg: cfg.withDefaults(), metrics: metrics, logger: logger, now: time.Now}
}

// FindSlots returns ranked free slots followed by override slots. An empty result is not an error.
func (e *SlotSearchEngine) FindSlots(ctx context.Context, calendarID string, q SlotQuery) ([]models.Slot, error) {
	started := e.now()
	q, err := e.prepare(calendarID, q)
	if err != nil {
		return nil, err
	}

	step := e.cfg.Granularity
	first := timeutil.AlignUp(q.WindowStart, step)
	candidates := 0
	if last := q.WindowEnd.Add(-q.Duration); !first.After(last) {
		candidates = int(last.Sub(first)/step) + 1
	}
	if candidates > e.cfg.MaxCandidates {
		return nil, budgetExceeded(calendarID, q, "too many candidate slots", map[string]interface{}{
			"candidates": candidates, "max_candidates": e.cfg.MaxCandidates,
		})
	}
	if candidates == 0 {
		e.metrics.ObserveSlotSearch("empty", 0, e.now().Sub(started))
		return []models.Slot{}, nil
	}

	searchCtx, cancel := context.WithTimeout(ctx, e.cfg.SearchDeadline)
	defer cancel()

	appointments, err := e.store.GetRange(searchCtx, calendarID, q.WindowStart, q.WindowEnd, false)
	if err != nil {
		if errors.Is(searchCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, budgetExceeded(calendarID, q, "slot search deadline exceeded", map[string]interface{}{"deadline": e.cfg.SearchDeadline.String()})
		}
		return nil, storeError(err, "failed to load appointments for slot search")
	}

	openness := map[string]float64{}
	var free, override []models.Slot
	evaluated := 0
	for t := first; !t.Add(q.Duration).After(q.WindowEnd); t = t.Add(step) {
		evaluated++
		if evaluated%deadlineCheckEvery == 0 && searchCtx.Err() != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.metrics.ObserveSlotSearch("budget_exceeded", evaluated, e.now().Sub(started))
			return nil, budgetExceeded(calendarID, q, "slot search deadline exceeded", map[string]interface{}{"deadline": e.cfg.SearchDeadline.String()})
		}

		end := t.Add(q.Duration)
		if q.WorkingHours != nil && !q.WorkingHours.Contains(t, end) {
			continue
		}

		slot := models.Slot{Start: t, End: end, Kind: models.SlotKindFree}
		conflicts := FilterConflicts(appointments, t, end, "")
		if len(conflicts) > 0 {
			if !overridable(conflicts, q.AllowOverrideBelowPriority) {
				continue
			}
			slot.Kind = models.SlotKindOverride
			slot.Conflicts = make([]models.ConflictSummary, 0, len(conflicts))
			for _, c := range conflicts {
				slot.Conflicts = append(slot.Conflicts, c.Summary())
			}
		}

		if q.Ranking == models.SlotRankingDayOpenness {
			day := t.Format("2006-01-02")
			score, ok := openness[day]
			if !ok {
				score = e.dayOpenness(appointments, t, q)
				openness[day] = score
			}
			slot.Score = score
		}

		if slot.Kind == models.SlotKindFree {
			free = append(free, slot)
		} else {
			override = append(override, slot)
		}
	}

	rankSlots(free, q.Ranking)
	rankSlots(override, q.Ranking)
	slots := append(append(make([]models.Slot, 0, len(free)+len(override)), free...), override...)
	if len(slots) > q.MaxResults {
		slots = slots[:q.MaxResults]
	}

	result := "found"
	if len(slots) == 0 {
		result = "empty"
	}
	e.metrics.ObserveSlotSearch(result, evaluated, e.now().Sub(started))
	e.logger.Debug("slot search finished",
		zap.String("calendar_id", calendarID),
		zap.Int("candidates", evaluated),
		zap.Int("free", len(free)),
		zap.Int("override", len(override)),
	)
	return slots, nil
}

func (e *SlotSearchEngine) prepare(calendarID string, q SlotQuery) (SlotQuery, error) {
	q.WindowStart, q.WindowEnd = timeutil.Normalize(q.WindowStart), timeutil.Normalize(q.WindowEnd)
	var problems []string
	if q.WindowStart.IsZero() || q.WindowEnd.IsZero() || !q.WindowStart.Before(q.WindowEnd) {
		problems = append(problems, "window start must be before window end")
	}
	if q.Duration <= 0 {
		problems = append(problems, "duration must be positive")
	}
	if p := q.AllowOverrideBelowPriority; p != nil && !models.ValidPriority(*p) {
		problems = append(problems, "override priority threshold must be between 1 and 5")
	}
	if q.WorkingHours != nil && !q.WorkingHours.Valid() {
		problems = append(problems, "working hours start must be before end")
	}
	if len(problems) > 0 {
		return q, invalidAppointment(calendarID, problems, q.WindowStart, q.WindowEnd)
	}
	if q.WindowEnd.Sub(q.WindowStart) > e.cfg.MaxSearchWindow {
		return q, budgetExceeded(calendarID, q, "search window too long", map[string]interface{}{
			"max_window": e.cfg.MaxSearchWindow.String(),
		})
	}
	if q.MaxResults <= 0 {
		q.MaxResults = e.cfg.DefaultMaxResults
	}
	if q.Ranking == "" {
		q.Ranking = e.cfg.Ranking
	}
	if _, ok := models.ParseSlotRanking(string(q.Ranking)); !ok {
		return q, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, "unknown slot ranking"),
			map[string]interface{}{"calendar_id": calendarID, "ranking": string(q.Ranking)},
		)
	}
	return q, nil
}

// dayOpenness is the free share of the day window containing t. The window is the working
// window when one is set, otherwise the search window clipped to that day.
func (e *SlotSearchEngine) dayOpenness(appointments []models.Appointment, t time.Time, q SlotQuery) float64 {
	var ws, we time.Time
	if q.WorkingHours != nil {
		ws, we = q.WorkingHours.Window(t)
	} else {
		ws = timeutil.StartOfDay(t)
		we = ws.Add(24 * time.Hour)
	}
	if ws.Before(q.WindowStart) {
		ws = q.WindowStart
	}
	if we.After(q.WindowEnd) {
		we = q.WindowEnd
	}
	length := we.Sub(ws)
	if length <= 0 {
		return 0
	}
	var freeSeconds int64
	for _, block := range freeBlocks(appointments, ws, we) {
		freeSeconds += block.Seconds
	}
	return float64(freeSeconds) / length.Seconds()
}

func overridable(conflicts []models.Appointment, threshold *int) bool {
	if threshold == nil {
		return false
	}
	for _, c := range conflicts {
		if c.Priority <= *threshold {
			return false
		}
	}
	return true
}

func rankSlots(slots []models.Slot, ranking models.SlotRanking) {
	sort.SliceStable(slots, func(i, j int) bool {
		if ranking == models.SlotRankingDayOpenness && slots[i].Score != slots[j].Score {
			return slots[i].Score > slots[j].Score
		}
		return slots[i].Start.Before(slots[j].Start)
	})
}

func budgetExceeded(calendarID string, q SlotQuery, message string, extra map[string]interface{}) error {
	details := map[string]interface{}{
		"calendar_id":  calendarID,
		"window_start": q.WindowStart,
		"window_end":   q.WindowEnd,
	}
	for k, v := range extra {
		details[k] = v
	}
	return appErrors.WithDetails(appErrors.Clone(appErrors.ErrSearchBudgetExceeded, message), details)
}
