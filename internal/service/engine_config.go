package service

import (
	"time"

	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/pkg/config"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
	"github.com/noah-isme/agenda-api/pkg/timeutil"
)

// WorkingHours bounds the part of each day considered schedulable.
type WorkingHours struct {
	Start timeutil.ClockTime `json:"start"`
	End   timeutil.ClockTime `json:"end"`
}

// DefaultWorkingHours is 09:00-17:00 in the canonical zone.
var DefaultWorkingHours = WorkingHours{
	Start: timeutil.ClockTime{Hour: 9},
	End:   timeutil.ClockTime{Hour: 17},
}

// ParseWorkingHours parses a pair of HH:MM values.
func ParseWorkingHours(start, end string) (WorkingHours, error) {
	s, err := timeutil.ParseClock(start)
	if err != nil {
		return WorkingHours{}, err
	}
	e, err := timeutil.ParseClock(end)
	if err != nil {
		return WorkingHours{}, err
	}
	wh := WorkingHours{Start: s, End: e}
	if !wh.Valid() {
		return WorkingHours{}, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, "working hours start must be before end"),
			map[string]interface{}{"start": start, "end": end},
		)
	}
	return wh, nil
}

// Valid reports whether Start precedes End within one day.
func (w WorkingHours) Valid() bool {
	return w.Start.Hour*60+w.Start.Minute < w.End.Hour*60+w.End.Minute
}

// Window returns the working interval of the day containing t.
func (w WorkingHours) Window(t time.Time) (time.Time, time.Time) {
	return w.Start.On(t), w.End.On(t)
}

// Contains reports whether [start, end) lies inside the working window of start's day.
func (w WorkingHours) Contains(start, end time.Time) bool {
	ws, we := w.Window(start)
	return !start.Before(ws) && !end.After(we)
}

// EngineConfig holds the scheduling policy knobs.
type EngineConfig struct {
	// Granularity is the appointment grid used by slot search and reschedule targets.
	Granularity time.Duration
	// RescheduleLookaheadDays extends the displaced-appointment search past its own day.
	// 1 means same day plus next day.
	RescheduleLookaheadDays int
	// RescheduleWorkingHours restricts reschedule targets; nil allows any time of day.
	RescheduleWorkingHours *WorkingHours
	// WorkingHours is the default window for day analysis.
	WorkingHours      WorkingHours
	MaxSearchWindow   time.Duration
	SearchDeadline    time.Duration
	MaxCandidates     int
	DefaultMaxResults int
	Ranking           models.SlotRanking
	DefaultListWindow time.Duration
}

// DefaultEngineConfig returns the documented policy defaults.
func DefaultEngineConfig() EngineConfig {
	wh := DefaultWorkingHours
	return EngineConfig{
		Granularity:             15 * time.Minute,
		RescheduleLookaheadDays: 1,
		RescheduleWorkingHours:  &wh,
		WorkingHours:            DefaultWorkingHours,
		MaxSearchWindow:         31 * 24 * time.Hour,
		SearchDeadline:          2 * time.Second,
		MaxCandidates:           20000,
		DefaultMaxResults:       5,
		Ranking:                 models.SlotRankingEarliest,
		DefaultListWindow:       7 * 24 * time.Hour,
	}
}

// NewEngineConfig maps loaded settings onto the engine policy, rejecting malformed working hours or ranking.
func NewEngineConfig(cfg config.SchedulerConfig) (EngineConfig, error) {
	wh, err := ParseWorkingHours(cfg.WorkdayStart, cfg.WorkdayEnd)
	if err != nil {
		return EngineConfig{}, err
	}
	ranking, ok := models.ParseSlotRanking(cfg.Ranking)
	if !ok {
		return EngineConfig{}, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, "unknown slot ranking"),
			map[string]interface{}{"ranking": cfg.Ranking},
		)
	}
	engine := EngineConfig{
		Granularity:             cfg.Granularity,
		RescheduleLookaheadDays: cfg.RescheduleLookaheadDays,
		WorkingHours:            wh,
		MaxSearchWindow:         cfg.MaxSearchWindow,
		SearchDeadline:          cfg.SearchDeadline,
		MaxCandidates:           cfg.MaxCandidates,
		DefaultMaxResults:       cfg.DefaultMaxResults,
		Ranking:                 ranking,
		DefaultListWindow:       cfg.DefaultListWindow,
	}
	if cfg.RescheduleWithinWorkingHours {
		restricted := wh
		engine.RescheduleWorkingHours = &restricted
	}
	return engine.withDefaults(), nil
}

func (c EngineConfig) withDefaults() EngineConfig {
	def := DefaultEngineConfig()
	if c.Granularity <= 0 {
		c.Granularity = def.Granularity
	}
	if c.RescheduleLookaheadDays < 0 {
		c.RescheduleLookaheadDays = 0
	}
	if !c.WorkingHours.Valid() {
		c.WorkingHours = def.WorkingHours
	}
	if c.MaxSearchWindow <= 0 {
		c.MaxSearchWindow = def.MaxSearchWindow
	}
	if c.SearchDeadline <= 0 {
		c.SearchDeadline = def.SearchDeadline
	}
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = def.MaxCandidates
	}
	if c.DefaultMaxResults <= 0 {
		c.DefaultMaxResults = def.DefaultMaxResults
	}
	if _, ok := models.ParseSlotRanking(string(c.Ranking)); !ok {
		c.Ranking = def.Ranking
	}
	if c.DefaultListWindow <= 0 {
		c.DefaultListWindow = def.DefaultListWindow
	}
	return c
}
