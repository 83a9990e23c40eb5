// Package timeutil resolves timestamp zone ambiguity into the canonical
// reference zone (UTC). Every other package consumes only values produced here.
package timeutil

import (
	"fmt"
	"strings"
	"time"

	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
)

// Canonical is the single reference zone used for storage and comparison.
var Canonical = time.UTC

// Instant is a normalized timestamp. Assumed is true when the input carried no
// zone and was interpreted as already being in the canonical zone.
type Instant struct {
	Time    time.Time `json:"time"`
	Assumed bool      `json:"zone_assumed"`
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04Z07:00",
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Normalize converts an already-typed time into the canonical zone.
func Normalize(t time.Time) time.Time {
	return t.In(Canonical)
}

// Parse resolves a textual timestamp. Values with an explicit offset are converted
// to the canonical zone; values without one are interpreted in the canonical zone.
func Parse(raw string) (Instant, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Instant{}, invalid(raw)
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return Instant{Time: Normalize(t)}, nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, Canonical); err == nil {
			return Instant{Time: t, Assumed: true}, nil
		}
	}
	return Instant{}, invalid(raw)
}

// StartOfDay truncates t to midnight in the canonical zone.
func StartOfDay(t time.Time) time.Time {
	t = Normalize(t)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Canonical)
}

// AlignUp rounds t up to the next multiple of step counted from midnight of its day.
func AlignUp(t time.Time, step time.Duration) time.Time {
	if step <= 0 {
		return t
	}
	day := StartOfDay(t)
	offset := t.Sub(day)
	rem := offset % step
	if rem == 0 {
		return t
	}
	return t.Add(step - rem)
}

// ClockTime is a wall-clock time of day in the canonical zone.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM".
func ParseClock(raw string) (ClockTime, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return ClockTime{}, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrInvalidTime, fmt.Sprintf("invalid clock time %q, expected HH:MM", raw)),
			map[string]interface{}{"value": raw},
		)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// On returns the instant of c on the canonical day containing t.
func (c ClockTime) On(t time.Time) time.Time {
	return StartOfDay(t).Add(time.Duration(c.Hour)*time.Hour + time.Duration(c.Minute)*time.Minute)
}

// String renders c as HH:MM.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// MarshalText encodes c as HH:MM.
func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes HH:MM.
func (c *ClockTime) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func invalid(raw string) error {
	return appErrors.WithDetails(
		appErrors.Clone(appErrors.ErrInvalidTime, fmt.Sprintf("cannot parse timestamp %q", raw)),
		map[string]interface{}{"value": raw},
	)
}
