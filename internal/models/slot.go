package models

import "time"

// SlotKind distinguishes free intervals from intervals usable only by overriding others.
type SlotKind string

const (
	SlotKindFree     SlotKind = "free"
	SlotKindOverride SlotKind = "override"
)

// SlotRanking selects how candidates of the same kind are ordered.
type SlotRanking string

const (
	// SlotRankingEarliest orders by start time.
	SlotRankingEarliest SlotRanking = "earliest"
	// SlotRankingDayOpenness orders by the share of the day's window that is free, highest first.
	SlotRankingDayOpenness SlotRanking = "day_openness"
)

// ParseSlotRanking validates a ranking name.
func ParseSlotRanking(raw string) (SlotRanking, bool) {
	switch r := SlotRanking(raw); r {
	case SlotRankingEarliest, SlotRankingDayOpenness:
		return r, true
	default:
		return "", false
	}
}

// ConflictSummary identifies an appointment standing in the way of a slot.
type ConflictSummary struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Priority int       `json:"priority"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// Slot is a derived candidate interval, never persisted.
type Slot struct {
	Start     time.Time         `json:"start"`
	End       time.Time         `json:"end"`
	Kind      SlotKind          `json:"kind"`
	Score     float64           `json:"score,omitempty"`
	Conflicts []ConflictSummary `json:"conflicts,omitempty"`
}
