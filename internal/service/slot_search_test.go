package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agenda-api/internal/models"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
)

func intPtr(v int) *int { return &v }

func TestFindSlotsFullyBookedReturnsEmpty(t *testing.T) {
	store := newMemoryStore(cal)
	for h := 9; h < 17; h++ {
		store.seed(cal, "Blocked", at(2, h, 0), at(2, h+1, 0), 1)
	}
	engine := NewSlotSearchEngine(store, DefaultEngineConfig(), nil, nil)

	slots, err := engine.FindSlots(context.Background(), cal, SlotQuery{
		WindowStart: at(2, 9, 0), WindowEnd: at(2, 17, 0), Duration: 30 * time.Minute, MaxResults: 10,
	})
	require.NoError(t, err)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)
}

func TestFindSlotsFreeSlotsAreGridAlignedAndConflictFree(t *testing.T) {
	store := newMemoryStore(cal)
	store.seed(cal, "Showing", at(2, 10, 0), at(2, 11, 0), 3)
	engine := NewSlotSearchEngine(store, DefaultEngineConfig(), nil, nil)

	windowStart, windowEnd := at(2, 9, 5), at(2, 12, 0)
	slots, err := engine.FindSlots(context.Background(), cal, SlotQuery{
		WindowStart: windowStart, WindowEnd: windowEnd, Duration: time.Hour, MaxResults: 20,
	})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, at(2, 11, 0), slots[0].Start, "09:15 through 10:45 all touch the showing")

	all, err := store.GetRange(context.Background(), cal, windowStart, windowEnd, false)
	require.NoError(t, err)
	for _, s := range slots {
		assert.Equal(t, models.SlotKindFree, s.Kind)
		assert.Equal(t, time.Hour, s.End.Sub(s.Start))
		assert.False(t, s.Start.Before(windowStart))
		assert.False(t, s.End.After(windowEnd))
		assert.Empty(t, FilterConflicts(all, s.Start, s.End, ""))
	}
}

func TestFindSlotsOverrideRespectsThreshold(t *testing.T) {
	store := newMemoryStore(cal)
	store.seed(cal, "Low", at(2, 10, 0), at(2, 11, 0), 4)
	store.seed(cal, "High", at(2, 12, 0), at(2, 13, 0), 2)
	engine := NewSlotSearchEngine(store, DefaultEngineConfig(), nil, nil)

	threshold := 3
	slots, err := engine.FindSlots(context.Background(), cal, SlotQuery{
		WindowStart: at(2, 9, 0), WindowEnd: at(2, 14, 0), Duration: time.Hour,
		AllowOverrideBelowPriority: intPtr(threshold), MaxResults: 100,
	})
	require.NoError(t, err)
	require.NotEmpty(t, slots)

	seenOverride := false
	for _, s := range slots {
		if s.Kind == models.SlotKindFree {
			assert.False(t, seenOverride, "free slots rank before override slots")
			continue
		}
		seenOverride = true
		require.NotEmpty(t, s.Conflicts)
		for _, c := range s.Conflicts {
			assert.Greater(t, c.Priority, threshold)
		}
	}
	assert.True(t, seenOverride)
}

func TestFindSlotsWithoutThresholdSkipsOccupied(t *testing.T) {
	store := newMemoryStore(cal)
	store.seed(cal, "Low", at(2, 9, 0), at(2, 10, 0), 5)
	engine := NewSlotSearchEngine(store, DefaultEngineConfig(), nil, nil)

	slots, err := engine.FindSlots(context.Background(), cal, SlotQuery{
		WindowStart: at(2, 9, 0), WindowEnd: at(2, 10, 0), Duration: 30 * time.Minute,
	})
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestFindSlotsTruncatesAndFetchesOnce(t *testing.T) {
	store := newMemoryStore(cal)
	engine := NewSlotSearchEngine(store, DefaultEngineConfig(), nil, nil)

	slots, err := engine.FindSlots(context.Background(), cal, SlotQuery{
		WindowStart: at(2, 9, 0), WindowEnd: at(2, 17, 0), Duration: 30 * time.Minute, MaxResults: 3,
	})
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, at(2, 9, 0), slots[0].Start)
	assert.Equal(t, at(2, 9, 15), slots[1].Start)
	assert.Equal(t, 1, store.rangeCalls)
}

func TestFindSlotsDayOpennessPrefersEmptierDay(t *testing.T) {
	store := newMemoryStore(cal)
	store.seed(cal, "Busy morning", at(2, 9, 0), at(2, 13, 0), 3)
	engine := NewSlotSearchEngine(store, DefaultEngineConfig(), nil, nil)

	wh := DefaultWorkingHours
	slots, err := engine.FindSlots(context.Background(), cal, SlotQuery{
		WindowStart: at(2, 0, 0), WindowEnd: at(4, 0, 0), Duration: time.Hour,
		MaxResults: 2, Ranking: models.SlotRankingDayOpenness, WorkingHours: &wh,
	})
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, at(3, 9, 0), slots[0].Start)
	assert.Equal(t, at(3, 9, 15), slots[1].Start)
	assert.InDelta(t, 1.0, slots[0].Score, 1e-9)
}

func TestFindSlotsWorkingHoursConfineCandidates(t *testing.T) {
	engine := NewSlotSearchEngine(newMemoryStore(cal), DefaultEngineConfig(), nil, nil)
	wh := DefaultWorkingHours

	slots, err := engine.FindSlots(context.Background(), cal, SlotQuery{
		WindowStart: at(2, 0, 0), WindowEnd: at(3, 0, 0), Duration: 8 * time.Hour, MaxResults: 5, WorkingHours: &wh,
	})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, at(2, 9, 0), slots[0].Start)
}

func TestFindSlotsBudget(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.MaxCandidates = 10
	engine := NewSlotSearchEngine(newMemoryStore(cal), cfg, nil, nil)

	_, err := engine.FindSlots(context.Background(), cal, SlotQuery{
		WindowStart: at(2, 9, 0), WindowEnd: at(2, 17, 0), Duration: 30 * time.Minute,
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrSearchBudgetExceeded))

	_, err = engine.FindSlots(context.Background(), cal, SlotQuery{
		WindowStart: at(1, 0, 0), WindowEnd: at(1, 0, 0).AddDate(0, 2, 0), Duration: time.Hour,
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrSearchBudgetExceeded))
	assert.Equal(t, cal, appErrors.FromError(err).Details["calendar_id"])
}

func TestFindSlotsRejectsBadQuery(t *testing.T) {
	engine := NewSlotSearchEngine(newMemoryStore(cal), DefaultEngineConfig(), nil, nil)

	_, err := engine.FindSlots(context.Background(), cal, SlotQuery{WindowStart: at(2, 9, 0), WindowEnd: at(2, 17, 0)})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidAppointment))

	_, err = engine.FindSlots(context.Background(), cal, SlotQuery{
		WindowStart: at(2, 9, 0), WindowEnd: at(2, 17, 0), Duration: time.Hour, AllowOverrideBelowPriority: intPtr(0),
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidAppointment))

	_, err = engine.FindSlots(context.Background(), cal, SlotQuery{
		WindowStart: at(2, 9, 0), WindowEnd: at(2, 17, 0), Duration: time.Hour, Ranking: "random",
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestFindSlotsDurationLongerThanWindow(t *testing.T) {
	engine := NewSlotSearchEngine(newMemoryStore(cal), DefaultEngineConfig(), nil, nil)
	slots, err := engine.FindSlots(context.Background(), cal, SlotQuery{
		WindowStart: at(2, 9, 0), WindowEnd: at(2, 10, 0), Duration: 2 * time.Hour,
	})
	require.NoError(t, err)
	assert.Empty(t, slots)
}
