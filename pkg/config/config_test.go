package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.Granularity)
	assert.Equal(t, 1, cfg.Scheduler.RescheduleLookaheadDays)
	assert.True(t, cfg.Scheduler.RescheduleWithinWorkingHours)
	assert.Equal(t, "09:00", cfg.Scheduler.WorkdayStart)
	assert.Equal(t, 31*24*time.Hour, cfg.Scheduler.MaxSearchWindow)
	assert.Equal(t, 5, cfg.Scheduler.DefaultMaxResults)
	assert.False(t, cfg.DayReports.CacheEnabled)
	assert.Equal(t, 5.0, cfg.RateLimit.RPS)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("SCHEDULER_RESCHEDULE_LOOKAHEAD_DAYS", "3")
	t.Setenv("SCHEDULER_RESCHEDULE_WITHIN_WORKING_HOURS", "false")
	t.Setenv("SCHEDULER_SEARCH_DEADLINE", "not-a-duration")
	t.Setenv("SCHEDULER_RANKING", "day_openness")
	t.Setenv("ENABLE_DAY_REPORT_CACHE", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("SEARCH_RATE_LIMIT_RPS", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Scheduler.RescheduleLookaheadDays)
	assert.False(t, cfg.Scheduler.RescheduleWithinWorkingHours)
	assert.Equal(t, 2*time.Second, cfg.Scheduler.SearchDeadline, "unparseable durations fall back")
	assert.Equal(t, "day_openness", cfg.Scheduler.Ranking)
	assert.True(t, cfg.DayReports.CacheEnabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Zero(t, cfg.RateLimit.RPS)
}
