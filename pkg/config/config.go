package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	CORS       CORSConfig
	Log        LogConfig
	Scheduler  SchedulerConfig
	DayReports DayReportsConfig
	RateLimit  RateLimitConfig
}

type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	SQLitePath   string
}

type RedisConfig struct {
	Host        string
	Port        int
	Password    string
	DB          int
	DialTimeout time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig carries the scheduling policy. Clock values are HH:MM in UTC.
type SchedulerConfig struct {
	Granularity                  time.Duration
	RescheduleLookaheadDays      int
	RescheduleWithinWorkingHours bool
	WorkdayStart                 string
	WorkdayEnd                   string
	MaxSearchWindow              time.Duration
	SearchDeadline               time.Duration
	MaxCandidates                int
	DefaultMaxResults            int
	Ranking                      string
	DefaultListWindow            time.Duration
}

// DayReportsConfig toggles caching of day utilization reports in Redis.
type DayReportsConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// RateLimitConfig bounds slot searches and day reports per calendar and client. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Driver:       strings.ToLower(v.GetString("DB_DRIVER")),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		SQLitePath:   v.GetString("SQLITE_PATH"),
	}
	if cfg.Database.Driver != DriverSQLite {
		cfg.Database.Driver = DriverPostgres
	}

	cfg.Redis = RedisConfig{
		Host:        v.GetString("REDIS_HOST"),
		Port:        v.GetInt("REDIS_PORT"),
		Password:    v.GetString("REDIS_PASSWORD"),
		DB:          v.GetInt("REDIS_DB"),
		DialTimeout: parseDuration(v.GetString("REDIS_DIAL_TIMEOUT"), 2*time.Second),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		Granularity:                  parseDuration(v.GetString("SCHEDULER_GRANULARITY"), 15*time.Minute),
		RescheduleLookaheadDays:      v.GetInt("SCHEDULER_RESCHEDULE_LOOKAHEAD_DAYS"),
		RescheduleWithinWorkingHours: v.GetBool("SCHEDULER_RESCHEDULE_WITHIN_WORKING_HOURS"),
		WorkdayStart:                 v.GetString("SCHEDULER_WORKDAY_START"),
		WorkdayEnd:                   v.GetString("SCHEDULER_WORKDAY_END"),
		MaxSearchWindow:              parseDuration(v.GetString("SCHEDULER_MAX_SEARCH_WINDOW"), 31*24*time.Hour),
		SearchDeadline:               parseDuration(v.GetString("SCHEDULER_SEARCH_DEADLINE"), 2*time.Second),
		MaxCandidates:                v.GetInt("SCHEDULER_MAX_CANDIDATES"),
		DefaultMaxResults:            v.GetInt("SCHEDULER_DEFAULT_MAX_RESULTS"),
		Ranking:                      v.GetString("SCHEDULER_RANKING"),
		DefaultListWindow:            parseDuration(v.GetString("SCHEDULER_DEFAULT_LIST_WINDOW"), 7*24*time.Hour),
	}

	cfg.DayReports = DayReportsConfig{
		CacheEnabled: v.GetBool("ENABLE_DAY_REPORT_CACHE"),
		CacheTTL:     parseDuration(v.GetString("DAY_REPORT_CACHE_TTL"), 5*time.Minute),
	}

	cfg.RateLimit = RateLimitConfig{
		RPS:   v.GetFloat64("SEARCH_RATE_LIMIT_RPS"),
		Burst: v.GetInt("SEARCH_RATE_LIMIT_BURST"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "agenda")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("SQLITE_PATH", "agenda.db")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "2s")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULER_GRANULARITY", "15m")
	v.SetDefault("SCHEDULER_RESCHEDULE_LOOKAHEAD_DAYS", 1)
	v.SetDefault("SCHEDULER_RESCHEDULE_WITHIN_WORKING_HOURS", true)
	v.SetDefault("SCHEDULER_WORKDAY_START", "09:00")
	v.SetDefault("SCHEDULER_WORKDAY_END", "17:00")
	v.SetDefault("SCHEDULER_MAX_SEARCH_WINDOW", "744h")
	v.SetDefault("SCHEDULER_SEARCH_DEADLINE", "2s")
	v.SetDefault("SCHEDULER_MAX_CANDIDATES", 20000)
	v.SetDefault("SCHEDULER_DEFAULT_MAX_RESULTS", 5)
	v.SetDefault("SCHEDULER_RANKING", "earliest")
	v.SetDefault("SCHEDULER_DEFAULT_LIST_WINDOW", "168h")

	v.SetDefault("ENABLE_DAY_REPORT_CACHE", false)
	v.SetDefault("DAY_REPORT_CACHE_TTL", "5m")

	v.SetDefault("SEARCH_RATE_LIMIT_RPS", 5)
	v.SetDefault("SEARCH_RATE_LIMIT_BURST", 10)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
