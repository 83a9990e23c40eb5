package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/agenda-api/api/swagger"
	"github.com/noah-isme/agenda-api/internal/handler"
	"github.com/noah-isme/agenda-api/internal/middleware"
	"github.com/noah-isme/agenda-api/internal/repository"
	"github.com/noah-isme/agenda-api/internal/routes"
	"github.com/noah-isme/agenda-api/internal/service"
	"github.com/noah-isme/agenda-api/pkg/cache"
	"github.com/noah-isme/agenda-api/pkg/config"
	"github.com/noah-isme/agenda-api/pkg/database"
	"github.com/noah-isme/agenda-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/agenda-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/agenda-api/pkg/middleware/requestid"
)

// @title Agenda API
// @version 1.0.0
// @description Appointment scheduling with priority-based conflict resolution and slot search
// @BasePath /api/v1
// @schemes http

type stores struct {
	appointments service.AppointmentStore
	calendars    service.CalendarRepository
	ping         handler.PingFunc
	closer       io.Closer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	engineCfg, err := service.NewEngineConfig(cfg.Scheduler)
	if err != nil {
		logr.Fatal("invalid scheduler configuration", zap.Error(err))
	}

	st, err := openStores(cfg.Database)
	if err != nil {
		logr.Fatal("failed to open store", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer st.closer.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	deps := map[string]handler.Pinger{"database": st.ping}

	var cacheRepo service.CacheRepository
	if cfg.DayReports.CacheEnabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, day report cache disabled", zap.Error(err))
		} else {
			repo := repository.NewCacheRepository(client, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
			deps["redis"] = repo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.DayReports.CacheTTL, logr, cacheRepo != nil)

	validate := validator.New()
	appointmentSvc := service.NewAppointmentService(st.appointments, engineCfg, cacheSvc, metrics, validate, logr)
	calendarSvc := service.NewCalendarService(st.calendars, validate, logr)
	exportSvc := service.NewExportService(appointmentSvc, st.appointments, logr, nil, nil, nil)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	routes.Register(r, cfg.APIPrefix, routes.Handlers{
		Calendars:    handler.NewCalendarHandler(calendarSvc),
		Appointments: handler.NewAppointmentHandler(appointmentSvc),
		Exports:      handler.NewExportHandler(exportSvc, 0),
		Metrics:      handler.NewMetricsHandler(metrics, deps),
		SearchLimit:  middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Handler(),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.String("driver", cfg.Database.Driver),
			zap.Int("reschedule_lookahead_days", engineCfg.RescheduleLookaheadDays),
			zap.Bool("day_report_cache", cacheSvc.Enabled()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

func openStores(cfg config.DatabaseConfig) (*stores, error) {
	if cfg.Driver == config.DriverSQLite {
		db, err := database.NewSQLite(cfg)
		if err != nil {
			return nil, err
		}
		if err := repository.MigrateSQLite(db); err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		return &stores{
			appointments: repository.NewSQLiteAppointmentStore(db),
			calendars:    repository.NewSQLiteCalendarStore(db),
			ping:         sqlDB.PingContext,
			closer:       sqlDB,
		}, nil
	}

	db, err := database.NewPostgres(cfg)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &stores{
		appointments: repository.NewAppointmentRepository(db),
		calendars:    repository.NewCalendarRepository(db),
		ping:         db.PingContext,
		closer:       db,
	}, nil
}
