package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/practice-rules-api/api/swagger"
	"github.com/noah-isme/practice-rules-api/internal/handler"
	"github.com/noah-isme/practice-rules-api/internal/repository"
	"github.com/noah-isme/practice-rules-api/internal/service"
	"github.com/noah-isme/practice-rules-api/migrations"
	"github.com/noah-isme/practice-rules-api/pkg/cache"
	"github.com/noah-isme/practice-rules-api/pkg/config"
	"github.com/noah-isme/practice-rules-api/pkg/database"
	"github.com/noah-isme/practice-rules-api/pkg/jobs"
	"github.com/noah-isme/practice-rules-api/pkg/logger"
)

// @title Practice Rules API
// @version 1.0.0
// @description Versioned scheduling rules for medical practices
// @BasePath /
// @schemes http https

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		applied, err := database.NewMigrator(db, migrations.Files, logr).Up(ctx)
		if err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
		logr.Info("migrations up to date", zap.Int("applied", applied))
	}

	readiness := map[string]handler.ReadinessCheck{"postgres": db.PingContext}

	var redisClient *redis.Client
	if cfg.Rules.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, rule cache disabled", zap.Error(err))
		} else {
			readiness["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	tx := database.NewTxRunner(db, cfg.Database.TxMaxRetries, cfg.Database.TxRetryDelay, logr, database.WithRetryObserver(metrics.RecordTxRetry))

	ruleCache := service.NewCacheService(cacheRepo, metrics, cfg.Rules.CacheTTL, logr, redisClient != nil)
	invalidations := jobs.NewQueue("cache-invalidation", ruleCache.HandleInvalidation, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		BufferSize: 256,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: time.Second,
		Logger:     logr,
		OnDrop: func(job jobs.Job, err error) {
			metrics.RecordInvalidation("dropped")
			logr.Error("cache invalidation abandoned", zap.String("job", job.ID), zap.Error(err))
		},
	})
	invalidations.Start(ctx)
	ruleCache.UseQueue(invalidations)
	// Active pointers may have changed while no server was running.
	if err := ruleCache.Invalidate(ctx, service.ActiveRuleSetCacheKey("*")); err != nil {
		logr.Warn("failed to clear active rule set pointers", zap.Error(err))
	}

	stores := service.Stores{
		RuleSets:         repository.NewRuleSetRepository(db),
		Rules:            repository.NewRuleRepository(db),
		Practitioners:    repository.NewPractitionerRepository(db),
		Locations:        repository.NewLocationRepository(db),
		AppointmentTypes: repository.NewAppointmentTypeRepository(db),
		BaseSchedules:    repository.NewBaseScheduleRepository(db),
		Audit:            repository.NewAuditRepository(db),
	}
	validate := validator.New()

	ruleSets := service.NewRuleSetService(tx, stores, ruleCache, metrics, validate, logr, cfg.Rules.GraphPalette)
	rules := service.NewRuleService(tx, ruleSets, stores, ruleCache, validate, logr)
	resources := service.NewResourceService(tx, ruleSets, stores, validate, logr)
	evaluations := service.NewEvaluationService(ruleSets, rules, repository.NewAppointmentRepository(db), metrics, logr, service.EvaluationConfig{
		Window:      cfg.Rules.EvaluationWindow,
		Concurrency: cfg.Rules.SimulationConcurrency,
		MaxSlots:    cfg.Rules.MaxSimulationSlots,
	})
	exports := service.NewExportService(ruleSets, rules, logr, nil, nil)
	auth := service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	router := handler.NewRouter(handler.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Metrics:        metrics,
		Tokens:         auth,
	}, handler.Handlers{
		RuleSets:    handler.NewRuleSetHandler(ruleSets),
		Rules:       handler.NewRuleHandler(rules),
		Resources:   handler.NewResourceHandler(resources),
		Evaluations: handler.NewEvaluationHandler(evaluations, exports),
		Metrics:     handler.NewMetricsHandler(metrics, readiness),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	invalidations.Stop()
}
