package server

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/PatternLab/backend/internal/api/http"
	"github.com/GriffinCanCode/PatternLab/backend/internal/api/middleware"
	"github.com/GriffinCanCode/PatternLab/backend/internal/api/ws"
	"github.com/GriffinCanCode/PatternLab/backend/internal/domain/analyzer"
	"github.com/GriffinCanCode/PatternLab/backend/internal/domain/compiler"
	"github.com/GriffinCanCode/PatternLab/backend/internal/domain/grading"
	"github.com/GriffinCanCode/PatternLab/backend/internal/domain/registry"
	"github.com/GriffinCanCode/PatternLab/backend/internal/domain/sandbox"
	"github.com/GriffinCanCode/PatternLab/backend/internal/domain/validation"
	"github.com/GriffinCanCode/PatternLab/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/PatternLab/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/PatternLab/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/PatternLab/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/id"
	"github.com/GriffinCanCode/PatternLab/backend/internal/store"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router      *gin.Engine
	http        *nethttp.Server
	exercises   *registry.Manager
	pool        *sandbox.Pool
	coordinator *grading.Coordinator
	history     store.Store
	tracer      *tracing.Tracer
	logger      *logging.Logger
	config      *config.Config
	metrics     *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logCfg := logging.DefaultConfig()
	if cfg.Logging.Development {
		logCfg = logging.DevelopmentConfig()
	}
	if cfg.Logging.Level != "" {
		logCfg.Level = cfg.Logging.Level
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	logger.Info("Initializing PatternLab grading server",
		zap.String("port", cfg.Server.Port),
		zap.String("content_dir", cfg.Content.Dir),
		zap.Int("pool_size", cfg.Grading.PoolSize),
	)

	// Metrics first; the pool and coordinator report into it
	metrics := monitoring.NewMetrics()
	tracer := tracing.New("grading", logger)

	exercises, err := loadExercises(cfg, logger)
	if err != nil {
		tracer.Close()
		return nil, err
	}
	stats := exercises.Stats()
	for framework, count := range stats.ByFramework {
		metrics.SetExercises(framework.String(), count)
	}
	logger.Info("Exercise registry loaded", zap.Int("exercises", stats.Total))

	report := validation.Validate(exercises.All(), analyzer.New())
	for _, r := range report.Failures() {
		for _, f := range r.Findings {
			logger.Warn("Skeleton leaks implementation",
				logging.Framework(r.Exercise.Framework.String()),
				logging.Pattern(r.Exercise.Pattern),
				zap.Int("line", f.LineNumber),
				zap.String("rule", f.RuleID),
			)
		}
	}

	history, err := openHistory(cfg)
	if err != nil {
		tracer.Close()
		return nil, err
	}
	if cfg.History.DBPath != "" {
		logger.Info("Run history persisted", zap.String("db", cfg.History.DBPath))
	}

	pool := sandbox.NewPool(sandbox.Config{
		MaxCallStack: cfg.Sandbox.MaxCallStack,
		SettleWindow: cfg.Sandbox.SettleWindow,
		TaskBudget:   cfg.Sandbox.TaskBudget,
	}, cfg.Grading.PoolSize, logger, sandbox.WithAvailableHook(metrics.SetHostsAvailable))

	gradingCfg := grading.DefaultConfig()
	gradingCfg.LoadTimeout = cfg.Grading.LoadTimeout
	gradingCfg.RunTimeout = cfg.Grading.RunTimeout
	gradingCfg.MaxSubmissionBytes = cfg.Grading.MaxSubmissionBytes
	coordinator := grading.New(gradingCfg, grading.Deps{
		Hosts:     grading.PoolFactory(pool),
		Exercises: exercises,
		Programs:  compiler.NewCache(compiler.DefaultCacheSize),
		History:   history,
		Metrics:   metrics,
		Tracer:    tracer,
		Logger:    logger,
		Runs:      id.ProcessRuns(),
	})

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(middleware.Recovery(logger))
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rateCfg := middleware.DefaultRateLimitConfig()
		rateCfg.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rateCfg.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rateCfg))
	}
	router.Use(middleware.Gzip("/metrics"))

	handlers := http.NewHandlers(http.Deps{
		Exercises:   exercises,
		Coordinator: coordinator,
		History:     history,
		Pool:        pool,
		Metrics:     metrics,
		Logger:      logger,
	})
	handlers.Register(router)

	// WebSocket
	wsHandler := ws.NewHandler(coordinator, metrics, logger)
	router.GET("/sessions/:id/stream", wsHandler.HandleConnection)

	// Metrics endpoints
	metricsAggregator := http.NewMetricsAggregator(metrics, coordinator, pool)
	router.GET("/metrics", metricsAggregator.Prometheus())
	router.GET("/metrics/json", metricsAggregator.GetAggregatedMetrics)

	logger.Info("Server initialized successfully")

	return &Server{
		router:      router,
		exercises:   exercises,
		pool:        pool,
		coordinator: coordinator,
		history:     history,
		tracer:      tracer,
		logger:      logger,
		config:      cfg,
		metrics:     metrics,
	}, nil
}

func loadExercises(cfg *config.Config, logger *logging.Logger) (*registry.Manager, error) {
	exercises := registry.NewManager()
	seeder := registry.NewSeeder(exercises, cfg.Content.Dir, cfg.Content.Glob, cfg.Content.Strict, logger)
	if _, err := seeder.Seed(); err != nil {
		return nil, fmt.Errorf("seed exercises: %w", err)
	}

	if cfg.Content.URL == "" {
		return exercises, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := registry.NewRemote(registry.DefaultRemoteConfig(cfg.Content.URL), logger).Sync(ctx, exercises)
	if err != nil {
		if cfg.Content.Strict {
			return nil, fmt.Errorf("sync remote exercises: %w", err)
		}
		logger.Warn("Failed to sync remote exercises", zap.String("url", cfg.Content.URL), zap.Error(err))
		return exercises, nil
	}
	logger.Info("Remote exercises synced", zap.String("url", cfg.Content.URL), zap.Int("exercises", n))
	return exercises, nil
}

func openHistory(cfg *config.Config) (store.Store, error) {
	if cfg.History.DBPath == "" {
		return store.NewMemoryStore(0), nil
	}
	s, err := store.NewSQLiteStore(cfg.History.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}
	return s, nil
}

// Handler exposes the router
func (s *Server) Handler() nethttp.Handler {
	return s.router
}

// Run serves HTTP until Shutdown is called
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.http = &nethttp.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		return err
	}
	return nil
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Error("Failed to stop HTTP server", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop http server: %w", err))
		}
	}

	// Sessions first; they hold hosts and feed the history writer
	s.coordinator.Close()
	if err := s.pool.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close host pool: %w", err))
	}
	if err := s.history.Close(); err != nil {
		s.logger.Error("Failed to close run history", zap.Error(err))
		errs = append(errs, fmt.Errorf("close run history: %w", err))
	}
	s.tracer.Close()

	// Sync logger before exit
	_ = s.logger.Sync()
	return errors.Join(errs...)
}
