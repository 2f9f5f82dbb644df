package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"hookrelay/internal/config"
	"hookrelay/internal/constants"
	"hookrelay/internal/forwarder"
	"hookrelay/internal/ingest"
	"hookrelay/internal/logger"
	"hookrelay/internal/pageapi"
	"hookrelay/internal/retryqueue"
	"hookrelay/pkg/circuitbreaker"
	"hookrelay/pkg/health"
	"hookrelay/pkg/metrics"
	"hookrelay/pkg/middleware"
	"hookrelay/pkg/ratelimit"
	"hookrelay/pkg/retry"
)

type App struct {
	Config *config.Config
	Logger logger.Logger

	mongoClient *mongo.Client
	repo        ingest.Repository
	fwd         *forwarder.Service
	queue       *retryqueue.Manager
	router      *gin.Engine
	server      *http.Server

	// processCancel tears down in-flight background processing on shutdown.
	processCancel context.CancelFunc
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("relay-service")
	}
	return &App{
		Config: cfg,
		Logger: log,
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initMongoDB(ctx); err != nil {
		return fmt.Errorf("failed to initialize MongoDB: %w", err)
	}

	if err := a.initPipeline(ctx); err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	metrics.RegisterRelayMetrics()
	if a.Config.Admin.RateLimit.Enabled {
		metrics.RegisterRateLimitMetrics()
	}
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	if err := a.initHTTPServer(ctx); err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	return nil
}

func (a *App) initMongoDB(ctx context.Context) error {
	uri := a.Config.Database.MongoDB.URI
	if uri == "" {
		return fmt.Errorf("mongodb uri is not configured")
	}

	policy := retry.DefaultPolicy()
	err := retry.Retry(ctx, policy, func() error {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			return err
		}

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx, nil); err != nil {
			_ = client.Disconnect(ctx)
			return err
		}

		a.mongoClient = client
		return nil
	})
	if err != nil {
		return err
	}

	a.Logger.InfowCtx(ctx, "Connected to MongoDB")
	return nil
}

func (a *App) initPipeline(ctx context.Context) error {
	db := a.mongoClient.Database(a.Config.Database.MongoDB.Database)
	a.repo = ingest.NewRepository(db, a.Config.Database.MongoDB.Collections, a.Logger)

	if err := a.repo.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to ensure indexes: %w", err)
	}

	a.initDefaultPage(ctx)

	replyClient := pageapi.NewClient(
		a.Config.Upstream.GraphAPIBase,
		a.Config.Upstream.ReplyTimeout,
		a.Logger,
	)

	a.fwd = forwarder.NewService(a.Config.Forwarding, replyClient, a.Logger)
	if a.Config.CircuitBreaker.Enabled {
		a.fwd.SetBreaker(circuitbreaker.NewWrapper(a.breakerConfig()))
	}

	a.queue = retryqueue.NewManager(retryqueue.Config{
		Capacity:     a.Config.RetryQueue.Capacity,
		MaxAttempts:  a.Config.RetryQueue.MaxAttempts,
		AttemptDelay: a.Config.RetryQueue.AttemptDelay,
	}, a.fwd.Deliver, a.Logger)
	a.fwd.SetQueue(a.queue)

	service := ingest.NewService(a.repo, a.fwd, a.Config.Forwarding, a.Logger)

	processCtx, cancel := context.WithCancel(context.Background())
	a.processCancel = cancel

	handler := ingest.NewHandler(
		processCtx,
		service,
		a.repo,
		a.Config.Upstream,
		a.Config.Forwarding.Mode,
		a.Logger,
	)
	a.buildRouter(handler)

	return nil
}

// initDefaultPage seeds the page record for the configured upstream page so a
// fresh deployment can forward raw events without a manual admin call.
func (a *App) initDefaultPage(ctx context.Context) {
	if a.Config.Upstream.PageID == "" {
		return
	}

	existing := a.repo.GetPage(ctx, a.Config.Upstream.PageID)
	if existing.PageAccessToken != "" {
		return
	}

	page := ingest.PageRecord{
		PageID:          a.Config.Upstream.PageID,
		Status:          constants.PageStatusOn,
		PageAccessToken: a.Config.Upstream.PageAccessToken,
	}
	if err := a.repo.UpsertPage(ctx, page); err != nil {
		a.Logger.WarnwCtx(ctx, "Failed to seed default page record",
			"page_id", page.PageID,
			"error", err)
		return
	}
	a.Logger.InfowCtx(ctx, "Seeded default page record", "page_id", page.PageID)
}

func (a *App) breakerConfig() circuitbreaker.Config {
	cfg := circuitbreaker.DefaultConfig("backend-forward")
	cbCfg := a.Config.CircuitBreaker
	if cbCfg.MaxRequests > 0 {
		cfg.MaxRequests = cbCfg.MaxRequests
	}
	if cbCfg.Interval > 0 {
		cfg.Interval = cbCfg.Interval
	}
	if cbCfg.Timeout > 0 {
		cfg.Timeout = cbCfg.Timeout
	}
	return cfg
}

func (a *App) buildRouter(handler *ingest.Handler) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(a.Logger))
	router.Use(middleware.RecoveryMiddleware(a.Logger))

	var adminMiddleware []gin.HandlerFunc
	if a.Config.Admin.RateLimit.Enabled {
		rlCfg := ratelimit.DefaultConfig()
		if a.Config.Admin.RateLimit.RPS > 0 {
			rlCfg.RPS = a.Config.Admin.RateLimit.RPS
		}
		if a.Config.Admin.RateLimit.Burst > 0 {
			rlCfg.Burst = a.Config.Admin.RateLimit.Burst
		}
		adminMiddleware = append(adminMiddleware, ratelimit.RateLimitMiddleware(rlCfg))
	}

	handler.RegisterRoutes(router, adminMiddleware...)

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewMongoDBChecker(a.mongoClient))
	if a.Config.Forwarding.Enabled && a.Config.Forwarding.BackendURL != "" {
		healthRegistry.Register(health.NewBackendChecker(a.Config.Forwarding.BackendURL, a.Config.Forwarding.Timeout))
	}

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.router = router
}

func (a *App) initHTTPServer(_ context.Context) error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  time.Duration(a.Config.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(a.Config.Server.WriteTimeoutSeconds) * time.Second,
	}
	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.InfowCtx(ctx, "Shutting down webhook relay service")

	if a.processCancel != nil {
		a.processCancel()
	}
	if a.queue != nil {
		a.queue.Stop()
	}
	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(ctx); err != nil {
			return fmt.Errorf("MongoDB disconnect error: %w", err)
		}
	}
	return nil
}
