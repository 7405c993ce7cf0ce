package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/event"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/listing"
	"github.com/utafrali/storefront/internal/notify"
	"github.com/utafrali/storefront/internal/remote"
	"github.com/utafrali/storefront/internal/storage"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
)

const serviceName = "storefront-cart"

// App wires together all dependencies and runs the storefront.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	storage        storage.Storage
	producer       *pkgkafka.Producer
	detachEvents   func()
	tracerShutdown func(context.Context) error
	httpServer     *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
// It fails when the persisted cart cannot be parsed.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Tracing.
	tracingCfg := tracing.DefaultConfig(serviceName)
	tracingCfg.Environment = cfg.Environment
	tracingCfg.OTLPEndpoint = cfg.OTELEndpoint
	tracingCfg.SampleRate = cfg.OTELSampleRate
	tracingCfg.Enabled = cfg.OTELEnabled
	tracerShutdown, err := tracing.InitTracer(ctx, tracingCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		_ = tracerShutdown(ctx)
		return nil, err
	}

	// Remote lookups share one retrying client; each API gets its own breaker.
	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = cfg.APITimeout
	clientCfg.MaxRetries = cfg.APIMaxRetries
	client := httpclient.New(clientCfg)
	stockClient := remote.NewStockClient(newBreaker(client, cfg, "stock-api", logger), cfg.APIURL)
	catalogClient := remote.NewCatalogClient(newBreaker(client, cfg, "catalog-api", logger), cfg.APIURL)

	// Notifications.
	feed := notify.NewFeed(cfg.NotificationFeed)
	notifiers := notify.Multi{notify.NewLogNotifier(logger), feed}

	var producer *pkgkafka.Producer
	if cfg.KafkaEnabled {
		producer = pkgkafka.NewProducer(kafkaProducerConfig(cfg), logger)
		notifiers = append(notifiers, notify.NewKafkaNotifier(producer, logger))
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	store, err := cart.NewStore(ctx, st, stockClient, catalogClient, notifiers, logger)
	if err != nil {
		_ = st.Close()
		_ = tracerShutdown(ctx)
		return nil, fmt.Errorf("load cart: %w", err)
	}

	detachEvents := func() {}
	if producer != nil {
		detachEvents = event.NewProducer(producer, cfg.CartID, logger).Attach(store)
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("storage", st.Ping)
	if producer != nil {
		healthHandler.Register("kafka", producer.Ping)
	}
	logger.Info("readiness checks registered", slog.Any("checks", healthHandler.Names()))

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSOrigins

	router := handler.NewRouter(handler.RouterDeps{
		Cart:          store,
		Listing:       listing.NewService(catalogClient, store),
		Notifications: feed,
		Health:        healthHandler,
		CORS:          cors,
		Logger:        logger,

		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		storage:        st,
		producer:       producer,
		detachEvents:   detachEvents,
		tracerShutdown: tracerShutdown,
		httpServer:     httpServer,
	}, nil
}

// kafkaProducerConfig makes publishing fire-and-forget: notifications and cart
// events are written while the cart store holds its operation lock.
func kafkaProducerConfig(cfg *config.Config) pkgkafka.ProducerConfig {
	kcfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	kcfg.Async = true
	return kcfg
}

func newBreaker(client *httpclient.Client, cfg *config.Config, name string, logger *slog.Logger) *httpclient.CircuitBreakerClient {
	cbCfg := httpclient.DefaultCircuitBreakerConfig(name)
	cbCfg.FailureRatio = cfg.CBFailureRatio
	cbCfg.MinRequests = cfg.CBMinRequests
	cbCfg.Timeout = cfg.CBOpenTimeout
	return httpclient.NewCircuitBreakerClient(client, cbCfg, logger).WithFallback(remote.CircuitOpenFallback)
}

// Handler returns the HTTP handler served by the application.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.detachEvents()
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if err := a.storage.Close(); err != nil {
		a.logger.Error("storage close error", slog.String("error", err.Error()))
	}

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
