package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backtest-service/api"
	"backtest-service/internal/config"
	"backtest-service/internal/engine"
	"backtest-service/internal/infrastructure"
	"backtest-service/internal/service"
	"backtest-service/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// App defines the application structure and its dependencies
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	DB         *pgxpool.Pool
	NC         *nats.Conn
	JS         nats.JetStreamContext
	Service    *service.Service
	HTTPServer *http.Server
}

// NewApp creates a new application instance
func NewApp() (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	infrastructure.Init()
	logger := infrastructure.Logger

	return &App{
		Config: &cfg,
		Logger: logger,
	}, nil
}

// Init initializes all application components. The database and NATS are
// optional: without DB_DSN candles are synthesized and results stay in
// memory, and without NATS_URL no run events are published.
func (a *App) Init(ctx context.Context) error {
	var source engine.CandleSource
	var store storage.Store

	if a.Config.DB_DSN != "" {
		dbPool, err := pgxpool.Connect(ctx, a.Config.DB_DSN)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.DB = dbPool

		pgStore := storage.NewPostgresStore(dbPool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		source = engine.NewDataLoader(dbPool)
		store = pgStore
		a.Logger.Info("using postgres-backed candle source and result store")
	} else {
		source = engine.NewSyntheticSource()
		store = storage.NewMemoryStore()
		a.Logger.Info("no DB_DSN configured, using synthetic candles and in-memory store")
	}

	var events *infrastructure.EventPublisher
	if a.Config.NatsURL != "" {
		nc, js, err := infrastructure.InitNATS(a.Config.NatsURL, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		a.NC = nc
		a.JS = js
		events = infrastructure.NewEventPublisher(js, a.Logger)
	}

	engines := engine.NewRegistry()
	engines.Register(engine.TypeLocal, engine.NewBacktester(source, a.Logger))
	engines.Register(engine.TypeRemote, engine.NewRemoteEngine(a.Config.RemoteEngineURL, a.Logger))

	pool := engine.NewPool(a.Config.MaxConcurrentRuns, a.Logger)
	runTimeout := time.Duration(a.Config.RunTimeoutSeconds) * time.Second
	a.Service = service.New(engines, store, pool, events, a.Logger, runTimeout)

	return nil
}

// Run starts the HTTP server and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	a.HTTPServer = &http.Server{
		Addr:    ":" + a.Config.Port,
		Handler: a.setupRouter(),
	}

	go func() {
		a.Logger.Info("starting http server", zap.String("port", a.Config.Port))
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	return a.waitForShutdown()
}

// waitForShutdown handles graceful shutdown signals
func (a *App) waitForShutdown() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	a.Logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if a.NC != nil {
		a.NC.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}

	return nil
}

// setupRouter configures the Gin router and its routes
func (a *App) setupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	apiHandler := api.NewHandler(a.Service, a.Logger)

	v1 := r.Group("/api/v1/backtest")
	{
		v1.GET("/config", apiHandler.GetConfigOptions)
		v1.GET("/indicators", apiHandler.GetIndicators)
		v1.POST("/run", apiHandler.RunBacktest)
		v1.POST("/run/with-engine", apiHandler.RunBacktestWithEngine)
		v1.GET("/results/:id", apiHandler.GetResults)
		v1.GET("/history", apiHandler.GetHistory)
		v1.DELETE("/:id", apiHandler.DeleteBacktest)
	}

	return r
}
