package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/Ancillary-AGI/titan-sub001/internal/api/http"
	"github.com/Ancillary-AGI/titan-sub001/internal/api/middleware"
	"github.com/Ancillary-AGI/titan-sub001/internal/api/ws"
	"github.com/Ancillary-AGI/titan-sub001/internal/infrastructure/config"
	"github.com/Ancillary-AGI/titan-sub001/internal/infrastructure/logging"
	"github.com/Ancillary-AGI/titan-sub001/internal/infrastructure/monitoring"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/coordinator"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/intel"
	"github.com/Ancillary-AGI/titan-sub001/internal/storage/kv"
)

// ShutdownTimeout bounds graceful shutdown of in-flight requests
const ShutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	security *coordinator.Coordinator
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	logger.Info("Initializing security engine",
		zap.String("port", cfg.Server.Port),
		zap.Stringer("default_level", cfg.Security.DefaultLevel),
		zap.Bool("monitor", cfg.Security.MonitorEnabled),
	)

	// Metrics first, other components report into them
	metrics := monitoring.NewMetrics()

	store, err := newStore(cfg.Storage)
	if err != nil {
		return nil, err
	}

	// Threat feeds
	fetcher := intel.NewFetcher(fetcherConfig(cfg.Intel))
	feedCtx, cancel := context.WithTimeout(context.Background(), feedDeadline(cfg.Intel))
	lib, _ := coordinator.LoadLibrary(feedCtx, coordinator.FeedSources{
		Dir:     cfg.Intel.FeedDir,
		URL:     cfg.Intel.FeedURL,
		Fetcher: fetcher,
	}, logger.Component("intel"))
	cancel()
	metrics.SetBreakerState("intel", int(fetcher.BreakerState()))

	security := coordinator.New(coordinatorConfig(cfg.Security),
		coordinator.WithLogger(logger.Component("security")),
		coordinator.WithLibrary(lib),
		coordinator.WithStore(store),
		coordinator.WithMetrics(metrics),
	)

	// Persisted settings win over the environment; the monitor flag is
	// applied before Start so a disabled monitor never runs.
	settings := security.LoadSettings(context.Background())
	if !cfg.Security.MonitorEnabled && settings.ThreatMonitor {
		settings.ThreatMonitor = false
		if err := security.UpdateSettings(context.Background(), settings); err != nil {
			logger.Warn("Failed to persist settings", zap.Error(err))
		}
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger.Component("http")))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	handlers := apihttp.NewHandlers(security, metrics, logger.Component("api"))
	handlers.Register(router)

	wsHandler := ws.NewHandler(security, metrics, logger.Component("ws"))
	router.GET("/security/stream", wsHandler.HandleConnection)

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		security: security,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

func newLogger(cfg config.LogConfig) (*logging.Logger, error) {
	logCfg := logging.DefaultConfig()
	if cfg.Development {
		logCfg = logging.DevelopmentConfig()
	}
	if cfg.Level != "" {
		logCfg.Level = cfg.Level
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, nil
}

func newStore(cfg config.StorageConfig) (kv.Store, error) {
	if cfg.Dir == "" {
		return kv.NewMemory(), nil
	}
	store, err := kv.NewDir(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("open settings store: %w", err)
	}
	return store, nil
}

func fetcherConfig(cfg config.IntelConfig) intel.FetcherConfig {
	fc := intel.DefaultFetcherConfig()
	if cfg.FeedTimeout > 0 {
		fc.Timeout = cfg.FeedTimeout
	}
	return fc
}

// feedDeadline covers every retry of a remote feed at startup
func feedDeadline(cfg config.IntelConfig) time.Duration {
	fc := fetcherConfig(cfg)
	return time.Duration(fc.MaxRetries+1)*fc.Timeout + time.Duration(fc.MaxRetries)*fc.MaxWait
}

func coordinatorConfig(cfg config.SecurityConfig) coordinator.Config {
	cc := coordinator.DefaultConfig()
	cc.DefaultLevel = cfg.DefaultLevel
	if cfg.MonitorInterval > 0 {
		cc.MonitorInterval = cfg.MonitorInterval
	}
	if cfg.IsolationTimeout > 0 {
		cc.Isolation.Timeout = cfg.IsolationTimeout
	}
	if cfg.MaxIsolatedContexts > 0 {
		cc.Isolation.MaxContexts = cfg.MaxIsolatedContexts
	}
	if cfg.URLCacheSize > 0 {
		cc.URLCacheSize = cfg.URLCacheSize
	}
	cc.EventRetention = cfg.EventRetention
	return cc
}

// Handler exposes the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Security exposes the policy engine
func (s *Server) Security() *coordinator.Coordinator {
	return s.security
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if err := s.security.Start(ctx); err != nil {
		ln.Close()
		return err
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
		errChan <- srv.Serve(ln)
	}()

	select {
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	// Event streams end when the engine closes, which lets websocket
	// handlers return before Shutdown gives up on them.
	closeErr := s.security.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("Graceful shutdown incomplete", zap.Error(err))
	}
	return closeErr
}

// Close releases the engine and flushes the logger
func (s *Server) Close() error {
	err := s.security.Close()
	if err != nil {
		s.logger.Error("Failed to close security engine", zap.Error(err))
	}
	_ = s.logger.Flush()
	return err
}
