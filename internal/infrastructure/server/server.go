package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/Smallzoamz/Bonchon-Studio/internal/api/http"
	"github.com/Smallzoamz/Bonchon-Studio/internal/api/middleware"
	"github.com/Smallzoamz/Bonchon-Studio/internal/api/ws"
	"github.com/Smallzoamz/Bonchon-Studio/internal/domain/catalog"
	"github.com/Smallzoamz/Bonchon-Studio/internal/domain/ledger"
	"github.com/Smallzoamz/Bonchon-Studio/internal/domain/orchestrator"
	"github.com/Smallzoamz/Bonchon-Studio/internal/domain/settings"
	"github.com/Smallzoamz/Bonchon-Studio/internal/events"
	"github.com/Smallzoamz/Bonchon-Studio/internal/infrastructure/config"
	"github.com/Smallzoamz/Bonchon-Studio/internal/infrastructure/monitoring"
	"github.com/Smallzoamz/Bonchon-Studio/internal/logging"
	"github.com/Smallzoamz/Bonchon-Studio/internal/providers/installer"
	"github.com/Smallzoamz/Bonchon-Studio/internal/providers/transfer"
	"github.com/Smallzoamz/Bonchon-Studio/internal/providers/uninstall"
	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/paths"
)

// catalogWarmup bounds the startup catalog load and release sync
const catalogWarmup = 2 * time.Minute

// Server wraps the HTTP server and dependencies
type Server struct {
	router       *gin.Engine
	http         *http.Server
	orchestrator *orchestrator.Orchestrator
	catalog      *catalog.Store
	logger       *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer wires every launcher component from cfg
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development, cfg.Logging.File))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	layout := paths.NewLayout(cfg.Storage.DataDir, cfg.Storage.DownloadDir)
	logger.Info("Initializing launcher daemon",
		zap.String("addr", net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)),
		zap.String("data_dir", layout.DataDir),
		zap.String("download_dir", layout.DownloadDir),
		zap.String("version", cfg.Catalog.LauncherVersion),
	)
	if err := paths.EnsureDir(layout.DataDir); err != nil {
		return nil, err
	}

	// Metrics first; every component records into them
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetricsWith(registry)

	// Persistent state
	installed, err := ledger.Open(layout.Ledger())
	if err != nil {
		return nil, err
	}
	prefs, err := settings.Open(layout.Settings(), layout.DownloadDir)
	if err != nil {
		return nil, err
	}

	hub := events.NewHub(logger)

	releases := catalog.NewGitHub(catalog.GitHubOptions{
		APIURL:            cfg.Catalog.GitHubAPI,
		Token:             cfg.Catalog.GitHubToken,
		UserAgent:         cfg.Transfer.UserAgent,
		RequestsPerSecond: cfg.Catalog.RequestsPerSec,
		ExecutableExt:     cfg.Install.ExecutableExt,
		Logger:            logger,
	})
	store := catalog.New(catalog.Options{
		URL:       cfg.Catalog.URL,
		CachePath: layout.Cache(),
		UserAgent: cfg.Transfer.UserAgent,
		Resolver:  releases,
		Logger:    logger,
		Metrics:   metrics,
	})

	transfers := transfer.NewController(transfer.Options{
		UserAgent:     cfg.Transfer.UserAgent,
		HeaderTimeout: cfg.Transfer.HeaderTimeout.Duration,
		MaxRedirects:  cfg.Transfer.MaxRedirects,
		FallbackExt:   cfg.Install.ExecutableExt,
		Logger:        logger,
		Metrics:       metrics,
	})
	placer := installer.New(installer.Options{
		ExecutableExt:  cfg.Install.ExecutableExt,
		DiscoveryDepth: cfg.Install.DiscoveryDepth,
		TickInterval:   cfg.Install.TickInterval.Duration,
		Logger:         logger,
		Metrics:        metrics,
	})
	remover := uninstall.New(uninstall.Options{
		SettleDelay: cfg.Uninstall.SettleDelay.Duration,
		Retries:     cfg.Uninstall.Retries,
		RetryDelay:  cfg.Uninstall.RetryDelay.Duration,
		Logger:      logger,
		Metrics:     metrics,
	})

	orch := orchestrator.New(orchestrator.Deps{
		Catalog:         store,
		Ledger:          installed,
		Transfers:       transfers,
		Installer:       placer,
		Uninstaller:     remover,
		Events:          hub,
		DownloadRoot:    prefs.DownloadRoot,
		Releases:        releases,
		LauncherRepo:    cfg.Catalog.LauncherRepo,
		LauncherVersion: cfg.Catalog.LauncherVersion,
		Logger:          logger,
	}).WithMetrics(metrics)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	// Register routes
	handlers := apihttp.NewHandlers(orch, store, installed, prefs, cfg.Catalog.LauncherVersion, logger).
		WithMetrics(metrics)
	handlers.Register(router)
	router.GET("/stream", ws.NewHandler(orch, hub, metrics, logger).HandleConnection)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	logger.Info("Server initialized successfully")

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		router:       router,
		http:         srv,
		orchestrator: orch,
		catalog:      store,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}, nil
}

// Handler exposes the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run loads the catalog in the background and serves HTTP until Shutdown
func (s *Server) Run() error {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.warmCatalog(s.ctx)
	}()

	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// warmCatalog replaces the built-in catalog with the remote (or cached) one
// and syncs versions with the latest GitHub releases
func (s *Server) warmCatalog(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, catalogWarmup)
	defer cancel()

	source, err := s.catalog.Refresh(ctx)
	if err != nil {
		s.logger.Warn("Catalog loaded from local source", zap.String("source", string(source)), zap.Error(err))
	}
	synced := s.catalog.Sync(ctx)
	s.logger.Info("Catalog ready",
		zap.String("source", string(source)),
		zap.Int("apps", len(s.catalog.Entries())),
		zap.Int("synced", synced),
	)
}

// Shutdown stops accepting requests, then waits for running jobs until ctx
// expires and cancels whatever is left
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var result *multierror.Error
	if err := s.http.Shutdown(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("http shutdown: %w", err))
	}
	s.cancel()
	if err := s.orchestrator.Shutdown(ctx); err != nil {
		s.logger.Warn("Jobs cancelled at shutdown", zap.Strings("active", s.orchestrator.Active()), zap.Error(err))
		result = multierror.Append(result, err)
	}
	s.wg.Wait()

	// Sync logger before exit
	_ = s.logger.Sync()

	return result.ErrorOrNil()
}
