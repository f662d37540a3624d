package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/vistoria/inspection/internal/api"
	"github.com/vistoria/inspection/internal/checklist"
	"github.com/vistoria/inspection/internal/config"
	"github.com/vistoria/inspection/internal/inspection"
	"github.com/vistoria/inspection/internal/repository"
	"github.com/vistoria/inspection/internal/scheduler"
	"github.com/vistoria/inspection/internal/session"
	"github.com/vistoria/inspection/internal/storage"
	"github.com/vistoria/inspection/internal/web"
	"github.com/vistoria/inspection/pkg/logger"
	"go.uber.org/zap"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	// Load XML configuration
	configPath := filepath.Join(exeDir, "InspectionService.config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Advanced.LogLevel)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize storage", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.Warn("failed to close repository", zap.Error(err))
		}
	}()

	// Checklist templates; the built-in default is always available
	templates := checklist.NewRegistry()
	if n, err := templates.LoadDir(cfg.Checklist.TemplateDirectory); err != nil {
		log.Warn("failed to load checklist templates", zap.String("dir", cfg.Checklist.TemplateDirectory), zap.Error(err))
	} else {
		log.Info("checklist templates loaded", zap.Int("count", n))
	}

	maxAge := time.Duration(cfg.Drafts.MaxAgeMinutes) * time.Minute
	var onExpire func([]session.Expired)
	if cfg.Drafts.DeleteOrphanImages {
		onExpire = scheduler.ImageReaper(store, logger.Named(log, "reaper"))
	}
	drafts := session.NewManager(templates,
		session.WithMaxDrafts(cfg.Drafts.MaxDrafts),
		session.WithLogger(logger.Named(log, "drafts")),
		session.WithExpiry(maxAge, onExpire),
	)

	// Start background draft cleanup
	cleaner := scheduler.NewScheduler(drafts, cfg.Drafts.CleanupSchedule, maxAge, logger.Named(log, "scheduler"))
	if err := cleaner.Start(); err != nil {
		log.Fatal("failed to start draft cleanup", zap.Error(err))
	}
	defer cleaner.Stop()

	notifier := inspection.NewLogNotifier(logger.Named(log, "notify"))

	e := echo.New()
	e.HideBanner = true

	api.SetupMiddleware(e, api.MiddlewareOptions{
		EnableCORS:     cfg.Server.EnableCORS,
		AllowOrigins:   cfg.Server.AllowOrigins,
		BodyLimit:      cfg.Server.BodyLimit,
		RequestLogging: cfg.Advanced.EnableRequestLogging,
	})

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			// Photo transfers are bounded by the server read/write timeouts
			return isImageTransfer(c)
		},
		ErrorMessage: "Request timeout",
	}))

	// Photo uploads get their own size cap
	if cfg.Storage.MaxImageSize != "" {
		e.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
			Limit: cfg.Storage.MaxImageSize,
			Skipper: func(c echo.Context) bool {
				return !isImageTransfer(c) || c.Request().Method != http.MethodPost
			},
		}))
	}

	// API Routes
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Drafts:    drafts,
		Templates: templates,
		Store:     store,
		Repo:      repo,
		Notifier:  notifier,
		Logger:    logger.Named(log, "api"),
		Backend:   cfg.Storage.Backend,
		ListLimit: cfg.Advanced.ListLimit,
		Version:   Version,
	}))

	// Server-rendered inspection form
	page, err := web.NewFormPage(web.Config{
		Templates: templates,
		Store:     store,
		Saver:     repo,
		Notifier:  notifier,
		Logger:    logger.Named(log, "web"),
	})
	if err != nil {
		log.Fatal("failed to load form page", zap.Error(err))
	}
	page.RegisterRoutes(e)

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      e,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Property Inspection Service                     ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Storage:    %-45s║\n", cfg.Storage.Backend)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.Storage.DataDirectory)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	}
}

// openStorage builds the inspection repository and the photo store for the
// configured backend. The mongo backend keeps photos in GridFS.
func openStorage(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (repository.Repository, storage.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		repo, err := repository.NewMongoRepository(connectCtx, cfg.Storage.MongoURI, cfg.Storage.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		store, err := storage.NewGridFSStore(repo.Database())
		if err != nil {
			repo.Close()
			return nil, nil, err
		}
		return repo, store, nil

	case config.BackendDuckDB:
		repo, err := repository.NewDuckRepository(cfg.Storage.DuckDBFile, logger.Named(log, "duckdb"))
		if err != nil {
			return nil, nil, err
		}
		store, err := storage.NewLocalStore(cfg.Storage.ImageDirectory)
		if err != nil {
			repo.Close()
			return nil, nil, err
		}
		return repo, store, nil

	default:
		store, err := storage.NewLocalStore(cfg.Storage.ImageDirectory)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewMemoryRepository(), store, nil
	}
}

func isImageTransfer(c echo.Context) bool {
	path := c.Request().URL.Path
	return strings.HasPrefix(path, "/api/images/") || strings.HasSuffix(path, "/images") || path == "/"
}
