package http

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"web_accessibility_analyzer/internal/adaptors"
	"web_accessibility_analyzer/internal/adaptors/auditor"
	"web_accessibility_analyzer/internal/adaptors/store"
	"web_accessibility_analyzer/internal/application/config"
	ports "web_accessibility_analyzer/internal/domain/adaptors"
	"web_accessibility_analyzer/internal/http/middleware"
	"web_accessibility_analyzer/internal/http/ws"
	"web_accessibility_analyzer/internal/pkg/errors"
	"web_accessibility_analyzer/internal/service"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

type Router struct {
	httpRouter *chi.Mux
	log        *log.Logger
}

// App holds the wired components behind the API server.
type App struct {
	DB        *sql.DB
	Store     *store.AnalysisStore
	Lifecycle *service.LifecycleManager
	Service   *service.AnalysisService
	Hub       *ws.Hub
	Handler   *chi.Mux
}

// NewApp opens and migrates the record store and wires the auditor, the
// lifecycle manager and the API routes. Background parts stop when ctx ends.
func NewApp(ctx context.Context, logger *log.Logger, appCfg *config.AppConfig) (*App, error) {
	dialect, err := store.ParseDialect(appCfg.DB.Driver)
	if err != nil {
		return nil, err
	}
	db, err := store.Open(ctx, dialect, appCfg.DB.DSN)
	if err != nil {
		return nil, errors.Wrap(err, `failed to open record store`)
	}
	if err := store.Migrate(db, dialect); err != nil {
		db.Close()
		return nil, errors.Wrap(err, `failed to migrate record store`)
	}
	analysisStore := store.NewAnalysisStore(db, dialect, ports.SystemClock{})

	mode, err := auditor.ParseMode(appCfg.Audit.Mode)
	if err != nil {
		db.Close()
		return nil, err
	}
	webClient := adaptors.NewWebClient(appCfg.Audit.Timeout, logger)
	pageAuditor, err := auditor.New(mode, logger, webClient, auditor.BrowserConfig{
		ChromePath:   appCfg.Audit.ChromePath,
		AxeScriptURL: appCfg.Audit.AxeScriptURL,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	hub := ws.NewHub(analysisStore, logger)
	go hub.Run(ctx)

	lifecycle := service.NewLifecycleManager(analysisStore, pageAuditor, hub, ports.SystemClock{}, service.LifecycleConfig{
		AuditTimeout:  appCfg.Audit.Timeout,
		MaxConcurrent: appCfg.Audit.MaxConcurrent,
	}, logger)
	analysisService := service.NewAnalysisService(analysisStore, lifecycle, hub, logger)

	var limiter *middleware.SubmitRateLimiter
	if appCfg.SubmitRatePerMinute > 0 {
		limiter = middleware.NewSubmitRateLimiter(ctx, appCfg.SubmitRatePerMinute, logger)
	}

	router := &Router{
		httpRouter: chi.NewRouter(),
		log:        logger,
	}
	initRoutes(ctx, router, RouteDeps{
		Service: analysisService,
		Hub:     hub,
		Limiter: limiter,
	})

	logger.WithFields(log.Fields{
		`db_driver`:    dialect,
		`auditor_mode`: mode,
	}).Info(`application wired`)

	return &App{
		DB:        db,
		Store:     analysisStore,
		Lifecycle: lifecycle,
		Service:   analysisService,
		Hub:       hub,
		Handler:   router.httpRouter,
	}, nil
}

func Init(ctx context.Context, log *log.Logger, appCfg *config.AppConfig) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	cfg, err := NewHTTPServerConfig()
	if err != nil {
		log.Fatalf(`Failed to load config: %v`, err)
	}

	appCtx, cancelApp := context.WithCancel(ctx)
	defer cancelApp()

	app, err := NewApp(appCtx, log, appCfg)
	if err != nil {
		log.WithError(err).Fatal(`Failed to initialise application`)
	}

	serverErrs := make(chan error, 3)

	// Create metrics server
	var metricsServer *MetricsServer
	if appCfg.MetricsHost != "" {
		metricsServer = NewMetricsServer(appCfg.MetricsHost, cfg.Timeouts.ShutdownWait, log)
		go func() { serverErrs <- metricsServer.Start() }()
	}

	// Create HTTP server
	httpServer := NewHttpServer(appCtx, cfg, app.Handler, log)
	go func() { serverErrs <- httpServer.Start() }()

	// Create pprof server (uses default http.DefaultServeMux)
	var pprofServer *PprofServer
	if appCfg.PprofHost != "" {
		pprofServer = NewPprofServer(appCfg.PprofHost, cfg.Timeouts.ShutdownWait, log)
		go func() { serverErrs <- pprofServer.Start() }()
	}

	select {
	case sig := <-sigs:
		log.WithField(`signal`, sig.String()).Info(`shutdown requested`)
	case err := <-serverErrs:
		if err != nil {
			log.WithError(err).Error(`server failed, shutting down`)
		}
	}

	if err := httpServer.Stop(); err != nil {
		log.WithError(err).Error(`failed to stop http server`)
	}

	// no new analyses can arrive now; give running ones the shutdown window
	waitCtx, cancelWait := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownWait)
	if err := app.Lifecycle.Wait(waitCtx); err != nil {
		log.WithError(err).Warn(`analyses still running at shutdown; they stay processing`)
	}
	cancelWait()
	cancelApp()

	if pprofServer != nil {
		if err := pprofServer.Stop(); err != nil {
			log.WithError(err).Error(`failed to stop pprof server`)
		}
	}

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			log.WithError(err).Error(`failed to stop metrics server`)
		}
	}

	if err := app.DB.Close(); err != nil {
		log.WithError(err).Error(`failed to close record store`)
	}
}
