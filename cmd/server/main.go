package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appfinance "github.com/erp/finance/internal/application/finance"
	"github.com/erp/finance/internal/domain/finance"
	"github.com/erp/finance/internal/infrastructure/auth"
	"github.com/erp/finance/internal/infrastructure/bankfile"
	"github.com/erp/finance/internal/infrastructure/cache"
	"github.com/erp/finance/internal/infrastructure/config"
	"github.com/erp/finance/internal/infrastructure/event"
	"github.com/erp/finance/internal/infrastructure/logger"
	"github.com/erp/finance/internal/infrastructure/migration"
	"github.com/erp/finance/internal/infrastructure/persistence"
	"github.com/erp/finance/internal/infrastructure/printing"
	"github.com/erp/finance/internal/infrastructure/scheduler"
	"github.com/erp/finance/internal/infrastructure/storage"
	"github.com/erp/finance/internal/infrastructure/telemetry"
	"github.com/erp/finance/internal/interfaces/http/handler"
	"github.com/erp/finance/internal/interfaces/http/middleware"
	"github.com/erp/finance/internal/interfaces/http/router"
	"github.com/erp/finance/migrations"
	"go.uber.org/zap"
)

const version = "1.0.0"

//	@title			Finance API
//	@version		1.0
//	@description	Receivables, payables, bank reconciliation and cash flow.

//	@contact.name	Finance Team
//	@contact.email	finance@erp.example.com

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	bootLog, err := logger.New(logger.FromAppConfig(cfg.Log))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	tel, err := telemetry.Setup(ctx, cfg.Telemetry, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			bootLog.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()

	// rebuild the logger so records also reach the collector
	log, err := logger.New(logger.FromAppConfig(cfg.Log), tel.LogCore(logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting finance service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Bool("telemetry", tel.Enabled()),
	)

	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.InstrumentGORM(db.DB, cfg.Telemetry, cfg.Database.Driver, log); err != nil {
		log.Warn("Failed to instrument database", zap.Error(err))
	}
	if err := migrateSchema(ctx, cfg, db, log); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database ready", zap.String("driver", cfg.Database.Driver))

	backends, err := cache.NewFactory(cfg.Redis, cfg.Finance.SummaryCacheTTL,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).Create(ctx)
	if err != nil {
		log.Fatal("Failed to initialize cache", zap.Error(err))
	}
	defer func() {
		if err := backends.Close(); err != nil {
			log.Error("Error closing cache", zap.Error(err))
		}
	}()

	finance.SetTextFolder(bankfile.FoldAccents)

	var archiver appfinance.FileArchiver
	if cfg.Storage.Enabled() {
		archive, err := storage.NewS3Archive(ctx, cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize statement archive", zap.Error(err))
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			log.Warn("Statement archive bucket unavailable", zap.Error(err))
		}
		archiver = archive
		log.Info("Statement archive enabled", zap.String("bucket", archive.Bucket()))
	}

	var pdf printing.PDFConverter
	if cfg.Printing.ChromeEnabled {
		chrome := printing.NewChromePDF(printing.ChromeConfig{
			ExecPath:  cfg.Printing.ChromePath,
			Timeout:   cfg.Printing.Timeout,
			NoSandbox: os.Geteuid() == 0,
			Logger:    log,
		})
		defer func() { _ = chrome.Close() }()
		pdf = chrome
	}
	renderer := printing.NewReportRenderer(pdf, log)

	bus := event.NewInMemoryEventBus(log)
	invalidator := appfinance.NewSummaryInvalidator(backends.Summary, log)
	bus.Subscribe(invalidator)
	bus.Subscribe(event.NewAuditLogger(log))
	if tel.Enabled() {
		metrics, err := telemetry.NewFinanceMetrics(tel.Meter("finance"))
		if err != nil {
			log.Warn("Failed to create finance metrics", zap.Error(err))
		} else {
			bus.Subscribe(metrics)
		}
	}

	repos := persistence.NewRepositories(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)
	opts := []appfinance.Option{
		appfinance.WithLogger(log),
		appfinance.WithEventPublisher(bus),
		appfinance.WithDefaultDueDays(cfg.Finance.DefaultDueDays),
		appfinance.WithSuggestionLimit(cfg.Finance.SuggestionLimit),
	}
	titleService := appfinance.NewTitleService(repos, txScope, backends.Summary, opts...)
	paymentService := appfinance.NewPaymentService(repos, txScope, opts...)
	reconciliationService := appfinance.NewReconciliationService(repos, txScope, bankfile.NewParser(), archiver, renderer, opts...)
	ruleService := appfinance.NewRuleService(repos.Rules, opts...)
	accountService := appfinance.NewAccountService(repos.Accounts, repos.Titles, opts...)
	collectionService := appfinance.NewCollectionService(repos, opts...)
	reportService := appfinance.NewReportService(repos.Titles, opts...)
	fundTransferService := appfinance.NewFundTransferService(repos, txScope, opts...)

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(cfg.Scheduler, log)
		if err != nil {
			log.Fatal("Failed to create scheduler", zap.Error(err))
		}
		daily := appfinance.NewDailyJob(titleService, collectionService, repos.Titles, backends.Idempotency, opts...)
		if err := sched.AddJob(cfg.Scheduler.DailyCronSchedule, daily); err != nil {
			log.Fatal("Failed to schedule daily job", zap.Error(err))
		}
		sched.Start()
		log.Info("Scheduler started",
			zap.String("schedule", cfg.Scheduler.DailyCronSchedule),
			zap.Duration("job_timeout", cfg.Scheduler.JobTimeout),
		)
	}

	jwtService := auth.NewJWTService(cfg.JWT)
	engine := router.NewEngine(cfg, log)
	engine.GET("/health", handler.NewHealthHandler(db, version).Health)
	if cfg.Swagger.Enabled {
		router.MountSwagger(engine)
	}

	router.NewRouter(engine).
		Use(middleware.JWTAuth(jwtService, log), middleware.SpanIdentity()).
		Register(
			handler.NewTitleHandler(finance.DirectionReceivable, titleService, paymentService),
			handler.NewTitleHandler(finance.DirectionPayable, titleService, paymentService),
			handler.NewFinancialHandler(paymentService, reportService),
			handler.NewReconciliationHandler(reconciliationService, cfg.HTTP.MaxUploadSize),
			handler.NewRuleHandler(ruleService, reconciliationService),
			handler.NewAccountHandler(accountService),
			handler.NewCollectionHandler(collectionService),
			handler.NewFundTransferHandler(fundTransferService),
		).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping scheduler", zap.Error(err))
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited gracefully")
}

// migrateSchema applies the SQL migrations on postgres. SQLite databases are
// local and get the schema from the models.
func migrateSchema(ctx context.Context, cfg *config.Config, db *persistence.Database, log *zap.Logger) error {
	if cfg.Database.Driver == "sqlite" {
		return db.AutoMigrate(ctx)
	}
	m, err := migration.New(cfg.Database.MigrationURL(), migrations.FS, log)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}
