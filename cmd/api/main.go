package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_stock/internal/cache"
	"github.com/GTDGit/gtd_stock/internal/config"
	"github.com/GTDGit/gtd_stock/internal/database"
	"github.com/GTDGit/gtd_stock/internal/handler"
	"github.com/GTDGit/gtd_stock/internal/metrics"
	"github.com/GTDGit/gtd_stock/internal/middleware"
	"github.com/GTDGit/gtd_stock/internal/repository"
	"github.com/GTDGit/gtd_stock/internal/service"
	"github.com/GTDGit/gtd_stock/internal/sse"
	"github.com/GTDGit/gtd_stock/internal/utils"
	"github.com/GTDGit/gtd_stock/internal/worker"
)

// main is the application entrypoint for the stock management API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Str("timezone", cfg.Timezone).Msg("starting gtd stock api")

	// 3. Create context for startup and graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Connect database
	db, err := database.Connect(ctx, &cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 4a. Run migrations
	if err := runMigrations(db.DB, cfg.MigrationsPath); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 4b. Connect to Redis. The API keeps working without it: the dashboard
	// is computed on every call and the close worker runs unlocked.
	var (
		dashboardCache *cache.DashboardCache
		locker         *cache.Locker
	)
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable - dashboard cache and worker lock disabled")
	} else {
		defer redisClient.Close()
		dashboardCache = cache.NewDashboardCache(redisClient, cfg.Redis.DashboardTTL)
		locker = cache.NewLocker(redisClient)
		log.Info().Msg("redis connected successfully")
	}

	// 5. Metrics
	var recorder *metrics.Recorder
	if cfg.MetricsEnabled {
		recorder = metrics.New()
	}

	// 6. Initialize repositories
	regionRepo := repository.NewRegionRepository(db)
	agentRepo := repository.NewAgentRepository(db)
	stockRepo := repository.NewStockRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	txRunner := repository.NewTxScope(db)

	// 7. Change events: SSE hub, with dashboard invalidation in front of it
	hub := sse.NewHub()
	var notifier sse.Notifier = sse.NewHubNotifier(hub)
	var dc service.DashboardCache
	if dashboardCache != nil {
		notifier = cache.NewInvalidatingNotifier(notifier, dashboardCache)
		dc = dashboardCache
	}

	// 8. Initialize services
	now := service.ClockIn(cfg.Location)
	regionSvc := service.NewRegionService(regionRepo, notifier)
	agentSvc := service.NewAgentService(txRunner, agentRepo, stockRepo, saleRepo, notifier, now, cfg.PhoneDefaultRegion)
	stockSvc := service.NewStockService(txRunner, stockRepo, agentRepo, notifier, recorder, now)
	saleSvc := service.NewSaleService(txRunner, saleRepo, notifier, recorder, now)
	searchSvc := service.NewSearchService(stockRepo, saleRepo, agentRepo)
	dashboardSvc := service.NewDashboardService(regionRepo, agentRepo, stockRepo, saleRepo, snapshotRepo, dc, now)
	periodSvc := service.NewPeriodService(txRunner, agentRepo, saleRepo, snapshotRepo, notifier, recorder, now)
	reportSvc := service.NewReportService(dashboardSvc)

	// Report archive is optional
	var archive worker.ReportArchiver
	if cfg.S3.Bucket != "" {
		s3Svc, err := service.NewS3Service(ctx, &cfg.S3)
		if err != nil {
			log.Warn().Err(err).Msg("S3 service initialization failed - report archiving will be disabled")
		} else {
			archive = s3Svc
		}
	}

	// 9. Initialize handlers
	optionalChecks := map[string]handler.HealthCheck{}
	if redisClient != nil {
		optionalChecks["redis"] = redisClient.Ping
	}
	handlers := &Handlers{
		Health:    handler.NewHealthHandler(func(ctx context.Context) error { return database.Ping(ctx, db) }, optionalChecks),
		Region:    handler.NewRegionHandler(regionSvc),
		Agent:     handler.NewAgentHandler(agentSvc),
		Stock:     handler.NewStockHandler(stockSvc),
		Sale:      handler.NewSaleHandler(saleSvc),
		Search:    handler.NewSearchHandler(searchSvc),
		Dashboard: handler.NewDashboardHandler(dashboardSvc),
		Period:    handler.NewPeriodHandler(periodSvc),
		Report:    handler.NewReportHandler(reportSvc),
		SSE:       handler.NewSSEHandler(hub),
	}

	// 10. Initialize middleware
	jwtMw := middleware.NewJWTMiddleware(utils.NewJWTValidator(cfg.JWTSecret))
	searchLimiter := middleware.NewIPRateLimiter(cfg.RateLimit.SearchPerSecond, cfg.RateLimit.SearchBurst)
	go searchLimiter.Cleanup(ctx.Done())

	// 11. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORSAllowedHosts))
	router.Use(middleware.LoggingMiddleware())
	if recorder != nil {
		router.Use(middleware.MetricsMiddleware(recorder))
		router.GET("/metrics", gin.WrapH(recorder.Handler()))
	}
	setupRoutes(router, handlers, jwtMw, searchLimiter)

	// 12. Start workers
	go worker.NewPeriodCloseWorker(
		periodSvc, reportSvc, archive, lockerOrNil(locker),
		cfg.Worker.PeriodCloseInterval,
		cfg.Worker.PeriodLockTTL,
	).Start(ctx)

	// 13. Start HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 14. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 15. Cancel context to stop workers, end SSE streams
	cancel()
	hub.CloseAll()

	// 16. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// lockerOrNil keeps a nil *cache.Locker from becoming a non-nil interface.
func lockerOrNil(l *cache.Locker) worker.Locker {
	if l == nil {
		return nil
	}
	return l
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health    *handler.HealthHandler
	Region    *handler.RegionHandler
	Agent     *handler.AgentHandler
	Stock     *handler.StockHandler
	Sale      *handler.SaleHandler
	Search    *handler.SearchHandler
	Dashboard *handler.DashboardHandler
	Period    *handler.PeriodHandler
	Report    *handler.ReportHandler
	SSE       *handler.SSEHandler
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, jwtMiddleware *middleware.JWTMiddleware, searchLimiter *middleware.IPRateLimiter) {
	router.GET("/v1/health", handlers.Health.GetHealth)

	// SSE (browsers cannot set headers on EventSource, token comes in the query)
	router.GET("/v1/events", jwtMiddleware.HandleQueryToken(), handlers.SSE.Stream)

	v1 := router.Group("/v1")
	v1.Use(jwtMiddleware.Handle())
	{
		// Regions & teams
		v1.GET("/regions", handlers.Region.ListRegions)
		v1.POST("/regions", handlers.Region.CreateRegion)
		v1.GET("/teams", handlers.Region.ListTeams)
		v1.POST("/teams", handlers.Region.CreateTeam)

		// Agents
		v1.GET("/agents", handlers.Agent.ListAgents)
		v1.POST("/agents", handlers.Agent.CreateAgent)
		v1.POST("/agents/import", handlers.Agent.ImportAgents)
		v1.POST("/agents/reconcile-sales", handlers.Agent.ReconcileSales)
		v1.GET("/agents/:id", handlers.Agent.GetAgent)
		v1.PATCH("/agents/:id", handlers.Agent.UpdateAgent)
		v1.PUT("/agents/:id/status", handlers.Agent.SetAgentStatus)
		v1.DELETE("/agents/:id", handlers.Agent.DeleteAgent)

		// Stock
		v1.GET("/stock", handlers.Stock.ListStock)
		v1.POST("/stock", handlers.Stock.CreateStock)
		v1.POST("/stock/import", handlers.Stock.ImportStock)
		v1.GET("/stock/stats", handlers.Stock.GetStats)
		v1.GET("/stock/:id", handlers.Stock.GetStock)
		v1.POST("/stock/:id/assign", handlers.Stock.AssignStock)
		v1.POST("/stock/:id/unassign", handlers.Stock.UnassignStock)
		v1.DELETE("/stock/:id", handlers.Stock.DeleteStock)

		// Sales
		v1.GET("/sales", handlers.Sale.ListSales)
		v1.POST("/sales", handlers.Sale.RecordSale)
		v1.GET("/sales/:id", handlers.Sale.GetSale)
		v1.PATCH("/sales/:id", handlers.Sale.UpdateSale)
		v1.PUT("/sales/:id/paid", handlers.Sale.SetPaid)

		// Search (rate limited per IP)
		v1.GET("/search", searchLimiter.Handle(), handlers.Search.Search)

		// Dashboard & reporting
		v1.GET("/dashboard", handlers.Dashboard.GetDashboard)
		v1.GET("/channel", handlers.Dashboard.GetChannel)
		v1.GET("/packages", handler.ListPackages)
		v1.GET("/reports/monthly.xlsx", handlers.Report.MonthlyReport)

		// Periods
		v1.GET("/periods", handlers.Period.ListPeriods)
		v1.GET("/periods/:period", handlers.Period.GetPeriod)
		v1.POST("/periods/:period/close", handlers.Period.ClosePeriod)
	}
}

// runMigrations runs database migrations using golang-migrate.
func runMigrations(db *sql.DB, source string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	// Run migrations
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
