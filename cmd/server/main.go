package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/apibase/backend/docs"
	"github.com/apibase/backend/internal/infrastructure/auth"
	"github.com/apibase/backend/internal/infrastructure/cache"
	"github.com/apibase/backend/internal/infrastructure/config"
	"github.com/apibase/backend/internal/infrastructure/logger"
	"github.com/apibase/backend/internal/infrastructure/persistence"
	"github.com/apibase/backend/internal/infrastructure/telemetry"
	"github.com/apibase/backend/internal/interfaces/http/dto"
	"github.com/apibase/backend/internal/interfaces/http/handler"
	"github.com/apibase/backend/internal/interfaces/http/middleware"
	"github.com/apibase/backend/internal/interfaces/http/router"
)

//	@title			apibase API
//	@version		0.1.0
//	@description	Reusable web backend scaffold: configuration, persistence, cache and telemetry wired and ready for application routes.

//	@contact.name	API Support
//	@contact.url	https://github.com/apibase/backend

//	@license.name	MIT

//	@host		localhost:8000
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("build logger: " + err.Error())
	}
	defer func() { _ = logger.Sync(log) }()

	log.Info("Starting apibase",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)
	log.Debug("Effective configuration", zap.Stringer("config", cfg))

	ctx := context.Background()

	tracerProvider, meterProvider := setupTelemetry(ctx, cfg, log)
	defer func() { _ = tracerProvider.Shutdown(context.Background()) }()
	defer func() { _ = meterProvider.Shutdown(context.Background()) }()

	db, closeDB := openDatabase(ctx, cfg, tracerProvider, meterProvider, log)
	defer closeDB()

	store, err := cache.NewStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Cache store creation failed", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Cache store close failed", zap.Error(err))
		}
	}()

	// Token service for templates that protect routes; nil without a secret.
	var tokens *auth.TokenService
	if cfg.Auth.Secret != "" {
		tokens = auth.NewTokenService(cfg.Auth)
	}

	engine := buildEngine(cfg, log, meterProvider)
	registerRoutes(engine, cfg, db, store, tokens)

	serve(&http.Server{
		Addr:           cfg.App.Addr(),
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}, log)
}

// setupTelemetry builds the tracer and meter providers. Both are inert when
// telemetry is disabled, so callers use them unconditionally.
func setupTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*telemetry.TracerProvider, *telemetry.MeterProvider) {
	tCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}
	tracer, err := telemetry.NewTracerProvider(ctx, tCfg, log)
	if err != nil {
		log.Fatal("Tracer provider setup failed", zap.Error(err))
	}

	mCfg := tCfg
	mCfg.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.Metrics
	meter, err := telemetry.NewMeterProvider(ctx, mCfg, log)
	if err != nil {
		log.Fatal("Meter provider setup failed", zap.Error(err))
	}

	return tracer, meter
}

// openDatabase connects, migrates and instruments the database. The returned
// cleanup stops pool metrics collection and closes the connection. An empty
// connection string yields a disabled handle rather than an error.
func openDatabase(ctx context.Context, cfg *config.Config, tracer *telemetry.TracerProvider, meter *telemetry.MeterProvider, log *zap.Logger) (*persistence.Database, func()) {
	db, err := persistence.Open(&cfg.Database, log)
	if err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}
	cleanup := func() {
		if err := db.Close(); err != nil {
			log.Error("Database close failed", zap.Error(err))
		}
	}

	if !db.Enabled() {
		log.Warn("Database disabled: no connection string configured")
		return db, cleanup
	}

	log.Info("Database connected", zap.String("url", cfg.Database.RedactedURL()))

	if cfg.Database.AutoMigrate {
		// Migration failures are logged, not fatal, so the template still
		// boots against a schema managed elsewhere.
		if err := db.AutoMigrate(); err != nil {
			log.Error("Auto-migration failed", zap.Error(err))
		} else {
			log.Info("Database tables migrated")
		}
	}

	dbMetrics, err := telemetry.InstrumentDatabase(db.DB, tracer, meter, telemetry.DBInstrumentConfig{
		Traces:             cfg.Telemetry.DBTraceEnabled,
		Metrics:            cfg.Telemetry.Metrics,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	}, log)
	if err != nil {
		log.Fatal("Database instrumentation failed", zap.Error(err))
	}
	if dbMetrics != nil {
		dbMetrics.StartPoolStats(ctx)
		closeConn := cleanup
		cleanup = func() {
			dbMetrics.Stop()
			closeConn()
		}
	}

	return db, cleanup
}

// buildEngine assembles the gin engine and its middleware chain. Order
// matters: request identity and timing stamps must exist before logging,
// and the shaping layers run before any telemetry or handler work.
func buildEngine(cfg *config.Config, log *zap.Logger, meter *telemetry.MeterProvider) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Trusted proxy configuration rejected", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(middleware.ProcessTime())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.AllowedHosts(cfg.HTTP.AllowedHosts))
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-Process-Time", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: cfg.HTTP.CORSAllowCreds,
		MaxAge:           cfg.HTTP.CORSMaxAge,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		perWindow := max(cfg.HTTP.RateLimitBurst, cfg.HTTP.RateLimitRPS)
		engine.Use(middleware.RateLimit(middleware.NewRateLimiter(perWindow, time.Second)))
		log.Info("Rate limiter active",
			zap.Int("rps", cfg.HTTP.RateLimitRPS),
			zap.Int("burst", cfg.HTTP.RateLimitBurst),
		)
	}

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanEnrichment())
	}
	if meter.IsEnabled() {
		engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: meter,
			Enabled:       true,
		}))
	}

	return engine
}

// registerRoutes mounts the root, health, documentation and versioned API
// endpoints. Application route groups slot in next to the system group as
// the template is filled in.
func registerRoutes(engine *gin.Engine, cfg *config.Config, db *persistence.Database, store cache.Store, tokens *auth.TokenService) {
	engine.NoRoute(noRouteHandler())
	engine.NoMethod(noMethodHandler())

	systemHandler := handler.NewSystemHandler(cfg, db, store)
	engine.GET("/", systemHandler.Root)
	engine.GET("/health", systemHandler.Health)

	var swaggerAuth gin.HandlerFunc
	if cfg.Swagger.RequireAuth && tokens != nil {
		swaggerAuth = middleware.BearerAuth(tokens)
	}
	engine.GET("/swagger/*any", middleware.SwaggerProtection(middleware.SwaggerConfig{
		Enabled:     cfg.Swagger.Enabled,
		RequireAuth: cfg.Swagger.RequireAuth,
		AllowedIPs:  cfg.Swagger.AllowedIPs,
	}, swaggerAuth), ginSwagger.WrapHandler(swaggerFiles.Handler))

	r := router.NewRouter(engine, router.WithPrefix(cfg.HTTP.APIPrefix))

	system := router.NewDomainGroup("system", "/system")
	system.GET("/info", systemHandler.GetSystemInfo)
	system.GET("/ping", systemHandler.Ping)
	r.Register(system)

	// Application route groups are registered here as the template is
	// filled in, e.g.:
	//
	//	items := router.NewDomainGroup("items", "/items")
	//	items.GET("", itemHandler.List)
	//	r.Register(items)

	r.Setup()

	// A bare ping inside the API prefix for load balancer checks.
	engine.GET(r.Prefix()+"/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
}

// serve runs the HTTP server until SIGINT or SIGTERM, then drains it within
// the shutdown window.
func serve(srv *http.Server, log *zap.Logger) {
	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Graceful shutdown failed", zap.Error(err))
	}

	log.Info("Server stopped")
}

// noRouteHandler answers unmatched paths with the standard error envelope.
func noRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeNotFound,
			"The requested resource was not found",
			middleware.RequestIDFromContext(c),
		))
	}
}

// noMethodHandler answers known paths hit with an unsupported method.
func noMethodHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeMethodNotAllowed,
			"Method not allowed for this resource",
			middleware.RequestIDFromContext(c),
		))
	}
}
