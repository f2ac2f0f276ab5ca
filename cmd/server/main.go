package main // Entry point package

import (
    "context"   // Root context cancelled on shutdown
    "errors"    // Distinguish a clean server close
    "net/http"  // http.ErrServerClosed
    "os"        // Stdout for the logger, exit codes
    "os/signal" // SIGINT/SIGTERM handling
    "syscall"   // SIGTERM
    "time"      // Shutdown grace period

    "github.com/labstack/echo/v4"                   // Echo web framework
    echomw "github.com/labstack/echo/v4/middleware" // Stock Echo middleware

    "github.com/iliyamo/tixcode/internal/clock"      // Wall clock
    "github.com/iliyamo/tixcode/internal/config"     // Internal config loader
    "github.com/iliyamo/tixcode/internal/database"   // MySQL connection and migrations
    "github.com/iliyamo/tixcode/internal/handler"    // HTTP handlers
    "github.com/iliyamo/tixcode/internal/middleware" // Request logging and role policy
    "github.com/iliyamo/tixcode/internal/queue"      // RabbitMQ audit events
    "github.com/iliyamo/tixcode/internal/repository" // MySQL repositories
    "github.com/iliyamo/tixcode/internal/router"     // Internal router setup
    "github.com/iliyamo/tixcode/internal/service"    // Domain services
)

func main() {
    cfg := config.Load()                                               // Load environment config
    logger := config.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat) // Structured logger

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    db, err := database.Open(ctx, database.Options{
        User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
    })
    if err != nil {
        logger.Error("database unavailable", "error", err)
        os.Exit(1)
    }
    defer db.Close()
    if err := database.Migrate(db); err != nil {
        logger.Error("migrations failed", "error", err)
        os.Exit(1)
    }

    rdb := config.NewRedisClient(logger) // nil disables rate limiting and caching
    if rdb != nil {
        defer rdb.Close()
    }

    // Repositories
    codes := repository.NewCodeRepo(db)
    events := repository.NewEventRepo(db)
    users := repository.NewUserRepo(db)
    orders := repository.NewOrderRepo(db)
    tokens := repository.NewTokenRepo(db)
    tx := repository.NewTxManager(db)

    clk := clock.NewSystem()
    publisher := queue.NewPublisher(cfg.RabbitURL, logger)
    policy := middleware.NewEmailAllowlist(cfg.AdminEmails)

    // Services
    issuance := service.NewIssuanceService(service.IssuanceDeps{
        Tx: tx, Codes: codes, Events: events, Users: users, Orders: orders,
        Publisher: publisher, Clock: clk, Logger: logger,
    }, cfg.MaxModifications)
    payments := service.NewPaymentService(service.PaymentConfig{
        MerchantID: cfg.Payment.MerchantID,
        HashKey:    cfg.Payment.HashKey,
        HashIV:     cfg.Payment.HashIV,
        GatewayURL: cfg.Payment.GatewayURL,
        NotifyURL:  cfg.Payment.NotifyURL,
        ReturnURL:  cfg.Payment.ReturnURL,
        PriceTWD:   cfg.CodePriceTWD,
    }, orders, events, issuance, clk, logger)
    sweeper := service.NewSweeper(codes, clk, cfg.CodeRetention, logger)
    catalog := service.NewCatalog(codes, events, clk)

    // Background workers stop with ctx.
    go func() {
        if err := queue.StartAuditConsumer(ctx, cfg.RabbitURL, logger); err != nil && !errors.Is(err, context.Canceled) {
            logger.Error("audit consumer stopped", "error", err)
        }
    }()
    go sweeper.Run(ctx, cfg.SweepInterval)

    e := echo.New()     // Create Echo instance
    e.HideBanner = true // slog owns stdout
    e.Use(echomw.Recover())
    e.Use(echomw.RequestID())
    e.Use(echomw.BodyLimit("64K"))
    e.Use(middleware.RequestLogger(logger))

    router.Register(e, router.Handlers{
        Auth: handler.NewAuthHandler(cfg, users, tokens, policy, clk, logger),
        Codes: &handler.CodeHandler{
            Issuer:      issuance,
            Redeemer:    service.NewRedemptionService(codes, users, events, clk, logger),
            Binder:      service.NewBindingService(codes, publisher, clk, logger),
            Preferences: service.NewPreferenceService(codes, events, clk, logger),
            Lister:      catalog,
            PricePoints: cfg.CodePricePoints,
            Logger:      logger,
        },
        Payments: &handler.PaymentHandler{Payments: payments, Logger: logger},
        Events:   &handler.EventHandler{Catalog: catalog, Logger: logger},
        Admin:    &handler.AdminHandler{Sweeper: sweeper, Logger: logger},
        Health:   handler.Health(db),
    }, router.Options{
        JWTSecret: cfg.JWTSecret,
        Policy:    policy,
        Redis:     rdb,
        RateLimit: config.LoadRateLimitConfig(),
        Cache:     config.LoadCacheConfig(),
        Logger:    logger,
    })

    addr := ":" + cfg.Port // Address string with port
    go func() {
        logger.Info("listening", "addr", addr, "env", cfg.Env)
        if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
            logger.Error("server failed", "error", err)
            stop()
        }
    }()

    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := e.Shutdown(shutdownCtx); err != nil {
        logger.Error("graceful shutdown failed", "error", err)
    }
    logger.Info("server stopped")
}
