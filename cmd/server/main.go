package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"certhub/config"
	"certhub/internal/api/handler"
	"certhub/internal/api/middleware"
	"certhub/internal/api/router"
	"certhub/internal/model"
	"certhub/internal/repository"
	"certhub/internal/service"
	"certhub/internal/worker/delivery"
	"certhub/internal/worker/reminder"
	"certhub/pkg/database"
	"certhub/pkg/directory"
	"certhub/pkg/jwt"
	applogger "certhub/pkg/logger"
	"certhub/pkg/mailer"
	"certhub/pkg/metrics"
	"certhub/pkg/redis"
	"certhub/pkg/renderer"
	"certhub/pkg/signer"
)

func main() {
	// 1. config
	cfg, err := config.Load(os.Getenv("CERTHUB_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// 2. logger
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting",
		zap.Int("port", cfg.Server.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. database + schema
	db, err := database.NewDB(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	if err := database.Migrate(db, logger, model.All()...); err != nil {
		logger.Fatal("migrate database", zap.Error(err))
	}

	// 4. Redis is optional: without it the token blacklist and the verify
	// rate limit are disabled.
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis unavailable, rate limiting and token revocation disabled", zap.Error(err))
		rdb = nil
	}

	// 5. crypto + auth
	sg, err := signer.New(cfg.Signing.Secret, cfg.Signing.KeyID)
	if err != nil {
		logger.Fatal("init signer", zap.Error(err))
	}
	for _, k := range cfg.Signing.Retired {
		if err := sg.AddKey(k.Secret, k.KeyID); err != nil {
			logger.Fatal("load retired signing key", zap.String("key_id", k.KeyID), zap.Error(err))
		}
	}
	logger.Info("certificate signing key loaded",
		zap.String("key_id", sg.KeyID()),
		zap.String("public_key", sg.PublicKey()),
	)
	jwtMgr := jwt.NewManager(&cfg.Auth)
	if err := middleware.RegisterValidators(); err != nil {
		logger.Fatal("register validators", zap.Error(err))
	}

	// 6. wiring: repository → service → handler
	m := metrics.New()
	repo := repository.NewRepository(db)
	pool := delivery.NewPool(nil, cfg.Delivery.Workers, cfg.Delivery.QueueSize, logger.Named("delivery"))

	svc := service.NewService(cfg, service.Deps{
		Repo:      repo,
		Signer:    sg,
		Directory: directory.NewClient(&cfg.Directory),
		Renderer:  renderer.NewClient(&cfg.Renderer),
		Mailer:    mailer.New(&cfg.Mail, logger.Named("mailer")),
		Queue:     pool,
		Metrics:   m,
		Logger:    logger,
	})
	pool.SetProcessor(svc.Delivery)

	checks := []handler.HealthCheck{{Name: "database", Required: true, Check: repo.Ping}}
	if rdb != nil {
		checks = append(checks, handler.HealthCheck{Name: "redis", Check: rdb.Ping})
	}
	h := handler.NewHandler(svc, checks...)

	// 7. background workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	pool.Start(workerCtx)

	var sched *reminder.Scheduler
	if cfg.Certificate.ReminderSchedule != "" {
		sched, err = reminder.New(cfg.Certificate.ReminderSchedule, svc.Delivery, logger.Named("reminder"))
		if err != nil {
			logger.Fatal("init reminder scheduler", zap.Error(err))
		}
		sched.Start()
	}

	// 8. HTTP server with graceful shutdown
	gin.SetMode(gin.ReleaseMode)
	engine := router.Setup(cfg, h, jwtMgr, rdb, m, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // bulk generation and PDF rendering
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("http server shutdown", zap.Error(err))
	}
	if sched != nil {
		sched.Stop(ctx)
	}
	pool.Stop(ctx)

	if sqlDB, _ := db.DB(); sqlDB != nil {
		sqlDB.Close()
	}
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("stopped")
}
