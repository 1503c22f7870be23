package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/dsr-service/internal/config"
	"github.com/iliyamo/dsr-service/internal/database"
	"github.com/iliyamo/dsr-service/internal/handler"
	"github.com/iliyamo/dsr-service/internal/logger"
	"github.com/iliyamo/dsr-service/internal/middleware"
	"github.com/iliyamo/dsr-service/internal/notify"
	"github.com/iliyamo/dsr-service/internal/queue"
	"github.com/iliyamo/dsr-service/internal/repository"
	"github.com/iliyamo/dsr-service/internal/router"
	"github.com/iliyamo/dsr-service/internal/service"
)

const shutdownGrace = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		// the logger's own settings come from config; report on stderr
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log, err := logger.New(cfg.IsDev(), cfg.LogLevel)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Params{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	rdb, err := config.NewRedisClient(ctx)
	if err != nil {
		return err
	}
	defer rdb.Close()

	users := repository.NewUserRepo(db)
	reports := repository.NewDSRRepo(db)
	codes := repository.NewOTPRepo(rdb)

	mailer := notify.NewMailer(notify.MailerConfig{
		Host:     cfg.Notify.MailHost,
		Port:     cfg.Notify.MailPort,
		Username: cfg.Notify.MailUser,
		Password: cfg.Notify.MailPass,
		From:     cfg.Notify.Sender(),
	}, log)

	var sender service.CodeSender
	switch cfg.Notify.Driver {
	case config.NotifyQueue:
		sender = queue.NewPublisher(cfg.Notify.AMQPURL, cfg.Notify.QueueName, log)
		consumer := queue.NewConsumer(cfg.Notify.AMQPURL, cfg.Notify.QueueName, mailer, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("otp consumer stopped", zap.Error(err))
			}
		}()
	case config.NotifyLog:
		sender = notify.NewLogSender(log)
	default:
		sender = mailer
	}

	authSvc := service.NewAuthService(users, codes, sender, service.AuthOptions{
		JWTSecret:  cfg.JWTSecret,
		TokenTTL:   time.Duration(cfg.AccessTTLMin) * time.Minute,
		BcryptCost: cfg.BcryptCost,
	}, log)
	reportSvc := service.NewReportService(reports, cfg.EnforceCapOnUpdate, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())

	router.RegisterRoutes(e, handler.NewHealthHandler(
		handler.Check{Name: "mysql", Ping: db.PingContext},
		handler.Check{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	))
	router.RegisterAPI(e, router.API{
		Users:     handler.NewUsersHandler(authSvc),
		DSR:       handler.NewDSRHandler(reportSvc),
		JWTSecret: cfg.JWTSecret,
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
		Cache:     middleware.NewResponseCache(config.LoadCacheConfig(), rdb, log),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr()), zap.String("env", cfg.Env),
			zap.String("notify", cfg.Notify.Driver))
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
