package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/chachabrian/unipool-backend/internal/config"
	"github.com/chachabrian/unipool-backend/internal/database"
	"github.com/chachabrian/unipool-backend/internal/handlers"
	"github.com/chachabrian/unipool-backend/internal/logger"
	"github.com/chachabrian/unipool-backend/internal/middleware"
	"github.com/chachabrian/unipool-backend/internal/routes"
	"github.com/chachabrian/unipool-backend/internal/services"
	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	logger.Setup(cfg.LogFile, cfg.LogLevel)

	if cfg.JWTSecret == "" {
		logrus.Fatal("JWT_SECRET must be set")
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.AppEnv,
		}); err != nil {
			logrus.Warnf("Sentry initialization failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDB(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := services.InitRedis(ctx, cfg.RedisURL)
	if err != nil {
		logrus.Fatalf("Failed to initialize Redis: %v", err)
	}
	defer rdb.Close()

	storage, err := services.InitStorage(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}

	// Push notifications are optional
	pusher, err := services.InitFirebase(ctx, cfg.FirebaseServiceAccountPath, cfg.FirebaseRidesTopic)
	if err != nil {
		logrus.Warnf("Firebase initialization warning: %v", err)
	}

	hub := services.NewHub()
	go hub.Run(ctx)
	go hub.Relay(ctx, rdb)

	notifier := services.Notifiers{services.NewRedisPublisher(rdb), pusher}
	sessions := services.NewSessionStore(rdb, cfg.SessionIdleTimeout)

	deps := routes.Deps{
		DB:       db,
		Redis:    rdb,
		Sessions: sessions,
		Accounts: services.NewAccountService(db, storage, cfg.AdminEmail),
		Rides:    services.NewRideService(db, notifier, storage),
		Bookings: services.NewBookingService(db, notifier, storage),
		Reviews:  services.NewReviewService(db),
		Admin:    services.NewAdminService(db, notifier),
		Hub:      hub,
		Auth: handlers.AuthConfig{
			Secret:       []byte(cfg.JWTSecret),
			TokenTTL:     cfg.SessionTokenTTL,
			CookieName:   cfg.SessionCookieName,
			SecureCookie: cfg.IsProduction(),
		},
		Location: cfg.AppTimeZone,
	}
	if !storage.UsingS3() {
		deps.UploadDir = storage.UploadDir()
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	r.Use(logger.RequestLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.CSRFHeader}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		corsConfig.AllowCredentials = true
	}
	r.Use(cors.New(corsConfig))

	routes.Register(r, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithField("port", cfg.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server shutdown failed")
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
