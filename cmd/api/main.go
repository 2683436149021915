package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/roundbuy/notification-api/internal/config"
	"github.com/roundbuy/notification-api/internal/email"
	authHandler "github.com/roundbuy/notification-api/internal/handler/auth"
	deviceHandler "github.com/roundbuy/notification-api/internal/handler/device"
	healthHandler "github.com/roundbuy/notification-api/internal/handler/health"
	heartbeatHandler "github.com/roundbuy/notification-api/internal/handler/heartbeat"
	notificationHandler "github.com/roundbuy/notification-api/internal/handler/notification"
	prometheusHandler "github.com/roundbuy/notification-api/internal/handler/prometheus"
	usernotificationHandler "github.com/roundbuy/notification-api/internal/handler/usernotification"
	"github.com/roundbuy/notification-api/internal/middleware"
	"github.com/roundbuy/notification-api/internal/repository/mysql"
	"github.com/roundbuy/notification-api/internal/router"
	"github.com/roundbuy/notification-api/internal/scheduler"
	authService "github.com/roundbuy/notification-api/internal/service/auth"
	deviceService "github.com/roundbuy/notification-api/internal/service/device"
	"github.com/roundbuy/notification-api/internal/service/dispatch"
	heartbeatService "github.com/roundbuy/notification-api/internal/service/heartbeat"
	notificationService "github.com/roundbuy/notification-api/internal/service/notification"
	usernotificationService "github.com/roundbuy/notification-api/internal/service/usernotification"
	"github.com/roundbuy/notification-api/pkg/auth"
	"github.com/roundbuy/notification-api/pkg/logger"
	"github.com/roundbuy/notification-api/pkg/messaging"
	redisBroker "github.com/roundbuy/notification-api/pkg/messaging/redis"
	"github.com/roundbuy/notification-api/pkg/metrics"
	"github.com/roundbuy/notification-api/pkg/push/fcm"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	appMetrics := metrics.New("roundbuy_notifications")

	db, err := mysql.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories
	base := mysql.NewBaseRepository(db)
	notifRepo := mysql.NewNotificationRepository(base)
	userNotifRepo := mysql.NewUserNotificationRepository(base)
	deviceRepo := mysql.NewDeviceTokenRepository(base)
	heartbeatRepo := mysql.NewHeartbeatRepository(base)
	userRepo := mysql.NewUserRepository(base)
	tokenRepo := mysql.NewTokenRepository(base)

	// Push gateway
	gateway, err := fcm.NewGateway(context.Background(), fcm.Config{
		ProjectID:       cfg.FCM.ProjectID,
		CredentialsFile: cfg.FCM.CredentialsFile,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize push gateway")
	}

	// Optional event broker
	var broker messaging.Broker
	if cfg.Redis.Enabled {
		zl := log.Logger
		broker, err = redisBroker.NewBroker(redisBroker.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: 100 * time.Millisecond,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, &zl)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
	}

	var mailer email.Service = email.NoopService{}
	if cfg.SMTP.Host != "" {
		mailer = email.NewSMTPService(email.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			BaseURL:  cfg.Server.BaseURL,
		})
	}

	jwtSvc := auth.NewJWTService(auth.Config{
		Secret:             cfg.JWT.Secret,
		RefreshSecret:      cfg.JWT.RefreshSecret,
		ExpiryHours:        cfg.JWT.ExpiryHours,
		RefreshExpiryHours: cfg.JWT.RefreshExpiryHours,
	})

	// Services
	guestRecency := time.Duration(cfg.Notifications.GuestRecencyDays) * 24 * time.Hour
	resolver := dispatch.NewResolver(userRepo, deviceRepo, guestRecency)
	dispatcher := dispatch.NewService(notifRepo, userNotifRepo, deviceRepo, resolver, gateway, broker, appLogger, appMetrics)
	notifSvc := notificationService.NewService(notifRepo, appLogger)
	deviceSvc := deviceService.NewService(deviceRepo, appLogger, appMetrics)
	heartbeatSvc := heartbeatService.NewService(heartbeatRepo, notifRepo, userNotifRepo, appLogger, appMetrics)
	userNotifSvc := usernotificationService.NewService(userNotifRepo)
	authSvc := authService.NewService(userRepo, tokenRepo, deviceSvc, jwtSvc, mailer, appLogger)

	// Scheduler for time-delayed notifications
	sched := scheduler.New(notifRepo, dispatcher, scheduler.Config{
		Interval: time.Duration(cfg.Scheduler.IntervalSeconds) * time.Second,
	}, appLogger.Named("scheduler"), appMetrics)
	if cfg.Scheduler.Enabled {
		sched.Start(context.Background())
	}

	// Middleware and handlers
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)
	promH := prometheusHandler.New(appMetrics)

	r := router.NewRouter(
		authMiddleware,
		authHandler.NewHandler(authSvc),
		deviceHandler.NewHandler(deviceSvc),
		heartbeatHandler.NewHandler(heartbeatSvc),
		usernotificationHandler.NewHandler(userNotifSvc),
		notificationHandler.NewHandler(notifSvc, dispatcher, sched),
		healthHandler.NewHandler(db),
		promH,
		router.RouterConfig{
			RateLimit:      rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:      cfg.RateLimit.Burst,
			CORSConfig:     middleware.DefaultCORSConfig(),
			TimeoutSeconds: cfg.Server.TimeoutSeconds,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Server.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
