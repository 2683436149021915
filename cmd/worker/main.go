package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/roundbuy/notification-api/internal/config"
	"github.com/roundbuy/notification-api/internal/repository/mysql"
	"github.com/roundbuy/notification-api/internal/scheduler"
	deviceService "github.com/roundbuy/notification-api/internal/service/device"
	"github.com/roundbuy/notification-api/internal/service/dispatch"
	heartbeatService "github.com/roundbuy/notification-api/internal/service/heartbeat"
	"github.com/roundbuy/notification-api/internal/worker"
	"github.com/roundbuy/notification-api/pkg/logger"
	"github.com/roundbuy/notification-api/pkg/messaging"
	redisBroker "github.com/roundbuy/notification-api/pkg/messaging/redis"
	"github.com/roundbuy/notification-api/pkg/metrics"
	"github.com/roundbuy/notification-api/pkg/push/fcm"
)

// The worker binary runs the dispatch scheduler and retention cleanup
// without the HTTP surface, for deployments that separate serving from
// background processing.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	appMetrics := metrics.New("roundbuy_notifications_worker")

	db, err := mysql.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	base := mysql.NewBaseRepository(db)
	notifRepo := mysql.NewNotificationRepository(base)
	userNotifRepo := mysql.NewUserNotificationRepository(base)
	deviceRepo := mysql.NewDeviceTokenRepository(base)
	heartbeatRepo := mysql.NewHeartbeatRepository(base)
	userRepo := mysql.NewUserRepository(base)

	gateway, err := fcm.NewGateway(context.Background(), fcm.Config{
		ProjectID:       cfg.FCM.ProjectID,
		CredentialsFile: cfg.FCM.CredentialsFile,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize push gateway")
	}

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

	guestRecency := time.Duration(cfg.Notifications.GuestRecencyDays) * 24 * time.Hour
	resolver := dispatch.NewResolver(userRepo, deviceRepo, guestRecency)
	dispatcher := dispatch.NewService(notifRepo, userNotifRepo, deviceRepo, resolver, gateway, broker, appLogger, appMetrics)
	deviceSvc := deviceService.NewService(deviceRepo, appLogger, appMetrics)
	heartbeatSvc := heartbeatService.NewService(heartbeatRepo, notifRepo, userNotifRepo, appLogger, appMetrics)

	ctx, cancel := context.WithCancel(context.Background())

	sched := scheduler.New(notifRepo, dispatcher, scheduler.Config{
		Interval: time.Duration(cfg.Scheduler.IntervalSeconds) * time.Second,
	}, appLogger.Named("scheduler"), appMetrics)
	sched.Start(ctx)

	retention := worker.NewRetentionWorker(deviceSvc, heartbeatSvc, 24*time.Hour, appLogger.Named("retention"))
	go retention.Start(ctx)

	log.Info().Msg("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down worker...")

	sched.Stop()
	cancel()

	log.Info().Msg("worker exited properly")
}
