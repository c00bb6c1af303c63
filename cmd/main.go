package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/moto-fleet/internal/auth"
	"github.com/ukydev/moto-fleet/internal/cloud"
	"github.com/ukydev/moto-fleet/internal/config"
	"github.com/ukydev/moto-fleet/internal/db"
	"github.com/ukydev/moto-fleet/internal/handlers"
	"github.com/ukydev/moto-fleet/internal/middleware"
	"github.com/ukydev/moto-fleet/internal/models"
	"github.com/ukydev/moto-fleet/internal/notify"
	"github.com/ukydev/moto-fleet/internal/state"
)

const shutdownTimeout = 10 * time.Second

// newNotifier publishes arrears reminders over MQTT when a broker is configured.
func newNotifier(cfg *config.Config) (state.Notifier, func(), error) {
	if cfg.MQTTBroker == "" {
		return notify.NopNotifier{}, func() {}, nil
	}
	client, err := notify.Connect(cfg.MQTTBroker, cfg.MQTTClientID)
	if err != nil {
		return nil, nil, err
	}
	log.WithField("broker", cfg.MQTTBroker).Info("Connected to MQTT broker")
	return notify.NewMQTTNotifier(client, cfg.MQTTTopicPrefix), func() { client.Disconnect(250) }, nil
}

// newServer wires storage, sessions and routes into an http.Server. The
// returned cleanup releases the store and broker connections.
func newServer(ctx context.Context, cfg *config.Config) (*http.Server, func(), error) {
	store, closeStore, err := db.Open(cfg)
	if err != nil {
		return nil, nil, err
	}

	notifier, closeNotifier, err := newNotifier(cfg)
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}
	cleanup := func() {
		closeNotifier()
		if err := closeStore(); err != nil {
			log.WithError(err).Warn("Failed to close store")
		}
	}

	manager := state.NewManager(store, state.Options{
		WeeklyTarget:      cfg.WeeklyTarget,
		NotificationLimit: cfg.NotificationLimit,
		VerifyDelay:       cfg.VerifyDelay,
		Notifier:          notifier,
	}, cloud.WithDelays(cfg.FetchDelay, cfg.PersistDelay))

	if err := manager.EnsureDefault(ctx, models.FleetInfo{ID: cfg.DefaultFleetID, Name: cfg.DefaultFleetName}); err != nil {
		cleanup()
		return nil, nil, err
	}

	authService, err := auth.NewService(cfg, store)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	router := handlers.Router{
		Sessions:  handlers.NewSessionHandler(authService, manager.Registry()),
		Fleets:    handlers.NewFleetHandler(manager),
		Auth:      middleware.NewAuthMiddleware(authService),
		RateLimit: middleware.NewRateLimitMiddleware(),
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv, cleanup, nil
}

func main() {
	cfg := config.Load()
	cfg.ConfigureLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, cleanup, err := newServer(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to start")
	}
	defer cleanup()

	go func() {
		log.WithFields(log.Fields{"port": cfg.Port, "store": cfg.StoreBackend}).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
