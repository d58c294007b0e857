// cmd/realtime-agent/main.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"collab-client/internal/common/auth"
	"collab-client/internal/common/config"
	"collab-client/internal/common/logger"
	"collab-client/internal/common/observability"
	"collab-client/internal/platform/rest"
	"collab-client/internal/realtime/clock"
	"collab-client/internal/realtime/connection"
	"collab-client/internal/realtime/router"
	"collab-client/internal/realtime/toast"
	"collab-client/internal/realtime/unread"
	"collab-client/pkg/registry"
)

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting realtime agent...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("realtime-agent")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init token source ---
	var tokens auth.TokenSource
	if cfg.Auth.StaticToken != "" {
		tokens = &auth.StaticTokenSource{AccessToken: cfg.Auth.StaticToken}
	} else {
		tokens = auth.NewClientCredentialsSource(
			cfg.Auth.TokenURL,
			cfg.Auth.ClientID,
			cfg.Auth.ClientSecret,
		)
	}

	// --- Init REST client ---
	restClient := rest.NewClient(
		cfg.Server.BaseURL,
		config.GetDuration(cfg.Server.RequestTimeout),
		tokens,
	)

	// --- Init event contract registry ---
	contract := registry.Default()
	if cfg.Registry.Path != "" {
		contract, err = registry.LoadRegistry(cfg.Registry.Path)
		if err != nil {
			zapLog.Fatal("event registry load failed", zap.Error(err))
		}
	}

	// --- Init connection manager ---
	manager := connection.NewManager(
		connection.NewWebsocketDialer(),
		tokens,
		clock.New(),
		log,
		connection.Options{
			BackoffBase:    cfg.Realtime.BackoffBaseDuration(),
			BackoffCap:     cfg.Realtime.BackoffCapDuration(),
			SendPingOnOpen: cfg.Realtime.SendPingOnOpen,
			PingInterval:   config.GetDuration(cfg.Realtime.PingInterval),
		},
	)
	defer manager.CloseAll()

	// --- Wire the notifications pipeline ---
	toasts := toast.NewQueue(clock.New(), log)
	toasts.OnRemoved(func(t toast.Toast) {
		log.Debug("toast dismissed", map[string]interface{}{"id": t.ID})
	})

	unreadCounter := unread.NewCounter(restClient, log)
	unreadCounter.OnChange(func(count int) {
		log.Debug("unread count changed", map[string]interface{}{"count": count})
	})

	routerOpts := []router.Option{}
	if cfg.Registry.Strict {
		routerOpts = append(routerOpts, router.WithContract(contract))
	}
	notifRouter := router.New(log, routerOpts...)
	notifRouter.OnNotification(func(n router.Notification) {
		start := time.Now()
		toasts.Add(toast.Toast{
			Severity: toast.Severity(n.Severity),
			Title:    n.Title,
			Message:  n.Message,
			Duration: 5 * time.Second,
		})
		unreadCounter.IncrementOptimistic()
		obs.RecordFrameProcessed(ctx, string(router.KindNotification))
		obs.RecordDispatchDuration(ctx, time.Since(start), string(router.KindNotification))
	})

	// Snapshot first so the badge starts from server truth, then subscribe.
	unreadCounter.FetchSnapshot(ctx)

	wsBase := cfg.Server.WebSocketURL()
	handle, err := manager.Open(
		ctx,
		connection.NotificationsKey,
		connection.NotificationsURL(wsBase),
		notifRouter.HandleFrame,
	)
	if err != nil {
		zapLog.Fatal("notifications channel open failed", zap.Error(err))
	}
	zapLog.Info("Notifications channel opened", zap.String("key", handle.Key()))

	// --- Health & Metrics Server ---
	if cfg.Metrics.Enabled {
		go func() {
			http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "healthy",
					"time":   time.Now().Format(time.RFC3339),
				})
			})
			http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "ready",
					"time":   time.Now().Format(time.RFC3339),
				})
			})
			http.Handle("/metrics", promhttp.Handler())
			zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Metrics.Address))
			if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil {
				zapLog.Error("Health/Metrics server failed", zap.Error(err))
			}
		}()
	}

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, closing channels...")
	manager.Close(handle)
	toasts.Clear()

	zapLog.Info("Realtime agent stopped gracefully")
}
