// cmd/player/main.go
//
// Headless player agent: logs in, claims a device slot and keeps the session
// coordinator running until eviction or shutdown. SIGHUP simulates the app
// returning to the foreground and schedules a delayed re-validation.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"resonate-service/internal/config"
	"resonate-service/internal/domain/session"
	"resonate-service/internal/pkg/deviceid"
	"resonate-service/internal/remote"
	"resonate-service/internal/service/admission"
	"resonate-service/internal/service/billing"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// logNotifier stands in for the UI layer on a headless device.
type logNotifier struct {
	logger *zap.Logger
}

func (n *logNotifier) Notify(accountID string, notice session.Notice) {
	n.logger.Warn("notice",
		zap.String("account_id", accountID),
		zap.String("kind", notice.Kind),
		zap.String("message", notice.Message),
		zap.Bool("sticky", notice.Sticky))
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[PLAYER] No .env file found, relying on system env vars")
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()
	baseURL := getEnv("RESONATE_API_URL", "http://localhost:8000")
	email := os.Getenv("RESONATE_EMAIL")
	password := os.Getenv("RESONATE_PASSWORD")
	deviceInfo := getEnv("RESONATE_DEVICE_INFO", "headless player")
	if email == "" || password == "" {
		log.Fatal("RESONATE_EMAIL and RESONATE_PASSWORD are required")
	}

	provider := deviceid.NewProvider(deviceid.DefaultPath(), logger)
	deviceID := provider.DeviceID()

	client := remote.NewClient(remote.Config{
		BaseURL:      baseURL,
		SnapshotPath: filepath.Join(filepath.Dir(deviceid.DefaultPath()), "subscription.json"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	accountID, err := client.Login(ctx, email, password, deviceID)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}

	subs := billing.NewService(client, cfg.Admission.SubscriptionTTL, logger)

	coord := admission.NewCoordinator(
		accountID, deviceID, deviceInfo,
		client, subs, &logNotifier{logger: logger},
		admission.Config{
			KickThreshold:       cfg.Admission.KickThreshold,
			RegisterMinInterval: cfg.Admission.RegisterMinInterval,
			ValidateMinInterval: cfg.Admission.ValidateMinInterval,
			ValidationCacheTTL:  cfg.Admission.ValidationCacheTTL,
			PollInterval:        cfg.Admission.PollInterval,
			ForegroundDelay:     cfg.Admission.ForegroundDelay,
		},
		logger,
		func(reason string) {
			logger.Warn("signed out", zap.String("reason", reason))
			cancel()
		},
	)
	defer coord.Close()

	go coord.Run(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				coord.OnVisible()
				continue
			}
			logger.Info("shutting down player")
			return
		}
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
