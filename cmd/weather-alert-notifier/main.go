package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/weather-alert-notifier/internal/alerts"
	httpapi "github.com/i474232898/weather-alert-notifier/internal/api/http"
	"github.com/i474232898/weather-alert-notifier/internal/config"
	"github.com/i474232898/weather-alert-notifier/internal/notify"
	"github.com/i474232898/weather-alert-notifier/internal/observability"
	"github.com/i474232898/weather-alert-notifier/internal/scheduler"
	"github.com/i474232898/weather-alert-notifier/internal/store"
	"github.com/i474232898/weather-alert-notifier/internal/subscriber"
	"github.com/i474232898/weather-alert-notifier/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	log := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("weather-alert-notifier stopped")
	}
}

// run owns every resource so deferred cleanup happens before main exits.
func run(cfg *config.AppConfig, log *logrus.Logger) error {
	metrics := observability.NewMetrics()

	// Shared HTTP client for outbound provider and SMS calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	directory, err := subscriber.OpenSQL(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("open subscriber directory: %w", err)
	}
	defer directory.Close()

	// Open-Meteo does not require an API key.
	provider := providers.NewOpenMeteoProvider(httpClient, cfg.OpenMeteoBaseURL)

	sender, err := newSender(cfg, httpClient, log)
	if err != nil {
		return fmt.Errorf("create SMS sender: %w", err)
	}

	// In-memory run history with configured retention.
	history := store.NewRunStore(cfg.RunHistorySize, cfg.RunHistoryMaxAge)

	runner := alerts.NewRunner(cfg.Settings(), directory, provider, sender, log, metrics,
		alerts.WithRecorder(history))

	sched := scheduler.New(cfg.Schedule, func(ctx context.Context) {
		// Errors are already logged by the runner.
		_, _ = runner.RunOnce(ctx)
	}, log)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	// Stop is idempotent; this covers early returns below.
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weather-alert-notifier",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Long enough for a synchronous run triggered over HTTP.
		WriteTimeout: 5 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, runner, history, promhttp.Handler())

	go func() {
		log.WithField("port", cfg.Port).Info("http server listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.WithError(err).Info("fiber server stopped")
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info("shutting down")

	// Background work first: cancel and wait for an in-flight scheduled run.
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.WithError(err).Error("error during shutdown")
	}
	return nil
}

// newSender picks the SMS carrier. Missing credentials are not an error:
// the sender then refuses every message with a warning.
func newSender(cfg *config.AppConfig, client *http.Client, log logrus.FieldLogger) (notify.Sender, error) {
	switch cfg.SMSProvider {
	case config.SMSProviderSNS:
		return notify.NewSNSSender(cfg.AWSRegion, log)
	default:
		twilio := notify.TwilioConfig{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			FromNumber: cfg.TwilioFromNumber,
		}
		if !twilio.Configured() {
			log.Warn("twilio credentials missing; alerts will be evaluated but not delivered")
		}
		return notify.NewTwilioSender(twilio, client, log), nil
	}
}
