package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/weather-alert-notifier/internal/alerts"
	"github.com/i474232898/weather-alert-notifier/internal/scheduler"
	"github.com/i474232898/weather-alert-notifier/internal/subscriber"
	"github.com/i474232898/weather-alert-notifier/internal/weather/providers"
)

// SMS carriers.
const (
	SMSProviderTwilio = "twilio"
	SMSProviderSNS    = "sns"
)

type AppConfig struct {
	// Alert evaluation.
	AlertsEnabled          bool
	PrecipitationThreshold float64
	SevereCodes            string // validated per run, not here
	Schedule               scheduler.Schedule
	ForecastHours          int
	Workers                int

	// Outbound calls.
	CallTimeout      time.Duration
	HTTPTimeout      time.Duration
	OpenMeteoBaseURL string

	// SMS delivery.
	SMSProvider      string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	AWSRegion        string

	// Subscriber directory.
	DatabaseDriver string
	DatabaseDSN    string

	// Run history retention.
	RunHistorySize   int           // 0 = unlimited
	RunHistoryMaxAge time.Duration // 0 = unlimited

	LogLevel        string
	LogFormat       string
	Port            string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment with sensible defaults.
// A .env file in the working directory is loaded first if present.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("config: could not load .env file")
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	if cfg.AlertsEnabled, err = getenvBool("ALERTS_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.PrecipitationThreshold, err = getenvFloat("ALERTS_PRECIPITATION_THRESHOLD", 20.0); err != nil {
		return nil, err
	}
	cfg.SevereCodes = getenvDefault("ALERTS_SEVERE_CODES", "95,96,99")

	cfg.Schedule, err = scheduler.ParseSchedule(getenvDefault("ALERTS_CRON", "0 0 * * * *"))
	if err != nil {
		return nil, fmt.Errorf("invalid ALERTS_CRON: %w", err)
	}

	if cfg.ForecastHours, err = getenvInt("ALERTS_FORECAST_HOURS", 24); err != nil {
		return nil, err
	}
	if cfg.ForecastHours <= 0 {
		return nil, fmt.Errorf("invalid ALERTS_FORECAST_HOURS: must be positive")
	}
	if cfg.Workers, err = getenvInt("ALERTS_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("invalid ALERTS_WORKERS: must be positive")
	}

	if cfg.CallTimeout, err = getenvDuration("CALL_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	cfg.OpenMeteoBaseURL = getenvDefault("OPENMETEO_BASE_URL", providers.DefaultOpenMeteoURL)

	cfg.SMSProvider = strings.ToLower(getenvDefault("SMS_PROVIDER", SMSProviderTwilio))
	switch cfg.SMSProvider {
	case SMSProviderTwilio, SMSProviderSNS:
	default:
		return nil, fmt.Errorf("invalid SMS_PROVIDER %q: want %q or %q", cfg.SMSProvider, SMSProviderTwilio, SMSProviderSNS)
	}
	cfg.TwilioAccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	cfg.TwilioAuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	cfg.TwilioFromNumber = os.Getenv("TWILIO_FROM_NUMBER")
	cfg.AWSRegion = os.Getenv("AWS_REGION")

	cfg.DatabaseDriver = strings.ToLower(getenvDefault("DATABASE_DRIVER", subscriber.DriverSQLite))
	switch cfg.DatabaseDriver {
	case subscriber.DriverSQLite, subscriber.DriverPostgres:
	default:
		return nil, fmt.Errorf("invalid DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}
	cfg.DatabaseDSN = getenvDefault("DATABASE_DSN", "subscribers.db")

	// Roughly three days of hourly runs.
	if cfg.RunHistorySize, err = getenvInt("RUN_HISTORY_SIZE", 48); err != nil {
		return nil, err
	}
	if cfg.RunHistoryMaxAge, err = getenvDuration("RUN_HISTORY_MAX_AGE", 72*time.Hour); err != nil {
		return nil, err
	}

	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "json")
	cfg.Port = getenvDefault("PORT", "8080")
	if cfg.ShutdownTimeout, err = getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Settings returns the immutable alert settings handed to the runner.
func (c *AppConfig) Settings() alerts.Settings {
	return alerts.Settings{
		Enabled:                c.AlertsEnabled,
		PrecipitationThreshold: c.PrecipitationThreshold,
		SevereCodes:            c.SevereCodes,
		ForecastHours:          c.ForecastHours,
		Workers:                c.Workers,
		CallTimeout:            c.CallTimeout,
	}
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := getenvDefault(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := getenvDefault(key, "")
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := getenvDefault(key, "")
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := getenvDefault(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
