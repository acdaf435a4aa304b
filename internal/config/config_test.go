package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-alert-notifier/internal/weather/providers"
)

var allKeys = []string{
	"ALERTS_ENABLED", "ALERTS_PRECIPITATION_THRESHOLD", "ALERTS_SEVERE_CODES", "ALERTS_CRON",
	"ALERTS_FORECAST_HOURS", "ALERTS_WORKERS", "CALL_TIMEOUT", "HTTP_TIMEOUT", "OPENMETEO_BASE_URL",
	"SMS_PROVIDER", "TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_FROM_NUMBER", "AWS_REGION",
	"DATABASE_DRIVER", "DATABASE_DSN", "RUN_HISTORY_SIZE", "RUN_HISTORY_MAX_AGE",
	"LOG_LEVEL", "LOG_FORMAT", "PORT", "SHUTDOWN_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.AlertsEnabled)
	assert.Equal(t, 20.0, cfg.PrecipitationThreshold)
	assert.Equal(t, "95,96,99", cfg.SevereCodes)
	assert.Equal(t, "0 0 * * * *", cfg.Schedule.Expr)
	assert.True(t, cfg.Schedule.WithSeconds)
	assert.Equal(t, 24, cfg.ForecastHours)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 5*time.Second, cfg.CallTimeout)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, providers.DefaultOpenMeteoURL, cfg.OpenMeteoBaseURL)
	assert.Equal(t, SMSProviderTwilio, cfg.SMSProvider)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "subscribers.db", cfg.DatabaseDSN)
	assert.Equal(t, 48, cfg.RunHistorySize)
	assert.Equal(t, 72*time.Hour, cfg.RunHistoryMaxAge)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ALERTS_ENABLED", "false")
	t.Setenv("ALERTS_PRECIPITATION_THRESHOLD", "12.5")
	t.Setenv("ALERTS_SEVERE_CODES", "82,95")
	t.Setenv("ALERTS_CRON", "30m")
	t.Setenv("ALERTS_WORKERS", "8")
	t.Setenv("CALL_TIMEOUT", "2s")
	t.Setenv("SMS_PROVIDER", "SNS")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "postgres://localhost/alerts")
	t.Setenv("PORT", "9090")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.False(t, cfg.AlertsEnabled)
	assert.Equal(t, 12.5, cfg.PrecipitationThreshold)
	assert.Equal(t, 30*time.Minute, cfg.Schedule.Every)
	assert.Equal(t, SMSProviderSNS, cfg.SMSProvider)
	assert.Equal(t, "eu-west-1", cfg.AWSRegion)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "9090", cfg.Port)

	s := cfg.Settings()
	assert.False(t, s.Enabled)
	assert.Equal(t, "82,95", s.SevereCodes)
	assert.Equal(t, 8, s.Workers)
	assert.Equal(t, 2*time.Second, s.CallTimeout)
}

func TestFromEnv_MalformedSevereCodesAccepted(t *testing.T) {
	clearEnv(t)
	t.Setenv("ALERTS_SEVERE_CODES", "95,x")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "95,x", cfg.SevereCodes)
}

func TestFromEnv_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"ALERTS_ENABLED":                 "maybe",
		"ALERTS_PRECIPITATION_THRESHOLD": "lots",
		"ALERTS_CRON":                    "every hour",
		"ALERTS_FORECAST_HOURS":          "0",
		"ALERTS_WORKERS":                 "four",
		"CALL_TIMEOUT":                   "5",
		"HTTP_TIMEOUT":                   "ten",
		"SMS_PROVIDER":                   "pigeon",
		"DATABASE_DRIVER":                "mysql",
		"RUN_HISTORY_SIZE":               "many",
		"RUN_HISTORY_MAX_AGE":            "3d",
		"SHUTDOWN_TIMEOUT":               "soon",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}
