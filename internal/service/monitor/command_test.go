package monitor

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/usage-alarms/internal/config"
	"github.com/oshokin/usage-alarms/internal/logger"
)

// TestRun_MissingSettings fails fast when required settings are absent.
func TestRun_MissingSettings(t *testing.T) {
	t.Setenv("RAILWAY_API_TOKEN", "")

	err := Run(context.Background(), &Options{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	require.ErrorIs(t, err, config.ErrMissingSetting)
}

// TestRun_InvalidThreshold refuses to start with an unparseable threshold.
func TestRun_InvalidThreshold(t *testing.T) {
	t.Setenv("RAILWAY_API_TOKEN", "token")
	t.Setenv("ALARM_TOKEN", "secret")
	t.Setenv("RAILWAY_PROJECT_ID", "project-1")
	t.Setenv("RAILWAY_SERVICE_ID", "svc-1")
	t.Setenv("CPU_UPPER_LIMIT_VCPUS", "lots")

	err := Run(context.Background(), &Options{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	require.ErrorIs(t, err, config.ErrInvalidSetting)
}

// TestApplyLogLevel prefers the flag over the settings.
func TestApplyLogLevel(t *testing.T) {
	previous := logger.Level()
	t.Cleanup(func() { logger.SetLevel(previous) })

	applyLogLevel(context.Background(), "error", "")
	require.Equal(t, zapcore.ErrorLevel, logger.Level())

	applyLogLevel(context.Background(), "error", "debug")
	require.Equal(t, zapcore.DebugLevel, logger.Level())

	applyLogLevel(context.Background(), "loud", "")
	require.Equal(t, zapcore.InfoLevel, logger.Level())
}

// TestNewNotifier enables only fully configured targets.
func TestNewNotifier(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	settings := &config.Config{AlarmToken: "secret", PagerDuty: config.PagerDuty{URL: config.DefaultPagerDutyURL}}

	multi, err := newNotifier(ctx, settings, http.DefaultClient)
	require.NoError(t, err)
	require.Equal(t, 0, multi.Len())

	settings.Webhook.URL = "https://hooks.example.com/alarms"
	settings.PagerDuty.Token = "pd"
	settings.PagerDuty.Source = "railway"

	multi, err = newNotifier(ctx, settings, http.DefaultClient)
	require.NoError(t, err)
	require.Equal(t, 1, multi.Len())

	settings.PagerDuty.RoutingKey = "routing"

	multi, err = newNotifier(ctx, settings, http.DefaultClient)
	require.NoError(t, err)
	require.Equal(t, 2, multi.Len())

	telegram := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"ok":true,"result":{"id":7,"is_bot":true,"first_name":"Alarms","username":"alarms_bot"}}`)
	}))
	t.Cleanup(telegram.Close)

	settings.Telegram = config.Telegram{Token: "bot-token", ChatID: 42, APIEndpoint: telegram.URL + "/bot%s/%s"}

	multi, err = newNotifier(ctx, settings, telegram.Client())
	require.NoError(t, err)
	require.Equal(t, 3, multi.Len())
}
