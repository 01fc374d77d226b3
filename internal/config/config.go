package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings of the alarm monitor.
type Config struct {
	// RailwayAPIToken authenticates usage queries.
	RailwayAPIToken string `yaml:"railway_api_token"`
	// RailwayAPIURL is the GraphQL endpoint of the platform.
	RailwayAPIURL string `yaml:"railway_api_url"`
	// AlarmToken is the secret used to sign webhook payloads.
	AlarmToken string `yaml:"alarm_token"`
	// ProjectID is the project the monitored service belongs to.
	ProjectID string `yaml:"project_id"`
	// ServiceID is the monitored service.
	ServiceID string `yaml:"service_id"`
	// Timeout bounds every outbound HTTP request.
	Timeout time.Duration `yaml:"timeout"`
	// StatusAddress is the optional gRPC listen address of the status API.
	StatusAddress string `yaml:"status_addr"`
	// MetricsAddress is the optional listen address of the metrics endpoint.
	MetricsAddress string `yaml:"metrics_addr"`
	// LogLevel is the minimum log level.
	LogLevel string `yaml:"log_level"`
	// Webhook configures the signed webhook notification.
	Webhook Webhook `yaml:"webhook"`
	// PagerDuty configures PagerDuty events.
	PagerDuty PagerDuty `yaml:"pager_duty"`
	// Telegram configures chat messages.
	Telegram Telegram `yaml:"telegram"`
	// Defaults apply to every alarm without its own window settings.
	Defaults Window `yaml:"defaults"`
	// Alarms holds per-kind settings keyed by kind name.
	Alarms map[string]AlarmSettings `yaml:"alarms"`
}

// Webhook configures the signed webhook notification.
type Webhook struct {
	// URL receives the alarm batches. Empty disables the webhook.
	URL string `yaml:"url"`
}

// PagerDuty configures PagerDuty Events v2 delivery.
type PagerDuty struct {
	URL        string `yaml:"url"`
	Token      string `yaml:"token"`
	Source     string `yaml:"source"`
	RoutingKey string `yaml:"routing_key"`
}

// Enabled reports whether every PagerDuty setting needed to send events is present.
func (p PagerDuty) Enabled() bool {
	return p.Token != "" && p.Source != "" && p.RoutingKey != ""
}

// Telegram configures Telegram chat delivery.
type Telegram struct {
	// Token authenticates the bot.
	Token string `yaml:"token"`
	// ChatID is the chat the bot writes to.
	ChatID int64 `yaml:"chat_id"`
	// APIEndpoint overrides the Bot API address format.
	APIEndpoint string `yaml:"api_endpoint"`
}

// Enabled reports whether a bot token and a chat are configured.
func (t Telegram) Enabled() bool {
	return t.Token != "" && t.ChatID != 0
}

// Window holds window sizing overrides. Nil fields are unset.
type Window struct {
	PeriodMinutes     *uint16 `yaml:"period_minutes"`
	DataPoints        *uint16 `yaml:"data_points"`
	DataPointsToAlarm *uint16 `yaml:"data_points_to_alarm"`
}

// AlarmSettings holds the configured value and window overrides of one alarm.
type AlarmSettings struct {
	Window `yaml:",inline"`

	// Value is the threshold, or the probe URL for the health check alarm.
	Value string `yaml:"value"`
}

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

const (
	// DefaultConfigFilename is the settings file read when no path is given.
	DefaultConfigFilename = "usage-alarms.yaml"

	// DefaultRailwayAPIURL is the platform GraphQL endpoint.
	DefaultRailwayAPIURL = "https://backboard.railway.app/graphql/v2"

	// DefaultPagerDutyURL is the PagerDuty events API base address.
	DefaultPagerDutyURL = "https://events.pagerduty.com"

	// DefaultTimeout bounds outbound requests when no timeout is configured.
	DefaultTimeout = 10 * time.Second

	// DefaultStatusAddress is where the status command looks for a monitor.
	DefaultStatusAddress = "localhost:7070"
)

// Environment variable names.
const (
	envRailwayAPIToken     = "RAILWAY_API_TOKEN"
	envRailwayAPIURL       = "RAILWAY_API_URL"
	envAlarmToken          = "ALARM_TOKEN"
	envProjectID           = "RAILWAY_PROJECT_ID"
	envServiceID           = "RAILWAY_SERVICE_ID"
	envTimeout             = "TIMEOUT"
	envStatusAddress       = "STATUS_ADDR"
	envMetricsAddress      = "METRICS_ADDR"
	envLogLevel            = "LOG_LEVEL"
	envWebhookURL          = "WEB_HOOK_URL"
	envPagerDutyURL        = "PAGER_DUTY_URL"
	envPagerDutyToken      = "PAGER_DUTY_TOKEN"
	envPagerDutySource     = "PAGER_DUTY_SOURCE"
	envPagerDutyRoutingKey = "PAGER_DUTY_ROUTING_KEY"
	envTelegramToken       = "TELEGRAM_BOT_TOKEN"
	envTelegramChatID      = "TELEGRAM_CHAT_ID"
	envTelegramEndpoint    = "TELEGRAM_API_ENDPOINT"
	envPeriodMinutes       = "PERIOD_MINUTES"
	envDataPoints          = "DATA_POINTS"
	envDataPointsToAlarm   = "DATA_POINTS_TO_ALARM"
)

var (
	// ErrMissingSetting is returned when a required setting is absent.
	ErrMissingSetting = errors.New("missing required setting")
	// ErrInvalidSetting is returned when a setting cannot be parsed.
	ErrInvalidSetting = errors.New("invalid setting")
)

// Load reads the settings file at path, layers the process environment on
// top and validates the result. A missing settings file is not an error:
// the monitor can be configured through the environment alone.
func Load(ctx context.Context, path string) (*Config, error) {
	return LoadWith(ctx, path, os.LookupEnv)
}

// LoadWith is Load with an explicit environment lookup.
func LoadWith(_ context.Context, path string, lookup LookupFunc) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}

	if err = cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// readFile decodes the YAML settings file, returning an empty Config if
// the file does not exist.
func readFile(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	cfg := new(Config)

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	return cfg, nil
}

// applyEnv overrides file settings with environment variables.
func (c *Config) applyEnv(lookup LookupFunc) error {
	fields := map[string]*string{
		envRailwayAPIToken:     &c.RailwayAPIToken,
		envRailwayAPIURL:       &c.RailwayAPIURL,
		envAlarmToken:          &c.AlarmToken,
		envProjectID:           &c.ProjectID,
		envServiceID:           &c.ServiceID,
		envStatusAddress:       &c.StatusAddress,
		envMetricsAddress:      &c.MetricsAddress,
		envLogLevel:            &c.LogLevel,
		envWebhookURL:          &c.Webhook.URL,
		envPagerDutyURL:        &c.PagerDuty.URL,
		envPagerDutyToken:      &c.PagerDuty.Token,
		envPagerDutySource:     &c.PagerDuty.Source,
		envPagerDutyRoutingKey: &c.PagerDuty.RoutingKey,
		envTelegramToken:       &c.Telegram.Token,
		envTelegramEndpoint:    &c.Telegram.APIEndpoint,
	}

	for key, target := range fields {
		if value, ok := lookup(key); ok {
			*target = value
		}
	}

	if value, ok := lookup(envTimeout); ok {
		timeout, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w %s: %w", ErrInvalidSetting, envTimeout, err)
		}

		c.Timeout = timeout
	}

	if value, ok := lookup(envTelegramChatID); ok {
		chatID, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return fmt.Errorf("%w %s: %w", ErrInvalidSetting, envTelegramChatID, err)
		}

		c.Telegram.ChatID = chatID
	}

	if err := c.Defaults.applyEnv(lookup, ""); err != nil {
		return err
	}

	return c.applyAlarmEnv(lookup)
}

// applyEnv overrides window settings from <prefix>PERIOD_MINUTES and friends.
func (w *Window) applyEnv(lookup LookupFunc, prefix string) error {
	fields := map[string]**uint16{
		prefix + envPeriodMinutes:     &w.PeriodMinutes,
		prefix + envDataPoints:        &w.DataPoints,
		prefix + envDataPointsToAlarm: &w.DataPointsToAlarm,
	}

	for key, target := range fields {
		value, ok := lookup(key)
		if !ok {
			continue
		}

		parsed, err := parseUint16(key, value)
		if err != nil {
			return err
		}

		*target = &parsed
	}

	return nil
}

// Validate checks required fields and fills in defaults.
func Validate(cfg *Config) error {
	required := []struct {
		name  string
		value string
	}{
		{envRailwayAPIToken, cfg.RailwayAPIToken},
		{envAlarmToken, cfg.AlarmToken},
		{envProjectID, cfg.ProjectID},
		{envServiceID, cfg.ServiceID},
	}

	for _, setting := range required {
		if strings.TrimSpace(setting.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingSetting, setting.name)
		}
	}

	if cfg.RailwayAPIURL == "" {
		cfg.RailwayAPIURL = DefaultRailwayAPIURL
	}

	if _, err := url.ParseRequestURI(cfg.RailwayAPIURL); err != nil {
		return fmt.Errorf("%w %s: %w", ErrInvalidSetting, envRailwayAPIURL, err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.PagerDuty.URL == "" {
		cfg.PagerDuty.URL = DefaultPagerDutyURL
	}

	if cfg.Webhook.URL != "" {
		if _, err := url.ParseRequestURI(cfg.Webhook.URL); err != nil {
			return fmt.Errorf("%w %s: %w", ErrInvalidSetting, envWebhookURL, err)
		}
	}

	return nil
}

// parseUint16 parses an unsigned window setting.
func parseUint16(key, value string) (uint16, error) {
	parsed, err := strconv.ParseUint(strings.TrimSpace(value), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w %s: %w", ErrInvalidSetting, key, err)
	}

	return uint16(parsed), nil
}

// StatusAddress returns the status service address from STATUS_ADDR, or
// DefaultStatusAddress when it is unset.
func StatusAddress(lookup LookupFunc) string {
	if value, ok := lookup(envStatusAddress); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}

	return DefaultStatusAddress
}
