package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// RunModeWebhook receives updates through a Telegram webhook.
	RunModeWebhook = "webhook"
	// RunModeLongpoll receives updates through getUpdates long polling.
	RunModeLongpoll = "longpoll"
)

// Update kinds accepted by rate_limit.exclude_updates.
const (
	UpdateCallback = "callback"
	UpdateMessage  = "message"
)

// TelegramConfig is the bot token and how updates are received.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN" validate:"required"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE" validate:"oneof=webhook longpoll"`
	// LongPollTimeoutSeconds of 0 selects the default.
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS" validate:"gte=0"`
}

// WebhookConfig is only consulted in webhook mode.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
	// SecretToken is echoed by Telegram in X-Telegram-Bot-Api-Secret-Token;
	// requests without it are rejected by the listener.
	SecretToken string `yaml:"secret_token" envconfig:"WEBHOOK_SECRET_TOKEN"`
}

// webhookRules carries the checks that apply to WebhookConfig in webhook
// mode only.
type webhookRules struct {
	Webhook struct {
		URL    string `yaml:"url" validate:"required,url"`
		Listen string `yaml:"listen" validate:"required"`
		Port   int    `yaml:"port" validate:"gte=1,lte=65535"`

		SecretToken string `yaml:"secret_token" validate:"omitempty,max=256"`
	} `yaml:"webhook"`
}

// LoggingConfig configures core/logger.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file"`
	// Profile is "debug", "dev" or "prod"; debug and dev default to kv output.
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// RateLimitConfig throttles each user to one update per IntervalMS. Update
// kinds listed in ExcludeUpdates are never throttled.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS" validate:"gte=0"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES" validate:"dive,omitempty,oneof=callback message"`
}

// Config is the part of the configuration every bot built on core shares.
// Bots embed it inline in their own config struct.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Load reads and normalizes a core-only configuration.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := LoadFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile decodes the YAML at path into dst, then overlays the environment.
// A .env file in the working directory is read first when present; the real
// process environment wins over it.
func LoadFile(path string, dst any) error {
	if dst == nil {
		return errors.New("nil config destination")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	if err := envconfig.Process("", dst); err != nil {
		return fmt.Errorf("failed to process env: %w", err)
	}
	return nil
}

// Normalize canonicalizes enumerations in place and validates cfg. An empty
// run mode, or "polling", means long polling.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	mode := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if mode == "" || mode == "polling" {
		mode = RunModeLongpoll
	}
	cfg.Telegram.RunMode = mode
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		cfg.RateLimit.ExcludeUpdates[i] = strings.ToLower(strings.TrimSpace(v))
	}

	if err := Validate(cfg); err != nil {
		return err
	}
	if mode != RunModeWebhook {
		return nil
	}
	var rules webhookRules
	rules.Webhook.URL = strings.TrimSpace(cfg.Webhook.URL)
	rules.Webhook.Listen = strings.TrimSpace(cfg.Webhook.Listen)
	rules.Webhook.Port = cfg.Webhook.Port
	rules.Webhook.SecretToken = cfg.Webhook.SecretToken
	if err := Validate(rules); err != nil {
		return fmt.Errorf("%w (telegram.run_mode is webhook)", err)
	}
	return nil
}
