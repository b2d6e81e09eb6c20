package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/vtubot/core/config"
	coredatabase "github.com/m3rciful/vtubot/core/database"
	"github.com/m3rciful/vtubot/core/telegram/state"
	"github.com/m3rciful/vtubot/internal/money"
	"github.com/m3rciful/vtubot/migrations"
)

const (
	// SessionMemory keeps sessions in process memory.
	SessionMemory = "memory"
	// SessionRedis keeps sessions in Redis so they survive restarts.
	SessionRedis = "redis"
)

const (
	defaultSessionTTL  = state.DefaultTTL
	defaultHTTPListen  = ":3000"
	defaultMinAirtime  = 50
	defaultSweepPeriod = time.Minute
)

// SessionConfig selects the conversation session store.
type SessionConfig struct {
	Backend     string        `yaml:"backend" envconfig:"SESSION_BACKEND" validate:"omitempty,oneof=memory redis"`
	TTL         time.Duration `yaml:"ttl" envconfig:"SESSION_TTL"`
	RedisURL    string        `yaml:"redis_url" envconfig:"REDIS_URL" validate:"required_if=Backend redis"`
	RedisPrefix string        `yaml:"redis_prefix" envconfig:"REDIS_PREFIX"`
}

// HTTPConfig configures the payment webhook listener.
type HTTPConfig struct {
	Listen         string        `yaml:"listen" envconfig:"HTTP_LISTEN"`
	StaticDir      string        `yaml:"static_dir" envconfig:"HTTP_STATIC_DIR"`
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"HTTP_REQUEST_TIMEOUT"`
}

// PaystackConfig configures the payment gateway.
type PaystackConfig struct {
	SecretKey   string        `yaml:"secret_key" envconfig:"PAYSTACK_SECRET_KEY" validate:"required"`
	BaseURL     string        `yaml:"base_url" envconfig:"PAYSTACK_BASE_URL" validate:"omitempty,url"`
	CallbackURL string        `yaml:"callback_url" envconfig:"PAYSTACK_CALLBACK_URL" validate:"omitempty,url"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"PAYSTACK_TIMEOUT"`
}

// VTUConfig configures the airtime and data provider.
type VTUConfig struct {
	BaseURL  string        `yaml:"base_url" envconfig:"VTU_API_URL" validate:"required,url"`
	APIToken string        `yaml:"api_token" envconfig:"VTU_API_TOKEN" validate:"required"`
	Timeout  time.Duration `yaml:"timeout" envconfig:"VTU_TIMEOUT"`
	// MinAirtime is the smallest airtime purchase in whole naira.
	MinAirtime      int64    `yaml:"min_airtime" envconfig:"VTU_MIN_AIRTIME" validate:"gte=0"`
	SensitiveErrors []string `yaml:"sensitive_errors" envconfig:"VTU_SENSITIVE_ERRORS"`
}

// BotConfig holds user-facing settings.
type BotConfig struct {
	SupportLink string `yaml:"support_link" envconfig:"SUPPORT_LINK" validate:"omitempty,url"`
	EmailDomain string `yaml:"email_domain" envconfig:"EMAIL_DOMAIN" validate:"omitempty,hostname"`
}

// Config is the full application configuration. The core section is inlined
// so the YAML file keeps telegram, webhook, logging and rate_limit at the top.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Session  SessionConfig       `yaml:"session"`
	HTTP     HTTPConfig          `yaml:"http"`
	Paystack PaystackConfig      `yaml:"paystack"`
	VTU      VTUConfig           `yaml:"vtu"`
	Bot      BotConfig           `yaml:"bot"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// LoadConfig reads path, overlays the environment, validates the result and
// fills defaults.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.LoadFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	c.Session.Backend = strings.ToLower(strings.TrimSpace(c.Session.Backend))
	if err := coreconfig.Validate(c); err != nil {
		return err
	}

	if c.Session.Backend == "" {
		c.Session.Backend = SessionMemory
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = defaultSessionTTL
	}
	if strings.TrimSpace(c.HTTP.Listen) == "" {
		c.HTTP.Listen = defaultHTTPListen
	}
	if c.VTU.MinAirtime == 0 {
		c.VTU.MinAirtime = defaultMinAirtime
	}
	if c.Database.Migrations == nil {
		c.Database.Migrations = migrations.FS
	}
	c.Database = c.Database.WithDefaults()

	if c.Telegram.RunMode == coreconfig.RunModeWebhook && portOf(c.HTTP.Listen) == strconv.Itoa(c.Webhook.Port) {
		return fmt.Errorf("http.listen %q collides with the telegram webhook listener", c.HTTP.Listen)
	}
	return nil
}

// MinAirtimeAmount returns the configured minimum as an Amount.
func (c VTUConfig) MinAirtimeAmount() money.Amount {
	return money.Naira(c.MinAirtime)
}

func portOf(addr string) string {
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		return addr[i+1:]
	}
	return addr
}
