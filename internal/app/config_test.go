package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/vtubot/core/config"
	"github.com/m3rciful/vtubot/internal/money"
)

const baseYAML = `
telegram:
  token: "123:abc"
database:
  host: localhost
  user: vtu
  name: vtubot
paystack:
  secret_key: sk_test_secret
vtu:
  base_url: https://vtu.example.com/api
  api_token: token
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, coreconfig.RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, SessionMemory, cfg.Session.Backend)
	assert.Equal(t, 15*time.Minute, cfg.Session.TTL)
	assert.Equal(t, ":3000", cfg.HTTP.Listen)
	assert.Equal(t, money.Naira(50), cfg.VTU.MinAirtimeAmount())
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Empty(t, cfg.Database.MigrationsDir)
	assert.NotNil(t, cfg.Database.Migrations)
	assert.Same(t, &cfg.Config, cfg.CoreConfig())
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	t.Setenv("VTU_API_TOKEN", "from-env")
	t.Setenv("SESSION_TTL", "5m")

	cfg, err := LoadConfig(writeConfig(t, baseYAML))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.VTU.APIToken)
	assert.Equal(t, 5*time.Minute, cfg.Session.TTL)
}

func TestLoadConfigValidation(t *testing.T) {
	cases := map[string]struct {
		body string
		want string
	}{
		"redis without url": {
			body: baseYAML + "session:\n  backend: Redis\n",
			want: "session.redis_url",
		},
		"unknown backend": {
			body: baseYAML + "session:\n  backend: etcd\n",
			want: "session.backend",
		},
		"negative minimum": {
			body: strings.Replace(baseYAML, "api_token: token", "api_token: token\n  min_airtime: -1", 1),
			want: "vtu.min_airtime",
		},
		"listener collision": {
			body: strings.Replace(baseYAML, `token: "123:abc"`, "token: \"123:abc\"\n  run_mode: webhook", 1) +
				"webhook:\n  url: https://bot.example.com\n  listen: 0.0.0.0\n  port: 3000\n",
			want: "collides",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
telegram:
  token: "123:abc"
database:
  host: localhost
  user: vtu
  name: vtubot
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paystack.secret_key")
	assert.Contains(t, err.Error(), "vtu.api_token")
}
