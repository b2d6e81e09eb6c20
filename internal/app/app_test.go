package app

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/vtubot/core/bootstrap"
	coreconfig "github.com/m3rciful/vtubot/core/config"
	coretelegram "github.com/m3rciful/vtubot/core/telegram"
	"github.com/m3rciful/vtubot/core/telegram/state"
)

func testConfig() *Config {
	return &Config{
		Config: coreconfig.Config{
			Telegram: coreconfig.TelegramConfig{Token: "123:abc", RunMode: coreconfig.RunModeLongpoll},
		},
		Session:  SessionConfig{Backend: SessionMemory, TTL: time.Minute},
		HTTP:     HTTPConfig{Listen: "127.0.0.1:0"},
		Paystack: PaystackConfig{SecretKey: "sk_test"},
		VTU:      VTUConfig{BaseURL: "https://vtu.example.com", APIToken: "t", MinAirtime: 50},
	}
}

func mockResult(t *testing.T) (*bootstrap.Result, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	return &bootstrap.Result{DB: sqlx.NewDb(raw, "postgres")}, mock
}

func noRedis(string) (*redis.Client, error) {
	panic("redis dialed for the memory backend")
}

func TestBuildUsesMemorySessions(t *testing.T) {
	res, mock := mockResult(t)
	a, err := build(testConfig(), res, noRedis)
	require.NoError(t, err)

	assert.IsType(t, &state.MemoryStore{}, a.sessions)
	assert.Nil(t, a.redis)

	mock.ExpectClose()
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildUsesRedisSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Session = SessionConfig{Backend: SessionRedis, TTL: time.Minute, RedisURL: "redis://" + mr.Addr()}

	res, mock := mockResult(t)
	a, err := build(cfg, res, func(url string) (*redis.Client, error) {
		opt, err := redis.ParseURL(url)
		if err != nil {
			return nil, err
		}
		return redis.NewClient(opt), nil
	})
	require.NoError(t, err)
	assert.IsType(t, &state.RedisStore{}, a.sessions)

	ctx := context.Background()
	require.NoError(t, a.ready(ctx))

	mr.Close()
	err = a.ready(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")

	mock.ExpectClose()
	_ = a.Close()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildFailsWhenRedisUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.Session = SessionConfig{Backend: SessionRedis, TTL: time.Minute, RedisURL: "redis://127.0.0.1:1"}

	res, _ := mockResult(t)
	_, err := build(cfg, res, newRedis)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app: redis")
}

func TestTelegramRunOptions(t *testing.T) {
	res, _ := mockResult(t)
	a, err := build(testConfig(), res, noRedis)
	require.NoError(t, err)

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	assert.Same(t, &a.cfg.Config, opts.Config)
	assert.NotEmpty(t, opts.Routes)
	assert.NotEmpty(t, opts.Middlewares)
	for _, name := range []string{"/start", "/balance", "/airtime", "/data", "/fund", "/verify", "/cancel", "/help"} {
		_, _, ok := opts.Registry.LookupCommand(name)
		assert.True(t, ok, name)
	}

	_, err = (&App{}).TelegramRunOptions()
	assert.Error(t, err)
}

func TestLifecycleServesHealth(t *testing.T) {
	res, mock := mockResult(t)
	a, err := build(testConfig(), res, noRedis)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.onStart(ctx, coretelegram.Runtime{}))

	resp, err := http.Get("http://" + a.http.Addr() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", string(body))

	require.NoError(t, a.onStop(ctx, coretelegram.Runtime{}))
	_, err = http.Get("http://" + a.http.Addr() + "/healthz")
	assert.Error(t, err)

	mock.ExpectClose()
	require.NoError(t, a.Close())
}
