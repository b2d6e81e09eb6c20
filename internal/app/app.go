// Package app wires configuration, storage, provider clients and the bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/vtubot/core/bootstrap"
	coredatabase "github.com/m3rciful/vtubot/core/database"
	"github.com/m3rciful/vtubot/core/logger"
	coretelegram "github.com/m3rciful/vtubot/core/telegram"
	"github.com/m3rciful/vtubot/core/telegram/state"
	"github.com/m3rciful/vtubot/internal/bot"
	"github.com/m3rciful/vtubot/internal/conversation"
	"github.com/m3rciful/vtubot/internal/funding"
	"github.com/m3rciful/vtubot/internal/httpserver"
	"github.com/m3rciful/vtubot/internal/ledger"
	"github.com/m3rciful/vtubot/internal/paystack"
	"github.com/m3rciful/vtubot/internal/purchase"
	"github.com/m3rciful/vtubot/internal/store"
	"github.com/m3rciful/vtubot/internal/vtu"
)

const (
	component       = "app"
	shutdownTimeout = 10 * time.Second
	redisPingWait   = 5 * time.Second
)

// App holds the wired application. It implements the runner's TelegramApp.
type App struct {
	cfg  *Config
	boot *bootstrap.Result

	redis    *redis.Client
	sessions state.Store
	notifier *coretelegram.Notifier
	bot      *bot.Bot
	http     *httpserver.Server

	stopSweep context.CancelFunc
	closeOnce sync.Once
}

// Bootstrap initializes logging, the database and every service.
func Bootstrap(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   &cfg.Config,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}
	a, err := build(cfg, res, newRedis)
	if err != nil {
		_ = res.Close()
		return nil, err
	}
	return a, nil
}

func build(cfg *Config, res *bootstrap.Result, dialRedis func(url string) (*redis.Client, error)) (*App, error) {
	a := &App{cfg: cfg, boot: res, notifier: coretelegram.NewNotifier()}

	switch cfg.Session.Backend {
	case SessionRedis:
		client, err := dialRedis(cfg.Session.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("app: redis: %w", err)
		}
		a.redis = client
		a.sessions = state.NewRedisStore(client, cfg.Session.RedisPrefix, cfg.Session.TTL)
	default:
		a.sessions = state.NewMemoryStore(cfg.Session.TTL)
	}

	l := ledger.New(store.NewUsers(res.DB), store.NewTransactions(res.DB), cfg.Bot.EmailDomain)
	conv := conversation.New(a.sessions, state.NewLocker())

	vendor := vtu.NewClient(vtu.Config{
		BaseURL:  cfg.VTU.BaseURL,
		APIToken: cfg.VTU.APIToken,
		Timeout:  cfg.VTU.Timeout,
	})
	purchases := purchase.New(conv, l, vendor, purchase.Options{
		MinAirtime:      cfg.VTU.MinAirtimeAmount(),
		SensitiveErrors: cfg.VTU.SensitiveErrors,
	})

	gateway := paystack.NewClient(paystack.Config{
		BaseURL:     cfg.Paystack.BaseURL,
		SecretKey:   cfg.Paystack.SecretKey,
		CallbackURL: cfg.Paystack.CallbackURL,
		Timeout:     cfg.Paystack.Timeout,
	})
	fund := funding.New(conv, l, gateway, a.notifier, cfg.Paystack.SecretKey)

	a.bot = bot.New(bot.Deps{
		Wallet:        l,
		Purchases:     purchases,
		Funding:       fund,
		Conversations: conv,
		SupportLink:   cfg.Bot.SupportLink,
	})

	a.http = httpserver.New(httpserver.Options{
		Addr:           cfg.HTTP.Listen,
		StaticDir:      cfg.HTTP.StaticDir,
		Webhook:        fund.WebhookHandler(),
		Ready:          a.ready,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	})
	return a, nil
}

// newRedis dials url and verifies the connection before use.
func newRedis(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), redisPingWait)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	logger.Info(ctx, component, "redis.connect", slog.String("addr", opt.Addr))
	return client, nil
}

// ready reports whether the database and session store are reachable.
func (a *App) ready(ctx context.Context) error {
	if err := coredatabase.Ping(ctx, a.db()); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (a *App) db() *sqlx.DB {
	if a.boot == nil {
		return nil
	}
	return a.boot.DB
}

// TelegramRunOptions returns the runtime options for the bot. The webhook
// listener starts with the bot and stops after it.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	if a == nil || a.bot == nil {
		return coretelegram.RunOptions{}, fmt.Errorf("app: not bootstrapped")
	}
	return coretelegram.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    a.bot.Registry(),
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Config, a.bot.OnRateLimited),
		Routes:      a.bot.Routes(),
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, rt coretelegram.Runtime) error {
	a.notifier.Bind(rt)
	if err := a.http.Start(); err != nil {
		a.notifier.Unbind()
		return fmt.Errorf("app: http listener: %w", err)
	}

	if mem, ok := a.sessions.(*state.MemoryStore); ok {
		sweepCtx, cancel := context.WithCancel(ctx)
		a.stopSweep = cancel
		go sweep(sweepCtx, mem, defaultSweepPeriod)
	}
	return nil
}

func (a *App) onStop(_ context.Context, _ coretelegram.Runtime) error {
	if a.stopSweep != nil {
		a.stopSweep()
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := a.http.Shutdown(ctx)
	a.notifier.Unbind()
	return err
}

// sweep drops expired in-memory sessions until ctx is done.
func sweep(ctx context.Context, mem *state.MemoryStore, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := mem.Sweep(); n > 0 {
				logger.Debug(ctx, component, "session.sweep", slog.Int("removed", n))
			}
		}
	}
}

// Close releases Redis and the database pool. It is safe to call twice.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		if a.redis != nil {
			err = errors.Join(err, a.redis.Close())
		}
		err = errors.Join(err, a.boot.Close())
	})
	return err
}
