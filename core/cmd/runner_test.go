package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/vtubot/core/config"
	coretelegram "github.com/m3rciful/vtubot/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type fakeApp struct {
	calls  *[]string
	optErr error
}

func (a fakeApp) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{
		OnStart: func(context.Context, coretelegram.Runtime) error {
			*a.calls = append(*a.calls, "start")
			return nil
		},
		OnStop: func(context.Context, coretelegram.Runtime) error {
			*a.calls = append(*a.calls, "stop")
			return nil
		},
	}, a.optErr
}

func (a fakeApp) Close() error {
	*a.calls = append(*a.calls, "close")
	return nil
}

func testOptions(calls *[]string) Options {
	return Options{
		ConfigEnvVar:      "VTUBOT_TEST_CONFIG",
		DefaultConfigPath: "default.yaml",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			*calls = append(*calls, "load:"+path)
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(ConfigCarrier) (TelegramApp, error) {
			return fakeApp{calls: calls}, nil
		},
		ShutdownLogger: func() error {
			*calls = append(*calls, "logger")
			return nil
		},
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			if err := opts.OnStart(ctx, coretelegram.Runtime{}); err != nil {
				return err
			}
			return opts.OnStop(ctx, coretelegram.Runtime{})
		},
	}
}

func TestRunLifecycleOrder(t *testing.T) {
	var calls []string
	t.Setenv("VTUBOT_TEST_CONFIG", "from-env.yaml")

	require.NoError(t, Run(testOptions(&calls)))
	assert.Equal(t, []string{"load:from-env.yaml", "start", "stop", "close", "logger"}, calls)
}

func TestRunUsesDefaultConfigPath(t *testing.T) {
	var calls []string
	t.Setenv("VTUBOT_TEST_CONFIG", "")

	require.NoError(t, Run(testOptions(&calls)))
	assert.Equal(t, "load:default.yaml", calls[0])
}

func TestRunFailures(t *testing.T) {
	var calls []string

	opts := testOptions(&calls)
	opts.LoadConfig = nil
	assert.Error(t, Run(opts))

	opts = testOptions(&calls)
	opts.DefaultConfigPath = ""
	t.Setenv("VTUBOT_TEST_CONFIG", "")
	assert.ErrorContains(t, Run(opts), "config path not provided")

	opts = testOptions(&calls)
	opts.LoadConfig = func(string) (ConfigCarrier, error) { return carrier{}, nil }
	assert.ErrorContains(t, Run(opts), "missing core configuration")

	calls = nil
	opts = testOptions(&calls)
	opts.Bootstrap = func(ConfigCarrier) (TelegramApp, error) {
		return fakeApp{calls: &calls, optErr: errors.New("no bot")}, nil
	}
	assert.ErrorContains(t, Run(opts), "no bot")
	assert.Equal(t, []string{"load:default.yaml", "close", "logger"}, calls)
}
