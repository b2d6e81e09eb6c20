package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/vtubot/core/config"
)

func names(mws []Middleware) []string {
	out := make([]string, len(mws))
	for i, m := range mws {
		out[i] = m.Name
	}
	return out
}

func TestDefaultMiddlewaresWithoutRateLimit(t *testing.T) {
	assert.Equal(t, []string{"recover", "logger", "metrics"}, names(DefaultMiddlewares(nil, nil)))
	assert.Equal(t, []string{"recover", "logger", "metrics"}, names(DefaultMiddlewares(&coreconfig.Config{}, nil)))
}

func TestDefaultMiddlewaresRateLimit(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.RateLimit.IntervalMS = 60_000
	cfg.RateLimit.ExcludeUpdates = []string{coreconfig.UpdateCallback}

	limited := 0
	mws := DefaultMiddlewares(cfg, func(tele.Context) error {
		limited++
		return nil
	})
	require.Equal(t, []string{"recover", "rate_limit", "logger", "metrics"}, names(mws))

	handled := 0
	h := mws[1].Use(func(tele.Context) error {
		handled++
		return nil
	})
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	user := &tele.User{ID: 5}
	msg := bot.NewContext(tele.Update{ID: 1, Message: &tele.Message{Sender: user, Chat: &tele.Chat{ID: 5}, Text: "hi"}})
	cb := bot.NewContext(tele.Update{ID: 2, Callback: &tele.Callback{Sender: user, Data: "Airtime_MTN"}})

	require.NoError(t, h(msg))
	require.NoError(t, h(msg))
	require.NoError(t, h(cb))
	assert.Equal(t, 2, handled)
	assert.Equal(t, 1, limited)
}
