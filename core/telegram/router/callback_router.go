package router

import (
	"log/slog"
	"time"

	tg "github.com/m3rciful/vtubot/core/telegram"
	"github.com/m3rciful/vtubot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions sets the handler used when neither the registry nor its
// fallback knows a callback key.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute dispatches inline-button presses by payload key.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		key := callbacks.Key(c)
		s := newSummary("callback."+handlerName(key), time.Now(), slog.String("cb_key", key))

		h, ok := reg.GetCallback(key)
		if !ok || h == nil {
			s.extras = append(s.extras, slog.String("reason", "not_found"))
			if h = reg.CallbackNotFound(); h == nil {
				h = opts.NotFound
			}
			if h == nil {
				_ = c.Respond()
				s.skip(c)
				return nil
			}
			return s.run(c, func() error { return h(c) })
		}
		// Stop the client spinner before the handler does any slow work.
		_ = c.Respond()
		return s.run(c, func() error { return h(c) })
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: wrap(handler)}
}
