package router

import (
	"context"
	"time"

	tg "github.com/m3rciful/vtubot/core/telegram"
	tghelpers "github.com/m3rciful/vtubot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// FSM is the conversation engine consulted before command lookup.
type FSM interface {
	InProgress(ctx context.Context, userID int64) bool
	HandleText(c tele.Context) error
}

// TextOptions sets the handlers for text and documents nothing else takes.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes routes plain text in order: to the FSM when the sender has an
// active conversation, then to commands typed without the menu (and their
// aliases), then to the registry fallback. Documents are never expected.
func TextRoutes(fsm FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	onText := func(c tele.Context) error {
		start := time.Now()
		name, h := resolveText(c, fsm, reg, opts)
		if h == nil {
			newSummary(name, start).skip(c)
			return nil
		}
		return newSummary(name, start).run(c, func() error { return h(c) })
	}
	onDocument := func(c tele.Context) error {
		s := newSummary("unexpected_document", time.Now())
		if opts.UnknownDocument == nil {
			s.skip(c)
			return nil
		}
		return s.run(c, func() error { return opts.UnknownDocument(c) })
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(onText)},
		{Endpoint: tele.OnDocument, Handler: wrap(onDocument)},
	}
}

func resolveText(c tele.Context, fsm FSM, reg *tg.Registry, opts TextOptions) (string, tele.HandlerFunc) {
	if fsm != nil && c.Sender() != nil && fsm.InProgress(tghelpers.BuildContext(c), c.Sender().ID) {
		return "fsm", fsm.HandleText
	}
	if reg != nil {
		if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil {
			return handlerName(key), cmd.Handler
		}
		if fb := reg.TextFallback(); fb != nil {
			return "fallback", fb
		}
	}
	return "unknown_text", opts.UnknownText
}
