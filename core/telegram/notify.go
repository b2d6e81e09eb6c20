package telegram

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/vtubot/core/logger"
	tgsender "github.com/m3rciful/vtubot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// ErrNotifierUnbound is returned by Notify before Bind or after Unbind.
var ErrNotifierUnbound = errors.New("telegram: notifier not bound to a running bot")

// Notifier sends messages that do not originate from an update, such as
// payment confirmations triggered by an HTTP webhook. It is created before the
// bot starts and bound to the runtime from OnStart.
type Notifier struct {
	bot  atomic.Pointer[tele.Bot]
	disp atomic.Pointer[tgsender.Dispatcher]
}

// NewNotifier returns an unbound Notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Bind attaches the running bot and its outbound dispatcher.
func (n *Notifier) Bind(rt Runtime) {
	n.bot.Store(rt.Bot)
	n.disp.Store(rt.Dispatcher)
}

// Unbind detaches the notifier; subsequent Notify calls fail fast.
func (n *Notifier) Unbind() {
	n.bot.Store(nil)
	n.disp.Store(nil)
}

// Notify sends text to the private chat of userID, through the dispatcher when
// one is bound and directly otherwise.
func (n *Notifier) Notify(ctx context.Context, userID int64, text string) error {
	bot := n.bot.Load()
	if bot == nil {
		return ErrNotifierUnbound
	}
	run := func() error {
		_, err := bot.Send(tele.ChatID(userID), text)
		return err
	}
	if d := n.disp.Load(); d != nil {
		err := d.Enqueue(ctx, "notify", "sendMessage", run)
		if err == nil {
			return nil
		}
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", "notify"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
	return run()
}
