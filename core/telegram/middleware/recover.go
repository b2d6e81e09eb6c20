package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/vtubot/core/logger"
	tghelpers "github.com/m3rciful/vtubot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// PanicReply is sent to the user when a handler panics.
const PanicReply = "Something went wrong. Please try again."

// RecoverMiddleware turns a handler panic into an error log and a short reply,
// keeping the poller alive.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			logger.Error(tghelpers.BuildContext(c), "tg", "tg.panic",
				slog.String("status", "fail"),
				slog.String("err", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())),
			)
			if c.Chat() != nil {
				_ = c.Send(PanicReply)
			}
			err = nil
		}()
		return next(c)
	}
}
