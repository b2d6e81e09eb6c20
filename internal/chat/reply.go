// Package chat carries flow replies to the Telegram transport.
package chat

import (
	tghelpers "github.com/m3rciful/vtubot/core/telegram/helpers"
	"github.com/m3rciful/vtubot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// Reply is a message produced by a flow, optionally with inline buttons.
type Reply struct {
	Text    string
	Buttons [][]keyboard.Button
}

// Text returns a plain text reply.
func Text(s string) Reply { return Reply{Text: s} }

// Empty reports whether there is nothing to send.
func (r Reply) Empty() bool { return r.Text == "" }

// Send delivers r to the chat of c through the core async sender.
func Send(c tele.Context, r Reply) error {
	if r.Empty() {
		return nil
	}
	if len(r.Buttons) == 0 {
		return tghelpers.SendMarkup(c, r.Text, nil)
	}
	return tghelpers.SendMarkup(c, r.Text, keyboard.Inline(r.Buttons...))
}
