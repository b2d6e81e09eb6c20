package keyboard

import (
	"unicode/utf8"

	tele "gopkg.in/telebot.v4"
)

// MaxCallbackData is Telegram's limit for callback_data, in bytes.
const MaxCallbackData = 64

// Button is an inline button carrying a raw callback payload.
type Button struct {
	Text string
	Data string
}

// Inline builds an inline keyboard from rows of buttons. Payloads longer than
// MaxCallbackData are cut on a rune boundary.
func Inline(rows ...[]Button) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tele.InlineButton, len(row))
		for i, b := range row {
			r[i] = tele.InlineButton{Text: b.Text, Data: ClampData(b.Data)}
		}
		inline = append(inline, r)
	}
	markup.InlineKeyboard = inline
	return markup
}

// Column places every button on its own row.
func Column(buttons []Button) [][]Button {
	return Grid(buttons, 1)
}

// Grid splits a flat list of buttons into rows of up to n buttons.
func Grid(buttons []Button, n int) [][]Button {
	n = max(n, 1)
	rows := make([][]Button, 0, (len(buttons)+n-1)/n)
	for i := 0; i < len(buttons); i += n {
		rows = append(rows, buttons[i:min(i+n, len(buttons))])
	}
	return rows
}

// ClampData truncates s to MaxCallbackData bytes without splitting a rune.
func ClampData(s string) string {
	if len(s) <= MaxCallbackData {
		return s
	}
	cut := MaxCallbackData
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
