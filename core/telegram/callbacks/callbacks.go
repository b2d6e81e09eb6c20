// Package callbacks decodes inline button payloads.
//
// Two encodings reach the bot: Telebot's own "\f<unique>|<payload>" form, and
// raw underscore-delimited tokens such as "Airtime_MTN" or
// "data_mtn_2_300_30_1GB Monthly". The routing key of a raw payload is its
// first token in lower case.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Separator delimits tokens inside raw payloads.
const Separator = "_"

// Parse returns the routing key and payload of cb.
func Parse(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	return ParseData(cb.Data)
}

// ParseData splits raw callback data into routing key and payload.
func ParseData(data string) (string, string) {
	if strings.HasPrefix(data, "\f") {
		unique, payload, _ := strings.Cut(strings.TrimPrefix(data, "\f"), "|")
		return strings.TrimSpace(unique), payload
	}
	data = strings.TrimSpace(data)
	head, _, _ := strings.Cut(data, Separator)
	return strings.ToLower(head), data
}

// Tokens splits a raw payload into at most n underscore-delimited tokens; the
// last token keeps any remaining separators. n <= 0 means no limit.
func Tokens(payload string, n int) []string {
	if payload == "" {
		return nil
	}
	if n <= 0 {
		return strings.Split(payload, Separator)
	}
	return strings.SplitN(payload, Separator, n)
}

// Key returns the routing key of the callback carried by c.
func Key(c tele.Context) string {
	k, _ := Parse(c.Callback())
	return k
}

// Payload returns the raw payload of the callback carried by c.
func Payload(c tele.Context) string {
	_, p := Parse(c.Callback())
	return p
}

// Join builds a raw payload from tokens.
func Join(tokens ...string) string {
	return strings.Join(tokens, Separator)
}
