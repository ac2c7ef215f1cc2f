// Package callbacks decodes inline button data. telebot encodes a button
// as "\f<unique>|<payload>" and splits it itself only for endpoints
// registered per unique; under a single OnCallback route Data stays raw.
package callbacks

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ParseCallbackData returns the button key and its payload, which may be
// empty.
func ParseCallbackData(cb *tele.Callback) (key, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	key, payload, _ = strings.Cut(strings.TrimPrefix(cb.Data, "\f"), "|")
	return strings.TrimSpace(key), payload
}

// CallbackKey is the key of the callback in c, or "".
func CallbackKey(c tele.Context) string {
	key, _ := ParseCallbackData(c.Callback())
	return key
}

// CallbackPayload is the payload of the callback in c, or "".
func CallbackPayload(c tele.Context) string {
	_, payload := ParseCallbackData(c.Callback())
	return payload
}

// PayloadInt parses the payload as a decimal integer.
func PayloadInt(c tele.Context) (int, error) {
	return strconv.Atoi(strings.TrimSpace(CallbackPayload(c)))
}
