// Package netutil classifies Telegram API failures for the retry loops in
// the HTTP transport and the outbound dispatcher.
package netutil

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	tele "gopkg.in/telebot.v4"
)

// maxRetryAfter caps the delay honoured from a Telegram flood response.
const maxRetryAfter = 30 * time.Second

// ShouldRetry reports whether a failed Telegram call is worth repeating:
// timeouts, refused or reset connections, flood control and 5xx answers.
// Client errors such as a blocked bot or a bad request are final.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var flood tele.FloodError
	if errors.As(err, &flood) {
		return true
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code >= http.StatusInternalServerError
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Backoff is the delay before attempt+1: base grows linearly with the
// attempt number unless Telegram asked for a longer pause.
func Backoff(err error, base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base * time.Duration(attempt)
	if wait := RetryAfter(err); wait > delay {
		delay = wait
	}
	return delay
}

// RetryAfter extracts the pause requested by a flood-control error.
func RetryAfter(err error) time.Duration {
	var flood tele.FloodError
	if !errors.As(err, &flood) || flood.RetryAfter <= 0 {
		return 0
	}
	return min(time.Duration(flood.RetryAfter)*time.Second, maxRetryAfter)
}
