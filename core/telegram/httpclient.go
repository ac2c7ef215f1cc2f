package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/landerpin123/uniq-tarot/core/telegram/netutil"
)

// httpTuning holds the transport limits for Bot API calls. Long polling
// waits on the server side, so the client timeout must exceed the poll
// timeout.
type httpTuning struct {
	dial, keepAlive, tlsHandshake time.Duration
	responseHeader, idle, client  time.Duration
	retries                       int
	backoff                       time.Duration
}

var defaultTuning = httpTuning{
	dial:           5 * time.Second,
	keepAlive:      30 * time.Second,
	tlsHandshake:   5 * time.Second,
	responseHeader: 5 * time.Second,
	idle:           30 * time.Second,
	client:         30 * time.Second,
	retries:        3,
	backoff:        2 * time.Second,
}

// BuildHTTPClient returns the client the bot uses for the Telegram API.
// Transport failures are retried; API answers are returned as is.
func BuildHTTPClient() *http.Client {
	return defaultTuning.build()
}

func (t httpTuning) build() *http.Client {
	dialer := &net.Dialer{Timeout: t.dial, KeepAlive: t.keepAlive}
	return &http.Client{
		Timeout: t.client,
		Transport: &retryTransport{
			next: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           dialer.DialContext,
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       t.idle,
				TLSHandshakeTimeout:   t.tlsHandshake,
				ResponseHeaderTimeout: t.responseHeader,
				ExpectContinueTimeout: time.Second,
			},
			retries: t.retries,
			backoff: t.backoff,
		},
	}
}

type retryTransport struct {
	next    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}

	resp, err := next.RoundTrip(req)
	for attempt := 1; err != nil && attempt <= t.retries && netutil.ShouldRetry(err); attempt++ {
		again, ok := rewind(req)
		if !ok {
			break
		}
		if werr := wait(req, netutil.Backoff(err, t.backoff, attempt)); werr != nil {
			return nil, werr
		}
		resp, err = next.RoundTrip(again)
	}
	return resp, err
}

// rewind clones req for another attempt. Requests whose body cannot be
// replayed are sent once.
func rewind(req *http.Request) (*http.Request, bool) {
	again := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return again, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	again.Body = body
	return again, true
}

func wait(req *http.Request, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-req.Context().Done():
		return req.Context().Err()
	case <-timer.C:
		return nil
	}
}
