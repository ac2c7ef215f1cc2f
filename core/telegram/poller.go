package telegram

import (
	"log/slog"
	"net"
	"strconv"
	"time"

	coreconfig "github.com/landerpin123/uniq-tarot/core/config"

	tele "gopkg.in/telebot.v4"
)

const defaultLongPollTimeout = 10 * time.Second

// newPoller picks how updates arrive. The config is already normalized, so
// anything but webhook means long polling.
func newPoller(cfg *coreconfig.Config) tele.Poller {
	if cfg.Telegram.RunMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:   net.JoinHostPort(cfg.Webhook.Listen, strconv.Itoa(cfg.Webhook.Port)),
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}
	timeout := defaultLongPollTimeout
	if s := cfg.Telegram.LongPollTimeoutSeconds; s > 0 {
		timeout = time.Duration(s) * time.Second
	}
	return &tele.LongPoller{Timeout: timeout}
}

func pollerAttrs(p tele.Poller) []slog.Attr {
	switch p := p.(type) {
	case *tele.Webhook:
		return []slog.Attr{
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
		}
	case *tele.LongPoller:
		return []slog.Attr{
			slog.String("mode", coreconfig.RunModeLongpoll),
			slog.Int64("timeout_ms", p.Timeout.Milliseconds()),
		}
	}
	return nil
}
