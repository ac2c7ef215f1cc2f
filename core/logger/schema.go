package logger

import "strings"

var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

// Accepted values of the enumerated fields.
var (
	statusValues  = set("ok", "fail", "skip", "retry", "rate_limited", "cancelled")
	cacheValues   = set("hit", "miss", "refresh")
	outcomeValues = set("ok", "fail", "cancelled", "rate_limited")
)

func set(values ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if name, ok := levelNames[strings.ToLower(level)]; ok {
		return name
	}
	return strings.ToUpper(level)
}

func normalizeEnum(values map[string]struct{}, v string) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "", false
	}
	_, ok := values[v]
	return v, ok
}

func normalizeStatus(s string) (string, bool)  { return normalizeEnum(statusValues, s) }
func normalizeCache(s string) (string, bool)   { return normalizeEnum(cacheValues, s) }
func normalizeOutcome(s string) (string, bool) { return normalizeEnum(outcomeValues, s) }

// defaultKeyOrder fixes the leading keys of every line: identity first,
// then the request, the domain values and finally errors and retries.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "ts_unix_nano", "update_id", "user_id", "chat_id", "chat_type",
	"handler", "op", "action", "cb_key", "outcome", "duration_ms",
	"messages", "kb", "count", "cache", "payload", "text_len", "lang", "username",
	"mode", "listen", "public_url", "driver", "db", "host", "port",
	"spread", "price", "balance", "picked", "reading_id", "sessions", "registered", "queue_len",
	"err", "err_code", "cause", "retryable", "attempts", "backoff_ms",
}
