package logger

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	tsLayout = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// structuredHandler renders records as flat key/value or JSON lines with a
// fixed leading key order. Attributes added through WithAttrs are flattened
// once, under the group prefix active at that point.
type structuredHandler struct {
	cfg    handlerConfig
	prefix string
	preset entry
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = slices.Clone(defaultKeyOrder)
	}
	return &structuredHandler{cfg: cfg}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errors.New("logger: writer not initialized")
	}
	e := h.entry(ctx, r)
	keys := e.keys(h.cfg.keyOrder)
	var (
		line []byte
		err  error
	)
	if h.cfg.format == formatJSON {
		line, err = e.appendJSON(nil, keys)
	} else {
		line = e.appendKV(nil, keys)
	}
	if err != nil {
		return err
	}
	return h.cfg.writer.Write(r.Level, append(line, '\n'))
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.preset = make(entry, len(h.preset)+len(attrs))
	maps.Copy(next.preset, h.preset)
	for _, a := range attrs {
		next.preset.add(h.prefix, a)
	}
	return &next
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = joinKey(h.prefix, name)
	return &next
}

// entry builds the line for r. Explicit attributes win over the request
// context; ts and level always come from the record.
func (h *structuredHandler) entry(ctx context.Context, r slog.Record) entry {
	e := make(entry, len(h.preset)+r.NumAttrs()+8)
	maps.Copy(e, h.preset)
	r.Attrs(func(a slog.Attr) bool {
		e.add(h.prefix, a)
		return true
	})
	for _, a := range metaFrom(ctx).attrs() {
		if _, set := e[a.Key]; !set {
			e[a.Key] = a.Value.Any()
		}
	}

	at := r.Time.UTC()
	e["ts"] = at.Truncate(time.Millisecond).Format(tsLayout)
	e["level"] = normalizeLevel(r.Level.String())
	if h.cfg.format == formatJSON {
		e["ts_unix_nano"] = at.UnixNano()
	}
	if e.str("event") == "" {
		e["event"] = cmp.Or(r.Message, "unknown")
	}
	if e.str("component") == "" {
		e["component"] = "app"
	}
	if rid := e.str("rid"); rid != "" {
		if short := CompactRID(rid); short != rid {
			if h.cfg.format == formatJSON {
				e["rid_full"] = rid
			}
			e["rid"] = short
		}
	}

	e.redact()
	e.canonicalize()
	e.prune()
	return e
}

// entry is one log line before encoding.
type entry map[string]any

// add stores a under prefix, descending into groups. Durations are stored
// as whole milliseconds under a key that names the unit.
func (e entry) add(prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	key := joinKey(prefix, a.Key)
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			e.add(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if v.Kind() == slog.KindDuration {
		e[msKey(key)] = RoundMS(v.Duration()).Milliseconds()
		return
	}
	if x := plain(v); x != nil {
		e[key] = x
	}
}

func (e entry) str(key string) string {
	switch v := e[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// personalKeys hold profile data users type in; they never reach the sinks.
var personalKeys = []string{"name", "birth_date", "text"}

func (e entry) redact() {
	for _, k := range personalKeys {
		if _, ok := e[k]; ok {
			e[k] = "[redacted]"
		}
	}
}

// canonicalize lowercases the enumerated fields. Unknown cache and outcome
// values are dropped; unknown statuses are kept as given.
func (e entry) canonicalize() {
	if s := e.str("status"); s != "" {
		if v, ok := normalizeStatus(s); ok {
			e["status"] = v
		}
	}
	for key, norm := range map[string]func(string) (string, bool){
		"cache":   normalizeCache,
		"outcome": normalizeOutcome,
	} {
		raw := e.str(key)
		if raw == "" {
			continue
		}
		if v, ok := norm(raw); ok {
			e[key] = v
		} else {
			delete(e, key)
		}
	}
}

func (e entry) prune() {
	maps.DeleteFunc(e, func(_ string, v any) bool { return v == nil || v == "" })
}

// keys lists the keys named in order first, then the rest sorted.
func (e entry) keys(order []string) []string {
	lead := make([]string, 0, len(order))
	for _, k := range order {
		if _, ok := e[k]; ok && !slices.Contains(lead, k) {
			lead = append(lead, k)
		}
	}
	rest := make([]string, 0, len(e)-len(lead))
	for k := range e {
		if !slices.Contains(lead, k) {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(lead, rest...)
}

func (e entry) appendJSON(buf []byte, keys []string) ([]byte, error) {
	buf = append(buf, '{')
	for i, k := range keys {
		name, _ := json.Marshal(k)
		val, err := json.Marshal(e[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, name...)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	return append(buf, '}'), nil
}

func (e entry) appendKV(buf []byte, keys []string) []byte {
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, k...)
		buf = append(buf, '=')
		switch v := e[k].(type) {
		case bool:
			buf = strconv.AppendBool(buf, v)
		case int64:
			buf = strconv.AppendInt(buf, v, 10)
		default:
			s := fmt.Sprint(v)
			if strings.ContainsFunc(s, needsQuote) {
				buf = strconv.AppendQuote(buf, s)
			} else {
				buf = append(buf, s...)
			}
		}
	}
	return buf
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}

// plain converts a resolved non-group value into what the encoders print.
// nil means the attribute is skipped.
func plain(v slog.Value) any {
	switch v.Kind() {
	case slog.KindString:
		return strings.TrimSpace(v.String())
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339Nano)
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return int64(u)
		}
		return v.Uint64()
	case slog.KindAny, slog.KindLogValuer:
	default:
		return v.Any()
	}
	switch x := v.Any().(type) {
	case nil:
		return nil
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

// msKey renames duration attributes so their unit is explicit.
func msKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	}
	return key + "_ms"
}
