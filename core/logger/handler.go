package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

type logFormat int

const (
	formatJSON logFormat = iota
	formatKV
)

// defaultKeyOrder pins the emission order of well-known attributes so that
// lines remain scannable and diffable across components.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"update_id",
	"user_id",
	"chat_id",
	"handler",
	"state",
	"outcome",
	"duration_ms",
	"count",
	"attempted",
	"succeeded",
	"failed",
	"amount",
	"balance",
	"referrer_id",
	"order_ref",
	"kind",
	"setting",
	"value",
	"mode",
	"err",
	"err_code",
	"cause",
	"attempts",
}

type handlerConfig struct {
	level    slog.Leveler
	writer   io.Writer
	format   logFormat
	keyOrder []string
}

// structuredHandler renders records with a deterministic key order in either
// KV (human) or JSON (machine) form. Context metadata attached via runtime.go
// is merged into every record.
type structuredHandler struct {
	cfg   handlerConfig
	mu    *sync.Mutex
	attrs []slog.Attr
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if len(cfg.keyOrder) == 0 {
		cfg.keyOrder = append([]string(nil), defaultKeyOrder...)
	}
	return &structuredHandler{
		cfg: cfg,
		mu:  &sync.Mutex{},
	}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.cfg.level != nil {
		min = h.cfg.level.Level()
	}
	return level >= min
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

// WithGroup flattens groups; nesting is not used in this codebase.
func (h *structuredHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *structuredHandler) Handle(ctx context.Context, rec slog.Record) error {
	collected := make([]slog.Attr, 0, rec.NumAttrs()+len(h.attrs)+8)
	collected = append(collected, h.attrs...)
	rec.Attrs(func(a slog.Attr) bool {
		collected = append(collected, a)
		return true
	})

	seen := make(map[string]int, len(collected))
	for i, a := range collected {
		if _, ok := seen[a.Key]; !ok {
			seen[a.Key] = i
		}
	}

	// Message doubles as the event name unless an explicit event attr is set.
	if _, ok := seen["event"]; !ok && rec.Message != "" {
		collected = append(collected, slog.String("event", rec.Message))
		seen["event"] = len(collected) - 1
	}

	collected = h.mergeContextMeta(ctx, collected, seen)

	ordered := make([]slog.Attr, 0, len(collected)+2)
	ordered = append(ordered,
		slog.String("ts", rec.Time.UTC().Format(time.RFC3339Nano)),
		slog.String("level", rec.Level.String()),
	)
	used := make(map[string]bool, len(collected))
	for _, key := range h.cfg.keyOrder {
		if key == "ts" || key == "level" {
			continue
		}
		if idx, ok := seen[key]; ok {
			ordered = append(ordered, collected[idx])
			used[key] = true
		}
	}
	for _, a := range collected {
		if !used[a.Key] && seen[a.Key] >= 0 {
			if containsAttr(ordered, a.Key) {
				continue
			}
			ordered = append(ordered, a)
		}
	}

	var line []byte
	if h.cfg.format == formatKV {
		line = renderKV(ordered)
	} else {
		line = renderJSON(ordered)
	}
	line = append(line, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.cfg.writer.Write(line)
	return err
}

func (h *structuredHandler) mergeContextMeta(ctx context.Context, attrs []slog.Attr, seen map[string]int) []slog.Attr {
	add := func(a slog.Attr) {
		if _, ok := seen[a.Key]; ok {
			return
		}
		attrs = append(attrs, a)
		seen[a.Key] = len(attrs) - 1
	}
	if rid := RIDFrom(ctx); rid != "" {
		if h.cfg.format == formatKV {
			add(slog.String("rid", CompactRID(rid)))
		} else {
			add(slog.String("rid", rid))
		}
	}
	if id := UpdateIDFrom(ctx); id != 0 {
		add(slog.Int("update_id", id))
	}
	if id := UserIDFrom(ctx); id != 0 {
		add(slog.Int64("user_id", id))
	}
	if id := ChatIDFrom(ctx); id != 0 {
		add(slog.Int64("chat_id", id))
	}
	if handler := HandlerFrom(ctx); handler != "" {
		add(slog.String("handler", handler))
	}
	return attrs
}

func containsAttr(attrs []slog.Attr, key string) bool {
	for _, a := range attrs {
		if a.Key == key {
			return true
		}
	}
	return false
}

func renderKV(attrs []slog.Attr) []byte {
	var b strings.Builder
	for i, a := range attrs {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(a.Key)
		b.WriteByte('=')
		b.WriteString(kvValue(a.Value))
	}
	return []byte(b.String())
}

func kvValue(v slog.Value) string {
	s := attrString(v)
	if s == "" || strings.ContainsAny(s, " \t\"=") {
		return strconv.Quote(s)
	}
	return s
}

func attrString(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v.Any())
	}
}

func renderJSON(attrs []slog.Attr) []byte {
	var b strings.Builder
	b.WriteByte('{')
	for i, a := range attrs {
		if i > 0 {
			b.WriteByte(',')
		}
		key, _ := json.Marshal(a.Key)
		b.Write(key)
		b.WriteByte(':')
		b.Write(jsonValue(a.Value))
	}
	b.WriteByte('}')
	return []byte(b.String())
}

func jsonValue(v slog.Value) []byte {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindInt64:
		return []byte(strconv.FormatInt(v.Int64(), 10))
	case slog.KindUint64:
		return []byte(strconv.FormatUint(v.Uint64(), 10))
	case slog.KindBool:
		return []byte(strconv.FormatBool(v.Bool()))
	case slog.KindFloat64:
		out, err := json.Marshal(v.Float64())
		if err == nil {
			return out
		}
	case slog.KindDuration:
		out, _ := json.Marshal(v.Duration().String())
		return out
	}
	out, err := json.Marshal(attrString(v))
	if err != nil {
		out, _ = json.Marshal(fmt.Sprintf("%v", v.Any()))
	}
	return out
}
