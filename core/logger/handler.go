package logger

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
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

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

type field struct {
	key string
	val any
}

// structuredHandler renders records as one flat line per event, either
// key=value or JSON, with well-known keys first.
type structuredHandler struct {
	cfg    handlerConfig
	pre    []field // attrs from WithAttrs, already resolved against groups
	groups []string
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

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.pre = slices.Clone(h.pre)
	prefix := strings.Join(h.groups, ".")
	for _, a := range attrs {
		clone.pre = appendAttr(clone.pre, prefix, a)
	}
	return &clone
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(slices.Clone(h.groups), name)
	return &clone
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errors.New("logger: writer not initialized")
	}
	asJSON := h.cfg.format == formatJSON

	rec := make(fields, 16)
	for _, f := range h.pre {
		rec[f.key] = f.val
	}
	prefix := strings.Join(h.groups, ".")
	var attrs []field
	r.Attrs(func(a slog.Attr) bool {
		attrs = appendAttr(attrs, prefix, a)
		return true
	})
	for _, f := range attrs {
		rec[f.key] = f.val
	}
	for _, f := range contextFields(ctx) {
		rec.setIfAbsent(f.key, f.val)
	}

	ts := r.Time.UTC()
	rec["ts"] = ts.Truncate(time.Millisecond).Format(timeFormatMillis)
	rec["level"] = normalizeLevel(r.Level.String())
	if asJSON {
		rec["ts_unix_nano"] = ts.UnixNano()
	}
	if rid := rec.str("rid"); rid != "" {
		if compact := CompactRID(rid); compact != rid {
			if asJSON {
				rec.setIfAbsent("rid_full", rid)
			}
			rec["rid"] = compact
		}
	}
	if rec.str("event") == "" {
		rec["event"] = cmp.Or(r.Message, "unknown")
	}
	if rec.str("component") == "" {
		rec["component"] = "app"
	}
	rec.normalizeEnums()
	rec.pruneEmpty()

	keys := rec.orderedKeys(h.cfg.keyOrder)
	var line []byte
	if asJSON {
		var err error
		if line, err = rec.encodeJSON(keys); err != nil {
			return err
		}
	} else {
		line = rec.encodeKV(keys)
	}
	return h.cfg.writer.Write(append(line, '\n'))
}

// appendAttr flattens a into dst, joining group names with dots and
// applying redaction and masking.
func appendAttr(dst []field, prefix string, a slog.Attr) []field {
	a.Value = a.Value.Resolve()
	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, child := range a.Value.Group() {
			dst = appendAttr(dst, key, child)
		}
		return dst
	}
	if key == "" {
		return dst
	}
	val, isDuration, ok := plainValue(a.Value)
	if !ok {
		return dst
	}
	if isDuration {
		key = durationKey(key)
	}
	return append(dst, field{key, protect(key, val)})
}

// plainValue converts v into something both encoders understand.
func plainValue(v slog.Value) (val any, isDuration, ok bool) {
	switch v.Kind() {
	case slog.KindString:
		return strings.TrimSpace(v.String()), false, true
	case slog.KindBool:
		return v.Bool(), false, true
	case slog.KindInt64:
		return v.Int64(), false, true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return int64(u), false, true
		}
		return v.Uint64(), false, true
	case slog.KindFloat64:
		return v.Float64(), false, true
	case slog.KindDuration:
		return RoundMS(v.Duration()).Milliseconds(), true, true
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339Nano), false, true
	}
	switch x := v.Any().(type) {
	case nil:
		return nil, false, false
	case error:
		return x.Error(), false, true
	case string:
		return strings.TrimSpace(x), false, true
	case time.Duration:
		return RoundMS(x).Milliseconds(), true, true
	case fmt.Stringer:
		return x.String(), false, true
	default:
		return fmt.Sprint(x), false, true
	}
}

func durationKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	}
	return key + "_ms"
}

// protect redacts secrets and masks personal data by the key's last segment.
func protect(key string, val any) any {
	leaf := strings.ToLower(key[strings.LastIndex(key, ".")+1:])
	if _, ok := secretKeys[leaf]; ok {
		return "[redacted]"
	}
	s, ok := val.(string)
	if !ok || s == "" {
		return val
	}
	switch leaf {
	case "phone":
		return maskPhone(s)
	case "email":
		return maskEmail(s)
	}
	return val
}

// maskPhone keeps the network prefix and the last three digits.
func maskPhone(s string) string {
	r := []rune(s)
	if len(r) <= 7 {
		return strings.Repeat("*", len(r))
	}
	return string(r[:4]) + strings.Repeat("*", len(r)-7) + string(r[len(r)-3:])
}

func maskEmail(s string) string {
	local, domain, ok := strings.Cut(s, "@")
	r := []rune(local)
	if !ok || len(r) == 0 {
		return "***"
	}
	return string(r[0]) + "***@" + domain
}

type fields map[string]any

func (f fields) setIfAbsent(key string, val any) {
	if _, ok := f[key]; !ok {
		f[key] = val
	}
}

func (f fields) str(key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// normalizeEnums lower-cases known enumerations. Unknown status values are
// kept for diagnosis; unknown outcomes are dropped.
func (f fields) normalizeEnums() {
	if s := f.str("status"); s != "" {
		f["status"] = normalizeStatus(s)
	}
	if o := f.str("outcome"); o != "" {
		if v, ok := normalizeOutcome(o); ok {
			f["outcome"] = v
		} else {
			delete(f, "outcome")
		}
	}
}

func (f fields) pruneEmpty() {
	for k, v := range f {
		if v == nil || v == "" {
			delete(f, k)
		}
	}
}

// orderedKeys lists keys named in order first, then the rest sorted.
func (f fields) orderedKeys(order []string) []string {
	keys := make([]string, 0, len(f))
	seen := make(map[string]bool, len(order))
	for _, k := range order {
		if _, ok := f[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	head := len(keys)
	for k := range f {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys[head:])
	return keys
}

func (f fields) encodeJSON(keys []string) ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range keys {
		v, err := json.Marshal(f[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func (f fields) encodeKV(keys []string) []byte {
	var b bytes.Buffer
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		s := fmt.Sprint(f[k])
		if strings.ContainsFunc(s, needsQuote) {
			s = strconv.Quote(s)
		}
		b.WriteString(s)
	}
	return b.Bytes()
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}
