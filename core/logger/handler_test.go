package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// render runs emit against a fresh handler and returns the single line it
// produced.
func render(t *testing.T, format logFormat, emit func(log *slog.Logger)) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	emit(slog.New(newStructuredHandler(handlerConfig{
		level:  slog.LevelInfo,
		writer: aw,
		format: format,
	})))
	require.NoError(t, aw.Flush())
	require.NoError(t, aw.Close())
	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)
	require.NotContains(t, line, "\n", "expected a single line")
	return line
}

func updateContext(rid string) context.Context {
	return WithUpdateMeta(WithRID(Background(), rid), 42, 7, 9)
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	line := render(t, formatKV, func(log *slog.Logger) {
		LogEvent(updateContext("rid-123"), log.With("component", "app"), slog.LevelInfo, "test.event",
			slog.String("status", "ok"),
			slog.String("cause", "unit"),
		)
	})

	tokens := strings.Split(line, " ")
	want := []string{"ts=", "level=INFO", "component=app", "event=test.event", "status=ok", "rid=rid-123"}
	require.GreaterOrEqual(t, len(tokens), len(want), line)
	for i, prefix := range want {
		assert.True(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, want prefix %s", i, tokens[i], prefix)
	}
	assert.Contains(t, line, "user_id=7")
	assert.Contains(t, line, "chat_id=9")
	assert.Contains(t, line, "update_id=42")
}

func TestStructuredHandlerJSON(t *testing.T) {
	line := render(t, formatJSON, func(log *slog.Logger) {
		LogEvent(updateContext("12:34:56"), log.With("component", "service.funding"), slog.LevelError, "verify.fail",
			slog.String("status", "FAIL"),
			slog.String("err", "boom"),
			slog.Int64("amount", 500000),
		)
	})

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &got))
	assert.Equal(t, "ERROR", got["level"])
	assert.Equal(t, "service.funding", got["component"])
	assert.Equal(t, "verify.fail", got["event"])
	assert.Equal(t, "fail", got["status"])
	assert.Equal(t, CompactRID("12:34:56"), got["rid"])
	assert.Equal(t, "12:34:56", got["rid_full"])
	assert.Equal(t, float64(500000), got["amount"])
	assert.Contains(t, got, "ts_unix_nano")

	order := []string{`"ts":`, `"level":`, `"component":`, `"event":`, `"status":`, `"rid":`}
	last := -1
	for _, key := range order {
		idx := strings.Index(line, key)
		require.Greater(t, idx, last, "%s out of order in %s", key, line)
		last = idx
	}
}

func TestStructuredHandlerCompactRIDKV(t *testing.T) {
	line := render(t, formatKV, func(log *slog.Logger) {
		LogEvent(WithRID(Background(), "123:456:789"), log, slog.LevelInfo, "rid.test")
	})
	assert.Contains(t, line, "rid="+CompactRID("123:456:789"))
	assert.NotContains(t, line, "rid_full=")
}

func TestStructuredHandlerRedactsSecrets(t *testing.T) {
	line := render(t, formatKV, func(log *slog.Logger) {
		LogEvent(Background(), log.With("component", "client.paystack"), slog.LevelWarn, "webhook.reject",
			slog.String("signature", "abc123"),
			slog.Group("headers", slog.String("Authorization", "Bearer sk_live_x")),
			slog.String("reference", "ref-1"),
		)
	})
	assert.NotContains(t, line, "abc123")
	assert.NotContains(t, line, "sk_live_x")
	assert.Contains(t, line, "signature=[redacted]")
	assert.Contains(t, line, "headers.Authorization=[redacted]")
	assert.Contains(t, line, "reference=ref-1")
}

func TestStructuredHandlerDurationKeys(t *testing.T) {
	line := render(t, formatKV, func(log *slog.Logger) {
		LogEvent(Background(), log, slog.LevelInfo, "vend.done",
			slog.Duration("duration", 1500*time.Microsecond),
			slog.Duration("upstream_duration", 2*time.Second),
			slog.Duration("backoff", 250*time.Millisecond),
		)
	})
	for _, want := range []string{"duration_ms=2", "upstream_duration_ms=2000", "backoff_ms=250", "component=app"} {
		assert.Contains(t, line, want)
	}
}

func TestStructuredHandlerMasksPersonalData(t *testing.T) {
	line := render(t, formatKV, func(log *slog.Logger) {
		LogEvent(Background(), log.With("component", "service.purchase").WithGroup("req"), slog.LevelInfo, "purchase.complete",
			slog.String("phone", "08031234567"),
			slog.String("email", "123456@telegram.bot"),
		)
	})
	assert.Contains(t, line, "req.phone=0803****567")
	assert.Contains(t, line, "req.email=1***@telegram.bot")
	assert.Contains(t, line, "component=service.purchase")
	assert.NotContains(t, line, "08031234567")
}

func TestStructuredHandlerDropsBelowLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	log := slog.New(newStructuredHandler(handlerConfig{level: slog.LevelWarn, writer: aw, format: formatKV}))
	LogEvent(Background(), log, slog.LevelInfo, "quiet")
	require.NoError(t, aw.Close())
	assert.Empty(t, buf.String())
}

func TestMaskHelpers(t *testing.T) {
	assert.Equal(t, "*****", maskPhone("12345"))
	assert.Equal(t, "+234*******678", maskPhone("+2348012345678"))
	assert.Equal(t, "***", maskEmail("no-at-sign"))
	assert.Equal(t, "a***@x.io", maskEmail("alice@x.io"))
}
