package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestNew(t *testing.T) {
	l := New()
	require.NotNil(t, l)
	assert.NotNil(t, l.zl)
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)
	require.NotNil(t, l)
	l.Info("hello")
	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "INFO", entries[0]["LEVEL"])
	assert.Equal(t, "hello", entries[0]["MESSAGE"])
}

func TestInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)
	l.Info("test message", F("key", "value"))
	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "test message", entries[0]["MESSAGE"])
	assert.Equal(t, "value", entries[0]["key"])
}

func TestError(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)
	l.Error("something broke", F("code", 500), Error(errors.New("oops")))
	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "ERROR", entries[0]["LEVEL"])
	assert.Equal(t, float64(500), entries[0]["code"])
	assert.Equal(t, "oops", entries[0]["ERROR"])
}

func TestWarn(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)
	l.Warn("watch out")
	assert.Contains(t, buf.String(), `"LEVEL":"WARN"`)
}

func TestDebug(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)
	l.Debug("details")
	assert.Contains(t, buf.String(), `"LEVEL":"DEBUG"`)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithLevel(&buf, "warn")
	l.Debug("hidden")
	l.Info("hidden too")
	l.Warn("shown")
	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["MESSAGE"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{" error ", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Info("dropped", F("a", 1))
	assert.NotPanics(t, func() { _ = l.Sync() })
}

func TestFieldConstructors(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		key   string
	}{
		{"Action", Action("load"), "ACTION"},
		{"Status", Status("ok"), "STATUS"},
		{"Count", Count(5), "COUNT"},
		{"Error", Error(errors.New("oops")), "ERROR"},
		{"Reason", Reason("because"), "REASON"},
		{"BookingID", BookingID("42"), "BOOKING_ID"},
		{"Room", Room("Agni"), "ROOM"},
		{"Event", Event("new_booking"), "EVENT"},
		{"Attempt", Attempt(2), "ATTEMPT"},
		{"URL", URL("http://localhost:5000"), "URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, tt.field.Key)
			assert.NotNil(t, tt.field.Value)
		})
	}
}

func TestF(t *testing.T) {
	f := F("mykey", 42)
	assert.Equal(t, "mykey", f.Key)
	assert.Equal(t, 42, f.Value)
}

func TestLogMultipleFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)
	l.Info("multi", F("a", 1), F("b", "two"))
	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, float64(1), entries[0]["a"])
	assert.Equal(t, "two", entries[0]["b"])
}
