package sysutil

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func restoreLogging(t *testing.T) {
	t.Helper()
	lvl := zerolog.GlobalLevel()
	logger := log.Logger
	def := zerolog.DefaultContextLogger
	tf := zerolog.TimeFieldFormat
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(lvl)
		log.Logger = logger
		zerolog.DefaultContextLogger = def
		zerolog.TimeFieldFormat = tf
	})
}

func TestSetLogLevel_AllVariants(t *testing.T) {
	restoreLogging(t)

	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"  DeBuG  ", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		SetLogLevel(tc.in)
		if got := zerolog.GlobalLevel(); got != tc.want {
			t.Fatalf("SetLogLevel(%q) -> %v; want %v", tc.in, got, tc.want)
		}
	}
}

func TestSetupLogger_JSON(t *testing.T) {
	restoreLogging(t)
	var buf bytes.Buffer

	SetupLogger(LogOptions{Level: "info", Service: "issy-assistant", Version: "1.0.0", Out: &buf})
	log.Debug().Msg("hidden")
	log.Info().Str("phone", "5511").Msg("ready")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected only the info line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if entry["service"] != "issy-assistant" || entry["version"] != "1.0.0" || entry["message"] != "ready" {
		t.Fatalf("entry = %v", entry)
	}
	ts, _ := entry["time"].(string)
	if !strings.HasSuffix(ts, "Z") || !strings.Contains(ts, ".") {
		t.Fatalf("time should be UTC with millis, got %q", ts)
	}
}

func TestSetupLogger_Pretty(t *testing.T) {
	restoreLogging(t)
	var buf bytes.Buffer

	SetupLogger(LogOptions{Level: "debug", Pretty: true, Out: &buf})
	log.Debug().Msg("console line")

	out := buf.String()
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("pretty output should not be JSON: %q", out)
	}
	if !strings.Contains(out, "console line") {
		t.Fatalf("missing message: %q", out)
	}
}

func TestSetupLogger_DefaultContextLogger(t *testing.T) {
	restoreLogging(t)
	var buf bytes.Buffer
	SetupLogger(LogOptions{Level: "info", Service: "svc", Out: &buf})

	// log.Ctx on a bare context falls back to the installed logger
	log.Ctx(context.Background()).Info().Msg("from ctx")
	if !strings.Contains(buf.String(), `"service":"svc"`) {
		t.Fatalf("context logger did not use the global: %q", buf.String())
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty(); got != "" {
		t.Fatalf("FirstNonEmpty() = %q", got)
	}
	if got := FirstNonEmpty(" ", "\t"); got != "" {
		t.Fatalf("FirstNonEmpty(blanks) = %q", got)
	}
	if got := FirstNonEmpty("", "  hello  ", "world"); got != "  hello  " {
		t.Fatalf("FirstNonEmpty picks %q", got)
	}
}
