// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestConfigureSlogJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := ConfigureSlog(&buf, "debug", "json")

	logger.InfoContext(context.Background(), "pipeline.run.start", slog.String("agent_id", "a1"))

	out := buf.String()
	if !strings.Contains(out, `"msg":"pipeline.run.start"`) {
		t.Errorf("expected json message, got %s", out)
	}
	if !strings.Contains(out, `"agent_id":"a1"`) {
		t.Errorf("expected attribute, got %s", out)
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLogLevel(input); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 3); got != "abc..." {
		t.Errorf("unexpected truncation: %q", got)
	}
	if got := Truncate("ab", 3); got != "ab" {
		t.Errorf("short strings pass through, got %q", got)
	}
	if got := Truncate("abcdef", 0); got != "abcdef" {
		t.Errorf("zero max disables truncation, got %q", got)
	}
}

func TestInitStdout(t *testing.T) {
	shutdown, err := Init("dirigent-test", "0.0.1")
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
}

func TestInitUnknownExporter(t *testing.T) {
	_, err := InitWithConfig("dirigent-test", "0.0.1", Config{Exporter: "bogus"})
	if err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}
