package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/netip"
	"strings"
	"testing"

	"mercator-hq/quota/pkg/config"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}
	return entry
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  config.LoggingConfig
		wantErr bool
	}{
		{"json", config.LoggingConfig{Level: "info", Format: "json"}, false},
		{"text", config.LoggingConfig{Level: "debug", Format: "text"}, false},
		{"empty uses defaults", config.LoggingConfig{}, false},
		{"upper case", config.LoggingConfig{Level: "WARN", Format: "JSON"}, false},
		{"invalid level", config.LoggingConfig{Level: "trace", Format: "json"}, true},
		{"invalid format", config.LoggingConfig{Level: "info", Format: "console"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config, &bytes.Buffer{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Error("Expected logger, got nil")
			}
		})
	}
}

func TestNew_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("filtered")
	if buf.Len() != 0 {
		t.Errorf("Expected info to be filtered, got %q", buf.String())
	}

	logger.Warn("kept")
	if !strings.Contains(buf.String(), `"msg":"kept"`) {
		t.Errorf("Expected warn to be written, got %q", buf.String())
	}
}

func TestNew_RedactsAddresses(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "info", Format: "json", RedactPII: true}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("Quota exceeded for 198.51.100.23",
		"client", "203.0.113.9",
		"addr", netip.MustParseAddr("2001:db8::1"),
		"error", errors.New("dial 192.0.2.1:80 failed"),
		"authorization", "Bearer abcdef123456",
		"remaining", -12.5,
	)

	entry := decodeLine(t, &buf)
	if entry["msg"] != "Quota exceeded for 198.*.*.*" {
		t.Errorf("Expected redacted message, got %v", entry["msg"])
	}
	if entry["client"] != "203.*.*.*" {
		t.Errorf("Expected 203.*.*.*, got %v", entry["client"])
	}
	if entry["addr"] != "2001:*" {
		t.Errorf("Expected 2001:*, got %v", entry["addr"])
	}
	if entry["error"] != "dial 192.*.*.*:80 failed" {
		t.Errorf("Expected redacted error, got %v", entry["error"])
	}
	if entry["authorization"] != "Bear***" {
		t.Errorf("Expected sensitive key to be cut, got %v", entry["authorization"])
	}
	if entry["remaining"] != -12.5 {
		t.Errorf("Expected numeric value to pass through, got %v", entry["remaining"])
	}
}

func TestNew_RedactsWithAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "info", Format: "json", RedactPII: true}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	logger.With("peer", "10.1.2.3").Info("grouped", slog.Group("req", "remote", "172.16.5.4"))

	entry := decodeLine(t, &buf)
	if entry["peer"] != "10.*.*.*" {
		t.Errorf("Expected redacted With attribute, got %v", entry["peer"])
	}
	group, ok := entry["req"].(map[string]any)
	if !ok {
		t.Fatalf("Expected group, got %v", entry["req"])
	}
	if group["remote"] != "172.*.*.*" {
		t.Errorf("Expected redacted group attribute, got %v", group["remote"])
	}
}

func TestNew_NoRedaction(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("plain", "client", "203.0.113.9")

	if entry := decodeLine(t, &buf); entry["client"] != "203.0.113.9" {
		t.Errorf("Expected address untouched, got %v", entry["client"])
	}
}

func TestNew_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "info", Format: "json", RedactPII: true}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = WithClient(ctx, "192.0.2.44")
	logger.InfoContext(ctx, "Request admitted")

	entry := decodeLine(t, &buf)
	if entry["request_id"] != "req-123" {
		t.Errorf("Expected request_id req-123, got %v", entry["request_id"])
	}
	if entry["client"] != "192.*.*.*" {
		t.Errorf("Expected redacted client, got %v", entry["client"])
	}

	buf.Reset()
	logger.Info("no context")
	if _, ok := decodeLine(t, &buf)["request_id"]; ok {
		t.Error("Expected no request_id without context")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"info":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"ERROR":   slog.LevelError,
	}
	for input, want := range tests {
		got, err := ParseLevel(input)
		if err != nil {
			t.Errorf("ParseLevel(%q) error: %v", input, err)
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}
