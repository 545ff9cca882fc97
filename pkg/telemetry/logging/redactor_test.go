package logging

import (
	"log/slog"
	"testing"

	"mercator-hq/quota/pkg/config"
)

func TestRedactor_RedactString(t *testing.T) {
	r := NewRedactor(nil)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"ipv4", "client 203.0.113.9 denied", "client 203.*.*.* denied"},
		{"ipv6", "client 2001:db8:85a3::8a2e:370:7334 denied", "client 2001:* denied"},
		{"ipv6 loopback", "from ::1", "from 0:*"},
		{"clock time untouched", "at 12:30:45", "at 12:30:45"},
		{"bearer", "Authorization: Bearer eyJhbGciOi.abc", "Authorization: Bearer ***"},
		{"query token", "/api?api_key=s3cr3t&x=1", "/api?api_key=***&x=1"},
		{"empty", "", ""},
		{"nothing to redact", "quota exceeded", "quota exceeded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.RedactString(tt.input); got != tt.want {
				t.Errorf("RedactString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactor_CustomPatterns(t *testing.T) {
	r := NewRedactor([]config.RedactPattern{
		{Name: "tenant", Pattern: `tenant-[0-9]+`, Replacement: "tenant-*"},
		{Name: "broken", Pattern: `(`, Replacement: "x"},
	})

	if got := r.RedactString("tenant-42 over quota"); got != "tenant-* over quota" {
		t.Errorf("Expected custom pattern to apply, got %q", got)
	}
	if len(r.custom) != 1 {
		t.Errorf("Expected invalid pattern to be skipped, got %d patterns", len(r.custom))
	}
}

func TestRedactor_RedactAttr(t *testing.T) {
	r := NewRedactor(nil)

	tests := []struct {
		name string
		attr slog.Attr
		want string
	}{
		{"sensitive string", slog.String("api_token", "tok_1234567"), "tok_***"},
		{"short secret", slog.String("password", "abc"), "***"},
		{"sensitive number", slog.Int("token_count", 7), "***"},
		{"plain string", slog.String("network", "10.0.0.0/8"), "10.*.*.*/8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.RedactAttr(tt.attr)
			if got.Value.String() != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got.Value.String())
			}
			if got.Key != tt.attr.Key {
				t.Errorf("Expected key %q to be kept, got %q", tt.attr.Key, got.Key)
			}
		})
	}
}

func TestRedactIPv4(t *testing.T) {
	if got := RedactIPv4("192.168.1.100"); got != "192.*.*.*" {
		t.Errorf("Expected 192.*.*.*, got %q", got)
	}
	if got := RedactIPv4("not-an-ip"); got != "not-an-ip" {
		t.Errorf("Expected input unchanged, got %q", got)
	}
}

func TestRedactIPv6(t *testing.T) {
	if got := RedactIPv6("fe80::1"); got != "fe80:*" {
		t.Errorf("Expected fe80:*, got %q", got)
	}
	if got := RedactIPv6("::ffff:192.0.2.1"); got != "192.*.*.*" {
		t.Errorf("Expected mapped address to redact as IPv4, got %q", got)
	}
	if got := RedactIPv6("1.2.3.4"); got != "1.2.3.4" {
		t.Errorf("Expected IPv4 input unchanged, got %q", got)
	}
}
