package logging

import (
	"fmt"
	"log/slog"
	"net/netip"
	"regexp"
	"strings"

	"mercator-hq/quota/pkg/config"
)

// Built-in pattern names.
const (
	PatternIPv4        = "ipv4"
	PatternIPv6        = "ipv6"
	PatternBearerToken = "bearer_token"
	PatternAPIKey      = "api_key"
)

var (
	ipv4Regex   = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	ipv6Regex   = regexp.MustCompile(`[0-9a-fA-F]{0,4}(?::[0-9a-fA-F]{0,4}){2,7}`)
	bearerRegex = regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`)
	apiKeyRegex = regexp.MustCompile(`(?i)(api[-_]?key|access_token|token)=([^&\s]+)`)
)

// sensitiveKeys are attribute keys whose values are cut regardless of
// content.
var sensitiveKeys = []string{
	"password", "passwd", "secret",
	"token", "api_key", "apikey",
	"authorization", "cookie",
}

// Redactor masks personal data in log values.
type Redactor struct {
	custom []*redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// NewRedactor creates a Redactor with the built-in patterns and the given
// custom ones. Invalid custom patterns are skipped; configuration
// validation rejects them before they get here.
func NewRedactor(customPatterns []config.RedactPattern) *Redactor {
	r := &Redactor{}
	for _, p := range customPatterns {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		r.custom = append(r.custom, &redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: p.Replacement,
		})
	}
	return r
}

// RedactString masks addresses, bearer tokens and api keys in value, then
// applies the custom patterns in order.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}

	redacted := bearerRegex.ReplaceAllString(value, "Bearer ***")
	redacted = apiKeyRegex.ReplaceAllString(redacted, "$1=***")
	redacted = ipv4Regex.ReplaceAllStringFunc(redacted, RedactIPv4)
	redacted = ipv6Regex.ReplaceAllStringFunc(redacted, RedactIPv6)

	for _, p := range r.custom {
		redacted = p.regex.ReplaceAllString(redacted, p.replacement)
	}
	return redacted
}

// RedactAttr returns a with its value masked. Groups are walked
// recursively. Values of sensitive keys are cut to a four character hint.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	switch v.Kind() {
	case slog.KindGroup:
		attrs := v.Group()
		redacted := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			redacted[i] = r.RedactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}
	case slog.KindString:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, RedactSecret(v.String()))
		}
		return slog.String(a.Key, r.RedactString(v.String()))
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			return slog.String(a.Key, r.RedactString(x.Error()))
		case netip.Addr:
			return slog.String(a.Key, redactAddr(x))
		case fmt.Stringer:
			if isSensitiveKey(a.Key) {
				return slog.String(a.Key, "***")
			}
			return slog.String(a.Key, r.RedactString(x.String()))
		}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, "***")
	}
	return slog.Attr{Key: a.Key, Value: v}
}

// isSensitiveKey checks if a key name indicates sensitive data.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// RedactSecret keeps the first four characters of a secret.
func RedactSecret(secret string) string {
	if len(secret) <= 4 {
		return "***"
	}
	return secret[:4] + "***"
}

// RedactIPv4 redacts an IPv4 address, keeping only the first octet.
func RedactIPv4(ip string) string {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return ip
	}
	return parts[0] + ".*.*.*"
}

// RedactIPv6 redacts an IPv6 address, keeping only the first group.
// Strings that are not IPv6 addresses, such as clock times, are returned
// unchanged.
func RedactIPv6(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil || !addr.Is6() {
		return ip
	}
	return redactAddr(addr)
}

func redactAddr(addr netip.Addr) string {
	addr = addr.Unmap()
	if addr.Is4() {
		return RedactIPv4(addr.String())
	}
	b := addr.As16()
	return fmt.Sprintf("%x:*", uint16(b[0])<<8|uint16(b[1]))
}
