package quota

import (
	"errors"
	"fmt"
	"math"
	"net/netip"
	"sort"
	"time"
)

// Window is a rolling accounting period.
type Window string

const (
	// WindowMonth is a rolling 30-day window.
	WindowMonth Window = "month"

	// WindowWeek is a rolling 7-day window.
	WindowWeek Window = "week"

	// WindowDay is a rolling 24-hour window.
	WindowDay Window = "day"
)

// Windows lists all windows in bucket order: month, week, day.
var Windows = []Window{WindowMonth, WindowWeek, WindowDay}

// Period returns the length of the window. A full limit refills linearly
// over one period.
func (w Window) Period() time.Duration {
	switch w {
	case WindowMonth:
		return 30 * 24 * time.Hour
	case WindowWeek:
		return 7 * 24 * time.Hour
	case WindowDay:
		return 24 * time.Hour
	default:
		return 0
	}
}

// Dimension is the kind of identity a bucket set accounts for.
type Dimension string

const (
	// DimensionIPAddr accounts by client IP address.
	DimensionIPAddr Dimension = "ipaddr"

	// DimensionToken accounts by opaque token.
	DimensionToken Dimension = "token"
)

// Kind discriminates the Identity variant.
type Kind uint8

const (
	// KindNone is the zero Identity: nothing was supplied.
	KindNone Kind = iota

	// KindIPAddr is an IPv4 or IPv6 address identity.
	KindIPAddr

	// KindToken is an opaque token identity.
	KindToken
)

// Identity is the subject of accounting: either an IP address or a token.
// The zero value carries no identity.
type Identity struct {
	kind  Kind
	addr  netip.Addr
	token string
}

// IPAddr returns an address identity. IPv4-mapped IPv6 addresses are
// folded into their IPv4 form so both spellings share one budget.
func IPAddr(addr netip.Addr) Identity {
	if !addr.IsValid() {
		return Identity{}
	}
	return Identity{kind: KindIPAddr, addr: addr.Unmap().WithZone("")}
}

// ParseIPAddr parses an address literal in dotted or colon notation.
func ParseIPAddr(s string) (Identity, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid IP address %q: %w", s, err)
	}
	return IPAddr(addr), nil
}

// Token returns a token identity. An empty token yields the zero Identity.
func Token(token string) Identity {
	if token == "" {
		return Identity{}
	}
	return Identity{kind: KindToken, token: token}
}

// Kind returns the identity variant.
func (id Identity) Kind() Kind {
	return id.kind
}

// Addr returns the address of an IP identity.
func (id Identity) Addr() (netip.Addr, bool) {
	return id.addr, id.kind == KindIPAddr
}

// IsZero reports whether no identity was supplied.
func (id Identity) IsZero() bool {
	return id.kind == KindNone
}

// String returns the address or token.
func (id Identity) String() string {
	switch id.kind {
	case KindIPAddr:
		return id.addr.String()
	case KindToken:
		return id.token
	default:
		return ""
	}
}

// WindowLimits holds the budget, in seconds, for each window of one
// dimension. A value <= 0 disables that window.
type WindowLimits struct {
	Month float64
	Week  float64
	Day   float64
}

// For returns the limit configured for w.
func (l WindowLimits) For(w Window) float64 {
	switch w {
	case WindowMonth:
		return l.Month
	case WindowWeek:
		return l.Week
	case WindowDay:
		return l.Day
	default:
		return 0
	}
}

// Enabled reports whether any window is tracked.
func (l WindowLimits) Enabled() bool {
	return l.Month > 0 || l.Week > 0 || l.Day > 0
}

// Limits holds the six window limits.
type Limits struct {
	IPAddr WindowLimits
	Token  WindowLimits
}

// validate rejects NaN and infinite limits. Entries under such a limit
// would never refill back to it and could not be reclaimed.
func (l Limits) validate() error {
	for _, d := range []struct {
		dim    Dimension
		limits WindowLimits
	}{{DimensionIPAddr, l.IPAddr}, {DimensionToken, l.Token}} {
		for _, w := range Windows {
			v := d.limits.For(w)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				field := fmt.Sprintf("%s_per_%s", d.dim, w)
				return &ConfigError{Field: field, Value: fmt.Sprint(v), Err: ErrInvalidLimit}
			}
		}
	}
	return nil
}

// Names of the six limits as they appear in configuration.
const (
	LimitIPAddrPerMonth = "ipaddr_per_month"
	LimitIPAddrPerWeek  = "ipaddr_per_week"
	LimitIPAddrPerDay   = "ipaddr_per_day"
	LimitTokenPerMonth  = "token_per_month"
	LimitTokenPerWeek   = "token_per_week"
	LimitTokenPerDay    = "token_per_day"
)

// LimitsFromMap builds Limits from the named mapping used in configuration.
// Unknown names and values that are not finite positive numbers are
// rejected.
func LimitsFromMap(m map[string]float64) (Limits, error) {
	var l Limits
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := m[name]
		if !(v > 0) || math.IsInf(v, 0) {
			return Limits{}, &ConfigError{Field: name, Value: fmt.Sprint(v), Err: ErrInvalidLimit}
		}
		switch name {
		case LimitIPAddrPerMonth:
			l.IPAddr.Month = v
		case LimitIPAddrPerWeek:
			l.IPAddr.Week = v
		case LimitIPAddrPerDay:
			l.IPAddr.Day = v
		case LimitTokenPerMonth:
			l.Token.Month = v
		case LimitTokenPerWeek:
			l.Token.Week = v
		case LimitTokenPerDay:
			l.Token.Day = v
		default:
			return Limits{}, &ConfigError{Field: name, Value: fmt.Sprint(v), Err: ErrUnknownLimit}
		}
	}
	return l, nil
}

// Client address extraction methods understood by the HTTP adapter.
const (
	MethodXRealIP       = "X-Real-Ip"
	MethodSocket        = "socket"
	MethodXForwardedFor = "X-Forwarded-For"
)

// DefaultIPAddrMethods is used when Config.IPAddrMethods is empty.
var DefaultIPAddrMethods = []string{MethodXRealIP, MethodSocket}

// Config configures an Engine.
type Config struct {
	// Limits are the per-window budgets in seconds.
	Limits Limits

	// IPAddrMethods lists client address extraction methods in order of
	// preference. The engine only carries it for the HTTP adapter. Empty
	// means DefaultIPAddrMethods.
	IPAddrMethods []string

	// Whitelist contains IP address literals exempt from accounting.
	Whitelist []string
}

// SummaryEntry is one row of the lowest daily quota summary.
type SummaryEntry struct {
	// Network is the masked prefix of the address (/8 for IPv4, /16 for IPv6).
	Network string `json:"network"`

	// FirstByte is the first byte of the address.
	FirstByte int `json:"first_byte"`

	// Remaining is the remaining daily budget in seconds. Negative values
	// mean the identity is over quota.
	Remaining float64 `json:"remaining"`
}

var (
	// ErrInvalidConfig is returned when the engine configuration is invalid.
	ErrInvalidConfig = errors.New("invalid quota configuration")

	// ErrInvalidLimit is returned for a configured limit that is not a
	// finite positive number.
	ErrInvalidLimit = errors.New("limit must be a finite positive number of seconds")

	// ErrUnknownLimit is returned for an unrecognised limit name.
	ErrUnknownLimit = errors.New("unknown limit name")

	// ErrInvalidWhitelist is returned for a malformed whitelist address.
	ErrInvalidWhitelist = errors.New("invalid whitelist address")

	// ErrUnsupportedDimension is returned when a token identity is used.
	// Token accounting is not implemented.
	ErrUnsupportedDimension = errors.New("token accounting not implemented")

	// ErrMissingIdentity is returned when no identity is supplied.
	ErrMissingIdentity = errors.New("no identity supplied")

	// ErrNegativeCost is returned when Consume is called with a negative cost.
	ErrNegativeCost = errors.New("consumed time must not be negative")
)

// ConfigError describes an invalid configuration value.
type ConfigError struct {
	// Field names the offending setting.
	Field string

	// Value is the rejected input.
	Value string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %q: %v", ErrInvalidConfig, e.Field, e.Value, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is reports ErrInvalidConfig for every ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}
