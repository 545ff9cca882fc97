package quota

import (
	"math"
	"net/netip"
	"sort"
	"sync"
	"time"
)

// RefreshInterval is the minimum time between two decays applied by
// RefreshIfDue.
const RefreshInterval = time.Hour

// initialDecay is applied once at construction.
const initialDecay = time.Second

// bucketSet holds the month, week and day buckets of one dimension.
// Disabled windows are nil.
type bucketSet[K comparable] [3]*bucket[K]

func newBucketSet[K comparable](limits WindowLimits) bucketSet[K] {
	var s bucketSet[K]
	for i, w := range Windows {
		s[i] = newBucket[K](w, limits.For(w))
	}
	return s
}

// refill refills every enabled window and returns the number of deleted
// entries.
func (s bucketSet[K]) refill(elapsedSeconds float64) int {
	deleted := 0
	for _, b := range s {
		if b != nil {
			deleted += b.refill(elapsedSeconds)
		}
	}
	return deleted
}

// Engine tracks remaining quota per identity across rolling windows.
//
// IP address and token identities have structurally parallel bucket sets
// that decay independently. Only the IP address set is ever charged; token
// accounting returns ErrUnsupportedDimension.
type Engine struct {
	limits        Limits
	ipaddrMethods []string

	ipaddr bucketSet[netip.Addr]
	token  bucketSet[string]

	whitelist map[netip.Addr]struct{}

	// lastRefresh is read with a monotonic clock reading from now.
	lastRefresh time.Time
	now         func() time.Time

	metrics *Metrics

	mu sync.RWMutex
}

// Option configures optional Engine behaviour.
type Option func(*Engine)

// WithClock replaces time.Now. The returned times should carry a monotonic
// reading so that wall-clock jumps do not distort decay.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithMetrics reports engine activity to m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an Engine. It fails with a *ConfigError if a limit is NaN or
// infinite, or if a whitelist entry is not a valid IP address literal.
//
// A synthetic one-second decay is applied before the engine is returned and
// the current time becomes the last refresh time.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Limits.validate(); err != nil {
		return nil, err
	}
	whitelist, err := parseWhitelist(cfg.Whitelist)
	if err != nil {
		return nil, err
	}

	methods := cfg.IPAddrMethods
	if len(methods) == 0 {
		methods = DefaultIPAddrMethods
	}

	e := &Engine{
		limits:        cfg.Limits,
		ipaddrMethods: append([]string(nil), methods...),
		ipaddr:        newBucketSet[netip.Addr](cfg.Limits.IPAddr),
		token:         newBucketSet[string](cfg.Limits.Token),
		whitelist:     whitelist,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.Decay(initialDecay)
	e.lastRefresh = e.now()

	return e, nil
}

// Decay refills every enabled window for the given elapsed wall-clock time.
// Non-positive durations are a no-op. Entries that refill to their window's
// limit are removed.
func (e *Engine) Decay(elapsed time.Duration) {
	if elapsed <= 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.decayLocked(elapsed)
}

// decayLocked applies refill to both dimensions.
// Caller must hold write lock.
func (e *Engine) decayLocked(elapsed time.Duration) {
	seconds := elapsed.Seconds()
	deleted := e.ipaddr.refill(seconds)
	deleted += e.token.refill(seconds)

	e.metrics.recordDecay(deleted)
	e.metrics.updateTracked(e.trackedLocked())
}

// RefreshIfDue applies a catch-up decay when more than RefreshInterval has
// passed since the previous refresh, and reports whether it did. The refresh
// time is moved to now on every call.
func (e *Engine) RefreshIfDue() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	elapsed := now.Sub(e.lastRefresh)
	e.lastRefresh = now

	if elapsed <= RefreshInterval {
		return false
	}
	e.decayLocked(elapsed)
	return true
}

// Consume charges elapsed resource time to the identity in every enabled
// window. Values may go negative; admission is decided by IsQuotaAvailable.
//
// Consume does not consult the whitelist. Callers skip whitelisted
// identities themselves.
func (e *Engine) Consume(id Identity, elapsed time.Duration) error {
	if elapsed < 0 {
		return ErrNegativeCost
	}

	switch id.kind {
	case KindIPAddr:
		cost := elapsed.Seconds()

		e.mu.Lock()
		for _, b := range e.ipaddr {
			if b != nil {
				b.charge(id.addr, cost)
			}
		}
		tracked := e.trackedLocked()
		e.mu.Unlock()

		e.metrics.recordConsume(DimensionIPAddr, cost)
		e.metrics.updateTracked(tracked)
		return nil
	case KindToken:
		return ErrUnsupportedDimension
	default:
		return ErrMissingIdentity
	}
}

// IsQuotaAvailable reports whether no enabled window holds an entry at or
// below zero for the identity. Identities never charged are available.
func (e *Engine) IsQuotaAvailable(id Identity) (bool, error) {
	switch id.kind {
	case KindIPAddr:
		e.mu.RLock()
		available := true
		for _, b := range e.ipaddr {
			if b != nil && b.exhausted(id.addr) {
				available = false
				break
			}
		}
		e.mu.RUnlock()

		e.metrics.recordAdmission(available)
		return available, nil
	case KindToken:
		return false, ErrUnsupportedDimension
	default:
		return false, ErrMissingIdentity
	}
}

// MinimumAcrossQuotas returns the smallest remaining budget across enabled
// windows, counting an absent entry as that window's full limit. With no
// enabled window it returns +Inf.
func (e *Engine) MinimumAcrossQuotas(id Identity) (float64, error) {
	switch id.kind {
	case KindIPAddr:
		e.mu.RLock()
		defer e.mu.RUnlock()

		minimum := math.Inf(1)
		for _, b := range e.ipaddr {
			if b == nil {
				continue
			}
			if v, _ := b.get(id.addr); v < minimum {
				minimum = v
			}
		}
		return minimum, nil
	case KindToken:
		return 0, ErrUnsupportedDimension
	default:
		return 0, ErrMissingIdentity
	}
}

// IsWhitelisted reports whether the identity is exempt from accounting.
// Only IP address identities can be whitelisted.
//
// Unlike the accounting calls it never fails: token and empty identities
// report false, so a caller following the whitelist check with
// IsQuotaAvailable gets ErrUnsupportedDimension or ErrMissingIdentity there.
func (e *Engine) IsWhitelisted(id Identity) bool {
	if id.kind != KindIPAddr {
		return false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, ok := e.whitelist[id.addr]
	return ok
}

// SetWhitelist atomically replaces the whitelist. On error the current
// whitelist is kept.
func (e *Engine) SetWhitelist(addrs []string) error {
	whitelist, err := parseWhitelist(addrs)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.whitelist = whitelist
	e.mu.Unlock()
	return nil
}

// LowestDailySummary returns up to n entries of the IP address day window
// with the lowest remaining budget, in ascending order. It returns nil when
// the day window is disabled or n <= 0.
func (e *Engine) LowestDailySummary(n int) []SummaryEntry {
	if n <= 0 {
		return nil
	}

	e.mu.RLock()
	day := e.ipaddr[2]
	if day == nil {
		e.mu.RUnlock()
		return nil
	}

	type row struct {
		addr  netip.Addr
		value float64
	}
	rows := make([]row, 0, day.len())
	for addr, v := range day.entries {
		rows = append(rows, row{addr: addr, value: v})
	}
	e.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].value != rows[j].value {
			return rows[i].value < rows[j].value
		}
		return rows[i].addr.Less(rows[j].addr)
	})
	if len(rows) > n {
		rows = rows[:n]
	}

	summary := make([]SummaryEntry, len(rows))
	for i, r := range rows {
		summary[i] = SummaryEntry{
			Network:   maskAddr(r.addr),
			FirstByte: int(r.addr.AsSlice()[0]),
			Remaining: r.value,
		}
	}
	return summary
}

// Tracked returns the number of IP address identities in deficit per
// enabled window.
func (e *Engine) Tracked() map[Window]int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.trackedLocked()
}

// trackedLocked counts entries per enabled IP window.
// Caller must hold read or write lock.
func (e *Engine) trackedLocked() map[Window]int {
	tracked := make(map[Window]int, len(Windows))
	for _, b := range e.ipaddr {
		if b != nil {
			tracked[b.window] = b.len()
		}
	}
	return tracked
}

// Limits returns the configured limits.
func (e *Engine) Limits() Limits {
	return e.limits
}

// IPAddrMethods returns the configured client address extraction methods.
func (e *Engine) IPAddrMethods() []string {
	return append([]string(nil), e.ipaddrMethods...)
}

// parseWhitelist parses address literals into a set.
func parseWhitelist(addrs []string) (map[netip.Addr]struct{}, error) {
	whitelist := make(map[netip.Addr]struct{}, len(addrs))
	for _, s := range addrs {
		id, err := ParseIPAddr(s)
		if err != nil {
			return nil, &ConfigError{Field: "whitelist", Value: s, Err: ErrInvalidWhitelist}
		}
		whitelist[id.addr] = struct{}{}
	}
	return whitelist, nil
}

// maskAddr keeps the leading byte of IPv4 and the leading two bytes of IPv6
// addresses.
func maskAddr(addr netip.Addr) string {
	bits := 8
	if addr.Is6() {
		bits = 16
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return ""
	}
	return prefix.String()
}

