package stats

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRecorder counts events in Redis hashes:
//
//	<prefix>:total                 outcome -> count (never expires)
//	<prefix>:minute:<yyyymmddhhmm> outcome -> count (expires after TTL)
//	<prefix>:route                 "<method> <path>:<outcome>" -> count
type RedisRecorder struct {
	rdb *redis.Client

	prefix string
	// ttl applies to per-minute buckets only.
	ttl time.Duration

	bucket string // "minute" (default) or "none"
}

// RedisOption configures a RedisRecorder.
type RedisOption func(*RedisRecorder)

// WithPrefix sets the key prefix. Surrounding colons are trimmed.
func WithPrefix(prefix string) RedisOption {
	return func(r *RedisRecorder) {
		r.prefix = strings.Trim(prefix, ":")
	}
}

// WithTTL sets the expiry of per-minute buckets.
func WithTTL(d time.Duration) RedisOption {
	return func(r *RedisRecorder) { r.ttl = d }
}

// WithBucket selects time bucketing: "minute" or "none".
func WithBucket(bucket string) RedisOption {
	return func(r *RedisRecorder) { r.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

// NewRedisRecorder creates a recorder using rdb.
func NewRedisRecorder(rdb *redis.Client, opts ...RedisOption) *RedisRecorder {
	r := &RedisRecorder{
		rdb:    rdb,
		prefix: "quotad:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record increments the counters for ev in a single pipeline.
func (r *RedisRecorder) Record(ctx context.Context, ev Event) error {
	if r == nil || r.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := string(ev.Outcome)

	pipe := r.rdb.Pipeline()
	pipe.HIncrBy(ctx, r.totalKey(), field, 1)

	if r.bucket == "minute" {
		bucketKey := r.minuteKey(at)
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if r.ttl > 0 {
			pipe.Expire(ctx, bucketKey, r.ttl)
		}
	}

	if route := routeName(strings.TrimSpace(ev.Method), strings.TrimSpace(ev.Path)); route != "" {
		pipe.HIncrBy(ctx, r.prefix+":route", route+":"+field, 1)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record stats event: %w", err)
	}
	return nil
}

// Totals reads the overall counters.
func (r *RedisRecorder) Totals(ctx context.Context) (Counters, error) {
	return r.readCounters(ctx, r.totalKey())
}

// Minute reads the counters of the per-minute bucket containing at.
func (r *RedisRecorder) Minute(ctx context.Context, at time.Time) (Counters, error) {
	return r.readCounters(ctx, r.minuteKey(at))
}

// Ping checks the Redis connection.
func (r *RedisRecorder) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *RedisRecorder) readCounters(ctx context.Context, key string) (Counters, error) {
	var c Counters

	values, err := r.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return c, fmt.Errorf("failed to read stats %s: %w", key, err)
	}
	for field, raw := range values {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c, fmt.Errorf("invalid counter %s[%s]=%q: %w", key, field, raw, err)
		}
		c.add(Outcome(field), n)
	}
	return c, nil
}

func (r *RedisRecorder) totalKey() string {
	return r.prefix + ":total"
}

func (r *RedisRecorder) minuteKey(at time.Time) string {
	return fmt.Sprintf("%s:minute:%s", r.prefix, at.UTC().Format("200601021504"))
}
