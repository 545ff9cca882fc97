package stats

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return mr, rdb
}

func sampleEvents(at time.Time) []Event {
	return []Event{
		{Outcome: OutcomeAllowed, Method: "GET", Path: "/api", At: at},
		{Outcome: OutcomeAllowed, Method: "GET", Path: "/api", At: at},
		{Outcome: OutcomeDenied, Method: "GET", Path: "/api", At: at},
		{Outcome: OutcomeWhitelisted, Method: "POST", Path: "/upload", At: at},
		{Outcome: OutcomeUnidentified, At: at},
	}
}

func TestMemoryRecorder(t *testing.T) {
	recorder := NewMemoryRecorder()
	ctx := context.Background()

	for _, ev := range sampleEvents(time.Now()) {
		if err := recorder.Record(ctx, ev); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	totals, _ := recorder.Totals(ctx)
	want := Counters{Allowed: 2, Denied: 1, Whitelisted: 1, Unidentified: 1}
	if totals != want {
		t.Errorf("Expected totals %+v, got %+v", want, totals)
	}

	routes := recorder.ByRoute()
	if got := routes["GET /api"]; got != (Counters{Allowed: 2, Denied: 1}) {
		t.Errorf("Unexpected GET /api counters: %+v", got)
	}
	if got := routes["POST /upload"]; got.Whitelisted != 1 {
		t.Errorf("Expected 1 whitelisted on POST /upload, got %+v", got)
	}
	if _, ok := routes[""]; ok {
		t.Error("Expected events without a route to be excluded from per-route counters")
	}

	routes["GET /api"] = Counters{}
	if recorder.ByRoute()["GET /api"].Allowed != 2 {
		t.Error("Expected ByRoute to return a copy")
	}
}

func TestRedisRecorder_Record(t *testing.T) {
	mr, rdb := newTestRedis(t)
	recorder := NewRedisRecorder(rdb, WithPrefix(":test:stats:"), WithTTL(time.Hour))
	ctx := context.Background()

	at := time.Date(2025, 4, 2, 10, 30, 15, 0, time.UTC)
	for _, ev := range sampleEvents(at) {
		if err := recorder.Record(ctx, ev); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	totals, err := recorder.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals failed: %v", err)
	}
	want := Counters{Allowed: 2, Denied: 1, Whitelisted: 1, Unidentified: 1}
	if totals != want {
		t.Errorf("Expected totals %+v, got %+v", want, totals)
	}

	minute, err := recorder.Minute(ctx, at)
	if err != nil {
		t.Fatalf("Minute failed: %v", err)
	}
	if minute != want {
		t.Errorf("Expected minute bucket %+v, got %+v", want, minute)
	}

	bucketKey := "test:stats:minute:202504021030"
	if !mr.Exists(bucketKey) {
		t.Fatalf("Expected key %s to exist", bucketKey)
	}
	if ttl := mr.TTL(bucketKey); ttl != time.Hour {
		t.Errorf("Expected bucket TTL of 1h, got %v", ttl)
	}
	if ttl := mr.TTL("test:stats:total"); ttl != 0 {
		t.Errorf("Expected total key not to expire, got TTL %v", ttl)
	}

	if got := mr.HGet("test:stats:route", "GET /api:denied"); got != "1" {
		t.Errorf("Expected route counter 1, got %q", got)
	}
	if got := mr.HGet("test:stats:route", "GET /api:allowed"); got != "2" {
		t.Errorf("Expected route counter 2, got %q", got)
	}
}

func TestRedisRecorder_NoBucket(t *testing.T) {
	mr, rdb := newTestRedis(t)
	recorder := NewRedisRecorder(rdb, WithBucket(" NONE "))

	if err := recorder.Record(context.Background(), Event{Outcome: OutcomeDenied}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	for _, key := range mr.Keys() {
		if key != "quotad:stats:total" {
			t.Errorf("Expected only the total key, found %s", key)
		}
	}
}

func TestRedisRecorder_Unavailable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	recorder := NewRedisRecorder(rdb)
	ctx := context.Background()

	if err := recorder.Ping(ctx); err != nil {
		t.Fatalf("Expected ping to succeed, got %v", err)
	}

	mr.Close()

	if err := recorder.Record(ctx, Event{Outcome: OutcomeAllowed}); err == nil {
		t.Error("Expected Record to fail when Redis is down")
	}
	if err := recorder.Ping(ctx); err == nil {
		t.Error("Expected Ping to fail when Redis is down")
	}
}

func TestRedisRecorder_NilIsNoop(t *testing.T) {
	var recorder *RedisRecorder
	if err := recorder.Record(context.Background(), Event{Outcome: OutcomeAllowed}); err != nil {
		t.Errorf("Expected nil recorder to be a no-op, got %v", err)
	}
}

func TestRouteName(t *testing.T) {
	tests := []struct {
		method, path, want string
	}{
		{"", "", ""},
		{"GET", "", "GET"},
		{"", "/x", "/x"},
		{"GET", "/x", "GET /x"},
	}
	for _, tt := range tests {
		if got := routeName(tt.method, tt.path); got != tt.want {
			t.Errorf("routeName(%q, %q) = %q, want %q", tt.method, tt.path, got, tt.want)
		}
	}
}
