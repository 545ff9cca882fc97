// Package stats records admission decisions made by the quota middleware.
//
// Statistics are best-effort counters of outcomes (allowed, denied,
// whitelisted, unidentified), totalled overall and per route. They describe
// what the gateway decided, not how much budget any identity has left, so a
// shared Redis recorder does not make quota state distributed.
//
// Recorders must not fail a request: callers log Record errors and move on.
package stats
