// Package health provides liveness and readiness endpoints for quotad.
//
// Liveness only reports that the process serves HTTP. Readiness runs every
// registered check concurrently, each bounded by the checker timeout, and
// answers 503 when any of them fails:
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("reports", store.Ping)
//	mux.Handle("/ready", checker.ReadinessHandler())
package health
