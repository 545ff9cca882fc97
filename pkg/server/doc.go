// Package server provides the quotad HTTP gateway.
//
// The server puts the quota admission middleware in front of a reverse proxy
// to the configured upstream and serves the operational endpoints next to
// it:
//
//	/metrics          Prometheus metrics (telemetry.metrics.path)
//	/health, /ready   liveness and readiness probes
//	/quota/summary    lowest remaining daily budgets (server.summary_path)
//	everything else   quota-checked and proxied to server.upstream
//
// Operational endpoints are never charged against client quotas.
//
// # Basic Usage
//
//	srv, err := server.New(&cfg.Server, &cfg.Telemetry, server.Deps{
//	    Engine:    engine,
//	    Limiter:   limiter,
//	    Collector: collector,
//	    Health:    checker,
//	    Logger:    logger,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// Start blocks until ctx is cancelled, Stop is called or the listener
// fails, and then shuts down gracefully within server.shutdown_timeout.
package server
