// Package middleware provides the HTTP admission layer for the quota engine.
//
// The Limiter resolves the client address of each request, rejects clients
// whose quota is exhausted with 429 Too Many Requests, and charges the
// wall-clock time spent serving admitted requests. The remaining budget is
// reported in the X-RateLimit-Remaining response header.
//
// A typical chain, outermost first:
//
//	handler = middleware.Recovery(logger)(
//		middleware.RequestID(
//			middleware.Logging(logger)(
//				limiter.Middleware(upstream))))
//
// Client addresses are resolved by an Extractor that tries a configured list
// of methods in order:
//
//   - X-Real-Ip reads the header of that name and is skipped when absent.
//   - socket uses the connection's remote address and always decides.
//   - X-Forwarded-For is recognised but not implemented.
//
// When no identity can be established the Limiter either rejects the request
// with 500 (the default) or serves it uncharged when fail-open is set.
package middleware
