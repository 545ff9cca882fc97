// Package logging builds the process logger.
//
// New returns a *slog.Logger whose handler chain adds the request ID stored
// in the context and, when enabled, masks personal data before the record
// reaches the JSON or text handler:
//
//   - IPv4 addresses keep their first octet: 203.0.113.9 becomes 203.*.*.*
//   - IPv6 addresses keep their first group: 2001:db8::1 becomes 2001:*
//   - bearer tokens and api_key parameters are replaced
//   - values under sensitive keys (token, authorization, password) are cut
//
// Components log through slog.Default().With("component", ...) after
// the command installs the logger with slog.SetDefault.
package logging
