// Package quota provides usage-based quota accounting for client identities.
//
// # Overview
//
// The Engine charges "resource time" (seconds spent serving a unit of work)
// against an identity across three overlapping rolling windows:
//
//   - Month: 720 hours
//   - Week:  168 hours
//   - Day:   24 hours
//
// Each window has its own limit in seconds. A window without a limit is not
// tracked. Budgets refill linearly: for a window with limit L and period P
// hours, every elapsed second adds L/P/3600 seconds back to each identity.
//
// # Sparse Buckets
//
// A bucket only holds identities that currently owe budget. An identity that
// is absent from a bucket is full. Entries are created on first consumption
// and deleted as soon as refill brings them back to the limit, so memory is
// bounded by the number of identities in deficit.
//
// Consumption has no floor. A negative remaining value means the identity is
// over quota by that many seconds; refill still converges it back.
//
// # Usage
//
//	engine, err := quota.New(quota.Config{
//	    Limits: quota.Limits{
//	        IPAddr: quota.WindowLimits{Day: 3600, Month: 36000},
//	    },
//	    Whitelist: []string{"127.0.0.1"},
//	})
//
//	id := quota.IPAddr(addr)
//	engine.RefreshIfDue()
//	if !engine.IsWhitelisted(id) {
//	    ok, err := engine.IsQuotaAvailable(id)
//	    if !ok {
//	        // reject
//	    }
//	    // ... serve ...
//	    err = engine.Consume(id, elapsed)
//	}
//
// # Decay Scheduling
//
// The engine runs no background goroutine. Callers invoke RefreshIfDue on the
// request path; once more than RefreshInterval has passed since the previous
// refresh it applies one catch-up Decay for the whole elapsed period. Refill
// is linear in time, so one large decay equals many small ones.
//
// # Thread Safety
//
// Every Engine method is safe for concurrent use; a single RWMutex guards all
// buckets. Individual calls are atomic, but a caller's check, serve, consume
// sequence is not: two concurrent requests for the same identity may both be
// admitted before either is charged.
//
// Token identities are part of the data model but token accounting is not
// implemented; every accounting call with a token returns
// ErrUnsupportedDimension.
package quota
