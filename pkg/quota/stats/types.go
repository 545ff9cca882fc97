package stats

import (
	"context"
	"time"
)

// Outcome is the result of one admission decision.
type Outcome string

const (
	// OutcomeAllowed means quota was available and the request was served.
	OutcomeAllowed Outcome = "allowed"

	// OutcomeDenied means the request was rejected for lack of quota.
	OutcomeDenied Outcome = "denied"

	// OutcomeWhitelisted means accounting was skipped for the client.
	OutcomeWhitelisted Outcome = "whitelisted"

	// OutcomeUnidentified means no client identity could be extracted.
	OutcomeUnidentified Outcome = "unidentified"
)

// Event describes one admission decision. Method and Path are optional.
type Event struct {
	Outcome Outcome
	Method  string
	Path    string
	At      time.Time
}

// Recorder persists decision events.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// Counters holds per-outcome totals.
type Counters struct {
	Allowed      int64 `json:"allowed"`
	Denied       int64 `json:"denied"`
	Whitelisted  int64 `json:"whitelisted"`
	Unidentified int64 `json:"unidentified"`
}

// add increments the counter for o by n.
func (c *Counters) add(o Outcome, n int64) {
	switch o {
	case OutcomeAllowed:
		c.Allowed += n
	case OutcomeDenied:
		c.Denied += n
	case OutcomeWhitelisted:
		c.Whitelisted += n
	case OutcomeUnidentified:
		c.Unidentified += n
	}
}

// routeName joins method and path, or returns "" if both are empty.
func routeName(method, path string) string {
	switch {
	case method == "" && path == "":
		return ""
	case method == "":
		return path
	case path == "":
		return method
	}
	return method + " " + path
}
