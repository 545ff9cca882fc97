// Quotad is a usage-based quota gateway.
//
// It sits in front of an HTTP service and accounts the wall-clock time each
// client address spends being served against rolling day, week and month
// budgets. Clients whose budget is exhausted receive 429 Too Many Requests
// until their quota refills.
//
// Usage:
//
//	# Start the gateway
//	quotad run --config quotad.yaml
//
//	# Check a configuration file
//	quotad validate --config quotad.yaml
//
//	# Inspect archived summary snapshots
//	quotad reports list --format csv
//
//	# Show version information
//	quotad version
package main

func main() {
	Execute()
}
