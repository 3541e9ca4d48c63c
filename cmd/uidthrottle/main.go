// Uidthrottle paces filesystem writes per uid.
//
// The daemon owns a table of per-uid byte budgets. Writers are charged for
// every byte they write and suspended once the budget of the current window
// is used up. Limits are set at runtime through a control file or the admin
// HTTP endpoint, and survive restarts through the configured limit store.
//
// Usage:
//
//	# Start the daemon with the default configuration
//	uidthrottle run
//
//	# Start with a configuration file
//	uidthrottle run --config /etc/uidthrottle/config.yaml
//
//	# Limit uid 1000 to 1 MiB per window
//	uidthrottle set 1000 1048576
//
//	# Disable every limit
//	uidthrottle reset
//
//	# Show the rate limit table
//	uidthrottle list --format json
//
//	# Show the last day of administrative commands
//	uidthrottle audit --since 24h
//
//	# Measure pacing against a local engine
//	uidthrottle simulate --rate 65536 --writers 4 --bytes 1048576
package main

func main() {
	Execute()
}
