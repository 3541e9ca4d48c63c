// Package control is the administrative surface of the uid throttle.
//
// Commands are two integers, "<uid> <rate>". A non-negative uid sets that
// uid's rate limit in bytes per window (a negative rate disables it). Any
// negative uid disables every tracked uid at once and clears their
// statistics. Malformed commands are rejected and change nothing.
//
// The current state is reported one line per uid, in the order uids were
// first configured:
//
//	<uid> <rate> ts <window start, unix ns> qa <quota> stats_qa <allowed> slp <last wait> / W <window> last wr <remaining>
//
// Commands reach the Plane through three channels: a watched control file
// (FileWatcher), an HTTP endpoint (Handler), and the CLI, which talks to the
// HTTP endpoint.
package control
