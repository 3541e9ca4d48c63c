package control

import (
	"fmt"
	"time"

	"mercator-hq/uidthrottle/pkg/throttle"
)

// FormatLine renders one uid in the list format documented on the package.
func FormatLine(s throttle.Snapshot, window time.Duration) string {
	return fmt.Sprintf("%d %d ts %d qa %d stats_qa %d slp %s / W %s last wr %d",
		s.UID,
		s.RateLimit,
		s.WindowStart.UnixNano(),
		s.Quota,
		s.TotalAllowed,
		s.LastWait,
		window,
		s.RemainingRequest,
	)
}
