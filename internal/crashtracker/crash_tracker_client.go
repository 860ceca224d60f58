package crashtracker

import (
	"context"
	"time"
)

// CrashTrackerClient is the reporting surface shared by the HTTP server and the janitor
// scheduler. Clone hands a goroutine its own isolated scope.
type CrashTrackerClient interface {
	LogAndReportErrors(ctx context.Context, err error, msg string)
	LogAndReportMessages(ctx context.Context, msg string)
	FlushEvents(waitTime time.Duration) bool
	Recover()
	Clone() CrashTrackerClient
}
