package jobs

import (
	"context"
	"time"
)

const DefaultMinimumJobIntervalSeconds = 1

// Job is a unit of periodic work the scheduler ticks and dispatches to a worker. The coordinator
// has exactly one instance, so there is no fan-out here: Execute runs once per tick.
type Job interface {
	Execute(context.Context) error
	GetInterval() time.Duration
	GetName() string
}
