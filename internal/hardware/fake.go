package hardware

import (
	"context"
	"fmt"
	"sync"
)

// FakeDriver is an in-memory Driver used by DispenseAgent tests. It records every call and can
// be scripted to fault on specific attempts.
type FakeDriver struct {
	mu sync.Mutex

	// FaultOn, if set, makes the N-th call to Dispense (1-indexed) return ErrFault instead of
	// succeeding. Zero means never fault.
	FaultOn int

	calls     int
	Dispensed []int
}

func (f *FakeDriver) Dispense(ctx context.Context, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.FaultOn != 0 && f.calls == f.FaultOn {
		return fmt.Errorf("simulated hopper jam: %w", ErrFault)
	}

	f.Dispensed = append(f.Dispensed, count)
	return nil
}

// Calls returns how many times Dispense has been invoked.
func (f *FakeDriver) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
