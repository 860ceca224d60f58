// Package hardware defines the boundary between the DispenseAgent and the coin mechanism's
// serial protocol: dispense(count) -> ok | fault(reason), with a bounded internal timeout. This
// package exposes the interface, a stub that refuses to run, and a fake used by agent tests.
package hardware

import (
	"context"
	"errors"
	"time"
)

// ErrDriverNotImplemented is returned by SerialDriver, which stands in for the real serial/GPIO
// integration. Building that integration requires the hardware vendor's protocol documentation.
var ErrDriverNotImplemented = errors.New("hardware: serial driver not implemented")

// ErrFault is wrapped by a Driver when the mechanism reports a fault rather than a transport error.
var ErrFault = errors.New("hardware: dispense fault")

// DefaultTimeout bounds a single dispense call.
const DefaultTimeout = 30 * time.Second

// Driver actuates the coin hopper. A fault return and a raised/propagated error are treated
// identically by the agent: both are dispense failures fed into retry accounting.
type Driver interface {
	Dispense(ctx context.Context, count int) error
}

// SerialDriver is the production placeholder for the real serial/GPIO protocol to the coin
// mechanism. It always fails closed rather than guess at undocumented hardware semantics.
type SerialDriver struct {
	Port string
}

func NewSerialDriver(port string) *SerialDriver {
	return &SerialDriver{Port: port}
}

func (d *SerialDriver) Dispense(ctx context.Context, count int) error {
	return ErrDriverNotImplemented
}
