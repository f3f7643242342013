package radio

import (
	"errors"
	"sync"
)

// ErrInjected is returned by RecordingDriver for calls marked to fail.
var ErrInjected = errors.New("injected failure")

func init() {
	Register("recording", func(Options) (Driver, error) {
		return NewRecordingDriver(), nil
	})
}

// RecordingDriver records every command instead of touching hardware.
type RecordingDriver struct {
	mu      sync.Mutex
	calls   []State
	failOn  map[int]bool
	failAll bool
}

// NewRecordingDriver returns an empty recorder.
func NewRecordingDriver() *RecordingDriver {
	return &RecordingDriver{failOn: make(map[int]bool)}
}

// FailCall makes the n-th call (1-based) return ErrInjected.
func (d *RecordingDriver) FailCall(n int) *RecordingDriver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failOn[n] = true
	return d
}

// FailAll makes every subsequent call fail.
func (d *RecordingDriver) FailAll(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failAll = fail
}

// SetPower records state and returns an injected failure if configured.
// Failed calls are recorded too.
func (d *RecordingDriver) SetPower(state State) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, state)
	if d.failAll || d.failOn[len(d.calls)] {
		return &DriverError{Driver: "recording", State: state, Err: ErrInjected}
	}
	return nil
}

// Calls returns a copy of the recorded commands in issue order.
func (d *RecordingDriver) Calls() []State {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]State, len(d.calls))
	copy(out, d.calls)
	return out
}
