// Package radio defines the radio power driver interface and registry
// for the radiosnooze agent.
package radio

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// State is a commanded radio power state.
type State int

const (
	Off State = iota
	On
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case Off:
		return "off"
	case On:
		return "on"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ParseState converts "on"/"off" (and common boolean spellings) to a State.
func ParseState(s string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1":
		return On, nil
	case "off", "false", "0":
		return Off, nil
	}
	return Off, fmt.Errorf("invalid radio state %q (expected on or off)", s)
}

// Driver issues power commands to the radio subsystem. SetPower must
// return quickly and must not wait for hardware confirmation.
type Driver interface {
	SetPower(state State) error
}

// DriverError reports that the underlying OS facility rejected or failed
// a power command. There is no partial-success case.
type DriverError struct {
	Driver string
	State  State
	Err    error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("%s driver: power %s: %v", e.Driver, e.State, e.Err)
}

func (e *DriverError) Unwrap() error { return e.Err }

// Options configures driver construction.
type Options struct {
	// Adapter is the controller name, e.g. "hci0".
	Adapter string

	// OnCommand and OffCommand are the argv used by the command driver.
	OnCommand  []string
	OffCommand []string
}

// Factory creates a driver from options.
type Factory func(opts Options) (Driver, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a driver factory to the global registry.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Open constructs the named driver.
func Open(name string, opts Options) (Driver, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("radio driver %q not registered (available: %s)", name, strings.Join(List(), ", "))
	}
	return factory(opts)
}

// List returns the names of all registered drivers.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
