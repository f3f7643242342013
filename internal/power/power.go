// Package power bridges operating system power-transition notifications
// into a small Transition vocabulary delivered to a single listener.
package power

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Transition is a discrete OS-reported power lifecycle event.
type Transition int

const (
	SuspendRequested Transition = iota + 1
	PowerOffRequested
	ResumeCompleted
)

// String returns the snake_case name used in logs and metrics labels.
func (t Transition) String() string {
	switch t {
	case SuspendRequested:
		return "suspend_requested"
	case PowerOffRequested:
		return "power_off_requested"
	case ResumeCompleted:
		return "resume_completed"
	default:
		return fmt.Sprintf("Transition(%d)", int(t))
	}
}

// ParseTransition accepts the String form or the short aliases
// suspend, sleep, poweroff, shutdown, resume and wake.
func ParseTransition(s string) (Transition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "suspend_requested", "suspend", "sleep":
		return SuspendRequested, nil
	case "power_off_requested", "poweroff", "power-off", "shutdown":
		return PowerOffRequested, nil
	case "resume_completed", "resume", "wake":
		return ResumeCompleted, nil
	}
	return 0, fmt.Errorf("unknown power transition %q", s)
}

// Listener receives transitions synchronously, in delivery order.
type Listener func(Transition)

// Source delivers power transitions to exactly one listener for the
// lifetime of the process.
type Source interface {
	// Subscribe registers the listener. It may be called once; later calls
	// return ErrAlreadySubscribed. A failure to reach the OS facility is
	// returned as a *SubscriptionError.
	Subscribe(listener Listener) error

	// Close stops delivery and releases OS resources.
	Close() error
}

var (
	ErrAlreadySubscribed = errors.New("power source already has a listener")
	ErrNotSubscribed     = errors.New("power source has no listener")
	ErrClosed            = errors.New("power source closed")
)

// SubscriptionError reports that the notification facility is unavailable.
// The agent cannot work without it.
type SubscriptionError struct {
	Source string
	Err    error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscribing to %s power notifications: %v", e.Source, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }

// Options configures source construction.
type Options struct {
	Logger *slog.Logger
}

// Factory creates a source.
type Factory func(opts Options) (Source, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a source factory to the global registry.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Open constructs the named source.
func Open(name string, opts Options) (Source, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("power source %q not registered (available: %s)", name, strings.Join(List(), ", "))
	}
	return factory(opts)
}

// List returns the names of all registered sources.
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
