// Package controller maps power transitions to radio power commands.
//
// The mapping is level-triggered: the command issued for a transition
// depends only on that transition, never on what came before, so duplicate
// or repeated delivery is harmless. Driver failures are logged and
// counted but never retried and never roll back the commanded state.
package controller

import (
	"log/slog"
	"sync"

	"github.com/szaher/radiosnooze/internal/events"
	"github.com/szaher/radiosnooze/internal/power"
	"github.com/szaher/radiosnooze/internal/radio"
	"github.com/szaher/radiosnooze/internal/telemetry"
)

// Controller owns the last commanded radio state.
type Controller struct {
	driver  radio.Driver
	logger  *slog.Logger
	emitter events.Emitter
	metrics *telemetry.Metrics

	// serial orders driver calls; mu guards state alone so State never
	// waits on the driver.
	serial sync.Mutex
	mu     sync.Mutex
	state  radio.State
}

// Option configures the Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithEmitter sets the sink for radio state notifications.
func WithEmitter(e events.Emitter) Option {
	return func(c *Controller) { c.emitter = e }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// New creates a controller and immediately commands the radio on, so the
// agent starts from a known baseline before any transition arrives.
func New(driver radio.Driver, opts ...Option) *Controller {
	c := &Controller{
		driver:  driver,
		logger:  slog.Default(),
		emitter: events.NoopEmitter{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.command(radio.On, "startup", telemetry.NewID())
	return c
}

// Target returns the radio state a transition calls for. ok is false for
// values outside the Transition enumeration.
func Target(t power.Transition) (state radio.State, ok bool) {
	switch t {
	case power.SuspendRequested:
		return radio.Off, true
	case power.PowerOffRequested:
		return radio.Off, true
	case power.ResumeCompleted:
		return radio.On, true
	default:
		return radio.Off, false
	}
}

// Handle applies one transition. It issues exactly one driver call and
// never fails; driver errors are reported, not returned. Unknown
// transitions are logged and leave the radio alone.
func (c *Controller) Handle(t power.Transition) {
	target, ok := Target(t)
	if !ok {
		c.logger.Warn("ignoring unknown power transition", "transition", t.String())
		return
	}
	id := telemetry.NewID()
	c.metrics.RecordTransition(t.String())
	c.emitter.Emit(events.New(events.PowerTransition, id).WithData("transition", t.String()))
	c.command(target, t.String(), id)
}

// Listener adapts Handle to power.Listener.
func (c *Controller) Listener() power.Listener {
	return c.Handle
}

// State returns the last commanded radio state. It reflects intent, not
// confirmed hardware state.
func (c *Controller) State() radio.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) command(target radio.State, cause, id string) {
	c.serial.Lock()
	defer c.serial.Unlock()

	c.mu.Lock()
	c.state = target
	c.mu.Unlock()

	err := c.driver.SetPower(target)
	c.metrics.RecordCommand(target.String(), err)

	logger := c.logger.With("transition_id", id, "cause", cause, "state", target.String())
	if err != nil {
		logger.Error("radio power command failed", "error", err)
		c.emitter.Emit(events.New(events.RadioCommandFailed, id).
			WithData("cause", cause).
			WithData("state", target.String()).
			WithData("error", err.Error()))
		return
	}
	logger.Info("radio power commanded")
	c.emitter.Emit(events.New(events.RadioCommanded, id).
		WithData("cause", cause).
		WithData("state", target.String()))
}
