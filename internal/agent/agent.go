// Package agent wires the power source, radio driver, controller,
// preference watcher, indicator and control server into one process.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sync/errgroup"

	"github.com/szaher/radiosnooze/internal/autostart"
	"github.com/szaher/radiosnooze/internal/config"
	"github.com/szaher/radiosnooze/internal/control"
	"github.com/szaher/radiosnooze/internal/controller"
	"github.com/szaher/radiosnooze/internal/events"
	"github.com/szaher/radiosnooze/internal/indicator"
	"github.com/szaher/radiosnooze/internal/power"
	"github.com/szaher/radiosnooze/internal/radio"
	"github.com/szaher/radiosnooze/internal/settings"
	"github.com/szaher/radiosnooze/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

// Agent is the running radiosnooze process.
type Agent struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics *telemetry.Metrics
	emitter events.Emitter

	driver     radio.Driver
	source     power.Source
	store      *settings.FileStore
	watcher    *settings.Watcher
	indicator  *indicator.Indicator
	login      *autostart.Manager
	controller *controller.Controller
	server     *control.Server
	listener   net.Listener

	ready    chan struct{}
	quit     chan struct{}
	quitOnce sync.Once
}

// Option configures the Agent.
type Option func(*Agent)

// WithDriver overrides the configured radio driver.
func WithDriver(d radio.Driver) Option {
	return func(a *Agent) { a.driver = d }
}

// WithSource overrides the configured power source.
func WithSource(s power.Source) Option {
	return func(a *Agent) { a.source = s }
}

// WithEmitter adds an extra event sink.
func WithEmitter(e events.Emitter) Option {
	return func(a *Agent) { a.emitter = e }
}

// New builds an agent from cfg. Nothing touches the radio until Start.
func New(cfg config.Config, logger *slog.Logger, opts ...Option) (*Agent, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Agent{
		cfg:     cfg,
		logger:  logger,
		metrics: telemetry.NewMetrics(),
		ready:   make(chan struct{}),
		quit:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}

	var err error
	if a.driver == nil {
		a.driver, err = radio.Open(cfg.Driver, radio.Options{
			Adapter:    cfg.Adapter,
			OnCommand:  cfg.OnCommand,
			OffCommand: cfg.OffCommand,
		})
		if err != nil {
			return nil, err
		}
	}
	if a.source == nil {
		a.source, err = power.Open(cfg.Source, power.Options{Logger: logger})
		if err != nil {
			return nil, err
		}
	}

	a.login, err = NewLoginItem(cfg.AutostartDir)
	if err != nil {
		return nil, err
	}

	fallback := indicator.FallbackTitle
	if cfg.Indicator.Fallback == "none" {
		fallback = indicator.FallbackNone
	}
	a.indicator = indicator.New(
		indicator.IconResolver{Name: cfg.Indicator.Icon, Dirs: cfg.Indicator.IconDirs},
		fallback,
		indicator.WithLogger(logger.With("ui", "indicator")),
		indicator.WithEmitter(events.LogEmitter{Logger: logger, Level: slog.LevelDebug}),
	)

	a.store = settings.NewFileStore(cfg.PreferencesFile)
	a.watcher = settings.NewWatcher(a.store, a.onHideIndicatorChanged, logger)
	return a, nil
}

// NewLoginItem returns the autostart manager for dir, or the XDG default
// when dir is empty.
func NewLoginItem(dir string) (*autostart.Manager, error) {
	if dir == "" {
		var err error
		if dir, err = autostart.DefaultDir(); err != nil {
			return nil, err
		}
	}
	exe, err := os.Executable()
	if err != nil {
		exe = "radiosnooze"
	}
	return &autostart.Manager{Dir: dir, Name: "radiosnooze", Exec: []string{exe, "run"}}, nil
}

func (a *Agent) onHideIndicatorChanged(hidden bool) {
	a.metrics.RecordPreferenceChange()
	a.logger.Info("hide indicator preference changed", "hidden", hidden)
	a.indicator.SetHidden(hidden)
}

// Start brings the agent up: indicator, launch-at-login state, radio
// baseline, power subscription, preference watch and control listener.
// A *power.SubscriptionError means the agent cannot do its job.
func (a *Agent) Start() error {
	prefs, err := a.store.Load()
	if err != nil {
		a.logger.Warn("loading preferences, using defaults", "error", err)
	}
	a.indicator.SetHidden(prefs.HideIndicator)

	if enabled, err := a.login.IsEnabled(); err != nil {
		a.logger.Warn("reading launch-at-login state", "error", err)
	} else {
		a.indicator.SetLaunchAtLogin(enabled)
	}

	// The controller commands the radio on as it is built, before the
	// source can deliver anything.
	a.controller = controller.New(a.driver,
		controller.WithLogger(a.logger),
		controller.WithMetrics(a.metrics),
		controller.WithEmitter(events.Multi{
			events.LogEmitter{Logger: a.logger, Level: slog.LevelDebug},
			a.indicator,
			a.emitter,
		}),
	)

	if err := a.source.Subscribe(a.controller.Listener()); err != nil {
		return err
	}

	hidden, err := a.watcher.Start()
	if err != nil {
		_ = a.source.Close()
		return fmt.Errorf("watching preferences: %w", err)
	}
	a.indicator.SetHidden(hidden)

	if a.cfg.Listen != "" {
		l, err := net.Listen("tcp", a.cfg.Listen)
		if err != nil {
			_ = a.watcher.Close()
			_ = a.source.Close()
			return fmt.Errorf("control listener: %w", err)
		}
		a.listener = l
		a.server = control.NewServer(a.controller, a.indicator, a.login,
			control.WithLogger(a.logger),
			control.WithMetrics(a.metrics.Handler()),
			control.WithQuit(a.Quit),
		)
	}

	a.emit(events.New(events.AgentStarted, "").WithData("driver", a.cfg.Driver).WithData("source", a.cfg.Source))
	close(a.ready)
	return nil
}

// Run starts the agent and blocks until ctx is cancelled or Quit is called.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		if cerr := a.closeDriver(); cerr != nil {
			a.logger.Warn("closing radio driver", "error", cerr)
		}
		return err
	}
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.logger.Debug("sd_notify ready", "error", err)
	}
	a.logger.Info("agent running", "driver", a.cfg.Driver, "source", a.cfg.Source, "listen", a.cfg.Listen)

	g, gctx := errgroup.WithContext(ctx)
	if a.server != nil {
		g.Go(func() error {
			return a.server.Serve(a.listener)
		})
	}
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-a.quit:
		}
		return a.shutdown()
	})
	return g.Wait()
}

// Quit requests shutdown. It is safe to call more than once.
func (a *Agent) Quit() {
	a.quitOnce.Do(func() { close(a.quit) })
}

func (a *Agent) shutdown() error {
	a.logger.Info("agent stopping")
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		a.logger.Debug("sd_notify stopping", "error", err)
	}
	a.emit(events.New(events.AgentStopping, ""))

	var errs []error
	if err := a.watcher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing preference watcher: %w", err))
	}
	if err := a.source.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing power source: %w", err))
	}
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stopping control server: %w", err))
		}
	}
	if err := a.closeDriver(); err != nil {
		errs = append(errs, fmt.Errorf("closing radio driver: %w", err))
	}
	return errors.Join(errs...)
}

// closeDriver releases drivers that hold OS resources, such as the BlueZ
// bus connection.
func (a *Agent) closeDriver() error {
	if c, ok := a.driver.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (a *Agent) emit(e *events.Event) {
	events.LogEmitter{Logger: a.logger, Level: slog.LevelDebug}.Emit(e)
	if a.emitter != nil {
		a.emitter.Emit(e)
	}
}

// Ready is closed once Start has succeeded.
func (a *Agent) Ready() <-chan struct{} { return a.ready }

// Controller returns the controller once Start has run.
func (a *Agent) Controller() *controller.Controller { return a.controller }

// Indicator returns the indicator model.
func (a *Agent) Indicator() *indicator.Indicator { return a.indicator }

// Addr returns the control server address, or "" when disabled.
func (a *Agent) Addr() string {
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}
