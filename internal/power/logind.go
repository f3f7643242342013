package power

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/coreos/go-systemd/v22/login1"
	"github.com/godbus/dbus/v5"
)

const (
	logindManager      = "org.freedesktop.login1.Manager"
	prepareForSleep    = "PrepareForSleep"
	prepareForShutdown = "PrepareForShutdown"

	inhibitWhat = "sleep:shutdown"
	inhibitWho  = "radiosnooze"
	inhibitWhy  = "Power down the radio before sleep or shutdown"
	inhibitMode = "delay"
)

func init() {
	Register("logind", func(opts Options) (Source, error) {
		return NewLogindSource(opts.Logger), nil
	})
}

// logindConn is the subset of *login1.Conn the source needs.
type logindConn interface {
	Inhibit(what, who, why, mode string) (*os.File, error)
	Subscribe(members ...string) chan *dbus.Signal
	Close()
}

// LogindSource delivers systemd-logind PrepareForSleep and
// PrepareForShutdown signals. While the machine is awake it holds a delay
// inhibitor lock, which logind waits on before suspending, so the listener
// always runs before the transition completes. The lock is released once
// the listener returns and taken again on resume.
type LogindSource struct {
	dial   func() (logindConn, error)
	logger *slog.Logger

	mu         sync.Mutex
	conn       logindConn
	lock       *os.File
	subscribed bool
	closed     bool
	done       chan struct{}
	wg         sync.WaitGroup
}

// NewLogindSource returns a source that connects to logind on Subscribe.
func NewLogindSource(logger *slog.Logger) *LogindSource {
	return newLogindSource(func() (logindConn, error) {
		c, err := login1.New()
		if err != nil {
			return nil, err
		}
		return c, nil
	}, logger)
}

func newLogindSource(dial func() (logindConn, error), logger *slog.Logger) *LogindSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogindSource{
		dial:   dial,
		logger: logger.With("source", "logind"),
		done:   make(chan struct{}),
	}
}

// Subscribe implements Source.
func (s *LogindSource) Subscribe(listener Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.subscribed {
		return ErrAlreadySubscribed
	}
	if listener == nil {
		return &SubscriptionError{Source: "logind", Err: errors.New("nil listener")}
	}

	conn, err := s.dial()
	if err != nil {
		return &SubscriptionError{Source: "logind", Err: err}
	}
	lock, err := conn.Inhibit(inhibitWhat, inhibitWho, inhibitWhy, inhibitMode)
	if err != nil {
		conn.Close()
		return &SubscriptionError{Source: "logind", Err: err}
	}
	signals := conn.Subscribe(prepareForSleep, prepareForShutdown)

	s.conn = conn
	s.lock = lock
	s.subscribed = true

	s.wg.Add(1)
	go s.loop(signals, listener)

	s.logger.Info("subscribed to power notifications", "inhibit", inhibitWhat, "mode", inhibitMode)
	return nil
}

func (s *LogindSource) loop(signals <-chan *dbus.Signal, listener Listener) {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			s.dispatch(sig, listener)
		}
	}
}

func (s *LogindSource) dispatch(sig *dbus.Signal, listener Listener) {
	if sig == nil || !strings.HasPrefix(sig.Name, logindManager+".") {
		return
	}
	member := strings.TrimPrefix(sig.Name, logindManager+".")
	if len(sig.Body) < 1 {
		s.logger.Warn("power signal without payload", "member", member)
		return
	}
	start, ok := sig.Body[0].(bool)
	if !ok {
		s.logger.Warn("power signal with unexpected payload", "member", member, "type", fmt.Sprintf("%T", sig.Body[0]))
		return
	}

	switch {
	case member == prepareForSleep && start:
		listener(SuspendRequested)
		s.releaseLock()
	case member == prepareForShutdown && start:
		listener(PowerOffRequested)
		s.releaseLock()
	case member == prepareForSleep || member == prepareForShutdown:
		// PrepareForSleep(false) follows resume; PrepareForShutdown(false)
		// means a pending shutdown was cancelled. Either way the machine
		// is awake again.
		s.acquireLock()
		listener(ResumeCompleted)
	default:
		s.logger.Debug("ignoring logind signal", "member", member)
	}
}

func (s *LogindSource) releaseLock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lock == nil {
		return
	}
	if err := s.lock.Close(); err != nil {
		s.logger.Warn("releasing inhibitor lock", "error", err)
	}
	s.lock = nil
}

func (s *LogindSource) acquireLock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lock != nil || s.conn == nil || s.closed {
		return
	}
	lock, err := s.conn.Inhibit(inhibitWhat, inhibitWho, inhibitWhy, inhibitMode)
	if err != nil {
		s.logger.Error("re-acquiring inhibitor lock", "error", err)
		return
	}
	s.lock = lock
}

// Close implements Source. It is safe to call more than once.
func (s *LogindSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	var err error
	if s.lock != nil {
		err = s.lock.Close()
		s.lock = nil
	}
	if s.conn != nil {
		s.conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}
