package power

import "sync"

func init() {
	Register("manual", func(Options) (Source, error) {
		return NewManualSource(), nil
	})
}

// ManualSource is an in-process Source driven by Emit.
type ManualSource struct {
	mu       sync.Mutex
	deliver  sync.Mutex
	listener Listener
	closed   bool
}

// NewManualSource returns a source with no listener.
func NewManualSource() *ManualSource {
	return &ManualSource{}
}

// Subscribe implements Source.
func (s *ManualSource) Subscribe(listener Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.listener != nil {
		return ErrAlreadySubscribed
	}
	s.listener = listener
	return nil
}

// Emit delivers t to the listener on the caller's goroutine. Concurrent
// Emit calls are serialized.
func (s *ManualSource) Emit(t Transition) error {
	s.mu.Lock()
	listener, closed := s.listener, s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if listener == nil {
		return ErrNotSubscribed
	}

	s.deliver.Lock()
	defer s.deliver.Unlock()
	listener(t)
	return nil
}

// Close implements Source.
func (s *ManualSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
