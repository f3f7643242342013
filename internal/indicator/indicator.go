// Package indicator holds the headless status-indicator model: whether it
// is visible, what it shows, and the radio state it reports.
package indicator

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/szaher/radiosnooze/internal/events"
	"github.com/szaher/radiosnooze/internal/radio"
)

// DefaultTitle is shown in place of the icon under FallbackTitle.
const DefaultTitle = "Radiosnooze"

// Fallback selects what a visible indicator shows when its icon cannot be
// found.
type Fallback int

const (
	// FallbackTitle renders DefaultTitle as text.
	FallbackTitle Fallback = iota
	// FallbackNone renders an empty indicator.
	FallbackNone
)

// Presentation is what the indicator currently shows.
type Presentation struct {
	Visible       bool   `json:"visible"`
	Icon          string `json:"icon,omitempty"`
	Title         string `json:"title,omitempty"`
	RadioState    string `json:"radio_state"`
	LaunchAtLogin bool   `json:"launch_at_login"`
}

// IconResolver locates a named icon file.
type IconResolver struct {
	Name string
	Dirs []string
}

var iconExts = []string{".svg", ".png"}

// Resolve returns the first existing <dir>/<name><ext>.
func (r IconResolver) Resolve() (string, bool) {
	if r.Name == "" {
		return "", false
	}
	for _, dir := range r.Dirs {
		for _, ext := range iconExts {
			path := filepath.Join(dir, r.Name+ext)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, true
			}
		}
	}
	return "", false
}

// Indicator is the single owned UI-state object. It never reaches into
// the controller; radio state arrives as events.
type Indicator struct {
	resolver IconResolver
	fallback Fallback
	logger   *slog.Logger
	emitter  events.Emitter

	mu            sync.Mutex
	hidden        bool
	radioState    radio.State
	launchAtLogin bool
	current       Presentation
}

// Option configures the Indicator.
type Option func(*Indicator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Indicator) { i.logger = logger }
}

// WithEmitter sets the sink for indicator.changed events.
func WithEmitter(e events.Emitter) Option {
	return func(i *Indicator) { i.emitter = e }
}

// New creates a visible indicator reporting radio on.
func New(resolver IconResolver, fallback Fallback, opts ...Option) *Indicator {
	i := &Indicator{
		resolver:   resolver,
		fallback:   fallback,
		logger:     slog.Default(),
		emitter:    events.NoopEmitter{},
		radioState: radio.On,
	}
	for _, opt := range opts {
		opt(i)
	}
	i.mu.Lock()
	i.render()
	i.mu.Unlock()
	return i
}

// SetHidden shows or hides the indicator.
func (i *Indicator) SetHidden(hidden bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.hidden = hidden
	i.render()
}

// SetRadioState records the last commanded radio state for display.
func (i *Indicator) SetRadioState(s radio.State) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.radioState = s
	i.render()
}

// SetLaunchAtLogin updates the launch-at-login check mark.
func (i *Indicator) SetLaunchAtLogin(enabled bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.launchAtLogin = enabled
	i.render()
}

// Snapshot returns the current presentation.
func (i *Indicator) Snapshot() Presentation {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.current
}

// Emit lets the indicator subscribe to controller events.
func (i *Indicator) Emit(e *events.Event) {
	if e.Type != events.RadioCommanded && e.Type != events.RadioCommandFailed {
		return
	}
	name, _ := e.Data["state"].(string)
	s, err := radio.ParseState(name)
	if err != nil {
		return
	}
	i.SetRadioState(s)
}

// render recomputes the presentation. Caller holds i.mu.
func (i *Indicator) render() {
	p := Presentation{
		Visible:       !i.hidden,
		RadioState:    i.radioState.String(),
		LaunchAtLogin: i.launchAtLogin,
	}
	if p.Visible {
		if path, ok := i.resolver.Resolve(); ok {
			p.Icon = path
			i.logger.Debug("indicator icon resolved", "icon", path)
		} else {
			i.logger.Debug("indicator icon not found", "name", i.resolver.Name, "dirs", i.resolver.Dirs)
			if i.fallback == FallbackTitle {
				p.Title = DefaultTitle
			}
		}
	}

	prev := i.current
	i.current = p
	if prev.Visible != p.Visible || prev.Icon != p.Icon || prev.Title != p.Title {
		i.emitter.Emit(events.New(events.IndicatorChanged, "").
			WithData("visible", p.Visible).
			WithData("icon", p.Icon).
			WithData("title", p.Title))
	}
}
