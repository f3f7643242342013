// Package autostart manages the XDG autostart entry that launches the
// agent at login.
package autostart

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Manager installs and removes <Dir>/<Name>.desktop.
type Manager struct {
	Dir  string
	Name string
	// Exec is the argv written to the entry's Exec key.
	Exec []string
}

// DefaultDir returns $XDG_CONFIG_HOME/autostart, falling back to
// ~/.config/autostart.
func DefaultDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "autostart"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating autostart directory: %w", err)
	}
	return filepath.Join(home, ".config", "autostart"), nil
}

// Path returns the desktop entry path.
func (m *Manager) Path() string {
	return filepath.Join(m.Dir, m.Name+".desktop")
}

// IsEnabled reports whether the desktop entry exists.
func (m *Manager) IsEnabled() (bool, error) {
	_, err := os.Stat(m.Path())
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Enable writes the desktop entry.
func (m *Manager) Enable() error {
	if len(m.Exec) == 0 || m.Exec[0] == "" {
		return errors.New("autostart: empty Exec")
	}
	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(m.Path(), []byte(m.entry()), 0o644)
}

// Disable removes the desktop entry. Removing a missing entry is not an
// error.
func (m *Manager) Disable() error {
	err := os.Remove(m.Path())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Set enables or disables the entry.
func (m *Manager) Set(enabled bool) error {
	if enabled {
		return m.Enable()
	}
	return m.Disable()
}

// Toggle flips the launch-at-login setting and returns the new value. On
// failure it returns the unchanged value.
func (m *Manager) Toggle() (bool, error) {
	enabled, err := m.IsEnabled()
	if err != nil {
		return false, err
	}
	if err := m.Set(!enabled); err != nil {
		return enabled, err
	}
	return !enabled, nil
}

func (m *Manager) entry() string {
	var sb strings.Builder
	sb.WriteString("[Desktop Entry]\n")
	sb.WriteString("Type=Application\n")
	fmt.Fprintf(&sb, "Name=%s\n", m.Name)
	sb.WriteString("Comment=Turn the Bluetooth radio off while the machine sleeps\n")
	fmt.Fprintf(&sb, "Exec=%s\n", ExecLine(m.Exec))
	sb.WriteString("Terminal=false\n")
	sb.WriteString("NoDisplay=true\n")
	sb.WriteString("X-GNOME-Autostart-enabled=true\n")
	return sb.String()
}

// execReserved are the characters that force an Exec argument into quotes.
const execReserved = " \t\n\"'\\><~|&;$*?#()`"

// ExecLine renders argv as a desktop entry Exec value: arguments holding
// reserved characters are double-quoted with ", `, $ and \ backslash-escaped,
// backslashes are then escaped again for the string value type, and %
// becomes %% so it is not read as a field code.
func ExecLine(argv []string) string {
	args := make([]string, len(argv))
	for i, arg := range argv {
		if arg == "" || strings.ContainsAny(arg, execReserved) {
			var q strings.Builder
			q.WriteByte('"')
			for _, r := range arg {
				if r == '"' || r == '`' || r == '$' || r == '\\' {
					q.WriteByte('\\')
				}
				q.WriteRune(r)
			}
			q.WriteByte('"')
			arg = q.String()
		}
		arg = strings.ReplaceAll(arg, "%", "%%")
		arg = strings.ReplaceAll(arg, "\\", "\\\\")
		args[i] = strings.ReplaceAll(arg, "\n", "\\n")
	}
	return strings.Join(args, " ")
}
