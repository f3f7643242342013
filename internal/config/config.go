// Package config loads the radiosnooze agent configuration.
//
// Values come from, in increasing precedence: built-in defaults, the YAML
// config file, RADIOSNOOZE_* environment variables, and command-line flags
// (applied by the caller).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const appName = "radiosnooze"

// Config is the complete agent configuration.
type Config struct {
	Driver     string   `yaml:"driver"`
	Adapter    string   `yaml:"adapter"`
	OnCommand  []string `yaml:"on_command,omitempty"`
	OffCommand []string `yaml:"off_command,omitempty"`

	Source string `yaml:"source"`

	// Listen is the control server address; empty disables it.
	Listen string `yaml:"listen"`

	PreferencesFile string `yaml:"preferences_file"`
	AutostartDir    string `yaml:"autostart_dir"`

	Indicator IndicatorConfig `yaml:"indicator"`
	Log       LogConfig       `yaml:"log"`
}

// IndicatorConfig configures the status indicator.
type IndicatorConfig struct {
	Icon     string   `yaml:"icon"`
	IconDirs []string `yaml:"icon_dirs"`
	Fallback string   `yaml:"fallback"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Dir returns $XDG_CONFIG_HOME/radiosnooze, falling back to
// ~/.config/radiosnooze.
func Dir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", appName)
	}
	return "." + appName
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Driver:          "bluez",
		Adapter:         "hci0",
		OnCommand:       []string{"rfkill", "unblock", "bluetooth"},
		OffCommand:      []string{"rfkill", "block", "bluetooth"},
		Source:          "logind",
		Listen:          "127.0.0.1:7807",
		PreferencesFile: filepath.Join(Dir(), "preferences.yaml"),
		AutostartDir:    "",
		Indicator: IndicatorConfig{
			Icon:     appName,
			IconDirs: []string{"/usr/share/icons/hicolor/scalable/apps", "/usr/share/pixmaps"},
			Fallback: "title",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Load reads path on top of the defaults. When required is false a
// missing file yields the defaults.
func Load(path string, required bool) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := decode(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides fields from RADIOSNOOZE_* environment variables.
func (c *Config) ApplyEnv() {
	set := func(key string, dst *string) {
		if v := os.Getenv("RADIOSNOOZE_" + key); v != "" {
			*dst = v
		}
	}
	set("DRIVER", &c.Driver)
	set("ADAPTER", &c.Adapter)
	set("SOURCE", &c.Source)
	set("LISTEN", &c.Listen)
	set("PREFERENCES_FILE", &c.PreferencesFile)
	set("AUTOSTART_DIR", &c.AutostartDir)
	set("LOG_LEVEL", &c.Log.Level)
	set("LOG_FORMAT", &c.Log.Format)
	set("LOG_FILE", &c.Log.File)
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error
	switch c.Driver {
	case "bluez":
		if c.Adapter == "" {
			errs = append(errs, errors.New("adapter is required for the bluez driver"))
		} else if strings.ContainsAny(c.Adapter, "/ ") {
			errs = append(errs, fmt.Errorf("adapter %q must be a bare name such as hci0", c.Adapter))
		}
	case "command":
		if len(c.OnCommand) == 0 || len(c.OffCommand) == 0 {
			errs = append(errs, errors.New("on_command and off_command are required for the command driver"))
		}
	case "recording":
	default:
		errs = append(errs, fmt.Errorf("unknown driver %q (expected bluez, command or recording)", c.Driver))
	}

	switch c.Source {
	case "logind", "manual":
	default:
		errs = append(errs, fmt.Errorf("unknown source %q (expected logind or manual)", c.Source))
	}

	if c.PreferencesFile == "" {
		errs = append(errs, errors.New("preferences_file is required"))
	}

	switch c.Indicator.Fallback {
	case "title", "none":
	default:
		errs = append(errs, fmt.Errorf("indicator.fallback %q must be title or none", c.Indicator.Fallback))
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}

	return errors.Join(errs...)
}

// Write saves the configuration as YAML, used by `config init`.
func Write(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
