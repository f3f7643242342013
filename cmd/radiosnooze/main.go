// Package main is the entry point for the radiosnooze agent and CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/szaher/radiosnooze/internal/config"
)

// Version information set at build time.
var version = "0.1.0"

// Global flags.
var (
	configPath string
	verbose    bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "radiosnooze",
		Short: "Turn the Bluetooth radio off while the machine sleeps",
		Long: `radiosnooze is a background agent that powers the Bluetooth radio
off when the machine suspends or shuts down and back on when it resumes,
so peripherals cannot wake the machine or drain the battery while it sleeps.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default "+config.DefaultPath()+")")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newQuitCmd())
	root.AddCommand(newPrefsCmd())
	root.AddCommand(newAutostartCmd())
	root.AddCommand(newRadioCmd())
	root.AddCommand(newSimulateCmd())
	root.AddCommand(newConfigCmd())

	return root
}

// loadConfig reads the config file, then the environment. An explicit
// --config path must exist; the default path is optional.
func loadConfig() (config.Config, error) {
	path, required := configPath, true
	if path == "" {
		path, required = config.DefaultPath(), false
	}
	cfg, err := config.Load(path, required)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv()
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
