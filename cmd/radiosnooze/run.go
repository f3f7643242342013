package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/szaher/radiosnooze/internal/agent"
	"github.com/szaher/radiosnooze/internal/power"
	"github.com/szaher/radiosnooze/internal/telemetry"
)

func newRunCmd() *cobra.Command {
	var (
		driver    string
		adapter   string
		source    string
		listen    string
		logLevel  string
		logFormat string
		logFile   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the agent in the foreground",
		Long:  "Subscribes to power transitions and powers the radio off before sleep or shutdown and on after resume.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("driver") {
				cfg.Driver = driver
			}
			if flags.Changed("adapter") {
				cfg.Adapter = adapter
			}
			if flags.Changed("source") {
				cfg.Source = source
			}
			if flags.Changed("listen") {
				cfg.Listen = listen
			}
			if flags.Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			if flags.Changed("log-format") {
				cfg.Log.Format = logFormat
			}
			if flags.Changed("log-file") {
				cfg.Log.File = logFile
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, closer, err := telemetry.OpenLogger(telemetry.LogOptions{
				Level:      cfg.Log.Level,
				Format:     cfg.Log.Format,
				File:       cfg.Log.File,
				MaxSizeMB:  cfg.Log.MaxSizeMB,
				MaxBackups: cfg.Log.MaxBackups,
			})
			if err != nil {
				return err
			}
			defer closer.Close()

			a, err := agent.New(cfg, logger)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := a.Run(ctx); err != nil {
				var se *power.SubscriptionError
				if errors.As(err, &se) {
					logger.Error("cannot receive power notifications", "error", err)
				}
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&driver, "driver", "", "Radio driver: bluez, command or recording")
	cmd.Flags().StringVar(&adapter, "adapter", "", "Bluetooth adapter name for the bluez driver")
	cmd.Flags().StringVar(&source, "source", "", "Power event source: logind or manual")
	cmd.Flags().StringVar(&listen, "listen", "", "Control server address (empty disables)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.Flags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to a rotated file instead of stderr")

	return cmd
}
