package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/szaher/radiosnooze/internal/radio"
)

func newRadioCmd() *cobra.Command {
	var driverName string

	cmd := &cobra.Command{
		Use:   "radio <on|off|status>",
		Short: "Drive the configured radio driver once",
		Long:  "Issues a single power command through the configured driver, bypassing power events. Useful for checking driver setup.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if driverName != "" {
				cfg.Driver = driverName
			}

			d, err := radio.Open(cfg.Driver, radio.Options{
				Adapter:    cfg.Adapter,
				OnCommand:  cfg.OnCommand,
				OffCommand: cfg.OffCommand,
			})
			if err != nil {
				return err
			}
			if c, ok := d.(io.Closer); ok {
				defer c.Close()
			}

			out := cmd.OutOrStdout()
			if args[0] == "status" {
				bz, ok := d.(*radio.BlueZDriver)
				if !ok {
					return fmt.Errorf("the %s driver cannot report radio state", cfg.Driver)
				}
				state, err := bz.Powered()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s is %s\n", cfg.Adapter, state)
				return nil
			}

			state, err := radio.ParseState(args[0])
			if err != nil {
				return err
			}
			if err := d.SetPower(state); err != nil {
				return err
			}
			fmt.Fprintf(out, "Radio power %s commanded via %s.\n", state, cfg.Driver)
			return nil
		},
	}

	cmd.Flags().StringVar(&driverName, "driver", "", "Override the configured driver")

	return cmd
}
