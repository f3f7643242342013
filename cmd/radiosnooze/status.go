package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/szaher/radiosnooze/internal/control"
)

func controlClient(addr string) (*control.Client, error) {
	if addr == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		addr = cfg.Listen
	}
	if addr == "" {
		return nil, fmt.Errorf("control server disabled (set listen in the config or pass --addr)")
	}
	return control.NewClient(addr), nil
}

func newStatusCmd() *cobra.Command {
	var (
		addr   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the running agent's radio and indicator state",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := controlClient(addr)
			if err != nil {
				return err
			}
			st, err := client.Status(context.Background())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}

			indicatorState := "hidden"
			if st.Indicator.Visible {
				indicatorState = "visible"
				switch {
				case st.Indicator.Icon != "":
					indicatorState += " (icon " + st.Indicator.Icon + ")"
				case st.Indicator.Title != "":
					indicatorState += fmt.Sprintf(" (title %q)", st.Indicator.Title)
				}
			}
			fmt.Fprintf(out, "%-18s %s\n", "RADIO", st.RadioState)
			fmt.Fprintf(out, "%-18s %s\n", "INDICATOR", indicatorState)
			fmt.Fprintf(out, "%-18s %v\n", "LAUNCH AT LOGIN", st.LaunchAtLogin)
			fmt.Fprintf(out, "%-18s %ds\n", "UPTIME", st.UptimeSeconds)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Control server address (defaults to listen from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw JSON")

	return cmd
}

func newQuitCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "quit",
		Short: "Stop the running agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := controlClient(addr)
			if err != nil {
				return err
			}
			if err := client.Quit(context.Background()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Agent stopping.")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Control server address (defaults to listen from config)")

	return cmd
}
