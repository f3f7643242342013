package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/szaher/radiosnooze/internal/controller"
	"github.com/szaher/radiosnooze/internal/events"
	"github.com/szaher/radiosnooze/internal/power"
	"github.com/szaher/radiosnooze/internal/radio"
	"github.com/szaher/radiosnooze/internal/telemetry"
)

func newSimulateCmd() *cobra.Command {
	var (
		failCalls []int
		eventsOut string
	)

	cmd := &cobra.Command{
		Use:   "simulate <transition>...",
		Short: "Replay power transitions against a recording driver",
		Long: `Feeds the given transitions (suspend, poweroff, resume) through the
controller with a recording driver and prints the radio commands issued.
The first command is always the startup baseline.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transitions := make([]power.Transition, 0, len(args))
			for _, arg := range args {
				tr, err := power.ParseTransition(arg)
				if err != nil {
					return err
				}
				transitions = append(transitions, tr)
			}

			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger := telemetry.NewLogger(cmd.ErrOrStderr(), level, "text")

			driver := radio.NewRecordingDriver()
			for _, n := range failCalls {
				driver.FailCall(n)
			}
			var collected events.CollectorEmitter

			src := power.NewManualSource()
			c := controller.New(driver, controller.WithLogger(logger), controller.WithEmitter(&collected))
			if err := src.Subscribe(c.Listener()); err != nil {
				return err
			}
			for _, tr := range transitions {
				if err := src.Emit(tr); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-4s %-22s %-6s %s\n", "#", "CAUSE", "STATE", "RESULT")
			fmt.Fprintln(out, strings.Repeat("-", 42))
			n := 0
			for _, e := range collected.Events() {
				if e.Type != events.RadioCommanded && e.Type != events.RadioCommandFailed {
					continue
				}
				n++
				result := "ok"
				if e.Type == events.RadioCommandFailed {
					result = "failed"
				}
				fmt.Fprintf(out, "%-4d %-22v %-6v %s\n", n, e.Data["cause"], e.Data["state"], result)
			}
			fmt.Fprintf(out, "\nFinal commanded state: %s\n", c.State())

			if eventsOut != "" {
				if err := events.ExportLog(collected.Events(), eventsOut); err != nil {
					return fmt.Errorf("writing events: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntSliceVar(&failCalls, "fail-call", nil, "Make the n-th driver call fail (1 is the startup baseline)")
	cmd.Flags().StringVar(&eventsOut, "events-out", "", "Write the emitted events to a file (.jsonl for one per line, - for stdout)")

	return cmd
}
