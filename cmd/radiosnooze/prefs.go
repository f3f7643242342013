package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/szaher/radiosnooze/internal/settings"
)

const hideIndicatorKey = "hide-indicator"

func preferenceStore() (*settings.FileStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return settings.NewFileStore(cfg.PreferencesFile), nil
}

func newPrefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Read or change user preferences",
		Long:  "A running agent picks up preference changes immediately.",
	}
	cmd.AddCommand(newPrefsGetCmd())
	cmd.AddCommand(newPrefsSetCmd())
	return cmd
}

func newPrefsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "get " + hideIndicatorKey,
		Short:     "Print a preference value",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{hideIndicatorKey},
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != hideIndicatorKey {
				return fmt.Errorf("unknown preference %q", args[0])
			}
			store, err := preferenceStore()
			if err != nil {
				return err
			}
			p, err := store.Load()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.HideIndicator)
			return nil
		},
	}
}

func newPrefsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set " + hideIndicatorKey + " <true|false>",
		Short: "Change a preference value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != hideIndicatorKey {
				return fmt.Errorf("unknown preference %q", args[0])
			}
			value, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("invalid value %q for %s: %w", args[1], hideIndicatorKey, err)
			}
			store, err := preferenceStore()
			if err != nil {
				return err
			}
			p, err := store.Load()
			if err != nil {
				return err
			}
			p.HideIndicator = value
			if err := store.Save(p); err != nil {
				return fmt.Errorf("saving preferences: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", hideIndicatorKey, value)
			return nil
		},
	}
}
