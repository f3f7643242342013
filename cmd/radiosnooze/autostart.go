package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/szaher/radiosnooze/internal/agent"
	"github.com/szaher/radiosnooze/internal/autostart"
	"github.com/szaher/radiosnooze/internal/control"
)

// loginTarget carries the local autostart manager and, when an agent may
// be listening, a client for it.
type loginTarget struct {
	manager *autostart.Manager
	client  *control.Client
}

func newLoginTarget(addr string, local bool) (*loginTarget, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	m, err := agent.NewLoginItem(cfg.AutostartDir)
	if err != nil {
		return nil, err
	}
	t := &loginTarget{manager: m}
	if addr == "" {
		addr = cfg.Listen
	}
	if !local && addr != "" {
		t.client = control.NewClient(addr)
	}
	return t, nil
}

// viaAgent runs fn against the running agent so its indicator changes with
// the entry. It reports false when no agent answers, leaving the caller to
// edit the entry itself.
func (t *loginTarget) viaAgent(fn func(*control.Client) error) (bool, error) {
	if t.client == nil {
		return false, nil
	}
	err := fn(t.client)
	if errors.Is(err, control.ErrUnreachable) {
		return false, nil
	}
	return err == nil, err
}

func (t *loginTarget) set(enabled bool) error {
	handled, err := t.viaAgent(func(c *control.Client) error {
		return c.SetAutostart(context.Background(), enabled)
	})
	if handled || err != nil {
		return err
	}
	return t.manager.Set(enabled)
}

func (t *loginTarget) toggle() (bool, error) {
	var enabled bool
	handled, err := t.viaAgent(func(c *control.Client) error {
		var err error
		enabled, err = c.ToggleAutostart(context.Background())
		return err
	})
	if handled || err != nil {
		return enabled, err
	}
	return t.manager.Toggle()
}

func newAutostartCmd() *cobra.Command {
	var (
		addr  string
		local bool
	)

	cmd := &cobra.Command{
		Use:   "autostart",
		Short: "Manage launching the agent at login",
		Long: `Changes go through the running agent when one is listening, so its
indicator stays in step; otherwise the autostart entry is edited directly.`,
	}
	cmd.PersistentFlags().StringVar(&addr, "addr", "", "Control server address (defaults to listen from config)")
	cmd.PersistentFlags().BoolVar(&local, "local", false, "Edit the autostart entry without contacting the agent")

	report := func(cmd *cobra.Command, enabled bool) {
		state := "disabled"
		if enabled {
			state = "enabled"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Launch at login %s.\n", state)
	}

	setCmd := func(use, short string, enabled bool) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				t, err := newLoginTarget(addr, local)
				if err != nil {
					return err
				}
				if err := t.set(enabled); err != nil {
					return fmt.Errorf("%s autostart: %w", use, err)
				}
				report(cmd, enabled)
				return nil
			},
		}
	}
	cmd.AddCommand(setCmd("enable", "Launch the agent at login", true))
	cmd.AddCommand(setCmd("disable", "Stop launching the agent at login", false))

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Flip the launch-at-login setting",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := newLoginTarget(addr, local)
			if err != nil {
				return err
			}
			enabled, err := t.toggle()
			if err != nil {
				return fmt.Errorf("toggling autostart: %w", err)
			}
			report(cmd, enabled)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether the agent launches at login",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := newLoginTarget(addr, true)
			if err != nil {
				return err
			}
			enabled, err := t.manager.IsEnabled()
			if err != nil {
				return err
			}
			report(cmd, enabled)
			return nil
		},
	})

	return cmd
}
