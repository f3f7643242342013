package radio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultCommandTimeout bounds how long a helper command may run.
const DefaultCommandTimeout = 5 * time.Second

func init() {
	Register("command", func(opts Options) (Driver, error) {
		return NewCommandDriver(opts.OnCommand, opts.OffCommand)
	})
}

// CommandDriver runs an external helper, such as rfkill or bluetoothctl,
// to change radio power.
type CommandDriver struct {
	OnCommand  []string
	OffCommand []string
	Timeout    time.Duration
}

// NewCommandDriver validates both argv slices.
func NewCommandDriver(on, off []string) (*CommandDriver, error) {
	if len(on) == 0 || on[0] == "" {
		return nil, errors.New("command driver: on command is empty")
	}
	if len(off) == 0 || off[0] == "" {
		return nil, errors.New("command driver: off command is empty")
	}
	return &CommandDriver{OnCommand: on, OffCommand: off, Timeout: DefaultCommandTimeout}, nil
}

// SetPower runs the argv matching state.
func (d *CommandDriver) SetPower(state State) error {
	argv := d.OffCommand
	if state == On {
		argv = d.OnCommand
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return &DriverError{Driver: "command/" + argv[0], State: state, Err: err}
	}
	return nil
}
