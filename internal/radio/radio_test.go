package radio

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"

	"github.com/szaher/radiosnooze/internal/testutil"
)

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{On, "on"},
		{Off, "off"},
		{State(7), "State(7)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}

func TestParseState(t *testing.T) {
	tests := []struct {
		in      string
		want    State
		wantErr bool
	}{
		{"on", On, false},
		{" ON ", On, false},
		{"true", On, false},
		{"off", Off, false},
		{"0", Off, false},
		{"maybe", Off, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseState(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseState(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseState(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	names := List()
	for _, want := range []string{"bluez", "command", "recording"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Errorf("List() = %v, missing %q", names, want)
		}
	}

	d, err := Open("recording", Options{})
	if err != nil {
		t.Fatalf("Open(recording) error: %v", err)
	}
	if _, ok := d.(*RecordingDriver); !ok {
		t.Errorf("Open(recording) returned %T", d)
	}

	if _, err := Open("carrier-pigeon", Options{}); err == nil {
		t.Error("Open(unknown) expected error, got nil")
	}
}

type fakeBusObject struct {
	method string
	args   []interface{}
	err    error
	body   []interface{}
}

func (f *fakeBusObject) Call(method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	f.method = method
	f.args = args
	return &dbus.Call{Err: f.err, Body: f.body}
}

func TestBlueZDriverSetPower(t *testing.T) {
	t.Run("writes Powered property", func(t *testing.T) {
		obj := &fakeBusObject{}
		d := newBlueZDriverWithObject("hci0", obj)

		if err := d.SetPower(Off); err != nil {
			t.Fatalf("SetPower(Off) error: %v", err)
		}
		if obj.method != propertiesSet {
			t.Errorf("method = %q, want %q", obj.method, propertiesSet)
		}
		if len(obj.args) != 3 {
			t.Fatalf("args = %v, want 3 args", obj.args)
		}
		if obj.args[0] != bluezAdapter || obj.args[1] != "Powered" {
			t.Errorf("args = %v, want [%s Powered ...]", obj.args, bluezAdapter)
		}
		v, ok := obj.args[2].(dbus.Variant)
		if !ok {
			t.Fatalf("value arg is %T, want dbus.Variant", obj.args[2])
		}
		if v.Value() != false {
			t.Errorf("Powered value = %v, want false", v.Value())
		}
	})

	t.Run("wraps bus errors in DriverError", func(t *testing.T) {
		obj := &fakeBusObject{err: errors.New("org.bluez.Error.Busy")}
		d := newBlueZDriverWithObject("hci1", obj)

		err := d.SetPower(On)
		var de *DriverError
		if !errors.As(err, &de) {
			t.Fatalf("SetPower error = %v, want *DriverError", err)
		}
		if de.State != On {
			t.Errorf("DriverError.State = %v, want on", de.State)
		}
		testutil.AssertErrorContains(t, err, "bluez/hci1")
	})
}

func TestBlueZDriverPowered(t *testing.T) {
	obj := &fakeBusObject{body: []interface{}{dbus.MakeVariant(true)}}
	d := newBlueZDriverWithObject("hci0", obj)

	got, err := d.Powered()
	if err != nil {
		t.Fatalf("Powered() error: %v", err)
	}
	if got != On {
		t.Errorf("Powered() = %v, want on", got)
	}
	if obj.method != propertiesGet {
		t.Errorf("method = %q, want %q", obj.method, propertiesGet)
	}
}

func TestCommandDriver(t *testing.T) {
	t.Run("rejects empty commands", func(t *testing.T) {
		if _, err := NewCommandDriver(nil, []string{"true"}); err == nil {
			t.Error("expected error for empty on command")
		}
		if _, err := NewCommandDriver([]string{"true"}, []string{""}); err == nil {
			t.Error("expected error for empty off command")
		}
	})

	t.Run("runs the matching argv", func(t *testing.T) {
		d, err := NewCommandDriver([]string{"sh", "-c", "exit 0"}, []string{"sh", "-c", "echo nope >&2; exit 3"})
		if err != nil {
			t.Fatalf("NewCommandDriver error: %v", err)
		}
		if err := d.SetPower(On); err != nil {
			t.Errorf("SetPower(On) error: %v", err)
		}

		err = d.SetPower(Off)
		var de *DriverError
		if !errors.As(err, &de) {
			t.Fatalf("SetPower(Off) error = %v, want *DriverError", err)
		}
		testutil.AssertErrorContains(t, err, "nope")
	})
}

func TestRecordingDriver(t *testing.T) {
	d := NewRecordingDriver().FailCall(2)

	if err := d.SetPower(On); err != nil {
		t.Errorf("call 1 error: %v", err)
	}
	if err := d.SetPower(Off); !errors.Is(err, ErrInjected) {
		t.Errorf("call 2 error = %v, want ErrInjected", err)
	}
	if err := d.SetPower(Off); err != nil {
		t.Errorf("call 3 error: %v", err)
	}

	calls := d.Calls()
	want := []State{On, Off, Off}
	if len(calls) != len(want) {
		t.Fatalf("Calls() = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("Calls()[%d] = %v, want %v", i, calls[i], want[i])
		}
	}
}
