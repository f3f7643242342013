package radio

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	bluezService   = "org.bluez"
	bluezAdapter   = "org.bluez.Adapter1"
	propertiesSet  = "org.freedesktop.DBus.Properties.Set"
	propertiesGet  = "org.freedesktop.DBus.Properties.Get"
	defaultAdapter = "hci0"
)

func init() {
	Register("bluez", func(opts Options) (Driver, error) {
		return NewBlueZDriver(opts.Adapter)
	})
}

// busObject is the subset of dbus.BusObject used by the BlueZ driver.
type busObject interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// BlueZDriver toggles the Powered property of a BlueZ adapter on the
// system bus.
type BlueZDriver struct {
	adapter string
	obj     busObject
	conn    *dbus.Conn
}

// NewBlueZDriver connects to the system bus and targets /org/bluez/<adapter>.
func NewBlueZDriver(adapter string) (*BlueZDriver, error) {
	if adapter == "" {
		adapter = defaultAdapter
	}
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to system bus: %w", err)
	}
	obj := conn.Object(bluezService, dbus.ObjectPath("/org/bluez/"+adapter))
	return &BlueZDriver{adapter: adapter, obj: obj, conn: conn}, nil
}

func newBlueZDriverWithObject(adapter string, obj busObject) *BlueZDriver {
	return &BlueZDriver{adapter: adapter, obj: obj}
}

// SetPower writes org.bluez.Adapter1.Powered. The call returns once BlueZ
// accepts the property write; the adapter may still be settling.
func (d *BlueZDriver) SetPower(state State) error {
	call := d.obj.Call(propertiesSet, 0, bluezAdapter, "Powered", dbus.MakeVariant(state == On))
	if call.Err != nil {
		return &DriverError{Driver: "bluez/" + d.adapter, State: state, Err: call.Err}
	}
	return nil
}

// Powered reads the adapter's current Powered property.
func (d *BlueZDriver) Powered() (State, error) {
	var v dbus.Variant
	if err := d.obj.Call(propertiesGet, 0, bluezAdapter, "Powered").Store(&v); err != nil {
		return Off, fmt.Errorf("reading %s Powered: %w", d.adapter, err)
	}
	powered, ok := v.Value().(bool)
	if !ok {
		return Off, fmt.Errorf("unexpected Powered value type %s", v.Signature())
	}
	if powered {
		return On, nil
	}
	return Off, nil
}

// Close releases the bus connection.
func (d *BlueZDriver) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}
