package networkd

import (
	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
	"sync"
)

const (
	busName          = "org.freedesktop.network1"
	objectPath       = dbus.ObjectPath("/org/freedesktop/network1")
	managerIface     = "org.freedesktop.network1.Manager"
	propertiesIface  = "org.freedesktop.DBus.Properties"
	operationalState = "OperationalState"
)

// Networkd talks to systemd-networkd on the system bus.
type Networkd struct {
	log  Logger
	conn *dbus.Conn
	obj  dbus.BusObject
}

// New creates a networkd client on conn. logger may be nil.
func New(conn *dbus.Conn, logger Logger) *Networkd {
	n := &Networkd{
		conn: conn,
		obj:  conn.Object(busName, objectPath),
	}

	if logger != nil {
		n.log = logger
	} else {
		n.log = noopLogger{}
	}

	return n
}

// OperationalState returns the aggregated operational state of all links.
func (n *Networkd) OperationalState() (string, error) {
	v, err := n.obj.GetProperty(managerIface + "." + operationalState)
	if err != nil {
		return "", errors.Errorf("could not get operational state: %v", err)
	}

	state, ok := v.Value().(string)
	if !ok {
		return "", errors.Errorf("could not convert operational state: %v", v)
	}

	return state, nil
}

type OperationalStateClient struct {
	OperationalState <-chan string
	Cancel           func()
}

// OperationalStateChanged follows PropertiesChanged of the manager object
// and emits the operational state whenever it changes. An invalidated
// property is read back from the bus.
func (n *Networkd) OperationalStateChanged() (*OperationalStateClient, error) {
	stateChan := make(chan string)
	signalChan := make(chan *dbus.Signal, 16)
	done := make(chan struct{})

	matchOptions := []dbus.MatchOption{
		dbus.WithMatchObjectPath(objectPath),
		dbus.WithMatchArg(0, managerIface),
	}

	call := n.conn.BusObject().AddMatchSignal(propertiesIface, "PropertiesChanged", matchOptions...)
	if call.Err != nil {
		return nil, errors.Errorf("could not add signal: %v", call.Err)
	}

	n.conn.Signal(signalChan)

	var once sync.Once

	client := &OperationalStateClient{
		OperationalState: stateChan,
		Cancel: func() {
			once.Do(func() {
				n.conn.RemoveSignal(signalChan)

				_ = n.conn.BusObject().RemoveMatchSignal(propertiesIface, "PropertiesChanged", matchOptions...)

				close(done)
			})
		},
	}

	go func() {
		defer close(stateChan)

		for {
			select {
			case signal, ok := <-signalChan:
				if !ok {
					return
				}

				state, ok := n.stateFromSignal(signal)
				if !ok {
					continue
				}

				select {
				case stateChan <- state:
				case <-done:
					return
				}
			case <-done:
				return
			}
		}
	}()

	return client, nil
}

// stateFromSignal returns the operational state carried by signal, reading
// it back from the bus if the signal only invalidated it.
func (n *Networkd) stateFromSignal(signal *dbus.Signal) (string, bool) {
	state, changed, invalidated := parsePropertiesChanged(signal)
	if !invalidated {
		return state, changed
	}

	state, err := n.OperationalState()
	if err != nil {
		n.log.Warnf("Dropping invalidated operational state: %v", err)
		return "", false
	}

	n.log.Debugf("Read back invalidated operational state %v", state)

	return state, true
}

// parsePropertiesChanged extracts the operational state from a
// PropertiesChanged signal of the manager object. invalidated is set when
// the property changed without its new value being attached.
func parsePropertiesChanged(signal *dbus.Signal) (state string, changed bool, invalidated bool) {
	if signal.Name != propertiesIface+".PropertiesChanged" || signal.Path != objectPath {
		return "", false, false
	}

	if len(signal.Body) != 3 {
		return "", false, false
	}

	if name, ok := signal.Body[0].(string); !ok || name != managerIface {
		return "", false, false
	}

	if props, ok := signal.Body[1].(map[string]dbus.Variant); ok {
		if val, ok := props[operationalState]; ok {
			if s, ok := val.Value().(string); ok {
				return s, true, false
			}
		}
	}

	if names, ok := signal.Body[2].([]string); ok {
		for _, name := range names {
			if name == operationalState {
				return "", false, true
			}
		}
	}

	return "", false, false
}
