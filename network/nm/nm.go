package nm

import (
	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
	"sync"
)

const (
	busName    = "org.freedesktop.NetworkManager"
	objectPath = dbus.ObjectPath("/org/freedesktop/NetworkManager")
	iface      = "org.freedesktop.NetworkManager"
)

// NetworkManager talks to the NetworkManager daemon on the system bus.
type NetworkManager struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

func New(conn *dbus.Conn) *NetworkManager {
	return &NetworkManager{
		conn: conn,
		obj:  conn.Object(busName, objectPath),
	}
}

// State returns the current global NetworkManager state (NM_STATE_*).
func (n *NetworkManager) State() (uint32, error) {
	v, err := n.obj.GetProperty(iface + ".State")
	if err != nil {
		return 0, errors.Errorf("could not get state: %v", err)
	}

	state, ok := v.Value().(uint32)
	if !ok {
		return 0, errors.Errorf("could not convert state: %v", v)
	}

	return state, nil
}

type StateChangedClient struct {
	StateChanged <-chan uint32
	Cancel       func()
}

// StateChanged subscribes to the StateChanged signal. The channel is closed
// after Cancel or when the bus connection goes away.
func (n *NetworkManager) StateChanged() (*StateChangedClient, error) {
	stateChan := make(chan uint32)
	signalChan := make(chan *dbus.Signal, 16)
	done := make(chan struct{})

	call := n.conn.BusObject().AddMatchSignal(iface, "StateChanged", dbus.WithMatchObjectPath(objectPath))
	if call.Err != nil {
		return nil, errors.Errorf("could not add signal: %v", call.Err)
	}

	n.conn.Signal(signalChan)

	var once sync.Once

	client := &StateChangedClient{
		StateChanged: stateChan,
		Cancel: func() {
			once.Do(func() {
				n.conn.RemoveSignal(signalChan)

				_ = n.conn.BusObject().RemoveMatchSignal(iface, "StateChanged", dbus.WithMatchObjectPath(objectPath))

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

				state, ok := parseStateChanged(signal)
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

func parseStateChanged(signal *dbus.Signal) (uint32, bool) {
	if signal.Name != iface+".StateChanged" || signal.Path != objectPath {
		return 0, false
	}

	if len(signal.Body) != 1 {
		return 0, false
	}

	state, ok := signal.Body[0].(uint32)

	return state, ok
}
