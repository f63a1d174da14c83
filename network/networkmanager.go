package network

import (
	"context"
	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
	"github.com/the-lightning-land/connectivityd/connectivity"
	"github.com/the-lightning-land/connectivityd/network/nm"
)

// check NetworkManagerSource compliance to its interface during compile time
var _ Source = (*NetworkManagerSource)(nil)

type networkManager interface {
	State() (uint32, error)
	StateChanged() (*nm.StateChangedClient, error)
}

type NetworkManagerConfig struct {
	Conn   *dbus.Conn
	Logger Logger
}

// NetworkManagerSource reports the global NetworkManager state as
// connectivity.NMState values.
type NetworkManagerSource struct {
	log Logger
	nm  networkManager
}

func NewNetworkManagerSource(config *NetworkManagerConfig) *NetworkManagerSource {
	source := &NetworkManagerSource{
		nm: nm.New(config.Conn),
	}

	if config.Logger != nil {
		source.log = config.Logger
	} else {
		source.log = noopLogger{}
	}

	return source
}

func (s *NetworkManagerSource) Subscribe(ctx context.Context) (*Subscription, error) {
	// subscribe before reading the state so that no change gets lost
	client, err := s.nm.StateChanged()
	if err != nil {
		return nil, errors.Errorf("could not subscribe to NetworkManager state: %v", err)
	}

	state, err := s.nm.State()
	if err != nil {
		client.Cancel()
		return nil, errors.Errorf("could not read NetworkManager state: %v", err)
	}

	s.log.Infof("NetworkManager state is %v", connectivity.NMState(state))

	updates := make(chan connectivity.Raw)

	go func() {
		defer close(updates)

		for {
			select {
			case state, ok := <-client.StateChanged:
				if !ok {
					s.log.Infof("NetworkManager state subscription ended")
					return
				}

				s.log.Debugf("NetworkManager state changed to %v", connectivity.NMState(state))

				select {
				case updates <- connectivity.NMState(state):
				case <-ctx.Done():
					client.Cancel()
					return
				}
			case <-ctx.Done():
				client.Cancel()
				return
			}
		}
	}()

	return &Subscription{
		Initial: connectivity.NMState(state),
		Updates: updates,
		Cancel:  client.Cancel,
	}, nil
}
