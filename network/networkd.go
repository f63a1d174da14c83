package network

import (
	"context"
	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
	"github.com/the-lightning-land/connectivityd/connectivity"
	"github.com/the-lightning-land/connectivityd/network/networkd"
)

var _ Source = (*NetworkdSource)(nil)

type networkdManager interface {
	OperationalState() (string, error)
	OperationalStateChanged() (*networkd.OperationalStateClient, error)
}

type NetworkdConfig struct {
	Conn   *dbus.Conn
	Logger Logger
}

// NetworkdSource reports the operational state of systemd-networkd as
// connectivity.OperationalState values.
type NetworkdSource struct {
	log      Logger
	networkd networkdManager
}

func NewNetworkdSource(config *NetworkdConfig) *NetworkdSource {
	source := &NetworkdSource{}

	if config.Logger != nil {
		source.log = config.Logger
	} else {
		source.log = noopLogger{}
	}

	source.networkd = networkd.New(config.Conn, source.log)

	return source
}

func (s *NetworkdSource) Subscribe(ctx context.Context) (*Subscription, error) {
	client, err := s.networkd.OperationalStateChanged()
	if err != nil {
		return nil, errors.Errorf("could not subscribe to networkd state: %v", err)
	}

	state, err := s.networkd.OperationalState()
	if err != nil {
		client.Cancel()
		return nil, errors.Errorf("could not read networkd state: %v", err)
	}

	s.log.Infof("networkd operational state is %v", state)

	updates := make(chan connectivity.Raw)

	go func() {
		defer close(updates)

		for {
			select {
			case state, ok := <-client.OperationalState:
				if !ok {
					s.log.Infof("networkd state subscription ended")
					return
				}

				s.log.Debugf("networkd operational state changed to %v", state)

				select {
				case updates <- connectivity.OperationalState(state):
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
		Initial: connectivity.OperationalState(state),
		Updates: updates,
		Cancel:  client.Cancel,
	}, nil
}
