package network

import (
	"context"
	"github.com/the-lightning-land/connectivityd/connectivity"
)

// Subscription delivers the state at subscription time followed by every
// later change in the order the source reported it. Updates is closed
// when the source goes away or after Cancel.
type Subscription struct {
	Initial connectivity.Raw
	Updates <-chan connectivity.Raw
	Cancel  func()
}

// Source reports the connectivity state of the host. Subscribe fails if
// the state can not be followed.
type Source interface {
	Subscribe(ctx context.Context) (*Subscription, error)
}
