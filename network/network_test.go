package network

import (
	"context"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/the-lightning-land/connectivityd/connectivity"
	"github.com/the-lightning-land/connectivityd/network/networkd"
	"github.com/the-lightning-land/connectivityd/network/nm"
	"testing"
	"time"
)

type fakeNetworkManager struct {
	state     uint32
	stateErr  error
	changes   chan uint32
	cancelled chan struct{}
}

func newFakeNetworkManager(state uint32) *fakeNetworkManager {
	return &fakeNetworkManager{
		state:     state,
		changes:   make(chan uint32),
		cancelled: make(chan struct{}),
	}
}

func (f *fakeNetworkManager) State() (uint32, error) {
	return f.state, f.stateErr
}

func (f *fakeNetworkManager) StateChanged() (*nm.StateChangedClient, error) {
	return &nm.StateChangedClient{
		StateChanged: f.changes,
		Cancel: func() {
			close(f.cancelled)
		},
	}, nil
}

func receive(t *testing.T, updates <-chan connectivity.Raw) connectivity.Raw {
	t.Helper()

	select {
	case raw, ok := <-updates:
		require.True(t, ok, "updates closed unexpectedly")
		return raw
	case <-time.After(time.Second):
		require.FailNow(t, "timed out waiting for update")
		return nil
	}
}

func TestNetworkManagerSourceForwardsInOrder(t *testing.T) {
	fake := newFakeNetworkManager(20)
	source := &NetworkManagerSource{log: noopLogger{}, nm: fake}

	sub, err := source.Subscribe(context.Background())
	require.NoError(t, err)

	assert.Equal(t, connectivity.NMStateDisconnected, sub.Initial)

	go func() {
		fake.changes <- 40
		fake.changes <- 60
		fake.changes <- 70
		close(fake.changes)
	}()

	assert.Equal(t, connectivity.NMStateConnecting, receive(t, sub.Updates))
	assert.Equal(t, connectivity.NMStateConnectedSite, receive(t, sub.Updates))
	assert.Equal(t, connectivity.NMStateConnectedGlobal, receive(t, sub.Updates))

	_, ok := <-sub.Updates
	assert.False(t, ok)
}

func TestNetworkManagerSourceStateError(t *testing.T) {
	fake := newFakeNetworkManager(0)
	fake.stateErr = errors.New("no such name")
	source := &NetworkManagerSource{log: noopLogger{}, nm: fake}

	_, err := source.Subscribe(context.Background())
	require.Error(t, err)

	select {
	case <-fake.cancelled:
	default:
		t.Fatal("signal subscription was not cancelled")
	}
}

func TestNetworkManagerSourceContextCancel(t *testing.T) {
	fake := newFakeNetworkManager(70)
	source := &NetworkManagerSource{log: noopLogger{}, nm: fake}

	ctx, cancel := context.WithCancel(context.Background())

	sub, err := source.Subscribe(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-sub.Updates:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("updates not closed after context cancellation")
	}

	<-fake.cancelled
}

type fakeNetworkd struct {
	state   string
	changes chan string
}

func (f *fakeNetworkd) OperationalState() (string, error) {
	return f.state, nil
}

func (f *fakeNetworkd) OperationalStateChanged() (*networkd.OperationalStateClient, error) {
	return &networkd.OperationalStateClient{
		OperationalState: f.changes,
		Cancel:           func() {},
	}, nil
}

func TestNetworkdSourceForwardsInOrder(t *testing.T) {
	fake := &fakeNetworkd{state: "degraded", changes: make(chan string)}
	source := &NetworkdSource{log: noopLogger{}, networkd: fake}

	sub, err := source.Subscribe(context.Background())
	require.NoError(t, err)

	assert.Equal(t, connectivity.OperationalState("degraded"), sub.Initial)

	go func() {
		fake.changes <- "routable"
		fake.changes <- "no-carrier"
		close(fake.changes)
	}()

	assert.Equal(t, connectivity.OperationalState("routable"), receive(t, sub.Updates))
	assert.Equal(t, connectivity.OperationalState("no-carrier"), receive(t, sub.Updates))

	_, ok := <-sub.Updates
	assert.False(t, ok)
}
