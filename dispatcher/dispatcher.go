package dispatcher

import (
	"context"
	"github.com/benbjohnson/clock"
	"github.com/go-errors/errors"
	"github.com/the-lightning-land/connectivityd/connectivity"
	"github.com/the-lightning-land/connectivityd/metrics"
	"github.com/the-lightning-land/connectivityd/network"
	"github.com/the-lightning-land/connectivityd/target"
	"time"
)

// Activator switches the service manager into a target. Starting the
// same target repeatedly must be harmless.
type Activator interface {
	Activate(ctx context.Context, target string) (int, error)
}

// Prober verifies that the internet is actually reachable.
type Prober interface {
	Probe(ctx context.Context) bool
}

// Delays configures how long a state has to hold before its target is
// started.
type Delays struct {
	// CaptivePortal is waited out before the captive portal target is
	// started.
	CaptivePortal time.Duration
	// Offline is waited out before the offline target is started. Zero
	// starts it right away.
	Offline time.Duration
	// ProbeInterval separates two reachability probes.
	ProbeInterval time.Duration
}

// Config holds the dependencies of a Dispatcher. Clock, Metrics, Ready and
// Logger may be left empty.
type Config struct {
	Source    network.Source
	Activator Activator
	// Prober is optional. Without it an online state is trusted as is.
	Prober  Prober
	Delays  Delays
	Clock   clock.Clock
	Metrics *metrics.Metrics
	// Ready is called once the source subscription is established.
	Ready  func()
	Logger Logger
}

// Dispatcher starts one target per connectivity state. Every state gets a
// pending action that waits out its delay or verifies reachability before
// activating its target. A different state arriving in the meantime
// cancels the pending action.
type Dispatcher struct {
	log       Logger
	source    network.Source
	activator Activator
	prober    Prober
	delays    Delays
	clock     clock.Clock
	metrics   *metrics.Metrics
	ready     func()
}

func New(config *Config) *Dispatcher {
	dispatcher := &Dispatcher{
		source:    config.Source,
		activator: config.Activator,
		prober:    config.Prober,
		delays:    config.Delays,
		clock:     config.Clock,
		metrics:   config.Metrics,
		ready:     config.Ready,
	}

	if config.Logger != nil {
		dispatcher.log = config.Logger
	} else {
		dispatcher.log = noopLogger{}
	}

	if dispatcher.clock == nil {
		dispatcher.clock = clock.New()
	}

	return dispatcher
}

// Run follows the source until its subscription ends or ctx is done, in
// both cases returning nil. A failed activation is returned as error.
func (d *Dispatcher) Run(ctx context.Context) error {
	sub, err := d.source.Subscribe(ctx)
	if err != nil {
		return errors.Errorf("could not subscribe to connectivity source: %v", err)
	}
	defer sub.Cancel()

	if d.ready != nil {
		d.ready()
	}

	var (
		current connectivity.State
		adopted bool
		pending *action
	)

	if state, ok := sub.Initial.Normalize(); ok {
		d.log.Infof("Connectivity is %v", state)

		current, adopted = state, true
		pending = d.start(ctx, state)
	} else {
		d.log.Infof("Ignoring initial state %v", sub.Initial)
	}

	for {
		// nil while nothing is pending, which blocks that case
		var done <-chan struct{}
		if pending != nil {
			done = pending.done
		}

		select {
		case raw, ok := <-sub.Updates:
			if !ok {
				d.log.Infof("Connectivity source went away")
				return pending.stop()
			}

			state, ok := raw.Normalize()
			if !ok {
				d.log.Debugf("Ignoring state %v", raw)
				continue
			}

			if adopted && state == current {
				d.log.Debugf("Connectivity is still %v", state)
				continue
			}

			if pending != nil {
				select {
				case <-pending.done:
				default:
					d.log.Infof("Cancelling pending %v action", pending.state)
					d.metrics.Preempted()
				}

				if err := pending.stop(); err != nil {
					return err
				}
			}

			d.log.Infof("Connectivity changed to %v", state)

			current, adopted = state, true
			pending = d.start(ctx, state)
		case <-done:
			err := pending.stop()
			pending = nil

			if err != nil {
				return err
			}
		case <-ctx.Done():
			return pending.stop()
		}
	}
}

func (d *Dispatcher) start(ctx context.Context, state connectivity.State) *action {
	d.metrics.StateChanged(state)

	actionCtx, cancel := context.WithCancel(ctx)

	a := &action{
		state:  state,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(a.done)
		a.err = d.act(actionCtx, state)
	}()

	return a
}

func (d *Dispatcher) act(ctx context.Context, state connectivity.State) error {
	switch state {
	case connectivity.Online:
		if d.prober == nil {
			return d.activate(ctx, target.Online)
		}

		return d.verifyOnline(ctx)
	case connectivity.CaptivePortal:
		if !d.wait(ctx, d.delays.CaptivePortal) {
			return nil
		}

		return d.activate(ctx, target.CaptivePortal)
	case connectivity.Offline:
		if !d.wait(ctx, d.delays.Offline) {
			return nil
		}

		return d.activate(ctx, target.Offline)
	default:
		return errors.Errorf("unknown connectivity state %v", state)
	}
}

// verifyOnline probes until the internet is reachable. The captive portal
// target is started after the first failed probe and the online target
// once a probe succeeds.
func (d *Dispatcher) verifyOnline(ctx context.Context) error {
	failures := 0

	for {
		ok := d.prober.Probe(ctx)
		if ctx.Err() != nil {
			return nil
		}

		d.metrics.Probed(ok)

		if ok {
			if failures > 0 {
				d.log.Infof("Internet reachable after %v failed probes", failures)
			}

			return d.activate(ctx, target.Online)
		}

		failures++

		d.log.Infof("Internet not reachable yet (%v failed probes)", failures)

		if failures == 1 {
			if err := d.activate(ctx, target.CaptivePortal); err != nil {
				return err
			}
		}

		if !d.wait(ctx, d.delays.ProbeInterval) {
			return nil
		}
	}
}

// wait returns false if ctx was cancelled before the delay elapsed.
func (d *Dispatcher) wait(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}

	timer := d.clock.Timer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return ctx.Err() == nil
	}
}

// activate is the commit point of an action. The call itself is never
// cancelled, only what comes before it.
func (d *Dispatcher) activate(ctx context.Context, name string) error {
	_, err := d.activator.Activate(context.WithoutCancel(ctx), name)
	if err != nil {
		return errors.Errorf("could not activate %v: %v", name, err)
	}

	d.metrics.Activated(name)

	return nil
}

type action struct {
	state  connectivity.State
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// stop cancels the action and waits for it to return. An activation that
// was already issued runs to completion and its error is returned.
func (a *action) stop() error {
	if a == nil {
		return nil
	}

	a.cancel()
	<-a.done

	return a.err
}
