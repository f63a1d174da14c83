package main

import (
	"context"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/godbus/dbus/v5"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/the-lightning-land/connectivityd/api"
	"github.com/the-lightning-land/connectivityd/dispatcher"
	"github.com/the-lightning-land/connectivityd/metrics"
	"github.com/the-lightning-land/connectivityd/network"
	"github.com/the-lightning-land/connectivityd/probe"
	"github.com/the-lightning-land/connectivityd/target"
	"golang.org/x/sync/errgroup"
	"net"
	"os"
	"os/signal"
	"syscall"
)

var (
	// commit stores the current commit hash of this build. This should be set using -ldflags during compilation.
	Commit string
	// version stores the version string of this build. This should be set using -ldflags during compilation.
	Version string
	// date stores the date of this build. This should be set using -ldflags during compilation.
	Date string
)

// connectivitydMain is the true entry point for connectivityd. This is required since defers
// created in the top-level scope of a main method aren't executed if os.Exit() is called.
func connectivitydMain() error {
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)

	// Load CLI configuration and defaults
	cfg, err := loadConfig()
	if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
		return nil
	} else if err != nil {
		return errors.Errorf("Failed parsing arguments: %v", err)
	}

	// Set logger into debug mode if called with --debug
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
		log.Info("Setting debug mode.")
	}

	log.Debug("Loaded config.")

	// Print version of the daemon
	log.Infof("Version %s (commit %s)", Version, Commit)
	log.Infof("Built on %s", Date)

	// Stop here if only version was requested
	if cfg.ShowVersion {
		return nil
	}

	// SIGINT and SIGTERM end the daemon gracefully
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// NetworkManager and networkd always live on the system bus
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return errors.Errorf("Could not connect to system bus: %v", err)
	}

	defer func() {
		err := conn.Close()
		if err != nil {
			log.Errorf("Could not close system bus connection: %v", err)
		}
	}()

	var source network.Source

	switch cfg.Source {
	case sourceNetworkManager:
		source = network.NewNetworkManagerSource(&network.NetworkManagerConfig{
			Conn:   conn,
			Logger: log.WithField("system", "networkmanager"),
		})

		log.Info("Created NetworkManager source.")
	case sourceNetworkd:
		source = network.NewNetworkdSource(&network.NetworkdConfig{
			Conn:   conn,
			Logger: log.WithField("system", "networkd"),
		})

		log.Info("Created networkd source.")
	default:
		return errors.Errorf("Unknown source type %v", cfg.Source)
	}

	activator, err := target.NewSystemdActivator(ctx, &target.SystemdConfig{
		User:   cfg.User,
		Logger: log.WithField("system", "target"),
	})
	if err != nil {
		return errors.Errorf("Could not create target activator: %v", err)
	}

	defer activator.Close()

	if cfg.User {
		log.Info("Connected to user service manager.")
	} else {
		log.Info("Connected to system service manager.")
	}

	// The prober is left nil when online states are trusted as reported
	var prober dispatcher.Prober

	if cfg.probing() {
		httpProber, err := probe.NewHTTPProber(&probe.Config{
			URL:     cfg.Probe.URL,
			Timeout: cfg.Probe.Timeout,
			Expect:  cfg.Probe.Expect,
			Logger:  log.WithField("system", "probe"),
		})
		if err != nil {
			return errors.Errorf("Could not create prober: %v", err)
		}

		prober = httpProber

		log.Infof("Verifying online states with %v", cfg.Probe.URL)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	d := dispatcher.New(&dispatcher.Config{
		Source:    source,
		Activator: activator,
		Prober:    prober,
		Delays: dispatcher.Delays{
			CaptivePortal: cfg.CaptiveDelay,
			Offline:       cfg.OfflineDelay,
			ProbeInterval: cfg.Probe.Interval,
		},
		Metrics: metrics.New(registry),
		Ready:   notifyReady,
		Logger:  log.WithField("system", "dispatcher"),
	})

	log.Info("Created dispatcher.")

	var lis net.Listener

	if cfg.Api.Listen != "" {
		lis, err = net.Listen("tcp", cfg.Api.Listen)
		if err != nil {
			return errors.Errorf("Could not listen on %v: %v", cfg.Api.Listen, err)
		}
	}

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()

	g, gctx := errgroup.WithContext(runCtx)

	// blocks until the source goes away, the daemon is stopped or an
	// activation fails
	g.Go(func() error {
		defer runCancel()

		err := d.Run(gctx)
		if err != nil {
			return errors.Errorf("Failed running dispatcher: %v", err)
		}

		return nil
	})

	if lis != nil {
		a := api.New(&api.Config{
			Gatherer: registry,
			Version:  Version,
			Commit:   Commit,
			Source:   cfg.Source,
			Log:      log.WithField("system", "api"),
		})

		log.Infof("Serving API on %v", lis.Addr())

		g.Go(func() error {
			return a.Serve(lis)
		})

		g.Go(func() error {
			<-gctx.Done()
			return a.Close()
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("Stopped dispatcher.")

	// finish with no error
	return nil
}

// notifyReady tells systemd that the daemon is up, if it runs as a
// Type=notify service.
func notifyReady() {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		log.Warnf("Could not notify systemd about readiness: %v", err)
	} else if sent {
		log.Debug("Notified systemd about readiness.")
	}
}

func main() {
	// Call the "real" main in a nested manner so the defers will properly
	// be executed in the case of a graceful shutdown.
	if err := connectivitydMain(); err != nil {
		log.WithError(err).Println("Failed running connectivityd.")
		os.Exit(1)
	}
}
