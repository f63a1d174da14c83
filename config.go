package main

import (
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/the-lightning-land/connectivityd/probe"
	"os"
	"time"
)

const (
	sourceNetworkManager = "networkmanager"
	sourceNetworkd       = "networkd"

	probeOn  = "on"
	probeOff = "off"
)

type probeConfig struct {
	Mode     string        `long:"mode" description:"Verify online states with a reachability probe; auto probes for networkd only" choice:"auto" choice:"on" choice:"off" default:"auto"`
	URL      string        `long:"url" description:"URL answering with 2xx and the expected content when the internet is reachable" default:"http://nmcheck.gnome.org/check_network_status.txt"`
	Expect   string        `long:"expect" description:"Content the probe URL answers with; empty accepts any 2xx answer to a HEAD request" default:"NetworkManager is online"`
	Interval time.Duration `long:"interval" description:"Time between two probes while the internet is not reachable" default:"5s"`
	Timeout  time.Duration `long:"timeout" description:"Timeout of a single probe" default:"5s"`
}

type apiConfig struct {
	Listen string `long:"listen" description:"Serve status, metrics and profiling on this address, e.g. localhost:9090"`
}

type config struct {
	ShowVersion  bool          `short:"v" long:"version" description:"Display version information and exit"`
	Debug        bool          `long:"debug" description:"Start in debug mode"`
	User         bool          `short:"u" long:"user" description:"Start targets in the user service manager instead of the system one"`
	Source       string        `long:"source" description:"Where connectivity states come from" choice:"networkmanager" choice:"networkd" default:"networkmanager"`
	CaptiveDelay time.Duration `long:"captive-delay" description:"Time a captive portal state has to persist before captive-portal.target is started" default:"10s"`
	OfflineDelay time.Duration `long:"offline-delay" description:"Time an offline state has to persist before offline.target is started, 0 starts it right away" default:"5s"`
	Probe        probeConfig   `group:"Probe" namespace:"probe"`
	Api          apiConfig     `group:"API" namespace:"api"`
}

// loadConfig parses the command line into a config with defaults applied.
func loadConfig() (*config, error) {
	return parseConfig(os.Args[1:], flags.Default)
}

func parseConfig(args []string, options flags.Options) (*config, error) {
	cfg := config{}

	parser := flags.NewParser(&cfg, options)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *config) validate() error {
	if c.CaptiveDelay < 0 {
		return errors.Errorf("captive delay must not be negative: %v", c.CaptiveDelay)
	}

	if c.OfflineDelay < 0 {
		return errors.Errorf("offline delay must not be negative: %v", c.OfflineDelay)
	}

	if c.Probe.Interval <= 0 {
		return errors.Errorf("probe interval must be positive: %v", c.Probe.Interval)
	}

	if c.Probe.Timeout <= 0 {
		return errors.Errorf("probe timeout must be positive: %v", c.Probe.Timeout)
	}

	if c.Probe.URL == "" {
		c.Probe.URL = probe.DefaultURL
	}

	return nil
}

// probing tells whether online states get verified by a probe.
func (c *config) probing() bool {
	switch c.Probe.Mode {
	case probeOn:
		return true
	case probeOff:
		return false
	default:
		return c.Source == sourceNetworkd
	}
}
