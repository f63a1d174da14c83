package main

import (
	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	cfg, err := parseConfig([]string{}, flags.HelpFlag)
	require.NoError(t, err)

	assert.False(t, cfg.User)
	assert.Equal(t, sourceNetworkManager, cfg.Source)
	assert.Equal(t, 10*time.Second, cfg.CaptiveDelay)
	assert.Equal(t, 5*time.Second, cfg.OfflineDelay)
	assert.Equal(t, "auto", cfg.Probe.Mode)
	assert.Equal(t, 5*time.Second, cfg.Probe.Interval)
	assert.Equal(t, 5*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, "http://nmcheck.gnome.org/check_network_status.txt", cfg.Probe.URL)
	assert.Equal(t, "NetworkManager is online", cfg.Probe.Expect)
	assert.Empty(t, cfg.Api.Listen)
	assert.False(t, cfg.probing())
}

func TestConfigFlags(t *testing.T) {
	cfg, err := parseConfig([]string{
		"--user",
		"--source=networkd",
		"--captive-delay=30s",
		"--offline-delay=0s",
		"--probe.interval=2s",
		"--probe.expect=",
		"--api.listen=localhost:9090",
	}, flags.HelpFlag)
	require.NoError(t, err)

	assert.True(t, cfg.User)
	assert.Equal(t, sourceNetworkd, cfg.Source)
	assert.Equal(t, 30*time.Second, cfg.CaptiveDelay)
	assert.Equal(t, time.Duration(0), cfg.OfflineDelay)
	assert.Equal(t, 2*time.Second, cfg.Probe.Interval)
	assert.Empty(t, cfg.Probe.Expect)
	assert.Equal(t, "localhost:9090", cfg.Api.Listen)
	assert.True(t, cfg.probing())
}

func TestConfigProbeMode(t *testing.T) {
	tests := []struct {
		args    []string
		probing bool
	}{
		{[]string{"--source=networkmanager"}, false},
		{[]string{"--source=networkd"}, true},
		{[]string{"--source=networkmanager", "--probe.mode=on"}, true},
		{[]string{"--source=networkd", "--probe.mode=off"}, false},
	}

	for _, tt := range tests {
		cfg, err := parseConfig(tt.args, flags.HelpFlag)
		require.NoError(t, err, "%v", tt.args)
		assert.Equal(t, tt.probing, cfg.probing(), "%v", tt.args)
	}
}

func TestConfigInvalid(t *testing.T) {
	tests := [][]string{
		{"--source=wicd"},
		{"--captive-delay=-1s"},
		{"--offline-delay=-5s"},
		{"--probe.interval=0s"},
		{"--probe.timeout=0s"},
		{"--probe.mode=sometimes"},
	}

	for _, args := range tests {
		_, err := parseConfig(args, flags.HelpFlag)
		assert.Error(t, err, "%v", args)
	}
}

func TestConfigHelp(t *testing.T) {
	_, err := parseConfig([]string{"--help"}, flags.HelpFlag)

	e, ok := err.(*flags.Error)
	require.True(t, ok)
	assert.Equal(t, flags.ErrHelp, e.Type)
}
