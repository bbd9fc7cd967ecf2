package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type daemonConfig struct {
	Device            string
	Baud              int
	Attempts          int
	ReplyTimeout      time.Duration
	MaxPayload        int
	PollInterval      time.Duration
	ProbeInterval     time.Duration
	Broker            string
	TelemetryInterval time.Duration
}

type fileConfig struct {
	Device            string `toml:"device"`
	Baud              int    `toml:"baud"`
	Attempts          int    `toml:"attempts"`
	ReplyTimeout      string `toml:"reply_timeout"`
	MaxPayload        int    `toml:"max_frame_payload"`
	PollInterval      string `toml:"poll_interval"`
	ProbeInterval     string `toml:"probe_interval"`
	Broker            string `toml:"broker"`
	TelemetryInterval string `toml:"telemetry_interval"`
}

func defaultConfig() daemonConfig {
	return daemonConfig{
		Device:            "/dev/ttyUSB0",
		Baud:              115200,
		Attempts:          3,
		ReplyTimeout:      200 * time.Millisecond,
		MaxPayload:        128,
		PollInterval:      10 * time.Millisecond,
		ProbeInterval:     time.Second,
		TelemetryInterval: time.Second,
	}
}

// loadConfig reads a TOML file and merges defined keys over the defaults.
// An empty path returns the defaults.
func loadConfig(path string) (daemonConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return daemonConfig{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("device") {
		cfg.Device = strings.TrimSpace(raw.Device)
	}
	if meta.IsDefined("baud") {
		cfg.Baud = raw.Baud
	}
	if meta.IsDefined("attempts") {
		cfg.Attempts = raw.Attempts
	}
	if meta.IsDefined("max_frame_payload") {
		cfg.MaxPayload = raw.MaxPayload
	}
	if meta.IsDefined("broker") {
		cfg.Broker = strings.TrimSpace(raw.Broker)
	}

	durations := []struct {
		key string
		in  string
		out *time.Duration
	}{
		{key: "reply_timeout", in: raw.ReplyTimeout, out: &cfg.ReplyTimeout},
		{key: "poll_interval", in: raw.PollInterval, out: &cfg.PollInterval},
		{key: "probe_interval", in: raw.ProbeInterval, out: &cfg.ProbeInterval},
		{key: "telemetry_interval", in: raw.TelemetryInterval, out: &cfg.TelemetryInterval},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.in))
		if err != nil {
			return daemonConfig{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.out = v
	}

	if cfg.Device == "" {
		return daemonConfig{}, fmt.Errorf("device must not be empty")
	}
	if cfg.Baud <= 0 {
		return daemonConfig{}, fmt.Errorf("baud must be positive, got %d", cfg.Baud)
	}
	return cfg, nil
}
