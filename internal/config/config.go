// Package config loads monitor configuration from TOML or YAML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/chronologos/roomwatch/internal/client"
	"github.com/chronologos/roomwatch/internal/monitor"
)

const (
	DefaultHost = "broadcastlv.chat.bilibili.com"
	DefaultPort = 2243
)

var (
	ErrNoRooms       = errors.New("no rooms configured")
	ErrUnknownFormat = errors.New("unknown config file format")
	ErrInvalid       = errors.New("invalid config")
)

// Duration is a time.Duration written as a Go duration string ("30s").
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalYAML accepts the same duration strings as UnmarshalText.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// Room is one monitored room.
type Room struct {
	ID   int64        `toml:"id" yaml:"id"`
	Kind monitor.Kind `toml:"kind" yaml:"kind"`
	Area int          `toml:"area" yaml:"area"` // raffle only; 0 = any
}

type Server struct {
	Host string `toml:"host" yaml:"host"`
	Port int    `toml:"port" yaml:"port"`
}

type Timings struct {
	Heartbeat      Duration `toml:"heartbeat" yaml:"heartbeat"`
	Watchdog       Duration `toml:"watchdog" yaml:"watchdog"`
	IdleTimeout    Duration `toml:"idle_timeout" yaml:"idle_timeout"`
	DialTimeout    Duration `toml:"dial_timeout" yaml:"dial_timeout"`
	DialRetry      Duration `toml:"dial_retry" yaml:"dial_retry"`
	ReconnectDelay Duration `toml:"reconnect_delay" yaml:"reconnect_delay"`
}

type Log struct {
	Level string `toml:"level" yaml:"level"`
	Color *bool  `toml:"color" yaml:"color"` // unset = detect terminal
}

// Config is the whole file.
type Config struct {
	Server      Server  `toml:"server" yaml:"server"`
	UID         int64   `toml:"uid" yaml:"uid"`
	Rooms       []Room  `toml:"rooms" yaml:"rooms"`
	Timings     Timings `toml:"timings" yaml:"timings"`
	Log         Log     `toml:"log" yaml:"log"`
	MetricsAddr string  `toml:"metrics_addr" yaml:"metrics_addr"`
}

// Default returns a config with every default filled in and no rooms.
func Default() Config {
	return Config{
		Server: Server{Host: DefaultHost, Port: DefaultPort},
		Timings: Timings{
			Heartbeat:   Duration(30 * time.Second),
			Watchdog:    Duration(45 * time.Second),
			IdleTimeout: Duration(35 * time.Second),
			DialTimeout: Duration(10 * time.Second),
			DialRetry:   Duration(1 * time.Second),
		},
		Log: Log{Level: "info"},
	}
}

// Load reads path, picking the decoder by extension (.toml, .yaml, .yml).
// Values missing from the file keep their defaults.
func Load(path string) (Config, error) {
	//nolint:gosec // path comes from the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the config is usable.
func (c Config) Validate() error {
	if c.Server.Host == "" {
		return fmt.Errorf("%w: server host is empty", ErrInvalid)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalid, c.Server.Port)
	}
	if len(c.Rooms) == 0 {
		return ErrNoRooms
	}
	seen := make(map[int64]bool, len(c.Rooms))
	for _, r := range c.Rooms {
		if r.ID <= 0 {
			return fmt.Errorf("%w: room id %d", ErrInvalid, r.ID)
		}
		if seen[r.ID] {
			return fmt.Errorf("%w: room %d listed twice", ErrInvalid, r.ID)
		}
		seen[r.ID] = true
		switch r.Kind {
		case monitor.KindGuard, monitor.KindRaffle:
		default:
			return fmt.Errorf("%w: room %d: %w: %q", ErrInvalid, r.ID, monitor.ErrUnknownKind, r.Kind)
		}
		if r.Area < 0 {
			return fmt.Errorf("%w: room %d: negative area", ErrInvalid, r.ID)
		}
	}
	t := c.Timings
	for name, d := range map[string]Duration{
		"heartbeat":    t.Heartbeat,
		"watchdog":     t.Watchdog,
		"idle_timeout": t.IdleTimeout,
		"dial_timeout": t.DialTimeout,
		"dial_retry":   t.DialRetry,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: timings.%s must be positive", ErrInvalid, name)
		}
	}
	if t.ReconnectDelay < 0 {
		return fmt.Errorf("%w: timings.reconnect_delay is negative", ErrInvalid)
	}
	return nil
}

// ClientConfig builds the client configuration for one room.
func (c Config) ClientConfig(room Room) client.Config {
	return client.Config{
		Host:              c.Server.Host,
		Port:              c.Server.Port,
		RoomID:            room.ID,
		UID:               c.UID,
		HeartbeatInterval: time.Duration(c.Timings.Heartbeat),
		WatchdogInterval:  time.Duration(c.Timings.Watchdog),
		IdleTimeout:       time.Duration(c.Timings.IdleTimeout),
		DialTimeout:       time.Duration(c.Timings.DialTimeout),
		DialRetryDelay:    time.Duration(c.Timings.DialRetry),
		ReconnectDelay:    time.Duration(c.Timings.ReconnectDelay),
	}
}
