// Package config handles TOML configuration parsing for raddaemon.
//
// Per spec.md §1 Non-goals ("Configuration-file parsing beyond naming the
// settings consumed"), the schema here is intentionally shallow: it names
// exactly the keys spec.md §6 lists, plus the minimal ambient knobs
// (log level, metrics listener, account file path) needed to run the
// binaries in SPEC_FULL.md §12. No nested hot-reloadable subsystem
// configuration of the kind the teacher's DHCP config carries.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ClientConfig is the configuration surface of the client transport pool
// (spec.md §4.2, §6).
type ClientConfig struct {
	Servers          []string `toml:"servers"`
	Secret           string   `toml:"secret"`
	NetworkBinding   string   `toml:"network_binding"`
	SocketBuffer     int      `toml:"socket_buffer"`
	RetryInterval    string   `toml:"retry_interval"`
	BkTaskInterval   string   `toml:"bk_task_interval"`
	MaxTransmissions int      `toml:"max_transmissions"`
	PortCount        int      `toml:"port_count"`
	RealmFormat      string   `toml:"realm_format"`

	LogLevel string `toml:"log_level"`
}

// DeviceEntry is one line of the `Devices[i]=host;secret` server setting:
// a NAS host (name or IP literal) and the shared secret it authenticates with.
type DeviceEntry struct {
	Host   string
	Secret string
}

// ServerConfig is the configuration surface of the server dispatcher
// (spec.md §4.3, §6).
type ServerConfig struct {
	NetworkBinding     string   `toml:"network_binding"`
	SocketBuffer       int      `toml:"socket_buffer"`
	BkTaskInterval     string   `toml:"bk_task_interval"`
	DnsRefreshInterval string   `toml:"dns_refresh_interval"`
	RealmFormat        string   `toml:"realm_format"`
	DefaultSecret      string   `toml:"default_secret"`
	Devices            []string `toml:"devices"`

	AccountFile       string `toml:"account_file"`
	AccountFileHashed bool   `toml:"account_file_hashed"`
	LogLevel          string `toml:"log_level"`
	MetricsListen     string `toml:"metrics_listen"`
}

// ClientDefaults mirrors spec.md §6's default table.
func ClientDefaults() ClientConfig {
	return ClientConfig{
		PortCount:        4,
		MaxTransmissions: 4,
		RetryInterval:    "10s",
		BkTaskInterval:   "1s",
		RealmFormat:      "email",
		SocketBuffer:     32768,
		LogLevel:         "info",
	}
}

// ServerDefaults mirrors spec.md §6's default table.
func ServerDefaults() ServerConfig {
	return ServerConfig{
		NetworkBinding:     "0.0.0.0:1812",
		SocketBuffer:       131072,
		BkTaskInterval:     "60s",
		DnsRefreshInterval: "15m",
		RealmFormat:        "email",
		LogLevel:           "info",
	}
}

// LoadClientConfig decodes a TOML file into a ClientConfig seeded with defaults.
func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := ClientDefaults()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("loading client config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadServerConfig decodes a TOML file into a ServerConfig seeded with defaults.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := ServerDefaults()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("loading server config %s: %w", path, err)
	}
	return cfg, nil
}

// RetryIntervalDuration parses RetryInterval, falling back to the spec default.
func (c ClientConfig) RetryIntervalDuration() time.Duration {
	return parseDurationOr(c.RetryInterval, 10*time.Second)
}

// BkTaskIntervalDuration parses BkTaskInterval, falling back to the spec default.
func (c ClientConfig) BkTaskIntervalDuration() time.Duration {
	return parseDurationOr(c.BkTaskInterval, time.Second)
}

// BkTaskIntervalDuration parses BkTaskInterval, falling back to the spec default.
func (c ServerConfig) BkTaskIntervalDuration() time.Duration {
	return parseDurationOr(c.BkTaskInterval, 60*time.Second)
}

// DnsRefreshIntervalDuration parses DnsRefreshInterval, falling back to the spec default.
func (c ServerConfig) DnsRefreshIntervalDuration() time.Duration {
	return parseDurationOr(c.DnsRefreshInterval, 15*time.Minute)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// ParseDevices decodes the `host;secret` device lines into DeviceEntry values.
func ParseDevices(lines []string) ([]DeviceEntry, error) {
	entries := make([]DeviceEntry, 0, len(lines))
	for i, line := range lines {
		parts := strings.SplitN(line, ";", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("devices[%d]: expected \"host;secret\", got %q", i, line)
		}
		entries = append(entries, DeviceEntry{
			Host:   strings.TrimSpace(parts[0]),
			Secret: strings.TrimSpace(parts[1]),
		})
	}
	return entries, nil
}
