package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestClientDefaults(t *testing.T) {
	cfg := ClientDefaults()
	if cfg.PortCount != 4 {
		t.Errorf("PortCount = %d, want 4", cfg.PortCount)
	}
	if cfg.MaxTransmissions != 4 {
		t.Errorf("MaxTransmissions = %d, want 4", cfg.MaxTransmissions)
	}
	if cfg.RetryIntervalDuration() != 10*time.Second {
		t.Errorf("RetryIntervalDuration() = %v, want 10s", cfg.RetryIntervalDuration())
	}
	if cfg.RealmFormat != "email" {
		t.Errorf("RealmFormat = %q, want %q", cfg.RealmFormat, "email")
	}
}

func TestServerDefaults(t *testing.T) {
	cfg := ServerDefaults()
	if cfg.NetworkBinding != "0.0.0.0:1812" {
		t.Errorf("NetworkBinding = %q, want %q", cfg.NetworkBinding, "0.0.0.0:1812")
	}
	if cfg.DnsRefreshIntervalDuration() != 15*time.Minute {
		t.Errorf("DnsRefreshIntervalDuration() = %v, want 15m", cfg.DnsRefreshIntervalDuration())
	}
}

func TestLoadClientConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.toml")
	contents := `
servers = ["radius1:1812", "radius2:1812"]
secret = "topsecret"
port_count = 8
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	cfg, err := LoadClientConfig(path)
	if err != nil {
		t.Fatalf("LoadClientConfig error: %v", err)
	}
	if len(cfg.Servers) != 2 || cfg.Servers[0] != "radius1:1812" {
		t.Errorf("Servers = %v", cfg.Servers)
	}
	if cfg.Secret != "topsecret" {
		t.Errorf("Secret = %q", cfg.Secret)
	}
	if cfg.PortCount != 8 {
		t.Errorf("PortCount = %d, want 8 (explicit override)", cfg.PortCount)
	}
	// Unset keys keep their default.
	if cfg.MaxTransmissions != 4 {
		t.Errorf("MaxTransmissions = %d, want 4 (unset, should keep default)", cfg.MaxTransmissions)
	}
}

func TestLoadClientConfigMissingFile(t *testing.T) {
	if _, err := LoadClientConfig("/nonexistent/path.toml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestParseDevices(t *testing.T) {
	entries, err := ParseDevices([]string{"nas1.example.com;secretA", " 10.0.0.5 ; secretB "})
	if err != nil {
		t.Fatalf("ParseDevices error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[1].Host != "10.0.0.5" || entries[1].Secret != "secretB" {
		t.Errorf("entries[1] = %+v", entries[1])
	}
}

func TestParseDevicesRejectsMissingSecret(t *testing.T) {
	if _, err := ParseDevices([]string{"justahost"}); err == nil {
		t.Error("expected error for device line without a secret")
	}
}
