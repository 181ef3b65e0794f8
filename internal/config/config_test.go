package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wstap.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-tap
endpoint:
  url: wss://feed.example.com/stream
database:
  host: localhost
  port: 5432
  name: test_db
  user: testuser
  password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-tap" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-tap")
	}
	if cfg.Endpoint.URL != "wss://feed.example.com/stream" {
		t.Errorf("Endpoint.URL = %q, want %q", cfg.Endpoint.URL, "wss://feed.example.com/stream")
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "localhost")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
instance:
  id: test-tap
endpoint:
  url: wss://feed.example.com/stream
database:
  host: localhost
  name: test_db
  user: testuser
  password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Password != "secret123" {
		t.Errorf("Database.Password = %q, want %q", cfg.Database.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-tap
endpoint:
  url: wss://feed.example.com/stream
database:
  host: localhost
  name: test_db
  user: testuser
  password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Database.Port != DefaultDBPort {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, DefaultDBPort)
	}
	if cfg.Sink.Table != DefaultSinkTable {
		t.Errorf("Sink.Table = %q, want %q", cfg.Sink.Table, DefaultSinkTable)
	}
	if cfg.Sink.BatchSize != DefaultBatchSize {
		t.Errorf("Sink.BatchSize = %d, want %d", cfg.Sink.BatchSize, DefaultBatchSize)
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Metrics.Port = %d, want %d", cfg.Metrics.Port, DefaultMetricsPort)
	}
	if cfg.Metrics.Path != DefaultMetricsPath {
		t.Errorf("Metrics.Path = %q, want %q", cfg.Metrics.Path, DefaultMetricsPath)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *TapConfig {
		cfg := &TapConfig{}
		cfg.Instance.ID = "tap-1"
		cfg.Endpoint.URL = "wss://feed.example.com/stream"
		cfg.Database = DBConfig{
			Host: "localhost", Name: "db", User: "u", Password: "p",
			MaxConns: 10, MinConns: 2,
		}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*TapConfig)
		wantErr string
	}{
		{"valid", func(c *TapConfig) {}, ""},
		{"missing instance id", func(c *TapConfig) { c.Instance.ID = "" }, "instance.id"},
		{"missing endpoint", func(c *TapConfig) { c.Endpoint.URL = "" }, "endpoint.url"},
		{"non-ws endpoint", func(c *TapConfig) { c.Endpoint.URL = "https://feed.example.com" }, "ws://"},
		{"missing db host", func(c *TapConfig) { c.Database.Host = "" }, "database.host"},
		{"min over max conns", func(c *TapConfig) { c.Database.MinConns = 20 }, "min_conns"},
		{"bad metrics port", func(c *TapConfig) { c.Metrics.Port = 70000 }, "metrics.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate failed: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestRelayConfig_Manager(t *testing.T) {
	var off = false
	r := RelayConfig{
		AutoReconnect:  &off,
		ReconnectLimit: 3,
	}

	cfg := r.Manager()
	if cfg.AutoReconnect {
		t.Error("AutoReconnect = true, want false")
	}
	if cfg.ReconnectLimit != 3 {
		t.Errorf("ReconnectLimit = %d, want 3", cfg.ReconnectLimit)
	}
	// Untouched fields keep library defaults
	if cfg.HandshakeTimeout == 0 {
		t.Error("expected default HandshakeTimeout to be retained")
	}

	def := RelayConfig{}.Manager()
	if !def.AutoReconnect {
		t.Error("empty relay section must default AutoReconnect to true")
	}
	if def.ReconnectLimit != 5 {
		t.Errorf("default ReconnectLimit = %d, want 5", def.ReconnectLimit)
	}
}
