package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleTOML = `
version = "1.2.0"

[server]
name = "sortviz"
environment = "test"

[server.http]
port = 9090
read_timeout = "5s"

[log]
level = "debug"
output = "stdout"

[sort]
max_length = 200
default_length = 16

[sampler]
enabled = false
spec = "@every 1m"
length = 12
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	cfg := Default()
	if err := LoadFile(writeConfig(t, sampleTOML), cfg); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Version != "1.2.0" || cfg.Server.HTTP.Port != 9090 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Server.HTTP.ReadTimeout != 5*time.Second {
		t.Errorf("duration not decoded: %v", cfg.Server.HTTP.ReadTimeout)
	}
	if cfg.Sort.MaxLength != 200 || cfg.Sort.DefaultLength != 16 {
		t.Errorf("unexpected sort config: %+v", cfg.Sort)
	}
	if cfg.Sampler.Enabled || cfg.Sampler.Spec != "@every 1m" {
		t.Errorf("unexpected sampler config: %+v", cfg.Sampler)
	}
	// 文件未覆盖的字段保留默认值。
	if cfg.Cache.MaxSizeMB != 64 || cfg.Events.Path == "" {
		t.Errorf("defaults lost: %+v %+v", cfg.Cache, cfg.Events)
	}
}

func TestLoadFileEnvOverride(t *testing.T) {
	t.Setenv("APP_SORT_MAX_LENGTH", "42")

	cfg := Default()
	if err := LoadFile(writeConfig(t, sampleTOML), cfg); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Sort.MaxLength != 42 {
		t.Errorf("env override not applied: %d", cfg.Sort.MaxLength)
	}
}

func TestLoadFileValidation(t *testing.T) {
	body := `
[server]
name = "sortviz"
environment = "staging"

[server.http]
port = 8080
`
	cfg := Default()
	if err := LoadFile(writeConfig(t, body), cfg); err == nil {
		t.Fatalf("expected validation error for environment=staging")
	}
}

func TestLoadFileMissing(t *testing.T) {
	if err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"), Default()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestMask(t *testing.T) {
	m := map[string]any{
		"AuthToken": "abc",
		"nested":    map[string]any{"password": "p", "port": 1},
	}
	mask(m)
	if m["AuthToken"] != "******" {
		t.Errorf("token not masked: %v", m["AuthToken"])
	}
	nested := m["nested"].(map[string]any)
	if nested["password"] != "******" || nested["port"] != 1 {
		t.Errorf("unexpected nested mask result: %v", nested)
	}
}

func TestShippedConfigLoads(t *testing.T) {
	cfg := Default()
	if err := LoadFile(filepath.Join("..", "configs", "sortviz", "config.toml"), cfg); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Server.Name != "sortviz" || !cfg.RateLimit.Enabled || cfg.Sampler.Spec != "@every 30s" {
		t.Errorf("unexpected shipped config: %+v", cfg)
	}
}
