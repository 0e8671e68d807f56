package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/datasage/datasage/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != config.DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port, config.DefaultPort)
	}
	if cfg.Model != config.DefaultModel {
		t.Errorf("Model = %q, want %q", cfg.Model, config.DefaultModel)
	}
	if cfg.RowLimitCeiling != config.DefaultRowLimitCeiling {
		t.Errorf("RowLimitCeiling = %d, want %d", cfg.RowLimitCeiling, config.DefaultRowLimitCeiling)
	}
	if !cfg.EnableDataMasking {
		t.Error("data masking should default on")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATASAGE_PORT", "9100")
	t.Setenv("DATASAGE_MODEL", "claude-haiku-4-5")
	t.Setenv("DATASAGE_ROW_LIMIT", "250")
	t.Setenv("DATASAGE_API_KEYS", "k1,k2")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9100 {
		t.Errorf("Port = %d, want 9100", cfg.Port)
	}
	if cfg.Model != "claude-haiku-4-5" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.RowLimitCeiling != 250 {
		t.Errorf("RowLimitCeiling = %d, want 250", cfg.RowLimitCeiling)
	}
	if len(cfg.APIKeys) != 2 || cfg.APIKeys[1] != "k2" {
		t.Errorf("APIKeys = %v", cfg.APIKeys)
	}
}

func TestLoadJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"port": 9200, "exec_timeout_ms": 5000, "enable_auth": false}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DATASAGE_CONFIG", path)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9200 {
		t.Errorf("Port = %d, want 9200", cfg.Port)
	}
	if cfg.ExecTimeoutMs != 5000 {
		t.Errorf("ExecTimeoutMs = %d, want 5000", cfg.ExecTimeoutMs)
	}
	if cfg.EnableAuth {
		t.Error("enable_auth false in file should apply")
	}
}

func TestEnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"port": 9200}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DATASAGE_CONFIG", path)
	t.Setenv("DATASAGE_PORT", "9300")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9300 {
		t.Errorf("Port = %d, environment should override the file", cfg.Port)
	}
}
