package generate

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "codegen.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
word-size = 32
alloc-routine = "malloc"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.WordSize != 32 {
		t.Errorf("WordSize = %d, want 32", cfg.WordSize)
	}
	if cfg.AllocRoutine != "malloc" {
		t.Errorf("AllocRoutine = %q, want %q", cfg.AllocRoutine, "malloc")
	}
	// Unset options keep their defaults.
	if cfg.FreeRoutine != DefaultConfig().FreeRoutine {
		t.Errorf("FreeRoutine = %q, want the default", cfg.FreeRoutine)
	}
}

func TestLoadConfigBadWordSize(t *testing.T) {
	path := writeConfig(t, "word-size = 48\n")
	if _, err := LoadConfig(path); err == nil {
		t.Error("48-bit word size accepted")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("missing config file accepted")
	}
}
