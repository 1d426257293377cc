package configuration

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadParsesSectionsAndTypes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "isb.cfg")
	content := "; comment\n[Engine]\ntick_limit = 100000\nnumber_precision = 28\n\n[Logging]\nenabled = true\nlevel = DEBUG\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.GetInt("Engine", "tick_limit", 0); got != 100000 {
		t.Fatalf("want tick_limit=100000, got %d", got)
	}
	if got := cfg.GetBool("Logging", "enabled", false); !got {
		t.Fatalf("want enabled=true")
	}
	if got := cfg.GetString("Logging", "level", ""); got != "DEBUG" {
		t.Fatalf("want level=DEBUG, got %q", got)
	}
}

func TestLoadMissingFileReturnsEmptyConfig(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.cfg"))
	if err != nil {
		t.Fatalf("Load on missing file should not error, got %v", err)
	}
	if got := cfg.GetInt("Engine", "tick_limit", 42); got != 42 {
		t.Fatalf("want default 42, got %d", got)
	}
}

func TestGetIntFallsBackOnUnparseableValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "isb.cfg")
	os.WriteFile(path, []byte("[Engine]\ntick_limit = not-a-number\n"), 0644)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.GetInt("Engine", "tick_limit", 7); got != 7 {
		t.Fatalf("want fallback default 7, got %d", got)
	}
}
