package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type sampleConfig struct {
	Addr        string        `split_words:"true" default:":8080"`
	MaxRounds   int           `split_words:"true" default:"5"`
	ToolTimeout time.Duration `split_words:"true" default:"10s"`
	Token       string        `split_words:"true" required:"true"`
}

func TestProcessAppliesDefaultsAndPrefix(t *testing.T) {
	t.Setenv("SAMPLE_TOKEN", "secret")
	t.Setenv("SAMPLE_MAX_ROUNDS", "7")

	conf, err := Process[sampleConfig]("SAMPLE")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if conf.Addr != ":8080" {
		t.Fatalf("Addr = %q, want default", conf.Addr)
	}
	if conf.MaxRounds != 7 {
		t.Fatalf("MaxRounds = %d, want 7", conf.MaxRounds)
	}
	if conf.ToolTimeout != 10*time.Second {
		t.Fatalf("ToolTimeout = %s, want 10s", conf.ToolTimeout)
	}
}

func TestProcessMissingRequired(t *testing.T) {
	t.Setenv("MISSING_TOKEN", "")
	os.Unsetenv("MISSING_TOKEN")

	if _, err := Process[sampleConfig]("MISSING"); err == nil {
		t.Fatal("expected error for missing required token")
	}
}

func TestLoadFileExportsKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("FILECFG_TOKEN=from-file\nFILECFG_ADDR=:9090\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("FILECFG_TOKEN", "")
	t.Setenv("FILECFG_ADDR", "")

	if err := LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	conf, err := Process[sampleConfig]("FILECFG")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if conf.Token != "from-file" || conf.Addr != ":9090" {
		t.Fatalf("unexpected config: %+v", conf)
	}
}
