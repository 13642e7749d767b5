package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type sampleConfig struct {
	Addr    string        `default:":8000"`
	Timeout time.Duration `split_words:"true" default:"5s"`
	Token   string        `split_words:"true"`
}

func TestExportEnvironmentKeepsProcessValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "CFGTEST_TOKEN=from-file\nCFGTEST_ADDR=:9000\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("CFGTEST_ADDR", ":7000")
	t.Cleanup(func() { os.Unsetenv("CFGTEST_TOKEN") })

	if err := exportEnvironment(path); err != nil {
		t.Fatalf("exportEnvironment() error = %v", err)
	}
	if got := os.Getenv("CFGTEST_TOKEN"); got != "from-file" {
		t.Fatalf("expected token from file, got %q", got)
	}
	if got := os.Getenv("CFGTEST_ADDR"); got != ":7000" {
		t.Fatalf("process value must win, got %q", got)
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	t.Setenv("SAMPLE_TOKEN", "abc")

	conf, err := New[sampleConfig]("SAMPLE")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if conf.Addr != ":8000" || conf.Timeout != 5*time.Second || conf.Token != "abc" {
		t.Fatalf("unexpected config: %+v", conf)
	}
}

func TestNewReportsPrefixOnError(t *testing.T) {
	t.Setenv("BROKEN_TIMEOUT", "not-a-duration")

	if _, err := New[sampleConfig]("BROKEN"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestExportEnvironmentIfExistsIgnoresMissing(t *testing.T) {
	if err := exportEnvironmentIfExists(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("expected nil for missing file, got %v", err)
	}
}
