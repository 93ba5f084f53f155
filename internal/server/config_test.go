package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iwvelando/loan-eir/pkg/constants"
)

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Address != constants.DefaultServerAddress {
		t.Fatalf("expected default address, got %q", cfg.Address)
	}
	if cfg.RequestSizeBytes() != constants.DefaultMaxRequestSizeBytes {
		t.Fatalf("expected default max request size, got %d", cfg.RequestSizeBytes())
	}
	if cfg.BatchConcurrency != constants.DefaultBatchConcurrency {
		t.Fatalf("expected default batch concurrency, got %d", cfg.BatchConcurrency)
	}
	if !cfg.Engine.IncludeCashFlows {
		t.Fatalf("expected cash flows on by default")
	}
	if cfg.Logging.Level != "" || cfg.Logging.Format != "" || cfg.Logging.OutputFile != "" {
		t.Fatalf("expected empty logging defaults, got %+v", cfg.Logging)
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.RequestSizeBytes() <= 0 {
		t.Fatalf("expected positive default request size")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server-config.yaml")

	contents := []byte(`address: 127.0.0.1:9000
maxRequestSize: 2M
batchConcurrency: 3
allowedOrigins:
  - http://localhost:5173
engine:
  dayCount: ACT/360
  ratePrecision: 2
  includeCashFlows: false
logging:
  level: debug
  format: console
  outputFile: /tmp/server.log
`)
	if err := os.WriteFile(path, contents, 0600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Address != "127.0.0.1:9000" {
		t.Fatalf("expected address override, got %s", cfg.Address)
	}
	if cfg.RequestSizeBytes() != 2*1024*1024 {
		t.Fatalf("expected max request override, got %d", cfg.RequestSizeBytes())
	}
	if cfg.BatchConcurrency != 3 {
		t.Fatalf("expected batch concurrency 3, got %d", cfg.BatchConcurrency)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:5173" {
		t.Fatalf("unexpected allowed origins %v", cfg.AllowedOrigins)
	}
	if cfg.Engine.DayCount != "ACT/360" || cfg.Engine.RatePrecision != 2 || cfg.Engine.IncludeCashFlows {
		t.Fatalf("unexpected engine settings %+v", cfg.Engine)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected logging level debug, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("expected logging format console, got %s", cfg.Logging.Format)
	}
	if cfg.Logging.OutputFile != "/tmp/server.log" {
		t.Fatalf("expected logging outputFile /tmp/server.log, got %s", cfg.Logging.OutputFile)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := map[string]string{
		"bad size":      "maxRequestSize: invalid",
		"bad yaml":      "address: [unterminated",
		"bad day count": "engine:\n  dayCount: ACT/999\n",
	}

	for name, contents := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
				t.Fatalf("failed to write temp config: %v", err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Fatal("expected error but got nil")
			}
		})
	}
}

func TestSetRequestSizeBytes(t *testing.T) {
	cfg, _ := LoadConfig("")
	cfg.SetRequestSizeBytes(4096)
	if cfg.RequestSizeBytes() != 4096 || cfg.MaxRequestSize != "4096" {
		t.Fatalf("override not applied: %d %s", cfg.RequestSizeBytes(), cfg.MaxRequestSize)
	}
	cfg.SetRequestSizeBytes(0)
	if cfg.RequestSizeBytes() != 4096 {
		t.Fatalf("non-positive override should be ignored")
	}
}

func TestParseSize(t *testing.T) {
	tests := map[string]int64{
		"":          constants.DefaultMaxRequestSizeBytes,
		"1024":      1024,
		"512b":      512,
		"256K":      256 * 1024,
		"1m":        1024 * 1024,
		"3MB":       3 * 1024 * 1024,
		"  4096   ": 4096,
	}

	for input, expected := range tests {
		got, err := ParseSize(input)
		if err != nil {
			t.Fatalf("ParseSize(%q) returned error: %v", input, err)
		}
		if got != expected {
			t.Fatalf("ParseSize(%q) = %d, expected %d", input, got, expected)
		}
	}

	for _, input := range []string{"2G", "1TB", "abc"} {
		if _, err := ParseSize(input); err == nil {
			t.Fatalf("ParseSize(%q) expected error", input)
		}
	}
}
