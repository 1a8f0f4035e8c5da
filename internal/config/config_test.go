package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "LADMAKER_ADDR", "LADMAKER_OUTPUT_DIR",
		"LADMAKER_REQUEST_TIMEOUT", "LADMAKER_MAX_UPLOAD_BYTES", "LADMAKER_STRICT_URLS",
		"LADMAKER_DEBUG", "LADMAKER_VERBOSE",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.BaseURL != DefaultBaseURL || cfg.Addr != DefaultAddr || cfg.OutputDir != DefaultOutputDir {
		t.Errorf("Defaults() = %+v", cfg)
	}
	if cfg.RequestTimeout != 0 {
		t.Errorf("RequestTimeout = %s, want no timeout", cfg.RequestTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("LADMAKER_ADDR", ":9999")
	t.Setenv("LADMAKER_REQUEST_TIMEOUT", "90s")
	t.Setenv("LADMAKER_DEBUG", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != "sk-env" || cfg.Addr != ":9999" || cfg.RequestTimeout != 90*time.Second || !cfg.Debug {
		t.Errorf("Load() = %+v", cfg)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %s, want default", cfg.BaseURL)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "OPENAI_BASE_URL=http://localhost:4010/v1\nLADMAKER_OUTPUT_DIR=out\nLADMAKER_ADDR=:7000\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LADMAKER_ADDR", ":8000")
	t.Cleanup(func() {
		os.Unsetenv("OPENAI_BASE_URL")
		os.Unsetenv("LADMAKER_OUTPUT_DIR")
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BaseURL != "http://localhost:4010/v1" || cfg.OutputDir != "out" {
		t.Errorf("Load() = %+v, want .env values", cfg)
	}
	if cfg.Addr != ":8000" {
		t.Errorf("Addr = %s, want environment to win over .env", cfg.Addr)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad duration", "LADMAKER_REQUEST_TIMEOUT", "soon"},
		{"negative timeout", "LADMAKER_REQUEST_TIMEOUT", "-1s"},
		{"zero upload", "LADMAKER_MAX_UPLOAD_BYTES", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			if _, err := Load(filepath.Join(t.TempDir(), "none")); err == nil {
				t.Error("Load() error = nil, want error")
			}
		})
	}
}

func TestBindFlags(t *testing.T) {
	cfg := Defaults()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.BindFlags(fs)

	if err := fs.Parse([]string{"--timeout", "2m", "--output-dir", "/tmp/lads", "-v"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.RequestTimeout != 2*time.Minute || cfg.OutputDir != "/tmp/lads" || !cfg.Verbose {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %s, want untouched default", cfg.BaseURL)
	}
}

func TestNewLogger(t *testing.T) {
	for _, debug := range []bool{false, true} {
		cfg := Defaults()
		cfg.Debug = debug
		log, err := cfg.NewLogger()
		if err != nil {
			t.Fatalf("NewLogger(debug=%v) error = %v", debug, err)
		}
		if got := log.Core().Enabled(-1); got != debug {
			t.Errorf("debug enabled = %v, want %v", got, debug)
		}
	}
}
