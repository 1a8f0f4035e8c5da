// Package config loads Lad Maker settings from defaults, a .env file, the
// environment and finally command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultAddr           = "127.0.0.1:8080"
	DefaultOutputDir      = "."
	DefaultMaxUploadBytes = 64 << 20
	CredentialEnv         = "OPENAI_API_KEY"
)

type Config struct {
	APIKey         string        `env:"OPENAI_API_KEY"`
	BaseURL        string        `env:"OPENAI_BASE_URL"`
	Addr           string        `env:"LADMAKER_ADDR"`
	OutputDir      string        `env:"LADMAKER_OUTPUT_DIR"`
	RequestTimeout time.Duration `env:"LADMAKER_REQUEST_TIMEOUT"` // 0 waits for the remote service
	MaxUploadBytes int64         `env:"LADMAKER_MAX_UPLOAD_BYTES"`
	StrictURLs     bool          `env:"LADMAKER_STRICT_URLS"`
	Debug          bool          `env:"LADMAKER_DEBUG"`
	Verbose        bool          `env:"LADMAKER_VERBOSE"`
}

func Defaults() *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		Addr:           DefaultAddr,
		OutputDir:      DefaultOutputDir,
		MaxUploadBytes: DefaultMaxUploadBytes,
	}
}

// Load applies .env files (missing ones are skipped) and the process
// environment over Defaults. Variables already set in the environment win over
// .env entries.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, cfg.Validate()
}

// BindFlags registers flags that override the loaded values. The API key is
// not bound here; it goes through the credential resolver instead.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.BaseURL, "base-url", c.BaseURL, "image API base URL")
	fs.StringVar(&c.OutputDir, "output-dir", c.OutputDir, "directory downloads and composites are written to")
	fs.DurationVar(&c.RequestTimeout, "timeout", c.RequestTimeout, "remote request timeout (0 for none)")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "enable debug logging")
	fs.BoolVarP(&c.Verbose, "verbose", "v", c.Verbose, "log API requests and responses")
}

func (c *Config) Validate() error {
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout cannot be negative: %s", c.RequestTimeout)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload size must be positive: %d", c.MaxUploadBytes)
	}
	if c.Addr == "" {
		return errors.New("listen address cannot be empty")
	}
	return nil
}

// NewLogger builds the process logger. Verbose request dumps are logged at
// debug level, so they imply a debug logger.
func (c *Config) NewLogger() (*zap.Logger, error) {
	if c.Debug || c.Verbose {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.DisableStacktrace = true
	return zc.Build()
}
