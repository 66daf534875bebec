package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete configuration of the ometiff toolkit. It covers
// all commands (info, export, batch, serve) and loads from config files,
// environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Reader ReaderConfig `mapstructure:"reader" yaml:"reader" json:"reader"`
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
	Batch  BatchConfig  `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// ReaderConfig contains slide-opening settings.
type ReaderConfig struct {
	// StrictPyramid rejects files without a multiscale pyramid.
	StrictPyramid bool `mapstructure:"strict_pyramid" yaml:"strict_pyramid" json:"strict_pyramid"`
	// CacheBytes is the decoded-tile cache budget in bytes.
	CacheBytes int64 `mapstructure:"cache_bytes" yaml:"cache_bytes" json:"cache_bytes"`
	// MaxIFDs bounds directory traversal for corrupt files.
	MaxIFDs int `mapstructure:"max_ifds" yaml:"max_ifds" json:"max_ifds"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int64  `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	IncludePatterns []string `mapstructure:"include_patterns" yaml:"include_patterns" json:"include_patterns"`
	ExcludePatterns []string `mapstructure:"exclude_patterns" yaml:"exclude_patterns" json:"exclude_patterns"`
	ShowProgress    bool     `mapstructure:"show_progress" yaml:"show_progress" json:"show_progress"`
	Quiet           bool     `mapstructure:"quiet" yaml:"quiet" json:"quiet"`
}

// Output format names accepted by Config.Validate.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Reader: ReaderConfig{
			StrictPyramid: true,
			CacheBytes:    4 << 30,
			MaxIFDs:       4096,
		},
		Output: OutputConfig{
			Format: FormatText,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     512,
			TimeoutSec:      120,
			ShutdownTimeout: 10,
		},
		Batch: BatchConfig{
			Workers:      4,
			ShowProgress: true,
		},
	}
}

// Validate checks configuration values for consistency.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	if c.Output.Format != FormatText && c.Output.Format != FormatJSON {
		return fmt.Errorf("invalid output.format %q (must be one of: %s)",
			c.Output.Format, strings.Join([]string{FormatText, FormatJSON}, ", "))
	}
	if c.Reader.CacheBytes < 0 {
		return fmt.Errorf("invalid reader.cache_bytes %d (must be >= 0)", c.Reader.CacheBytes)
	}
	if c.Reader.MaxIFDs < 0 {
		return fmt.Errorf("invalid reader.max_ifds %d (must be >= 0)", c.Reader.MaxIFDs)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid server.max_upload_mb %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("invalid batch.workers %d (must be >= 1)", c.Batch.Workers)
	}
	return nil
}

// ToYAML renders the effective configuration as YAML.
func (c *Config) ToYAML() (string, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshaling config to yaml: %w", err)
	}
	return string(b), nil
}
