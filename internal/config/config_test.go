package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.Reader.StrictPyramid)
	assert.EqualValues(t, 4<<30, cfg.Reader.CacheBytes)
	assert.Equal(t, FormatText, cfg.Output.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Batch.Workers)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		msg    string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"bad format", func(c *Config) { c.Output.Format = "xml" }, "output.format"},
		{"negative cache", func(c *Config) { c.Reader.CacheBytes = -1 }, "cache_bytes"},
		{"negative max ifds", func(c *Config) { c.Reader.MaxIFDs = -5 }, "max_ifds"},
		{"port too low", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"zero upload cap", func(c *Config) { c.Server.MaxUploadMB = 0 }, "max_upload_mb"},
		{"zero workers", func(c *Config) { c.Batch.Workers = 0 }, "batch.workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestToYAML(t *testing.T) {
	cfg := DefaultConfig()
	out, err := cfg.ToYAML()
	require.NoError(t, err)
	assert.Contains(t, out, "log_level: info")
	assert.Contains(t, out, "strict_pyramid: true")
	assert.Contains(t, out, "port: 8080")
}
