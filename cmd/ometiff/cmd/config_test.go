package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopkg.in/yaml.v3"

	"github.com/osilab/ometiff/internal/config"
)

func TestConfigCommandPrintsYAML(t *testing.T) {
	output, err := executeCommand(t, "config")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(output), &cfg))
	assert.NoError(t, cfg.Validate())
	assert.Contains(t, output, "reader:")
	assert.Contains(t, output, "server:")
}
