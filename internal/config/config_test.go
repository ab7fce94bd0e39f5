package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 25, cfg.Batch.WriteSize)
	assert.Equal(t, 100, cfg.Batch.ReadSize)
	assert.Equal(t, 8, cfg.Executor.MaxConcurrentChunks)
	assert.Equal(t, 5, cfg.Executor.MaxRetries)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Batch, cfg.Batch)
}

func TestLoad_FileOverrides(t *testing.T) {
	content := `executor:
  maxretries: 9
  initialbackoff: 50ms
batch:
  writesize: 10
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Executor.MaxRetries)
	assert.Equal(t, 50*time.Millisecond, cfg.Executor.InitialBackoff)
	assert.Equal(t, 10, cfg.Batch.WriteSize)
	// Untouched fields keep defaults.
	assert.Equal(t, 100, cfg.Batch.ReadSize)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DYNAPLAN_EXECUTOR_MAXRETRIES", "7")
	t.Setenv("DYNAPLAN_BATCH_READSIZE", "50")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Executor.MaxRetries)
	assert.Equal(t, 50, cfg.Batch.ReadSize)
}

func TestLoad_InvalidValuesRejected(t *testing.T) {
	t.Setenv("DYNAPLAN_BATCH_WRITESIZE", "0")

	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero write size", func(c *Config) { c.Batch.WriteSize = 0 }},
		{"negative read size", func(c *Config) { c.Batch.ReadSize = -1 }},
		{"zero concurrency", func(c *Config) { c.Executor.MaxConcurrentChunks = 0 }},
		{"negative retries", func(c *Config) { c.Executor.MaxRetries = -1 }},
		{"zero unavailable attempts", func(c *Config) { c.Executor.UnavailableAttempts = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
