package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("IMRCAST_TOP_K", "5")
	t.Setenv("IMRCAST_SELECT", "best:r2")
	t.Setenv("IMRCAST_LOCK_TIMEOUT", "2s")

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, "best:r2", cfg.Select)
	assert.Equal(t, 2*time.Second, cfg.LockTimeout)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imrcast.yaml")
	require.NoError(t, os.WriteFile(path, []byte("test_size: 0.25\noutput: runs/latest\nno_plots: true\n"), 0o644))

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, 0.25, cfg.TestSize)
	assert.Equal(t, "runs/latest", cfg.Output)
	assert.True(t, cfg.NoPlots)
	assert.Equal(t, DefaultTarget, cfg.Target)

	_, err = Load(NewViper(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"top k", func(c *Config) { c.TopK = 0 }, "top_k"},
		{"test size", func(c *Config) { c.TestSize = 1 }, "test_size"},
		{"selection", func(c *Config) { c.Select = "best:mape" }, "select"},
		{"log level", func(c *Config) { c.LogLevel = "trace" }, "log_level"},
		{"target", func(c *Config) { c.Target = "" }, "target"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			var ve *errors.ValueError
			require.True(t, errors.As(err, &ve))
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	cfg := Default()
	cfg.Select = "FIXED:Extra Trees"
	assert.NoError(t, cfg.Validate())
}
