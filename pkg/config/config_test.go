package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	if diff := cmp.Diff(Defaults(), cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1.05, cfg.Bound().Tolerance)
	assert.Equal(t, 50000.0, cfg.Bound().InfiniteLength)
	assert.Equal(t, 1, cfg.Policy().Workers)
	assert.True(t, cfg.Policy().FailFast)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zonecsg.yaml")
	yaml := `
length_safety: 0.001
bound_tolerance: 1.5
kernel: manifold
workers: 2
fail_fast: false
prune_dnf: true
eval_timeout: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("ZONECSG_WORKERS", "8")
	t.Setenv("ZONECSG_NULL_CELLS", "32")

	cfg, err := Load(path)
	require.NoError(t, err)

	want := Defaults()
	want.LengthSafety = 0.001
	want.BoundTolerance = 1.5
	want.Kernel = "manifold"
	want.Workers = 8
	want.NullCells = 32
	want.FailFast = false
	want.PruneDNF = true
	want.EvalTimeout = 2 * time.Second
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read")
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("kernel: cgal\n"), 0o644))
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero epsilon", func(c *Config) { c.LengthSafety = 0 }, "length_safety must be positive"},
		{"negative epsilon", func(c *Config) { c.LengthSafety = -1e-6 }, "length_safety must be positive"},
		{"tight tolerance", func(c *Config) { c.BoundTolerance = 1.0 }, "bound_tolerance must be at least 1.05"},
		{"infinite length", func(c *Config) { c.InfiniteLength = 0 }, "infinite_length must be positive"},
		{"unknown kernel", func(c *Config) { c.Kernel = "cgal" }, `unknown kernel "cgal"`},
		{"mesh cells", func(c *Config) { c.MeshCells = 1 }, "mesh_cells must be at least 2"},
		{"workers", func(c *Config) { c.Workers = 0 }, "workers must be at least 1"},
		{"timeout", func(c *Config) { c.EvalTimeout = 0 }, "eval_timeout must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Kernel = ""
	cfg.Workers = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kernel")
	assert.Contains(t, err.Error(), "workers must be at least 1")
}
