// Package config loads conversion settings from defaults, an optional YAML
// file and ZONECSG_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/chazu/zonecsg/pkg/body"
	"github.com/chazu/zonecsg/pkg/fanout"
)

// EnvPrefix prefixes every environment override, e.g. ZONECSG_WORKERS.
const EnvPrefix = "ZONECSG"

// Kernels lists the accepted kernel names.
var Kernels = []string{"sdfx", "manifold"}

// ErrInvalid matches every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config holds every conversion setting.
type Config struct {
	LengthSafety   float64       `mapstructure:"length_safety"`   // epsilon of the length-safety pass
	BoundTolerance float64       `mapstructure:"bound_tolerance"` // margin applied to extents of infinite bodies
	InfiniteLength float64       `mapstructure:"infinite_length"` // size of infinite bodies without an extent
	Kernel         string        `mapstructure:"kernel"`
	MeshCells      int           `mapstructure:"mesh_cells"`
	NullCells      int           `mapstructure:"null_cells"`
	VolumeCells    int           `mapstructure:"volume_cells"`
	Workers        int           `mapstructure:"workers"`
	FailFast       bool          `mapstructure:"fail_fast"`
	PruneDNF       bool          `mapstructure:"prune_dnf"`
	EvalTimeout    time.Duration `mapstructure:"eval_timeout"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		LengthSafety:   1e-6,
		BoundTolerance: body.DefaultTolerance,
		InfiniteLength: body.DefaultInfiniteLength,
		Kernel:         "sdfx",
		MeshCells:      200,
		NullCells:      24,
		VolumeCells:    96,
		Workers:        1,
		FailFast:       true,
		PruneDNF:       false,
		EvalTimeout:    5 * time.Second,
	}
}

// Load reads the configuration. path may be empty, in which case only
// defaults and the environment apply.
func Load(path string) (Config, error) {
	v := viper.New()
	d := Defaults()
	v.SetDefault("length_safety", d.LengthSafety)
	v.SetDefault("bound_tolerance", d.BoundTolerance)
	v.SetDefault("infinite_length", d.InfiniteLength)
	v.SetDefault("kernel", d.Kernel)
	v.SetDefault("mesh_cells", d.MeshCells)
	v.SetDefault("null_cells", d.NullCells)
	v.SetDefault("volume_cells", d.VolumeCells)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("fail_fast", d.FailFast)
	v.SetDefault("prune_dnf", d.PruneDNF)
	v.SetDefault("eval_timeout", d.EvalTimeout)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}
	if !(c.LengthSafety > 0) || math.IsInf(c.LengthSafety, 1) {
		fail("length_safety must be positive, got %g", c.LengthSafety)
	}
	if !(c.BoundTolerance >= body.DefaultTolerance) {
		fail("bound_tolerance must be at least %g, got %g", body.DefaultTolerance, c.BoundTolerance)
	}
	if !(c.InfiniteLength > 0) {
		fail("infinite_length must be positive, got %g", c.InfiniteLength)
	}
	known := false
	for _, k := range Kernels {
		known = known || k == c.Kernel
	}
	if !known {
		fail("unknown kernel %q (want one of %s)", c.Kernel, strings.Join(Kernels, ", "))
	}
	for _, f := range []struct {
		name string
		n    int
	}{{"mesh_cells", c.MeshCells}, {"null_cells", c.NullCells}, {"volume_cells", c.VolumeCells}} {
		if f.n < 2 {
			fail("%s must be at least 2, got %d", f.name, f.n)
		}
	}
	if c.Workers < 1 {
		fail("workers must be at least 1, got %d", c.Workers)
	}
	if c.EvalTimeout <= 0 {
		fail("eval_timeout must be positive, got %s", c.EvalTimeout)
	}
	return errors.Join(errs...)
}

// Bound returns the options used to bound infinite bodies.
func (c Config) Bound() body.BoundOptions {
	return body.BoundOptions{Tolerance: c.BoundTolerance, InfiniteLength: c.InfiniteLength}
}

// Policy returns the fan-out policy of the passes.
func (c Config) Policy() fanout.Policy {
	return fanout.Policy{Workers: c.Workers, FailFast: c.FailFast}
}
