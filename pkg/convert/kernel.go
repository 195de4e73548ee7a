package convert

import (
	"fmt"

	"github.com/chazu/zonecsg/pkg/config"
	"github.com/chazu/zonecsg/pkg/kernel"
	"github.com/chazu/zonecsg/pkg/kernel/manifold"
	"github.com/chazu/zonecsg/pkg/kernel/sdfx"
)

// NewKernel builds the kernel named by cfg.Kernel.
func NewKernel(cfg config.Config) (kernel.Kernel, error) {
	switch cfg.Kernel {
	case "sdfx":
		return sdfx.New(
			sdfx.WithMeshCells(cfg.MeshCells),
			sdfx.WithNullCells(cfg.NullCells),
			sdfx.WithVolumeCells(cfg.VolumeCells),
		), nil
	case "manifold":
		return manifold.New()
	}
	return nil, fmt.Errorf("convert: unknown kernel %q", cfg.Kernel)
}
