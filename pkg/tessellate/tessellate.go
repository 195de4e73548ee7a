// Package tessellate turns evaluated placements into triangle meshes
// using a geometry kernel. One mesh is produced per placement.
package tessellate

import (
	"context"
	"fmt"

	"github.com/chazu/zonecsg/pkg/csg"
	"github.com/chazu/zonecsg/pkg/fanout"
	"github.com/chazu/zonecsg/pkg/kernel"
)

// Tessellate meshes every placement in order. The tessellator is
// read-only and never mutates the placements.
func Tessellate(placements []csg.Placement, k kernel.Kernel) ([]*kernel.Mesh, error) {
	return Parallel(context.Background(), placements, k, fanout.Sequential())
}

// Parallel meshes placements concurrently under policy p. Meshes keep the
// order of placements regardless of completion order.
func Parallel(ctx context.Context, placements []csg.Placement, k kernel.Kernel, p fanout.Policy) ([]*kernel.Mesh, error) {
	if len(placements) == 0 {
		return nil, nil
	}
	meshes := make([]*kernel.Mesh, len(placements))
	err := fanout.Run(ctx, len(placements), p, func(_ context.Context, i int) error {
		m, err := mesh(k, placements[i])
		if err != nil {
			return err
		}
		meshes[i] = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return meshes, nil
}

// mesh realises one placement in the world frame.
func mesh(k kernel.Kernel, p csg.Placement) (*kernel.Mesh, error) {
	if p.Solid == nil {
		return nil, fmt.Errorf("tessellate: placement %s has no solid", p.Name())
	}
	m, err := k.ToMesh(p.World(k))
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for %s: %w", p.Name(), err)
	}
	m.PartName = p.Name()
	return m, nil
}
