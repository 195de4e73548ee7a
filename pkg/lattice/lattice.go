// Package lattice finds the regions each lattice cell contains.
//
// A lattice cell places a copy of a prototype region. Every region that
// shares volume with the placed cell belongs to it and has to be instanced
// wherever the cell is placed.
package lattice

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/chazu/zonecsg/pkg/csg"
	"github.com/chazu/zonecsg/pkg/extent"
	"github.com/chazu/zonecsg/pkg/fanout"
	"github.com/chazu/zonecsg/pkg/geom"
	"github.com/chazu/zonecsg/pkg/kernel"
	"github.com/chazu/zonecsg/pkg/registry"
)

// Containment records a region found inside a lattice cell.
type Containment struct {
	Cell   string
	Region string
	// Placement maps the region into the frame of the cell's prototype.
	Placement geom.Transform
}

// Option configures Resolve.
type Option func(*resolver)

// WithPolicy sets the fan-out policy across lattice cells.
func WithPolicy(p fanout.Policy) Option {
	return func(r *resolver) { r.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *resolver) { r.log = l }
}

type resolver struct {
	reg     *registry.Registry
	ev      *csg.Evaluator
	k       kernel.Kernel
	extents *extent.Result
	policy  fanout.Policy
	log     *slog.Logger
}

// Resolve tests every region against every lattice cell. Regions whose
// extent misses the placed cell extent are rejected without evaluation;
// the others are moved into the prototype frame by the inverse cell
// transform, leaving their bodies untouched, and intersected with the
// prototype. Results are ordered by cell, then by region.
func Resolve(ctx context.Context, reg *registry.Registry, ev *csg.Evaluator, extents *extent.Result, opts ...Option) ([]Containment, error) {
	r := &resolver{
		reg:     reg,
		ev:      ev,
		k:       ev.Kernel(),
		extents: extents,
		policy:  fanout.Sequential(),
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(r)
	}

	cells := reg.Lattices()
	found := make([][]Containment, len(cells))
	err := fanout.Run(ctx, len(cells), r.policy, func(ctx context.Context, i int) error {
		c, err := r.cell(ctx, cells[i])
		if err != nil {
			return fmt.Errorf("lattice: cell %q: %w", cells[i].Name, err)
		}
		found[i] = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	var out []Containment
	for _, c := range found {
		out = append(out, c...)
	}
	return out, nil
}

func (r *resolver) cell(ctx context.Context, c registry.LatticeCell) ([]Containment, error) {
	protoExt, ok := r.extents.RegionExtent(c.Prototype)
	if !ok {
		r.log.Warn("lattice prototype has no volume", "stage", "lattice", "region", c.Prototype)
		return nil, nil
	}
	placed := protoExt.Transformed(c.Transform)
	inv := c.Transform.Inverse()

	var proto kernel.Solid
	var out []Containment
	for _, rg := range r.reg.Regions() {
		if rg.Name == c.Prototype {
			continue
		}
		e, ok := r.extents.RegionExtent(rg.Name)
		if !ok || !e.Overlaps(placed) {
			continue
		}
		if proto == nil {
			ps, err := r.ev.Region(ctx, r.reg, c.Prototype, r.extents.Options(c.Prototype))
			if err != nil {
				return nil, fmt.Errorf("prototype: %w", err)
			}
			proto = r.ev.RegionSolid(ps)
		}
		opts := r.extents.Options(rg.Name)
		opts.Override = &inv
		ps, err := r.ev.Region(ctx, r.reg, rg.Name, opts)
		if err != nil {
			return nil, fmt.Errorf("region %q: %w", rg.Name, err)
		}
		null, err := r.k.IsNull(r.k.Intersection(proto, r.ev.RegionSolid(ps)))
		if err != nil {
			return nil, fmt.Errorf("region %q: %w", rg.Name, err)
		}
		if null {
			continue
		}
		r.log.Debug("region in lattice cell", "stage", "lattice", "region", rg.Name, "cell", c.Name)
		out = append(out, Containment{Cell: c.Name, Region: rg.Name, Placement: inv})
	}
	return out, nil
}
