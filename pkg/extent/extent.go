// Package extent resolves the bounding extents used to turn infinite bodies
// into tight finite solids, and finds zone operands that need no boolean
// work at all.
//
// Regions are first evaluated with every infinite body at the default
// length; the kernel's tight bounds of each region become its extent, and
// a body's extent is the union of the extents of the regions that use it.
package extent

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/chazu/zonecsg/pkg/body"
	"github.com/chazu/zonecsg/pkg/csg"
	"github.com/chazu/zonecsg/pkg/fanout"
	"github.com/chazu/zonecsg/pkg/geom"
	"github.com/chazu/zonecsg/pkg/kernel"
	"github.com/chazu/zonecsg/pkg/registry"
	"github.com/chazu/zonecsg/pkg/solid"
)

// Result holds resolved extents and omission sets for one registry.
type Result struct {
	regions   map[string]geom.Extent
	bodies    map[registry.BodyID]geom.Extent
	omit      map[string]map[registry.BodyID]bool
	omittable map[string]map[registry.BodyID]bool
	bound     body.BoundOptions
	prune     bool
}

// RegionExtent returns the tight extent of a region. ok is false for
// regions that evaluated to nothing.
func (r *Result) RegionExtent(name string) (geom.Extent, bool) {
	e, ok := r.regions[name]
	return e, ok
}

// BodyExtent returns the union of the extents of every region using the
// body.
func (r *Result) BodyExtent(id registry.BodyID) (geom.Extent, bool) {
	e, ok := r.bodies[id]
	return e, ok
}

// Omitted reports whether the body can be dropped from every zone of the
// region without changing it.
func (r *Result) Omitted(region string, id registry.BodyID) bool {
	return r.omit[region][id]
}

// Omittable reports whether a failing subtraction of the body may be
// skipped in the region: its bounded solid does not reach the region
// extent.
func (r *Result) Omittable(region string, id registry.BodyID) bool {
	return r.omittable[region][id]
}

// Options returns description options for evaluating the region with the
// resolved extents.
func (r *Result) Options(region string) csg.Options {
	return csg.Options{
		Extents:   r.bodies,
		Omit:      r.omit[region],
		Omittable: r.omittable[region],
		Bound:     r.bound,
		PruneDNF:  r.prune,
	}
}

// Option configures Resolve.
type Option func(*resolver)

// WithBound sets the options used to bound infinite bodies.
func WithBound(b body.BoundOptions) Option {
	return func(r *resolver) { r.bound = b }
}

// WithPruneDNF enables DNF pruning of zones while resolving and in the
// returned options.
func WithPruneDNF(on bool) Option {
	return func(r *resolver) { r.prune = on }
}

// WithPolicy sets the fan-out policy across regions.
func WithPolicy(p fanout.Policy) Option {
	return func(r *resolver) { r.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *resolver) { r.log = l }
}

type resolver struct {
	reg    *registry.Registry
	ev     *csg.Evaluator
	k      kernel.Kernel
	bound  body.BoundOptions
	prune  bool
	policy fanout.Policy
	log    *slog.Logger
}

// Resolve computes region and body extents for reg and the operands each
// region can omit.
func Resolve(ctx context.Context, reg *registry.Registry, ev *csg.Evaluator, opts ...Option) (*Result, error) {
	r := &resolver{
		reg:    reg,
		ev:     ev,
		k:      ev.Kernel(),
		bound:  body.DefaultBoundOptions(),
		policy: fanout.Sequential(),
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(r)
	}

	regions := reg.Regions()
	exts := make([]*geom.Extent, len(regions))
	err := fanout.Run(ctx, len(regions), r.policy, func(ctx context.Context, i int) error {
		e, err := r.regionExtent(ctx, regions[i])
		if err != nil {
			return fmt.Errorf("extent: region %q: %w", regions[i].Name, err)
		}
		exts[i] = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &Result{
		regions:   make(map[string]geom.Extent, len(regions)),
		bodies:    make(map[registry.BodyID]geom.Extent),
		omit:      make(map[string]map[registry.BodyID]bool, len(regions)),
		omittable: make(map[string]map[registry.BodyID]bool, len(regions)),
		bound:     r.bound,
		prune:     r.prune,
	}
	for i, e := range exts {
		if e != nil {
			res.regions[regions[i].Name] = *e
		}
	}
	for id := 0; id < reg.BodyCount(); id++ {
		bid := registry.BodyID(id)
		var acc *geom.Extent
		for _, name := range reg.RegionsUsing(bid) {
			e, ok := res.regions[name]
			if !ok {
				continue
			}
			if acc == nil {
				acc = &e
				continue
			}
			u := acc.Union(e)
			acc = &u
		}
		if acc != nil {
			res.bodies[bid] = *acc
		}
	}

	omit := make([]map[registry.BodyID]bool, len(regions))
	omittable := make([]map[registry.BodyID]bool, len(regions))
	err = fanout.Run(ctx, len(regions), r.policy, func(ctx context.Context, i int) error {
		o, ob, err := r.omissions(ctx, res, regions[i])
		if err != nil {
			return fmt.Errorf("extent: region %q: %w", regions[i].Name, err)
		}
		omit[i], omittable[i] = o, ob
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, rg := range regions {
		res.omit[rg.Name] = omit[i]
		res.omittable[rg.Name] = omittable[i]
	}
	return res, nil
}

func (r *resolver) regionExtent(ctx context.Context, rg registry.Region) (*geom.Extent, error) {
	start := time.Now()
	ps, err := r.ev.Region(ctx, r.reg, rg.Name, csg.Options{Bound: r.bound, PruneDNF: r.prune})
	if err != nil {
		return nil, err
	}
	if len(ps) == 0 {
		return nil, nil
	}
	e, ok, err := r.k.Bounds(r.ev.RegionSolid(ps))
	if err != nil {
		return nil, err
	}
	if !ok {
		r.log.Warn("region has no volume", "stage", "extent", "region", rg.Name)
		return nil, nil
	}
	r.log.Debug("resolved region extent", "stage", "extent", "region", rg.Name,
		"zones", len(ps), "extent", e.String(), "duration", time.Since(start))
	return &e, nil
}

// omissions classifies the body operands of a region. A body is omitted
// when every occurrence is a top-level operand whose removal provably
// leaves its zone unchanged:
//   - an Include of a convex body containing the conservative extent of the
//     other Includes of the zone, or
//   - an Exclude whose bounded solid misses the conservative extent of the
//     zone's Includes.
//
// A body is omittable when it is excluded and its bounded solid misses the
// region extent.
func (r *resolver) omissions(ctx context.Context, res *Result, rg registry.Region) (omit, omittable map[registry.BodyID]bool, err error) {
	regionExt, hasExt := res.regions[rg.Name]
	opts := csg.Options{Extents: res.bodies, Bound: r.bound}
	uses := map[registry.BodyID]int{}
	droppable := map[registry.BodyID]int{}
	omittable = map[registry.BodyID]bool{}

	for _, z := range rg.Zones {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		z.Walk(func(o registry.Operand, _ int) {
			if !o.IsZone() {
				uses[o.Body]++
			}
		})
		exts := make([]geom.Extent, len(z.Operands))
		for i, o := range z.Operands {
			if o.IsZone() {
				n, err := csg.Describe(r.reg, *o.Sub, opts)
				if err != nil {
					return nil, nil, err
				}
				exts[i] = n.Extent()
				continue
			}
			p, err := r.placed(res, o.Body)
			if err != nil {
				return nil, nil, err
			}
			exts[i] = p.Extent()
		}

		for i, o := range z.Operands {
			if o.IsZone() {
				continue
			}
			var drop bool
			if o.Sign == registry.Include {
				rest, ok := includesExtent(z, exts, i)
				if ok && r.reg.Body(o.Body).IsConvex() {
					drop, err = r.containsExtent(res, o.Body, rest)
				}
			} else {
				if all, ok := includesExtent(z, exts, -1); ok {
					drop, err = r.misses(res, o.Body, all)
				}
				if err == nil && hasExt {
					var miss bool
					miss, err = r.misses(res, o.Body, regionExt)
					if miss {
						omittable[o.Body] = true
					}
				}
			}
			if err != nil {
				return nil, nil, err
			}
			if drop {
				droppable[o.Body]++
			}
		}
	}

	omit = map[registry.BodyID]bool{}
	for id, n := range droppable {
		if n == uses[id] {
			omit[id] = true
			r.log.Debug("omitting operand", "stage", "extent", "region", rg.Name, "body", r.reg.BodyName(id))
		}
	}
	return omit, omittable, nil
}

// includesExtent intersects the extents of the zone's Include operands,
// skipping index skip. ok is false when there is nothing to intersect or
// the intersection is empty.
func includesExtent(z registry.Zone, exts []geom.Extent, skip int) (geom.Extent, bool) {
	var acc *geom.Extent
	for i, o := range z.Operands {
		if i == skip || o.Sign != registry.Include {
			continue
		}
		if acc == nil {
			e := exts[i]
			acc = &e
			continue
		}
		e, ok := acc.Intersect(exts[i])
		if !ok {
			return geom.Extent{}, false
		}
		acc = &e
	}
	if acc == nil {
		return geom.Extent{}, false
	}
	return *acc, true
}

func (r *resolver) placed(res *Result, id registry.BodyID) (solid.Placed, error) {
	var ext *geom.Extent
	if e, ok := res.bodies[id]; ok {
		ext = &e
	}
	return r.reg.Body(id).BoundedSolid(ext, r.bound)
}

func (r *resolver) realise(res *Result, id registry.BodyID) (kernel.Solid, error) {
	p, err := r.placed(res, id)
	if err != nil {
		return nil, err
	}
	return kernel.Realise(r.k, p)
}

// containsExtent reports whether every corner of e lies inside the body.
// Exact for convex bodies.
func (r *resolver) containsExtent(res *Result, id registry.BodyID, e geom.Extent) (bool, error) {
	s, err := r.realise(res, id)
	if err != nil {
		return false, err
	}
	for _, c := range e.Corners() {
		if !r.k.Contains(s, c) {
			return false, nil
		}
	}
	return true, nil
}

// misses reports whether the body's bounded solid and the box e share no
// volume.
func (r *resolver) misses(res *Result, id registry.BodyID, e geom.Extent) (bool, error) {
	s, err := r.realise(res, id)
	if err != nil {
		return false, err
	}
	if !s.BoundingBox().Overlaps(e) {
		return true, nil
	}
	box, err := r.k.Box(e.Size())
	if err != nil {
		return false, err
	}
	return r.k.IsNull(r.k.Intersection(s, r.k.Transform(box, geom.Translation(e.Centre()))))
}
