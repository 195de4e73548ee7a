package csg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/chazu/zonecsg/pkg/geom"
	"github.com/chazu/zonecsg/pkg/kernel"
	"github.com/chazu/zonecsg/pkg/registry"
)

// Cache lifetimes of memoised solids.
const (
	DefaultCacheExpiration = 10 * time.Minute
	DefaultCacheCleanup    = 30 * time.Minute
)

// Evaluator folds description trees into kernel solids. It is safe for
// concurrent use when its kernel is.
type Evaluator struct {
	k      kernel.Kernel
	cache  *gocache.Cache
	log    *slog.Logger
	onNull func(recovered bool)
}

// EvalOption configures an Evaluator.
type EvalOption func(*Evaluator)

// WithLogger sets the evaluator logger.
func WithLogger(l *slog.Logger) EvalOption {
	return func(e *Evaluator) { e.log = l }
}

// WithNullHook registers a callback for every null solid found during
// evaluation; recovered is true when an omittable subtraction was skipped.
func WithNullHook(fn func(recovered bool)) EvalOption {
	return func(e *Evaluator) { e.onNull = fn }
}

// WithoutCache disables memoisation of evaluated trees.
func WithoutCache() EvalOption {
	return func(e *Evaluator) { e.cache = nil }
}

// NewEvaluator returns an evaluator over k that memoises solids by tree
// fingerprint.
func NewEvaluator(k kernel.Kernel, opts ...EvalOption) *Evaluator {
	e := &Evaluator{
		k:     k,
		cache: gocache.New(DefaultCacheExpiration, DefaultCacheCleanup),
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Kernel returns the kernel the evaluator realises solids with.
func (e *Evaluator) Kernel() kernel.Kernel { return e.k }

// Placement is one zone of a region, evaluated relative to the transform of
// its first Include body.
type Placement struct {
	Tree      *Node
	Solid     kernel.Solid
	Transform geom.Transform
	Material  string
	Region    string
	ZoneIndex int
}

// Name returns "<region>#<zone>".
func (p Placement) Name() string {
	return fmt.Sprintf("%s#%d", p.Region, p.ZoneIndex)
}

// World returns the placement solid in the world frame.
func (p Placement) World(k kernel.Kernel) kernel.Solid {
	if p.Transform.IsIdentity() {
		return p.Solid
	}
	return k.Transform(p.Solid, p.Transform)
}

// Extent returns a conservative world-frame bound of the placement.
func (p Placement) Extent() geom.Extent {
	return p.Tree.Extent().Transformed(p.Transform)
}

type zoneRef struct {
	region string
	zone   int
}

// Placement evaluates zone index of the named region.
func (e *Evaluator) Placement(ctx context.Context, reg *registry.Registry, region string, index int, opts Options) (Placement, error) {
	r, ok := reg.Region(region)
	if !ok {
		return Placement{}, fmt.Errorf("csg: no region named %q", region)
	}
	if index < 0 || index >= len(r.Zones) {
		return Placement{}, fmt.Errorf("csg: region %q has no zone %d", region, index)
	}
	ref := zoneRef{region: region, zone: index}
	tree, err := Describe(reg, r.Zones[index], opts)
	if errors.Is(err, errContradiction) {
		e.null(false)
		return Placement{}, &NullSolidError{Region: region, Zone: index}
	}
	if err != nil {
		return Placement{}, fmt.Errorf("region %q zone %d: %w", region, index, err)
	}
	t := tree.Leaves()[0].Shape.Transform
	rel := tree.Moved(t.Inverse())
	s, err := e.eval(ctx, rel, ref)
	if err != nil {
		return Placement{}, err
	}
	return Placement{
		Tree:      rel,
		Solid:     s,
		Transform: t,
		Material:  r.Material,
		Region:    region,
		ZoneIndex: index,
	}, nil
}

// Zone evaluates zone index of the named region in the world frame.
func (e *Evaluator) Zone(ctx context.Context, reg *registry.Registry, region string, index int, opts Options) (kernel.Solid, error) {
	p, err := e.Placement(ctx, reg, region, index, opts)
	if err != nil {
		return nil, err
	}
	return p.World(e.k), nil
}

// Region evaluates every zone of the named region into a placement list.
func (e *Evaluator) Region(ctx context.Context, reg *registry.Registry, region string, opts Options) ([]Placement, error) {
	r, ok := reg.Region(region)
	if !ok {
		return nil, fmt.Errorf("csg: no region named %q", region)
	}
	out := make([]Placement, 0, len(r.Zones))
	for i := range r.Zones {
		p, err := e.Placement(ctx, reg, region, i, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// RegionSolid unions placements into one world-frame solid. It returns nil
// for an empty list.
func (e *Evaluator) RegionSolid(ps []Placement) kernel.Solid {
	var acc kernel.Solid
	for _, p := range ps {
		w := p.World(e.k)
		if acc == nil {
			acc = w
			continue
		}
		acc = e.k.Union(acc, w)
	}
	return acc
}

// Tree evaluates a description tree in the frame its leaves are placed in.
// Null results are reported against region and zone.
func (e *Evaluator) Tree(ctx context.Context, n *Node, region string, zone int) (kernel.Solid, error) {
	return e.eval(ctx, n, zoneRef{region: region, zone: zone})
}

func (e *Evaluator) null(recovered bool) {
	if e.onNull != nil {
		e.onNull(recovered)
	}
}

func (e *Evaluator) eval(ctx context.Context, n *Node, ref zoneRef) (kernel.Solid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var key string
	if e.cache != nil {
		key = n.Fingerprint()
		if v, ok := e.cache.Get(key); ok {
			if s, ok := v.(kernel.Solid); ok {
				return s, nil
			}
		}
	}
	s, err := e.evalNode(ctx, n, ref)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(key, s, gocache.DefaultExpiration)
	}
	return s, nil
}

func (e *Evaluator) evalNode(ctx context.Context, n *Node, ref zoneRef) (kernel.Solid, error) {
	if n.Op == OpLeaf {
		s, err := kernel.Realise(e.k, n.Shape)
		if err != nil {
			return nil, fmt.Errorf("region %q zone %d body %s: %w", ref.region, ref.zone, n.Body, err)
		}
		return s, nil
	}

	left, lerr := e.eval(ctx, n.Left, ref)
	right, rerr := e.eval(ctx, n.Right, ref)

	if n.Op == OpUnion {
		for _, err := range []error{lerr, rerr} {
			if err != nil && !errors.Is(err, ErrNullSolid) {
				return nil, err
			}
		}
		switch {
		case lerr == nil && rerr == nil:
			return e.k.Union(left, right), nil
		case lerr == nil:
			return left, nil
		case rerr == nil:
			return right, nil
		}
		return nil, &NullSolidError{Region: ref.region, Zone: ref.zone}
	}
	if lerr != nil {
		return nil, lerr
	}
	if rerr != nil {
		return nil, rerr
	}

	var s kernel.Solid
	if n.Op == OpIntersect {
		s = e.k.Intersection(left, right)
	} else {
		s = e.k.Difference(left, right)
	}
	null, err := e.k.IsNull(s)
	if err != nil {
		return nil, fmt.Errorf("region %q zone %d: null test: %w", ref.region, ref.zone, err)
	}
	if !null {
		return s, nil
	}
	if n.Op == OpSubtract && n.Right.Op == OpLeaf && n.Right.Omittable {
		e.null(true)
		e.log.Debug("skipped omittable subtraction", "region", ref.region, "zone", ref.zone, "body", n.Right.Body)
		return left, nil
	}
	e.null(false)
	return nil, &NullSolidError{Region: ref.region, Zone: ref.zone, Operand: n.Right.String()}
}
