// Package split breaks regions whose zones do not touch into one region per
// connected group of zones, so that no emitted boolean tree holds a
// disjoint union.
package split

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chazu/zonecsg/pkg/csg"
	"github.com/chazu/zonecsg/pkg/fanout"
	"github.com/chazu/zonecsg/pkg/registry"
)

// OptionsFunc supplies the description options for a region.
type OptionsFunc func(region string) csg.Options

// Option configures Split.
type Option func(*splitter)

// WithOptions sets the description options used to evaluate zones.
func WithOptions(fn OptionsFunc) Option {
	return func(s *splitter) { s.opts = fn }
}

// WithPolicy sets the fan-out policy across regions.
func WithPolicy(p fanout.Policy) Option {
	return func(s *splitter) { s.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *splitter) { s.log = l }
}

// WithSplitHook registers a callback invoked once for every region that is
// split, with the names of the regions replacing it.
func WithSplitHook(fn func(region string, parts []string)) Option {
	return func(s *splitter) { s.onSplit = fn }
}

type splitter struct {
	reg        *registry.Registry
	prototypes map[string]bool
	ev         *csg.Evaluator
	opts       OptionsFunc
	policy     fanout.Policy
	log        *slog.Logger
	onSplit    func(string, []string)
}

// Split returns a registry in which every region with more than one
// connected component of zones is replaced, in place, by one region per
// component named <region>_<i>_<j>... after the sorted zone indices it
// holds. A component name already taken by another region gets the first
// free ".n" suffix. Two zones are connected when their solids share volume.
// Lattice prototypes are placed whole and never split. Bodies,
// lattice cells and materials carry over unchanged.
func Split(ctx context.Context, reg *registry.Registry, ev *csg.Evaluator, opts ...Option) (*registry.Registry, error) {
	s := &splitter{
		reg:    reg,
		ev:     ev,
		opts:   func(string) csg.Options { return csg.DefaultOptions() },
		policy: fanout.Sequential(),
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(s)
	}
	s.prototypes = map[string]bool{}
	for _, c := range reg.Lattices() {
		s.prototypes[c.Prototype] = true
	}

	regions := reg.Regions()
	parts := make([][]registry.Region, len(regions))
	err := fanout.Run(ctx, len(regions), s.policy, func(ctx context.Context, i int) error {
		out, err := s.region(ctx, regions[i])
		if err != nil {
			return fmt.Errorf("split: region %q: %w", regions[i].Name, err)
		}
		parts[i] = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	taken := make(map[string]bool, len(regions))
	for _, r := range regions {
		taken[r.Name] = true
	}
	b := reg.Derive()
	for i, p := range parts {
		if len(p) > 1 {
			s.rename(regions[i].Name, p, taken)
		}
		for _, r := range p {
			b.AddRegion(r)
		}
	}
	out, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	return out, nil
}

func (s *splitter) region(ctx context.Context, r registry.Region) ([]registry.Region, error) {
	if len(r.Zones) < 2 || s.prototypes[r.Name] {
		return []registry.Region{r}, nil
	}
	start := time.Now()
	ps, err := s.ev.Region(ctx, s.reg, r.Name, s.opts(r.Name))
	if err != nil {
		return nil, err
	}
	comps, err := s.components(ctx, ps)
	if err != nil {
		return nil, err
	}
	s.log.Debug("split region", "stage", "split", "region", r.Name,
		"zones", len(r.Zones), "components", len(comps), "duration", time.Since(start))
	if len(comps) == 1 {
		return []registry.Region{r}, nil
	}
	out := make([]registry.Region, len(comps))
	for i, c := range comps {
		zones := make([]registry.Zone, len(c))
		for j, zi := range c {
			zones[j] = r.Zones[zi]
		}
		out[i] = registry.Region{Name: Name(r.Name, c), Material: r.Material, Zones: zones}
	}
	return out, nil
}

// rename makes the component names of region unique against taken, which
// it extends, and reports the split.
func (s *splitter) rename(region string, parts []registry.Region, taken map[string]bool) {
	names := make([]string, len(parts))
	for i := range parts {
		name := unique(parts[i].Name, taken)
		if name != parts[i].Name {
			s.log.Warn("split name taken", "stage", "split", "region", region,
				"name", parts[i].Name, "renamed", name)
		}
		taken[name] = true
		parts[i].Name = name
		names[i] = name
	}
	if s.onSplit != nil {
		s.onSplit(region, names)
	}
}

func unique(name string, taken map[string]bool) string {
	if !taken[name] {
		return name
	}
	for n := 1; ; n++ {
		c := name + "." + strconv.Itoa(n)
		if !taken[c] {
			return c
		}
	}
}

// components groups placements by shared volume. Pairs already connected
// are not tested; pairs with disjoint extents are never intersected.
func (s *splitter) components(ctx context.Context, ps []csg.Placement) ([][]int, error) {
	k := s.ev.Kernel()
	n := len(ps)
	uf := newUnionFind(n)
	for i := 0; i < n; i++ {
		ei := ps[i].Extent()
		for j := i + 1; j < n; j++ {
			if uf.connected(i, j) {
				continue
			}
			if !ei.Overlaps(ps[j].Extent()) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			null, err := k.IsNull(k.Intersection(ps[i].World(k), ps[j].World(k)))
			if err != nil {
				return nil, fmt.Errorf("zones %d and %d: %w", i, j, err)
			}
			if !null {
				uf.union(i, j)
			}
		}
	}
	return uf.groups(), nil
}

// Name returns the name of the region holding the given zone indices of
// region.
func Name(region string, zones []int) string {
	sorted := append([]int(nil), zones...)
	sort.Ints(sorted)
	var sb strings.Builder
	sb.WriteString(region)
	for _, z := range sorted {
		sb.WriteByte('_')
		sb.WriteString(strconv.Itoa(z))
	}
	return sb.String()
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) connected(a, b int) bool { return u.find(a) == u.find(b) }

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	switch {
	case ra == rb:
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}

// groups returns the components ordered by their smallest member, each
// sorted ascending.
func (u *unionFind) groups() [][]int {
	index := map[int]int{}
	var out [][]int
	for i := range u.parent {
		r := u.find(i)
		g, ok := index[r]
		if !ok {
			g = len(out)
			index[r] = g
			out = append(out, nil)
		}
		out[g] = append(out[g], i)
	}
	return out
}
