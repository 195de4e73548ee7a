package sdfx

import (
	"container/heap"
	"fmt"
	"math"
	"sort"

	"github.com/chazu/zonecsg/pkg/geom"
	"gonum.org/v1/gonum/optimize"
)

// cell is an axis-aligned search box with the distance value at its centre.
// Because every distance function is 1-Lipschitz, no point of the cell is
// inside the solid when value >= radius.
type cell struct {
	centre geom.Vector3
	half   geom.Vector3
	value  float64
}

func (c cell) radius() float64 { return c.half.Length() }

// mayContainInterior reports whether the cell cannot be ruled out.
func (c cell) mayContainInterior() bool { return c.value < c.radius() }

// fullyInside reports whether every point of the cell is interior.
func (c cell) fullyInside() bool { return c.value < -c.radius() }

func (c cell) extent() geom.Extent {
	return geom.Extent{Lower: c.centre.Sub(c.half), Upper: c.centre.Add(c.half)}
}

// children splits the cell in half along every axis at least half as long
// as its longest one, so flat cells become cubic instead of flatter.
func (c cell) children(eval func(geom.Vector3) float64) []cell {
	long := c.half.MaxComponent() / 2
	var split [3]bool
	for i := 0; i < 3; i++ {
		split[i] = c.half.Component(i) >= long
	}
	h := c.half
	if split[0] {
		h.X /= 2
	}
	if split[1] {
		h.Y /= 2
	}
	if split[2] {
		h.Z /= 2
	}
	out := make([]cell, 0, 8)
	for i := 0; i < 8; i++ {
		if (i&1 != 0 && !split[0]) || (i&2 != 0 && !split[1]) || (i&4 != 0 && !split[2]) {
			continue
		}
		off := geom.Vector3{}
		if split[0] {
			off.X = sign(i&1 != 0) * h.X
		}
		if split[1] {
			off.Y = sign(i&2 != 0) * h.Y
		}
		if split[2] {
			off.Z = sign(i&4 != 0) * h.Z
		}
		ctr := c.centre.Add(off)
		out = append(out, cell{centre: ctr, half: h, value: eval(ctr)})
	}
	return out
}

func sign(positive bool) float64 {
	if positive {
		return 1
	}
	return -1
}

// grid splits box into n cells along its longest axis, with the other axes
// divided proportionally.
func grid(box geom.Extent, n int, eval func(geom.Vector3) float64) []cell {
	size := box.Size()
	step := box.MaxSize() / float64(n)
	counts := [3]int{}
	for i := 0; i < 3; i++ {
		counts[i] = int(math.Max(1, math.Ceil(size.Component(i)/step-1e-9)))
	}
	half := geom.Vec(
		size.X/float64(counts[0])/2,
		size.Y/float64(counts[1])/2,
		size.Z/float64(counts[2])/2,
	)
	cells := make([]cell, 0, counts[0]*counts[1]*counts[2])
	for i := 0; i < counts[0]; i++ {
		for j := 0; j < counts[1]; j++ {
			for k := 0; k < counts[2]; k++ {
				ctr := box.Lower.Add(geom.Vec(
					float64(2*i+1)*half.X,
					float64(2*j+1)*half.Y,
					float64(2*k+1)*half.Z,
				))
				cells = append(cells, cell{centre: ctr, half: half, value: eval(ctr)})
			}
		}
	}
	return cells
}

func (s *sdfxSolid) eval(p geom.Vector3) float64 {
	return s.s.Evaluate(vec(p))
}

// cellHeap orders cells by centre value, most negative first.
type cellHeap []cell

func (h cellHeap) Len() int           { return len(h) }
func (h cellHeap) Less(i, j int) bool { return h[i].value < h[j].value }
func (h cellHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *cellHeap) Push(x any)        { *h = append(*h, x.(cell)) }
func (h *cellHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

// findInterior searches best-first for a point with a negative distance.
// When the evaluation budget runs out, the most promising remaining cells
// seed a Nelder-Mead minimisation of the distance.
func (k *SdfxKernel) findInterior(s *sdfxSolid) (bool, error) {
	evals := 0
	eval := func(p geom.Vector3) float64 {
		evals++
		return s.eval(p)
	}
	minRadius := s.box.MaxSize() * 1e-10

	h := &cellHeap{}
	for _, c := range grid(s.box, k.nullCells, eval) {
		if c.value < -nullTolerance {
			return true, nil
		}
		if c.mayContainInterior() {
			*h = append(*h, c)
		}
	}
	heap.Init(h)

	for h.Len() > 0 && evals < k.nullBudget {
		c := heap.Pop(h).(cell)
		if c.radius() < minRadius {
			continue
		}
		for _, child := range c.children(eval) {
			if child.value < -nullTolerance {
				return true, nil
			}
			if child.mayContainInterior() {
				heap.Push(h, child)
			}
		}
	}
	if h.Len() == 0 {
		return false, nil
	}

	seeds := []cell(*h)
	sort.Slice(seeds, func(i, j int) bool { return seeds[i].value < seeds[j].value })
	if len(seeds) > 4 {
		seeds = seeds[:4]
	}
	for _, c := range seeds {
		f, err := refine(s, c)
		if err != nil {
			return false, err
		}
		if f < -nullTolerance {
			return true, nil
		}
	}
	return false, nil
}

// refine minimises the distance function starting from the cell centre.
func refine(s *sdfxSolid, c cell) (float64, error) {
	p := optimize.Problem{
		Func: func(x []float64) float64 {
			return s.eval(geom.Vec(x[0], x[1], x[2]))
		},
	}
	settings := &optimize.Settings{FuncEvaluations: 600}
	method := &optimize.NelderMead{SimplexSize: 2 * c.radius()}
	res, err := optimize.Minimize(p, []float64{c.centre.X, c.centre.Y, c.centre.Z}, settings, method)
	if res == nil {
		return 0, fmt.Errorf("sdfx: null test refinement: %w", err)
	}
	return res.F, nil
}

// volume classifies cells as inside, outside or straddling and subdivides
// the straddling ones down to the configured resolution.
func (k *SdfxKernel) volume(s *sdfxSolid) float64 {
	leaf := s.box.MaxSize() / float64(k.volumeCells)
	start := k.volumeCells / 4
	if start < 1 {
		start = 1
	}
	var walk func(c cell) float64
	walk = func(c cell) float64 {
		switch {
		case c.fullyInside():
			return c.extent().Volume()
		case !c.mayContainInterior():
			return 0
		case 2*c.half.MaxComponent() <= leaf:
			if c.value < 0 {
				return c.extent().Volume()
			}
			return 0
		}
		var v float64
		for _, child := range c.children(s.eval) {
			v += walk(child)
		}
		return v
	}
	var total float64
	for _, c := range grid(s.box, start, s.eval) {
		total += walk(c)
	}
	return total
}

// maxFrontier bounds the number of straddling cells kept while tightening
// bounds.
const maxFrontier = 1 << 16

// tightBounds refines straddling cells level by level until they are small
// relative to the bounds found so far. Fully inside cells are kept whole.
func (k *SdfxKernel) tightBounds(s *sdfxSolid) (geom.Extent, bool) {
	var inner []geom.Extent
	var frontier []cell
	classify := func(c cell) {
		switch {
		case c.fullyInside():
			inner = append(inner, c.extent())
		case c.mayContainInterior():
			frontier = append(frontier, c)
		}
	}
	for _, c := range grid(s.box, k.nullCells, s.eval) {
		classify(c)
	}

	for len(frontier) > 0 {
		bb, _ := unionOf(inner, frontier)
		target := bb.MaxSize() / float64(k.boundsCells)
		current := frontier
		frontier = nil
		refined := false
		for _, c := range current {
			if 2*c.half.MaxComponent() <= target || len(current) > maxFrontier {
				frontier = append(frontier, c)
				continue
			}
			refined = true
			for _, child := range c.children(s.eval) {
				classify(child)
			}
		}
		if !refined {
			break
		}
	}
	bb, ok := unionOf(inner, frontier)
	if !ok {
		return geom.Extent{}, false
	}
	if clipped, ok := bb.Intersect(s.box); ok {
		return clipped, true
	}
	return bb, true
}

func unionOf(boxes []geom.Extent, cells []cell) (geom.Extent, bool) {
	var out geom.Extent
	ok := false
	add := func(e geom.Extent) {
		if !ok {
			out, ok = e, true
			return
		}
		out = out.Union(e)
	}
	for _, b := range boxes {
		add(b)
	}
	for _, c := range cells {
		add(c.extent())
	}
	return out, ok
}
