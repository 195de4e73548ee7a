package sdfx

import (
	"math"

	"github.com/chazu/zonecsg/pkg/geom"
	"github.com/chazu/zonecsg/pkg/solid"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func box3(e geom.Extent) sdf.Box3 {
	return sdf.Box3{Min: vec(e.Lower), Max: vec(e.Upper)}
}

// boxBound is a 1-Lipschitz lower bound of the distance to e, negative
// inside.
func boxBound(e geom.Extent, p geom.Vector3) float64 {
	c := e.Centre()
	h := e.Size().Scale(0.5)
	d := math.Abs(p.X-c.X) - h.X
	d = math.Max(d, math.Abs(p.Y-c.Y)-h.Y)
	return math.Max(d, math.Abs(p.Z-c.Z)-h.Z)
}

// polyhedronSDF is the intersection of plane half-spaces.
type polyhedronSDF struct {
	planes []geom.Plane
	bounds geom.Extent
}

func (s *polyhedronSDF) Evaluate(p v3.Vec) float64 {
	q := fromVec(p)
	d := boxBound(s.bounds, q)
	for _, pl := range s.planes {
		d = math.Max(d, pl.SignedDistance(q))
	}
	return d
}

func (s *polyhedronSDF) BoundingBox() sdf.Box3 { return box3(s.bounds) }

// quadricSDF clips a quadric's first-order distance to its bounds.
type quadricSDF struct {
	q solid.Quadric
}

func (s *quadricSDF) Evaluate(p v3.Vec) float64 {
	q := fromVec(p)
	return math.Max(boxBound(s.q.Bounds, q), s.q.Distance(q))
}

func (s *quadricSDF) BoundingBox() sdf.Box3 { return box3(s.q.Bounds) }

// boundedSDF overrides the bounding box used by the renderer.
type boundedSDF struct {
	sdf.SDF3
	bounds geom.Extent
}

func (s *boundedSDF) BoundingBox() sdf.Box3 { return box3(s.bounds) }
