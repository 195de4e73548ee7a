package solid

import (
	"fmt"
	"math"
	"sort"

	"github.com/chazu/zonecsg/pkg/geom"
)

// Polyhedron is a convex polyhedron given by vertices and faces. Each face
// lists zero-based vertex indices counter-clockwise when seen from outside,
// so that the right-hand rule yields the outward normal.
//
// Shift moves every face plane outward by that distance while Vertices and
// Faces keep describing the unshifted polyhedron. Vertices no face uses are
// ignored.
type Polyhedron struct {
	Vertices []geom.Vector3
	Faces    [][]int
	Shift    float64
}

// NewPolyhedron validates the face indices.
func NewPolyhedron(vertices []geom.Vector3, faces [][]int) (Polyhedron, error) {
	if len(vertices) < 4 {
		return Polyhedron{}, fmt.Errorf("solid: polyhedron needs at least 4 vertices, got %d", len(vertices))
	}
	if len(faces) < 4 {
		return Polyhedron{}, fmt.Errorf("solid: polyhedron needs at least 4 faces, got %d", len(faces))
	}
	for i, f := range faces {
		if len(f) < 3 {
			return Polyhedron{}, fmt.Errorf("solid: face %d has %d vertices", i, len(f))
		}
		for _, idx := range f {
			if idx < 0 || idx >= len(vertices) {
				return Polyhedron{}, fmt.Errorf("solid: face %d references vertex %d of %d", i, idx, len(vertices))
			}
		}
	}
	return Polyhedron{Vertices: vertices, Faces: faces}, nil
}

// SignedVolume integrates over the faces with the divergence theorem. It is
// negative when the faces are wound clockwise seen from outside.
func (p Polyhedron) SignedVolume() float64 {
	var v float64
	for _, f := range p.Faces {
		a := p.Vertices[f[0]]
		for i := 1; i+1 < len(f); i++ {
			b, c := p.Vertices[f[i]], p.Vertices[f[i+1]]
			v += a.Dot(b.Cross(c))
		}
	}
	return v / 6
}

func (p Polyhedron) Volume() float64 {
	if p.Shift != 0 {
		c, err := p.corners()
		if err != nil {
			return 0
		}
		return c.volume()
	}
	v := p.SignedVolume()
	if v < 0 {
		return -v
	}
	return v
}

func (p Polyhedron) Extent() geom.Extent {
	if p.Shift != 0 {
		if c, err := p.corners(); err == nil {
			if e, ok := geom.ExtentOf(c.points...); ok {
				return e
			}
		}
	}
	used := p.usedVertices()
	e, ok := geom.ExtentOf(used...)
	if !ok {
		return geom.CentredExtent(used[0], geom.Vector3{})
	}
	return e
}

func (p Polyhedron) usedVertices() []geom.Vector3 {
	seen := make([]bool, len(p.Vertices))
	var out []geom.Vector3
	for _, f := range p.Faces {
		for _, vi := range f {
			if !seen[vi] {
				seen[vi] = true
				out = append(out, p.Vertices[vi])
			}
		}
	}
	return out
}

// Reversed flips the winding of every face.
func (p Polyhedron) Reversed() Polyhedron {
	faces := make([][]int, len(p.Faces))
	for i, f := range p.Faces {
		r := make([]int, len(f))
		for j := range f {
			r[j] = f[len(f)-1-j]
		}
		faces[i] = r
	}
	return Polyhedron{Vertices: p.Vertices, Faces: faces, Shift: p.Shift}
}

// facePlane computes the plane of face i with Newell's method, which is
// robust to slightly non-planar and partly degenerate faces.
func (p Polyhedron) facePlane(i int) (geom.Plane, error) {
	f := p.Faces[i]
	var n, centroid geom.Vector3
	for j := range f {
		cur := p.Vertices[f[j]]
		next := p.Vertices[f[(j+1)%len(f)]]
		n.X += (cur.Y - next.Y) * (cur.Z + next.Z)
		n.Y += (cur.Z - next.Z) * (cur.X + next.X)
		n.Z += (cur.X - next.X) * (cur.Y + next.Y)
		centroid = centroid.Add(cur)
	}
	centroid = centroid.Scale(1 / float64(len(f)))
	pl, err := geom.NewPlane(n, centroid)
	if err != nil {
		return geom.Plane{}, fmt.Errorf("solid: face %d is degenerate: %w", i, err)
	}
	return pl, nil
}

// Planes returns one plane per face, moved outward by Shift. The
// polyhedron is the intersection of the inner half-spaces when the winding
// is outward.
func (p Polyhedron) Planes() ([]geom.Plane, error) {
	planes, err := p.facePlanes()
	if err != nil {
		return nil, err
	}
	if p.Shift == 0 {
		return planes, nil
	}
	shift := p.Shift
	if p.SignedVolume() < 0 {
		shift = -shift
	}
	for i := range planes {
		planes[i] = planes[i].Shifted(shift)
	}
	return planes, nil
}

func (p Polyhedron) facePlanes() ([]geom.Plane, error) {
	planes := make([]geom.Plane, len(p.Faces))
	for i := range p.Faces {
		pl, err := p.facePlane(i)
		if err != nil {
			return nil, err
		}
		planes[i] = pl
	}
	return planes, nil
}

// outwardPlanes returns the shifted face planes with normals pointing out
// of the solid whatever the winding.
func (p Polyhedron) outwardPlanes() ([]geom.Plane, error) {
	planes, err := p.facePlanes()
	if err != nil {
		return nil, err
	}
	flip := p.SignedVolume() < 0
	for i, pl := range planes {
		if flip {
			pl = pl.Flipped()
		}
		planes[i] = pl.Shifted(p.Shift)
	}
	return planes, nil
}

// Offset moves every face plane by delta. Vertices are left alone, so
// offsets compose exactly: Offset(d) then Offset(-d) restores p.
func (p Polyhedron) Offset(delta float64) (Shape, error) {
	out := p
	out.Shift = p.Shift + delta
	c, err := out.corners()
	if err != nil {
		return nil, err
	}
	if len(c.points) < 4 || !(c.volume() > 0) {
		return nil, ErrCollapsed
	}
	return out, nil
}

// OffsetVertices shifts every face plane by delta and moves each vertex to
// the least-squares meeting point of its incident shifted planes. Unlike
// Offset the result is a plain vertex polyhedron; it is exact when every
// vertex has three incident faces.
func (p Polyhedron) OffsetVertices(delta float64) (Polyhedron, error) {
	planes, err := p.facePlanes()
	if err != nil {
		return Polyhedron{}, err
	}
	if p.SignedVolume() < 0 {
		delta = -delta
	}
	incident := make([][]int, len(p.Vertices))
	for fi, f := range p.Faces {
		for _, vi := range f {
			incident[vi] = appendUnique(incident[vi], fi)
		}
	}
	verts := make([]geom.Vector3, len(p.Vertices))
	for vi, faces := range incident {
		if len(faces) == 0 {
			verts[vi] = p.Vertices[vi]
			continue
		}
		shifted := make([]geom.Plane, len(faces))
		for i, fi := range faces {
			shifted[i] = planes[fi].Shifted(delta)
		}
		v, err := geom.MeetPlanes(shifted)
		if err != nil {
			return Polyhedron{}, fmt.Errorf("solid: vertex %d: %w", vi, err)
		}
		verts[vi] = v
	}
	out := Polyhedron{Vertices: verts, Faces: p.Faces}
	if (out.SignedVolume() > 0) != (p.SignedVolume() > 0) {
		return Polyhedron{}, ErrCollapsed
	}
	return out, nil
}

// polytope is the solid cut out by a set of outward planes, as its corner
// points.
type polytope struct {
	planes []geom.Plane
	points []geom.Vector3
	tol    float64
}

// corners enumerates the corners of the shifted polyhedron: every meeting
// point of three face planes that lies inside all the others.
func (p Polyhedron) corners() (polytope, error) {
	planes, err := p.outwardPlanes()
	if err != nil {
		return polytope{}, err
	}
	size := 1.0
	if e, ok := geom.ExtentOf(p.usedVertices()...); ok {
		size = math.Max(size, e.MaxSize()+2*math.Abs(p.Shift))
	}
	c := polytope{planes: planes, tol: 1e-9 * size}
	for a := 0; a < len(planes); a++ {
		for b := a + 1; b < len(planes); b++ {
			for d := b + 1; d < len(planes); d++ {
				v, err := geom.IntersectPlanes(planes[a], planes[b], planes[d])
				if err != nil || !c.inside(v) {
					continue
				}
				c.add(v)
			}
		}
	}
	return c, nil
}

func (c *polytope) inside(v geom.Vector3) bool {
	for _, pl := range c.planes {
		if pl.SignedDistance(v) > c.tol {
			return false
		}
	}
	return true
}

func (c *polytope) add(v geom.Vector3) {
	for _, q := range c.points {
		if q.ApproxEqual(v, c.tol) {
			return
		}
	}
	c.points = append(c.points, v)
}

// volume sums offset * area / 3 over the faces, the divergence theorem for
// a convex solid with outward unit normals.
func (c polytope) volume() float64 {
	var v float64
	for _, pl := range c.planes {
		var on []geom.Vector3
		for _, q := range c.points {
			if math.Abs(pl.SignedDistance(q)) <= c.tol {
				on = append(on, q)
			}
		}
		if len(on) < 3 {
			continue
		}
		v += pl.Offset * faceArea(pl.Normal, on) / 3
	}
	return v
}

// faceArea returns the area of the convex polygon with the given corners,
// which all lie in a plane with unit normal n.
func faceArea(n geom.Vector3, pts []geom.Vector3) float64 {
	var centre geom.Vector3
	for _, q := range pts {
		centre = centre.Add(q)
	}
	centre = centre.Scale(1 / float64(len(pts)))

	u, _ := pts[0].Sub(centre).Normalize()
	w := n.Cross(u)
	angle := func(q geom.Vector3) float64 {
		d := q.Sub(centre)
		return math.Atan2(d.Dot(w), d.Dot(u))
	}
	sorted := append([]geom.Vector3(nil), pts...)
	sort.Slice(sorted, func(i, j int) bool { return angle(sorted[i]) < angle(sorted[j]) })

	var area geom.Vector3
	for i := range sorted {
		area = area.Add(sorted[i].Sub(centre).Cross(sorted[(i+1)%len(sorted)].Sub(centre)))
	}
	return math.Abs(area.Dot(n)) / 2
}

func appendUnique(s []int, v int) []int {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}
