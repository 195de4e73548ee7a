package geom

import "fmt"

// Extent is an axis-aligned bounding box. Lower is strictly less than Upper
// in every component for every Extent produced by this package.
type Extent struct {
	Lower Vector3 `json:"lower"`
	Upper Vector3 `json:"upper"`
}

// NewExtent validates lower < upper componentwise.
func NewExtent(lower, upper Vector3) (Extent, error) {
	if lower.X >= upper.X || lower.Y >= upper.Y || lower.Z >= upper.Z {
		return Extent{}, fmt.Errorf("geom: invalid extent lower=%v upper=%v", lower, upper)
	}
	return Extent{Lower: lower, Upper: upper}, nil
}

// MustExtent is like NewExtent but panics on invalid bounds.
func MustExtent(lower, upper Vector3) Extent {
	e, err := NewExtent(lower, upper)
	if err != nil {
		panic(err)
	}
	return e
}

// CentredExtent returns the extent of the given size centred on c.
func CentredExtent(c, size Vector3) Extent {
	h := size.Scale(0.5)
	return Extent{Lower: c.Sub(h), Upper: c.Add(h)}
}

// ExtentOf returns the tightest extent around pts. It returns false when
// the points do not span a volume.
func ExtentOf(pts ...Vector3) (Extent, bool) {
	if len(pts) == 0 {
		return Extent{}, false
	}
	lo, hi := pts[0], pts[0]
	for _, p := range pts[1:] {
		lo = lo.Min(p)
		hi = hi.Max(p)
	}
	e, err := NewExtent(lo, hi)
	return e, err == nil
}

// Size returns Upper - Lower.
func (e Extent) Size() Vector3 {
	return e.Upper.Sub(e.Lower)
}

// Centre returns the midpoint of the box.
func (e Extent) Centre() Vector3 {
	return e.Lower.Add(e.Upper).Scale(0.5)
}

// Volume returns the box volume.
func (e Extent) Volume() float64 {
	s := e.Size()
	return s.X * s.Y * s.Z
}

// Union returns the smallest extent containing both e and o.
func (e Extent) Union(o Extent) Extent {
	return Extent{Lower: e.Lower.Min(o.Lower), Upper: e.Upper.Max(o.Upper)}
}

// Intersect returns the common part of e and o. ok is false when the boxes
// do not share a volume.
func (e Extent) Intersect(o Extent) (Extent, bool) {
	r, err := NewExtent(e.Lower.Max(o.Lower), e.Upper.Min(o.Upper))
	return r, err == nil
}

// Overlaps reports whether e and o touch or overlap. Touching boxes count as
// overlapping so that a prefilter never rejects a pair that the exact test
// could accept.
func (e Extent) Overlaps(o Extent) bool {
	return e.Lower.X <= o.Upper.X && e.Upper.X >= o.Lower.X &&
		e.Lower.Y <= o.Upper.Y && e.Upper.Y >= o.Lower.Y &&
		e.Lower.Z <= o.Upper.Z && e.Upper.Z >= o.Lower.Z
}

// Contains reports whether o lies entirely inside e.
func (e Extent) Contains(o Extent) bool {
	return e.ContainsPoint(o.Lower) && e.ContainsPoint(o.Upper)
}

// ContainsPoint reports whether p lies inside or on the box.
func (e Extent) ContainsPoint(p Vector3) bool {
	return p.X >= e.Lower.X && p.X <= e.Upper.X &&
		p.Y >= e.Lower.Y && p.Y <= e.Upper.Y &&
		p.Z >= e.Lower.Z && p.Z <= e.Upper.Z
}

// Corners returns the eight box vertices.
func (e Extent) Corners() [8]Vector3 {
	var c [8]Vector3
	for i := 0; i < 8; i++ {
		p := e.Lower
		if i&1 != 0 {
			p.X = e.Upper.X
		}
		if i&2 != 0 {
			p.Y = e.Upper.Y
		}
		if i&4 != 0 {
			p.Z = e.Upper.Z
		}
		c[i] = p
	}
	return c
}

// Transformed returns the axis-aligned box around the eight corners of e
// mapped through t.
func (e Extent) Transformed(t Transform) Extent {
	corners := e.Corners()
	lo := t.Apply(corners[0])
	hi := lo
	for _, c := range corners[1:] {
		p := t.Apply(c)
		lo = lo.Min(p)
		hi = hi.Max(p)
	}
	return Extent{Lower: lo, Upper: hi}
}

// Enlarged grows the box by margin on every side.
func (e Extent) Enlarged(margin float64) Extent {
	m := Vector3{margin, margin, margin}
	return Extent{Lower: e.Lower.Sub(m), Upper: e.Upper.Add(m)}
}

// MaxSize returns the longest edge of the box.
func (e Extent) MaxSize() float64 {
	return e.Size().MaxComponent()
}

// ApproxEqual compares both corners within tol.
func (e Extent) ApproxEqual(o Extent, tol float64) bool {
	return e.Lower.ApproxEqual(o.Lower, tol) && e.Upper.ApproxEqual(o.Upper, tol)
}

// BoundingRadius returns half the diagonal of the box.
func (e Extent) BoundingRadius() float64 {
	return e.Size().Length() / 2
}

func (e Extent) String() string {
	return fmt.Sprintf("[%g,%g]x[%g,%g]x[%g,%g]",
		e.Lower.X, e.Upper.X, e.Lower.Y, e.Upper.Y, e.Lower.Z, e.Upper.Z)
}
