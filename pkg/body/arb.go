package body

import (
	"fmt"

	"github.com/chazu/zonecsg/pkg/geom"
	"github.com/chazu/zonecsg/pkg/kernel"
	"github.com/chazu/zonecsg/pkg/solid"
)

// OrientARB resolves the face winding of an ARB body. The polyhedron is
// realised as given and intersected with an enveloping box; a null result
// means the faces point inwards, so the winding is reversed and tested once
// more. Bodies of other kinds are returned unchanged.
func OrientARB(b Body, k kernel.Kernel) (Body, error) {
	d, ok := b.Data.(ARB)
	if !ok {
		return b, nil
	}
	null, err := arbIsNull(b, k)
	if err != nil {
		return Body{}, err
	}
	if !null {
		return b, nil
	}
	r := b
	r.Data = reverseWinding(d)
	null, err = arbIsNull(r, k)
	if err != nil {
		return Body{}, err
	}
	if null {
		return Body{}, &AmbiguousWindingError{Body: b.Name}
	}
	return r, nil
}

func arbIsNull(b Body, k kernel.Kernel) (bool, error) {
	p, err := b.BoundedSolid(nil, DefaultBoundOptions())
	if err != nil {
		return false, err
	}
	s, err := kernel.Realise(k, p)
	if err != nil {
		return false, fmt.Errorf("body %q: %w", b.Name, err)
	}
	env := p.Extent().Enlarged(p.Extent().MaxSize() + 1)
	box, err := kernel.Realise(k, solid.Placed{
		Shape:     solid.Box{Size: env.Size()},
		Transform: geom.Translation(env.Centre()),
	})
	if err != nil {
		return false, fmt.Errorf("body %q: envelope: %w", b.Name, err)
	}
	return k.IsNull(k.Intersection(s, box))
}

func reverseWinding(d ARB) ARB {
	out := d
	for i, f := range d.Faces {
		n := 0
		for _, idx := range f {
			if idx != 0 {
				n++
			}
		}
		for j := 0; j < n; j++ {
			out.Faces[i][j] = f[n-1-j]
		}
	}
	return out
}
