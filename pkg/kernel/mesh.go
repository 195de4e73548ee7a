package kernel

import (
	"math"

	"github.com/chazu/zonecsg/pkg/geom"
)

// Mesh is a triangle mesh suitable for rendering or export.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	PartName string    `json:"partName"` // placement this came from, "<region>#<zone>"
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

func (m *Mesh) vertex(i uint32) geom.Vector3 {
	return geom.Vec(float64(m.Vertices[i*3]), float64(m.Vertices[i*3+1]), float64(m.Vertices[i*3+2]))
}

// Volume returns the enclosed volume of a closed, outward-wound mesh.
func (m *Mesh) Volume() float64 {
	var v float64
	for t := 0; t+2 < len(m.Indices); t += 3 {
		a, b, c := m.vertex(m.Indices[t]), m.vertex(m.Indices[t+1]), m.vertex(m.Indices[t+2])
		v += a.Dot(b.Cross(c))
	}
	return v / 6
}

// Extent returns the bounding box of the vertices. ok is false for empty
// or flat meshes.
func (m *Mesh) Extent() (geom.Extent, bool) {
	pts := make([]geom.Vector3, m.VertexCount())
	for i := range pts {
		pts[i] = m.vertex(uint32(i))
	}
	return geom.ExtentOf(pts...)
}

// ComputeNormals replaces Normals with per-vertex normals averaged over the
// faces incident on each vertex.
func (m *Mesh) ComputeNormals() {
	numVerts := m.VertexCount()
	normals := make([]float32, numVerts*3)

	for t := 0; t+2 < len(m.Indices); t += 3 {
		i0, i1, i2 := m.Indices[t], m.Indices[t+1], m.Indices[t+2]
		a, b, c := m.vertex(i0), m.vertex(i1), m.vertex(i2)
		n := b.Sub(a).Cross(c.Sub(a))
		for _, idx := range []uint32{i0, i1, i2} {
			normals[idx*3+0] += float32(n.X)
			normals[idx*3+1] += float32(n.Y)
			normals[idx*3+2] += float32(n.Z)
		}
	}

	for i := 0; i < numVerts; i++ {
		nx := float64(normals[i*3+0])
		ny := float64(normals[i*3+1])
		nz := float64(normals[i*3+2])
		length := math.Sqrt(nx*nx + ny*ny + nz*nz)
		if length > 1e-12 {
			normals[i*3+0] = float32(nx / length)
			normals[i*3+1] = float32(ny / length)
			normals[i*3+2] = float32(nz / length)
		}
	}
	m.Normals = normals
}
