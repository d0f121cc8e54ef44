// Package mesh defines the indexed triangle mesh consumed by the voxelizer.
package mesh

import (
	"errors"
	"fmt"

	"github.com/Faultbox/voxelizer/pkg/math"
)

// Mesh validation errors.
var (
	ErrInvalidMesh = errors.New("invalid mesh")
)

// Mesh is an indexed triangle list with optional per-vertex UVs.
type Mesh struct {
	Vertices []math.Vec3
	Indices  []uint32
	UVs      []math.Vec2 // empty, or one per vertex
}

// New creates a mesh from positions and indices.
func New(vertices []math.Vec3, indices []uint32) *Mesh {
	return &Mesh{Vertices: vertices, Indices: indices}
}

// Validate checks index bounds and attribute lengths.
func (m *Mesh) Validate() error {
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("%w: index count %d is not a multiple of 3", ErrInvalidMesh, len(m.Indices))
	}
	n := uint32(len(m.Vertices))
	for i, idx := range m.Indices {
		if idx >= n {
			return fmt.Errorf("%w: index %d at %d out of range (%d vertices)", ErrInvalidMesh, idx, i, n)
		}
	}
	if len(m.UVs) != 0 && len(m.UVs) != len(m.Vertices) {
		return fmt.Errorf("%w: %d uvs for %d vertices", ErrInvalidMesh, len(m.UVs), len(m.Vertices))
	}
	return nil
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// HasUVs reports whether the mesh carries texture coordinates.
func (m *Mesh) HasUVs() bool {
	return len(m.UVs) != 0 && len(m.UVs) == len(m.Vertices)
}

// Triangle returns triangle i. The mesh must be valid.
func (m *Mesh) Triangle(i int) Triangle {
	return Triangle{
		A: m.Vertices[m.Indices[i*3]],
		B: m.Vertices[m.Indices[i*3+1]],
		C: m.Vertices[m.Indices[i*3+2]],
	}
}

// TriangleUVs returns the texture coordinates of triangle i.
func (m *Mesh) TriangleUVs(i int) (a, b, c math.Vec2, ok bool) {
	if !m.HasUVs() {
		return a, b, c, false
	}
	return m.UVs[m.Indices[i*3]], m.UVs[m.Indices[i*3+1]], m.UVs[m.Indices[i*3+2]], true
}

// Triangles returns every triangle of the mesh.
func (m *Mesh) Triangles() []Triangle {
	tris := make([]Triangle, m.TriangleCount())
	for i := range tris {
		tris[i] = m.Triangle(i)
	}
	return tris
}

// Bounds returns the axis-aligned bounds of all vertices.
func (m *Mesh) Bounds() Bounds {
	b := EmptyBounds()
	for _, v := range m.Vertices {
		b = b.Extend(v)
	}
	return b
}

// Transform returns a copy of the mesh with every vertex transformed.
// Mirroring transforms flip the winding so faces keep pointing outward.
func (m *Mesh) Transform(t math.Mat4) *Mesh {
	out := &Mesh{
		Vertices: make([]math.Vec3, len(m.Vertices)),
		Indices:  make([]uint32, len(m.Indices)),
		UVs:      append([]math.Vec2(nil), m.UVs...),
	}
	for i, v := range m.Vertices {
		out.Vertices[i] = t.TransformPoint(v)
	}
	copy(out.Indices, m.Indices)
	if t.Determinant3() < 0 {
		for i := 0; i+2 < len(out.Indices); i += 3 {
			out.Indices[i+1], out.Indices[i+2] = out.Indices[i+2], out.Indices[i+1]
		}
	}
	return out
}

// Append adds other's geometry to m, rebasing its indices.
// UVs are kept only if both meshes carry them.
func (m *Mesh) Append(other *Mesh) {
	base := uint32(len(m.Vertices))
	keepUV := (len(m.Vertices) == 0 || m.HasUVs()) && other.HasUVs()
	m.Vertices = append(m.Vertices, other.Vertices...)
	for _, idx := range other.Indices {
		m.Indices = append(m.Indices, idx+base)
	}
	if keepUV {
		m.UVs = append(m.UVs, other.UVs...)
	} else {
		m.UVs = nil
	}
}
