// Package mesher rebuilds renderable geometry from dense voxel grids.
package mesher

import (
	"errors"
	"fmt"

	"github.com/Faultbox/voxelizer/pkg/math"
	"github.com/Faultbox/voxelizer/pkg/mesh"
)

// Mesher errors.
var (
	ErrInvalidSegments = errors.New("plane needs at least 2 segments per axis")
	ErrIndexOverflow   = errors.New("index does not fit in 16 bits")
)

// IndexFormat is the narrowest index width able to address every vertex.
type IndexFormat int

const (
	IndexUInt16 IndexFormat = iota
	IndexUInt32
)

// String returns the format name.
func (f IndexFormat) String() string {
	if f == IndexUInt16 {
		return "uint16"
	}
	return "uint32"
}

// Topology describes how Indices are grouped.
type Topology int

const (
	Triangles Topology = iota
	Points
)

// maxUInt16Vertices is the largest vertex count addressable by 16-bit indices.
const maxUInt16Vertices = 1<<16 - 1

// Mesh is mesher output. All attribute slices have one entry per vertex.
type Mesh struct {
	Positions []math.Vec3
	Normals   []math.Vec3
	Centers   []math.Vec3 // center of the owning voxel
	UVs       []math.Vec2
	Indices   []uint32
	Topology  Topology
	Bounds    mesh.Bounds
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Positions)
}

// TriangleCount returns the number of triangles, or 0 for point meshes.
func (m *Mesh) TriangleCount() int {
	if m.Topology != Triangles {
		return 0
	}
	return len(m.Indices) / 3
}

// IndexFormat reports whether indices fit 16 bits.
func (m *Mesh) IndexFormat() IndexFormat {
	if m.VertexCount() > maxUInt16Vertices {
		return IndexUInt32
	}
	return IndexUInt16
}

// Indices16 returns the index buffer narrowed to 16 bits.
func (m *Mesh) Indices16() ([]uint16, error) {
	if m.IndexFormat() != IndexUInt16 {
		return nil, fmt.Errorf("%w: %d vertices", ErrIndexOverflow, m.VertexCount())
	}
	out := make([]uint16, len(m.Indices))
	for i, idx := range m.Indices {
		out[i] = uint16(idx)
	}
	return out, nil
}

// RecalculateBounds recomputes Bounds from Positions.
func (m *Mesh) RecalculateBounds() {
	b := mesh.EmptyBounds()
	for _, p := range m.Positions {
		b = b.Extend(p)
	}
	m.Bounds = b
}

// ToMesh converts triangle output back into an indexed input mesh.
// Normals and centers are dropped.
func (m *Mesh) ToMesh() *mesh.Mesh {
	out := &mesh.Mesh{
		Vertices: append([]math.Vec3(nil), m.Positions...),
		UVs:      append([]math.Vec2(nil), m.UVs...),
	}
	if m.Topology == Triangles {
		out.Indices = append([]uint32(nil), m.Indices...)
	}
	return out
}

func (m *Mesh) grow(vertices, indices int) (vbase, ibase int) {
	vbase, ibase = len(m.Positions), len(m.Indices)
	m.Positions = append(m.Positions, make([]math.Vec3, vertices)...)
	m.Normals = append(m.Normals, make([]math.Vec3, vertices)...)
	m.Centers = append(m.Centers, make([]math.Vec3, vertices)...)
	m.UVs = append(m.UVs, make([]math.Vec2, vertices)...)
	m.Indices = append(m.Indices, make([]uint32, indices)...)
	return vbase, ibase
}
