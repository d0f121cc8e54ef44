package mesh

import "github.com/Faultbox/voxelizer/pkg/math"

// boxIndices lists two outward-facing triangles per face over the corners
// of a box, where bit 0 of a corner selects max X, bit 1 max Y, bit 2 max Z.
var boxIndices = []uint32{
	0, 2, 1, 1, 2, 3, // -Z
	4, 5, 6, 5, 7, 6, // +Z
	0, 4, 2, 2, 4, 6, // -X
	1, 3, 5, 3, 7, 5, // +X
	0, 1, 4, 1, 5, 4, // -Y
	2, 6, 3, 3, 6, 7, // +Y
}

// Box builds a closed, outward-wound box spanning b.
// UVs are the XY corner coordinates normalized to [0,1].
func Box(b Bounds) *Mesh {
	m := &Mesh{
		Vertices: make([]math.Vec3, 8),
		UVs:      make([]math.Vec2, 8),
		Indices:  append([]uint32(nil), boxIndices...),
	}
	for i := range 8 {
		p := b.Min
		uv := math.Vec2{}
		if i&1 != 0 {
			p.X = b.Max.X
			uv.X = 1
		}
		if i&2 != 0 {
			p.Y = b.Max.Y
			uv.Y = 1
		}
		if i&4 != 0 {
			p.Z = b.Max.Z
		}
		m.Vertices[i] = p
		m.UVs[i] = uv
	}
	return m
}

// UnitCube returns Box spanning [0,1]^3.
func UnitCube() *Mesh {
	return Box(Bounds{Max: math.Splat(1)})
}
