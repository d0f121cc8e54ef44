package mesher

import (
	"fmt"

	"github.com/Faultbox/voxelizer/pkg/math"
)

// Plane is one axis-aligned face of a voxel.
type Plane struct {
	Center math.Vec3 // owning voxel center
	Offset math.Vec3 // from Center to the face center
	Right  math.Vec3 // in-plane basis, full edge length
	Up     math.Vec3
	Normal math.Vec3
}

// planeSize returns the vertex and index counts of a tessellated plane.
func planeSize(rSegments, uSegments int) (vertices, indices int) {
	return rSegments * uSegments, (rSegments - 1) * (uSegments - 1) * 6
}

// BuildPlane appends a plane tessellated into an rSegments x uSegments
// vertex patch to dst. Triangles wind counter-clockwise seen from the
// side Up x Right points to.
func BuildPlane(dst *Mesh, p Plane, rSegments, uSegments int) error {
	if rSegments < 2 || uSegments < 2 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSegments, rSegments, uSegments)
	}
	nv, ni := planeSize(rSegments, uSegments)
	vbase, ibase := dst.grow(nv, ni)
	writePlane(dst, vbase, ibase, p, rSegments, uSegments)
	return nil
}

// writePlane fills a plane into preallocated slots starting at vbase and ibase.
func writePlane(dst *Mesh, vbase, ibase int, p Plane, rSegments, uSegments int) {
	rInv := 1 / float32(rSegments-1)
	uInv := 1 / float32(uSegments-1)
	origin := p.Center.Add(p.Offset)

	v := vbase
	for y := range uSegments {
		ru := float32(y) * uInv
		for x := range rSegments {
			rr := float32(x) * rInv
			dst.Positions[v] = origin.Add(p.Right.Scale(rr - 0.5)).Add(p.Up.Scale(ru - 0.5))
			dst.Normals[v] = p.Normal
			dst.Centers[v] = p.Center
			dst.UVs[v] = math.Vec2{X: rr, Y: ru}
			v++
		}
	}

	i := ibase
	for y := range uSegments - 1 {
		row := uint32(vbase + y*rSegments)
		r := uint32(rSegments)
		for x := range uint32(rSegments - 1) {
			o := row + x
			dst.Indices[i+0] = o
			dst.Indices[i+1] = o + r
			dst.Indices[i+2] = o + 1
			dst.Indices[i+3] = o + 1
			dst.Indices[i+4] = o + r
			dst.Indices[i+5] = o + 1 + r
			i += 6
		}
	}
}
