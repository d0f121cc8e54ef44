package voxel

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/voxelizer/pkg/math"
	"github.com/Faultbox/voxelizer/pkg/mesh"
)

var boxAxes = [3]math.Vec3{{X: 1}, {Y: 1}, {Z: 1}}

// triangleBoxOverlap reports whether tri touches the box with the given
// center and half extents, using the separating axis test: the three box
// normals, the triangle normal and the nine edge cross products.
// Touching counts as overlap.
func triangleBoxOverlap(tri mesh.Triangle, center, half math.Vec3) bool {
	v0 := tri.A.Sub(center)
	v1 := tri.B.Sub(center)
	v2 := tri.C.Sub(center)

	for _, axis := range boxAxes {
		if separated(axis, v0, v1, v2, half) {
			return false
		}
	}
	if separated(tri.Normal(), v0, v1, v2, half) {
		return false
	}

	edges := [3]math.Vec3{v1.Sub(v0), v2.Sub(v1), v0.Sub(v2)}
	for _, axis := range boxAxes {
		for _, e := range edges {
			a := axis.Cross(e)
			if a.Dot(a) < 1e-12 {
				continue
			}
			if separated(a, v0, v1, v2, half) {
				return false
			}
		}
	}
	return true
}

func separated(axis, v0, v1, v2, half math.Vec3) bool {
	p0, p1, p2 := v0.Dot(axis), v1.Dot(axis), v2.Dot(axis)
	lo := math32.Min(p0, math32.Min(p1, p2))
	hi := math32.Max(p0, math32.Max(p1, p2))
	r := half.X*math32.Abs(axis.X) + half.Y*math32.Abs(axis.Y) + half.Z*math32.Abs(axis.Z)
	return hi < -r || lo > r
}
