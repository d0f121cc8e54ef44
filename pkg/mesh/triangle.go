package mesh

import "github.com/Faultbox/voxelizer/pkg/math"

// Triangle is a read-only view of three mesh vertices.
type Triangle struct {
	A, B, C math.Vec3
}

// Normal returns the unnormalized face normal (B-A) x (C-A).
func (t Triangle) Normal() math.Vec3 {
	return t.B.Sub(t.A).Cross(t.C.Sub(t.A))
}

// Bounds returns the triangle's bounding box.
func (t Triangle) Bounds() Bounds {
	return Bounds{
		Min: t.A.Min(t.B).Min(t.C),
		Max: t.A.Max(t.B).Max(t.C),
	}
}

// IsDegenerate reports whether the triangle has zero area.
func (t Triangle) IsDegenerate() bool {
	return t.Normal() == (math.Vec3{})
}

// ClosestPoint returns the barycentric weights of the point on t nearest to p.
// Ericson, Real-Time Collision Detection, 5.1.5.
func (t Triangle) ClosestPoint(p math.Vec3) (wa, wb, wc float32) {
	ab := t.B.Sub(t.A)
	ac := t.C.Sub(t.A)
	ap := p.Sub(t.A)
	d1, d2 := ab.Dot(ap), ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return 1, 0, 0
	}

	bp := p.Sub(t.B)
	d3, d4 := ab.Dot(bp), ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return 0, 1, 0
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return 1 - v, v, 0
	}

	cp := p.Sub(t.C)
	d5, d6 := ab.Dot(cp), ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return 0, 0, 1
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return 1 - w, 0, w
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return 0, 1 - w, w
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return 1 - v - w, v, w
}

// PointAt returns the point for the given barycentric weights.
func (t Triangle) PointAt(wa, wb, wc float32) math.Vec3 {
	return t.A.Scale(wa).Add(t.B.Scale(wb)).Add(t.C.Scale(wc))
}
