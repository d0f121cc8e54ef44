package voxel

import (
	"cmp"
	"slices"

	"github.com/chewxy/math32"

	"github.com/Faultbox/voxelizer/pkg/math"
	"github.com/Faultbox/voxelizer/pkg/mesh"
)

// Epsilon is the smallest positive float32. Determinants and ray
// parameters must exceed it in magnitude to count as a hit.
const Epsilon float32 = 0x1p-149

// Crossings closer than unit*mergeTolerance with the same facing are one
// surface crossing split across a shared edge or vertex.
const mergeTolerance = 1e-4

// up is the scan direction of every column ray.
var up = math.Vec3{Z: 1}

// Ray is a half-line query.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3
}

// NewRay returns a ray with a normalized direction.
func NewRay(origin, direction math.Vec3) Ray {
	return Ray{Origin: origin, Direction: direction.Normalize()}
}

// At returns the point at parameter t.
func (r Ray) At(t float32) math.Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// HitResult records where a ray crosses a triangle.
type HitResult struct {
	Triangle mesh.Triangle
	Index    int     // triangle index in the source mesh
	Distance float32 // ray parameter
	Entering bool    // the ray hits the front face
}

// Intersect runs the Moller-Trumbore test and returns the ray parameter
// of the hit. Edges count as inside; degenerate triangles never hit.
func Intersect(r Ray, tri mesh.Triangle) (float32, bool) {
	e1 := tri.B.Sub(tri.A)
	e2 := tri.C.Sub(tri.A)

	p := r.Direction.Cross(e2)
	det := e1.Dot(p)
	if det > -Epsilon && det < Epsilon {
		return 0, false
	}
	inv := 1 / det

	s := r.Origin.Sub(tri.A)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}

	q := s.Cross(e1)
	v := r.Direction.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t := e2.Dot(q) * inv
	if t <= Epsilon {
		return 0, false
	}
	return t, true
}

// CastRay intersects r with every triangle and returns the hits sorted by
// distance, with coincident same-facing crossings merged into one.
func CastRay(r Ray, tris []mesh.Triangle, tolerance float32) []HitResult {
	return castRay(r, tris, nil, tolerance, nil)
}

// castRay tests the triangles listed in candidates, or all of them when
// candidates is nil, appending into buf.
func castRay(r Ray, tris []mesh.Triangle, candidates []int32, tolerance float32, buf []HitResult) []HitResult {
	hits := buf[:0]
	test := func(i int) {
		tri := tris[i]
		if t, ok := Intersect(r, tri); ok {
			hits = append(hits, HitResult{
				Triangle: tri,
				Index:    i,
				Distance: t,
				Entering: tri.Normal().Dot(r.Direction) < 0,
			})
		}
	}
	if candidates == nil {
		for i := range tris {
			test(i)
		}
	} else {
		for _, i := range candidates {
			test(int(i))
		}
	}

	slices.SortStableFunc(hits, func(a, b HitResult) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	return mergeHits(hits, tolerance)
}

func mergeHits(hits []HitResult, tolerance float32) []HitResult {
	if len(hits) < 2 {
		return hits
	}
	out := hits[:1]
	for _, h := range hits[1:] {
		last := out[len(out)-1]
		if h.Distance-last.Distance <= tolerance && h.Entering == last.Entering {
			continue
		}
		out = append(out, h)
	}
	return out
}

// latticeAbove returns the smallest k with k*unit > distance. A column
// ray starts half a cell below the domain, so lattice point k is the
// center of cell k-1 and a span (in, out] covers the points
// latticeAbove(in) through latticeAbove(out)-1.
func latticeAbove(distance, unit float32) int {
	k := int(math32.Floor(distance/unit)) + 1
	for k > 0 && float32(k-1)*unit > distance {
		k--
	}
	for float32(k)*unit <= distance {
		k++
	}
	return k
}
