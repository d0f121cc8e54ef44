package voxel

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/voxelizer/pkg/mesh"
)

// columnBins lists, for every XY column of the lattice, the triangles whose
// XY extent reaches the column. Column (i, j) is centered at
// min + (i+0.5, j+0.5)*unit.
type columnBins struct {
	w, h  int
	cells [][]int32
}

// binTriangles assigns each non-degenerate triangle to the columns its XY
// bounds overlap, widened by halo on each side. Bins are built once and
// shared read-only across workers.
func binTriangles(tris []mesh.Triangle, b mesh.Bounds, unit float32, w, h int, halo float32) *columnBins {
	bins := &columnBins{w: w, h: h, cells: make([][]int32, w*h)}
	slack := halo + unit*1e-3
	for ti, tri := range tris {
		if tri.IsDegenerate() {
			continue
		}
		tb := tri.Bounds()
		i0, i1, ok := columnRange(tb.Min.X, tb.Max.X, b.Min.X, unit, slack, w)
		if !ok {
			continue
		}
		j0, j1, ok := columnRange(tb.Min.Y, tb.Max.Y, b.Min.Y, unit, slack, h)
		if !ok {
			continue
		}
		for j := j0; j <= j1; j++ {
			for i := i0; i <= i1; i++ {
				c := j*w + i
				bins.cells[c] = append(bins.cells[c], int32(ti))
			}
		}
	}
	return bins
}

// noCandidates is non-nil so castRay does not fall back to every triangle.
var noCandidates = []int32{}

func (c *columnBins) at(i, j int) []int32 {
	if list := c.cells[j*c.w+i]; list != nil {
		return list
	}
	return noCandidates
}

// columnRange returns the columns whose centers lie within [lo-slack, hi+slack].
func columnRange(lo, hi, origin, unit, slack float32, n int) (int, int, bool) {
	a := int(math32.Ceil((lo-slack-origin)/unit - 0.5))
	b := int(math32.Floor((hi+slack-origin)/unit - 0.5))
	if b < 0 || a > n-1 {
		return 0, 0, false
	}
	return max(a, 0), min(b, n-1), a <= b
}
