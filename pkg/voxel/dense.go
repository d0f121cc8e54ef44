package voxel

import (
	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/Faultbox/voxelizer/internal/workpool"
	"github.com/Faultbox/voxelizer/pkg/math"
	"github.com/Faultbox/voxelizer/pkg/mesh"
)

// VoxelizeGrid rasterizes m into a dense grid with count cells along the
// longest axis of the domain. The grid origin is the domain minimum.
//
// In ModeVolume a cell is filled when its center is inside the solid,
// decided by the parity of +Z ray crossings below the center. In
// ModeSurface a cell is filled when any triangle touches its box. With
// SampleUV, cells touched by a triangle store the UV interpolated at the
// point of the nearest touching triangle closest to the cell center.
func VoxelizeGrid(m *mesh.Mesh, count int, opts Options) (*Grid, error) {
	tris, b, unit, err := prepare(m, count, opts)
	if err != nil {
		return nil, err
	}
	log := opts.logger()
	if tris == nil {
		origin := b.Min
		if b.IsEmpty() {
			origin = math.Vec3{}
		}
		g := NewGrid(0, 0, 0, unit, origin)
		g.SetLogger(log)
		return g, nil
	}

	size := b.Size()
	w := gridDim(size.X, unit, opts.Pow2)
	h := gridDim(size.Y, unit, opts.Pow2)
	d := gridDim(size.Z, unit, opts.Pow2)
	g := NewGrid(w, h, d, unit, b.Min)
	g.SetLogger(log)

	sampleUV := opts.SampleUV && m.HasUVs()
	if opts.SampleUV && !sampleUV {
		log.Debug("uv sampling requested but mesh has no uvs")
	}

	f := &columnFiller{
		grid:     g,
		mesh:     m,
		tris:     tris,
		bins:     binTriangles(tris, b, unit, w, h, unit*0.5),
		mode:     opts.Mode,
		sampleUV: sampleUV,
		log:      log,
	}
	workpool.For(h, opts.workers(), func(j int) {
		s := newColumnScratch(d)
		for i := range w {
			f.fill(i, j, s)
		}
	})

	log.Debug("dense voxelization done",
		zap.Int("count", count),
		zap.Stringer("mode", opts.Mode),
		zap.Bool("pow2", opts.Pow2),
		zap.Int("width", w),
		zap.Int("height", h),
		zap.Int("depth", d),
		zap.Float32("unit", unit))
	return g, nil
}

// gridDim returns ceil(size/unit), at least 1, optionally rounded up to
// a power of two.
func gridDim(size, unit float32, pow2 bool) int {
	n := max(int(math32.Ceil(size/unit-dimTolerance)), 1)
	if pow2 {
		n = GetNearPow2(n)
	}
	return n
}

type columnFiller struct {
	grid     *Grid
	mesh     *mesh.Mesh
	tris     []mesh.Triangle
	bins     *columnBins
	mode     Mode
	sampleUV bool
	log      *zap.Logger
}

// columnScratch is per-worker state for one column of cells.
type columnScratch struct {
	hits    []HitResult
	touched []bool
	best    []float32
	bestTri []int32
}

func newColumnScratch(depth int) *columnScratch {
	return &columnScratch{
		touched: make([]bool, depth),
		best:    make([]float32, depth),
		bestTri: make([]int32, depth),
	}
}

func (s *columnScratch) reset() {
	for k := range s.touched {
		s.touched[k] = false
		s.best[k] = math32.Inf(1)
		s.bestTri[k] = -1
	}
}

// fill computes every cell of column (i, j). Workers own whole rows, so
// the cells written here are never shared.
func (f *columnFiller) fill(i, j int, s *columnScratch) {
	g := f.grid
	unit := g.unit
	half := unit * 0.5
	candidates := f.bins.at(i, j)
	if len(candidates) == 0 {
		return
	}
	s.reset()

	first, ok := g.Index(i, j, 0)
	if !ok {
		return
	}
	plane := g.width * g.height

	if f.mode == ModeSurface || f.sampleUV {
		f.touch(i, j, candidates, s)
	}

	var hits []HitResult
	if f.mode == ModeVolume {
		c := g.cells[first].Position
		ray := Ray{Origin: math.Vec3{X: c.X, Y: c.Y, Z: g.origin.Z - half}, Direction: up}
		s.hits = castRay(ray, f.tris, candidates, unit*mergeTolerance, s.hits)
		hits = s.hits
		if len(hits)%2 != 0 {
			f.log.Debug("odd ray parity", zap.Int("x", i), zap.Int("y", j), zap.Int("hits", len(hits)))
		}
	}

	p := 0
	for k := range g.depth {
		var flag bool
		switch f.mode {
		case ModeSurface:
			flag = s.touched[k]
		default:
			center := float32(k+1) * unit
			for p < len(hits) && hits[p].Distance < center {
				p++
			}
			flag = p%2 == 1
		}
		if !flag {
			continue
		}

		cell := &g.cells[first+k*plane]
		cell.Flag = true
		if f.sampleUV && s.bestTri[k] >= 0 {
			cell.UV = f.uvAt(int(s.bestTri[k]), cell.Position)
		}
	}
}

// touch marks the cells of the column that a candidate triangle overlaps
// and records the nearest such triangle per cell.
func (f *columnFiller) touch(i, j int, candidates []int32, s *columnScratch) {
	g := f.grid
	unit := g.unit
	halfExtent := math.Splat(unit * 0.5)
	for _, ti := range candidates {
		tri := f.tris[ti]
		tb := tri.Bounds()
		k0 := max(int(math32.Floor((tb.Min.Z-g.origin.Z)/unit))-1, 0)
		k1 := min(int(math32.Floor((tb.Max.Z-g.origin.Z)/unit))+1, g.depth-1)
		for k := k0; k <= k1; k++ {
			center := g.center(i, j, k)
			if !triangleBoxOverlap(tri, center, halfExtent) {
				continue
			}
			s.touched[k] = true
			if !f.sampleUV {
				continue
			}
			dist := tri.PointAt(tri.ClosestPoint(center)).Distance(center)
			if dist < s.best[k] {
				s.best[k] = dist
				s.bestTri[k] = ti
			}
		}
	}
}

func (f *columnFiller) uvAt(ti int, p math.Vec3) math.Vec2 {
	a, b, c, ok := f.mesh.TriangleUVs(ti)
	if !ok {
		return math.Vec2{}
	}
	wa, wb, wc := f.tris[ti].ClosestPoint(p)
	return math.Barycentric(a, b, c, wa, wb, wc)
}
