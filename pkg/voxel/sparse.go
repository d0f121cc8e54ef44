package voxel

import (
	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/Faultbox/voxelizer/internal/workpool"
	"github.com/Faultbox/voxelizer/pkg/math"
	"github.com/Faultbox/voxelizer/pkg/mesh"
)

// Voxelize rasterizes the solid interior of m into unit cubes, count cubes
// along the longest axis of the domain.
//
// One +Z ray is cast per lattice column. Its sorted crossings are paired
// as entry/exit spans and every lattice step inside a span becomes a
// voxel. A trailing unpaired entry, as left by an open mesh, yields a
// single voxel at that crossing. Output is ordered by column, x fastest.
func Voxelize(m *mesh.Mesh, count int, opts Options) ([]Voxel, error) {
	tris, b, unit, err := prepare(m, count, opts)
	if err != nil || tris == nil {
		return nil, err
	}

	log := opts.logger()
	size := b.Size()
	nx := columnSteps(size.X, unit)
	ny := columnSteps(size.Y, unit)
	half := unit * 0.5
	bins := binTriangles(tris, b, unit, nx, ny, 0)
	tolerance := unit * mergeTolerance

	columns := make([][]Voxel, nx*ny)
	workpool.For(ny, opts.workers(), func(j int) {
		var buf []HitResult
		for i := range nx {
			ray := Ray{
				Origin: math.Vec3{
					X: b.Min.X + (float32(i)+0.5)*unit,
					Y: b.Min.Y + (float32(j)+0.5)*unit,
					Z: b.Min.Z - half,
				},
				Direction: up,
			}
			buf = castRay(ray, tris, bins.at(i, j), tolerance, buf)
			if len(buf)%2 != 0 {
				log.Debug("odd ray parity",
					zap.Int("x", i),
					zap.Int("y", j),
					zap.Int("hits", len(buf)))
			}
			columns[j*nx+i] = spanVoxels(ray, buf, unit)
		}
	})

	total := 0
	for _, c := range columns {
		total += len(c)
	}
	voxels := make([]Voxel, 0, total)
	for _, c := range columns {
		voxels = append(voxels, c...)
	}

	log.Debug("sparse voxelization done",
		zap.Int("count", count),
		zap.Float32("unit", unit),
		zap.Int("columns", nx*ny),
		zap.Int("voxels", len(voxels)))
	return voxels, nil
}

// columnSteps returns the number of lattice columns from the domain
// minimum to its maximum inclusive.
func columnSteps(size, unit float32) int {
	return int(math32.Floor(size/unit+dimTolerance)) + 1
}

// spanVoxels walks the paired crossings of one column ray. A lattice
// point is inside when it lies in (entry, exit], the same rule the dense
// volume fill applies to cell centers.
func spanVoxels(ray Ray, hits []HitResult, unit float32) []Voxel {
	var out []Voxel
	for i, n := 0, len(hits); i < n; i++ {
		switch {
		case i%2 == 1:
			from := latticeAbove(hits[i-1].Distance, unit)
			to := latticeAbove(hits[i].Distance, unit)
			for k := from; k < to; k++ {
				out = append(out, Voxel{Position: ray.At(float32(k) * unit), Size: unit})
			}
		case i == n-1:
			k := latticeAbove(hits[i].Distance, unit)
			out = append(out, Voxel{Position: ray.At(float32(k) * unit), Size: unit})
		}
	}
	return out
}
