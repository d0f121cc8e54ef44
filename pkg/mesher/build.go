package mesher

import (
	"fmt"
	"math/bits"

	"go.uber.org/zap"

	"github.com/Faultbox/voxelizer/internal/workpool"
	"github.com/Faultbox/voxelizer/pkg/math"
	"github.com/Faultbox/voxelizer/pkg/voxel"
)

// Face identifies one side of a voxel.
type Face int

const (
	FaceBack Face = iota // -Z
	FaceRight            // +X
	FaceForward          // +Z
	FaceLeft             // -X
	FaceUp               // +Y
	FaceDown             // -Y
)

const allFaces = 1<<6 - 1

// faceBasis holds each face in unit-cube terms. The face sits at
// normal/2 from the voxel center and up x right == normal, so patches
// wind counter-clockwise seen from outside.
var faceBasis = [6]struct {
	right, up, normal math.Vec3
	step              [3]int
}{
	FaceBack:    {math.Vec3{X: 1}, math.Vec3{Y: 1}, math.Vec3{Z: -1}, [3]int{0, 0, -1}},
	FaceRight:   {math.Vec3{Z: 1}, math.Vec3{Y: 1}, math.Vec3{X: 1}, [3]int{1, 0, 0}},
	FaceForward: {math.Vec3{X: -1}, math.Vec3{Y: 1}, math.Vec3{Z: 1}, [3]int{0, 0, 1}},
	FaceLeft:    {math.Vec3{Z: -1}, math.Vec3{Y: 1}, math.Vec3{X: -1}, [3]int{-1, 0, 0}},
	FaceUp:      {math.Vec3{X: 1}, math.Vec3{Z: 1}, math.Vec3{Y: 1}, [3]int{0, 1, 0}},
	FaceDown:    {math.Vec3{X: 1}, math.Vec3{Z: -1}, math.Vec3{Y: -1}, [3]int{0, -1, 0}},
}

// FacePlane returns the plane of face f for a voxel at center with edge unit.
func FacePlane(f Face, center math.Vec3, unit float32) Plane {
	b := faceBasis[f]
	return Plane{
		Center: center,
		Offset: b.normal.Scale(unit * 0.5),
		Right:  b.right.Scale(unit),
		Up:     b.up.Scale(unit),
		Normal: b.normal,
	}
}

// Options controls Build.
type Options struct {
	// UseUV broadcasts each voxel's sampled UV to all of its vertices
	// instead of patch-local [0,1] coordinates.
	UseUV bool

	// RSegments and USegments set the per-face vertex patch. Zero means 2,
	// a single quad.
	RSegments int
	USegments int

	// CullHidden skips faces shared with an occupied neighbor.
	CullHidden bool

	// Workers bounds the number of goroutines. Zero means GOMAXPROCS.
	Workers int

	Logger *zap.Logger
}

func (o Options) segments() (int, int, error) {
	r, u := o.RSegments, o.USegments
	if r == 0 {
		r = 2
	}
	if u == 0 {
		u = 2
	}
	if r < 2 || u < 2 {
		return 0, 0, fmt.Errorf("%w: %dx%d", ErrInvalidSegments, r, u)
	}
	return r, u, nil
}

// emitChunk is the number of voxels handed to a worker at once.
const emitChunk = 256

// Build emits six independent quads for every occupied cell of g, in
// ascending cell index order. Output slots are reserved by a prefix sum
// over occupied cells, so the result does not depend on Workers.
func Build(g *voxel.Grid, opts Options) (*Mesh, error) {
	if g.Released() {
		return nil, voxel.ErrGridReleased
	}
	r, u, err := opts.segments()
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	workers := workpool.Workers(opts.Workers)

	cells := g.Cells()
	occupied := g.OccupiedIndices()

	masks := make([]uint8, len(occupied))
	workpool.Chunks(len(occupied), emitChunk, workers, func(lo, hi int) {
		for k := lo; k < hi; k++ {
			masks[k] = faceMask(g, cells, occupied[k], opts.CullHidden)
		}
	})

	first := make([]int, len(occupied)+1)
	for k, m := range masks {
		first[k+1] = first[k] + bits.OnesCount8(m)
	}
	faceCount := first[len(occupied)]

	nv, ni := planeSize(r, u)
	out := &Mesh{Topology: Triangles}
	out.grow(faceCount*nv, faceCount*ni)

	unit := g.UnitLength()
	workpool.Chunks(len(occupied), emitChunk, workers, func(lo, hi int) {
		for k := lo; k < hi; k++ {
			cell := cells[occupied[k]]
			slot := first[k]
			for f := range Face(6) {
				if masks[k]&(1<<f) == 0 {
					continue
				}
				writePlane(out, slot*nv, slot*ni, FacePlane(f, cell.Position, unit), r, u)
				if opts.UseUV {
					for v := slot * nv; v < (slot+1)*nv; v++ {
						out.UVs[v] = cell.UV
					}
				}
				slot++
			}
		}
	})
	out.RecalculateBounds()

	log.Debug("voxel mesh built",
		zap.Int("voxels", len(occupied)),
		zap.Int("faces", faceCount),
		zap.Int("vertices", out.VertexCount()),
		zap.Stringer("index_format", out.IndexFormat()))
	return out, nil
}

// faceMask returns the faces of cell i to emit.
func faceMask(g *voxel.Grid, cells []voxel.Cell, i int, cull bool) uint8 {
	if !cull {
		return allFaces
	}
	x, y, z, _ := g.Coords(i)
	var mask uint8
	for f, b := range faceBasis {
		n, ok := g.Index(x+b.step[0], y+b.step[1], z+b.step[2])
		if ok && cells[n].Flag {
			continue
		}
		mask |= 1 << f
	}
	return mask
}

// BuildPoints emits one point per grid cell, occupied or not, at the
// cell center. Normals are zero and UVs carry the cell UV.
func BuildPoints(g *voxel.Grid) (*Mesh, error) {
	if g.Released() {
		return nil, voxel.ErrGridReleased
	}
	cells := g.Cells()
	out := &Mesh{Topology: Points}
	out.grow(len(cells), len(cells))
	for i, c := range cells {
		out.Positions[i] = c.Position
		out.Centers[i] = c.Position
		out.UVs[i] = c.UV
		out.Indices[i] = uint32(i)
	}
	out.RecalculateBounds()
	return out, nil
}
