package voxel

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Faultbox/voxelizer/pkg/math"
	"github.com/Faultbox/voxelizer/pkg/mesh"
)

// dimTolerance keeps float drift in size/unit from adding a cell.
const dimTolerance = 1e-4

// Cell is one entry of a dense grid.
type Cell struct {
	Position math.Vec3 // world-space cell center
	Flag     bool      // occupied
	UV       math.Vec2 // sampled surface UV, valid on surface cells
}

// Grid is a dense W*H*D voxel grid, x fastest:
// index = x + y*W + z*W*H.
//
// Dimensions, unit length and origin are fixed at construction. The grid
// owns its cell storage until Release is called; using a released grid is
// a caller bug that panics under the voxeldebug build tag and is logged and
// ignored otherwise.
type Grid struct {
	width, height, depth int
	unit                 float32
	origin               math.Vec3 // min corner of cell (0,0,0)

	cells    []Cell
	released atomic.Bool
	log      *zap.Logger
}

// NewGrid allocates an empty grid and precomputes every cell center.
// Negative dimensions are treated as zero.
func NewGrid(width, height, depth int, unit float32, origin math.Vec3) *Grid {
	width, height, depth = max(width, 0), max(height, 0), max(depth, 0)
	g := &Grid{
		width:  width,
		height: height,
		depth:  depth,
		unit:   unit,
		origin: origin,
		cells:  make([]Cell, width*height*depth),
		log:    zap.NewNop(),
	}
	i := 0
	for z := range depth {
		for y := range height {
			for x := range width {
				g.cells[i].Position = g.center(x, y, z)
				i++
			}
		}
	}
	return g
}

func (g *Grid) center(x, y, z int) math.Vec3 {
	return math.Vec3{
		X: g.origin.X + (float32(x)+0.5)*g.unit,
		Y: g.origin.Y + (float32(y)+0.5)*g.unit,
		Z: g.origin.Z + (float32(z)+0.5)*g.unit,
	}
}

// SetLogger sets where lifecycle violations are reported.
func (g *Grid) SetLogger(log *zap.Logger) {
	if log != nil {
		g.log = log
	}
}

// Width returns the cell count along X.
func (g *Grid) Width() int { return g.width }

// Height returns the cell count along Y.
func (g *Grid) Height() int { return g.height }

// Depth returns the cell count along Z.
func (g *Grid) Depth() int { return g.depth }

// UnitLength returns the cell edge length.
func (g *Grid) UnitLength() float32 { return g.unit }

// Origin returns the min corner of the grid.
func (g *Grid) Origin() math.Vec3 { return g.origin }

// Len returns W*H*D.
func (g *Grid) Len() int { return g.width * g.height * g.depth }

// Bounds returns the world-space box covered by all cells.
func (g *Grid) Bounds() mesh.Bounds {
	return mesh.Bounds{
		Min: g.origin,
		Max: g.origin.Add(math.Vec3{
			X: float32(g.width) * g.unit,
			Y: float32(g.height) * g.unit,
			Z: float32(g.depth) * g.unit,
		}),
	}
}

// Index flattens (x, y, z). ok is false outside the grid.
func (g *Grid) Index(x, y, z int) (int, bool) {
	if x < 0 || y < 0 || z < 0 || x >= g.width || y >= g.height || z >= g.depth {
		return -1, false
	}
	return x + y*g.width + z*g.width*g.height, true
}

// Coords is the inverse of Index.
func (g *Grid) Coords(i int) (x, y, z int, ok bool) {
	if i < 0 || i >= g.Len() {
		return 0, 0, 0, false
	}
	plane := g.width * g.height
	return i % g.width, (i % plane) / g.width, i / plane, true
}

// At returns cell i. ok is false outside the grid or after Release.
func (g *Grid) At(i int) (Cell, bool) {
	if !g.alive("At") || i < 0 || i >= len(g.cells) {
		return Cell{}, false
	}
	return g.cells[i], true
}

// CellAt returns the cell at (x, y, z).
func (g *Grid) CellAt(x, y, z int) (Cell, bool) {
	i, ok := g.Index(x, y, z)
	if !ok {
		return Cell{}, false
	}
	return g.At(i)
}

// Occupied reports whether cell i is filled.
func (g *Grid) Occupied(i int) bool {
	c, ok := g.At(i)
	return ok && c.Flag
}

// Set updates the flag and UV of cell i. Cell centers are immutable.
func (g *Grid) Set(i int, flag bool, uv math.Vec2) error {
	if !g.alive("Set") {
		return ErrGridReleased
	}
	if i < 0 || i >= len(g.cells) {
		return fmt.Errorf("%w: %d (len %d)", ErrCellOutOfRange, i, len(g.cells))
	}
	g.cells[i].Flag = flag
	g.cells[i].UV = uv
	return nil
}

// Cells returns the backing storage. Callers must not modify it or keep
// it past Release.
func (g *Grid) Cells() []Cell {
	if !g.alive("Cells") {
		return nil
	}
	return g.cells
}

// OccupiedCount returns the number of filled cells.
func (g *Grid) OccupiedCount() int {
	n := 0
	for _, c := range g.Cells() {
		if c.Flag {
			n++
		}
	}
	return n
}

// OccupiedIndices returns the indices of filled cells in ascending order.
func (g *Grid) OccupiedIndices() []int {
	var out []int
	for i, c := range g.Cells() {
		if c.Flag {
			out = append(out, i)
		}
	}
	return out
}

// CellBounds returns the box of cell i.
func (g *Grid) CellBounds(i int) (mesh.Bounds, bool) {
	x, y, z, ok := g.Coords(i)
	if !ok {
		return mesh.Bounds{}, false
	}
	lo := g.origin.Add(math.Vec3{X: float32(x), Y: float32(y), Z: float32(z)}.Scale(g.unit))
	return mesh.Bounds{Min: lo, Max: lo.Add(math.Splat(g.unit))}, true
}

// Clone returns an independent copy. Cloning a released grid yields an
// empty grid of the same shape.
func (g *Grid) Clone() *Grid {
	c := NewGrid(g.width, g.height, g.depth, g.unit, g.origin)
	c.log = g.log
	copy(c.cells, g.Cells())
	return c
}

// Release frees the cell storage. A grid must be released exactly once.
func (g *Grid) Release() {
	if g.released.Swap(true) {
		g.violation("Release")
		return
	}
	g.cells = nil
}

// Released reports whether Release has been called.
func (g *Grid) Released() bool {
	return g.released.Load()
}

func (g *Grid) alive(op string) bool {
	if g.released.Load() {
		g.violation(op)
		return false
	}
	return true
}

func (g *Grid) violation(op string) {
	if debugContracts {
		panic(fmt.Sprintf("voxel: %s on released grid", op))
	}
	g.log.Warn("grid used after release", zap.String("op", op))
}
