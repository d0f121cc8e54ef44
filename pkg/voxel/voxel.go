// Package voxel converts closed triangle meshes into voxels.
//
// Voxelize scans the mesh with +Z rays on a square lattice and pairs the
// sorted crossings of each ray into entry/exit spans, producing a sparse
// list of filled unit cubes. VoxelizeGrid fills a dense W*H*D grid instead,
// using either a solid (ray parity) or a shell (triangle/box overlap) test.
package voxel

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/voxelizer/internal/workpool"
	"github.com/Faultbox/voxelizer/pkg/math"
	"github.com/Faultbox/voxelizer/pkg/mesh"
)

// Voxelization errors.
var (
	ErrInvalidResolution = errors.New("resolution must be positive")
	ErrEmptyMesh         = errors.New("mesh has no triangles")
	ErrGridReleased      = errors.New("grid has been released")
	ErrCellOutOfRange    = errors.New("cell index out of range")
	ErrUnknownMode       = errors.New("unknown voxelization mode")
)

// Voxel is one filled cube of the sparse rasterizer output.
type Voxel struct {
	Position math.Vec3 // world-space center
	Size     float32   // edge length
}

// Mode selects the containment test of the dense rasterizer.
type Mode int

const (
	// ModeVolume fills every cell whose center is inside the solid.
	ModeVolume Mode = iota
	// ModeSurface fills every cell that a triangle passes through.
	ModeSurface
)

// String returns the config name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeVolume:
		return "volume"
	case ModeSurface:
		return "surface"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "volume" or "surface".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "volume", "":
		return ModeVolume, nil
	case "surface":
		return ModeSurface, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Options controls both rasterizers. The zero value is usable.
type Options struct {
	Mode     Mode
	Pow2     bool // round dense dimensions up to powers of two
	SampleUV bool // store interpolated mesh UVs in surface cells

	// Workers bounds the number of goroutines. Zero means GOMAXPROCS.
	Workers int

	// Bounds overrides the mesh bounds as the voxelization domain.
	Bounds *mesh.Bounds

	// RequireNonEmpty turns an empty mesh into ErrEmptyMesh instead of
	// an empty result.
	RequireNonEmpty bool

	Logger *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o Options) workers() int {
	return workpool.Workers(o.Workers)
}

func (o Options) domain(m *mesh.Mesh) mesh.Bounds {
	if o.Bounds != nil {
		return *o.Bounds
	}
	return m.Bounds()
}

// UnitLength returns the cell edge length for count cells along the
// longest axis of b.
func UnitLength(b mesh.Bounds, count int) float32 {
	if count <= 0 {
		return 0
	}
	return b.Size().MaxComponent() / float32(count)
}

// prepare validates the request and extracts the triangles. A nil slice
// with a nil error means the result is empty.
func prepare(m *mesh.Mesh, count int, opts Options) ([]mesh.Triangle, mesh.Bounds, float32, error) {
	if count <= 0 {
		return nil, mesh.Bounds{}, 0, fmt.Errorf("%w: got %d", ErrInvalidResolution, count)
	}
	if err := m.Validate(); err != nil {
		return nil, mesh.Bounds{}, 0, err
	}

	b := opts.domain(m)
	unit := UnitLength(b, count)
	if m.TriangleCount() == 0 || unit <= 0 {
		if opts.RequireNonEmpty {
			return nil, b, 0, ErrEmptyMesh
		}
		return nil, b, 0, nil
	}
	return m.Triangles(), b, unit, nil
}
