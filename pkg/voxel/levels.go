package voxel

import (
	"fmt"
	"math/bits"

	"go.uber.org/zap"

	"github.com/Faultbox/voxelizer/pkg/mesh"
)

// GetNearPow2 returns the smallest power of two >= n, or 0 for n <= 0.
func GetNearPow2(n int) int {
	if n <= 0 {
		return 0
	}
	return 1 << bits.Len(uint(n-1))
}

// Levels is a chain of power-of-two grids, finest first. Level i has
// half the resolution of level i-1.
type Levels []*Grid

// VoxelizeLevels rounds count up to a power of two and voxelizes m at
// count, count/2, ... for log2(count)-1 levels, all with power-of-two
// dimensions. Resolutions below 4 have no levels and are rejected.
func VoxelizeLevels(m *mesh.Mesh, count int, opts Options) (Levels, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidResolution, count)
	}
	count = GetNearPow2(count)
	n := bits.Len(uint(count)) - 2
	if n < 1 {
		return nil, fmt.Errorf("%w: levels need at least 4 cells, got %d", ErrInvalidResolution, count)
	}

	opts.Pow2 = true
	levels := make(Levels, 0, n)
	for i := range n {
		g, err := VoxelizeGrid(m, count>>i, opts)
		if err != nil {
			levels.Release()
			return nil, fmt.Errorf("level %d: %w", i, err)
		}
		levels = append(levels, g)
	}

	opts.logger().Debug("voxel levels built",
		zap.Int("count", count),
		zap.Int("levels", n))
	return levels, nil
}

// Release releases every grid in the chain.
func (l Levels) Release() {
	for _, g := range l {
		g.Release()
	}
}
