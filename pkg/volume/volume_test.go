package volume

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/voxelizer/pkg/math"
	"github.com/Faultbox/voxelizer/pkg/voxel"
)

func TestBuildOccupancy(t *testing.T) {
	g := voxel.NewGrid(2, 2, 2, 1, math.Vec3{})
	require.NoError(t, g.Set(5, true, math.Vec2{}))

	tex, err := Build(g, Options{})
	require.NoError(t, err)
	assert.Equal(t, [3]int{2, 2, 2}, [3]int{tex.Width, tex.Height, tex.Depth})
	assert.Len(t, tex.Pix, 8*4)

	x, y, z, _ := g.Coords(5)
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, tex.At(x, y, z))
	assert.Equal(t, color.RGBA{}, tex.At(0, 0, 0))
	assert.Equal(t, color.RGBA{}, tex.At(9, 0, 0))
}

func TestBuildLookup(t *testing.T) {
	// Bottom row red, top row blue.
	lookup := image.NewRGBA(image.Rect(0, 0, 2, 2))
	lookup.Set(0, 1, color.RGBA{R: 255, A: 255})
	lookup.Set(1, 1, color.RGBA{R: 255, A: 255})
	lookup.Set(0, 0, color.RGBA{B: 255, A: 255})
	lookup.Set(1, 0, color.RGBA{B: 255, A: 255})

	g := voxel.NewGrid(2, 1, 1, 1, math.Vec3{})
	require.NoError(t, g.Set(0, true, math.Vec2{X: 0.25, Y: 0.1}))
	require.NoError(t, g.Set(1, true, math.Vec2{X: 0.75, Y: 1.9}))

	tex, err := Build(g, Options{Lookup: lookup})
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, tex.At(0, 0, 0))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, tex.At(1, 0, 0), "v wraps into the top row")
}

func TestSliceFlipsRows(t *testing.T) {
	g := voxel.NewGrid(1, 2, 1, 1, math.Vec3{})
	require.NoError(t, g.Set(0, true, math.Vec2{}))

	tex, err := Build(g, Options{})
	require.NoError(t, err)
	img := tex.Slice(0)
	assert.Equal(t, uint8(255), img.RGBAAt(0, 1).A)
	assert.Equal(t, uint8(0), img.RGBAAt(0, 0).A)
}

func TestBuildReleased(t *testing.T) {
	g := voxel.NewGrid(1, 1, 1, 1, math.Vec3{})
	g.Release()
	_, err := Build(g, Options{})
	require.ErrorIs(t, err, voxel.ErrGridReleased)
}

func TestBuildPixLayout(t *testing.T) {
	g := voxel.NewGrid(3, 1, 1, 1, math.Vec3{})
	require.NoError(t, g.Set(0, true, math.Vec2{}))
	require.NoError(t, g.Set(2, true, math.Vec2{}))

	tex, err := Build(g, Options{Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, []uint8{
		255, 255, 255, 255,
		0, 0, 0, 0,
		255, 255, 255, 255,
	}, tex.Pix)
}
