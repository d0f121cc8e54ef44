// Package shapes builds closed test meshes from sdfx signed distance
// primitives. Meshes are tessellated with uniform marching cubes, so their
// surfaces are watertight but only approximate the analytic shape.
package shapes

import (
	"errors"
	"fmt"
	"sort"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/Faultbox/voxelizer/pkg/formats"
	"github.com/Faultbox/voxelizer/pkg/mesh"
)

// Shape errors.
var (
	ErrUnknownShape = errors.New("unknown shape")
	ErrInvalidSize  = errors.New("shape size must be positive")
)

// DefaultCells is the marching cubes resolution along the longest axis.
const DefaultCells = 64

// Builder creates the SDF for a shape whose bounding box edge is size.
type Builder func(size float64) (sdf.SDF3, error)

var builders = map[string]Builder{
	"box":      Box,
	"sphere":   Sphere,
	"cylinder": Cylinder,
	"tube":     Tube,
}

// Names returns the registered shape names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Box is a cube with edge size centered at the origin.
func Box(size float64) (sdf.SDF3, error) {
	return sdf.Box3D(v3.Vec{X: size, Y: size, Z: size}, 0)
}

// Sphere is a sphere of diameter size.
func Sphere(size float64) (sdf.SDF3, error) {
	return sdf.Sphere3D(size / 2)
}

// Cylinder is a Z-aligned cylinder with height and diameter size.
func Cylinder(size float64) (sdf.SDF3, error) {
	return sdf.Cylinder3D(size, size/2, 0)
}

// Tube is a Cylinder with a coaxial hole of half its diameter.
func Tube(size float64) (sdf.SDF3, error) {
	outer, err := sdf.Cylinder3D(size, size/2, 0)
	if err != nil {
		return nil, err
	}
	inner, err := sdf.Cylinder3D(size*1.1, size/4, 0)
	if err != nil {
		return nil, err
	}
	return sdf.Difference3D(outer, inner), nil
}

// Options configures tessellation.
type Options struct {
	// Size is the bounding box edge length. Zero means 1.
	Size float64
	// Cells is the marching cubes resolution. Zero means DefaultCells.
	Cells int
}

// New tessellates the named shape.
func New(name string, opts Options) (*mesh.Mesh, error) {
	build, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownShape, name, Names())
	}
	size := opts.Size
	if size == 0 {
		size = 1
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSize, size)
	}
	s, err := build(size)
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", name, err)
	}
	return Tessellate(s, opts.Cells), nil
}

// Tessellate renders s into an indexed mesh with cells marching cubes
// steps along its longest bounding box axis.
func Tessellate(s sdf.SDF3, cells int) *mesh.Mesh {
	if cells <= 0 {
		cells = DefaultCells
	}
	renderer := render.NewMarchingCubesUniform(cells)
	return formats.FromSDFTriangles(render.ToTriangles(s, renderer))
}
