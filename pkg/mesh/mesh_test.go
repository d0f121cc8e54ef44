package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/voxelizer/pkg/math"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mesh    *Mesh
		wantErr bool
	}{
		{"unit cube", UnitCube(), false},
		{"empty", &Mesh{}, false},
		{"ragged indices", New([]math.Vec3{{}, {}, {}}, []uint32{0, 1}), true},
		{"index out of range", New([]math.Vec3{{}, {}, {}}, []uint32{0, 1, 3}), true},
		{"uv mismatch", &Mesh{Vertices: []math.Vec3{{}, {}, {}}, Indices: []uint32{0, 1, 2}, UVs: []math.Vec2{{}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mesh.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidMesh)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestBoxIsClosedAndOutward(t *testing.T) {
	m := Box(Bounds{Min: math.Vec3{X: -1, Y: -2, Z: -3}, Max: math.Vec3{X: 1, Y: 2, Z: 3}})
	require.NoError(t, m.Validate())
	require.Equal(t, 12, m.TriangleCount())

	center := m.Bounds().Center()
	for i, tri := range m.Triangles() {
		centroid := tri.PointAt(1.0/3, 1.0/3, 1.0/3)
		outward := centroid.Sub(center)
		assert.Greater(t, tri.Normal().Dot(outward), float32(0), "triangle %d faces inward", i)
	}

	// Every edge is shared by exactly two triangles.
	edges := map[[2]uint32]int{}
	for i := 0; i < len(m.Indices); i += 3 {
		for j := range 3 {
			a, b := m.Indices[i+j], m.Indices[i+(j+1)%3]
			if a > b {
				a, b = b, a
			}
			edges[[2]uint32{a, b}]++
		}
	}
	for e, n := range edges {
		assert.Equal(t, 2, n, "edge %v", e)
	}
}

func TestBounds(t *testing.T) {
	assert.True(t, EmptyBounds().IsEmpty())
	assert.Equal(t, math.Vec3{}, EmptyBounds().Size())

	b := UnitCube().Bounds()
	assert.Equal(t, math.Vec3{}, b.Min)
	assert.Equal(t, math.Splat(1), b.Max)
	assert.Equal(t, math.Splat(0.5), b.Center())
	assert.True(t, b.Contains(math.Splat(1)))
	assert.False(t, b.Contains(math.Vec3{X: 1.5, Y: 0, Z: 0}))
}

func TestTransformMirrorKeepsOrientation(t *testing.T) {
	m := UnitCube().Transform(math.Scale(math.Vec3{X: -1, Y: 1, Z: 1}))
	center := m.Bounds().Center()
	for i, tri := range m.Triangles() {
		outward := tri.PointAt(1.0/3, 1.0/3, 1.0/3).Sub(center)
		assert.Greater(t, tri.Normal().Dot(outward), float32(0), "triangle %d faces inward", i)
	}
	assert.Equal(t, float32(-1), m.Bounds().Min.X)
}

func TestAppend(t *testing.T) {
	m := UnitCube()
	m.Append(Box(Bounds{Min: math.Splat(2), Max: math.Splat(3)}))
	require.NoError(t, m.Validate())
	assert.Equal(t, 24, m.TriangleCount())
	assert.True(t, m.HasUVs())
	assert.Equal(t, math.Splat(3), m.Bounds().Max)

	m.Append(New([]math.Vec3{{}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}}, []uint32{0, 1, 2}))
	require.NoError(t, m.Validate())
	assert.False(t, m.HasUVs())
}

func TestClosestPoint(t *testing.T) {
	tri := Triangle{A: math.Vec3{}, B: math.Vec3{X: 1, Y: 0, Z: 0}, C: math.Vec3{X: 0, Y: 1, Z: 0}}
	tests := []struct {
		name string
		p    math.Vec3
		want math.Vec3
	}{
		{"inside above", math.Vec3{X: 0.25, Y: 0.25, Z: 5}, math.Vec3{X: 0.25, Y: 0.25, Z: 0}},
		{"vertex A region", math.Vec3{X: -1, Y: -1, Z: 0}, math.Vec3{}},
		{"vertex B region", math.Vec3{X: 2, Y: -1, Z: 0}, math.Vec3{X: 1, Y: 0, Z: 0}},
		{"edge AB", math.Vec3{X: 0.5, Y: -1, Z: 0}, math.Vec3{X: 0.5, Y: 0, Z: 0}},
		{"edge BC", math.Vec3{X: 1, Y: 1, Z: 0}, math.Vec3{X: 0.5, Y: 0.5, Z: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tri.PointAt(tri.ClosestPoint(tt.p))
			assert.True(t, got.ApproxEqual(tt.want, 1e-5), "got %v, want %v", got, tt.want)
		})
	}
}
