package mesher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/voxelizer/pkg/math"
	"github.com/Faultbox/voxelizer/pkg/mesh"
	"github.com/Faultbox/voxelizer/pkg/voxel"
)

func gridWith(t *testing.T, w, h, d int, occupied ...int) *voxel.Grid {
	t.Helper()
	g := voxel.NewGrid(w, h, d, 1, math.Vec3{})
	for _, i := range occupied {
		require.NoError(t, g.Set(i, true, math.Vec2{X: 0.25, Y: 0.75}))
	}
	return g
}

// requireOutwardWinding checks every triangle faces along its vertex normal.
func requireOutwardWinding(t *testing.T, m *Mesh) {
	t.Helper()
	for i := 0; i < len(m.Indices); i += 3 {
		a, b, c := m.Positions[m.Indices[i]], m.Positions[m.Indices[i+1]], m.Positions[m.Indices[i+2]]
		n := m.Normals[m.Indices[i]]
		face := b.Sub(a).Cross(c.Sub(a))
		require.Greater(t, face.Dot(n), float32(0), "triangle %d winds against its normal", i/3)
	}
}

func TestBuildSingleVoxel(t *testing.T) {
	g := gridWith(t, 1, 1, 1, 0)
	m, err := Build(g, Options{})
	require.NoError(t, err)

	assert.Equal(t, 24, m.VertexCount())
	assert.Equal(t, 12, m.TriangleCount())
	assert.Equal(t, IndexUInt16, m.IndexFormat())
	assert.Equal(t, math.Vec3{}, m.Bounds.Min)
	assert.Equal(t, math.Splat(1), m.Bounds.Max)
	requireOutwardWinding(t, m)

	for v := range m.VertexCount() {
		assert.Equal(t, math.Splat(0.5), m.Centers[v])
		// Each vertex sits on the face its normal points through.
		d := m.Positions[v].Sub(m.Centers[v]).Dot(m.Normals[v])
		assert.InDelta(t, 0.5, d, 1e-6)
	}
}

func TestBuildFaceTable(t *testing.T) {
	want := map[Face]math.Vec3{
		FaceBack:    {Z: -1},
		FaceRight:   {X: 1},
		FaceForward: {Z: 1},
		FaceLeft:    {X: -1},
		FaceUp:      {Y: 1},
		FaceDown:    {Y: -1},
	}
	for f, n := range want {
		p := FacePlane(f, math.Vec3{}, 2)
		assert.Equal(t, n, p.Normal, "face %d", f)
		assert.Equal(t, n, p.Offset, "face %d", f)
		assert.Equal(t, n.Scale(4), p.Up.Cross(p.Right), "face %d basis", f)
	}
}

func TestBuildQuadAndVertexCounts(t *testing.T) {
	box := mesh.Box(mesh.Bounds{Max: math.Vec3{X: 3, Y: 2, Z: 2}})
	g, err := voxel.VoxelizeGrid(box, 6, voxel.Options{Mode: voxel.ModeSurface})
	require.NoError(t, err)
	n := g.OccupiedCount()
	require.Positive(t, n)

	m, err := Build(g, Options{})
	require.NoError(t, err)
	assert.Equal(t, 6*n*2, m.TriangleCount(), "quads == 6 * occupied")
	assert.Equal(t, 24*n, m.VertexCount())
	requireOutwardWinding(t, m)
}

func TestBuildSkipsEmptyCells(t *testing.T) {
	g := gridWith(t, 3, 1, 1, 0, 2)
	m, err := Build(g, Options{})
	require.NoError(t, err)

	empty, _ := g.At(1)
	for v, c := range m.Centers {
		assert.NotEqual(t, empty.Position, c, "vertex %d belongs to an empty cell", v)
	}
	assert.Equal(t, 48, m.VertexCount())
}

func TestBuildOrderFollowsCellIndex(t *testing.T) {
	g := gridWith(t, 2, 2, 2, 7, 0, 5)
	m, err := Build(g, Options{})
	require.NoError(t, err)

	for k, idx := range []int{0, 5, 7} {
		c, _ := g.At(idx)
		assert.Equal(t, c.Position, m.Centers[k*24], "voxel %d", k)
	}
}

func TestBuildUseUV(t *testing.T) {
	g := gridWith(t, 1, 1, 1, 0)

	patch, err := Build(g, Options{})
	require.NoError(t, err)
	assert.Equal(t, []math.Vec2{{}, {X: 1}, {Y: 1}, {X: 1, Y: 1}}, patch.UVs[:4])

	broadcast, err := Build(g, Options{UseUV: true})
	require.NoError(t, err)
	for _, uv := range broadcast.UVs {
		assert.Equal(t, math.Vec2{X: 0.25, Y: 0.75}, uv)
	}
}

func TestBuildCullHidden(t *testing.T) {
	// Two adjacent voxels share one interior face pair.
	g := gridWith(t, 2, 1, 1, 0, 1)
	m, err := Build(g, Options{CullHidden: true})
	require.NoError(t, err)
	assert.Equal(t, 10*4, m.VertexCount())
	requireOutwardWinding(t, m)
}

func TestBuildSegments(t *testing.T) {
	g := gridWith(t, 1, 1, 1, 0)
	m, err := Build(g, Options{RSegments: 3, USegments: 4})
	require.NoError(t, err)
	assert.Equal(t, 6*12, m.VertexCount())
	assert.Equal(t, 6*2*3*2, m.TriangleCount())
	requireOutwardWinding(t, m)

	_, err = Build(g, Options{RSegments: 1})
	require.ErrorIs(t, err, ErrInvalidSegments)
}

func TestBuildDeterministicAcrossWorkers(t *testing.T) {
	box := mesh.Box(mesh.Bounds{Max: math.Vec3{X: 5, Y: 3, Z: 4}})
	g, err := voxel.VoxelizeGrid(box, 12, voxel.Options{})
	require.NoError(t, err)

	a, err := Build(g, Options{Workers: 1})
	require.NoError(t, err)
	b, err := Build(g, Options{Workers: 7})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuildReleasedGrid(t *testing.T) {
	g := gridWith(t, 1, 1, 1, 0)
	g.Release()
	_, err := Build(g, Options{})
	require.ErrorIs(t, err, voxel.ErrGridReleased)
	_, err = BuildPoints(g)
	require.ErrorIs(t, err, voxel.ErrGridReleased)
}

func TestBuildPlane(t *testing.T) {
	var m Mesh
	p := FacePlane(FaceUp, math.Vec3{X: 1, Y: 1, Z: 1}, 2)
	require.NoError(t, BuildPlane(&m, p, 2, 2))
	require.NoError(t, BuildPlane(&m, p, 2, 2))
	assert.Equal(t, 8, m.VertexCount())
	assert.Equal(t, []uint32{4, 6, 5, 5, 6, 7}, m.Indices[6:])
	for _, v := range m.Positions {
		assert.Equal(t, float32(2), v.Y)
	}

	err := BuildPlane(&m, p, 2, 1)
	require.ErrorIs(t, err, ErrInvalidSegments)
}

func TestBuildPoints(t *testing.T) {
	g := gridWith(t, 2, 3, 4, 1)
	m, err := BuildPoints(g)
	require.NoError(t, err)
	assert.Equal(t, Points, m.Topology)
	assert.Equal(t, 24, m.VertexCount())
	assert.Equal(t, 0, m.TriangleCount())
	for i, idx := range m.Indices {
		assert.Equal(t, uint32(i), idx)
	}
	assert.Equal(t, math.Splat(0.5), m.Bounds.Min)
}

func TestIndexFormat(t *testing.T) {
	tests := []struct {
		vertices int
		want     IndexFormat
	}{
		{0, IndexUInt16},
		{65535, IndexUInt16},
		{65536, IndexUInt32},
	}
	for _, tt := range tests {
		m := &Mesh{Positions: make([]math.Vec3, tt.vertices)}
		assert.Equal(t, tt.want, m.IndexFormat(), "%d vertices", tt.vertices)
	}

	big := &Mesh{Positions: make([]math.Vec3, 70000)}
	_, err := big.Indices16()
	require.ErrorIs(t, err, ErrIndexOverflow)

	small := &Mesh{Positions: make([]math.Vec3, 3), Indices: []uint32{0, 2, 1}}
	idx, err := small.Indices16()
	require.NoError(t, err)
	assert.Equal(t, []uint16{0, 2, 1}, idx)
}

func TestLargeGridNeedsWideIndices(t *testing.T) {
	// 2731 voxels * 24 vertices exceeds the 16-bit range.
	g := voxel.NewGrid(2731, 1, 1, 1, math.Vec3{})
	for i := range g.Len() {
		require.NoError(t, g.Set(i, true, math.Vec2{}))
	}
	m, err := Build(g, Options{})
	require.NoError(t, err)
	assert.Equal(t, IndexUInt32, m.IndexFormat())
	assert.Equal(t, uint32(m.VertexCount()-1), m.Indices[len(m.Indices)-1])
}
