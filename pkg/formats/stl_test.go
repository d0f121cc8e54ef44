package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Faultbox/voxelizer/pkg/math"
	"github.com/Faultbox/voxelizer/pkg/mesh"
)

// createTestSTL encodes m as binary STL.
func createTestSTL(m *mesh.Mesh) []byte {
	buf := new(bytes.Buffer)
	buf.Write(make([]byte, stlHeaderSize))
	binary.Write(buf, binary.LittleEndian, uint32(m.TriangleCount()))
	for _, tri := range m.Triangles() {
		n := tri.Normal().Normalize()
		binary.Write(buf, binary.LittleEndian, [3]float32{n.X, n.Y, n.Z})
		for _, p := range []math.Vec3{tri.A, tri.B, tri.C} {
			binary.Write(buf, binary.LittleEndian, [3]float32{p.X, p.Y, p.Z})
		}
		binary.Write(buf, binary.LittleEndian, uint16(0))
	}
	return buf.Bytes()
}

func TestParseSTL_Binary(t *testing.T) {
	m, err := ParseSTL(createTestSTL(mesh.UnitCube()))
	if err != nil {
		t.Fatalf("ParseSTL failed: %v", err)
	}
	if m.TriangleCount() != 12 {
		t.Errorf("triangles = %d, want 12", m.TriangleCount())
	}
	if len(m.Vertices) != 8 {
		t.Errorf("welded vertices = %d, want 8", len(m.Vertices))
	}
}

func TestParseSTL_ASCII(t *testing.T) {
	src := `solid tri
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 0 1 0
    endloop
  endfacet
endsolid tri
`
	m, err := ParseSTL([]byte(src))
	if err != nil {
		t.Fatalf("ParseSTL failed: %v", err)
	}
	if m.TriangleCount() != 1 {
		t.Errorf("triangles = %d, want 1", m.TriangleCount())
	}
	if m.Vertices[1] != (math.Vec3{X: 1}) {
		t.Errorf("vertex 1 = %v, want (1,0,0)", m.Vertices[1])
	}
}

func TestParseSTL_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short", []byte("abc"), ErrTruncatedSTL},
		{"size mismatch", append(createTestSTL(mesh.UnitCube()), 0), ErrInvalidSTL},
		{"partial facet", []byte("solid x\nvertex 0 0 0\nvertex 1 0 0\n"), ErrTruncatedSTL},
		{"bad coordinate", []byte("solid x\nvertex 0 a 0\n"), ErrInvalidSTL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSTL(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseSTL error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSaveSTLFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cube.stl")
	if err := SaveSTLFile(path, mesh.UnitCube()); err != nil {
		t.Fatalf("SaveSTLFile failed: %v", err)
	}
	m, err := ParseSTLFile(path)
	if err != nil {
		t.Fatalf("ParseSTLFile failed: %v", err)
	}
	if m.TriangleCount() != 12 {
		t.Errorf("triangles = %d, want 12", m.TriangleCount())
	}

	if err := SaveSTLFile(path, &mesh.Mesh{}); !errors.Is(err, ErrEmptySTLOutput) {
		t.Errorf("SaveSTLFile(empty) error = %v, want ErrEmptySTLOutput", err)
	}
}

func TestSDFTriangles(t *testing.T) {
	cube := mesh.UnitCube()
	back := FromSDFTriangles(ToSDFTriangles(cube))
	if back.TriangleCount() != 12 || len(back.Vertices) != 8 {
		t.Errorf("round trip = %d triangles, %d vertices; want 12, 8", back.TriangleCount(), len(back.Vertices))
	}
}
