package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Faultbox/voxelizer/pkg/math"
	"github.com/Faultbox/voxelizer/pkg/voxel"
)

// createTestGrid returns a 3x2x2 grid with a few occupied cells.
func createTestGrid(t *testing.T) *voxel.Grid {
	t.Helper()
	g := voxel.NewGrid(3, 2, 2, 0.5, math.Vec3{X: -1, Y: 2, Z: 0.25})
	for _, i := range []int{0, 4, 11} {
		if err := g.Set(i, true, math.Vec2{X: float32(i) / 16, Y: 0.5}); err != nil {
			t.Fatalf("Set(%d) failed: %v", i, err)
		}
	}
	return g
}

func TestVXG_RoundTrip(t *testing.T) {
	g := createTestGrid(t)

	data, err := EncodeVXG(g)
	if err != nil {
		t.Fatalf("EncodeVXG failed: %v", err)
	}
	if want := vxgHeaderSize + g.Len()*vxgCellSize; len(data) != want {
		t.Errorf("encoded size = %d, want %d", len(data), want)
	}

	got, err := ParseVXG(data)
	if err != nil {
		t.Fatalf("ParseVXG failed: %v", err)
	}
	if got.Width() != 3 || got.Height() != 2 || got.Depth() != 2 {
		t.Errorf("dimensions = %dx%dx%d, want 3x2x2", got.Width(), got.Height(), got.Depth())
	}
	if got.UnitLength() != 0.5 {
		t.Errorf("unit = %v, want 0.5", got.UnitLength())
	}
	if got.Origin() != g.Origin() {
		t.Errorf("origin = %v, want %v", got.Origin(), g.Origin())
	}
	for i, want := range g.Cells() {
		c, _ := got.At(i)
		if c != want {
			t.Errorf("cell %d = %+v, want %+v", i, c, want)
		}
	}
}

func TestVXG_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.vxg")
	if err := SaveVXGFile(path, createTestGrid(t)); err != nil {
		t.Fatalf("SaveVXGFile failed: %v", err)
	}
	g, err := ParseVXGFile(path)
	if err != nil {
		t.Fatalf("ParseVXGFile failed: %v", err)
	}
	if g.OccupiedCount() != 3 {
		t.Errorf("occupied = %d, want 3", g.OccupiedCount())
	}
}

func TestVXG_Errors(t *testing.T) {
	valid, err := EncodeVXG(createTestGrid(t))
	if err != nil {
		t.Fatalf("EncodeVXG failed: %v", err)
	}

	badMagic := append([]byte("GRAT"), valid[4:]...)

	badVersion := append([]byte(nil), valid...)
	badVersion[5] = 9

	huge := new(bytes.Buffer)
	huge.WriteString("VXGD")
	huge.Write([]byte{0, 1})
	binary.Write(huge, binary.LittleEndian, [3]uint32{5000, 1, 1})
	binary.Write(huge, binary.LittleEndian, [4]float32{1, 0, 0, 0})

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncatedVXGData},
		{"bad magic", badMagic, ErrInvalidVXGMagic},
		{"bad version", badVersion, ErrUnsupportedVXGVersion},
		{"truncated cells", valid[:len(valid)-1], ErrTruncatedVXGData},
		{"oversized", huge.Bytes(), ErrInvalidVXGDimensions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseVXG(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseVXG error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestVXG_ReleasedGrid(t *testing.T) {
	g := createTestGrid(t)
	g.Release()
	if _, err := EncodeVXG(g); !errors.Is(err, voxel.ErrGridReleased) {
		t.Errorf("EncodeVXG error = %v, want ErrGridReleased", err)
	}
}
