package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	stdmath "math"
	"os"

	"github.com/Faultbox/voxelizer/pkg/math"
	"github.com/Faultbox/voxelizer/pkg/voxel"
)

// VXG format errors.
var (
	ErrInvalidVXGMagic       = errors.New("invalid VXG magic: expected 'VXGD'")
	ErrUnsupportedVXGVersion = errors.New("unsupported VXG version")
	ErrTruncatedVXGData      = errors.New("truncated VXG data")
	ErrInvalidVXGDimensions  = errors.New("invalid VXG dimensions")
)

const (
	vxgMagic      = "VXGD"
	vxgHeaderSize = 4 + 2 + 3*4 + 4 + 3*4
	vxgCellSize   = 1 + 2*4
	vxgMaxDim     = 4096
	vxgMaxCells   = 1 << 28
)

// VXGVersion is the VXG file version.
type VXGVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v VXGVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// CurrentVXGVersion is written by EncodeVXG.
var CurrentVXGVersion = VXGVersion{Major: 1, Minor: 0}

// VXG layout, little-endian:
//
//	magic   [4]byte "VXGD"
//	version minor uint8, major uint8
//	width, height, depth uint32
//	unit    float32
//	origin  [3]float32
//	cells   W*H*D x { flag uint8, uv [2]float32 }
//
// Cell centers are not stored; they follow from origin and unit.

// ParseVXG decodes a dense grid from raw bytes.
func ParseVXG(data []byte) (*voxel.Grid, error) {
	if len(data) < vxgHeaderSize {
		return nil, ErrTruncatedVXGData
	}
	if string(data[0:4]) != vxgMagic {
		return nil, ErrInvalidVXGMagic
	}

	version := VXGVersion{Major: data[5], Minor: data[4]}
	if version.Major != CurrentVXGVersion.Major {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVXGVersion, version)
	}

	r := bytes.NewReader(data[6:])

	var header struct {
		Width, Height, Depth uint32
		Unit                 float32
		Origin               [3]float32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncatedVXGData)
	}

	w, h, d := header.Width, header.Height, header.Depth
	if w > vxgMaxDim || h > vxgMaxDim || d > vxgMaxDim || uint64(w)*uint64(h)*uint64(d) > vxgMaxCells {
		return nil, fmt.Errorf("%w: %dx%dx%d", ErrInvalidVXGDimensions, w, h, d)
	}
	if header.Unit < 0 {
		return nil, fmt.Errorf("%w: negative unit %v", ErrInvalidVXGDimensions, header.Unit)
	}

	cellCount := int(w * h * d)
	if r.Len() < cellCount*vxgCellSize {
		return nil, fmt.Errorf("%w: %d cells need %d bytes, have %d",
			ErrTruncatedVXGData, cellCount, cellCount*vxgCellSize, r.Len())
	}

	origin := math.Vec3{X: header.Origin[0], Y: header.Origin[1], Z: header.Origin[2]}
	g := voxel.NewGrid(int(w), int(h), int(d), header.Unit, origin)

	cells := data[len(data)-r.Len():]
	for i := 0; i < cellCount; i++ {
		c := cells[i*vxgCellSize : (i+1)*vxgCellSize]
		uv := math.Vec2{
			X: stdmath.Float32frombits(binary.LittleEndian.Uint32(c[1:5])),
			Y: stdmath.Float32frombits(binary.LittleEndian.Uint32(c[5:9])),
		}
		if err := g.Set(i, c[0] != 0, uv); err != nil {
			return nil, fmt.Errorf("setting cell %d: %w", i, err)
		}
	}

	return g, nil
}

// ParseVXGFile decodes a dense grid from disk.
func ParseVXGFile(path string) (*voxel.Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading VXG file: %w", err)
	}
	return ParseVXG(data)
}

// WriteVXG encodes g to w.
func WriteVXG(w io.Writer, g *voxel.Grid) error {
	if g.Released() {
		return voxel.ErrGridReleased
	}

	bw := bufio.NewWriter(w)
	bw.WriteString(vxgMagic)
	bw.WriteByte(CurrentVXGVersion.Minor)
	bw.WriteByte(CurrentVXGVersion.Major)

	o := g.Origin()
	header := struct {
		Width, Height, Depth uint32
		Unit                 float32
		Origin               [3]float32
	}{
		uint32(g.Width()), uint32(g.Height()), uint32(g.Depth()),
		g.UnitLength(),
		[3]float32{o.X, o.Y, o.Z},
	}
	if err := binary.Write(bw, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("writing VXG header: %w", err)
	}

	var buf [vxgCellSize]byte
	for _, c := range g.Cells() {
		buf[0] = 0
		if c.Flag {
			buf[0] = 1
		}
		binary.LittleEndian.PutUint32(buf[1:], stdmath.Float32bits(c.UV.X))
		binary.LittleEndian.PutUint32(buf[5:], stdmath.Float32bits(c.UV.Y))
		if _, err := bw.Write(buf[:]); err != nil {
			return fmt.Errorf("writing VXG cells: %w", err)
		}
	}
	return bw.Flush()
}

// EncodeVXG encodes g into a byte slice.
func EncodeVXG(g *voxel.Grid) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteVXG(&buf, g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveVXGFile writes g to path.
func SaveVXGFile(path string, g *voxel.Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating VXG file: %w", err)
	}
	if err := WriteVXG(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
