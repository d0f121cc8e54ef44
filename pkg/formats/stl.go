package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	stdmath "math"
	"os"
	"strconv"
	"strings"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/Faultbox/voxelizer/pkg/math"
	"github.com/Faultbox/voxelizer/pkg/mesh"
)

// STL format errors.
var (
	ErrInvalidSTL     = errors.New("invalid STL data")
	ErrTruncatedSTL   = errors.New("truncated STL data")
	ErrEmptySTLOutput = errors.New("no triangles to write")
)

const (
	stlHeaderSize   = 80
	stlTriangleSize = 50
)

// ParseSTL decodes binary or ASCII STL. Identical positions are welded
// so the result is an indexed mesh.
func ParseSTL(data []byte) (*mesh.Mesh, error) {
	if isBinarySTL(data) {
		return parseBinarySTL(data)
	}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("solid")) {
		return parseASCIISTL(data)
	}
	if len(data) < stlHeaderSize+4 {
		return nil, ErrTruncatedSTL
	}
	return nil, fmt.Errorf("%w: size does not match triangle count", ErrInvalidSTL)
}

// isBinarySTL checks the triangle count against the file size. ASCII
// files may also start with "solid", so the size is the only safe signal.
func isBinarySTL(data []byte) bool {
	if len(data) < stlHeaderSize+4 {
		return false
	}
	n := binary.LittleEndian.Uint32(data[stlHeaderSize:])
	return uint64(len(data)) == stlHeaderSize+4+uint64(n)*stlTriangleSize
}

func parseBinarySTL(data []byte) (*mesh.Mesh, error) {
	n := int(binary.LittleEndian.Uint32(data[stlHeaderSize:]))
	w := newWelder(n)
	off := stlHeaderSize + 4
	for i := 0; i < n; i++ {
		rec := data[off : off+stlTriangleSize]
		// Skip the 12-byte facet normal; winding defines orientation.
		for j := 0; j < 3; j++ {
			base := 12 + j*12
			w.add(math.Vec3{
				X: readFloat32(rec[base:]),
				Y: readFloat32(rec[base+4:]),
				Z: readFloat32(rec[base+8:]),
			})
		}
		off += stlTriangleSize
	}
	return w.mesh(), nil
}

func readFloat32(b []byte) float32 {
	return stdmath.Float32frombits(binary.LittleEndian.Uint32(b))
}

func parseASCIISTL(data []byte) (*mesh.Mesh, error) {
	w := newWelder(0)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line, corners := 0, 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || fields[0] != "vertex" {
			continue
		}
		if len(fields) != 4 {
			return nil, fmt.Errorf("%w: line %d: vertex needs 3 coordinates", ErrInvalidSTL, line)
		}
		var p [3]float32
		for i := range 3 {
			f, err := strconv.ParseFloat(fields[i+1], 32)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidSTL, line, err)
			}
			p[i] = float32(f)
		}
		w.add(math.Vec3{X: p[0], Y: p[1], Z: p[2]})
		corners++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading STL: %w", err)
	}
	if corners%3 != 0 {
		return nil, fmt.Errorf("%w: %d vertices do not form whole facets", ErrTruncatedSTL, corners)
	}
	return w.mesh(), nil
}

// ParseSTLFile reads an STL file from disk.
func ParseSTLFile(path string) (*mesh.Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading STL file: %w", err)
	}
	return ParseSTL(data)
}

// welder deduplicates exactly equal positions.
type welder struct {
	index    map[math.Vec3]uint32
	vertices []math.Vec3
	indices  []uint32
}

func newWelder(triangles int) *welder {
	return &welder{
		index:   make(map[math.Vec3]uint32, triangles),
		indices: make([]uint32, 0, triangles*3),
	}
}

func (w *welder) add(p math.Vec3) {
	idx, ok := w.index[p]
	if !ok {
		idx = uint32(len(w.vertices))
		w.index[p] = idx
		w.vertices = append(w.vertices, p)
	}
	w.indices = append(w.indices, idx)
}

func (w *welder) mesh() *mesh.Mesh {
	return mesh.New(w.vertices, w.indices)
}

// ToSDFTriangles converts m into sdfx triangles.
func ToSDFTriangles(m *mesh.Mesh) []*sdf.Triangle3 {
	tris := make([]*sdf.Triangle3, 0, m.TriangleCount())
	for _, t := range m.Triangles() {
		tris = append(tris, &sdf.Triangle3{toV3(t.A), toV3(t.B), toV3(t.C)})
	}
	return tris
}

// FromSDFTriangles builds a welded mesh from sdfx triangles.
func FromSDFTriangles(tris []*sdf.Triangle3) *mesh.Mesh {
	w := newWelder(len(tris))
	for _, t := range tris {
		for j := 0; j < 3; j++ {
			w.add(math.Vec3{X: float32(t[j].X), Y: float32(t[j].Y), Z: float32(t[j].Z)})
		}
	}
	return w.mesh()
}

func toV3(p math.Vec3) v3.Vec {
	return v3.Vec{X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)}
}

// SaveSTLFile writes m as binary STL through the sdfx renderer.
func SaveSTLFile(path string, m *mesh.Mesh) error {
	if m.TriangleCount() == 0 {
		return ErrEmptySTLOutput
	}
	if err := render.SaveSTL(path, ToSDFTriangles(m)); err != nil {
		return fmt.Errorf("writing STL file: %w", err)
	}
	return nil
}
