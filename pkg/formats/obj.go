package formats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/voxelizer/pkg/math"
	"github.com/Faultbox/voxelizer/pkg/mesh"
	"github.com/Faultbox/voxelizer/pkg/mesher"
)

// OBJ format errors.
var (
	ErrInvalidOBJ = errors.New("invalid OBJ data")
)

// objCorner is a face corner: position and texture coordinate indices,
// zero-based, -1 when absent.
type objCorner struct {
	v, vt int
}

// ParseOBJ reads positions, texture coordinates and faces from a Wavefront
// OBJ stream. Polygons are fan-triangulated. Normals, groups and materials
// are ignored. UVs are kept only when every face corner has one.
func ParseOBJ(r io.Reader) (*mesh.Mesh, error) {
	var (
		positions []math.Vec3
		texcoords []math.Vec2
		faces     [][3]objCorner
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "v":
			p, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidOBJ, line, err)
			}
			positions = append(positions, math.Vec3{X: p[0], Y: p[1], Z: p[2]})
		case "vt":
			p, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidOBJ, line, err)
			}
			texcoords = append(texcoords, math.Vec2{X: p[0], Y: p[1]})
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%w: line %d: face needs 3 vertices", ErrInvalidOBJ, line)
			}
			corners := make([]objCorner, 0, len(fields)-1)
			for _, f := range fields[1:] {
				c, err := parseCorner(f, len(positions), len(texcoords))
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidOBJ, line, err)
				}
				corners = append(corners, c)
			}
			for i := 1; i+1 < len(corners); i++ {
				faces = append(faces, [3]objCorner{corners[0], corners[i], corners[i+1]})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading OBJ: %w", err)
	}

	return buildOBJMesh(positions, texcoords, faces), nil
}

// buildOBJMesh splits vertices so each (position, uv) pair gets its own index.
func buildOBJMesh(positions []math.Vec3, texcoords []math.Vec2, faces [][3]objCorner) *mesh.Mesh {
	withUV := len(faces) > 0
	for _, f := range faces {
		for _, c := range f {
			if c.vt < 0 {
				withUV = false
			}
		}
	}

	m := &mesh.Mesh{Indices: make([]uint32, 0, len(faces)*3)}
	if !withUV {
		m.Vertices = positions
		for _, f := range faces {
			for _, c := range f {
				m.Indices = append(m.Indices, uint32(c.v))
			}
		}
		return m
	}

	remap := make(map[objCorner]uint32)
	for _, f := range faces {
		for _, c := range f {
			idx, ok := remap[c]
			if !ok {
				idx = uint32(len(m.Vertices))
				remap[c] = idx
				m.Vertices = append(m.Vertices, positions[c.v])
				m.UVs = append(m.UVs, texcoords[c.vt])
			}
			m.Indices = append(m.Indices, idx)
		}
	}
	return m
}

// parseCorner parses "v", "v/vt", "v//vn" or "v/vt/vn".
func parseCorner(s string, nv, nvt int) (objCorner, error) {
	parts := strings.Split(s, "/")
	v, err := resolveIndex(parts[0], nv)
	if err != nil {
		return objCorner{}, fmt.Errorf("vertex %q: %w", s, err)
	}
	c := objCorner{v: v, vt: -1}
	if len(parts) > 1 && parts[1] != "" {
		vt, err := resolveIndex(parts[1], nvt)
		if err != nil {
			return objCorner{}, fmt.Errorf("texcoord %q: %w", s, err)
		}
		c.vt = vt
	}
	return c, nil
}

// resolveIndex converts a 1-based or negative relative OBJ index.
func resolveIndex(s string, n int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	switch {
	case i > 0 && i <= n:
		return i - 1, nil
	case i < 0 && -i <= n:
		return n + i, nil
	default:
		return 0, fmt.Errorf("index %d out of range (%d defined)", i, n)
	}
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("need %d components, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := range n {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

// ParseOBJFile reads an OBJ file from disk.
func ParseOBJFile(path string) (*mesh.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening OBJ file: %w", err)
	}
	defer f.Close()
	return ParseOBJ(f)
}

// WriteOBJ writes a mesher triangle mesh with positions, UVs and normals.
func WriteOBJ(w io.Writer, m *mesher.Mesh) error {
	if m.Topology != mesher.Triangles {
		return fmt.Errorf("%w: only triangle meshes can be written", ErrInvalidOBJ)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# voxtool: %d vertices, %d triangles\n", m.VertexCount(), m.TriangleCount())
	for _, p := range m.Positions {
		fmt.Fprintf(bw, "v %g %g %g\n", p.X, p.Y, p.Z)
	}
	for _, uv := range m.UVs {
		fmt.Fprintf(bw, "vt %g %g\n", uv.X, uv.Y)
	}
	for _, n := range m.Normals {
		fmt.Fprintf(bw, "vn %g %g %g\n", n.X, n.Y, n.Z)
	}
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a, b, c := m.Indices[i]+1, m.Indices[i+1]+1, m.Indices[i+2]+1
		fmt.Fprintf(bw, "f %d/%d/%d %d/%d/%d %d/%d/%d\n", a, a, a, b, b, b, c, c, c)
	}
	return bw.Flush()
}

// WriteMeshOBJ writes an input mesh with positions and optional UVs.
func WriteMeshOBJ(w io.Writer, m *mesh.Mesh) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# voxtool: %d vertices, %d triangles\n", len(m.Vertices), m.TriangleCount())
	for _, p := range m.Vertices {
		fmt.Fprintf(bw, "v %g %g %g\n", p.X, p.Y, p.Z)
	}
	uv := m.HasUVs()
	if uv {
		for _, t := range m.UVs {
			fmt.Fprintf(bw, "vt %g %g\n", t.X, t.Y)
		}
	}
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a, b, c := m.Indices[i]+1, m.Indices[i+1]+1, m.Indices[i+2]+1
		if uv {
			fmt.Fprintf(bw, "f %d/%d %d/%d %d/%d\n", a, a, b, b, c, c)
		} else {
			fmt.Fprintf(bw, "f %d %d %d\n", a, b, c)
		}
	}
	return bw.Flush()
}
