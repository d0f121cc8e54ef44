package job

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/voxelizer/pkg/formats"
	"github.com/Faultbox/voxelizer/pkg/mesh"
	"github.com/Faultbox/voxelizer/pkg/mesher"
	"github.com/Faultbox/voxelizer/pkg/shapes"
	"github.com/Faultbox/voxelizer/pkg/volume"
	"github.com/Faultbox/voxelizer/pkg/voxel"
)

// Voxelize runs the sparse rasterizer on input and writes the voxels as
// JSON to w. A nil w only counts them.
func (r *Runner) Voxelize(input string, w io.Writer) ([]voxel.Voxel, error) {
	m, err := r.LoadMesh(input)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	voxels, err := voxel.Voxelize(m, r.cfg.Voxelizer.Resolution, r.VoxelOptions())
	if err != nil {
		return nil, fmt.Errorf("voxelizing: %w", err)
	}
	instrumentStage("voxelize", start)
	voxelsGenerated.Add(float64(len(voxels)))
	r.log.Info("voxels generated",
		zap.Int("resolution", r.cfg.Voxelizer.Resolution),
		zap.Int("count", len(voxels)),
		zap.Duration("took", time.Since(start)))

	if w != nil {
		start = time.Now()
		if err := formats.WriteSparseJSON(w, voxels, r.cfg.Output.IndentJSON); err != nil {
			return nil, err
		}
		instrumentStage("write", start)
	}
	return voxels, nil
}

// VoxelizeFile is Voxelize writing to a file path. Nothing is written
// when loading or voxelizing fails.
func (r *Runner) VoxelizeFile(input, output string) ([]voxel.Voxel, error) {
	if err := r.checkOutput(output); err != nil {
		return nil, err
	}
	voxels, err := r.Voxelize(input, nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	err = r.writeFile(output, func(w io.Writer) error {
		return formats.WriteSparseJSON(w, voxels, r.cfg.Output.IndentJSON)
	})
	if err != nil {
		return nil, err
	}
	instrumentStage("write", start)
	r.log.Info("voxels written", zap.String("output", output))
	return voxels, nil
}

// Grid voxelizes input into a dense grid and saves it as VXG.
func (r *Runner) Grid(input, output string) error {
	if formats.Ext(output) != "vxg" {
		return fmt.Errorf("%w: %s (want .vxg)", ErrUnsupportedOutput, output)
	}
	m, err := r.LoadMesh(input)
	if err != nil {
		return err
	}
	g, err := r.VoxelizeGrid(m)
	if err != nil {
		return err
	}
	defer g.Release()

	defer instrumentStage("write", time.Now())
	err = r.writeFile(output, func(w io.Writer) error {
		return formats.WriteVXG(w, g)
	})
	if err != nil {
		return err
	}
	r.log.Info("grid written", zap.String("output", output), zap.Int("cells", g.Len()))
	return nil
}

// Mesh re-meshes a grid (loaded or voxelized from input) and writes OBJ
// or STL.
func (r *Runner) Mesh(input, output string) (*mesher.Mesh, error) {
	ext := formats.Ext(output)
	if ext != "obj" && ext != "stl" {
		return nil, fmt.Errorf("%w: %s (want .obj or .stl)", ErrUnsupportedOutput, output)
	}

	g, err := r.LoadGrid(input)
	if err != nil {
		return nil, err
	}
	defer g.Release()

	start := time.Now()
	vm, err := mesher.Build(g, r.MesherOptions())
	if err != nil {
		return nil, fmt.Errorf("meshing: %w", err)
	}
	instrumentStage("mesh", start)
	trianglesEmitted.Add(float64(vm.TriangleCount()))
	r.log.Info("voxel mesh built",
		zap.Int("vertices", vm.VertexCount()),
		zap.Int("triangles", vm.TriangleCount()),
		zap.Stringer("index_format", vm.IndexFormat()),
		zap.Duration("took", time.Since(start)))

	if err := r.writeMesh(output, vm); err != nil {
		return nil, err
	}
	return vm, nil
}

func (r *Runner) writeMesh(output string, vm *mesher.Mesh) error {
	defer instrumentStage("write", time.Now())
	switch formats.Ext(output) {
	case "stl":
		if err := r.checkOutput(output); err != nil {
			return err
		}
		if err := formats.SaveSTLFile(output, vm.ToMesh()); err != nil {
			// An empty mesh fails before the file is created.
			if !errors.Is(err, formats.ErrEmptySTLOutput) {
				r.removePartial(output, err)
			}
			return err
		}
	default:
		err := r.writeFile(output, func(w io.Writer) error {
			return formats.WriteOBJ(w, vm)
		})
		if err != nil {
			return err
		}
	}
	r.log.Info("mesh written", zap.String("output", output))
	return nil
}

// LevelInfo describes one grid of a level chain.
type LevelInfo struct {
	Level                int
	Width, Height, Depth int
	Unit                 float32
	Occupied             int
}

// Levels voxelizes input at halving resolutions and reports each level.
func (r *Runner) Levels(input string) ([]LevelInfo, error) {
	m, err := r.LoadMesh(input)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	levels, err := voxel.VoxelizeLevels(m, r.cfg.Voxelizer.Resolution, r.VoxelOptions())
	if err != nil {
		return nil, fmt.Errorf("voxelizing levels: %w", err)
	}
	defer levels.Release()
	instrumentStage("voxelize", start)

	infos := make([]LevelInfo, len(levels))
	for i, g := range levels {
		infos[i] = LevelInfo{
			Level:    i,
			Width:    g.Width(),
			Height:   g.Height(),
			Depth:    g.Depth(),
			Unit:     g.UnitLength(),
			Occupied: g.OccupiedCount(),
		}
	}
	r.log.Info("levels voxelized", zap.Int("levels", len(infos)), zap.Duration("took", time.Since(start)))
	return infos, nil
}

// Info summarizes an input.
type Info struct {
	Input string

	// Mesh inputs.
	Vertices, Triangles int
	HasUVs              bool
	Bounds              mesh.Bounds

	// Grid inputs.
	IsGrid               bool
	Width, Height, Depth int
	Unit                 float32
	Occupied             int
}

// Info inspects a mesh or VXG input without voxelizing it.
func (r *Runner) Info(input string) (*Info, error) {
	info := &Info{Input: input}
	if formats.Ext(input) == "vxg" {
		g, err := r.LoadGrid(input)
		if err != nil {
			return nil, err
		}
		defer g.Release()
		info.IsGrid = true
		info.Width, info.Height, info.Depth = g.Width(), g.Height(), g.Depth()
		info.Unit = g.UnitLength()
		info.Occupied = g.OccupiedCount()
		info.Bounds = g.Bounds()
		return info, nil
	}

	m, err := r.LoadMesh(input)
	if err != nil {
		return nil, err
	}
	info.Vertices = len(m.Vertices)
	info.Triangles = m.TriangleCount()
	info.HasUVs = m.HasUVs()
	info.Bounds = m.Bounds()
	return info, nil
}

// Volume bakes a grid into a 3D texture and writes one PNG per Z slice
// into dir as slice_000.png, slice_001.png and so on. lookup may be empty.
func (r *Runner) Volume(input, dir, lookup string) (*volume.Texture, error) {
	var img image.Image
	if lookup != "" {
		var err error
		if img, err = formats.LoadImage(lookup); err != nil {
			return nil, err
		}
	}

	g, err := r.LoadGrid(input)
	if err != nil {
		return nil, err
	}
	defer g.Release()

	start := time.Now()
	tex, err := volume.Build(g, volume.Options{Lookup: img, Workers: r.cfg.Voxelizer.Workers})
	if err != nil {
		return nil, err
	}
	instrumentStage("bake", start)
	defer instrumentStage("write", time.Now())

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	for z := 0; z < tex.Depth; z++ {
		path := filepath.Join(dir, fmt.Sprintf("slice_%03d.png", z))
		if err := r.checkOutput(path); err != nil {
			return nil, err
		}
		if err := formats.SavePNG(path, tex.Slice(z)); err != nil {
			return nil, err
		}
	}
	r.log.Info("volume written",
		zap.String("dir", dir),
		zap.Int("slices", tex.Depth),
		zap.Bool("lookup", img != nil))
	return tex, nil
}

// Shape tessellates a primitive and writes it as OBJ or STL.
func (r *Runner) Shape(name, output string, size float64) (*mesh.Mesh, error) {
	start := time.Now()
	m, err := shapes.New(name, shapes.Options{Size: size, Cells: r.cfg.Voxelizer.ShapeCells})
	if err != nil {
		return nil, err
	}
	instrumentStage("tessellate", start)

	switch formats.Ext(output) {
	case "stl":
		if err := r.checkOutput(output); err != nil {
			return nil, err
		}
		if err := formats.SaveSTLFile(output, m); err != nil {
			return nil, err
		}
	case "obj":
		f, err := r.create(output)
		if err != nil {
			return nil, err
		}
		if err := formats.WriteMeshOBJ(f, m); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s (want .obj or .stl)", ErrUnsupportedOutput, output)
	}

	r.log.Info("shape written",
		zap.String("shape", name),
		zap.String("output", output),
		zap.Int("triangles", m.TriangleCount()))
	return m, nil
}
