// Package job runs voxtool pipelines: load a mesh or grid, rasterize it,
// re-mesh or bake it, and write the result.
package job

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/voxelizer/internal/config"
	"github.com/Faultbox/voxelizer/pkg/formats"
	"github.com/Faultbox/voxelizer/pkg/mesh"
	"github.com/Faultbox/voxelizer/pkg/mesher"
	"github.com/Faultbox/voxelizer/pkg/shapes"
	"github.com/Faultbox/voxelizer/pkg/voxel"
)

// Job errors.
var (
	ErrUnsupportedInput  = errors.New("unsupported input")
	ErrUnsupportedOutput = errors.New("unsupported output")
	ErrOutputExists      = errors.New("output file exists")
)

// ShapePrefix marks inputs generated by pkg/shapes, e.g. "shape:sphere:2".
const ShapePrefix = "shape:"

// Runner executes pipelines with one configuration.
type Runner struct {
	id  string
	cfg *config.Config
	log *zap.Logger
}

// New creates a Runner. A nil log discards output. Every log entry of the
// runner carries its run ID.
func New(cfg *config.Config, log *zap.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.NewString()
	return &Runner{id: id, cfg: cfg, log: log.With(zap.String("run", id))}, nil
}

// ID returns the run ID.
func (r *Runner) ID() string {
	return r.id
}

// Run executes fn as the named command and records its outcome in the
// pipeline metrics.
func (r *Runner) Run(command string, fn func() error) error {
	start := time.Now()
	err := fn()
	instrumentRun(command, err)
	if err == nil {
		r.log.Debug("command finished", zap.String("command", command), zap.Duration("took", time.Since(start)))
	}
	return err
}

// VoxelOptions maps the voxelizer config onto voxel.Options.
func (r *Runner) VoxelOptions() voxel.Options {
	v := r.cfg.Voxelizer
	mode, _ := voxel.ParseMode(v.Mode) // checked by Validate
	return voxel.Options{
		Mode:     mode,
		Pow2:     v.Pow2,
		SampleUV: v.SampleUV,
		Workers:  v.Workers,
		Logger:   r.log.Named("voxel"),
	}
}

// MesherOptions maps the mesher config onto mesher.Options.
func (r *Runner) MesherOptions() mesher.Options {
	m := r.cfg.Mesher
	return mesher.Options{
		UseUV:      m.UseUV,
		RSegments:  m.RSegments,
		USegments:  m.USegments,
		CullHidden: m.CullHidden,
		Workers:    r.cfg.Voxelizer.Workers,
		Logger:     r.log.Named("mesher"),
	}
}

// LoadMesh reads an OBJ or STL file, or tessellates a "shape:name[:size]"
// input.
func (r *Runner) LoadMesh(input string) (*mesh.Mesh, error) {
	start := time.Now()
	var (
		m   *mesh.Mesh
		err error
	)
	if strings.HasPrefix(input, ShapePrefix) {
		m, err = r.loadShape(strings.TrimPrefix(input, ShapePrefix))
	} else {
		switch formats.Ext(input) {
		case "obj":
			m, err = formats.ParseOBJFile(input)
		case "stl":
			m, err = formats.ParseSTLFile(input)
		default:
			err = fmt.Errorf("%w: %s is not a mesh (want .obj, .stl or %s<name>)", ErrUnsupportedInput, input, ShapePrefix)
		}
	}
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", input, err)
	}

	instrumentStage("load", start)
	r.log.Info("mesh loaded",
		zap.String("input", input),
		zap.Int("vertices", len(m.Vertices)),
		zap.Int("triangles", m.TriangleCount()),
		zap.Bool("uv", m.HasUVs()),
		zap.Duration("took", time.Since(start)))
	return m, nil
}

func (r *Runner) loadShape(arg string) (*mesh.Mesh, error) {
	name, sizeArg, _ := strings.Cut(arg, ":")
	opts := shapes.Options{Cells: r.cfg.Voxelizer.ShapeCells}
	if sizeArg != "" {
		size, err := strconv.ParseFloat(sizeArg, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: shape size %q: %v", ErrUnsupportedInput, sizeArg, err)
		}
		opts.Size = size
	}
	return shapes.New(name, opts)
}

// LoadGrid reads a VXG file, or voxelizes a mesh input at the configured
// resolution. The caller owns the returned grid.
func (r *Runner) LoadGrid(input string) (*voxel.Grid, error) {
	if formats.Ext(input) == "vxg" {
		g, err := formats.ParseVXGFile(input)
		if err != nil {
			return nil, err
		}
		g.SetLogger(r.log.Named("voxel"))
		r.log.Info("grid loaded",
			zap.String("input", input),
			zap.Int("width", g.Width()),
			zap.Int("height", g.Height()),
			zap.Int("depth", g.Depth()))
		return g, nil
	}

	m, err := r.LoadMesh(input)
	if err != nil {
		return nil, err
	}
	return r.VoxelizeGrid(m)
}

// VoxelizeGrid rasterizes m into a dense grid.
func (r *Runner) VoxelizeGrid(m *mesh.Mesh) (*voxel.Grid, error) {
	start := time.Now()
	opts := r.VoxelOptions()
	g, err := voxel.VoxelizeGrid(m, r.cfg.Voxelizer.Resolution, opts)
	if err != nil {
		return nil, fmt.Errorf("voxelizing: %w", err)
	}
	instrumentStage("voxelize", start)
	voxelsGenerated.Add(float64(g.OccupiedCount()))
	r.log.Info("grid voxelized",
		zap.Stringer("mode", opts.Mode),
		zap.Int("width", g.Width()),
		zap.Int("height", g.Height()),
		zap.Int("depth", g.Depth()),
		zap.Float32("unit", g.UnitLength()),
		zap.Int("occupied", g.OccupiedCount()),
		zap.Duration("took", time.Since(start)))
	return g, nil
}

// create opens path for writing, honoring Output.Overwrite.
func (r *Runner) create(path string) (*os.File, error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !r.cfg.Output.Overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0644)
	if errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("%w: %s", ErrOutputExists, path)
	}
	return f, err
}

// writeFile creates path and runs write on it. The file is removed when
// writing or closing fails.
func (r *Runner) writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := r.create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			r.removePartial(path, err)
		}
	}()
	return write(f)
}

func (r *Runner) removePartial(path string, cause error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		r.log.Warn("failed to remove partial output", zap.String("output", path), zap.Error(err))
		return
	}
	r.log.Debug("removed partial output", zap.String("output", path), zap.Error(cause))
}

// checkOutput applies Output.Overwrite to writers that take a path.
func (r *Runner) checkOutput(path string) error {
	if r.cfg.Output.Overwrite {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrOutputExists, path)
	}
	return nil
}
