// voxtool is a CLI utility for voxelizing triangle meshes and re-meshing
// the resulting grids.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/voxelizer/internal/config"
	"github.com/Faultbox/voxelizer/internal/job"
	"github.com/Faultbox/voxelizer/internal/logger"
	"github.com/Faultbox/voxelizer/pkg/shapes"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "voxelize", "vox":
		err = cmdVoxelize(args)
	case "grid":
		err = cmdGrid(args)
	case "mesh":
		err = cmdMesh(args)
	case "levels":
		err = cmdLevels(args)
	case "info":
		err = cmdInfo(args)
	case "volume":
		err = cmdVolume(args)
	case "shape":
		err = cmdShape(args)
	case "watch":
		err = cmdWatch(args)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		logger.Sync()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.Sync()
}

func printUsage() {
	fmt.Printf(`voxtool - mesh voxelizer and re-mesher

Usage:
  voxtool <command> [options]

Commands:
  voxelize <input> [out.json]         Sparse voxels (count only without output)
  grid     <input> <out.vxg>          Dense grid saved as VXG
  mesh     <input|grid.vxg> <out>     Voxel cube mesh as .obj or .stl
  levels   <input>                    Multi-resolution grid dimensions
  info     <input|grid.vxg>           Mesh or grid statistics
  volume   <input|grid.vxg> <dir>     3D texture as PNG slices
  shape    <%s> <out> [size]
                                      Tessellated primitive as .obj or .stl
  watch    <input> <out>              Rebuild out (.json, .vxg, .obj, .stl)
                                      whenever input changes

Inputs are .obj, .stl or shape:<name>[:size].

Options (before positional arguments):
  -config <path>    Config file (.yaml or .toml)
  -resolution <n>   Voxels along the longest axis
  -mode <m>         volume or surface
  -pow2             Round grid dimensions up to powers of two
  -uv               Sample mesh UVs
  -cull             Skip hidden faces when meshing
  -workers <n>      Worker goroutines
  -debug            Debug logging
  -log <file>       Also log to a rotating file
  -metrics <file>   Write Prometheus metrics on exit

Examples:
  voxtool voxelize -resolution 64 bunny.obj bunny.json
  voxtool grid -mode surface -uv model.obj model.vxg
  voxtool mesh -cull model.vxg voxels.obj
  voxtool volume -lookup albedo.png model.obj slices/
  voxtool shape sphere sphere.stl 2
`, strings.Join(shapes.Names(), "|"))
}

// setup parses the shared flags for a subcommand, loads config and installs
// the logger.
func setup(name string, args []string, extra func(*flag.FlagSet)) (*flag.FlagSet, *config.Config, *job.Runner, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	flags := config.BindFlags(fs)
	if extra != nil {
		extra(fs)
	}
	fs.Parse(args)

	cfg, err := config.Load(flags)
	if err != nil {
		return nil, nil, nil, err
	}

	err = logger.InitWithOptions(logger.Options{
		Level: cfg.Logging.Level,
		JSON:  cfg.Logging.JSON,
		File:  fileConfig(cfg.Logging.LogFile),
	})
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Sugar.Debugf("Config: %+v", cfg)

	r, err := job.New(cfg, logger.Named(name))
	if err != nil {
		return nil, nil, nil, err
	}
	return fs, cfg, r, nil
}

// run sets up a subcommand, executes body as a recorded run and writes
// metrics when configured.
func run(name string, args []string, extra func(*flag.FlagSet), body func(*flag.FlagSet, *job.Runner) error) error {
	fs, cfg, r, err := setup(name, args, extra)
	if err != nil {
		return err
	}

	err = r.Run(name, func() error { return body(fs, r) })
	if path := cfg.Output.MetricsFile; path != "" {
		if merr := job.WriteMetrics(path); merr != nil && err == nil {
			err = merr
		}
	}
	return err
}

func fileConfig(path string) logger.FileConfig {
	if path == "" {
		return logger.FileConfig{}
	}
	return logger.DefaultFileConfig(path)
}

func usageError(usage string) error {
	return fmt.Errorf("usage: voxtool %s", usage)
}

func cmdVoxelize(args []string) error {
	return run("voxelize", args, nil, func(fs *flag.FlagSet, r *job.Runner) error {
		if fs.NArg() < 1 {
			return usageError("voxelize [options] <input> [out.json]")
		}

		if fs.NArg() > 1 {
			voxels, err := r.VoxelizeFile(fs.Arg(0), fs.Arg(1))
			if err != nil {
				return err
			}
			fmt.Printf("%d voxels written to %s\n", len(voxels), fs.Arg(1))
			return nil
		}

		voxels, err := r.Voxelize(fs.Arg(0), nil)
		if err != nil {
			return err
		}
		fmt.Printf("Voxels: %d\n", len(voxels))
		if len(voxels) > 0 {
			fmt.Printf("Unit:   %g\n", voxels[0].Size)
		}
		return nil
	})
}

func cmdGrid(args []string) error {
	return run("grid", args, nil, func(fs *flag.FlagSet, r *job.Runner) error {
		if fs.NArg() < 2 {
			return usageError("grid [options] <input> <out.vxg>")
		}
		return r.Grid(fs.Arg(0), fs.Arg(1))
	})
}

func cmdMesh(args []string) error {
	return run("mesh", args, nil, func(fs *flag.FlagSet, r *job.Runner) error {
		if fs.NArg() < 2 {
			return usageError("mesh [options] <input|grid.vxg> <out.obj|out.stl>")
		}

		vm, err := r.Mesh(fs.Arg(0), fs.Arg(1))
		if err != nil {
			return err
		}
		fmt.Printf("Vertices:  %d\n", vm.VertexCount())
		fmt.Printf("Triangles: %d\n", vm.TriangleCount())
		fmt.Printf("Indices:   %s\n", vm.IndexFormat())
		return nil
	})
}

func cmdLevels(args []string) error {
	return run("levels", args, nil, func(fs *flag.FlagSet, r *job.Runner) error {
		if fs.NArg() < 1 {
			return usageError("levels [options] <input>")
		}

		levels, err := r.Levels(fs.Arg(0))
		if err != nil {
			return err
		}
		fmt.Printf("%-6s %-16s %-10s %s\n", "Level", "Dimensions", "Unit", "Occupied")
		for _, l := range levels {
			dims := fmt.Sprintf("%dx%dx%d", l.Width, l.Height, l.Depth)
			fmt.Printf("%-6d %-16s %-10g %d\n", l.Level, dims, l.Unit, l.Occupied)
		}
		return nil
	})
}

func cmdInfo(args []string) error {
	return run("info", args, nil, func(fs *flag.FlagSet, r *job.Runner) error {
		if fs.NArg() < 1 {
			return usageError("info <input|grid.vxg>")
		}

		info, err := r.Info(fs.Arg(0))
		if err != nil {
			return err
		}
		b := info.Bounds
		fmt.Printf("Input:     %s\n", info.Input)
		if info.IsGrid {
			total := info.Width * info.Height * info.Depth
			fmt.Printf("Grid:      %dx%dx%d (%d cells)\n", info.Width, info.Height, info.Depth, total)
			fmt.Printf("Unit:      %g\n", info.Unit)
			fmt.Printf("Occupied:  %d (%.1f%%)\n", info.Occupied, percent(info.Occupied, total))
		} else {
			fmt.Printf("Vertices:  %d\n", info.Vertices)
			fmt.Printf("Triangles: %d\n", info.Triangles)
			fmt.Printf("UVs:       %t\n", info.HasUVs)
		}
		fmt.Printf("Bounds:    (%g, %g, %g) - (%g, %g, %g)\n",
			b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
		return nil
	})
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}

func cmdVolume(args []string) error {
	var lookup string
	extra := func(fs *flag.FlagSet) {
		fs.StringVar(&lookup, "lookup", "", "Image sampled by cell UV (png, jpeg, gif, bmp, tiff, tga)")
	}
	return run("volume", args, extra, func(fs *flag.FlagSet, r *job.Runner) error {
		if fs.NArg() < 2 {
			return usageError("volume [options] [-lookup image] <input|grid.vxg> <dir>")
		}

		tex, err := r.Volume(fs.Arg(0), fs.Arg(1), lookup)
		if err != nil {
			return err
		}
		fmt.Printf("%d slices of %dx%d written to %s\n", tex.Depth, tex.Width, tex.Height, fs.Arg(1))
		return nil
	})
}

func cmdShape(args []string) error {
	return run("shape", args, nil, func(fs *flag.FlagSet, r *job.Runner) error {
		if fs.NArg() < 2 {
			return usageError(fmt.Sprintf("shape <%s> <out.obj|out.stl> [size]", strings.Join(shapes.Names(), "|")))
		}

		size := 1.0
		if fs.NArg() > 2 {
			var err error
			if size, err = strconv.ParseFloat(fs.Arg(2), 64); err != nil {
				return fmt.Errorf("invalid size %q: %w", fs.Arg(2), err)
			}
		}

		m, err := r.Shape(fs.Arg(0), fs.Arg(1), size)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d vertices, %d triangles written to %s\n",
			fs.Arg(0), len(m.Vertices), m.TriangleCount(), fs.Arg(1))
		return nil
	})
}

func cmdWatch(args []string) error {
	return run("watch", args, nil, func(fs *flag.FlagSet, r *job.Runner) error {
		if fs.NArg() < 2 {
			return usageError("watch [options] <input> <out.json|out.vxg|out.obj|out.stl>")
		}
		input, output := fs.Arg(0), fs.Arg(1)

		var build func() error
		switch ext := strings.ToLower(output); {
		case strings.HasSuffix(ext, ".json"):
			build = func() error {
				_, err := r.VoxelizeFile(input, output)
				return err
			}
		case strings.HasSuffix(ext, ".vxg"):
			build = func() error { return r.Grid(input, output) }
		default:
			build = func() error {
				_, err := r.Mesh(input, output)
				return err
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(os.Stderr, "Watching %s (Ctrl+C to stop)\n", input)
		return r.Watch(ctx, input, build)
	})
}
