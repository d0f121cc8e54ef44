package config

import "flag"

// Flags are the command-line overrides shared by voxtool subcommands.
// Only flags the user actually passed override the file config.
type Flags struct {
	fs *flag.FlagSet

	configPath string
	debug      bool
	resolution int
	mode       string
	pow2       bool
	uv         bool
	cull       bool
	workers    int
	logFile    string
	jsonLog    bool
	metrics    string
}

// BindFlags registers the override flags on fs.
func BindFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.configPath, "config", "", "Path to config file (.yaml or .toml)")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fs.IntVar(&f.resolution, "resolution", 0, "Voxels along the longest mesh axis")
	fs.StringVar(&f.mode, "mode", "", "Voxelization mode: volume or surface")
	fs.BoolVar(&f.pow2, "pow2", false, "Round grid dimensions up to powers of two")
	fs.BoolVar(&f.uv, "uv", false, "Sample mesh UVs into surface cells and output vertices")
	fs.BoolVar(&f.cull, "cull", false, "Skip faces shared by two occupied voxels")
	fs.IntVar(&f.workers, "workers", 0, "Worker goroutines (0 = GOMAXPROCS)")
	fs.StringVar(&f.logFile, "log", "", "Also log to this rotating file")
	fs.BoolVar(&f.jsonLog, "json-log", false, "Log JSON lines to stderr")
	fs.StringVar(&f.metrics, "metrics", "", "Write Prometheus metrics to this textfile on exit")
	return f
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return f.configPath
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "debug":
			if f.debug {
				cfg.Logging.Level = "debug"
			}
		case "resolution":
			cfg.Voxelizer.Resolution = f.resolution
		case "mode":
			cfg.Voxelizer.Mode = f.mode
		case "pow2":
			cfg.Voxelizer.Pow2 = f.pow2
		case "uv":
			cfg.Voxelizer.SampleUV = f.uv
			cfg.Mesher.UseUV = f.uv
		case "cull":
			cfg.Mesher.CullHidden = f.cull
		case "workers":
			cfg.Voxelizer.Workers = f.workers
		case "log":
			cfg.Logging.LogFile = f.logFile
		case "json-log":
			cfg.Logging.JSON = f.jsonLog
		case "metrics":
			cfg.Output.MetricsFile = f.metrics
		}
	})
}
