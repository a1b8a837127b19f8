package config

import "flag"

// Flags holds command-line overrides shared by the twintool subcommands.
type Flags struct {
	Config        string
	Debug         bool
	TileDirectory string
	CityName      string
	DEMPath       string
	Resolution    int
	Southwest     string
	Northeast     string
}

// Register binds the flags to fs. Call this before fs.Parse.
func (f *Flags) Register(fs *flag.FlagSet) {
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.TileDirectory, "tile-directory", "", "Root directory of the tile tree")
	fs.StringVar(&f.CityName, "city-name", "", "City subdirectory under the tile directory")
	fs.StringVar(&f.DEMPath, "dem-path", "", "Elevation raster (.asc or .tif)")
	fs.IntVar(&f.Resolution, "resolution", 0, "Terrain grid spacing in meters")
	fs.StringVar(&f.Southwest, "sw", "", "South-west corner as \"lat,lon\"")
	fs.StringVar(&f.Northeast, "ne", "", "North-east corner as \"lat,lon\"")
}

// ConfigPath returns the explicit config path if provided via --config flag.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return f.Config
}

// applyFlags applies CLI flag overrides to the config.
func (f *Flags) applyFlags(cfg *Config) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.TileDirectory != "" {
		cfg.Tiles.Directory = f.TileDirectory
	}
	if f.CityName != "" {
		cfg.Tiles.City = f.CityName
	}
	if f.DEMPath != "" {
		cfg.Elevation.DEMPath = f.DEMPath
	}
	if f.Resolution > 0 {
		cfg.Terrain.Resolution = f.Resolution
	}
	if f.Southwest != "" {
		cfg.Tiles.Southwest = f.Southwest
	}
	if f.Northeast != "" {
		cfg.Tiles.Northeast = f.Northeast
	}
}
