// twintool generates and combines digital twin tile meshes.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/marcus-elia/simple-cities-digital-twins/internal/combine"
	"github.com/marcus-elia/simple-cities-digital-twins/internal/config"
	"github.com/marcus-elia/simple-cities-digital-twins/internal/logger"
	"github.com/marcus-elia/simple-cities-digital-twins/internal/terrain"
	"github.com/marcus-elia/simple-cities-digital-twins/internal/tilegen"
	"github.com/marcus-elia/simple-cities-digital-twins/pkg/formats"
	"github.com/marcus-elia/simple-cities-digital-twins/pkg/tile"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "tile":
		cmdTile(args)
	case "count":
		cmdCount(args)
	case "mesh":
		cmdMesh(args)
	case "combine":
		cmdCombine(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`twintool - digital twin tile mesh utility

Usage:
  twintool <command> [options]

Commands:
  tile <lat> <lon>                      Show the tile containing a coordinate
  count --sw <lat,lon> --ne <lat,lon>   Count the tiles between two corners
  mesh [options]                        Write tile.obj and tile.mtl for every tile
  combine [options]                     Merge tile meshes into one mesh
  config [path]                         Write the default configuration

Common options:
  --config <file>          Config file (default ./twintool.yaml)
  --tile-directory <dir>   Root directory of the tile tree
  --city-name <name>       City subdirectory
  --sw, --ne <lat,lon>     Corners of the tile block
  --dem-path <file>        Elevation raster (.asc, or .tif with .tfw)
  --resolution <meters>    Terrain grid spacing
  --debug                  Enable debug logging

Examples:
  twintool tile 43.0481 -76.1474
  twintool count --sw "43.03,-76.16" --ne "43.06,-76.12"
  twintool mesh --city-name syracuse --dem-path dem.tif --sw "43.03,-76.16" --ne "43.06,-76.12"
  twintool combine --city-name syracuse --sw "43.03,-76.16" --ne "43.06,-76.12" --output-dir out --output-filename syracuse`)
}

func cmdTile(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: twintool tile <lat> <lon>")
		os.Exit(1)
	}

	lat, err1 := strconv.ParseFloat(args[0], 64)
	lon, err2 := strconv.ParseFloat(args[1], 64)
	if err := errors.Join(err1, err2); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	id, err := tile.ForGeo(lat, lon)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cx, cy := id.Center()
	clat, clon, err := id.CenterLatLon(lat >= 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	b := id.Bound()

	fmt.Printf("Tile:      %s\n", id)
	fmt.Printf("Center:    %.2f, %.2f (%.6f, %.6f)\n", cx, cy, clat, clon)
	fmt.Printf("Footprint: [%.0f, %.0f] x [%.0f, %.0f]\n", b.Min[0], b.Max[0], b.Min[1], b.Max[1])
}

func cmdCount(args []string) {
	cfg := parseCommon("count", args, nil)

	block, err := blockFromConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(block.Count())
}

func cmdMesh(args []string) {
	cfg := parseCommon("mesh", args, nil)
	block := mustBlock(cfg)
	defer logger.Sync()

	if cfg.Elevation.DEMPath == "" {
		fmt.Fprintln(os.Stderr, "Error: an elevation raster is required (--dem-path or elevation.dem_path)")
		os.Exit(1)
	}
	raster, err := formats.LoadRaster(cfg.Elevation.DEMPath, formats.TIFFOptions{
		Scale:  cfg.Elevation.Scale,
		Offset: cfg.Elevation.Offset,
	})
	if err != nil {
		logger.Fatal("loading elevation", zap.Error(err))
	}
	grid, err := terrain.GridFromRaster(raster)
	if err != nil {
		logger.Fatal("loading elevation", zap.Error(err))
	}
	lowest, highest := grid.Range()
	logger.Info("elevation loaded",
		zap.String("file", cfg.Elevation.DEMPath),
		zap.Stringer("raster", raster),
		zap.Float64("lowest", lowest),
		zap.Float64("highest", highest))

	opts, err := tilegen.OptionsFromConfig(cfg, logger.Log)
	if err != nil {
		logger.Fatal("resolving options", zap.Error(err))
	}
	gen, err := tilegen.New(grid, opts, logger.Log)
	if err != nil {
		logger.Fatal("creating generator", zap.Error(err))
	}
	defer gen.Close()

	stats, genErr := gen.GenerateRange(block)

	var buildings, trees int
	for _, s := range stats {
		buildings += s.Buildings
		trees += s.Trees
	}
	hits, misses := gen.ModelStats()
	logger.Info("tiles written",
		zap.Int("tiles", len(stats)),
		zap.Int("failed", block.Count()-len(stats)),
		zap.Int("buildings", buildings),
		zap.Int("trees", trees),
		zap.Int("model_cache_hits", hits),
		zap.Int("model_cache_misses", misses))
	if genErr != nil {
		exitOnFailure("generating tiles", genErr)
	}
}

func cmdCombine(args []string) {
	var outputDir, outputName string
	cfg := parseCommon("combine", args, func(fs *flag.FlagSet) {
		fs.StringVar(&outputDir, "output-dir", "", "Directory for the combined OBJ, MTL and textures")
		fs.StringVar(&outputName, "output-filename", "", "Base name of the combined OBJ and MTL files")
	})
	if outputDir != "" {
		cfg.Combine.OutputDir = outputDir
	}
	if outputName != "" {
		cfg.Combine.OutputName = outputName
	}
	block := mustBlock(cfg)
	defer logger.Sync()

	opts := combine.Options{
		Dir:         cfg.Tiles.CityDir(),
		OBJFile:     cfg.Tiles.OBJFile,
		MTLFile:     cfg.Tiles.MTLFile,
		TextureFile: cfg.Tiles.TextureFile,
		OutputDir:   cfg.Combine.OutputDir,
		OutputName:  cfg.Combine.OutputName,
	}
	res, err := combine.Combine(block, opts, logger.Log)
	logger.Info("combined mesh written",
		zap.String("dir", opts.OutputDir),
		zap.String("name", opts.OutputName),
		zap.Int("tiles", res.Tiles),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
		zap.Int("vertices", res.Vertices),
		zap.Int("faces", res.Faces),
		zap.Int("materials", res.Materials),
		zap.Int("missing_textures", res.MissingTextures))
	if err != nil {
		exitOnFailure("combining tiles", err)
	}
}

// exitOnFailure logs err after the summary and exits non-zero.
func exitOnFailure(msg string, err error) {
	logger.Error(msg, zap.Error(err))
	logger.Sync()
	os.Exit(1)
}

func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	fs.Parse(args)

	path := config.FileName
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	if err := config.Default().SaveTo(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", path)
}

// parseCommon parses the shared flags plus any registered by extra, loads
// the configuration and starts the logger.
func parseCommon(name string, args []string, extra func(*flag.FlagSet)) *config.Config {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	var flags config.Flags
	flags.Register(fs)
	if extra != nil {
		extra(fs)
	}
	fs.Parse(args)

	cfg, err := config.Load(&flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// mustBlock resolves the tile block or exits. Corners in different
// projection zones abort before any output is written.
func mustBlock(cfg *config.Config) tile.Range {
	block, err := blockFromConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("You have specified %d tile%s.\n", block.Count(), plural(block.Count()))
	return block
}

func blockFromConfig(cfg *config.Config) (tile.Range, error) {
	if cfg.Tiles.Southwest == "" || cfg.Tiles.Northeast == "" {
		return tile.Range{}, errors.New("both --sw and --ne are required")
	}
	swLat, swLon, err := tile.ParseLatLon(cfg.Tiles.Southwest)
	if err != nil {
		return tile.Range{}, fmt.Errorf("sw: %w", err)
	}
	neLat, neLon, err := tile.ParseLatLon(cfg.Tiles.Northeast)
	if err != nil {
		return tile.Range{}, fmt.Errorf("ne: %w", err)
	}
	return tile.RangeForGeo(swLat, swLon, neLat, neLon)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
