// Package tilegen builds the mesh of one tile from its feature files and
// the shared elevation grid, and writes the tile's geometry and material
// documents.
package tilegen

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/marcus-elia/simple-cities-digital-twins/internal/assets"
	"github.com/marcus-elia/simple-cities-digital-twins/internal/building"
	"github.com/marcus-elia/simple-cities-digital-twins/internal/config"
	"github.com/marcus-elia/simple-cities-digital-twins/internal/features"
	"github.com/marcus-elia/simple-cities-digital-twins/internal/instance"
	"github.com/marcus-elia/simple-cities-digital-twins/internal/logger"
	"github.com/marcus-elia/simple-cities-digital-twins/internal/progress"
	"github.com/marcus-elia/simple-cities-digital-twins/internal/terrain"
	"github.com/marcus-elia/simple-cities-digital-twins/pkg/mesh"
	"github.com/marcus-elia/simple-cities-digital-twins/pkg/tile"
)

// Custom building placements share one group and material.
const (
	CustomGroup    = "custom_buildings"
	CustomMaterial = "brick"
)

// Options configures a Generator.
type Options struct {
	// Dir holds one subdirectory per tile, named by the tile.
	Dir         string
	OBJFile     string
	MTLFile     string
	TextureFile string

	Resolution int
	Policy     building.FootprintPolicy
	Materials  building.MaterialPolicy
	Colors     map[string]mesh.Color

	// Tree is placed at every point of the tile's tree file. Nil skips trees.
	Tree         *instance.Template
	Autumn       bool
	Seed         int64
	AutumnColors instance.AutumnColors
}

// DefaultOptions returns options with the built-in file names and policies.
func DefaultOptions(dir string) Options {
	colors := make(map[string]mesh.Color)
	for name, c := range config.DefaultColors() {
		colors[name] = c.Mesh()
	}
	return Options{
		Dir:          dir,
		OBJFile:      "tile.obj",
		MTLFile:      "tile.mtl",
		TextureFile:  "tile_texture.jpg",
		Resolution:   50,
		Policy:       building.PolicyConvexHull,
		Materials:    building.DefaultMaterialPolicy(),
		Colors:       colors,
		Seed:         1,
		AutumnColors: instance.DefaultAutumnColors(),
	}
}

// OptionsFromConfig resolves the pipeline options of cfg and loads the tree
// template. A missing template is logged and disables trees.
func OptionsFromConfig(cfg *config.Config, log *zap.Logger) (Options, error) {
	if log == nil {
		log = zap.NewNop()
	}
	policy, err := building.ParsePolicy(cfg.Buildings.FootprintPolicy)
	if err != nil {
		return Options{}, err
	}

	colors := make(map[string]mesh.Color, len(cfg.Buildings.Colors))
	for name, c := range cfg.Buildings.Colors {
		colors[name] = c.Mesh()
	}

	opts := Options{
		Dir:         cfg.Tiles.CityDir(),
		OBJFile:     cfg.Tiles.OBJFile,
		MTLFile:     cfg.Tiles.MTLFile,
		TextureFile: cfg.Tiles.TextureFile,
		Resolution:  cfg.Terrain.Resolution,
		Policy:      policy,
		Materials: building.MaterialPolicy{
			DefaultHeight:        cfg.Buildings.DefaultHeight,
			DefaultWall:          cfg.Buildings.DefaultWallMaterial,
			DefaultRoof:          cfg.Buildings.DefaultRoofMaterial,
			SingleColorBuildings: cfg.Buildings.SingleColorBuildings,
			BuildingColor:        cfg.Buildings.BuildingColor,
			SingleColorRoofs:     cfg.Buildings.SingleColorRoofs,
			RoofColor:            cfg.Buildings.RoofColor,
		},
		Colors: colors,
		Autumn: cfg.Trees.Autumn,
		Seed:   cfg.Trees.Seed,
		AutumnColors: instance.AutumnColors{
			Red:    cfg.Trees.AutumnColors.Red.Mesh(),
			Yellow: cfg.Trees.AutumnColors.Yellow.Mesh(),
			Orange: cfg.Trees.AutumnColors.Orange.Mesh(),
		},
	}

	if cfg.Trees.TemplateOBJ != "" {
		tpl, err := instance.LoadTemplate(cfg.Trees.TemplateOBJ, cfg.Trees.TemplateMTL)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Warn("tree template not found, trees disabled", zap.String("file", cfg.Trees.TemplateOBJ))
		case err != nil:
			return Options{}, err
		default:
			opts.Tree = tpl
		}
	}
	return opts, nil
}

// Stats summarizes one generated tile.
type Stats struct {
	Tile      tile.ID
	Vertices  int
	UVs       int
	Faces     int
	Buildings int
	Skipped   int
	Trees     int
	Custom    int
}

// Generator writes tile meshes. The elevation and templates are shared
// read-only across tiles.
type Generator struct {
	opts   Options
	elev   terrain.Elevation
	log    *zap.Logger
	models *assets.Manager
}

// New creates a generator. A nil logger discards output.
func New(elev terrain.Elevation, opts Options, log *zap.Logger) (*Generator, error) {
	if err := terrain.ValidateResolution(opts.Resolution); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{
		opts:   opts,
		elev:   elev,
		log:    log,
		models: assets.NewManager(),
	}, nil
}

// TileDir returns the directory holding the inputs and outputs of id.
func (g *Generator) TileDir(id tile.ID) string {
	return filepath.Join(g.opts.Dir, id.String())
}

// Generate builds and writes the mesh of one tile.
func (g *Generator) Generate(id tile.ID) (Stats, error) {
	dir := g.TileDir(id)
	log := logger.ForTile(g.log, id.String())
	stats := Stats{Tile: id}

	buildings, err := features.LoadBuildings(filepath.Join(dir, features.BuildingsFile), log)
	if err != nil {
		return stats, err
	}
	trees, err := features.LoadPoints(filepath.Join(dir, features.TreesFile), log)
	if err != nil {
		return stats, err
	}
	manifest, err := features.LoadManifest(filepath.Join(dir, features.CustomBuildingsFile), log)
	if err != nil {
		return stats, err
	}

	lib := g.materials(id)
	doc := mesh.New(g.opts.MTLFile)

	if err := terrain.BuildMesh(doc, g.elev, id, g.opts.Resolution, id.String()); err != nil {
		return stats, err
	}

	ext := building.NewExtruder(id, g.elev, g.opts.Policy, manifest.Exclude)
	for _, b := range buildings {
		fp := g.opts.Materials.Footprint(b)
		_, err := ext.Extrude(doc, fp)
		switch {
		case errors.Is(err, building.ErrExcluded):
			log.Debug("building excluded", zap.Int64("osm_id", b.ID))
			stats.Skipped++
			continue
		case errors.Is(err, building.ErrDegenerateFootprint):
			log.Warn("skipping degenerate footprint", zap.Int64("osm_id", b.ID), zap.Error(err))
			stats.Skipped++
			continue
		case err != nil:
			return stats, err
		}
		g.requireMaterial(lib, fp.WallMaterial, log)
		g.requireMaterial(lib, fp.RoofMaterial, log)
	}
	stats.Buildings = ext.Count()

	if g.opts.Tree != nil && len(trees) > 0 {
		in := instance.NewInstancer(id, g.elev)
		if g.opts.Autumn {
			in.Variants = instance.NewAutumn(tileSeed(g.opts.Seed, id))
		}
		in.PlaceAll(doc, g.opts.Tree, trees)
		stats.Trees = in.Placed()
	}

	if len(manifest.Placements) > 0 {
		in := instance.NewInstancer(id, g.elev)
		in.ReverseWinding = true
		in.Group, in.Material = CustomGroup, CustomMaterial
		for _, p := range manifest.Placements {
			tpl, err := g.models.Load(filepath.Join(dir, p.File), "")
			if errors.Is(err, fs.ErrNotExist) {
				log.Warn("custom building not found", zap.String("file", p.File))
				continue
			}
			if err != nil {
				return stats, err
			}
			if !id.Contains(p.X, p.Y) {
				log.Debug("custom building anchored outside tile", zap.String("file", p.File),
					zap.Float64("x", p.X), zap.Float64("y", p.Y))
			}
			in.Place(doc, tpl, orb.Point{p.X, p.Y})
		}
		stats.Custom = in.Placed()
		if stats.Custom > 0 {
			g.requireMaterial(lib, CustomMaterial, log)
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return stats, err
	}
	if err := mesh.WriteMaterialsFile(filepath.Join(dir, g.opts.MTLFile), lib); err != nil {
		return stats, err
	}
	if err := mesh.WriteFile(filepath.Join(dir, g.opts.OBJFile), doc); err != nil {
		return stats, err
	}

	stats.Vertices, stats.UVs, stats.Faces = doc.VertexCount(), doc.UVCount(), doc.FaceCount()
	log.Debug("tile written",
		zap.Int("vertices", stats.Vertices),
		zap.Int("faces", stats.Faces),
		zap.Int("buildings", stats.Buildings),
		zap.Int("trees", stats.Trees))
	return stats, nil
}

// GenerateRange generates every tile of r in range order, logging progress
// after each one. A failing tile is logged and skipped; the returned stats
// cover the tiles that were written and the error joins every failure.
func (g *Generator) GenerateRange(r tile.Range) ([]Stats, error) {
	tiles := r.Tiles()
	tracker := progress.New(len(tiles))
	all := make([]Stats, 0, len(tiles))
	var errs []error
	for _, id := range tiles {
		s, err := g.Generate(id)
		if err != nil {
			g.log.Error("tile failed", zap.String("tile", id.String()), zap.Error(err))
			errs = append(errs, fmt.Errorf("tile %s: %w", id, err))
		} else {
			all = append(all, s)
		}
		g.log.Info(tracker.Done())
	}
	if len(errs) > 0 {
		g.log.Warn("tiles failed", zap.Int("failed", len(errs)), zap.Int("total", len(tiles)))
	}
	return all, errors.Join(errs...)
}

// ModelStats reports the custom model cache hits and misses.
func (g *Generator) ModelStats() (hits, misses int) {
	return g.models.Stats()
}

// Close releases the cached custom models.
func (g *Generator) Close() {
	g.models.Close()
}

// materials returns the material document of a tile: the tile texture, the
// building palette, the tree template materials and the autumn variants.
func (g *Generator) materials(id tile.ID) *mesh.Library {
	lib := mesh.NewLibrary()
	lib.Add(mesh.TexturedMaterial(id.String(), g.opts.TextureFile))

	names := make([]string, 0, len(g.opts.Colors))
	for name := range g.opts.Colors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		lib.Add(mesh.FlatMaterial(name, g.opts.Colors[name]))
	}

	if g.opts.Tree != nil {
		for _, m := range g.opts.Tree.Materials.Materials {
			lib.Add(m)
		}
	}
	if g.opts.Autumn {
		for _, m := range g.opts.AutumnColors.Materials() {
			lib.Add(m)
		}
	}
	return lib
}

// requireMaterial logs references to materials that no palette defines.
func (g *Generator) requireMaterial(lib *mesh.Library, name string, log *zap.Logger) {
	if !lib.Has(name) {
		log.Warn("material not defined", zap.String("material", name))
		lib.Add(mesh.Material{Name: name})
	}
}

// tileSeed derives a per-tile seed so variants do not depend on the order
// in which tiles are generated.
func tileSeed(seed int64, id tile.ID) int64 {
	return seed ^ (int64(id.I)*73856093 ^ int64(id.J)*19349663 ^ int64(id.Zone)*83492791)
}
