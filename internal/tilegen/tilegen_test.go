package tilegen

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/marcus-elia/simple-cities-digital-twins/internal/building"
	"github.com/marcus-elia/simple-cities-digital-twins/internal/config"
	"github.com/marcus-elia/simple-cities-digital-twins/internal/instance"
	"github.com/marcus-elia/simple-cities-digital-twins/internal/terrain"
	"github.com/marcus-elia/simple-cities-digital-twins/pkg/mesh"
	"github.com/marcus-elia/simple-cities-digital-twins/pkg/tile"
)

var testTile = tile.FromIndices(330, 4692, 18)

const testBuildings = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"osm_id": 1, "height": 5},
     "geometry": {"type": "Polygon", "coordinates": [[[330100,4692100],[330110,4692100],[330110,4692110],[330100,4692110],[330100,4692100]]]}},
    {"type": "Feature", "properties": {"osm_id": 7},
     "geometry": {"type": "Polygon", "coordinates": [[[330200,4692200],[330210,4692200],[330210,4692210],[330200,4692200]]]}},
    {"type": "Feature", "properties": {"osm_id": 8},
     "geometry": {"type": "Polygon", "coordinates": [[[330300,4692300],[330310,4692300],[330320,4692300],[330300,4692300]]]}}
  ]
}`

const testTrees = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {}, "geometry": {"type": "MultiPoint", "coordinates": [[330500, 4692500], [330600, 4692600]]}}
  ]
}`

const triangleOBJ = `v 0 0 0
v 1 0 0
v 0 1 0
usemtl tree_green
f 1 2 3
`

// createTestTileDir writes the given files into the directory of testTile.
func createTestTileDir(t *testing.T, root string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(root, testTile.String())
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func createTestTemplate(t *testing.T) *instance.Template {
	t.Helper()
	dir := t.TempDir()
	objPath := filepath.Join(dir, "tree.obj")
	mtlPath := filepath.Join(dir, "tree.mtl")
	if err := os.WriteFile(objPath, []byte(triangleOBJ), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(mtlPath, []byte("newmtl tree_green\nKd 0 1 0\nillum 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	tpl, err := instance.LoadTemplate(objPath, mtlPath)
	if err != nil {
		t.Fatalf("LoadTemplate failed: %v", err)
	}
	return tpl
}

func newTestGenerator(t *testing.T, opts Options) *Generator {
	t.Helper()
	g, err := New(terrain.Flat(0), opts, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return g
}

func readTile(t *testing.T, g *Generator) (*mesh.Document, *mesh.Library) {
	t.Helper()
	dir := g.TileDir(testTile)
	doc, err := mesh.ReadFile(filepath.Join(dir, "tile.obj"))
	if err != nil {
		t.Fatalf("reading tile.obj: %v", err)
	}
	lib, err := mesh.ReadMaterialsFile(filepath.Join(dir, "tile.mtl"))
	if err != nil {
		t.Fatalf("reading tile.mtl: %v", err)
	}
	return doc, lib
}

func TestGenerate_EmptyTile(t *testing.T) {
	opts := DefaultOptions(t.TempDir())
	opts.Resolution = tile.Size
	g := newTestGenerator(t, opts)

	stats, err := g.Generate(testTile)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if stats.Vertices != 4 || stats.UVs != 4 || stats.Faces != 2 {
		t.Errorf("expected 4 vertices, 4 UVs, 2 faces, got %+v", stats)
	}

	doc, lib := readTile(t, g)
	if doc.MaterialLib != "tile.mtl" {
		t.Errorf("expected mtllib tile.mtl, got %q", doc.MaterialLib)
	}
	if doc.VertexCount() != 4 || doc.FaceCount() != 2 {
		t.Errorf("unexpected document %d vertices %d faces", doc.VertexCount(), doc.FaceCount())
	}
	m, ok := lib.Get(testTile.String())
	if !ok {
		t.Fatal("expected the tile texture material")
	}
	if m.DiffuseMap != "tile_texture.jpg" {
		t.Errorf("expected map_Kd tile_texture.jpg, got %q", m.DiffuseMap)
	}
	for _, name := range []string{"concrete", "roof_white", "brick", "glass"} {
		if !lib.Has(name) {
			t.Errorf("expected palette material %s", name)
		}
	}
	if lib.Has(instance.AutumnRed) {
		t.Error("expected no autumn materials when autumn is off")
	}
}

func TestGenerate_Buildings(t *testing.T) {
	root := t.TempDir()
	createTestTileDir(t, root, map[string]string{
		"buildings.geojson":    testBuildings,
		"custom_buildings.txt": "id 7\n",
	})
	opts := DefaultOptions(root)
	opts.Resolution = tile.Size
	g := newTestGenerator(t, opts)

	stats, err := g.Generate(testTile)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// One square building; 7 is excluded and 8 is collinear.
	if stats.Buildings != 1 || stats.Skipped != 2 {
		t.Errorf("expected 1 building and 2 skipped, got %+v", stats)
	}
	if stats.Vertices != 4+9 || stats.Faces != 2+12 {
		t.Errorf("expected 13 vertices and 14 faces, got %d and %d", stats.Vertices, stats.Faces)
	}

	doc, _ := readTile(t, g)
	if err := doc.Validate(); err != nil {
		t.Errorf("expected no dangling references, got %v", err)
	}
	groups := doc.Groups()
	for _, want := range []string{terrain.GroupName, "building_0", "roof_0"} {
		if !slices.Contains(groups, want) {
			t.Errorf("expected group %s in %v", want, groups)
		}
	}
}

func TestGenerate_TreesAndCustomBuildings(t *testing.T) {
	root := t.TempDir()
	createTestTileDir(t, root, map[string]string{
		"trees.geojson":        testTrees,
		"custom_buildings.txt": "filename tower.obj 330700 4692700\nfilename missing.obj 330800 4692800\nbogus line\n",
		"tower.obj":            triangleOBJ,
	})
	opts := DefaultOptions(root)
	opts.Resolution = tile.Size
	opts.Tree = createTestTemplate(t)
	opts.Autumn = true
	g := newTestGenerator(t, opts)

	stats, err := g.Generate(testTile)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if stats.Trees != 2 || stats.Custom != 1 {
		t.Errorf("expected 2 trees and 1 custom building, got %+v", stats)
	}
	if stats.Vertices != 4+2*3+3 {
		t.Errorf("expected 13 vertices, got %d", stats.Vertices)
	}

	doc, lib := readTile(t, g)
	if !slices.Contains(doc.Groups(), CustomGroup) {
		t.Errorf("expected group %s in %v", CustomGroup, doc.Groups())
	}

	// The custom building is last, placed at local (700, 0, 300) with reversed winding.
	last := doc.Faces[len(doc.Faces)-1]
	if last.V != [3]int{11, 13, 12} {
		t.Errorf("expected reversed face (11 13 12), got %v", last.V)
	}
	if v := doc.Vertices[10]; v[0] != 700 || v[1] != 0 || v[2] != 300 {
		t.Errorf("unexpected custom building vertex %v", v)
	}

	for _, name := range []string{"tree_green", instance.AutumnRed, instance.AutumnYellow, instance.AutumnOrange, CustomMaterial} {
		if !lib.Has(name) {
			t.Errorf("expected material %s", name)
		}
	}
}

func TestGenerate_AutumnDeterministic(t *testing.T) {
	run := func() []byte {
		root := t.TempDir()
		createTestTileDir(t, root, map[string]string{"trees.geojson": testTrees})
		opts := DefaultOptions(root)
		opts.Resolution = tile.Size
		opts.Tree = createTestTemplate(t)
		opts.Autumn = true
		opts.Seed = 99
		g := newTestGenerator(t, opts)
		if _, err := g.Generate(testTile); err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		data, err := os.ReadFile(filepath.Join(g.TileDir(testTile), "tile.obj"))
		if err != nil {
			t.Fatal(err)
		}
		return data
	}

	if string(run()) != string(run()) {
		t.Error("expected identical output for the same seed")
	}
}

func TestGenerateRange(t *testing.T) {
	opts := DefaultOptions(t.TempDir())
	opts.Resolution = 500
	g := newTestGenerator(t, opts)

	r, err := tile.NewRange(testTile, tile.FromIndices(331, 4692, 18))
	if err != nil {
		t.Fatal(err)
	}
	stats, err := g.GenerateRange(r)
	if err != nil {
		t.Fatalf("GenerateRange failed: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 tiles, got %d", len(stats))
	}
	for _, s := range stats {
		if s.Vertices != 9 || s.Faces != 8 {
			t.Errorf("tile %s: expected 9 vertices and 8 faces, got %+v", s.Tile, s)
		}
		if _, err := os.Stat(filepath.Join(g.TileDir(s.Tile), "tile.obj")); err != nil {
			t.Errorf("expected tile.obj for %s: %v", s.Tile, err)
		}
	}
}

func TestGenerateRange_ContinuesPastFailure(t *testing.T) {
	root := t.TempDir()
	createTestTileDir(t, root, map[string]string{"buildings.geojson": "{not json"})
	opts := DefaultOptions(root)
	opts.Resolution = 500
	core, logs := observer.New(zapcore.DebugLevel)
	g, err := New(terrain.Flat(0), opts, zap.New(core))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	next := tile.FromIndices(330, 4693, 18)
	r, err := tile.NewRange(testTile, next)
	if err != nil {
		t.Fatal(err)
	}
	stats, err := g.GenerateRange(r)
	if err == nil {
		t.Fatal("expected an error for the malformed tile")
	}
	if len(stats) != 1 || stats[0].Tile != next {
		t.Fatalf("expected stats for %s only, got %+v", next, stats)
	}
	if _, err := os.Stat(filepath.Join(g.TileDir(next), "tile.obj")); err != nil {
		t.Errorf("expected tile.obj for %s: %v", next, err)
	}
	if _, err := os.Stat(filepath.Join(g.TileDir(testTile), "tile.obj")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected no tile.obj for the failed tile, got %v", err)
	}

	failed := logs.FilterMessage("tile failed").All()
	if len(failed) != 1 {
		t.Fatalf("expected 1 failure entry, got %d", len(failed))
	}
	if failed[0].ContextMap()["tile"] != testTile.String() {
		t.Errorf("expected failure logged for %s, got %v", testTile, failed[0].ContextMap())
	}
}

func TestGenerate_CachesCustomModels(t *testing.T) {
	root := t.TempDir()
	createTestTileDir(t, root, map[string]string{
		"custom_buildings.txt": "filename tower.obj 330700 4692700\nfilename tower.obj 330900 4692900\nfilename tower.obj 331500 4692500\n",
		"tower.obj":            triangleOBJ,
	})
	opts := DefaultOptions(root)
	opts.Resolution = tile.Size
	core, logs := observer.New(zapcore.DebugLevel)
	g, err := New(terrain.Flat(0), opts, zap.New(core))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer g.Close()

	stats, err := g.Generate(testTile)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if stats.Custom != 3 {
		t.Errorf("expected 3 custom buildings, got %d", stats.Custom)
	}
	hits, misses := g.ModelStats()
	if hits != 2 || misses != 1 {
		t.Errorf("expected 2 hits and 1 miss, got %d and %d", hits, misses)
	}
	if n := logs.FilterMessage("custom building anchored outside tile").Len(); n != 1 {
		t.Errorf("expected 1 outside-tile entry, got %d", n)
	}
}

func TestNewInvalidResolution(t *testing.T) {
	opts := DefaultOptions(t.TempDir())
	opts.Resolution = 300
	if _, err := New(terrain.Flat(0), opts, nil); !errors.Is(err, terrain.ErrInvalidResolution) {
		t.Errorf("expected ErrInvalidResolution, got %v", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Tiles.Directory = "/data/tiles"
	cfg.Tiles.City = "syracuse"
	cfg.Buildings.FootprintPolicy = "exact"
	cfg.Buildings.SingleColorRoofs = true
	cfg.Trees.TemplateOBJ = filepath.Join(t.TempDir(), "missing.obj")

	opts, err := OptionsFromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("OptionsFromConfig failed: %v", err)
	}
	if opts.Dir != filepath.Join("/data/tiles", "syracuse") {
		t.Errorf("unexpected dir %s", opts.Dir)
	}
	if opts.Policy != building.PolicyExact {
		t.Errorf("expected exact policy, got %s", opts.Policy)
	}
	if !opts.Materials.SingleColorRoofs || opts.Materials.RoofColor != "roof_gray" {
		t.Errorf("unexpected material policy %+v", opts.Materials)
	}
	if opts.Tree != nil {
		t.Error("expected trees disabled for a missing template")
	}
	if opts.Colors["brick"] != cfg.Buildings.Colors["brick"].Mesh() {
		t.Error("expected palette to carry over")
	}
}
