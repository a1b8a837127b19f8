// Package config handles pipeline configuration loading and management.
package config

import "path/filepath"

// Config holds all pipeline settings.
type Config struct {
	Tiles     TilesConfig     `yaml:"tiles"`
	Terrain   TerrainConfig   `yaml:"terrain"`
	Elevation ElevationConfig `yaml:"elevation"`
	Buildings BuildingsConfig `yaml:"buildings"`
	Trees     TreesConfig     `yaml:"trees"`
	Combine   CombineConfig   `yaml:"combine"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// TilesConfig locates the tile directories and names their files.
// Tile directories live at <directory>/<city>/<i>_<j>_<zone>.
type TilesConfig struct {
	Directory   string `yaml:"directory"`
	City        string `yaml:"city"`
	Southwest   string `yaml:"sw"` // "lat,lon"
	Northeast   string `yaml:"ne"` // "lat,lon"
	OBJFile     string `yaml:"obj_file"`
	MTLFile     string `yaml:"mtl_file"`
	TextureFile string `yaml:"texture_file"`
}

// CityDir returns the directory holding the tile subdirectories.
func (t TilesConfig) CityDir() string {
	return filepath.Join(t.Directory, t.City)
}

// TerrainConfig holds terrain mesh settings.
type TerrainConfig struct {
	Resolution int `yaml:"resolution"` // grid spacing, must divide the tile size
}

// ElevationConfig locates the elevation raster.
type ElevationConfig struct {
	DEMPath string  `yaml:"dem_path"` // .asc, or .tif with a .tfw world file
	Scale   float64 `yaml:"scale"`    // TIFF sample multiplier
	Offset  float64 `yaml:"offset"`   // TIFF sample offset
}

// BuildingsConfig holds the extrusion and material policy.
type BuildingsConfig struct {
	DefaultHeight        float64          `yaml:"default_height"`
	FootprintPolicy      string           `yaml:"footprint_policy"` // convex_hull or exact
	DefaultWallMaterial  string           `yaml:"default_wall_material"`
	DefaultRoofMaterial  string           `yaml:"default_roof_material"`
	SingleColorBuildings bool             `yaml:"single_color_buildings"`
	BuildingColor        string           `yaml:"building_color"`
	SingleColorRoofs     bool             `yaml:"single_color_roofs"`
	RoofColor            string           `yaml:"roof_color"`
	Colors               map[string]Color `yaml:"colors"` // material name -> RGB
}

// TreesConfig holds the tree template and seasonal settings.
type TreesConfig struct {
	TemplateOBJ  string       `yaml:"template_obj"`
	TemplateMTL  string       `yaml:"template_mtl"`
	Autumn       bool         `yaml:"autumn"`
	Seed         int64        `yaml:"seed"`
	AutumnColors AutumnColors `yaml:"autumn_colors"`
}

// AutumnColors holds the foliage variant colours.
type AutumnColors struct {
	Red    Color `yaml:"red"`
	Yellow Color `yaml:"yellow"`
	Orange Color `yaml:"orange"`
}

// CombineConfig holds the combined mesh output settings.
type CombineConfig struct {
	OutputDir  string `yaml:"output_dir"`
	OutputName string `yaml:"output_name"` // base name of the .obj and .mtl files
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Tiles: TilesConfig{
			Directory:   "tiles",
			OBJFile:     "tile.obj",
			MTLFile:     "tile.mtl",
			TextureFile: "tile_texture.jpg",
		},
		Terrain: TerrainConfig{
			Resolution: 50,
		},
		Elevation: ElevationConfig{
			Scale: 1,
		},
		Buildings: BuildingsConfig{
			DefaultHeight:       5,
			FootprintPolicy:     "convex_hull",
			DefaultWallMaterial: "concrete",
			DefaultRoofMaterial: "roof_white",
			BuildingColor:       "concrete",
			RoofColor:           "roof_gray",
			Colors:              DefaultColors(),
		},
		Trees: TreesConfig{
			TemplateOBJ: "models/tree.obj",
			TemplateMTL: "models/tree.mtl",
			Seed:        1,
			AutumnColors: AutumnColors{
				Red:    Color{1, 0, 0},
				Yellow: Color{1, 1, 0},
				Orange: Color{1, 0.5, 0},
			},
		},
		Combine: CombineConfig{
			OutputDir:  "combined",
			OutputName: "city",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultColors returns the building material palette.
func DefaultColors() map[string]Color {
	return map[string]Color{
		"glass":        {0.53, 0.75, 0.86},
		"brick":        {0.55, 0.25, 0.2},
		"concrete":     {0.7, 0.7, 0.68},
		"marble":       {0.93, 0.92, 0.88},
		"plaster":      {0.9, 0.86, 0.78},
		"metal":        {0.6, 0.63, 0.66},
		"vinyl_tan":    {0.82, 0.71, 0.55},
		"vinyl_white":  {0.95, 0.95, 0.93},
		"vinyl_gray":   {0.62, 0.62, 0.62},
		"vinyl_brown":  {0.45, 0.33, 0.24},
		"vinyl_yellow": {0.93, 0.86, 0.55},
		"vinyl_blue":   {0.55, 0.66, 0.78},
		"vinyl_green":  {0.56, 0.68, 0.52},
		"roof_black":   {0.15, 0.15, 0.15},
		"roof_gray":    {0.4, 0.4, 0.42},
		"roof_white":   {0.88, 0.88, 0.88},
	}
}
