package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/marcus-elia/simple-cities-digital-twins/internal/building"
	"github.com/marcus-elia/simple-cities-digital-twins/pkg/tile"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

var logLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

var autumnKeys = [...]string{"red", "yellow", "orange"}

// Validate reports every setting that the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if r := c.Terrain.Resolution; r <= 0 || tile.Size%r != 0 {
		bad("terrain.resolution %d must be a positive divisor of %d", r, tile.Size)
	}
	if c.Buildings.DefaultHeight <= 0 {
		bad("buildings.default_height %v must be positive", c.Buildings.DefaultHeight)
	}
	if _, err := building.ParsePolicy(c.Buildings.FootprintPolicy); err != nil {
		bad("buildings.footprint_policy: %v", err)
	}

	names := make([]string, 0, len(c.Buildings.Colors))
	for name := range c.Buildings.Colors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !c.Buildings.Colors[name].Valid() {
			bad("buildings.colors.%s %s is outside [0,1]", name, c.Buildings.Colors[name])
		}
	}
	if c.Buildings.SingleColorBuildings {
		if _, ok := c.Buildings.Colors[c.Buildings.BuildingColor]; !ok {
			bad("buildings.building_color %q is not a known colour", c.Buildings.BuildingColor)
		}
	}
	if c.Buildings.SingleColorRoofs {
		if _, ok := c.Buildings.Colors[c.Buildings.RoofColor]; !ok {
			bad("buildings.roof_color %q is not a known colour", c.Buildings.RoofColor)
		}
	}

	ac := c.Trees.AutumnColors
	for i, col := range []Color{ac.Red, ac.Yellow, ac.Orange} {
		if !col.Valid() {
			bad("trees.autumn_colors.%s %s is outside [0,1]", autumnKeys[i], col)
		}
	}

	if !logLevels[c.Logging.Level] {
		bad("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return errors.Join(errs...)
}
