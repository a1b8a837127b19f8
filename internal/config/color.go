package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/marcus-elia/simple-cities-digital-twins/pkg/mesh"
)

// Color is an RGB triplet in [0, 1]. In YAML it is written as "r,g,b" and
// may also be given as a three element sequence.
type Color [3]float64

// ParseColor parses "r,g,b".
func ParseColor(s string) (Color, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Color{}, fmt.Errorf("colour %q: expected r,g,b", s)
	}
	var c Color
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Color{}, fmt.Errorf("colour %q: bad component %q", s, p)
		}
		c[i] = v
	}
	return c, nil
}

// String returns "r,g,b".
func (c Color) String() string {
	return fmt.Sprintf("%s,%s,%s", fmtComponent(c[0]), fmtComponent(c[1]), fmtComponent(c[2]))
}

// Valid reports whether every component is within [0, 1].
func (c Color) Valid() bool {
	for _, v := range c {
		if v < 0 || v > 1 {
			return false
		}
	}
	return true
}

// Mesh converts the colour for the material document.
func (c Color) Mesh() mesh.Color {
	return mesh.Color(c)
}

// UnmarshalYAML accepts "r,g,b" scalars and [r, g, b] sequences.
func (c *Color) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := ParseColor(value.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", value.Line, err)
		}
		*c = parsed
		return nil
	case yaml.SequenceNode:
		var vals []float64
		if err := value.Decode(&vals); err != nil {
			return err
		}
		if len(vals) != 3 {
			return fmt.Errorf("line %d: colour needs 3 components, got %d", value.Line, len(vals))
		}
		*c = Color{vals[0], vals[1], vals[2]}
		return nil
	default:
		return fmt.Errorf("line %d: colour must be \"r,g,b\" or a sequence", value.Line)
	}
}

// MarshalYAML writes the colour as "r,g,b".
func (c Color) MarshalYAML() (any, error) {
	return c.String(), nil
}

func fmtComponent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
