package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Illumination models used by the material document.
const (
	IllumFlat = 0 // unlit, colour only
	IllumLit  = 1 // lit, diffuse
)

// Color is an RGB triplet in [0, 1].
type Color [3]float64

// Material is one material definition. Nil fields are not written.
// Extra keeps statements this model does not interpret, verbatim and in order.
type Material struct {
	Name       string
	Ambient    *Color
	Diffuse    *Color
	Illum      *int
	DiffuseMap string
	Extra      []string
}

// FlatMaterial returns an unlit single-colour material.
func FlatMaterial(name string, c Color) Material {
	ambient, diffuse, illum := c, c, IllumFlat
	return Material{Name: name, Ambient: &ambient, Diffuse: &diffuse, Illum: &illum}
}

// TexturedMaterial returns a lit white material with a diffuse texture map.
func TexturedMaterial(name, texture string) Material {
	white := Color{1, 1, 1}
	ambient, diffuse, illum := white, white, IllumLit
	return Material{Name: name, Ambient: &ambient, Diffuse: &diffuse, Illum: &illum, DiffuseMap: texture}
}

// Library is an ordered set of materials, unique by name.
type Library struct {
	Materials []Material
	index     map[string]int
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{index: make(map[string]int)}
}

// Add appends m unless a material with the same name exists, in which case
// the first definition is kept and Add returns false.
func (l *Library) Add(m Material) bool {
	if l.index == nil {
		l.index = make(map[string]int)
	}
	if _, ok := l.index[m.Name]; ok {
		return false
	}
	l.index[m.Name] = len(l.Materials)
	l.Materials = append(l.Materials, m)
	return true
}

// Get returns the material with the given name.
func (l *Library) Get(name string) (Material, bool) {
	i, ok := l.index[name]
	if !ok {
		return Material{}, false
	}
	return l.Materials[i], true
}

// Has reports whether a material with the given name exists.
func (l *Library) Has(name string) bool {
	_, ok := l.index[name]
	return ok
}

// Len returns the number of materials.
func (l *Library) Len() int {
	return len(l.Materials)
}

// WriteMaterials serializes the library as a material document.
func WriteMaterials(w io.Writer, l *Library) error {
	bw := bufio.NewWriter(w)
	for _, m := range l.Materials {
		fmt.Fprintf(bw, "newmtl %s\n", m.Name)
		if m.Ambient != nil {
			fmt.Fprintf(bw, "Ka %.4f %.4f %.4f\n", m.Ambient[0], m.Ambient[1], m.Ambient[2])
		}
		if m.Diffuse != nil {
			fmt.Fprintf(bw, "Kd %.4f %.4f %.4f\n", m.Diffuse[0], m.Diffuse[1], m.Diffuse[2])
		}
		if m.Illum != nil {
			fmt.Fprintf(bw, "illum %d\n", *m.Illum)
		}
		if m.DiffuseMap != "" {
			fmt.Fprintf(bw, "map_Kd %s\n", m.DiffuseMap)
		}
		for _, line := range m.Extra {
			fmt.Fprintln(bw, line)
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// WriteMaterialsFile writes the library to path.
func WriteMaterialsFile(path string, l *Library) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteMaterials(f, l); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// ParseMaterials reads a material document. Repeated names keep the first definition.
func ParseMaterials(r io.Reader) (*Library, error) {
	l := NewLibrary()
	scanner := bufio.NewScanner(r)

	var cur *Material
	flush := func() {
		if cur != nil {
			l.Add(*cur)
			cur = nil
		}
	}

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		keyword := fields[0]
		rest := strings.TrimSpace(line[len(keyword):])

		if keyword == "newmtl" {
			if rest == "" {
				return nil, fmt.Errorf("%w: line %d: newmtl without a name", ErrSyntax, lineNo)
			}
			flush()
			cur = &Material{Name: rest}
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("%w: line %d: %q before newmtl", ErrSyntax, lineNo, keyword)
		}

		switch keyword {
		case "Ka", "Kd":
			c, err := parseColor(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %w", ErrSyntax, lineNo, err)
			}
			if keyword == "Ka" {
				cur.Ambient = &c
			} else {
				cur.Diffuse = &c
			}
		case "illum":
			n, err := strconv.Atoi(rest)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: bad illum %q", ErrSyntax, lineNo, rest)
			}
			cur.Illum = &n
		case "map_Kd":
			cur.DiffuseMap = rest
		default:
			cur.Extra = append(cur.Extra, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return l, nil
}

// ReadMaterialsFile parses the material document at path.
func ReadMaterialsFile(path string) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	l, err := ParseMaterials(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return l, nil
}

func parseColor(fields []string) (Color, error) {
	if len(fields) != 3 {
		return Color{}, fmt.Errorf("expected 3 colour components, got %d", len(fields))
	}
	var c Color
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Color{}, fmt.Errorf("bad colour component %q", s)
		}
		c[i] = v
	}
	return c, nil
}
