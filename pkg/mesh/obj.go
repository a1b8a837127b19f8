package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultGroup names groups declared without a name and faces that precede any group.
const DefaultGroup = "default"

// Write serializes the document as a geometry document. Faces are checked
// against the vertices and UVs written before them.
func Write(w io.Writer, d *Document) error {
	if err := d.Validate(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	if d.MaterialLib != "" {
		fmt.Fprintf(bw, "mtllib %s\n", d.MaterialLib)
	}

	for _, st := range d.Stream {
		switch st.Kind {
		case StmtVertex:
			v := d.Vertices[st.Index]
			fmt.Fprintf(bw, "v %.6f %.6f %.6f\n", v[0], v[1], v[2])
		case StmtUV:
			uv := d.UVs[st.Index]
			fmt.Fprintf(bw, "vt %.6f %.6f\n", uv[0], uv[1])
		case StmtGroup:
			fmt.Fprintf(bw, "g %s\n", st.Text)
		case StmtMaterial:
			fmt.Fprintf(bw, "usemtl %s\n", st.Text)
		case StmtFace:
			f := d.Faces[st.Index]
			if f.HasUV {
				fmt.Fprintf(bw, "f %d/%d %d/%d %d/%d\n", f.V[0], f.UV[0], f.V[1], f.UV[1], f.V[2], f.UV[2])
			} else {
				fmt.Fprintf(bw, "f %d %d %d\n", f.V[0], f.V[1], f.V[2])
			}
		case StmtComment:
			fmt.Fprintf(bw, "# %s\n", st.Text)
		}
	}
	return bw.Flush()
}

// WriteFile writes the document to path.
func WriteFile(path string, d *Document) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, d); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// Parse reads a geometry document. Polygonal faces are fan-triangulated,
// normals and smoothing statements are ignored, and negative (relative)
// indices are resolved against the counts read so far.
func Parse(r io.Reader) (*Document, error) {
	d := New("")
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			d.Comment(strings.TrimSpace(strings.TrimPrefix(line, "#")))
			continue
		}

		fields := strings.Fields(line)
		keyword := fields[0]
		rest := strings.TrimSpace(line[len(keyword):])
		fields = fields[1:]

		var err error
		switch keyword {
		case "mtllib":
			d.MaterialLib = rest
		case "v":
			var v []float64
			v, err = parseFloats(fields, 3)
			if err == nil {
				d.AddVertex(mgl64.Vec3{v[0], v[1], v[2]})
			}
		case "vt":
			var uv []float64
			uv, err = parseFloats(fields, 1)
			if err == nil {
				if len(uv) < 2 {
					uv = append(uv, 0)
				}
				d.AddUV(mgl64.Vec2{uv[0], uv[1]})
			}
		case "g", "o":
			if rest == "" {
				rest = DefaultGroup
			}
			d.SetGroup(rest)
		case "usemtl":
			if rest == "" {
				err = fmt.Errorf("usemtl without a name")
			} else {
				d.UseMaterial(rest)
			}
		case "f":
			err = parseFace(d, fields)
		case "vn", "s", "l", "p":
			// Not part of this mesh model.
		default:
			err = fmt.Errorf("unknown statement %q", keyword)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrSyntax, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return d, nil
}

// ReadFile parses the geometry document at path.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return d, nil
}

func parseFloats(fields []string, minCount int) ([]float64, error) {
	if len(fields) < minCount {
		return nil, fmt.Errorf("expected at least %d values, got %d", minCount, len(fields))
	}
	values := make([]float64, 0, len(fields))
	for _, s := range fields {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", s)
		}
		values = append(values, f)
	}
	return values, nil
}

// parseFace handles "a", "a/b", "a//c" and "a/b/c" references.
func parseFace(d *Document, fields []string) error {
	if len(fields) < 3 {
		return fmt.Errorf("face needs at least 3 vertices, got %d", len(fields))
	}

	verts := make([]int, len(fields))
	uvs := make([]int, len(fields))
	hasUV := true
	for k, field := range fields {
		parts := strings.Split(field, "/")
		v, err := resolveIndex(parts[0], d.VertexCount())
		if err != nil {
			return err
		}
		verts[k] = v
		if len(parts) > 1 && parts[1] != "" {
			uv, err := resolveIndex(parts[1], d.UVCount())
			if err != nil {
				return err
			}
			uvs[k] = uv
		} else {
			hasUV = false
		}
	}

	for k := 1; k+1 < len(verts); k++ {
		var err error
		if hasUV {
			err = d.AddTexturedFace([3]int{verts[0], verts[k], verts[k+1]}, [3]int{uvs[0], uvs[k], uvs[k+1]})
		} else {
			err = d.AddFace(verts[0], verts[k], verts[k+1])
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func resolveIndex(s string, count int) (int, error) {
	idx, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad index %q", s)
	}
	if idx < 0 {
		idx = count + 1 + idx
	}
	return idx, nil
}
