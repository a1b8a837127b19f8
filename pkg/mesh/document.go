// Package mesh provides an append-only polygon mesh document and its
// text serialization (geometry document and material document).
package mesh

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Document errors.
var (
	ErrDanglingIndex = errors.New("face references an index that has not been emitted")
	ErrSyntax        = errors.New("mesh syntax error")
)

// StatementKind tags one entry of the document stream.
type StatementKind uint8

// Statement kinds, in the order they appear in the text format.
const (
	StmtVertex StatementKind = iota
	StmtUV
	StmtGroup
	StmtMaterial
	StmtFace
	StmtComment
)

// String returns the text keyword of the statement kind.
func (k StatementKind) String() string {
	switch k {
	case StmtVertex:
		return "v"
	case StmtUV:
		return "vt"
	case StmtGroup:
		return "g"
	case StmtMaterial:
		return "usemtl"
	case StmtFace:
		return "f"
	case StmtComment:
		return "#"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Statement is one entry of the emission stream.
// Index points into Vertices, UVs or Faces for the indexed kinds;
// Text holds the group, material or comment text.
type Statement struct {
	Kind  StatementKind
	Index int
	Text  string
}

// Face is a triangle. Indices are 1-based as in the text format.
// UV is only meaningful when HasUV is set.
type Face struct {
	V     [3]int
	UV    [3]int
	HasUV bool
}

// Document is an append-only mesh: vertices, UVs, group and material
// markers and faces, kept in emission order.
type Document struct {
	MaterialLib string
	Vertices    []mgl64.Vec3
	UVs         []mgl64.Vec2
	Faces       []Face
	Stream      []Statement
}

// New returns an empty document referencing the given material library.
// An empty name omits the mtllib line.
func New(materialLib string) *Document {
	return &Document{MaterialLib: materialLib}
}

// VertexCount returns the number of vertices emitted so far.
func (d *Document) VertexCount() int {
	return len(d.Vertices)
}

// UVCount returns the number of texture coordinates emitted so far.
func (d *Document) UVCount() int {
	return len(d.UVs)
}

// FaceCount returns the number of faces emitted so far.
func (d *Document) FaceCount() int {
	return len(d.Faces)
}

// AddVertex appends a vertex and returns its 1-based index.
func (d *Document) AddVertex(p mgl64.Vec3) int {
	d.Vertices = append(d.Vertices, p)
	d.Stream = append(d.Stream, Statement{Kind: StmtVertex, Index: len(d.Vertices) - 1})
	return len(d.Vertices)
}

// AddUV appends a texture coordinate and returns its 1-based index.
func (d *Document) AddUV(uv mgl64.Vec2) int {
	d.UVs = append(d.UVs, uv)
	d.Stream = append(d.Stream, Statement{Kind: StmtUV, Index: len(d.UVs) - 1})
	return len(d.UVs)
}

// SetGroup starts a new group for subsequent faces.
func (d *Document) SetGroup(name string) {
	d.Stream = append(d.Stream, Statement{Kind: StmtGroup, Text: name})
}

// UseMaterial sets the material for subsequent faces.
func (d *Document) UseMaterial(name string) {
	d.Stream = append(d.Stream, Statement{Kind: StmtMaterial, Text: name})
}

// Comment appends a comment line.
func (d *Document) Comment(text string) {
	d.Stream = append(d.Stream, Statement{Kind: StmtComment, Text: text})
}

// AddFace appends a triangle over existing vertices.
func (d *Document) AddFace(a, b, c int) error {
	return d.appendFace(Face{V: [3]int{a, b, c}})
}

// AddTexturedFace appends a triangle over existing vertices and UVs.
func (d *Document) AddTexturedFace(v, uv [3]int) error {
	return d.appendFace(Face{V: v, UV: uv, HasUV: true})
}

func (d *Document) appendFace(f Face) error {
	if err := d.checkFace(f, len(d.Vertices), len(d.UVs)); err != nil {
		return err
	}
	d.Faces = append(d.Faces, f)
	d.Stream = append(d.Stream, Statement{Kind: StmtFace, Index: len(d.Faces) - 1})
	return nil
}

func (d *Document) checkFace(f Face, vertices, uvs int) error {
	for k := range 3 {
		if f.V[k] < 1 || f.V[k] > vertices {
			return fmt.Errorf("%w: vertex %d of %d", ErrDanglingIndex, f.V[k], vertices)
		}
		if f.HasUV && (f.UV[k] < 1 || f.UV[k] > uvs) {
			return fmt.Errorf("%w: uv %d of %d", ErrDanglingIndex, f.UV[k], uvs)
		}
	}
	return nil
}

// Validate walks the stream and checks that no face references an index
// beyond the vertices and UVs emitted before it.
func (d *Document) Validate() error {
	vertices, uvs := 0, 0
	for _, st := range d.Stream {
		switch st.Kind {
		case StmtVertex:
			vertices++
		case StmtUV:
			uvs++
		case StmtFace:
			if err := d.checkFace(d.Faces[st.Index], vertices, uvs); err != nil {
				return fmt.Errorf("face %d: %w", st.Index+1, err)
			}
		}
	}
	return nil
}

// Groups returns group names in creation order.
func (d *Document) Groups() []string {
	var names []string
	for _, st := range d.Stream {
		if st.Kind == StmtGroup {
			names = append(names, st.Text)
		}
	}
	return names
}

// Transform rewrites statements while a document is appended onto another.
// Nil functions leave the statement unchanged. Group and Material return
// false to drop the marker.
type Transform struct {
	Vertex         func(mgl64.Vec3) mgl64.Vec3
	UV             func(mgl64.Vec2) mgl64.Vec2
	Group          func(string) (string, bool)
	Material       func(string) (string, bool)
	ReverseWinding bool
	DropComments   bool
}

// AppendTransformed copies src onto the end of d through t. Face indices are
// offset by the vertex and UV counts of d at the time of the call.
func (d *Document) AppendTransformed(src *Document, t Transform) {
	vOffset, uvOffset := len(d.Vertices), len(d.UVs)
	for _, st := range src.Stream {
		switch st.Kind {
		case StmtVertex:
			v := src.Vertices[st.Index]
			if t.Vertex != nil {
				v = t.Vertex(v)
			}
			d.AddVertex(v)
		case StmtUV:
			uv := src.UVs[st.Index]
			if t.UV != nil {
				uv = t.UV(uv)
			}
			d.AddUV(uv)
		case StmtGroup:
			name, keep := st.Text, true
			if t.Group != nil {
				name, keep = t.Group(name)
			}
			if keep {
				d.SetGroup(name)
			}
		case StmtMaterial:
			name, keep := st.Text, true
			if t.Material != nil {
				name, keep = t.Material(name)
			}
			if keep {
				d.UseMaterial(name)
			}
		case StmtFace:
			f := src.Faces[st.Index]
			for k := range 3 {
				f.V[k] += vOffset
				if f.HasUV {
					f.UV[k] += uvOffset
				}
			}
			if t.ReverseWinding {
				f.V[1], f.V[2] = f.V[2], f.V[1]
				f.UV[1], f.UV[2] = f.UV[2], f.UV[1]
			}
			d.Faces = append(d.Faces, f)
			d.Stream = append(d.Stream, Statement{Kind: StmtFace, Index: len(d.Faces) - 1})
		case StmtComment:
			if !t.DropComments {
				d.Comment(st.Text)
			}
		}
	}
}
