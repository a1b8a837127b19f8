package mesh

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// createTestDocument builds a small document with interleaved vertices, markers and faces.
func createTestDocument() *Document {
	d := New("tile.mtl")
	d.Comment("quad")
	a := d.AddVertex(mgl64.Vec3{0, 0, 0})
	ua := d.AddUV(mgl64.Vec2{0, 0})
	b := d.AddVertex(mgl64.Vec3{1, 0, 0})
	ub := d.AddUV(mgl64.Vec2{1, 0})
	c := d.AddVertex(mgl64.Vec3{1, 0.5, 1})
	uc := d.AddUV(mgl64.Vec2{1, 1})
	d.SetGroup("terrain")
	d.UseMaterial("grass")
	d.AddTexturedFace([3]int{a, b, c}, [3]int{ua, ub, uc})
	e := d.AddVertex(mgl64.Vec3{-2.25, 3, 4.125})
	d.SetGroup("building_0")
	d.UseMaterial("brick")
	d.AddFace(a, c, e)
	return d
}

func TestAddVertexReturnsOneBasedIndex(t *testing.T) {
	d := New("")
	if got := d.AddVertex(mgl64.Vec3{}); got != 1 {
		t.Errorf("expected first vertex index 1, got %d", got)
	}
	if got := d.AddVertex(mgl64.Vec3{}); got != 2 {
		t.Errorf("expected second vertex index 2, got %d", got)
	}
	if got := d.AddUV(mgl64.Vec2{}); got != 1 {
		t.Errorf("expected first uv index 1, got %d", got)
	}
}

func TestAddFaceRejectsForwardReference(t *testing.T) {
	d := New("")
	d.AddVertex(mgl64.Vec3{})
	d.AddVertex(mgl64.Vec3{})

	if err := d.AddFace(1, 2, 3); !errors.Is(err, ErrDanglingIndex) {
		t.Errorf("expected ErrDanglingIndex, got %v", err)
	}
	if err := d.AddFace(0, 1, 2); !errors.Is(err, ErrDanglingIndex) {
		t.Errorf("expected ErrDanglingIndex for index 0, got %v", err)
	}
	if err := d.AddTexturedFace([3]int{1, 2, 2}, [3]int{1, 1, 1}); !errors.Is(err, ErrDanglingIndex) {
		t.Errorf("expected ErrDanglingIndex for missing uv, got %v", err)
	}
	if d.FaceCount() != 0 {
		t.Errorf("expected no faces, got %d", d.FaceCount())
	}
}

func TestWriteFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, createTestDocument()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	want := strings.Join([]string{
		"mtllib tile.mtl",
		"# quad",
		"v 0.000000 0.000000 0.000000",
		"vt 0.000000 0.000000",
		"v 1.000000 0.000000 0.000000",
		"vt 1.000000 0.000000",
		"v 1.000000 0.500000 1.000000",
		"vt 1.000000 1.000000",
		"g terrain",
		"usemtl grass",
		"f 1/1 2/2 3/3",
		"v -2.250000 3.000000 4.125000",
		"g building_0",
		"usemtl brick",
		"f 1 3 4",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestRoundTrip(t *testing.T) {
	orig := createTestDocument()

	var buf bytes.Buffer
	if err := Write(&buf, orig); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	parsed, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if parsed.MaterialLib != orig.MaterialLib {
		t.Errorf("expected mtllib %s, got %s", orig.MaterialLib, parsed.MaterialLib)
	}
	if len(parsed.Stream) != len(orig.Stream) {
		t.Fatalf("expected %d statements, got %d", len(orig.Stream), len(parsed.Stream))
	}
	for i := range orig.Stream {
		if parsed.Stream[i] != orig.Stream[i] {
			t.Errorf("statement %d: expected %+v, got %+v", i, orig.Stream[i], parsed.Stream[i])
		}
	}
	for i := range orig.Vertices {
		if !parsed.Vertices[i].ApproxEqual(orig.Vertices[i]) {
			t.Errorf("vertex %d: expected %v, got %v", i, orig.Vertices[i], parsed.Vertices[i])
		}
	}
	for i := range orig.UVs {
		if !parsed.UVs[i].ApproxEqual(orig.UVs[i]) {
			t.Errorf("uv %d: expected %v, got %v", i, orig.UVs[i], parsed.UVs[i])
		}
	}
	for i := range orig.Faces {
		if parsed.Faces[i] != orig.Faces[i] {
			t.Errorf("face %d: expected %+v, got %+v", i, orig.Faces[i], parsed.Faces[i])
		}
	}

	// Writing the parsed document again yields identical text.
	var again, first bytes.Buffer
	Write(&first, orig)
	Write(&again, parsed)
	if again.String() != first.String() {
		t.Error("second write differs from first")
	}
}

func TestParseFaceForms(t *testing.T) {
	src := `v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
s off
f 1/1/1 2/2/1 3/3/1 4/4/1
f 1//1 2//1 3//1
f -4 -3 -2
`
	d, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	// Quad fans into two triangles, then two plain triangles.
	if d.FaceCount() != 4 {
		t.Fatalf("expected 4 faces, got %d", d.FaceCount())
	}
	if d.Faces[1].V != [3]int{1, 3, 4} || d.Faces[1].UV != [3]int{1, 3, 4} || !d.Faces[1].HasUV {
		t.Errorf("unexpected second fan triangle %+v", d.Faces[1])
	}
	if d.Faces[2].HasUV {
		t.Error("expected v//vn face to have no uv")
	}
	if d.Faces[3].V != [3]int{1, 2, 3} {
		t.Errorf("expected relative indices 1 2 3, got %v", d.Faces[3].V)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		dangling bool
	}{
		{"short vertex", "v 1 2\n", false},
		{"bad number", "v 1 x 3\n", false},
		{"unknown keyword", "curv 1 2\n", false},
		{"short face", "v 0 0 0\nf 1 1\n", false},
		{"forward reference", "v 0 0 0\nf 1 2 3\nv 1 1 1\nv 2 2 2\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.src))
			if !errors.Is(err, ErrSyntax) {
				t.Errorf("expected ErrSyntax, got %v", err)
			}
			if tt.dangling && !errors.Is(err, ErrDanglingIndex) {
				t.Errorf("expected ErrDanglingIndex, got %v", err)
			}
		})
	}
}

func TestWriteRejectsCorruptStream(t *testing.T) {
	d := New("")
	d.AddVertex(mgl64.Vec3{})
	d.Faces = append(d.Faces, Face{V: [3]int{1, 1, 2}})
	d.Stream = append(d.Stream, Statement{Kind: StmtFace, Index: 0})

	var buf bytes.Buffer
	if err := Write(&buf, d); !errors.Is(err, ErrDanglingIndex) {
		t.Errorf("expected ErrDanglingIndex, got %v", err)
	}
}

func TestAppendTransformed(t *testing.T) {
	dst := createTestDocument()
	src := createTestDocument()
	baseVertices, baseUVs := dst.VertexCount(), dst.UVCount()

	dst.AppendTransformed(src, Transform{
		Vertex: func(v mgl64.Vec3) mgl64.Vec3 { return v.Add(mgl64.Vec3{10, 0, 0}) },
		Group:  func(name string) (string, bool) { return name + "_copy", true },
		Material: func(name string) (string, bool) {
			return name, name != "grass"
		},
		ReverseWinding: true,
		DropComments:   true,
	})

	if dst.VertexCount() != 2*baseVertices || dst.UVCount() != 2*baseUVs {
		t.Errorf("expected doubled counts, got %d vertices %d uvs", dst.VertexCount(), dst.UVCount())
	}
	if err := dst.Validate(); err != nil {
		t.Errorf("appended document invalid: %v", err)
	}

	last := dst.Faces[len(dst.Faces)-1]
	if last.V != [3]int{1 + baseVertices, 4 + baseVertices, 3 + baseVertices} {
		t.Errorf("unexpected offset reversed face %v", last.V)
	}
	if got := dst.Vertices[baseVertices]; got != (mgl64.Vec3{10, 0, 0}) {
		t.Errorf("expected translated vertex, got %v", got)
	}

	groups := dst.Groups()
	if groups[len(groups)-1] != "building_0_copy" {
		t.Errorf("expected renamed group, got %v", groups)
	}

	materials := 0
	comments := 0
	for _, st := range dst.Stream {
		switch st.Kind {
		case StmtMaterial:
			materials++
		case StmtComment:
			comments++
		}
	}
	if materials != 3 {
		t.Errorf("expected 3 material markers, got %d", materials)
	}
	if comments != 1 {
		t.Errorf("expected 1 comment, got %d", comments)
	}
}

func TestMaterialLibraryDeduplicates(t *testing.T) {
	l := NewLibrary()
	if !l.Add(FlatMaterial("brick", Color{0.5, 0.2, 0.1})) {
		t.Error("expected first add to succeed")
	}
	if l.Add(FlatMaterial("brick", Color{1, 1, 1})) {
		t.Error("expected duplicate add to be rejected")
	}
	m, ok := l.Get("brick")
	if !ok {
		t.Fatal("brick missing")
	}
	if *m.Diffuse != (Color{0.5, 0.2, 0.1}) {
		t.Errorf("expected first definition kept, got %v", *m.Diffuse)
	}
	if l.Len() != 1 {
		t.Errorf("expected 1 material, got %d", l.Len())
	}
}

func TestMaterialsRoundTrip(t *testing.T) {
	l := NewLibrary()
	l.Add(TexturedMaterial("5_4_18", "tile_texture.jpg"))
	l.Add(FlatMaterial("glass", Color{0.25, 0.5, 0.75}))

	path := filepath.Join(t.TempDir(), "tile.mtl")
	if err := WriteMaterialsFile(path, l); err != nil {
		t.Fatalf("WriteMaterialsFile failed: %v", err)
	}
	parsed, err := ReadMaterialsFile(path)
	if err != nil {
		t.Fatalf("ReadMaterialsFile failed: %v", err)
	}

	if parsed.Len() != 2 {
		t.Fatalf("expected 2 materials, got %d", parsed.Len())
	}
	tex, _ := parsed.Get("5_4_18")
	if tex.DiffuseMap != "tile_texture.jpg" {
		t.Errorf("expected map_Kd tile_texture.jpg, got %q", tex.DiffuseMap)
	}
	if tex.Illum == nil || *tex.Illum != IllumLit {
		t.Errorf("expected illum 1, got %v", tex.Illum)
	}
	glass, _ := parsed.Get("glass")
	if glass.Illum == nil || *glass.Illum != IllumFlat {
		t.Errorf("expected illum 0, got %v", glass.Illum)
	}
	if *glass.Ambient != (Color{0.25, 0.5, 0.75}) {
		t.Errorf("unexpected ambient %v", *glass.Ambient)
	}
}

func TestParseMaterialsKeepsUnknownStatements(t *testing.T) {
	src := `# tree
newmtl leaves
Kd 0.1 0.6 0.1
Ns 10.0
d 1.0
illum 0

newmtl leaves
Kd 1 0 0
`
	l, err := ParseMaterials(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseMaterials failed: %v", err)
	}
	if l.Len() != 1 {
		t.Fatalf("expected duplicate to be dropped, got %d materials", l.Len())
	}
	m, _ := l.Get("leaves")
	if len(m.Extra) != 2 || m.Extra[0] != "Ns 10.0" {
		t.Errorf("unexpected extra statements %v", m.Extra)
	}
	if m.Ambient != nil {
		t.Error("expected no ambient colour")
	}
}

func TestParseMaterialsErrors(t *testing.T) {
	for _, src := range []string{"Kd 1 1 1\n", "newmtl\n", "newmtl a\nKd 1 1\n", "newmtl a\nillum x\n"} {
		if _, err := ParseMaterials(strings.NewReader(src)); !errors.Is(err, ErrSyntax) {
			t.Errorf("%q: expected ErrSyntax, got %v", src, err)
		}
	}
}
