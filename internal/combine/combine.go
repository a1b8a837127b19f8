// Package combine merges the meshes of a block of tiles into one geometry
// document and one material document, re-basing every tile into the frame
// of the block.
package combine

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/marcus-elia/simple-cities-digital-twins/internal/logger"
	"github.com/marcus-elia/simple-cities-digital-twins/internal/progress"
	"github.com/marcus-elia/simple-cities-digital-twins/pkg/mesh"
	"github.com/marcus-elia/simple-cities-digital-twins/pkg/tile"
)

// Options locates the tile documents and the combined output.
type Options struct {
	// Dir holds one subdirectory per tile, named by the tile.
	Dir         string
	OBJFile     string
	MTLFile     string
	TextureFile string

	OutputDir  string
	OutputName string // base name of the combined .obj and .mtl
}

// Result summarizes a combined block.
type Result struct {
	Tiles           int
	Skipped         int
	Failed          int
	Vertices        int
	UVs             int
	Faces           int
	Materials       int
	Renamed         int
	Textures        int
	MissingTextures int
}

// Combiner accumulates tiles into one document. Tiles must be added in a
// fixed order; Combine uses the range order (i ascending, then j).
type Combiner struct {
	opts  Options
	block tile.Range
	log   *zap.Logger

	doc    *mesh.Document
	lib    *mesh.Library
	result Result
}

// New creates a combiner for the given block. A nil logger discards output.
func New(block tile.Range, opts Options, log *zap.Logger) *Combiner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Combiner{
		opts:  opts,
		block: block,
		log:   log,
		doc:   mesh.New(opts.OutputName + ".mtl"),
		lib:   mesh.NewLibrary(),
	}
}

// Combine merges every tile of block and writes the combined documents.
// A tile that cannot be read is logged and left out; the combined documents
// are still written and the error joins every failure.
func Combine(block tile.Range, opts Options, log *zap.Logger) (Result, error) {
	c := New(block, opts, log)
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return Result{}, err
	}

	tiles := block.Tiles()
	tracker := progress.New(len(tiles))
	var errs []error
	for _, id := range tiles {
		if err := c.Add(id); err != nil {
			c.log.Error("tile failed", zap.String("tile", id.String()), zap.Error(err))
			c.result.Failed++
			errs = append(errs, fmt.Errorf("tile %s: %w", id, err))
		}
		c.log.Info(tracker.Done())
	}

	if err := c.Write(); err != nil {
		errs = append(errs, err)
	}
	return c.Result(), errors.Join(errs...)
}

// Document returns the combined geometry document.
func (c *Combiner) Document() *mesh.Document {
	return c.doc
}

// Library returns the combined material document.
func (c *Combiner) Library() *mesh.Library {
	return c.lib
}

// Result returns the totals so far.
func (c *Combiner) Result() Result {
	r := c.result
	r.Vertices, r.UVs, r.Faces = c.doc.VertexCount(), c.doc.UVCount(), c.doc.FaceCount()
	r.Materials = c.lib.Len()
	return r
}

// TextureName returns the unique texture file name of a tile in the output directory.
func (c *Combiner) TextureName(id tile.ID) string {
	return id.String() + filepath.Ext(c.opts.TextureFile)
}

// Offset returns the translation of a tile into the block frame. The x
// axis is mirrored across the block.
func (c *Combiner) Offset(id tile.ID) mgl64.Vec3 {
	return mgl64.Vec3{
		float64((c.block.MaxI - id.I) * tile.Size),
		0,
		float64((id.J - c.block.MinJ) * tile.Size),
	}
}

// Add merges one tile. A tile without a geometry document is skipped with
// a warning; a missing texture is logged and not copied.
func (c *Combiner) Add(id tile.ID) error {
	if id.Zone != c.block.Zone {
		return fmt.Errorf("%w: tile zone %d, block zone %d", tile.ErrZoneMismatch, id.Zone, c.block.Zone)
	}
	dir := filepath.Join(c.opts.Dir, id.String())
	log := logger.ForTile(c.log, id.String())

	src, err := mesh.ReadFile(filepath.Join(dir, c.opts.OBJFile))
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("tile has no mesh, skipping", zap.String("file", c.opts.OBJFile))
		c.result.Skipped++
		return nil
	}
	if err != nil {
		return err
	}

	mats, err := mesh.ReadMaterialsFile(filepath.Join(dir, c.opts.MTLFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warn("tile has no materials", zap.String("file", c.opts.MTLFile))
		mats = mesh.NewLibrary()
	case err != nil:
		return err
	}

	renames := c.mergeMaterials(id, mats, log)
	c.appendMesh(id, src, renames)
	c.copyTexture(id, dir, log)
	c.result.Tiles++
	return nil
}

// mergeMaterials adds the materials of one tile, keeping the first
// definition of each name. A name already bound to a different texture is
// renamed with the tile suffix; the returned map records those renames.
func (c *Combiner) mergeMaterials(id tile.ID, mats *mesh.Library, log *zap.Logger) map[string]string {
	renames := make(map[string]string)
	for _, m := range mats.Materials {
		if m.DiffuseMap == c.opts.TextureFile {
			m.DiffuseMap = c.TextureName(id)
		}

		existing, ok := c.lib.Get(m.Name)
		if !ok {
			c.lib.Add(m)
			continue
		}
		if existing.DiffuseMap == m.DiffuseMap {
			continue
		}

		renamed := m.Name + "_" + id.String()
		log.Debug("renaming material bound to a different texture",
			zap.String("material", m.Name), zap.String("renamed", renamed))
		renames[m.Name] = renamed
		m.Name = renamed
		if !c.lib.Add(m) {
			log.Warn("renamed material already defined, keeping the first", zap.String("material", renamed))
			continue
		}
		c.result.Renamed++
	}
	return renames
}

// appendMesh re-emits one tile document in the block frame.
func (c *Combiner) appendMesh(id tile.ID, src *mesh.Document, renames map[string]string) {
	offset := c.Offset(id)
	suffix := "_" + id.String()

	if facesBeforeGroup(src) {
		c.doc.SetGroup(mesh.DefaultGroup + suffix)
	}

	c.doc.AppendTransformed(src, mesh.Transform{
		Vertex: func(v mgl64.Vec3) mgl64.Vec3 { return v.Add(offset) },
		UV:     func(uv mgl64.Vec2) mgl64.Vec2 { return mgl64.Vec2{1 - uv[1], uv[0]} },
		Group:  func(name string) (string, bool) { return name + suffix, true },
		Material: func(name string) (string, bool) {
			if renamed, ok := renames[name]; ok {
				return renamed, true
			}
			return name, true
		},
		DropComments: true,
	})
}

func (c *Combiner) copyTexture(id tile.ID, dir string, log *zap.Logger) {
	from := filepath.Join(dir, c.opts.TextureFile)
	to := filepath.Join(c.opts.OutputDir, c.TextureName(id))
	if err := copyFile(from, to); err != nil {
		log.Warn("texture not copied", zap.String("file", from), zap.Error(err))
		c.result.MissingTextures++
		return
	}
	c.result.Textures++
}

// Write writes the combined documents into the output directory.
func (c *Combiner) Write() error {
	base := filepath.Join(c.opts.OutputDir, c.opts.OutputName)
	if err := mesh.WriteMaterialsFile(base+".mtl", c.lib); err != nil {
		return err
	}
	return mesh.WriteFile(base+".obj", c.doc)
}

// facesBeforeGroup reports whether src emits faces before its first group marker.
func facesBeforeGroup(src *mesh.Document) bool {
	for _, st := range src.Stream {
		switch st.Kind {
		case mesh.StmtGroup:
			return false
		case mesh.StmtFace:
			return true
		}
	}
	return false
}

func copyFile(from, to string) error {
	in, err := os.Open(from)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(to)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
