// Package instance places copies of a template mesh at point features.
package instance

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/marcus-elia/simple-cities-digital-twins/pkg/mesh"
)

// Template is a small mesh re-emitted at every placement, with the
// materials it references.
type Template struct {
	Name      string
	Mesh      *mesh.Document
	Materials *mesh.Library
}

// VertexCount returns the number of vertices each placement adds.
func (t *Template) VertexCount() int {
	return t.Mesh.VertexCount()
}

// LoadTemplate reads a template geometry document and, when mtlPath is
// not empty, its material document. A missing material document leaves
// the template without materials.
func LoadTemplate(objPath, mtlPath string) (*Template, error) {
	doc, err := mesh.ReadFile(objPath)
	if err != nil {
		return nil, fmt.Errorf("loading template: %w", err)
	}

	lib := mesh.NewLibrary()
	if mtlPath != "" {
		l, err := mesh.ReadMaterialsFile(mtlPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("loading template materials: %w", err)
		default:
			lib = l
		}
	}

	return &Template{Name: objPath, Mesh: doc, Materials: lib}, nil
}
