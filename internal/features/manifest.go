package features

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Placement positions a custom building model at a projected coordinate.
type Placement struct {
	File string
	X, Y float64
}

// Manifest is the parsed custom building file of a tile.
//
//	filename <model.obj> <x> <y>   place a model
//	id <osm_id>                    exclude a generated building
type Manifest struct {
	Placements []Placement
	Exclude    map[int64]bool
}

// ParseManifest reads a custom building manifest. Malformed lines are
// logged and ignored.
func ParseManifest(r io.Reader, log *zap.Logger) (Manifest, error) {
	m := Manifest{Exclude: make(map[int64]bool)}
	scanner := bufio.NewScanner(r)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := m.parseLine(line); err != nil {
			log.Warn("ignoring custom building line", zap.Int("line", lineNo), zap.String("text", line), zap.Error(err))
		}
	}
	if err := scanner.Err(); err != nil {
		return m, err
	}
	return m, nil
}

func (m *Manifest) parseLine(line string) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "filename":
		if len(fields) != 4 {
			return fmt.Errorf("expected filename <obj> <x> <y>, got %d fields", len(fields))
		}
		x, errX := strconv.ParseFloat(fields[2], 64)
		y, errY := strconv.ParseFloat(fields[3], 64)
		if err := errors.Join(errX, errY); err != nil {
			return err
		}
		m.Placements = append(m.Placements, Placement{File: fields[1], X: x, Y: y})
	case "id":
		if len(fields) != 2 {
			return fmt.Errorf("expected id <osm_id>, got %d fields", len(fields))
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return err
		}
		m.Exclude[id] = true
	default:
		return fmt.Errorf("unknown prefix %q", fields[0])
	}
	return nil
}

// LoadManifest reads the manifest at path. A missing file is an empty manifest.
func LoadManifest(path string, log *zap.Logger) (Manifest, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Manifest{Exclude: make(map[int64]bool)}, nil
	}
	if err != nil {
		return Manifest{}, err
	}
	defer f.Close()

	m, err := ParseManifest(f, log.With(zap.String("file", path)))
	if err != nil {
		return m, fmt.Errorf("reading %s: %w", path, err)
	}
	return m, nil
}
