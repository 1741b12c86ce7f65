package tilefetch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

type diskOutputter struct {
	root     string
	format   string
	hasTiles bool
}

// NewDiskOutputter writes tiles into a z/x/y directory tree under root,
// with the given file extension.
func NewDiskOutputter(root string, format string) (*diskOutputter, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	return &diskOutputter{root: abs, format: format}, nil
}

func (o *diskOutputter) Close() error {
	return nil
}

func (o *diskOutputter) CreateTiles() error {
	if o.hasTiles {
		return nil
	}

	info, err := os.Stat(o.root)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err := os.MkdirAll(o.root, 0755); err != nil {
			return err
		}
	} else if !info.IsDir() {
		return errors.New("output root is already a file")
	}

	o.hasTiles = true
	return nil
}

func (o *diskOutputter) Save(id TileID, data []byte) error {
	relPath := fmt.Sprintf("%d/%d/%d.%s", id.Z, id.X, id.Y, o.format)
	absPath := filepath.Join(o.root, relPath)

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return err
	}

	return os.WriteFile(absPath, data, 0644)
}

// AssignSpatialMetadata is a no-op: a bare directory tree has nowhere to
// carry metadata.
func (o *diskOutputter) AssignSpatialMetadata(orb.Bound, maptile.Zoom, maptile.Zoom) error {
	return nil
}
