package overlayfs

import (
	"os"
	"path"
	"strings"
)

// WhiteoutPrefix is the prefix for whiteout marker files (AUFS/Docker style).
const WhiteoutPrefix = ".wh."

// Whiteouts answers whether a union path is marked deleted. The resolver
// only ever consults markers; creating and removing them is the business of
// unlink-style operations.
type Whiteouts interface {
	HasWhiteout(name string) (bool, error)
}

// whiteoutWriter is the optional mutating side of a whiteout store. The
// file-operation layer requires it to delete union-visible files that live
// on the read-only branch.
type whiteoutWriter interface {
	CreateWhiteout(name string) error
	RemoveWhiteout(name string) error
}

// isWhiteout checks if a filename is a whiteout marker.
func isWhiteout(name string) bool {
	return strings.HasPrefix(path.Base(name), WhiteoutPrefix)
}

// whiteoutPath returns the marker path for a given union path.
func whiteoutPath(name string) string {
	return path.Join(path.Dir(name), WhiteoutPrefix+path.Base(name))
}

// originalPath returns the union path hidden by a marker path.
func originalPath(marker string) (string, bool) {
	base := path.Base(marker)
	if !strings.HasPrefix(base, WhiteoutPrefix) {
		return "", false
	}
	return path.Join(path.Dir(marker), strings.TrimPrefix(base, WhiteoutPrefix)), true
}

// WhiteoutStore is the default whiteout oracle: markers are empty ".wh."
// prefixed files on the writable branch, next to the name they hide.
type WhiteoutStore struct {
	ofs *OverlayFS
}

// NewWhiteoutStore creates a marker store bound to the union's writable
// branch.
func NewWhiteoutStore(ofs *OverlayFS) *WhiteoutStore {
	return &WhiteoutStore{ofs: ofs}
}

// HasWhiteout reports whether a marker hides the union path.
func (w *WhiteoutStore) HasWhiteout(name string) (bool, error) {
	real, err := w.ofs.WritablePath(whiteoutPath(name))
	if err != nil {
		return false, err
	}
	if _, err := w.ofs.host.Stat(real); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateWhiteout places a marker hiding the union path, creating parent
// directories on the writable branch as needed.
func (w *WhiteoutStore) CreateWhiteout(name string) error {
	real, err := w.ofs.WritablePath(whiteoutPath(name))
	if err != nil {
		return err
	}
	if err := w.ofs.ensureParents(name); err != nil {
		return err
	}
	f, err := w.ofs.host.Create(real)
	if err != nil {
		return err
	}
	return f.Close()
}

// RemoveWhiteout drops the marker for the union path, if any.
func (w *WhiteoutStore) RemoveWhiteout(name string) error {
	real, err := w.ofs.WritablePath(whiteoutPath(name))
	if err != nil {
		return err
	}
	if err := w.ofs.host.Remove(real); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
