package overlayfs

import (
	"io/fs"
	"os"
	"path"
	"time"

	"github.com/absfs/absfs"
)

// filerAdapter exposes the union through the minimal absfs.Filer surface.
// The union itself also implements Open, Create and friends; handing those
// to ExtendFiler would let it bypass its own working-directory handling, so
// the adapter deliberately carries the Filer methods and nothing more.
type filerAdapter struct {
	ofs *OverlayFS
}

// Ensure filerAdapter implements absfs.Filer at compile time.
var _ absfs.Filer = (*filerAdapter)(nil)

// FileSystem returns an absfs.FileSystem view of this union. The returned
// FileSystem maintains its own working directory state and provides the
// convenience surface (Open, Create, MkdirAll, RemoveAll, Truncate) on top
// of the union's operations, enabling composition with the rest of the absfs
// ecosystem.
//
// Example:
//
//	ofs, _ := overlayfs.New(host, "/base", "/overlay")
//	fs := ofs.FileSystem()
//	fs.Chdir("/app")
//	file, err := fs.Open("config.yml")
func (ofs *OverlayFS) FileSystem() absfs.FileSystem {
	return absfs.ExtendFiler(&filerAdapter{ofs: ofs})
}

// OpenFile implements absfs.Filer.
func (a *filerAdapter) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	return a.ofs.OpenFile(name, flag, perm)
}

// Mkdir implements absfs.Filer.
func (a *filerAdapter) Mkdir(name string, perm os.FileMode) error {
	return a.ofs.Mkdir(name, perm)
}

// Remove implements absfs.Filer.
func (a *filerAdapter) Remove(name string) error {
	return a.ofs.Remove(name)
}

// Rename implements absfs.Filer.
func (a *filerAdapter) Rename(oldpath, newpath string) error {
	return a.ofs.Rename(oldpath, newpath)
}

// Stat implements absfs.Filer.
func (a *filerAdapter) Stat(name string) (os.FileInfo, error) {
	return a.ofs.Stat(name)
}

// Chmod implements absfs.Filer.
func (a *filerAdapter) Chmod(name string, mode os.FileMode) error {
	return a.ofs.Chmod(name, mode)
}

// Chtimes implements absfs.Filer.
func (a *filerAdapter) Chtimes(name string, atime, mtime time.Time) error {
	return a.ofs.Chtimes(name, atime, mtime)
}

// Chown implements absfs.Filer.
func (a *filerAdapter) Chown(name string, uid, gid int) error {
	return a.ofs.Chown(name, uid, gid)
}

// Truncate implements absfs.Filer.
func (a *filerAdapter) Truncate(name string, size int64) error {
	return a.ofs.Truncate(name, size)
}

// Separator returns the path separator (always forward slash for union
// paths).
func (a *filerAdapter) Separator() uint8 {
	return a.ofs.Separator()
}

// ListSeparator returns the path list separator.
func (a *filerAdapter) ListSeparator() uint8 {
	return a.ofs.ListSeparator()
}

// Separator returns the path separator (always forward slash for union
// paths).
func (ofs *OverlayFS) Separator() uint8 {
	return '/'
}

// ListSeparator returns the path list separator.
func (ofs *OverlayFS) ListSeparator() uint8 {
	return ':'
}

// subFS serves an io/fs view rooted at one union directory.
type subFS struct {
	ofs *OverlayFS
	dir string
}

// Sub returns an io/fs filesystem rooted at dir, backed by the union view.
func (ofs *OverlayFS) Sub(dir string) (fs.FS, error) {
	return &subFS{ofs: ofs, dir: cleanPath(dir)}, nil
}

// Open implements fs.FS.
func (s *subFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	f, err := s.ofs.Open(path.Join(s.dir, name))
	if err != nil {
		return nil, err
	}
	return f, nil
}
