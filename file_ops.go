package overlayfs

import (
	"errors"
	"io"
	"os"
	"path"
	"time"

	"github.com/absfs/absfs"
)

// Stat returns file info for a union path, resolved to whichever branch
// holds the authoritative entry.
func (ofs *OverlayFS) Stat(name string) (os.FileInfo, error) {
	r, err := ofs.Resolve(name, 0)
	if err != nil {
		return nil, err
	}
	return ofs.host.Stat(r.Path)
}

// Lstat is like Stat but does not follow symlinks on the resolved branch.
func (ofs *OverlayFS) Lstat(name string) (os.FileInfo, error) {
	r, err := ofs.Resolve(name, 0)
	if err != nil {
		return nil, err
	}
	if lstater, ok := ofs.host.(interface {
		Lstat(string) (os.FileInfo, error)
	}); ok {
		return lstater.Lstat(r.Path)
	}
	return ofs.host.Stat(r.Path)
}

// Open opens a union path for reading.
func (ofs *OverlayFS) Open(name string) (absfs.File, error) {
	return ofs.OpenFile(name, os.O_RDONLY, 0)
}

// Create creates or truncates a file on the writable branch.
func (ofs *OverlayFS) Create(name string) (absfs.File, error) {
	return ofs.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
}

// OpenFile opens a union path with the specified flags and permissions.
// Write intents are redirected to the writable branch, copying the file up
// from the read-only branch first when necessary. Opening a directory
// returns a merged view of both branches.
func (ofs *OverlayFS) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	name = cleanPath(name)

	isWrite := flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) != 0
	if !isWrite {
		r, err := ofs.Resolve(name, 0)
		if err != nil {
			return nil, err
		}
		info, err := ofs.host.Stat(r.Path)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return newUnionDir(ofs, name), nil
		}
		return ofs.host.Open(r.Path)
	}

	r, err := ofs.Resolve(name, AllowCopyUp)
	switch {
	case err == nil:
		// Existing file, now on the writable branch.
		if err := ofs.CanAccess(name, r.Path, MayWrite); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist):
		if flag&os.O_CREATE == 0 {
			return nil, err
		}
		real, perr := ofs.WritablePath(name)
		if perr != nil {
			return nil, perr
		}
		if err := ofs.ensureParents(name); err != nil {
			return nil, err
		}
		r = Resolution{Outcome: OutcomeReadWrite, Path: real}
	default:
		return nil, err
	}

	// A fresh write resurrects a previously deleted name.
	ofs.dropWhiteout(name)
	return ofs.host.OpenFile(r.Path, flag, perm)
}

// Mkdir creates a directory on the writable branch.
func (ofs *OverlayFS) Mkdir(name string, perm os.FileMode) error {
	name = cleanPath(name)

	switch _, err := ofs.Resolve(name, 0); {
	case err == nil:
		return &os.PathError{Op: "mkdir", Path: name, Err: os.ErrExist}
	case !errors.Is(err, os.ErrNotExist):
		// Denied traversal or a failing whiteout oracle is not license to
		// create the name.
		return err
	}
	real, err := ofs.WritablePath(name)
	if err != nil {
		return err
	}
	if err := ofs.ensureParents(name); err != nil {
		return err
	}
	ofs.dropWhiteout(name)
	return ofs.host.Mkdir(real, perm)
}

// MkdirAll creates a directory and all missing parents on the writable
// branch, resurrecting any whited-out names along the way.
func (ofs *OverlayFS) MkdirAll(name string, perm os.FileMode) error {
	name = cleanPath(name)

	real, err := ofs.WritablePath(name)
	if err != nil {
		return err
	}
	for dir := name; dir != "/"; dir = path.Dir(dir) {
		ofs.dropWhiteout(dir)
	}
	return ofs.host.MkdirAll(real, perm)
}

// Remove deletes a union path. Entries on the writable branch are removed
// physically; a name still present on the read-only branch is hidden behind
// a whiteout marker instead of touching the read-only branch.
func (ofs *OverlayFS) Remove(name string) error {
	name = cleanPath(name)

	r, err := ofs.Resolve(name, 0)
	if err != nil {
		return err
	}
	if err := ofs.CanRemove(name, r.Path); err != nil {
		return err
	}

	if r.Outcome == OutcomeReadWrite {
		if err := ofs.host.Remove(r.Path); err != nil {
			return err
		}
	}
	return ofs.hideIfShadowed(name)
}

// RemoveAll removes a union path and any children, whiting out whatever the
// read-only branch still shows.
func (ofs *OverlayFS) RemoveAll(name string) error {
	name = cleanPath(name)

	r, err := ofs.Resolve(name, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := ofs.CanRemove(name, r.Path); err != nil {
		return err
	}

	if r.Outcome == OutcomeReadWrite {
		if err := ofs.host.RemoveAll(r.Path); err != nil {
			return err
		}
	}
	return ofs.hideIfShadowed(name)
}

// Rename moves a union path. The source is materialized on the writable
// branch first; a source name still present on the read-only branch is
// whited out so it disappears from the union view.
func (ofs *OverlayFS) Rename(oldname, newname string) error {
	oldname = cleanPath(oldname)
	newname = cleanPath(newname)

	r, err := ofs.Resolve(oldname, AllowCopyUp)
	if err != nil {
		return err
	}
	newReal, err := ofs.WritablePath(newname)
	if err != nil {
		return err
	}
	if err := ofs.ensureParents(newname); err != nil {
		return err
	}
	ofs.dropWhiteout(newname)
	if err := ofs.host.Rename(r.Path, newReal); err != nil {
		return err
	}
	return ofs.hideIfShadowed(oldname)
}

// Chmod changes permissions, copying the file up first if it only exists on
// the read-only branch.
func (ofs *OverlayFS) Chmod(name string, mode os.FileMode) error {
	r, err := ofs.Resolve(name, AllowCopyUp)
	if err != nil {
		return err
	}
	return ofs.host.Chmod(r.Path, mode)
}

// Chown changes ownership, copying the file up first if needed.
func (ofs *OverlayFS) Chown(name string, uid, gid int) error {
	r, err := ofs.Resolve(name, AllowCopyUp)
	if err != nil {
		return err
	}
	return ofs.host.Chown(r.Path, uid, gid)
}

// Chtimes changes access and modification times, copying the file up first
// if needed.
func (ofs *OverlayFS) Chtimes(name string, atime, mtime time.Time) error {
	r, err := ofs.Resolve(name, AllowCopyUp)
	if err != nil {
		return err
	}
	return ofs.host.Chtimes(r.Path, atime, mtime)
}

// Truncate changes the size of a file, copying it up first if needed.
func (ofs *OverlayFS) Truncate(name string, size int64) error {
	r, err := ofs.Resolve(name, AllowCopyUp)
	if err != nil {
		return err
	}
	info, err := ofs.host.Stat(r.Path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return &os.PathError{Op: "truncate", Path: name, Err: os.ErrInvalid}
	}
	return ofs.host.Truncate(r.Path, size)
}

// ReadDir returns the merged directory listing of both branches, writable
// branch taking precedence and whiteouts respected.
func (ofs *OverlayFS) ReadDir(name string) ([]os.FileInfo, error) {
	name = cleanPath(name)

	r, err := ofs.Resolve(name, 0)
	if err != nil {
		return nil, err
	}
	info, err := ofs.host.Stat(r.Path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &os.PathError{Op: "readdir", Path: name, Err: os.ErrInvalid}
	}
	return ofs.mergeDir(name)
}

// ReadFile reads the whole file behind a union path.
func (ofs *OverlayFS) ReadFile(name string) ([]byte, error) {
	r, err := ofs.Resolve(name, 0)
	if err != nil {
		return nil, err
	}
	info, err := ofs.host.Stat(r.Path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, &os.PathError{Op: "read", Path: name, Err: os.ErrInvalid}
	}
	f, err := ofs.host.Open(r.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// ensureParents makes sure every parent directory of a union path exists on
// the writable branch.
func (ofs *OverlayFS) ensureParents(name string) error {
	dir := path.Dir(cleanPath(name))
	if dir == "/" {
		return nil
	}
	real, err := ofs.WritablePath(dir)
	if err != nil {
		return err
	}
	if _, err := ofs.host.Stat(real); err == nil {
		return nil
	}
	return ofs.host.MkdirAll(real, 0755)
}

// hideIfShadowed places a whiteout for name when the read-only branch still
// holds an entry by that name, so it stays deleted in the union view.
func (ofs *OverlayFS) hideIfShadowed(name string) error {
	real, err := ofs.ReadOnlyPath(name)
	if err != nil {
		return err
	}
	if _, err := ofs.host.Stat(real); err != nil {
		return nil
	}
	w, ok := ofs.whiteouts.(whiteoutWriter)
	if !ok {
		return &os.PathError{Op: "remove", Path: name, Err: ErrWhiteoutReadOnly}
	}
	return w.CreateWhiteout(name)
}

// dropWhiteout removes any deletion marker for name, when the store supports
// it.
func (ofs *OverlayFS) dropWhiteout(name string) {
	if w, ok := ofs.whiteouts.(whiteoutWriter); ok {
		w.RemoveWhiteout(name)
	}
}
