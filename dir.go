package overlayfs

import (
	"io"
	"os"
	"path"
	"sort"
	"strings"
)

// mergeDir builds the union listing of a directory: writable-branch entries
// first, read-only entries filling in underneath, whiteout markers hiding
// their targets and never appearing themselves.
func (ofs *OverlayFS) mergeDir(name string) ([]os.FileInfo, error) {
	seen := make(map[string]bool)
	whiteouts := make(map[string]bool)
	var entries []os.FileInfo

	if infos, err := ofs.branchDir(&ofs.rw, name); err == nil {
		for _, info := range infos {
			base := info.Name()
			if isWhiteout(base) {
				if original, ok := originalPath(base); ok {
					whiteouts[path.Base(original)] = true
				}
				continue
			}
			seen[base] = true
			entries = append(entries, info)
		}
	}

	if infos, err := ofs.branchDir(&ofs.ro, name); err == nil {
		for _, info := range infos {
			base := info.Name()
			if isWhiteout(base) || seen[base] || whiteouts[base] {
				continue
			}
			seen[base] = true
			entries = append(entries, info)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})
	return entries, nil
}

// branchDir lists a directory on one branch. Missing directories yield an
// error the caller treats as an empty contribution.
func (ofs *OverlayFS) branchDir(b *Branch, name string) ([]os.FileInfo, error) {
	real, err := b.path(name)
	if err != nil {
		return nil, err
	}
	dir, err := ofs.host.Open(real)
	if err != nil {
		return nil, err
	}
	defer dir.Close()
	return dir.Readdir(-1)
}

// unionDir implements absfs.File for directories, serving the merged listing
// of both branches.
type unionDir struct {
	ofs     *OverlayFS
	path    string
	entries []os.FileInfo
	offset  int
	closed  bool
}

func newUnionDir(ofs *OverlayFS, path string) *unionDir {
	return &unionDir{ofs: ofs, path: path}
}

// Close closes the directory.
func (d *unionDir) Close() error {
	d.closed = true
	return nil
}

// Name returns the base name of the directory.
func (d *unionDir) Name() string {
	return path.Base(d.path)
}

// Read is not supported for directories.
func (d *unionDir) Read(p []byte) (n int, err error) {
	return 0, os.ErrInvalid
}

// ReadAt is not supported for directories.
func (d *unionDir) ReadAt(p []byte, off int64) (n int, err error) {
	return 0, os.ErrInvalid
}

// Write is not supported for directories.
func (d *unionDir) Write(p []byte) (n int, err error) {
	return 0, os.ErrInvalid
}

// WriteAt is not supported for directories.
func (d *unionDir) WriteAt(p []byte, off int64) (n int, err error) {
	return 0, os.ErrInvalid
}

// WriteString is not supported for directories.
func (d *unionDir) WriteString(s string) (ret int, err error) {
	return 0, os.ErrInvalid
}

// Truncate is not supported for directories.
func (d *unionDir) Truncate(size int64) error {
	return os.ErrInvalid
}

// Seek seeks to an offset in the directory listing.
func (d *unionDir) Seek(offset int64, whence int) (int64, error) {
	if d.closed {
		return 0, os.ErrClosed
	}

	switch whence {
	case io.SeekStart:
		d.offset = int(offset)
	case io.SeekCurrent:
		d.offset += int(offset)
	case io.SeekEnd:
		if err := d.load(); err != nil {
			return 0, err
		}
		d.offset = len(d.entries) + int(offset)
	}
	if d.offset < 0 {
		d.offset = 0
	}
	return int64(d.offset), nil
}

// Readdir reads up to count merged directory entries.
func (d *unionDir) Readdir(count int) ([]os.FileInfo, error) {
	if d.closed {
		return nil, os.ErrClosed
	}
	if err := d.load(); err != nil {
		return nil, err
	}

	if d.offset >= len(d.entries) {
		if count > 0 {
			return nil, io.EOF
		}
		return nil, nil
	}

	end := len(d.entries)
	if count > 0 && d.offset+count < end {
		end = d.offset + count
	}
	result := d.entries[d.offset:end]
	d.offset = end
	return result, nil
}

// Readdirnames reads up to count merged directory entry names.
func (d *unionDir) Readdirnames(count int) ([]string, error) {
	infos, err := d.Readdir(count)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name()
	}
	return names, nil
}

// Stat returns the FileInfo for the directory.
func (d *unionDir) Stat() (os.FileInfo, error) {
	if d.closed {
		return nil, os.ErrClosed
	}
	return d.ofs.Stat(d.path)
}

// Sync is a no-op for directories.
func (d *unionDir) Sync() error {
	return nil
}

func (d *unionDir) load() error {
	if d.entries != nil {
		return nil
	}
	entries, err := d.ofs.mergeDir(d.path)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []os.FileInfo{}
	}
	d.entries = entries
	return nil
}
