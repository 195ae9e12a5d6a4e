package overlayfs

import (
	"os"

	"golang.org/x/sys/unix"
)

// MaxPathLen is the longest branch path the translator will produce.
const MaxPathLen = unix.PathMax

// WritablePath translates a union path to its absolute location on the
// writable branch. It fails with ErrTooLong before any branch access is
// attempted.
func (ofs *OverlayFS) WritablePath(name string) (string, error) {
	return ofs.rw.path(name)
}

// ReadOnlyPath translates a union path to its absolute location on the
// read-only branch.
func (ofs *OverlayFS) ReadOnlyPath(name string) (string, error) {
	return ofs.ro.path(name)
}

// path concatenates the branch root with a union path, enforcing MaxPathLen.
func (b *Branch) path(name string) (string, error) {
	name = cleanPath(name)
	if b.rootLen+len(name) > MaxPathLen {
		return "", &os.PathError{Op: "translate", Path: name, Err: ErrTooLong}
	}
	if name == "/" {
		return b.Root, nil
	}
	if b.Root == "/" {
		return name, nil
	}
	return b.Root + name, nil
}

// contains reports whether real lies under the branch root, and if so returns
// the union-relative remainder.
func (b *Branch) contains(real string) (string, bool) {
	if real == b.Root {
		return "/", true
	}
	root := b.Root
	if root != "/" {
		root += "/"
	}
	if len(real) > len(root) && real[:len(root)] == root {
		return real[len(root)-1:], true
	}
	return "", false
}

// RelativePath reconstructs the union path of an entry node by walking its
// ancestry and stripping whichever branch root prefixes the result, the
// read-only branch checked first. Nodes under neither branch fail with
// ErrNoBranchMatch.
func (ofs *OverlayFS) RelativePath(n *Node) (string, error) {
	full, err := ofs.ancestry.FullPath(n)
	if err != nil {
		return "", err
	}
	if rel, ok := ofs.ro.contains(full); ok {
		return rel, nil
	}
	if rel, ok := ofs.rw.contains(full); ok {
		return rel, nil
	}
	return "", &os.PathError{Op: "relpath", Path: full, Err: ErrNoBranchMatch}
}
