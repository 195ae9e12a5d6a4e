package overlayfs

import (
	"os"
	"path"
)

// AccessMode is a requested set of POSIX permission bits, aligned to the
// least significant ("other") triplet.
type AccessMode uint32

const (
	// MayExec requests execute (or directory traversal) permission.
	MayExec AccessMode = 1 << iota
	// MayWrite requests write permission.
	MayWrite
	// MayRead requests read permission.
	MayRead
)

// tripletWidth is the bit width of one owner/group/other permission triplet.
const tripletWidth = 3

// superuserID is the uid granted blanket access.
const superuserID = 0

// CanAccess reports whether the effective identity may access the branch
// path realPath with the requested mode. name is the union path the check is
// performed for and is used in errors only.
//
// The superuser is granted read and write unconditionally; execute only when
// at least one of the entry's triplets carries an execute bit. Everyone else
// is checked against exactly one triplet: owner if the effective uid matches,
// else group if the effective gid matches, else other. The request is
// all-or-nothing; there are no partial grants.
func (ofs *OverlayFS) CanAccess(name, realPath string, mode AccessMode) error {
	attrs, err := ofs.attrs.Stat(realPath)
	if err != nil {
		return err
	}

	if ofs.ident.EffectiveUID() == superuserID {
		if mode&MayExec != 0 && attrs.Perm&0111 == 0 {
			return &os.PathError{Op: "access", Path: name, Err: os.ErrPermission}
		}
		return nil
	}

	// Shift the request onto the triplet that applies, most specific first.
	// The other triplet already sits at bit positions 0-2.
	bits := uint32(mode)
	switch {
	case ofs.ident.EffectiveUID() == attrs.UID:
		bits <<= 2 * tripletWidth
	case ofs.ident.EffectiveGID() == attrs.GID:
		bits <<= tripletWidth
	}
	if uint32(attrs.Perm)&bits != bits {
		return &os.PathError{Op: "access", Path: name, Err: os.ErrPermission}
	}
	return nil
}

// CanTraverse checks execute permission on every ancestor directory of the
// union path, root through parent, short-circuiting on the first denial.
// Ancestors are evaluated against the read-only branch, which serves as the
// authoritative directory skeleton. Traversing the root itself always
// succeeds.
func (ofs *OverlayFS) CanTraverse(name string) error {
	name = cleanPath(name)

	ofs.mu.Acquire()
	defer ofs.mu.Release()

	for i := 1; i < len(name); i++ {
		if name[i] != '/' {
			continue
		}
		dir := name[:i]
		real, err := ofs.ReadOnlyPath(dir)
		if err != nil {
			return err
		}
		if err := ofs.CanAccess(dir, real, MayExec); err != nil {
			return err
		}
	}
	return nil
}

// CanRemove reports whether the effective identity may remove the entry at
// realPath. Removing the namespace root is always denied; anything else
// requires write permission on the parent directory.
func (ofs *OverlayFS) CanRemove(name, realPath string) error {
	name = cleanPath(name)
	if name == "/" {
		return &os.PathError{Op: "remove", Path: name, Err: os.ErrPermission}
	}
	return ofs.CanAccess(path.Dir(name), path.Dir(realPath), MayWrite)
}
