package overlayfs

import (
	"fmt"
	"path"
	"strings"

	"github.com/absfs/absfs"
)

// BranchRole identifies which of the two branches a Branch record describes.
type BranchRole int

const (
	// RoleReadOnly marks the immutable base branch.
	RoleReadOnly BranchRole = iota
	// RoleReadWrite marks the single writable branch.
	RoleReadWrite
)

// Branch describes one of the two directory trees composing the union. Branch
// records are created at mount time and never change afterwards.
type Branch struct {
	Role BranchRole
	Root string // absolute, cleaned, no trailing slash (except "/")

	rootLen int // cached length of Root
}

// OverlayFS is a union of a read-only branch and a writable branch, both
// rooted on the same host filesystem. All configuration is fixed by New;
// an OverlayFS is safe for concurrent use by multiple goroutines.
type OverlayFS struct {
	host absfs.FileSystem
	ro   Branch
	rw   Branch

	attrs     AttributeSource
	ident     Identity
	whiteouts Whiteouts
	copier    CopyUpEngine
	ancestry  *Ancestry

	// mu guards shared mount-wide state across resolution calls that may
	// recurse into themselves.
	mu RecursiveMutex
}

// Option is a functional option for configuring an OverlayFS.
type Option func(*OverlayFS)

// WithAttributeSource replaces the default host-backed attribute accessor.
func WithAttributeSource(src AttributeSource) Option {
	return func(ofs *OverlayFS) { ofs.attrs = src }
}

// WithIdentity replaces the default process-effective identity source.
func WithIdentity(id Identity) Option {
	return func(ofs *OverlayFS) { ofs.ident = id }
}

// WithWhiteouts replaces the default ".wh." marker store.
func WithWhiteouts(w Whiteouts) Option {
	return func(ofs *OverlayFS) { ofs.whiteouts = w }
}

// WithCopyUpEngine replaces the default copy-up engine.
func WithCopyUpEngine(e CopyUpEngine) Option {
	return func(ofs *OverlayFS) { ofs.copier = e }
}

// WithAncestry attaches a shared directory-ancestry structure used by
// FullPath and RelativePath. Without it a fresh, empty structure is used.
func WithAncestry(a *Ancestry) Option {
	return func(ofs *OverlayFS) { ofs.ancestry = a }
}

// New creates an OverlayFS over host with the read-only branch rooted at
// roRoot and the writable branch rooted at rwRoot. Both roots must be
// absolute and distinct.
func New(host absfs.FileSystem, roRoot, rwRoot string, opts ...Option) (*OverlayFS, error) {
	ofs := &OverlayFS{host: host}

	var err error
	if ofs.ro, err = newBranch(RoleReadOnly, roRoot); err != nil {
		return nil, err
	}
	if ofs.rw, err = newBranch(RoleReadWrite, rwRoot); err != nil {
		return nil, err
	}
	if ofs.ro.Root == ofs.rw.Root {
		return nil, fmt.Errorf("overlayfs: branches share root %q", roRoot)
	}

	for _, opt := range opts {
		opt(ofs)
	}

	// Default collaborators operate on the host filesystem.
	if ofs.attrs == nil {
		ofs.attrs = &hostAttributes{fs: host}
	}
	if ofs.ident == nil {
		ofs.ident = processIdentity{}
	}
	if ofs.whiteouts == nil {
		ofs.whiteouts = &WhiteoutStore{ofs: ofs}
	}
	if ofs.copier == nil {
		ofs.copier = &copyUpEngine{ofs: ofs}
	}
	if ofs.ancestry == nil {
		ofs.ancestry = NewAncestry()
	}
	return ofs, nil
}

func newBranch(role BranchRole, root string) (Branch, error) {
	if !path.IsAbs(root) {
		return Branch{}, fmt.Errorf("overlayfs: branch root %q is not absolute", root)
	}
	root = path.Clean(root)
	if len(root) >= MaxPathLen {
		return Branch{}, fmt.Errorf("overlayfs: branch root %q: %w", root, ErrTooLong)
	}
	return Branch{Role: role, Root: root, rootLen: len(root)}, nil
}

// Name returns the name of the filesystem.
func (ofs *OverlayFS) Name() string {
	return "OverlayFS"
}

// ReadOnlyBranch returns the immutable base branch record.
func (ofs *OverlayFS) ReadOnlyBranch() Branch { return ofs.ro }

// WritableBranch returns the writable branch record.
func (ofs *OverlayFS) WritableBranch() Branch { return ofs.rw }

// cleanPath normalizes a union path to an absolute, slash-separated form.
func cleanPath(p string) string {
	cleaned := path.Clean(p)
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	return cleaned
}
