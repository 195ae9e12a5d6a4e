package overlayfs

import "os"

// ResolveFlag adjusts how Resolve locates a union path. Flags combine
// independently.
type ResolveFlag uint8

const (
	// MustReadOnly restricts resolution to the read-only branch.
	MustReadOnly ResolveFlag = 1 << iota
	// MustReadWrite demands the path already exist on the writable branch;
	// resolution fails rather than fall back to the read-only branch.
	MustReadWrite
	// AllowCopyUp permits materializing a read-only file into the writable
	// branch so the outcome denotes a writable location.
	AllowCopyUp
	// IgnoreWhiteout skips deletion-marker checks, resolving paths the union
	// view considers deleted.
	IgnoreWhiteout
)

// Outcome names the branch a resolution landed on.
type Outcome int

const (
	// OutcomeReadOnly denotes a path on the read-only branch.
	OutcomeReadOnly Outcome = iota + 1
	// OutcomeReadWrite denotes a path already on the writable branch.
	OutcomeReadWrite
	// OutcomeCopyUp denotes a path on the writable branch that was
	// materialized from the read-only branch by this resolution.
	OutcomeCopyUp
)

// Resolution is the result of resolving a union path: which branch holds the
// authoritative data and the absolute path on that branch.
type Resolution struct {
	Outcome Outcome
	Path    string
}

// Resolve decides where the authoritative data for a union path currently
// lives. The writable branch is consulted first because it always holds the
// most recent state; the read-only branch is the fallback, subject to the
// whiteout check. With AllowCopyUp, a read-only hit is materialized into the
// writable branch and the returned path denotes the new writable copy.
//
// Every candidate is authorized by CanTraverse before it is returned.
// Resolutions are not cached and no stability is guaranteed across calls:
// the writable branch may change between two invocations.
func (ofs *OverlayFS) Resolve(name string, flags ResolveFlag) (Resolution, error) {
	name = cleanPath(name)

	// Translate both branch forms up front. An over-long path must fail
	// before the mount lock or any branch is touched.
	rwReal, err := ofs.WritablePath(name)
	if err != nil {
		return Resolution{}, err
	}
	roReal, err := ofs.ReadOnlyPath(name)
	if err != nil {
		return Resolution{}, err
	}

	ofs.mu.Acquire()
	defer ofs.mu.Release()

	if flags&MustReadOnly == 0 {
		_, err := ofs.attrs.Stat(rwReal)
		switch {
		case err != nil && flags&MustReadWrite != 0:
			// The caller demanded a writable-branch guarantee that cannot
			// be met.
			return Resolution{}, err
		case err == nil:
			if err := ofs.CanTraverse(name); err != nil {
				return Resolution{}, err
			}
			return Resolution{Outcome: OutcomeReadWrite, Path: rwReal}, nil
		}
	}

	if _, err := ofs.attrs.Stat(roReal); err != nil {
		// Present on neither branch.
		return Resolution{}, err
	}
	if flags&IgnoreWhiteout == 0 {
		hidden, err := ofs.whiteouts.HasWhiteout(name)
		if err != nil {
			return Resolution{}, err
		}
		if hidden {
			return Resolution{}, &os.PathError{Op: "resolve", Path: name, Err: os.ErrNotExist}
		}
	}
	if err := ofs.CanTraverse(name); err != nil {
		return Resolution{}, err
	}

	if flags&AllowCopyUp != 0 {
		rwPath, err := ofs.copier.CopyUp(name, roReal)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Outcome: OutcomeCopyUp, Path: rwPath}, nil
	}
	return Resolution{Outcome: OutcomeReadOnly, Path: roReal}, nil
}
