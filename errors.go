package overlayfs

import "errors"

var (
	// ErrTooLong is returned when a computed branch path would exceed
	// MaxPathLen. Paths are never silently truncated.
	ErrTooLong = errors.New("path exceeds maximum length")

	// ErrNoBranchMatch is returned when an absolute path belongs to neither
	// the read-only nor the writable branch, so no union-relative form of it
	// exists.
	ErrNoBranchMatch = errors.New("path belongs to neither branch")

	// ErrUnsupported is returned for entries with properties the translator
	// does not resolve, such as outstanding hard links.
	ErrUnsupported = errors.New("entry not supported")

	// ErrWhiteoutReadOnly is returned by mutating operations when the
	// configured whiteout store cannot create or remove markers.
	ErrWhiteoutReadOnly = errors.New("whiteout store is read-only")
)
