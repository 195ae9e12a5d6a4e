/*
Package overlayfs provides a two-branch union filesystem core: a read-only
base branch overlaid by a single writable branch, presented as one merged
namespace. Writes and deletions are redirected to the writable branch without
ever mutating the read-only one.

# Overview

The package is built around a branch resolution engine. For any path in the
merged namespace it decides where the authoritative data currently lives,
whether a deletion marker (whiteout) hides it, and whether it must first be
materialized into the writable branch (copy-up) before the caller may use it.

Both branches are directory trees on a single host filesystem implementing
absfs.FileSystem, fixed at mount time:

	host, _ := memfs.NewFS()
	ofs, err := overlayfs.New(host, "/base", "/overlay")

	// Resolve a union path to its authoritative branch location.
	r, err := ofs.Resolve("/etc/config.yml", 0)

	// Force it onto the writable branch, copying up if needed.
	r, err = ofs.Resolve("/etc/config.yml", overlayfs.AllowCopyUp)

# Resolution

Resolve consults the writable branch first, because it always holds the most
recent state. Paths found only on the read-only branch are subject to the
whiteout check: a marker on the writable branch hides the read-only file from
the union view. Copy-up is strictly opt-in, so read-only lookups never pay a
copy cost.

Every traversal is authorized by a POSIX-style permission guard: execute
permission is required on each ancestor directory, evaluated against the
read-only branch, which serves as the authoritative directory skeleton.

# File operations

On top of the resolver the package implements the usual filesystem surface
(OpenFile, Remove, Rename, ReadDir, ...). Deleting a file that exists on the
read-only branch creates a whiteout marker on the writable branch; opening a
read-only file for writing copies it up first; directory listings merge both
branches with writable-branch precedence. Whiteout markers use the AUFS/Docker
".wh." prefix convention.

The FileSystem method adapts the union to the absfs.FileSystem interface so
it composes with the rest of the absfs ecosystem.

# Concurrency

Shared mount state is guarded by a RecursiveMutex, a reentrant lock built from
an atomic counter, an owner identity and one plain mutex. Resolution logic may
re-enter guarded sections from the same goroutine (a traversal check performed
while resolution already holds the lock) without self-deadlocking, while
distinct goroutines still serialize against each other. RecursiveMutex is
exported for use by surrounding driver code with the same need.

# Limitations

  - Exactly two branches: one read-only, one writable.
  - Resolution results are not cached; every call consults the branches.
  - Entries with outstanding hard links cannot be translated back to a
    union path.
  - Symlinks are not interpreted by the resolver.
*/
package overlayfs
