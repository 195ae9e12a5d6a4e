package overlayfs

import (
	"os"
	"syscall"

	"github.com/absfs/absfs"
	"golang.org/x/sys/unix"
)

// Attributes are the access-relevant attributes of a branch path: ownership
// and the 9-bit permission field, divided into owner, group and other
// triplets, most significant first.
type Attributes struct {
	UID  int
	GID  int
	Perm os.FileMode
}

// AttributeSource answers stat-like queries against absolute branch paths.
// Implementations are consulted both as existence probes and for permission
// attributes; a missing path must be reported with an error satisfying
// errors.Is(err, os.ErrNotExist).
type AttributeSource interface {
	Stat(realPath string) (Attributes, error)
}

// Identity supplies the effective identity permission checks are evaluated
// for.
type Identity interface {
	EffectiveUID() int
	EffectiveGID() int
}

// processIdentity is the default Identity: the calling process's effective
// user and group.
type processIdentity struct{}

func (processIdentity) EffectiveUID() int { return unix.Geteuid() }
func (processIdentity) EffectiveGID() int { return unix.Getegid() }

// hostAttributes is the default AttributeSource, backed by the host
// filesystem. Ownership comes from the underlying stat record when the host
// exposes one; in-memory hosts do not, and then the entry is treated as owned
// by the effective identity.
type hostAttributes struct {
	fs absfs.FileSystem
}

func (h *hostAttributes) Stat(realPath string) (Attributes, error) {
	info, err := h.stat(realPath)
	if err != nil {
		return Attributes{}, err
	}

	attrs := Attributes{
		UID:  unix.Geteuid(),
		GID:  unix.Getegid(),
		Perm: info.Mode().Perm(),
	}
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		attrs.UID = int(st.Uid)
		attrs.GID = int(st.Gid)
	}
	return attrs, nil
}

// stat prefers Lstat so symlinks on a branch are reported as themselves.
func (h *hostAttributes) stat(realPath string) (os.FileInfo, error) {
	if lstater, ok := h.fs.(interface {
		Lstat(string) (os.FileInfo, error)
	}); ok {
		return lstater.Lstat(realPath)
	}
	return h.fs.Stat(realPath)
}
