package overlayfs

import (
	"fmt"
	"io"
	"os"
)

// copyBufferSize is the buffer used when copying file contents up.
const copyBufferSize = 32 * 1024

// CopyUpEngine materializes a read-only-branch file into the writable branch
// so it can be modified without touching the read-only branch. It returns the
// absolute writable-branch path of the copy and must preserve the source's
// access attributes on it.
type CopyUpEngine interface {
	CopyUp(name, roPath string) (string, error)
}

// copyUpEngine is the default engine, copying through the host filesystem.
type copyUpEngine struct {
	ofs *OverlayFS
}

// CopyUp copies the file or directory at roPath into the writable branch
// under the same union path, creating parent directories as needed. Copy-up
// is idempotent: an existing writable copy is left untouched.
func (c *copyUpEngine) CopyUp(name, roPath string) (string, error) {
	ofs := c.ofs

	rwPath, err := ofs.WritablePath(name)
	if err != nil {
		return "", err
	}

	// Already materialized by an earlier copy-up or write.
	if _, err := ofs.host.Stat(rwPath); err == nil {
		return rwPath, nil
	}

	if err := ofs.ensureParents(name); err != nil {
		return "", err
	}

	info, err := ofs.host.Stat(roPath)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		if err := ofs.host.MkdirAll(rwPath, info.Mode().Perm()); err != nil {
			return "", fmt.Errorf("copy-up %s: %w", name, err)
		}
	} else {
		if err := c.copyContents(roPath, rwPath, info.Mode().Perm()); err != nil {
			return "", fmt.Errorf("copy-up %s: %w", name, err)
		}
	}
	c.preserveAttributes(roPath, rwPath, info)
	return rwPath, nil
}

func (c *copyUpEngine) copyContents(roPath, rwPath string, perm os.FileMode) error {
	src, err := c.ofs.host.Open(roPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := c.ofs.host.OpenFile(rwPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer dst.Close()

	buf := make([]byte, copyBufferSize)
	_, err = io.CopyBuffer(dst, src, buf)
	return err
}

// preserveAttributes carries mode, ownership and times over to the copy.
// Hosts that track no ownership or times reject some of these; such
// failures are not fatal.
func (c *copyUpEngine) preserveAttributes(roPath, rwPath string, info os.FileInfo) {
	host := c.ofs.host

	_ = host.Chmod(rwPath, info.Mode())
	_ = host.Chtimes(rwPath, info.ModTime(), info.ModTime())
	if attrs, err := c.ofs.attrs.Stat(roPath); err == nil {
		_ = host.Chown(rwPath, attrs.UID, attrs.GID)
	}
}
