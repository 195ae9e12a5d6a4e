package overlayfs

import (
	"io"
	"testing"

	"github.com/absfs/absfs"
)

// TestFileSystemView verifies the absfs.FileSystem adapter serves the union
// view, including working-directory state.
func TestFileSystemView(t *testing.T) {
	ofs, host := newTestFS(t)
	writeHostFile(t, host, "/base/etc/config.yml", []byte("base: config"), 0644)

	fs := ofs.FileSystem()
	var _ absfs.FileSystem = fs

	if err := fs.Chdir("/etc"); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	cwd, err := fs.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	if cwd != "/etc" {
		t.Errorf("expected cwd /etc, got %s", cwd)
	}

	file, err := fs.Open("config.yml")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got := string(readAll(t, file)); got != "base: config" {
		t.Errorf("expected 'base: config', got %q", got)
	}
}

// TestFileSystemWriteThrough verifies writes through the adapter land on the
// writable branch.
func TestFileSystemWriteThrough(t *testing.T) {
	ofs, host := newTestFS(t)

	fs := ofs.FileSystem()
	f, err := fs.Create("/note.txt")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := f.Write([]byte("hello")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	f.Close()

	if _, err := host.Stat("/overlay/note.txt"); err != nil {
		t.Error("adapter write should land on the writable branch")
	}
}

// TestSub verifies the io/fs view rooted at a union directory.
func TestSub(t *testing.T) {
	ofs, host := newTestFS(t)
	writeHostFile(t, host, "/base/etc/motd", []byte("welcome"), 0644)

	sub, err := ofs.Sub("/etc")
	if err != nil {
		t.Fatalf("Sub failed: %v", err)
	}
	f, err := sub.Open("motd")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got := string(data); got != "welcome" {
		t.Errorf("expected 'welcome', got %q", got)
	}

	if _, err := sub.Open("../escape"); err == nil {
		t.Error("relative escape must be rejected")
	}
}

func TestSeparators(t *testing.T) {
	ofs, _ := newTestFS(t)

	if sep := ofs.Separator(); sep != '/' {
		t.Errorf("Separator() = %c, want /", sep)
	}
	if sep := ofs.ListSeparator(); sep != ':' {
		t.Errorf("ListSeparator() = %c, want :", sep)
	}
}
