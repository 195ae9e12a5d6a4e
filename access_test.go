package overlayfs

import (
	"errors"
	"os"
	"testing"
)

// fakeIdentity is an injectable effective identity.
type fakeIdentity struct {
	uid, gid int
}

func (f fakeIdentity) EffectiveUID() int { return f.uid }
func (f fakeIdentity) EffectiveGID() int { return f.gid }

// fakeAttrs serves canned attributes per branch path.
type fakeAttrs struct {
	attrs map[string]Attributes
}

func (f *fakeAttrs) Stat(realPath string) (Attributes, error) {
	attrs, ok := f.attrs[realPath]
	if !ok {
		return Attributes{}, &os.PathError{Op: "stat", Path: realPath, Err: os.ErrNotExist}
	}
	return attrs, nil
}

func newAccessFS(t *testing.T, ident Identity, attrs map[string]Attributes) *OverlayFS {
	t.Helper()
	ofs, _ := newTestFS(t,
		WithIdentity(ident),
		WithAttributeSource(&fakeAttrs{attrs: attrs}),
	)
	return ofs
}

func TestCanAccessTriplets(t *testing.T) {
	tests := []struct {
		name  string
		uid   int
		gid   int
		attrs Attributes
		mode  AccessMode
		want  bool
	}{
		{"owner read granted", 500, 100, Attributes{UID: 500, GID: 100, Perm: 0400}, MayRead, true},
		{"owner write denied", 500, 100, Attributes{UID: 500, GID: 100, Perm: 0400}, MayWrite, false},
		{"owner all-or-nothing", 500, 100, Attributes{UID: 500, GID: 100, Perm: 0500}, MayRead | MayWrite, false},
		{"owner read-exec", 500, 100, Attributes{UID: 500, GID: 100, Perm: 0500}, MayRead | MayExec, true},
		{"group read granted", 501, 100, Attributes{UID: 500, GID: 100, Perm: 0040}, MayRead, true},
		{"group write denied", 501, 100, Attributes{UID: 500, GID: 100, Perm: 0040}, MayWrite, false},
		{"owner precedence over group", 500, 100, Attributes{UID: 500, GID: 100, Perm: 0070}, MayRead, false},
		{"other read granted", 501, 101, Attributes{UID: 500, GID: 100, Perm: 0004}, MayRead, true},
		{"other exec denied", 501, 101, Attributes{UID: 500, GID: 100, Perm: 0004}, MayExec, false},
		{"other full", 501, 101, Attributes{UID: 500, GID: 100, Perm: 0007}, MayRead | MayWrite | MayExec, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ofs := newAccessFS(t, fakeIdentity{tt.uid, tt.gid}, map[string]Attributes{
				"/base/x": tt.attrs,
			})
			err := ofs.CanAccess("/x", "/base/x", tt.mode)
			if tt.want && err != nil {
				t.Errorf("expected grant, got %v", err)
			}
			if !tt.want && !errors.Is(err, os.ErrPermission) {
				t.Errorf("expected permission denial, got %v", err)
			}
		})
	}
}

func TestCanAccessSuperuser(t *testing.T) {
	attrs := map[string]Attributes{
		"/base/plain": {UID: 500, GID: 100, Perm: 0000},
		"/base/tool":  {UID: 500, GID: 100, Perm: 0001},
	}
	ofs := newAccessFS(t, fakeIdentity{0, 0}, attrs)

	// Read and write are unconditional for the superuser.
	if err := ofs.CanAccess("/plain", "/base/plain", MayRead|MayWrite); err != nil {
		t.Errorf("superuser read/write should be granted: %v", err)
	}

	// Execute needs at least one execute bit somewhere.
	if err := ofs.CanAccess("/plain", "/base/plain", MayExec); !errors.Is(err, os.ErrPermission) {
		t.Errorf("superuser exec on 0000 should be denied, got %v", err)
	}
	if err := ofs.CanAccess("/tool", "/base/tool", MayExec); err != nil {
		t.Errorf("superuser exec with an execute bit should be granted: %v", err)
	}
}

func TestCanAccessStatErrorPropagates(t *testing.T) {
	ofs := newAccessFS(t, fakeIdentity{500, 100}, nil)
	if err := ofs.CanAccess("/gone", "/base/gone", MayRead); !os.IsNotExist(err) {
		t.Errorf("expected stat error to propagate, got %v", err)
	}
}

func TestCanTraverse(t *testing.T) {
	ident := fakeIdentity{500, 100}
	attrs := map[string]Attributes{
		"/base/a":        {UID: 500, GID: 100, Perm: 0700},
		"/base/a/open":   {UID: 500, GID: 100, Perm: 0700},
		"/base/a/shut":   {UID: 500, GID: 100, Perm: 0600},
		"/base/a/open/f": {UID: 500, GID: 100, Perm: 0644},
		"/base/a/shut/f": {UID: 500, GID: 100, Perm: 0644},
	}
	ofs := newAccessFS(t, ident, attrs)

	// Root and its direct children traverse without checks.
	if err := ofs.CanTraverse("/"); err != nil {
		t.Errorf("root traversal should succeed: %v", err)
	}
	if err := ofs.CanTraverse("/top.txt"); err != nil {
		t.Errorf("direct child traversal should succeed: %v", err)
	}

	if err := ofs.CanTraverse("/a/open/f"); err != nil {
		t.Errorf("executable ancestors should pass: %v", err)
	}
	if err := ofs.CanTraverse("/a/shut/f"); !errors.Is(err, os.ErrPermission) {
		t.Errorf("non-executable ancestor should deny: %v", err)
	}

	// Ancestors are evaluated on the read-only branch: a directory that only
	// exists on the writable branch fails the ancestor stat.
	if err := ofs.CanTraverse("/a/extra/f"); !os.IsNotExist(err) {
		t.Errorf("expected missing read-only ancestor to fail, got %v", err)
	}
}

func TestCanRemove(t *testing.T) {
	ident := fakeIdentity{500, 100}
	attrs := map[string]Attributes{
		"/base":     {UID: 500, GID: 100, Perm: 0700},
		"/base/a":   {UID: 500, GID: 100, Perm: 0700},
		"/base/b":   {UID: 500, GID: 100, Perm: 0500},
		"/base/a/f": {UID: 500, GID: 100, Perm: 0644},
		"/base/b/f": {UID: 500, GID: 100, Perm: 0644},
	}
	ofs := newAccessFS(t, ident, attrs)

	// The namespace root is never removable, attributes notwithstanding.
	if err := ofs.CanRemove("/", "/base"); !errors.Is(err, os.ErrPermission) {
		t.Errorf("removing the root should always be denied, got %v", err)
	}

	if err := ofs.CanRemove("/a/f", "/base/a/f"); err != nil {
		t.Errorf("writable parent should allow removal: %v", err)
	}
	if err := ofs.CanRemove("/b/f", "/base/b/f"); !errors.Is(err, os.ErrPermission) {
		t.Errorf("read-only parent should deny removal, got %v", err)
	}
}
