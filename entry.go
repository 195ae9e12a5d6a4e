package overlayfs

import (
	"os"
	"sync"
)

// Entry is one name in the directory-ancestry structure: a component name and
// a link to its parent directory entry. The root entry has a nil parent.
type Entry struct {
	name   string
	parent *Entry
}

// Name returns the component name of the entry.
func (e *Entry) Name() string { return e.name }

// Node represents an underlying file object. A node may be known under
// several entries (hard links); the first entry is its representative name.
type Node struct {
	links   int // outstanding hard links
	entries []*Entry
}

// Links returns the node's outstanding hard link count.
func (n *Node) Links() int { return n.links }

// Ancestry mirrors the host's directory-entry graph. It is shared with code
// outside this package that may rename or remove entries concurrently, so
// every walk happens under its lock to avoid observing a torn chain.
type Ancestry struct {
	mu   sync.Mutex
	root *Entry
}

// NewAncestry creates an ancestry structure with a single root entry.
func NewAncestry() *Ancestry {
	return &Ancestry{root: &Entry{}}
}

// Root returns the root entry.
func (a *Ancestry) Root() *Entry { return a.root }

// NewEntry registers a child entry of parent. A nil parent attaches the entry
// directly under the root.
func (a *Ancestry) NewEntry(parent *Entry, name string) *Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	if parent == nil {
		parent = a.root
	}
	return &Entry{name: name, parent: parent}
}

// NewNode registers a node with the given outstanding hard link count and
// name entries.
func (a *Ancestry) NewNode(links int, entries ...*Entry) *Node {
	return &Node{links: links, entries: entries}
}

// FullPath reconstructs the absolute host path of a node by walking its
// representative entry's ancestry from leaf to root. Components are written
// into a fixed buffer back to front, so the walk never shifts what it has
// already placed. The whole walk holds the ancestry lock; concurrent renames
// or removals cannot tear the chain mid-walk.
//
// Nodes with outstanding hard links have no single authoritative name and
// fail with ErrUnsupported rather than guessing one.
func (a *Ancestry) FullPath(n *Node) (string, error) {
	if n.links != 0 {
		return "", &os.PathError{Op: "fullpath", Path: "", Err: ErrUnsupported}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Find the representative entry.
	if len(n.entries) == 0 {
		return "", &os.PathError{Op: "fullpath", Path: "", Err: ErrUnsupported}
	}
	entry := n.entries[0]

	var buf [MaxPathLen]byte
	end := len(buf)
	for e := entry; e.parent != nil; e = e.parent {
		if end < len(e.name)+1 {
			return "", &os.PathError{Op: "fullpath", Path: e.name, Err: ErrTooLong}
		}
		end -= len(e.name)
		copy(buf[end:], e.name)
		end--
		buf[end] = '/'
	}
	if end == len(buf) {
		return "/", nil
	}
	return string(buf[end:]), nil
}
