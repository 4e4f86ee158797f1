// Package hashtree defines the boundary to the content-addressed virtual
// tree that holds repository files. The tree itself (hashing, persistence,
// peer sync) lives elsewhere; this package only specifies the read surface
// the git engine consumes, plus two adapters: an in-memory store and an OS
// directory view.
package hashtree

import (
	"context"
	"errors"
)

// ErrNotFound reports a path or content id absent from the tree. Any other
// error from a Reader is a transport/storage failure and should be treated
// as "tree unavailable", not "file missing".
var ErrNotFound = errors.New("hashtree: not found")

// Ref identifies the root of a tree. Key, when non-nil, is the symmetric
// key used to open encrypted file leaves under this root.
type Ref struct {
	ID  string
	Key []byte
}

// Node is a resolved tree member.
type Node struct {
	ID    string
	IsDir bool
}

// Entry is one child of a directory.
type Entry struct {
	Name  string
	ID    string
	IsDir bool
}

// Reader is the read surface of the virtual tree. Implementations must be
// safe for concurrent use; every method may block on I/O and honors ctx.
type Reader interface {
	// ResolvePath walks a slash-separated path from the root of ref.
	ResolvePath(ctx context.Context, ref Ref, path string) (Node, error)

	// ListDirectory returns the children of a directory node.
	ListDirectory(ctx context.Context, ref Ref, id string) ([]Entry, error)

	// ReadFile returns the full content of a file node, decrypted when
	// ref carries a key.
	ReadFile(ctx context.Context, ref Ref, id string) ([]byte, error)
}
