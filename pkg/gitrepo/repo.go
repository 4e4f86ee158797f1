// Package gitrepo serves read-only Git queries (log, diff, refs,
// file-at-commit) natively from a repository stored in a content-addressed
// virtual tree. Mutating operations live in pkg/bridge; nothing here writes.
//
// Every public query degrades to an empty result when the repository or an
// object is absent, so callers treat "no repo" and "nothing found"
// uniformly. Transport failures from the tree still surface as errors.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mmalmi/treegit/pkg/gitobj"
	"github.com/mmalmi/treegit/pkg/hashtree"
)

// GitDir is the repository metadata directory at the tree root.
const GitDir = ".git"

// Repo is a read-only view of one repository in a virtual tree. Safe for
// concurrent use; the only mutable state is the pack index cache.
type Repo struct {
	tree hashtree.Reader
	root hashtree.Ref

	mu       sync.Mutex
	idxCache map[string]*gitobj.PackIndex
}

// Open returns a Repo over the given tree root. No I/O happens here; a
// root without a .git directory simply yields empty query results.
func Open(tree hashtree.Reader, root hashtree.Ref) *Repo {
	return &Repo{
		tree:     tree,
		root:     root,
		idxCache: make(map[string]*gitobj.PackIndex),
	}
}

// Root returns the tree root this repo reads from.
func (r *Repo) Root() hashtree.Ref {
	return r.root
}

// readPath reads a file at a repo-root-relative slash path.
func (r *Repo) readPath(ctx context.Context, path string) ([]byte, error) {
	node, err := r.tree.ResolvePath(ctx, r.root, path)
	if err != nil {
		return nil, err
	}
	if node.IsDir {
		return nil, fmt.Errorf("read %q: %w", path, hashtree.ErrNotFound)
	}
	return r.tree.ReadFile(ctx, r.root, node.ID)
}

// hasGitDir reports whether the tree root holds a repository.
func (r *Repo) hasGitDir(ctx context.Context) bool {
	node, err := r.tree.ResolvePath(ctx, r.root, GitDir)
	return err == nil && node.IsDir
}

// cachedPackIndex parses an .idx file, caching the result per pack path.
// The whole cache is dropped once it grows past a small bound; packs per
// repository are few, so LRU bookkeeping is not worth it.
func (r *Repo) cachedPackIndex(ctx context.Context, path string) (*gitobj.PackIndex, error) {
	key := r.root.ID + "|" + path

	r.mu.Lock()
	if idx, ok := r.idxCache[key]; ok {
		r.mu.Unlock()
		return idx, nil
	}
	r.mu.Unlock()

	data, err := r.readPath(ctx, path)
	if err != nil {
		return nil, err
	}
	idx, err := gitobj.ParsePackIndex(data)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if len(r.idxCache) >= 64 {
		r.idxCache = make(map[string]*gitobj.PackIndex)
	}
	r.idxCache[key] = idx
	r.mu.Unlock()
	return idx, nil
}

// isNotFound reports whether err means "absent" rather than "unreachable".
func isNotFound(err error) bool {
	return errors.Is(err, hashtree.ErrNotFound) || errors.Is(err, gitobj.ErrObjectNotFound)
}
