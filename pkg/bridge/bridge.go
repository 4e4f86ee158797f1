// Package bridge runs full-semantics Git operations (init, commit, branch,
// checkout, merge, status) for repositories stored in a virtual tree. Each
// operation copies the needed part of the tree into a scratch directory on
// an in-memory filesystem, drives an embedded go-git repository there, and
// returns the resulting .git and working-tree files as flat lists for the
// caller to persist back. Nothing here writes to the virtual tree.
//
// The runtime owns a single mutable filesystem, so every operation is
// serialized through a FIFO task queue; there is no parallelism inside
// this package by design.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
)

// ErrNoIndex reports a status request against a repository with no
// .git/index. Status needs an index built at checkout time; without one
// every tracked file would misreport as untracked.
var ErrNoIndex = errors.New("bridge: repository has no index")

// ErrClosed reports an operation against a closed runtime.
var ErrClosed = errors.New("bridge: runtime closed")

// Identity is the synthetic author/committer written into the scratch
// repository's config before any mutating command runs.
type Identity struct {
	Name  string
	Email string
}

// File is one entry of an exported file list. Name is a slash path
// relative to the repository root, e.g. ".git/HEAD" or "src/main.c".
type File struct {
	Name  string
	Data  []byte
	IsDir bool
}

// MutationResult carries the files a mutating operation produced. GitFiles
// is always populated; WorkingFiles only for operations that can change
// tracked files (checkout, merge).
type MutationResult struct {
	OID          string // resulting commit sha, when one was created
	GitFiles     []File
	WorkingFiles []File
}

type task struct {
	fn   func()
	done chan struct{}
}

// Runtime owns the embedded repository filesystem. Construct with New and
// share one instance; concurrent calls queue behind each other in FIFO
// order.
type Runtime struct {
	identity Identity
	fs       billy.Filesystem
	tasks    chan *task

	closeOnce sync.Once
	closed    chan struct{}

	// now is stubbed in tests for deterministic commit timestamps.
	now func() time.Time
}

// New starts a runtime worker with the given author identity.
func New(identity Identity) *Runtime {
	r := &Runtime{
		identity: identity,
		fs:       memfs.New(),
		tasks:    make(chan *task),
		closed:   make(chan struct{}),
		now:      time.Now,
	}
	go r.worker()
	return r
}

func (r *Runtime) worker() {
	for {
		select {
		case t := <-r.tasks:
			t.fn()
			close(t.done)
		case <-r.closed:
			return
		}
	}
}

// Close stops the worker. Pending callers receive ErrClosed.
func (r *Runtime) Close() {
	r.closeOnce.Do(func() { close(r.closed) })
}

// do queues fn and blocks until it has run. ctx is honored only while
// waiting for the queue; once started, a task always runs to completion so
// the filesystem is never left mid-operation.
func (r *Runtime) do(ctx context.Context, fn func()) error {
	t := &task{fn: fn, done: make(chan struct{})}
	select {
	case r.tasks <- t:
	case <-r.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-t.done
	return nil
}

// scratch creates a uniquely named working directory for one call and
// returns it with a cleanup that removes it on every exit path.
func (r *Runtime) scratch() (billy.Filesystem, func(), error) {
	name := fmt.Sprintf("/job-%d", time.Now().UnixNano())
	if err := r.fs.MkdirAll(name, 0o755); err != nil {
		return nil, nil, fmt.Errorf("scratch dir: %w", err)
	}
	dir, err := r.fs.Chroot(name)
	if err != nil {
		_ = util.RemoveAll(r.fs, name)
		return nil, nil, fmt.Errorf("scratch dir: %w", err)
	}
	cleanup := func() { _ = util.RemoveAll(r.fs, name) }
	return dir, cleanup, nil
}
