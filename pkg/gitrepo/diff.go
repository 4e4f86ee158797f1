package gitrepo

import (
	"context"
	"fmt"
	"sort"

	"github.com/mmalmi/treegit/pkg/gitobj"
)

// DiffStatus classifies one changed path.
type DiffStatus string

const (
	DiffAdded    DiffStatus = "added"
	DiffDeleted  DiffStatus = "deleted"
	DiffModified DiffStatus = "modified"
)

// DiffEntry is one changed path between two commits.
type DiffEntry struct {
	Path   string
	Status DiffStatus
	OldOID gitobj.ObjectID // empty for added
	NewOID gitobj.ObjectID // empty for deleted
}

// Diff compares two commits' flattened trees. A path only in from is
// deleted, only in to is added, in both with differing hashes modified.
// Results are sorted by path. Either commit being absent yields nil.
func (r *Repo) Diff(ctx context.Context, from, to gitobj.ObjectID) ([]DiffEntry, error) {
	fromFlat, err := r.flattenCommit(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	toFlat, err := r.flattenCommit(ctx, to)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	if fromFlat == nil || toFlat == nil {
		return nil, nil
	}
	return diffFlat(fromFlat, toFlat), nil
}

// flattenCommit resolves a commit to its flattened tree. Nil when the
// commit is absent or not a commit.
func (r *Repo) flattenCommit(ctx context.Context, oid gitobj.ObjectID) (map[string]FlatEntry, error) {
	commit, err := r.readCommit(ctx, oid)
	if err != nil || commit == nil || commit.Tree == "" {
		return nil, err
	}
	return r.Flatten(ctx, commit.Tree)
}

// diffFlat compares two flattened trees.
func diffFlat(from, to map[string]FlatEntry) []DiffEntry {
	var entries []DiffEntry
	for path, oldEntry := range from {
		newEntry, ok := to[path]
		if !ok {
			entries = append(entries, DiffEntry{Path: path, Status: DiffDeleted, OldOID: oldEntry.OID})
			continue
		}
		if newEntry.OID != oldEntry.OID {
			entries = append(entries, DiffEntry{Path: path, Status: DiffModified, OldOID: oldEntry.OID, NewOID: newEntry.OID})
		}
	}
	for path, newEntry := range to {
		if _, ok := from[path]; !ok {
			entries = append(entries, DiffEntry{Path: path, Status: DiffAdded, NewOID: newEntry.OID})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}
