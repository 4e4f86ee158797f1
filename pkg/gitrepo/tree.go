package gitrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmalmi/treegit/pkg/gitobj"
)

// FlatEntry is one file in a flattened tree.
type FlatEntry struct {
	OID  gitobj.ObjectID
	Mode string
}

// Flatten walks a tree object recursively into a path → {hash, mode} map.
// Subtrees recurse; blobs, symlinks and submodule gitlinks are leaves.
func (r *Repo) Flatten(ctx context.Context, treeOID gitobj.ObjectID) (map[string]FlatEntry, error) {
	flat := make(map[string]FlatEntry)
	if err := r.flattenInto(ctx, treeOID, "", flat); err != nil {
		return nil, err
	}
	return flat, nil
}

func (r *Repo) flattenInto(ctx context.Context, treeOID gitobj.ObjectID, prefix string, flat map[string]FlatEntry) error {
	entries, err := r.readTree(ctx, treeOID)
	if err != nil {
		return fmt.Errorf("flatten %s: %w", treeOID, err)
	}
	for _, e := range entries {
		path := e.Name
		if prefix != "" {
			path = prefix + "/" + e.Name
		}
		if e.IsDir() {
			if err := r.flattenInto(ctx, e.OID, path, flat); err != nil {
				return err
			}
			continue
		}
		flat[path] = FlatEntry{OID: e.OID, Mode: e.Mode}
	}
	return nil
}

// FileAtCommit returns the content of a file as of the given commit, or
// nil when the commit, path or blob is absent.
func (r *Repo) FileAtCommit(ctx context.Context, commitOID gitobj.ObjectID, path string) ([]byte, error) {
	commit, err := r.readCommit(ctx, commitOID)
	if err != nil || commit == nil || commit.Tree == "" {
		return nil, err
	}

	cur := commit.Tree
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		entries, err := r.readTree(ctx, cur)
		if err != nil {
			if isNotFound(err) {
				return nil, nil
			}
			return nil, err
		}

		var match *gitobj.TreeEntry
		for j := range entries {
			if entries[j].Name == seg {
				match = &entries[j]
				break
			}
		}
		if match == nil {
			return nil, nil
		}

		last := i == len(segments)-1
		if last {
			if match.IsDir() {
				return nil, nil
			}
			obj, err := r.ReadObject(ctx, match.OID)
			if err != nil {
				if isNotFound(err) {
					return nil, nil
				}
				return nil, err
			}
			if obj.Type != gitobj.TypeBlob {
				return nil, nil
			}
			return obj.Content, nil
		}
		if !match.IsDir() {
			return nil, nil
		}
		cur = match.OID
	}
	return nil, nil
}
