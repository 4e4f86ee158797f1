package gitrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmalmi/treegit/pkg/gitobj"
)

// lastCommitsWalkCap bounds the BFS so a pathological history cannot spin
// forever when a requested path never changes.
const lastCommitsWalkCap = 10000

// LastCommits finds, for each requested path, the most recent commit that
// touched it: the first commit in BFS order from HEAD whose flattened tree
// differs from its first parent's at that path. A directory path resolves
// when any entry under "<dir>/" was added, modified or deleted. Paths that
// never resolve are absent from the result.
func (r *Repo) LastCommits(ctx context.Context, paths []string) (map[string]CommitInfo, error) {
	result := make(map[string]CommitInfo)
	head, err := r.Head(ctx)
	if err != nil || head == "" {
		return result, err
	}

	pending := make(map[string]bool, len(paths))
	for _, p := range paths {
		pending[strings.Trim(p, "/")] = true
	}

	// Per-walk flatten cache: each tree is needed twice, as a commit's
	// own tree and as its child's parent tree.
	flatCache := make(map[gitobj.ObjectID]map[string]FlatEntry)
	flatten := func(treeOID gitobj.ObjectID) (map[string]FlatEntry, error) {
		if treeOID == "" {
			return map[string]FlatEntry{}, nil
		}
		if flat, ok := flatCache[treeOID]; ok {
			return flat, nil
		}
		flat, err := r.Flatten(ctx, treeOID)
		if err != nil {
			return nil, err
		}
		flatCache[treeOID] = flat
		return flat, nil
	}

	visited := map[gitobj.ObjectID]bool{head: true}
	queue := []gitobj.ObjectID{head}
	steps := 0

	for len(queue) > 0 && len(pending) > 0 && steps < lastCommitsWalkCap {
		steps++
		oid := queue[0]
		queue = queue[1:]

		commit, err := r.readCommit(ctx, oid)
		if err != nil {
			return nil, fmt.Errorf("last commits: %w", err)
		}
		if commit == nil {
			continue
		}

		cur, err := flatten(commit.Tree)
		if err != nil {
			return nil, fmt.Errorf("last commits: %w", err)
		}
		// Root commits compare against an empty tree, so everything in
		// them counts as newly added there.
		var parentTree gitobj.ObjectID
		if len(commit.Parents) > 0 {
			parent, err := r.readCommit(ctx, commit.Parents[0])
			if err != nil {
				return nil, fmt.Errorf("last commits: %w", err)
			}
			if parent != nil {
				parentTree = parent.Tree
			}
		}
		prev, err := flatten(parentTree)
		if err != nil {
			return nil, fmt.Errorf("last commits: %w", err)
		}

		info := CommitInfo{
			OID:       oid,
			Message:   commit.Message,
			Author:    commit.Author,
			Email:     commit.Email,
			Timestamp: commit.Timestamp,
			Parents:   commit.Parents,
		}
		for path := range pending {
			if pathTouched(cur, prev, path) {
				result[path] = info
				delete(pending, path)
			}
		}

		for _, p := range commit.Parents {
			if !visited[p] {
				visited[p] = true
				queue = append(queue, p)
			}
		}
	}
	return result, nil
}

// pathTouched reports whether path changed between prev and cur. A path
// present as a file is compared directly; otherwise it is treated as a
// directory and any change under "<path>/" counts, deletions included.
func pathTouched(cur, prev map[string]FlatEntry, path string) bool {
	if curEntry, ok := cur[path]; ok {
		prevEntry, existed := prev[path]
		return !existed || prevEntry.OID != curEntry.OID
	}

	dirPrefix := path + "/"
	for p, curEntry := range cur {
		if !strings.HasPrefix(p, dirPrefix) {
			continue
		}
		prevEntry, existed := prev[p]
		if !existed || prevEntry.OID != curEntry.OID {
			return true
		}
	}
	// Deletions: present under the directory in the parent, gone now.
	for p := range prev {
		if !strings.HasPrefix(p, dirPrefix) {
			continue
		}
		if _, still := cur[p]; !still {
			return true
		}
	}
	return false
}
