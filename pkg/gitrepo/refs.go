package gitrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmalmi/treegit/pkg/gitobj"
)

// BranchInfo lists local branches and the currently checked out one.
// Current is empty for a detached HEAD or a missing repository.
type BranchInfo struct {
	Branches []string
	Current  string
}

// Head resolves .git/HEAD to a commit oid. A detached HEAD is the bare
// 40-hex content; otherwise the "ref: <path>" indirection is followed.
// Missing repository or unreadable HEAD yields ("", nil).
func (r *Repo) Head(ctx context.Context) (gitobj.ObjectID, error) {
	data, err := r.readPath(ctx, GitDir+"/HEAD")
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("head: %w", err)
	}

	content := strings.TrimSpace(string(data))
	if gitobj.IsObjectID(content) {
		return gitobj.ObjectID(content), nil
	}

	refPath, ok := strings.CutPrefix(content, "ref: ")
	if !ok {
		return "", nil
	}
	refData, err := r.readPath(ctx, GitDir+"/"+strings.TrimSpace(refPath))
	if err != nil {
		if isNotFound(err) {
			// Unborn branch (fresh init): no commits yet.
			return "", nil
		}
		return "", fmt.Errorf("head: resolve %q: %w", refPath, err)
	}
	sha := strings.TrimSpace(string(refData))
	if !gitobj.IsObjectID(sha) {
		return "", nil
	}
	return gitobj.ObjectID(sha), nil
}

// Branches lists .git/refs/heads and names the current branch from HEAD.
// A missing repository yields an empty list, never an error.
func (r *Repo) Branches(ctx context.Context) (*BranchInfo, error) {
	info := &BranchInfo{Branches: []string{}}
	if !r.hasGitDir(ctx) {
		return info, nil
	}

	if data, err := r.readPath(ctx, GitDir+"/HEAD"); err == nil {
		content := strings.TrimSpace(string(data))
		if refPath, ok := strings.CutPrefix(content, "ref: "); ok {
			info.Current = strings.TrimPrefix(strings.TrimSpace(refPath), "refs/heads/")
		}
	}

	node, err := r.tree.ResolvePath(ctx, r.root, GitDir+"/refs/heads")
	if err != nil || !node.IsDir {
		return info, nil
	}
	entries, err := r.tree.ListDirectory(ctx, r.root, node.ID)
	if err != nil {
		return nil, fmt.Errorf("branches: %w", err)
	}
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		info.Branches = append(info.Branches, e.Name)
	}
	return info, nil
}

// BranchTip resolves a branch name to its commit oid. Empty when absent.
func (r *Repo) BranchTip(ctx context.Context, name string) (gitobj.ObjectID, error) {
	data, err := r.readPath(ctx, GitDir+"/refs/heads/"+name)
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("branch tip %q: %w", name, err)
	}
	sha := strings.TrimSpace(string(data))
	if !gitobj.IsObjectID(sha) {
		return "", nil
	}
	return gitobj.ObjectID(sha), nil
}
