package bridge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage"

	"github.com/mmalmi/treegit/pkg/hashtree"
)

// ErrMergeConflict reports a merge stopped by conflicting paths. The
// conflict list travels in the MergeResult.
var ErrMergeConflict = errors.New("bridge: merge conflict")

// MergeResult is the outcome of Merge.
type MergeResult struct {
	Success         bool
	GitFiles        []File
	WorkingFiles    []File
	Conflicts       []string
	IsFastForward   bool
	AlreadyUpToDate bool
	Err             error
}

// MergeCheck is the outcome of CanMerge; it never mutates anything.
type MergeCheck struct {
	CanMerge      bool
	Conflicts     []string
	IsFastForward bool
}

// BranchDiff summarizes base..head for the UI: unified diff text, change
// stats and fast-forwardability.
type BranchDiff struct {
	Text           string
	Additions      int
	Deletions      int
	Files          []string
	CanFastForward bool
}

// mergeState is the shared analysis both Merge and CanMerge start from.
type mergeState struct {
	repo       *gogit.Repository
	baseRef    plumbing.ReferenceName
	baseTip    *object.Commit
	headTip    *object.Commit
	isFF       bool
	upToDate   bool
	conflicts  []string
	mergedFlat map[string]flatItem
}

type flatItem struct {
	hash plumbing.Hash
	mode filemode.FileMode
}

// Merge merges head into base. Fast-forward when base is an ancestor of
// head (the ref is simply rewritten); otherwise a three-way tree compare
// either reports conflicts, leaving every ref untouched, or writes a
// two-parent merge commit. On success the updated .git directory and
// working tree are returned for persistence.
func (r *Runtime) Merge(ctx context.Context, tree hashtree.Reader, ref hashtree.Ref, base, head, message string) (*MergeResult, error) {
	var result *MergeResult
	var opErr error
	err := r.do(ctx, func() {
		dir, cleanup, err := r.scratch()
		if err != nil {
			opErr = err
			return
		}
		defer cleanup()

		if err := importTree(ctx, tree, ref, "", dir); err != nil {
			opErr = fmt.Errorf("merge: %w", err)
			return
		}
		st, err := analyzeMerge(dir, base, head)
		if err != nil {
			opErr = fmt.Errorf("merge: %w", err)
			return
		}

		switch {
		case st.upToDate:
			result = &MergeResult{Success: true, AlreadyUpToDate: true}
			return

		case len(st.conflicts) > 0:
			// Report and stop; no ref was touched, so there is no
			// in-progress merge to abort.
			result = &MergeResult{Conflicts: st.conflicts, Err: ErrMergeConflict}
			return

		case st.isFF:
			newRef := plumbing.NewHashReference(st.baseRef, st.headTip.Hash)
			if err := st.repo.Storer.SetReference(newRef); err != nil {
				opErr = fmt.Errorf("merge: fast-forward: %w", err)
				return
			}

		default:
			mergedHash, err := writeMergeCommit(st, r.signature(), message)
			if err != nil {
				opErr = fmt.Errorf("merge: %w", err)
				return
			}
			if err := st.repo.Storer.SetReference(plumbing.NewHashReference(st.baseRef, mergedHash)); err != nil {
				opErr = fmt.Errorf("merge: %w", err)
				return
			}
		}

		// Materialize the working tree and index at the new base tip.
		wt, err := st.repo.Worktree()
		if err != nil {
			opErr = fmt.Errorf("merge: %w", err)
			return
		}
		if err := wt.Checkout(&gogit.CheckoutOptions{Branch: st.baseRef, Force: true}); err != nil {
			opErr = fmt.Errorf("merge: checkout: %w", err)
			return
		}

		gitFiles, err := exportGitFiles(dir)
		if err != nil {
			opErr = fmt.Errorf("merge: %w", err)
			return
		}
		workingFiles, err := exportTree(dir, "", gitDirName)
		if err != nil {
			opErr = fmt.Errorf("merge: %w", err)
			return
		}
		result = &MergeResult{
			Success:       true,
			GitFiles:      gitFiles,
			WorkingFiles:  workingFiles,
			IsFastForward: st.isFF,
		}
	})
	if err != nil {
		return nil, err
	}
	return result, opErr
}

// CanMerge runs the merge analysis without mutating branch refs: the
// history is copied read-only and discarded afterwards.
func (r *Runtime) CanMerge(ctx context.Context, tree hashtree.Reader, ref hashtree.Ref, base, head string) (*MergeCheck, error) {
	var result *MergeCheck
	var opErr error
	err := r.do(ctx, func() {
		dir, cleanup, err := r.scratch()
		if err != nil {
			opErr = err
			return
		}
		defer cleanup()

		if err := importTree(ctx, tree, ref, gitDirName, dir); err != nil {
			opErr = fmt.Errorf("can-merge: %w", err)
			return
		}
		st, err := analyzeMerge(dir, base, head)
		if err != nil {
			opErr = fmt.Errorf("can-merge: %w", err)
			return
		}
		result = &MergeCheck{
			CanMerge:      len(st.conflicts) == 0,
			Conflicts:     append([]string{}, st.conflicts...),
			IsFastForward: st.isFF,
		}
	})
	if err != nil {
		return nil, err
	}
	return result, opErr
}

// DiffBranches produces the textual diff and stats between two branch
// tips. Read-only: only history is imported.
func (r *Runtime) DiffBranches(ctx context.Context, tree hashtree.Reader, ref hashtree.Ref, base, head string) (*BranchDiff, error) {
	var result *BranchDiff
	var opErr error
	err := r.do(ctx, func() {
		dir, cleanup, err := r.scratch()
		if err != nil {
			opErr = err
			return
		}
		defer cleanup()

		if err := importTree(ctx, tree, ref, gitDirName, dir); err != nil {
			opErr = fmt.Errorf("diff branches: %w", err)
			return
		}
		st, err := analyzeMerge(dir, base, head)
		if err != nil {
			opErr = fmt.Errorf("diff branches: %w", err)
			return
		}

		patch, err := st.baseTip.Patch(st.headTip)
		if err != nil {
			opErr = fmt.Errorf("diff branches: patch: %w", err)
			return
		}
		bd := &BranchDiff{Text: patch.String(), CanFastForward: st.isFF}
		for _, stat := range patch.Stats() {
			bd.Additions += stat.Addition
			bd.Deletions += stat.Deletion
			bd.Files = append(bd.Files, stat.Name)
		}
		result = bd
	})
	if err != nil {
		return nil, err
	}
	return result, opErr
}

// analyzeMerge opens the scratch repo, resolves both branch tips and
// classifies the merge: up to date, fast-forward, conflicting, or clean
// (mergedFlat populated for the commit path).
func analyzeMerge(dir billy.Filesystem, base, head string) (*mergeState, error) {
	repo, err := openScratchRepo(dir)
	if err != nil {
		return nil, err
	}
	st := &mergeState{repo: repo, baseRef: plumbing.NewBranchReferenceName(base)}

	if st.baseTip, err = branchCommit(repo, base); err != nil {
		return nil, err
	}
	if st.headTip, err = branchCommit(repo, head); err != nil {
		return nil, err
	}

	// merge-base(base, head) == rev-parse(base) means base is a strict
	// ancestor of head: fast-forwardable.
	bases, err := st.baseTip.MergeBase(st.headTip)
	if err != nil {
		return nil, fmt.Errorf("merge-base: %w", err)
	}
	var mergeBase *object.Commit
	for _, b := range bases {
		if b.Hash == st.baseTip.Hash {
			st.isFF = true
		}
		if b.Hash == st.headTip.Hash {
			st.upToDate = true
		}
		mergeBase = b
	}
	if st.isFF || st.upToDate {
		return st, nil
	}

	var baseFlat map[string]flatItem
	if mergeBase != nil {
		if baseFlat, err = flattenCommitTree(mergeBase); err != nil {
			return nil, err
		}
	} else {
		baseFlat = map[string]flatItem{}
	}
	ours, err := flattenCommitTree(st.baseTip)
	if err != nil {
		return nil, err
	}
	theirs, err := flattenCommitTree(st.headTip)
	if err != nil {
		return nil, err
	}

	st.conflicts, st.mergedFlat = threeWayMerge(baseFlat, ours, theirs)
	return st, nil
}

func branchCommit(repo *gogit.Repository, name string) (*object.Commit, error) {
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(name), true)
	if err != nil {
		return nil, fmt.Errorf("branch %q: %w", name, err)
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("branch %q: %w", name, err)
	}
	return commit, nil
}

func flattenCommitTree(c *object.Commit) (map[string]flatItem, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("commit %s: %w", c.Hash, err)
	}
	flat := make(map[string]flatItem)
	err = tree.Files().ForEach(func(f *object.File) error {
		flat[f.Name] = flatItem{hash: f.Hash, mode: f.Mode}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("commit %s: flatten: %w", c.Hash, err)
	}
	return flat, nil
}

// threeWayMerge compares both sides against the merge base. A path
// changed on both sides to different contents conflicts; otherwise the
// changed side wins (deletions included).
func threeWayMerge(base, ours, theirs map[string]flatItem) (conflicts []string, merged map[string]flatItem) {
	paths := make(map[string]bool)
	for p := range base {
		paths[p] = true
	}
	for p := range ours {
		paths[p] = true
	}
	for p := range theirs {
		paths[p] = true
	}

	merged = make(map[string]flatItem)
	for p := range paths {
		b, inBase := base[p]
		o, inOurs := ours[p]
		t, inTheirs := theirs[p]

		oursChanged := inOurs != inBase || (inOurs && o != b)
		theirsChanged := inTheirs != inBase || (inTheirs && t != b)

		switch {
		case oursChanged && theirsChanged && (inOurs != inTheirs || o != t):
			conflicts = append(conflicts, p)
		case theirsChanged:
			if inTheirs {
				merged[p] = t
			}
		default:
			if inOurs {
				merged[p] = o
			}
		}
	}
	sort.Strings(conflicts)
	return conflicts, merged
}

// writeMergeCommit writes the merged tree and a two-parent commit, and
// returns the commit hash.
func writeMergeCommit(st *mergeState, sig object.Signature, message string) (plumbing.Hash, error) {
	treeHash, err := writeTreeDir(st.repo.Storer, st.mergedFlat, "")
	if err != nil {
		return plumbing.ZeroHash, err
	}
	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     treeHash,
		ParentHashes: []plumbing.Hash{st.baseTip.Hash, st.headTip.Hash},
	}
	obj := st.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("encode merge commit: %w", err)
	}
	hash, err := st.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("store merge commit: %w", err)
	}
	return hash, nil
}

// writeTreeDir builds the tree object for one directory level of the flat
// path map and recurses into subdirectories, bottom-up.
func writeTreeDir(s storage.Storer, flat map[string]flatItem, prefix string) (plumbing.Hash, error) {
	files := make(map[string]flatItem)
	subdirs := make(map[string]bool)

	for p, item := range flat {
		rel := p
		if prefix != "" {
			if !strings.HasPrefix(p, prefix+"/") {
				continue
			}
			rel = p[len(prefix)+1:]
		}
		if slash := strings.IndexByte(rel, '/'); slash >= 0 {
			subdirs[rel[:slash]] = true
		} else {
			files[rel] = item
		}
	}

	var entries []object.TreeEntry
	for name, item := range files {
		entries = append(entries, object.TreeEntry{Name: name, Mode: item.mode, Hash: item.hash})
	}
	for name := range subdirs {
		childPrefix := name
		if prefix != "" {
			childPrefix = prefix + "/" + name
		}
		subHash, err := writeTreeDir(s, flat, childPrefix)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: subHash})
	}

	// Git tree order: directories sort as "name/".
	sort.Slice(entries, func(i, j int) bool {
		return gitTreeKey(entries[i]) < gitTreeKey(entries[j])
	})

	tree := &object.Tree{Entries: entries}
	obj := s.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("encode tree %q: %w", prefix, err)
	}
	hash, err := s.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("store tree %q: %w", prefix, err)
	}
	return hash, nil
}

func gitTreeKey(e object.TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}
