package bridge

import (
	"context"
	"fmt"

	"github.com/go-git/go-billy/v5"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"

	"github.com/mmalmi/treegit/pkg/gitobj"
	"github.com/mmalmi/treegit/pkg/hashtree"
)

// initScratchRepo creates an empty repository on the scratch filesystem,
// the storage layout go-git's PlainInit would produce on disk.
func initScratchRepo(dir billy.Filesystem) (*gogit.Repository, error) {
	dotgit, err := dir.Chroot(gitDirName)
	if err != nil {
		return nil, err
	}
	storage := filesystem.NewStorage(dotgit, cache.NewObjectLRUDefault())
	return gogit.Init(storage, dir)
}

// openScratchRepo opens the repository previously imported into scratch.
func openScratchRepo(dir billy.Filesystem) (*gogit.Repository, error) {
	dotgit, err := dir.Chroot(gitDirName)
	if err != nil {
		return nil, err
	}
	storage := filesystem.NewStorage(dotgit, cache.NewObjectLRUDefault())
	return gogit.Open(storage, dir)
}

const gitDirName = ".git"

// setIdentity writes the author identity into the scratch repository's
// config, the equivalent of the synthetic .gitconfig the runtime needs
// before committing.
func (r *Runtime) setIdentity(repo *gogit.Repository) error {
	cfg, err := repo.Config()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cfg.User.Name = r.identity.Name
	cfg.User.Email = r.identity.Email
	if err := repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (r *Runtime) signature() object.Signature {
	return object.Signature{
		Name:  r.identity.Name,
		Email: r.identity.Email,
		When:  r.now(),
	}
}

// Init creates a fresh repository and returns its .git files for the
// caller to persist into the virtual tree.
func (r *Runtime) Init(ctx context.Context) (*MutationResult, error) {
	var result *MutationResult
	var opErr error
	err := r.do(ctx, func() {
		dir, cleanup, err := r.scratch()
		if err != nil {
			opErr = err
			return
		}
		defer cleanup()

		repo, err := initScratchRepo(dir)
		if err != nil {
			opErr = fmt.Errorf("init: %w", err)
			return
		}
		if err := r.setIdentity(repo); err != nil {
			opErr = fmt.Errorf("init: %w", err)
			return
		}
		gitFiles, err := exportGitFiles(dir)
		if err != nil {
			opErr = fmt.Errorf("init: %w", err)
			return
		}
		result = &MutationResult{GitFiles: gitFiles}
	})
	if err != nil {
		return nil, err
	}
	return result, opErr
}

// Commit stages every working-tree change and commits it. The returned
// files cover .git only; the working tree is unchanged by a commit.
func (r *Runtime) Commit(ctx context.Context, tree hashtree.Reader, ref hashtree.Ref, message string) (*MutationResult, error) {
	var result *MutationResult
	var opErr error
	err := r.do(ctx, func() {
		dir, cleanup, err := r.scratch()
		if err != nil {
			opErr = err
			return
		}
		defer cleanup()

		if err := importTree(ctx, tree, ref, "", dir); err != nil {
			opErr = fmt.Errorf("commit: %w", err)
			return
		}
		repo, err := openScratchRepo(dir)
		if err != nil {
			opErr = fmt.Errorf("commit: %w", err)
			return
		}
		if err := r.setIdentity(repo); err != nil {
			opErr = fmt.Errorf("commit: %w", err)
			return
		}
		wt, err := repo.Worktree()
		if err != nil {
			opErr = fmt.Errorf("commit: %w", err)
			return
		}
		if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
			opErr = fmt.Errorf("commit: stage: %w", err)
			return
		}
		hash, err := wt.Commit(message, &gogit.CommitOptions{Author: signaturePtr(r.signature())})
		if err != nil {
			opErr = fmt.Errorf("commit: %w", err)
			return
		}
		gitFiles, err := exportGitFiles(dir)
		if err != nil {
			opErr = fmt.Errorf("commit: %w", err)
			return
		}
		result = &MutationResult{OID: hash.String(), GitFiles: gitFiles}
	})
	if err != nil {
		return nil, err
	}
	return result, opErr
}

// CreateBranch points a new branch at the current HEAD commit. History
// only; the working tree is untouched.
func (r *Runtime) CreateBranch(ctx context.Context, tree hashtree.Reader, ref hashtree.Ref, name string) (*MutationResult, error) {
	var result *MutationResult
	var opErr error
	err := r.do(ctx, func() {
		dir, cleanup, err := r.scratch()
		if err != nil {
			opErr = err
			return
		}
		defer cleanup()

		if err := importTree(ctx, tree, ref, gitDirName, dir); err != nil {
			opErr = fmt.Errorf("create branch: %w", err)
			return
		}
		repo, err := openScratchRepo(dir)
		if err != nil {
			opErr = fmt.Errorf("create branch: %w", err)
			return
		}
		head, err := repo.Head()
		if err != nil {
			opErr = fmt.Errorf("create branch: head: %w", err)
			return
		}
		branchRef := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), head.Hash())
		if err := repo.Storer.SetReference(branchRef); err != nil {
			opErr = fmt.Errorf("create branch: %w", err)
			return
		}
		gitFiles, err := exportGitFiles(dir)
		if err != nil {
			opErr = fmt.Errorf("create branch: %w", err)
			return
		}
		result = &MutationResult{OID: head.Hash().String(), GitFiles: gitFiles}
	})
	if err != nil {
		return nil, err
	}
	return result, opErr
}

// Checkout force-checks-out a branch name or commit sha and returns both
// the updated .git directory and the rewritten working tree.
func (r *Runtime) Checkout(ctx context.Context, tree hashtree.Reader, ref hashtree.Ref, target string) (*MutationResult, error) {
	var result *MutationResult
	var opErr error
	err := r.do(ctx, func() {
		dir, cleanup, err := r.scratch()
		if err != nil {
			opErr = err
			return
		}
		defer cleanup()

		if err := importTree(ctx, tree, ref, "", dir); err != nil {
			opErr = fmt.Errorf("checkout: %w", err)
			return
		}
		repo, err := openScratchRepo(dir)
		if err != nil {
			opErr = fmt.Errorf("checkout: %w", err)
			return
		}
		wt, err := repo.Worktree()
		if err != nil {
			opErr = fmt.Errorf("checkout: %w", err)
			return
		}

		opts := &gogit.CheckoutOptions{Force: true}
		branchName := plumbing.NewBranchReferenceName(target)
		if _, err := repo.Reference(branchName, false); err == nil {
			opts.Branch = branchName
		} else if gitobj.IsObjectID(target) {
			opts.Hash = plumbing.NewHash(target)
		} else {
			opErr = fmt.Errorf("checkout: unknown target %q", target)
			return
		}
		if err := wt.Checkout(opts); err != nil {
			opErr = fmt.Errorf("checkout %q: %w", target, err)
			return
		}

		gitFiles, err := exportGitFiles(dir)
		if err != nil {
			opErr = fmt.Errorf("checkout: %w", err)
			return
		}
		workingFiles, err := exportTree(dir, "", gitDirName)
		if err != nil {
			opErr = fmt.Errorf("checkout: %w", err)
			return
		}
		result = &MutationResult{GitFiles: gitFiles, WorkingFiles: workingFiles}
	})
	if err != nil {
		return nil, err
	}
	return result, opErr
}

// Status reports staged/unstaged/untracked files. A repository without a
// .git/index yields an empty result: correct status needs the index built
// at checkout/commit time, and guessing would misreport every tracked
// file as untracked.
func (r *Runtime) Status(ctx context.Context, tree hashtree.Reader, ref hashtree.Ref) (*StatusResult, error) {
	hasIndex, err := pathExists(ctx, tree, ref, gitDirName+"/index")
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	if !hasIndex {
		return emptyStatus(), nil
	}

	var result *StatusResult
	var opErr error
	err = r.do(ctx, func() {
		dir, cleanup, err := r.scratch()
		if err != nil {
			opErr = err
			return
		}
		defer cleanup()

		if err := importTree(ctx, tree, ref, "", dir); err != nil {
			opErr = fmt.Errorf("status: %w", err)
			return
		}
		repo, err := openScratchRepo(dir)
		if err != nil {
			opErr = fmt.Errorf("status: %w", err)
			return
		}
		wt, err := repo.Worktree()
		if err != nil {
			opErr = fmt.Errorf("status: %w", err)
			return
		}
		status, err := wt.Status()
		if err != nil {
			opErr = fmt.Errorf("status: %w", err)
			return
		}
		result = ParsePorcelain(status.String())
	})
	if err != nil {
		return nil, err
	}
	return result, opErr
}

// exportGitFiles exports the .git subtree; names keep the ".git/" prefix
// so the list persists directly at the repository root.
func exportGitFiles(dir billy.Filesystem) ([]File, error) {
	return exportTree(dir, gitDirName)
}

func signaturePtr(sig object.Signature) *object.Signature {
	return &sig
}
