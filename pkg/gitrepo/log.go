package gitrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/mmalmi/treegit/pkg/gitobj"
)

const (
	// DefaultLogDepth bounds Log when no depth is given.
	DefaultLogDepth = 20

	// logBatchSize caps the walker's parallel object fetches per round.
	// A throughput/fan-out tradeoff, not a correctness requirement.
	logBatchSize = 10
)

// CommitInfo is one log entry.
type CommitInfo struct {
	OID       gitobj.ObjectID
	Message   string
	Author    string
	Email     string
	Timestamp int64
	Parents   []gitobj.ObjectID
}

// LogOptions configures Log. Depth ≤ 0 means DefaultLogDepth.
type LogOptions struct {
	Depth int
}

// Log walks the commit graph breadth-first from HEAD and returns up to
// Depth commits sorted newest-first. Parents are fetched in parallel
// batches, so fetch order is not display order; the final sort by
// timestamp establishes it. A missing repository or unreadable HEAD
// yields an empty slice. Unparseable commits are skipped silently and do
// not count against Depth.
func (r *Repo) Log(ctx context.Context, opts LogOptions) ([]CommitInfo, error) {
	depth := opts.Depth
	if depth <= 0 {
		depth = DefaultLogDepth
	}

	head, err := r.Head(ctx)
	if err != nil {
		return nil, err
	}
	if head == "" {
		return []CommitInfo{}, nil
	}
	return r.walk(ctx, head, depth)
}

// LogFrom is Log starting at an explicit commit instead of HEAD.
func (r *Repo) LogFrom(ctx context.Context, start gitobj.ObjectID, opts LogOptions) ([]CommitInfo, error) {
	depth := opts.Depth
	if depth <= 0 {
		depth = DefaultLogDepth
	}
	return r.walk(ctx, start, depth)
}

func (r *Repo) walk(ctx context.Context, start gitobj.ObjectID, depth int) ([]CommitInfo, error) {
	visited := map[gitobj.ObjectID]bool{}
	queue := []gitobj.ObjectID{start}
	result := make([]CommitInfo, 0, depth)

	for len(queue) > 0 && len(result) < depth {
		// Dequeue up to one batch of unvisited oids.
		batch := make([]gitobj.ObjectID, 0, logBatchSize)
		for len(queue) > 0 && len(batch) < logBatchSize {
			oid := queue[0]
			queue = queue[1:]
			if visited[oid] {
				continue
			}
			visited[oid] = true
			batch = append(batch, oid)
		}
		if len(batch) == 0 {
			continue
		}

		commits, err := r.fetchCommitBatch(ctx, batch)
		if err != nil {
			return nil, err
		}

		for i, c := range commits {
			if c == nil {
				continue
			}
			if len(result) < depth {
				result = append(result, CommitInfo{
					OID:       batch[i],
					Message:   c.Message,
					Author:    c.Author,
					Email:     c.Email,
					Timestamp: c.Timestamp,
					Parents:   c.Parents,
				})
			}
			for _, p := range c.Parents {
				if !visited[p] {
					queue = append(queue, p)
				}
			}
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp > result[j].Timestamp
	})
	return result, nil
}

// fetchCommitBatch reads a batch of commits concurrently, preserving the
// batch's ordering in the result. Missing and non-commit oids come back
// nil; only transport failures abort.
func (r *Repo) fetchCommitBatch(ctx context.Context, batch []gitobj.ObjectID) ([]*gitobj.Commit, error) {
	commits := make([]*gitobj.Commit, len(batch))
	errs := make([]error, len(batch))

	var wg sync.WaitGroup
	for i, oid := range batch {
		wg.Add(1)
		go func(i int, oid gitobj.ObjectID) {
			defer wg.Done()
			commits[i], errs[i] = r.readCommit(ctx, oid)
		}(i, oid)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return commits, nil
}
