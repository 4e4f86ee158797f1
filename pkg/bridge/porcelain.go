package bridge

import "strings"

// StatusEntry is one file in a porcelain status listing. Status is the
// two-character porcelain code; OrigPath is set for renames.
type StatusEntry struct {
	Status   string
	Path     string
	OrigPath string
}

// StatusResult groups status entries the way the UI consumes them.
type StatusResult struct {
	Staged     []StatusEntry
	Unstaged   []StatusEntry
	Untracked  []StatusEntry
	HasChanges bool
}

func emptyStatus() *StatusResult {
	return &StatusResult{
		Staged:    []StatusEntry{},
		Unstaged:  []StatusEntry{},
		Untracked: []StatusEntry{},
	}
}

// ParsePorcelain parses `status --porcelain` output. The first column is
// the index (staged) state, the second the worktree state; "??" lines are
// untracked; rename lines carry "old -> new". A file can appear in both
// the staged and unstaged groups when both columns are dirty.
func ParsePorcelain(text string) *StatusResult {
	result := emptyStatus()
	for _, line := range strings.Split(text, "\n") {
		if len(line) < 4 {
			continue
		}
		code := line[:2]
		rest := line[3:]

		path := rest
		origPath := ""
		if old, current, ok := strings.Cut(rest, " -> "); ok {
			origPath = old
			path = current
		}

		if code == "??" {
			result.Untracked = append(result.Untracked, StatusEntry{Status: code, Path: path, OrigPath: origPath})
			continue
		}

		indexCol, worktreeCol := code[0], code[1]
		if indexCol != ' ' && indexCol != '?' {
			result.Staged = append(result.Staged, StatusEntry{Status: code, Path: path, OrigPath: origPath})
		}
		if worktreeCol != ' ' && worktreeCol != '?' {
			result.Unstaged = append(result.Unstaged, StatusEntry{Status: code, Path: path, OrigPath: origPath})
		}
	}
	result.HasChanges = len(result.Staged) > 0 || len(result.Unstaged) > 0 || len(result.Untracked) > 0
	return result
}
