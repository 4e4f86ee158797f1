package bridge

import "testing"

func TestParsePorcelain(t *testing.T) {
	result := ParsePorcelain("M  file.txt\n?? new.txt\n")

	if len(result.Staged) != 1 || result.Staged[0].Path != "file.txt" || result.Staged[0].Status != "M " {
		t.Errorf("Staged: got %+v", result.Staged)
	}
	if len(result.Unstaged) != 0 {
		t.Errorf("Unstaged: got %+v", result.Unstaged)
	}
	if len(result.Untracked) != 1 || result.Untracked[0].Path != "new.txt" {
		t.Errorf("Untracked: got %+v", result.Untracked)
	}
	if !result.HasChanges {
		t.Error("HasChanges: got false")
	}
}

func TestParsePorcelainBothColumns(t *testing.T) {
	// Staged then modified again: the file shows in both groups.
	result := ParsePorcelain("MM both.txt\n")
	if len(result.Staged) != 1 || result.Staged[0].Path != "both.txt" {
		t.Errorf("Staged: got %+v", result.Staged)
	}
	if len(result.Unstaged) != 1 || result.Unstaged[0].Path != "both.txt" {
		t.Errorf("Unstaged: got %+v", result.Unstaged)
	}
}

func TestParsePorcelainRename(t *testing.T) {
	result := ParsePorcelain("R  old.txt -> new.txt\n")
	if len(result.Staged) != 1 {
		t.Fatalf("Staged: got %+v", result.Staged)
	}
	e := result.Staged[0]
	if e.Path != "new.txt" || e.OrigPath != "old.txt" || e.Status != "R " {
		t.Errorf("rename entry: got %+v", e)
	}
}

func TestParsePorcelainWorktreeOnly(t *testing.T) {
	result := ParsePorcelain(" M dirty.txt\n D gone.txt\n")
	if len(result.Staged) != 0 {
		t.Errorf("Staged: got %+v", result.Staged)
	}
	if len(result.Unstaged) != 2 {
		t.Errorf("Unstaged: got %+v", result.Unstaged)
	}
}

func TestParsePorcelainEmpty(t *testing.T) {
	for _, text := range []string{"", "\n", "x\n"} {
		result := ParsePorcelain(text)
		if result.HasChanges {
			t.Errorf("%q: HasChanges true", text)
		}
		if result.Staged == nil || result.Unstaged == nil || result.Untracked == nil {
			t.Errorf("%q: nil group slices", text)
		}
	}
}
