package gitrepo

import (
	"bytes"
	"context"
	"testing"

	"github.com/mmalmi/treegit/pkg/gitobj"
)

// nestedCommit builds one commit whose tree contains
// README.md, docs/guide.md and docs/api/ref.md.
func nestedCommit(f *fixture) gitobj.ObjectID {
	readme := f.blob("readme\n")
	guide := f.blob("guide\n")
	ref := f.blob("api reference\n")

	api := f.tree(gitobj.TreeEntry{Mode: gitobj.ModeFile, Name: "ref.md", OID: ref})
	docs := f.tree(
		gitobj.TreeEntry{Mode: gitobj.ModeFile, Name: "guide.md", OID: guide},
		gitobj.TreeEntry{Mode: gitobj.ModeDir, Name: "api", OID: api},
	)
	root := f.tree(
		gitobj.TreeEntry{Mode: gitobj.ModeFile, Name: "README.md", OID: readme},
		gitobj.TreeEntry{Mode: gitobj.ModeDir, Name: "docs", OID: docs},
	)
	return f.commit(root, nil, 1700000100, "initial")
}

func TestFlatten(t *testing.T) {
	f := newFixture(t)
	c := nestedCommit(f)
	f.setBranch("main", c)
	f.setHEAD("main")
	repo := f.open()
	ctx := context.Background()

	commit, err := repo.readCommit(ctx, c)
	if err != nil || commit == nil {
		t.Fatalf("readCommit: %v %v", commit, err)
	}
	flat, err := repo.Flatten(ctx, commit.Tree)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	want := []string{"README.md", "docs/api/ref.md", "docs/guide.md"}
	if len(flat) != len(want) {
		t.Fatalf("Flatten: got %d entries: %v", len(flat), flat)
	}
	for _, p := range want {
		if _, ok := flat[p]; !ok {
			t.Errorf("Flatten: missing %s", p)
		}
	}
	if flat["README.md"].Mode != gitobj.ModeFile {
		t.Errorf("mode: got %q", flat["README.md"].Mode)
	}
}

func TestFileAtCommit(t *testing.T) {
	f := newFixture(t)
	c := nestedCommit(f)
	f.setBranch("main", c)
	f.setHEAD("main")
	repo := f.open()
	ctx := context.Background()

	data, err := repo.FileAtCommit(ctx, c, "docs/api/ref.md")
	if err != nil {
		t.Fatalf("FileAtCommit: %v", err)
	}
	if !bytes.Equal(data, []byte("api reference\n")) {
		t.Errorf("FileAtCommit: got %q", data)
	}

	top, err := repo.FileAtCommit(ctx, c, "README.md")
	if err != nil {
		t.Fatalf("FileAtCommit(top): %v", err)
	}
	if !bytes.Equal(top, []byte("readme\n")) {
		t.Errorf("FileAtCommit(top): got %q", top)
	}
}

func TestFileAtCommitAbsent(t *testing.T) {
	f := newFixture(t)
	c := nestedCommit(f)
	f.setBranch("main", c)
	f.setHEAD("main")
	repo := f.open()
	ctx := context.Background()

	for _, path := range []string{
		"missing.md",      // no such entry
		"docs/missing.md", // no such nested entry
		"docs",            // directory, not a file
		"README.md/extra", // file used as directory
	} {
		data, err := repo.FileAtCommit(ctx, c, path)
		if err != nil {
			t.Fatalf("FileAtCommit(%s): %v", path, err)
		}
		if data != nil {
			t.Errorf("FileAtCommit(%s): got %q, want nil", path, data)
		}
	}

	// Absent commit degrades the same way.
	absent := gitobj.HashObject(gitobj.TypeCommit, []byte("nope"))
	data, err := repo.FileAtCommit(ctx, absent, "README.md")
	if err != nil {
		t.Fatalf("FileAtCommit(absent commit): %v", err)
	}
	if data != nil {
		t.Errorf("FileAtCommit(absent commit): got %q, want nil", data)
	}
}
