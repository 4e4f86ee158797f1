package bridge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mmalmi/treegit/pkg/gitrepo"
	"github.com/mmalmi/treegit/pkg/hashtree"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt := New(Identity{Name: "Test User", Email: "test@example.com"})
	// Deterministic, strictly increasing commit timestamps.
	tick := int64(1700000000)
	rt.now = func() time.Time {
		tick += 60
		return time.Unix(tick, 0)
	}
	t.Cleanup(rt.Close)
	return rt
}

// world holds the persisted state of one repository between operations:
// the flat file map a caller would keep, rebuilt into a content-addressed
// tree before every runtime call.
type world struct {
	t     *testing.T
	mem   *hashtree.MemReader
	files map[string][]byte
	dirs  map[string]bool
}

func newWorld(t *testing.T) *world {
	t.Helper()
	return &world{
		t:     t,
		mem:   hashtree.NewMemReader(),
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

func (w *world) ref() hashtree.Ref {
	w.t.Helper()
	dirs := make([]string, 0, len(w.dirs))
	for d := range w.dirs {
		dirs = append(dirs, d)
	}
	ref, err := w.mem.Build(w.files, dirs, nil)
	if err != nil {
		w.t.Fatalf("build tree: %v", err)
	}
	return ref
}

func (w *world) write(name string, data string) {
	w.files[name] = []byte(data)
}

// applyGit replaces the .git namespace with an exported file list.
func (w *world) applyGit(files []File) {
	for k := range w.files {
		if strings.HasPrefix(k, ".git/") {
			delete(w.files, k)
		}
	}
	for d := range w.dirs {
		if d == ".git" || strings.HasPrefix(d, ".git/") {
			delete(w.dirs, d)
		}
	}
	w.apply(files)
}

// applyWorking replaces everything outside .git with an exported list.
func (w *world) applyWorking(files []File) {
	for k := range w.files {
		if !strings.HasPrefix(k, ".git/") {
			delete(w.files, k)
		}
	}
	for d := range w.dirs {
		if d != ".git" && !strings.HasPrefix(d, ".git/") {
			delete(w.dirs, d)
		}
	}
	w.apply(files)
}

func (w *world) apply(files []File) {
	for _, f := range files {
		if f.IsDir {
			w.dirs[f.Name] = true
			continue
		}
		w.files[f.Name] = f.Data
	}
}

func (w *world) repo() *gitrepo.Repo {
	return gitrepo.Open(w.mem, w.ref())
}

func mustInit(t *testing.T, rt *Runtime, w *world) {
	t.Helper()
	res, err := rt.Init(context.Background())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	w.applyGit(res.GitFiles)
}

func mustCommit(t *testing.T, rt *Runtime, w *world, message string) string {
	t.Helper()
	res, err := rt.Commit(context.Background(), w.mem, w.ref(), message)
	if err != nil {
		t.Fatalf("Commit(%q): %v", message, err)
	}
	if res.OID == "" {
		t.Fatalf("Commit(%q): empty oid", message)
	}
	w.applyGit(res.GitFiles)
	return res.OID
}

func mustCheckout(t *testing.T, rt *Runtime, w *world, target string) {
	t.Helper()
	res, err := rt.Checkout(context.Background(), w.mem, w.ref(), target)
	if err != nil {
		t.Fatalf("Checkout(%q): %v", target, err)
	}
	w.applyGit(res.GitFiles)
	w.applyWorking(res.WorkingFiles)
}

func mustBranch(t *testing.T, rt *Runtime, w *world, name string) {
	t.Helper()
	res, err := rt.CreateBranch(context.Background(), w.mem, w.ref(), name)
	if err != nil {
		t.Fatalf("CreateBranch(%q): %v", name, err)
	}
	w.applyGit(res.GitFiles)
}

func TestInitCommitLog(t *testing.T) {
	rt := newTestRuntime(t)
	w := newWorld(t)
	ctx := context.Background()

	mustInit(t, rt, w)
	if _, ok := w.files[".git/HEAD"]; !ok {
		t.Fatal("Init: no .git/HEAD persisted")
	}

	w.write("file.txt", "hello\n")
	oid := mustCommit(t, rt, w, "initial commit")

	// The persisted repository reads back through the native engine.
	repo := w.repo()
	head, err := repo.Head(ctx)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if string(head) != oid {
		t.Errorf("Head: got %s, want %s", head, oid)
	}

	log, err := repo.Log(ctx, gitrepo.LogOptions{})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(log) != 1 || log[0].Message != "initial commit" {
		t.Fatalf("Log: got %v", log)
	}
	if log[0].Author != "Test User" || log[0].Email != "test@example.com" {
		t.Errorf("identity: got %q <%q>", log[0].Author, log[0].Email)
	}

	info, err := repo.Branches(ctx)
	if err != nil {
		t.Fatalf("Branches: %v", err)
	}
	if info.Current != "master" {
		t.Errorf("Current: got %q", info.Current)
	}
}

func TestCreateBranchAndCheckout(t *testing.T) {
	rt := newTestRuntime(t)
	w := newWorld(t)
	ctx := context.Background()

	mustInit(t, rt, w)
	w.write("file.txt", "v1\n")
	mustCommit(t, rt, w, "first")
	mustBranch(t, rt, w, "feature")

	info, err := w.repo().Branches(ctx)
	if err != nil {
		t.Fatalf("Branches: %v", err)
	}
	if len(info.Branches) != 2 || info.Current != "master" {
		t.Fatalf("Branches: got %+v", info)
	}

	mustCheckout(t, rt, w, "feature")
	info, err = w.repo().Branches(ctx)
	if err != nil {
		t.Fatalf("Branches: %v", err)
	}
	if info.Current != "feature" {
		t.Errorf("Current after checkout: got %q", info.Current)
	}
	if string(w.files["file.txt"]) != "v1\n" {
		t.Errorf("working tree after checkout: %q", w.files["file.txt"])
	}
}

func TestStatus(t *testing.T) {
	rt := newTestRuntime(t)
	w := newWorld(t)
	ctx := context.Background()

	mustInit(t, rt, w)
	// No index yet: status degrades to empty rather than misreporting.
	status, err := rt.Status(ctx, w.mem, w.ref())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.HasChanges {
		t.Errorf("Status before first commit: %+v", status)
	}

	w.write("file.txt", "v1\n")
	mustCommit(t, rt, w, "first")

	status, err = rt.Status(ctx, w.mem, w.ref())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.HasChanges {
		t.Errorf("Status on clean tree: %+v", status)
	}

	w.write("new.txt", "untracked\n")
	status, err = rt.Status(ctx, w.mem, w.ref())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(status.Untracked) != 1 || status.Untracked[0].Path != "new.txt" {
		t.Errorf("Untracked: got %+v", status.Untracked)
	}
	if !status.HasChanges {
		t.Error("HasChanges: got false")
	}
}

func TestMergeFastForward(t *testing.T) {
	rt := newTestRuntime(t)
	w := newWorld(t)
	ctx := context.Background()

	mustInit(t, rt, w)
	w.write("file.txt", "base\n")
	mustCommit(t, rt, w, "base")
	mustBranch(t, rt, w, "feature")
	mustCheckout(t, rt, w, "feature")
	w.write("file.txt", "feature v1\n")
	mustCommit(t, rt, w, "feature work 1")
	w.write("file.txt", "feature v2\n")
	tip := mustCommit(t, rt, w, "feature work 2")

	check, err := rt.CanMerge(ctx, w.mem, w.ref(), "master", "feature")
	if err != nil {
		t.Fatalf("CanMerge: %v", err)
	}
	if !check.CanMerge || !check.IsFastForward || len(check.Conflicts) != 0 {
		t.Fatalf("CanMerge: got %+v", check)
	}

	res, err := rt.Merge(ctx, w.mem, w.ref(), "master", "feature", "merge feature")
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !res.Success || !res.IsFastForward || res.Err != nil {
		t.Fatalf("Merge: got %+v", res)
	}
	w.applyGit(res.GitFiles)
	w.applyWorking(res.WorkingFiles)

	masterTip, err := w.repo().BranchTip(ctx, "master")
	if err != nil {
		t.Fatalf("BranchTip: %v", err)
	}
	if string(masterTip) != tip {
		t.Errorf("master after ff merge: got %s, want %s", masterTip, tip)
	}
	if string(w.files["file.txt"]) != "feature v2\n" {
		t.Errorf("working tree after merge: %q", w.files["file.txt"])
	}
}

func TestMergeAlreadyUpToDate(t *testing.T) {
	rt := newTestRuntime(t)
	w := newWorld(t)
	ctx := context.Background()

	mustInit(t, rt, w)
	w.write("file.txt", "base\n")
	mustCommit(t, rt, w, "base")
	mustBranch(t, rt, w, "feature")
	w.write("file.txt", "ahead\n")
	mustCommit(t, rt, w, "master ahead")

	res, err := rt.Merge(ctx, w.mem, w.ref(), "master", "feature", "noop")
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !res.Success || !res.AlreadyUpToDate {
		t.Errorf("Merge: got %+v", res)
	}
}

func TestMergeConflict(t *testing.T) {
	rt := newTestRuntime(t)
	w := newWorld(t)
	ctx := context.Background()

	mustInit(t, rt, w)
	w.write("file.txt", "base\n")
	mustCommit(t, rt, w, "base")
	mustBranch(t, rt, w, "feature")
	w.write("file.txt", "master version\n")
	masterTip := mustCommit(t, rt, w, "master change")
	mustCheckout(t, rt, w, "feature")
	w.write("file.txt", "feature version\n")
	mustCommit(t, rt, w, "feature change")

	check, err := rt.CanMerge(ctx, w.mem, w.ref(), "master", "feature")
	if err != nil {
		t.Fatalf("CanMerge: %v", err)
	}
	if check.CanMerge || len(check.Conflicts) != 1 || check.Conflicts[0] != "file.txt" {
		t.Fatalf("CanMerge: got %+v", check)
	}

	res, err := rt.Merge(ctx, w.mem, w.ref(), "master", "feature", "merge feature")
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if res.Success {
		t.Fatal("conflicting merge reported success")
	}
	if !errors.Is(res.Err, ErrMergeConflict) {
		t.Errorf("Err: got %v", res.Err)
	}
	if len(res.Conflicts) != 1 || res.Conflicts[0] != "file.txt" {
		t.Errorf("Conflicts: got %v", res.Conflicts)
	}
	if res.GitFiles != nil || res.WorkingFiles != nil {
		t.Error("conflicting merge exported files")
	}

	// Nothing moved.
	got, err := w.repo().BranchTip(ctx, "master")
	if err != nil {
		t.Fatalf("BranchTip: %v", err)
	}
	if string(got) != masterTip {
		t.Errorf("master moved: got %s, want %s", got, masterTip)
	}
}

func TestMergeThreeWay(t *testing.T) {
	rt := newTestRuntime(t)
	w := newWorld(t)
	ctx := context.Background()

	mustInit(t, rt, w)
	w.write("a.txt", "a\n")
	mustCommit(t, rt, w, "base")
	mustBranch(t, rt, w, "feature")
	w.write("b.txt", "b\n")
	mustCommit(t, rt, w, "add b")
	mustCheckout(t, rt, w, "feature")
	w.write("c.txt", "c\n")
	mustCommit(t, rt, w, "add c")
	mustCheckout(t, rt, w, "master")

	res, err := rt.Merge(ctx, w.mem, w.ref(), "master", "feature", "merge feature")
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !res.Success || res.IsFastForward || res.Err != nil {
		t.Fatalf("Merge: got %+v", res)
	}
	w.applyGit(res.GitFiles)
	w.applyWorking(res.WorkingFiles)

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		if _, ok := w.files[name]; !ok {
			t.Errorf("working tree missing %s after merge", name)
		}
	}

	repo := w.repo()
	log, err := repo.Log(ctx, gitrepo.LogOptions{})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(log) != 4 {
		t.Fatalf("Log: got %d entries", len(log))
	}
	if len(log[0].Parents) != 2 {
		t.Errorf("merge commit parents: got %v", log[0].Parents)
	}
	if log[0].Message != "merge feature" {
		t.Errorf("merge message: got %q", log[0].Message)
	}

	data, err := repo.FileAtCommit(ctx, log[0].OID, "c.txt")
	if err != nil {
		t.Fatalf("FileAtCommit: %v", err)
	}
	if string(data) != "c\n" {
		t.Errorf("c.txt at merge commit: %q", data)
	}
}

func TestDiffBranches(t *testing.T) {
	rt := newTestRuntime(t)
	w := newWorld(t)
	ctx := context.Background()

	mustInit(t, rt, w)
	w.write("a.txt", "a\n")
	mustCommit(t, rt, w, "base")
	mustBranch(t, rt, w, "feature")
	mustCheckout(t, rt, w, "feature")
	w.write("c.txt", "one\ntwo\n")
	mustCommit(t, rt, w, "add c")

	diff, err := rt.DiffBranches(ctx, w.mem, w.ref(), "master", "feature")
	if err != nil {
		t.Fatalf("DiffBranches: %v", err)
	}
	if !diff.CanFastForward {
		t.Error("CanFastForward: got false")
	}
	if diff.Additions != 2 || diff.Deletions != 0 {
		t.Errorf("stats: +%d -%d", diff.Additions, diff.Deletions)
	}
	if len(diff.Files) != 1 || diff.Files[0] != "c.txt" {
		t.Errorf("Files: got %v", diff.Files)
	}
	if !strings.Contains(diff.Text, "c.txt") {
		t.Errorf("Text does not mention c.txt:\n%s", diff.Text)
	}
}

func TestClosedRuntime(t *testing.T) {
	rt := New(Identity{Name: "x", Email: "x@example.com"})
	rt.Close()
	if _, err := rt.Init(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("got %v, want ErrClosed", err)
	}
}

func TestContextCanceledBeforeRun(t *testing.T) {
	rt := newTestRuntime(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// With the queue blocked the canceled context wins the select.
	block := make(chan struct{})
	go rt.do(context.Background(), func() { <-block })
	time.Sleep(10 * time.Millisecond)
	if _, err := rt.Init(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	close(block)
}
