package gitobj

import (
	"reflect"
	"testing"
)

func oidOf(t *testing.T, seed string) ObjectID {
	t.Helper()
	return HashObject(TypeBlob, []byte(seed))
}

func TestTreeRoundTrip(t *testing.T) {
	entries := []TreeEntry{
		{Mode: ModeFile, Name: "README.md", OID: oidOf(t, "readme")},
		{Mode: ModeDir, Name: "src", OID: oidOf(t, "src")},
		{Mode: ModeExecutable, Name: "run.sh", OID: oidOf(t, "run")},
		{Mode: ModeSymlink, Name: "link", OID: oidOf(t, "link")},
	}

	data, err := EncodeTree(entries)
	if err != nil {
		t.Fatalf("EncodeTree: %v", err)
	}
	parsed, err := ParseTree(data)
	if err != nil {
		t.Fatalf("ParseTree: %v", err)
	}
	if len(parsed) != len(entries) {
		t.Fatalf("entry count: got %d, want %d", len(parsed), len(entries))
	}

	byName := make(map[string]TreeEntry)
	for _, e := range parsed {
		byName[e.Name] = e
	}
	for _, want := range entries {
		got, ok := byName[want.Name]
		if !ok {
			t.Errorf("missing entry %q", want.Name)
			continue
		}
		if got != want {
			t.Errorf("entry %q: got %+v, want %+v", want.Name, got, want)
		}
	}
}

func TestTreeRoundTripOrderIndependent(t *testing.T) {
	a := []TreeEntry{
		{Mode: ModeFile, Name: "b.txt", OID: oidOf(t, "b")},
		{Mode: ModeDir, Name: "a", OID: oidOf(t, "a")},
		{Mode: ModeFile, Name: "c.txt", OID: oidOf(t, "c")},
	}
	b := []TreeEntry{a[2], a[0], a[1]}

	dataA, err := EncodeTree(a)
	if err != nil {
		t.Fatalf("EncodeTree(a): %v", err)
	}
	dataB, err := EncodeTree(b)
	if err != nil {
		t.Fatalf("EncodeTree(b): %v", err)
	}
	if !reflect.DeepEqual(dataA, dataB) {
		t.Error("EncodeTree depends on input order")
	}
}

func TestTreeEncodeGitSortOrder(t *testing.T) {
	// Directories sort as "name/": "foo.txt" ('.' = 0x2e) precedes the
	// directory "foo" ('/' = 0x2f).
	entries := []TreeEntry{
		{Mode: ModeDir, Name: "foo", OID: oidOf(t, "dir")},
		{Mode: ModeFile, Name: "foo.txt", OID: oidOf(t, "file")},
	}
	data, err := EncodeTree(entries)
	if err != nil {
		t.Fatalf("EncodeTree: %v", err)
	}
	parsed, err := ParseTree(data)
	if err != nil {
		t.Fatalf("ParseTree: %v", err)
	}
	if parsed[0].Name != "foo.txt" || parsed[1].Name != "foo" {
		t.Errorf("order: got [%s %s], want [foo.txt foo]", parsed[0].Name, parsed[1].Name)
	}
}

func TestParseTreeTruncated(t *testing.T) {
	data, err := EncodeTree([]TreeEntry{{Mode: ModeFile, Name: "a.txt", OID: oidOf(t, "a")}})
	if err != nil {
		t.Fatalf("EncodeTree: %v", err)
	}
	for _, cut := range []int{1, 5, len(data) - 1} {
		if _, err := ParseTree(data[:len(data)-cut]); err == nil {
			t.Errorf("truncating %d bytes: expected error", cut)
		}
	}
}

func TestParseTreeEmpty(t *testing.T) {
	entries, err := ParseTree(nil)
	if err != nil {
		t.Fatalf("ParseTree(nil): %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
}
