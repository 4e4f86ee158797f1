package gitobj

import (
	"bytes"
	"fmt"
	"sort"
)

// Tree entry mode strings, as they appear in tree objects.
const (
	ModeDir        = "40000"
	ModeFile       = "100644"
	ModeExecutable = "100755"
	ModeSymlink    = "120000"
	ModeSubmodule  = "160000"
)

// TreeEntry is one entry of a tree object.
type TreeEntry struct {
	Mode string
	Name string
	OID  ObjectID
}

// IsDir reports whether the entry is a subtree.
func (e TreeEntry) IsDir() bool {
	return e.Mode == ModeDir
}

// ParseTree decodes tree object content: repeated
// "<mode> <name>\0<20 raw SHA-1 bytes>" records until the buffer ends.
func ParseTree(content []byte) ([]TreeEntry, error) {
	var entries []TreeEntry
	rest := content
	for len(rest) > 0 {
		sp := bytes.IndexByte(rest, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("tree object: missing mode separator")
		}
		mode := string(rest[:sp])
		rest = rest[sp+1:]

		nul := bytes.IndexByte(rest, 0)
		if nul < 0 {
			return nil, fmt.Errorf("tree object: missing name terminator")
		}
		name := string(rest[:nul])
		rest = rest[nul+1:]

		if len(rest) < 20 {
			return nil, fmt.Errorf("tree object: truncated entry hash for %q", name)
		}
		entries = append(entries, TreeEntry{
			Mode: mode,
			Name: name,
			OID:  oidFromBytes(rest[:20]),
		})
		rest = rest[20:]
	}
	return entries, nil
}

// EncodeTree serializes entries into tree object content. Entries are
// written in Git's canonical order (directories sort as "name/"), so the
// output is independent of the input ordering.
func EncodeTree(entries []TreeEntry) ([]byte, error) {
	sorted := append([]TreeEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool {
		return treeSortKey(sorted[i]) < treeSortKey(sorted[j])
	})

	var buf bytes.Buffer
	for _, e := range sorted {
		raw, err := oidToBytes(e.OID)
		if err != nil {
			return nil, fmt.Errorf("tree entry %q: %w", e.Name, err)
		}
		fmt.Fprintf(&buf, "%s %s\x00", e.Mode, e.Name)
		buf.Write(raw)
	}
	return buf.Bytes(), nil
}

func treeSortKey(e TreeEntry) string {
	if e.IsDir() {
		return e.Name + "/"
	}
	return e.Name
}
