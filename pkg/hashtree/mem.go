package hashtree

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemReader is an in-memory content-addressed tree. Ids are the SHA-256 of
// the stored bytes; directories are addressed by a deterministic listing
// serialization. It doubles as the write side for tests and for persisting
// bridge output without a real tree backend.
type MemReader struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	dirs  map[string][]Entry
}

// NewMemReader returns an empty in-memory tree.
func NewMemReader() *MemReader {
	return &MemReader{
		blobs: make(map[string][]byte),
		dirs:  make(map[string][]Entry),
	}
}

// PutFile stores file content and returns its id. When key is non-nil the
// content is sealed first, so the id addresses the ciphertext.
func (m *MemReader) PutFile(data, key []byte) (string, error) {
	stored := data
	if key != nil {
		sealed, err := SealLeaf(key, data)
		if err != nil {
			return "", err
		}
		stored = sealed
	}
	sum := sha256.Sum256(stored)
	id := hex.EncodeToString(sum[:])

	m.mu.Lock()
	m.blobs[id] = append([]byte(nil), stored...)
	m.mu.Unlock()
	return id, nil
}

// PutDir stores a directory listing and returns its id. Entries are sorted
// by name so the id is independent of insertion order.
func (m *MemReader) PutDir(entries []Entry) string {
	sorted := append([]Entry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var b strings.Builder
	for _, e := range sorted {
		kind := "f"
		if e.IsDir {
			kind = "d"
		}
		fmt.Fprintf(&b, "%s %s %s\n", kind, e.ID, e.Name)
	}
	sum := sha256.Sum256([]byte(b.String()))
	id := hex.EncodeToString(sum[:])

	m.mu.Lock()
	m.dirs[id] = sorted
	m.mu.Unlock()
	return id
}

// Build constructs a nested tree from flat slash-separated file paths plus
// any explicitly empty directories, and returns a Ref for the root. When
// key is non-nil, file leaves are sealed and the Ref carries the key.
func (m *MemReader) Build(files map[string][]byte, emptyDirs []string, key []byte) (Ref, error) {
	dirSet := make(map[string]bool)
	for _, d := range emptyDirs {
		dirSet[strings.Trim(d, "/")] = true
	}
	rootID, err := m.buildDir(files, dirSet, "", key)
	if err != nil {
		return Ref{}, err
	}
	return Ref{ID: rootID, Key: key}, nil
}

// buildDir builds the directory at prefix ("" is the root) bottom-up.
func (m *MemReader) buildDir(files map[string][]byte, dirSet map[string]bool, prefix string, key []byte) (string, error) {
	childFiles := make(map[string][]byte)
	childDirs := make(map[string]bool)

	rel := func(p string) (string, bool) {
		if prefix == "" {
			return p, true
		}
		if !strings.HasPrefix(p, prefix+"/") {
			return "", false
		}
		return p[len(prefix)+1:], true
	}

	for p, data := range files {
		r, ok := rel(p)
		if !ok {
			continue
		}
		if slash := strings.IndexByte(r, '/'); slash >= 0 {
			childDirs[r[:slash]] = true
		} else {
			childFiles[r] = data
		}
	}
	for d := range dirSet {
		r, ok := rel(d)
		if !ok || r == "" {
			continue
		}
		if slash := strings.IndexByte(r, '/'); slash >= 0 {
			childDirs[r[:slash]] = true
		} else {
			childDirs[r] = true
		}
	}

	var entries []Entry
	for name, data := range childFiles {
		id, err := m.PutFile(data, key)
		if err != nil {
			return "", fmt.Errorf("build %q: %w", prefix+"/"+name, err)
		}
		entries = append(entries, Entry{Name: name, ID: id})
	}
	for name := range childDirs {
		if _, isFile := childFiles[name]; isFile {
			return "", fmt.Errorf("build: %q is both file and directory", name)
		}
		childPrefix := name
		if prefix != "" {
			childPrefix = prefix + "/" + name
		}
		id, err := m.buildDir(files, dirSet, childPrefix, key)
		if err != nil {
			return "", err
		}
		entries = append(entries, Entry{Name: name, ID: id, IsDir: true})
	}

	return m.PutDir(entries), nil
}

// ResolvePath implements Reader.
func (m *MemReader) ResolvePath(ctx context.Context, ref Ref, path string) (Node, error) {
	if err := ctx.Err(); err != nil {
		return Node{}, err
	}
	path = strings.Trim(path, "/")
	if path == "" || path == "." {
		return Node{ID: ref.ID, IsDir: true}, nil
	}

	cur := Node{ID: ref.ID, IsDir: true}
	for _, seg := range strings.Split(path, "/") {
		if !cur.IsDir {
			return Node{}, ErrNotFound
		}
		entries, err := m.ListDirectory(ctx, ref, cur.ID)
		if err != nil {
			return Node{}, err
		}
		found := false
		for _, e := range entries {
			if e.Name == seg {
				cur = Node{ID: e.ID, IsDir: e.IsDir}
				found = true
				break
			}
		}
		if !found {
			return Node{}, ErrNotFound
		}
	}
	return cur, nil
}

// ListDirectory implements Reader.
func (m *MemReader) ListDirectory(ctx context.Context, ref Ref, id string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	entries, ok := m.dirs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return append([]Entry(nil), entries...), nil
}

// ReadFile implements Reader.
func (m *MemReader) ReadFile(ctx context.Context, ref Ref, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	data, ok := m.blobs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if ref.Key != nil {
		return OpenLeaf(ref.Key, data)
	}
	return append([]byte(nil), data...), nil
}
