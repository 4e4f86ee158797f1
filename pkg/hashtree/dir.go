package hashtree

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// DirReader exposes an OS directory through the Reader interface, for the
// CLI and for working against exported trees. Node ids are root-relative
// slash paths; they are opaque to callers, so path-based addressing is fine
// for a local adapter even though the real tree uses content ids.
type DirReader struct {
	root string
}

// NewDirReader returns a Reader over the given directory.
func NewDirReader(root string) *DirReader {
	return &DirReader{root: filepath.Clean(root)}
}

// Root returns a Ref for the directory root. The optional key enables
// encrypted-leaf reads for trees exported in sealed form.
func (d *DirReader) Root(key []byte) Ref {
	return Ref{ID: ".", Key: key}
}

func (d *DirReader) fsPath(id string) (string, bool) {
	id = strings.Trim(id, "/")
	if id == "" {
		id = "."
	}
	clean := filepath.Clean(filepath.FromSlash(id))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.Join(d.root, clean), true
}

// ResolvePath implements Reader.
func (d *DirReader) ResolvePath(ctx context.Context, ref Ref, path string) (Node, error) {
	if err := ctx.Err(); err != nil {
		return Node{}, err
	}
	id := strings.Trim(strings.Trim(ref.ID, "/")+"/"+strings.Trim(path, "/"), "/")
	fsPath, ok := d.fsPath(id)
	if !ok {
		return Node{}, ErrNotFound
	}
	info, err := os.Stat(fsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Node{}, ErrNotFound
		}
		return Node{}, err
	}
	if id == "" {
		id = "."
	}
	return Node{ID: id, IsDir: info.IsDir()}, nil
}

// ListDirectory implements Reader.
func (d *DirReader) ListDirectory(ctx context.Context, ref Ref, id string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fsPath, ok := d.fsPath(id)
	if !ok {
		return nil, ErrNotFound
	}
	dirents, err := os.ReadDir(fsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	base := strings.Trim(id, "/")
	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		child := de.Name()
		if base != "" && base != "." {
			child = base + "/" + de.Name()
		}
		entries = append(entries, Entry{Name: de.Name(), ID: child, IsDir: de.IsDir()})
	}
	return entries, nil
}

// ReadFile implements Reader.
func (d *DirReader) ReadFile(ctx context.Context, ref Ref, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fsPath, ok := d.fsPath(id)
	if !ok {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(fsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if ref.Key != nil {
		return OpenLeaf(ref.Key, data)
	}
	return data, nil
}
