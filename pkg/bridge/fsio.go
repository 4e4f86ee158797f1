package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/mmalmi/treegit/pkg/hashtree"
)

// importTree copies a subtree of the virtual tree into the scratch
// filesystem. src "" copies the whole tree; src ".git" copies history
// only, which is all read-only operations need.
func importTree(ctx context.Context, tree hashtree.Reader, ref hashtree.Ref, src string, fs billy.Filesystem) error {
	src = strings.Trim(src, "/")
	node, err := tree.ResolvePath(ctx, ref, src)
	if err != nil {
		return fmt.Errorf("import %q: %w", src, err)
	}
	if !node.IsDir {
		return fmt.Errorf("import %q: not a directory", src)
	}
	return importDir(ctx, tree, ref, node.ID, src, fs)
}

func importDir(ctx context.Context, tree hashtree.Reader, ref hashtree.Ref, id, dst string, fs billy.Filesystem) error {
	if dst != "" {
		if err := fs.MkdirAll(dst, 0o755); err != nil {
			return fmt.Errorf("import mkdir %q: %w", dst, err)
		}
	}
	entries, err := tree.ListDirectory(ctx, ref, id)
	if err != nil {
		return fmt.Errorf("import list %q: %w", dst, err)
	}
	for _, e := range entries {
		child := e.Name
		if dst != "" {
			child = dst + "/" + e.Name
		}
		if e.IsDir {
			if err := importDir(ctx, tree, ref, e.ID, child, fs); err != nil {
				return err
			}
			continue
		}
		data, err := tree.ReadFile(ctx, ref, e.ID)
		if err != nil {
			return fmt.Errorf("import read %q: %w", child, err)
		}
		if err := util.WriteFile(fs, child, data, 0o644); err != nil {
			return fmt.Errorf("import write %q: %w", child, err)
		}
	}
	return nil
}

// exportTree reads a subtree of the scratch filesystem back out as a flat
// file list, directories included, sorted by name so output is stable.
// skip names directly under src are left out (".git" when exporting the
// working tree).
func exportTree(fs billy.Filesystem, src string, skip ...string) ([]File, error) {
	skipSet := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipSet[s] = true
	}
	var files []File
	if err := exportDir(fs, src, skipSet, src == "", &files); err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func exportDir(fs billy.Filesystem, dir string, skipTop map[string]bool, top bool, out *[]File) error {
	readDirPath := dir
	if readDirPath == "" {
		readDirPath = "/"
	}
	entries, err := fs.ReadDir(readDirPath)
	if err != nil {
		return fmt.Errorf("export list %q: %w", dir, err)
	}
	for _, info := range entries {
		name := info.Name()
		if top && skipTop[name] {
			continue
		}
		child := name
		if dir != "" {
			child = dir + "/" + name
		}
		if info.IsDir() {
			*out = append(*out, File{Name: child, IsDir: true})
			if err := exportDir(fs, child, skipTop, false, out); err != nil {
				return err
			}
			continue
		}
		data, err := readBillyFile(fs, child)
		if err != nil {
			return fmt.Errorf("export read %q: %w", child, err)
		}
		*out = append(*out, File{Name: child, Data: data})
	}
	return nil
}

func readBillyFile(fs billy.Filesystem, name string) ([]byte, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// pathExists reports whether a path exists in the virtual tree.
func pathExists(ctx context.Context, tree hashtree.Reader, ref hashtree.Ref, path string) (bool, error) {
	_, err := tree.ResolvePath(ctx, ref, path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, hashtree.ErrNotFound) {
		return false, nil
	}
	return false, err
}
