package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// Entry is one walked path with the metadata copied onto its vertex
type Entry struct {
	Path         string
	Parent       string
	Size         int64
	LastModified float64
	LastAccessed float64
}

// Snapshot is the result of one walk: the root itself plus every descendant
// in path order.
type Snapshot struct {
	Root    Entry
	Entries []Entry
}

// Walker enumerates a directory tree. A symlinked root is resolved; symlinks
// below it are described, never followed.
type Walker struct {
	stat func(string) (int64, float64, float64, error)
}

// NewWalker creates a walker that reads metadata with lstat
func NewWalker() *Walker {
	return &Walker{stat: lstatTimes}
}

// Walk returns root and all its descendants, sorted so that every directory
// precedes its contents. Any error aborts the whole walk.
func (w *Walker) Walk(ctx context.Context, root string) (*Snapshot, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: empty root path", ErrWalk)
	}

	rootName := filepath.ToSlash(filepath.Clean(root))

	// The root itself may be a symlink; descendants never are followed.
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWalk, err)
	}
	rootEntry, err := w.entry(resolved, rootName, "")
	if err != nil {
		return nil, err
	}

	var entries []Entry
	err = filepath.WalkDir(resolved, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(resolved, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		name := path.Join(rootName, filepath.ToSlash(rel))
		e, err := w.entry(p, name, path.Dir(name))
		if err != nil {
			return err
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if errors.Is(err, ErrWalk) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrWalk, err)
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return ComparePaths(a.Path, b.Path)
	})

	return &Snapshot{Root: rootEntry, Entries: entries}, nil
}

func (w *Walker) entry(osPath, name, parent string) (Entry, error) {
	size, mtime, atime, err := w.stat(osPath)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %w", ErrWalk, err)
	}
	return Entry{
		Path:         name,
		Parent:       parent,
		Size:         size,
		LastModified: mtime,
		LastAccessed: atime,
	}, nil
}

// ComparePaths orders slash-separated paths component by component, so
// "a/b" sorts before "a-c" and a directory always sorts before its children.
func ComparePaths(a, b string) int {
	for {
		aHead, aRest, aMore := strings.Cut(a, "/")
		bHead, bRest, bMore := strings.Cut(b, "/")
		if c := strings.Compare(aHead, bHead); c != 0 {
			return c
		}
		switch {
		case !aMore && !bMore:
			return 0
		case !aMore:
			return -1
		case !bMore:
			return 1
		}
		a, b = aRest, bRest
	}
}
