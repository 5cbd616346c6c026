// Package index finds the files, folders and binaries that end up in the
// cache. Nothing here deduplicates or orders results beyond discovery order;
// that is left to the cache builder.
package index

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// Options controls one filesystem walk
type Options struct {
	// Roots are the watch folders, already expanded
	Roots []string
	// Exclude lists folder paths removed from the folder output by exact match
	Exclude []string
	// Extensions are the accepted file extensions, each with a leading dot
	Extensions []string
	// FollowSymlinks descends into symlinked directories
	FollowSymlinks bool
}

// Result holds the walk output in discovery order
type Result struct {
	Files   []string
	Folders []string
}

// Walker indexes watch folders
type Walker struct {
	logger *log.Logger
}

// NewWalker creates a Walker
func NewWalker(logger *log.Logger) *Walker {
	return &Walker{logger: logger}
}

type walk struct {
	ctx        context.Context
	opts       Options
	extensions map[string]struct{}
	visited    map[string]struct{}
	result     Result
	logger     *log.Logger
}

// Index walks every root top-down. Files and folders are emitted in the
// order they are visited. Directories whose path has a component starting
// with "." are pruned, the root included. The context is checked before
// each directory is read.
func (w *Walker) Index(ctx context.Context, opts Options) (Result, error) {
	state := &walk{
		ctx:        ctx,
		opts:       opts,
		extensions: make(map[string]struct{}, len(opts.Extensions)),
		logger:     w.logger,
	}
	for _, ext := range opts.Extensions {
		state.extensions[ext] = struct{}{}
	}

	for _, root := range opts.Roots {
		root = filepath.Clean(root)
		if hiddenPath(root) {
			w.logger.Debug("skipping hidden watch folder", "path", root)
			continue
		}
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			w.logger.Warn("skipping watch folder", "path", root, "err", err)
			continue
		}
		state.visited = make(map[string]struct{})
		if err := state.dir(root); err != nil {
			return Result{}, err
		}
	}

	state.result.Folders = removeExcluded(state.result.Folders, opts.Exclude)
	return state.result, nil
}

func (s *walk) dir(path string) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}

	// Followed links can form cycles
	if s.opts.FollowSymlinks {
		if real, err := filepath.EvalSymlinks(path); err == nil {
			if _, seen := s.visited[real]; seen {
				return nil
			}
			s.visited[real] = struct{}{}
		}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		s.logger.Debug("cannot read folder", "path", path, "err", err)
		return nil
	}

	var subdirs []string
	var folders []string
	for _, entry := range entries {
		name := entry.Name()
		full := filepath.Join(path, name)
		isDir, isLink := classify(entry, full)

		if isDir {
			if isHidden(name) {
				continue
			}
			folders = append(folders, full)
			if !isLink || s.opts.FollowSymlinks {
				subdirs = append(subdirs, full)
			}
			continue
		}

		if isHidden(name) {
			continue
		}
		if _, ok := s.extensions[filepath.Ext(name)]; ok {
			s.result.Files = append(s.result.Files, full)
		}
	}
	s.result.Folders = append(s.result.Folders, folders...)

	for _, sub := range subdirs {
		if err := s.dir(sub); err != nil {
			return err
		}
	}
	return nil
}

// classify reports whether the entry is a directory, following symlinks
func classify(entry fs.DirEntry, full string) (isDir, isLink bool) {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.IsDir(), false
	}
	info, err := os.Stat(full)
	if err != nil {
		return false, true
	}
	return info.IsDir(), true
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// hiddenPath reports whether a component of path starts with "."
func hiddenPath(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "." && part != ".." && isHidden(part) {
			return true
		}
	}
	return false
}

func removeExcluded(folders, exclude []string) []string {
	if len(exclude) == 0 {
		return folders
	}
	skip := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		skip[e] = struct{}{}
	}

	out := folders[:0]
	for _, f := range folders {
		if _, ok := skip[f]; !ok {
			out = append(out, f)
		}
	}
	return out
}
