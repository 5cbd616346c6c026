// Package cache builds and persists the ordered item list shown in the
// main menu. The cache file holds one label per line and nothing else;
// provenance tags live in a sidecar file next to it.
package cache

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/edi9999/dmenu-extended/pkg/item"
)

var (
	// ErrUnavailable means the cache could not be read even after a rebuild
	ErrUnavailable = errors.New("cache unavailable")
	// ErrEncoding means a label holds bytes outside printable text
	ErrEncoding = errors.New("label is not printable text")
)

// SaveStatus is the outcome of Store.Save
type SaveStatus int

const (
	SaveOK SaveStatus = iota
	SavePartial
	SaveFailed
)

func (s SaveStatus) String() string {
	switch s {
	case SaveOK:
		return "ok"
	case SavePartial:
		return "partial"
	default:
		return "failed"
	}
}

// SaveResult reports what was persisted
type SaveResult struct {
	Status SaveStatus
	// Excluded lists labels dropped because they were not printable
	Excluded []string
}

// Store reads and writes the cache file
type Store struct {
	path   string
	logger *log.Logger
}

// NewStore creates a store for the cache file at path
func NewStore(path string, logger *log.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Path returns the cache file path
func (s *Store) Path() string {
	return s.path
}

// TagsPath returns the provenance sidecar path
func (s *Store) TagsPath() string {
	return s.path + ".tags"
}

// Printable reports whether label is valid UTF-8 made of printable runes.
// Tabs are allowed.
func Printable(label string) bool {
	if !utf8.ValidString(label) {
		return false
	}
	for _, r := range label {
		if r != '\t' && !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// Save writes items, one label per line. When the write fails the labels
// that are not printable are dropped and the write is retried once with
// the rest. If no such label exists the failure is returned as is.
func (s *Store) Save(items []item.Item) (SaveResult, error) {
	err := s.write(items)
	if err == nil {
		return SaveResult{Status: SaveOK}, nil
	}

	kept := make([]item.Item, 0, len(items))
	var excluded []string
	for _, it := range items {
		if Printable(it.Label) {
			kept = append(kept, it)
			continue
		}
		excluded = append(excluded, it.Label)
	}

	if len(excluded) == 0 {
		return SaveResult{Status: SaveFailed}, fmt.Errorf("failed to write cache: %w", err)
	}

	for _, label := range excluded {
		s.logger.Warn("excluding item from cache", "item", fmt.Sprintf("%q", label))
	}

	if err := s.write(kept); err != nil {
		return SaveResult{Status: SaveFailed, Excluded: excluded}, fmt.Errorf("failed to write cache: %w", err)
	}
	return SaveResult{Status: SavePartial, Excluded: excluded}, nil
}

// write replaces the cache and then the sidecar. A sidecar that cannot be
// written is removed so stale tags are never paired with a new cache.
func (s *Store) write(items []item.Item) error {
	labels := make([]string, len(items))
	tags := make([]string, len(items))
	for i, it := range items {
		if !Printable(it.Label) {
			return fmt.Errorf("%w: %q", ErrEncoding, it.Label)
		}
		labels[i] = it.Label
		tags[i] = it.Tag()
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	if err := writeLines(s.path, labels); err != nil {
		return err
	}
	if err := writeLines(s.TagsPath(), tags); err != nil {
		s.logger.Warn("failed to write cache tags", "path", s.TagsPath(), "err", err)
		if err := os.Remove(s.TagsPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("failed to remove cache tags", "path", s.TagsPath(), "err", err)
		}
	}
	return nil
}

// writeLines writes to a temporary file in the same folder and renames it
// into place
func writeLines(path string, lines []string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		w.WriteString(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads the cache. It reports false when the file does not exist or
// cannot be read, which callers treat as a request to rebuild.
func (s *Store) Load() ([]item.Item, bool) {
	labels, err := readLines(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("cannot read cache", "path", s.path, "err", err)
		}
		return nil, false
	}

	items := make([]item.Item, len(labels))
	for i, label := range labels {
		items[i] = item.Item{Label: label}
	}

	tags, err := readLines(s.TagsPath())
	if err != nil || len(tags) != len(labels) {
		s.logger.Debug("cache tags missing or out of date", "path", s.TagsPath())
		return items, true
	}
	for i, tag := range tags {
		items[i].Kind, items[i].PluginID = item.ParseTag(tag)
	}
	return items, true
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []string{}, nil
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n"), nil
}

// EnsureLoaded returns the cache, calling rebuild once if it is absent
func (s *Store) EnsureLoaded(ctx context.Context, rebuild func(context.Context) error) ([]item.Item, error) {
	if items, ok := s.Load(); ok {
		return items, nil
	}

	s.logger.Info("cache not found, rebuilding", "path", s.path)
	if err := rebuild(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	items, ok := s.Load()
	if !ok {
		return nil, ErrUnavailable
	}
	return items, nil
}
