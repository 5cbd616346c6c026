package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BinaryScanner lists executable names from the system binary directory
type BinaryScanner struct {
	BinDir string
	// DesktopDir holds the .desktop entries used when filtering
	DesktopDir string
	// ExcludePrefixes drops noisy names when filtering
	ExcludePrefixes []string
}

// Scan returns binary names in directory order. With filter set, only names
// that have a matching desktop entry and no excluded prefix are kept.
func (s BinaryScanner) Scan(filter bool) ([]string, error) {
	entries, err := os.ReadDir(s.BinDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list binaries in %s: %w", s.BinDir, err)
	}

	var out []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filter && !s.desktopBacked(name) {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

func (s BinaryScanner) desktopBacked(name string) bool {
	for _, prefix := range s.ExcludePrefixes {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return false
		}
	}
	_, err := os.Stat(filepath.Join(s.DesktopDir, name+".desktop"))
	return err == nil
}
