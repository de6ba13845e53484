// Package files wraps the workspace filesystem lookups the UI drives:
// directory listings, file reads, and home resolution.
package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Entry is one directory listing item.
type Entry struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	IsDir    bool   `json:"is_dir"`
	IsHidden bool   `json:"is_hidden"`
}

// List returns path's immediate entries, directories first, each group
// ordered by case-insensitive name.
func List(path string) ([]Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("files: stat %q: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("files: %q is not a directory", path)
	}

	dirEntries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("files: read %q: %w", path, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		entries = append(entries, Entry{
			Name:     name,
			Path:     filepath.Join(path, name),
			IsDir:    de.IsDir(),
			IsHidden: strings.HasPrefix(name, "."),
		})
	}
	sortEntries(entries)
	return entries, nil
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
}

// Read returns the contents of a regular file.
func Read(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("files: stat %q: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("files: %q is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("files: read %q: %w", path, err)
	}
	return string(data), nil
}

// Home resolves the user's home directory.
func Home() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("files: resolve home directory: %w", err)
	}
	return home, nil
}
