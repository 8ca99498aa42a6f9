package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// SystemRoot is the system-scope profile directory.
const SystemRoot = "/etc/restaround"

// Locator finds profile directories by name, searching an ordered list of
// root directories, user scope before system scope.
type Locator struct {
	roots []string
}

// NewLocator creates a locator for the given roots in precedence order.
func NewLocator(roots ...string) *Locator {
	return &Locator{roots: roots}
}

// DefaultRoots returns the standard search roots: ~/.config/restaround,
// then /etc/restaround.
func DefaultRoots() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("home directory: %w", err)
	}
	return []string{filepath.Join(home, ".config", "restaround"), SystemRoot}, nil
}

// Find returns the directory of the named profile, first match wins.
func (l *Locator) Find(name string) (string, error) {
	for _, root := range l.roots {
		dir := filepath.Join(root, name)
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrProfileNotFound, name)
}

// Info describes one available profile.
type Info struct {
	Name string
	Dir  string
	Root string
}

// List returns all profiles available across the roots, sorted by name.
// When both roots contain a profile of the same name, only the one that
// Find would return is listed.
func (l *Locator) List() ([]Info, error) {
	seen := make(map[string]bool)
	var result []Info
	for _, root := range l.roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("listing %s: %w", root, err)
		}
		for _, e := range entries {
			if !e.IsDir() || seen[e.Name()] {
				continue
			}
			seen[e.Name()] = true
			result = append(result, Info{
				Name: e.Name(),
				Dir:  filepath.Join(root, e.Name()),
				Root: root,
			})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}
