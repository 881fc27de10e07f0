// Package project handles the optional kooix.toml manifest found next to
// an entry file.
package project

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ManifestFile is the canonical manifest name.
const ManifestFile = "kooix.toml"

// Manifest is the parsed kooix.toml.
type Manifest struct {
	Project ProjectSection `toml:"project"`

	// Dir is the directory the manifest was loaded from.
	Dir string `toml:"-"`
}

// ProjectSection is the [project] table.
type ProjectSection struct {
	Entry          string   `toml:"entry"`
	StrictWarnings bool     `toml:"strict_warnings"`
	ImportRoots    []string `toml:"import_roots"`
}

// Find walks up from dir looking for kooix.toml; returns false when no
// manifest exists.
func Find(dir string) (string, bool) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(current, ManifestFile)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

// Load parses a manifest file.
func Load(path string) (*Manifest, error) {
	var manifest Manifest
	if _, err := toml.DecodeFile(path, &manifest); err != nil {
		return nil, err
	}
	manifest.Dir = filepath.Dir(path)
	return &manifest, nil
}

// EntryPath resolves the manifest's entry relative to its directory.
func (m *Manifest) EntryPath() (string, error) {
	if m.Project.Entry == "" {
		return "", errors.New("manifest has no project.entry")
	}
	if filepath.IsAbs(m.Project.Entry) {
		return m.Project.Entry, nil
	}
	return filepath.Join(m.Dir, m.Project.Entry), nil
}
