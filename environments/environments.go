// Package environments manages named shared project environments.
//
// A named environment is a directory under a fixed root, referenced from the
// activate tool with the @name shorthand. The root defaults to
// <user config dir>/replbox/environments and can be overridden in
// configuration. Each environment carries a small manifest describing it.
package environments

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ManifestName is the per-environment manifest file.
const ManifestName = "environment.yaml"

// Manifest describes one named environment.
type Manifest struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	CreatedAt   time.Time `yaml:"created_at"`
}

// Root resolves the environments root directory. An empty override selects
// the default location under the user config directory.
func Root(override string) (string, error) {
	if override != "" {
		return filepath.Abs(override)
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config dir: %w", err)
	}
	return filepath.Join(dir, "replbox", "environments"), nil
}

// Resolve maps a shared-environment name to its directory under root. The
// name is a single path element; anything that could escape the root is
// rejected.
func Resolve(root, name string) (string, error) {
	if root == "" {
		return "", errors.New("no environments root configured")
	}
	if name == "" {
		return "", errors.New("empty environment name")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid environment name %q", name)
	}
	return filepath.Join(root, name), nil
}

// Create makes the named environment directory and writes its manifest.
// Creating an existing environment is an error.
func Create(root, name, description string) (string, error) {
	dir, err := Resolve(root, name)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(dir); err == nil {
		return "", fmt.Errorf("environment %q already exists", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating environment dir: %w", err)
	}

	m := Manifest{Name: name, Description: description, CreatedAt: time.Now().UTC()}
	data, err := yaml.Marshal(&m)
	if err != nil {
		return "", fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestName), data, 0o644); err != nil {
		return "", fmt.Errorf("writing manifest: %w", err)
	}
	return dir, nil
}

// List returns the names of existing environments under root, sorted. A
// missing root is an empty list, not an error.
func List(root string) ([]string, error) {
	if root == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading environments root: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Load reads the manifest of the named environment. Environments created by
// hand may have no manifest; that returns a zero Manifest with the name
// filled in.
func Load(root, name string) (Manifest, error) {
	dir, err := Resolve(root, name)
	if err != nil {
		return Manifest{}, err
	}
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Manifest{Name: name}, nil
		}
		return Manifest{}, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decoding manifest: %w", err)
	}
	return m, nil
}
