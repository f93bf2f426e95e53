// Package config reads config.yaml and installs.yaml.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ParseConfigDir validates an explicit --config directory and returns it
// cleaned. A missing directory is accepted since Save creates it; a path that
// names a file, or a config.yaml/installs.yaml file directly, is rejected.
func ParseConfigDir(path string) (string, error) {
	if path == "" {
		return "", errors.New("config directory cannot be empty")
	}

	path = ExpandPath(path)
	if !filepath.IsAbs(path) {
		return "", errors.New("config directory must be absolute")
	}

	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return "", errors.New("config directory contains invalid traversal")
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return filepath.Clean(path), nil
		}
		return "", err
	}

	if !info.IsDir() {
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yaml" || ext == ".yml" {
			return "", errors.New("config path must be a directory; pass the folder containing " + filepath.Base(path))
		}
		return "", errors.New("config path is a file, not a directory")
	}

	return filepath.Clean(path), nil
}
