package handlers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	errOutsideRoot = errors.New("path is outside the video directory")
	errNotRegular  = errors.New("not a regular file")
)

// resolveVideoPath confines a client supplied path to root. Relative paths are
// taken relative to root; symlinks may not lead out of it.
func resolveVideoPath(root, path string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("video directory: %w", err)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(absRoot, path)
	}
	path = filepath.Clean(path)
	if !within(absRoot, path) {
		return "", errOutsideRoot
	}

	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", fmt.Errorf("video directory: %w", err)
	}
	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", err
	}
	if !within(realRoot, realPath) {
		return "", errOutsideRoot
	}

	fi, err := os.Stat(realPath)
	if err != nil {
		return "", err
	}
	if !fi.Mode().IsRegular() {
		return "", errNotRegular
	}
	return realPath, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
