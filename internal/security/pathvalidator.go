package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// PathValidator refuses removals that would hit critical system paths
type PathValidator struct {
	protectedPaths []string
}

// NewPathValidator creates a PathValidator guarding the given paths
func NewPathValidator(protected ...string) *PathValidator {
	pv := &PathValidator{}
	for _, p := range protected {
		pv.AddProtectedPath(p)
	}
	return pv
}

// ValidatePathForRemoval checks a path before it is removed or replaced.
// Symlinks in the path are resolved first so a link cannot redirect the
// removal into a protected tree.
func (pv *PathValidator) ValidatePathForRemoval(path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("path must be absolute: %s", path)
	}

	if filepath.Clean(path) != path {
		return fmt.Errorf("path contains suspicious elements: %s", path)
	}

	resolved, err := filepath.EvalSymlinks(path)
	switch {
	case os.IsNotExist(err):
		resolved = path
	case err != nil:
		return fmt.Errorf("failed to resolve symlinks: %w", err)
	}

	for _, candidate := range []string{path, filepath.Clean(resolved)} {
		if err := pv.checkProtectedPaths(candidate); err != nil {
			return err
		}
	}
	return nil
}

// checkProtectedPaths rejects a protected path itself and its direct children
func (pv *PathValidator) checkProtectedPaths(cleanPath string) error {
	for _, protected := range pv.protectedPaths {
		if cleanPath == protected {
			return fmt.Errorf("refusing to remove protected path: %s", cleanPath)
		}

		prefix := protected
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		if strings.HasPrefix(cleanPath, prefix) {
			rel := strings.TrimPrefix(cleanPath, prefix)
			if !strings.Contains(rel, "/") {
				return fmt.Errorf("refusing to remove critical system path: %s", cleanPath)
			}
		}
	}

	return nil
}

// AddProtectedPath adds a custom protected path
func (pv *PathValidator) AddProtectedPath(path string) {
	pv.protectedPaths = append(pv.protectedPaths, filepath.Clean(path))
}

// ValidateGlobPattern validates a doublestar exclusion pattern
func ValidateGlobPattern(pattern string) error {
	if strings.Contains(pattern, "..") {
		return fmt.Errorf("glob pattern contains directory traversal: %s", pattern)
	}

	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("invalid glob pattern: %s", pattern)
	}

	return nil
}
