package scanner

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// ExclusionSet holds paths a walk must never enter. An excluded path hides
// everything beneath it. Doublestar patterns are matched against full paths.
type ExclusionSet struct {
	paths    map[string]struct{}
	patterns []string
}

// NewExclusionSet returns a set excluding paths
func NewExclusionSet(paths ...string) *ExclusionSet {
	s := &ExclusionSet{paths: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		s.Add(p)
	}
	return s
}

// Add excludes path and everything below it
func (s *ExclusionSet) Add(path string) {
	s.paths[filepath.Clean(path)] = struct{}{}
}

// AddPattern excludes every path matching a doublestar pattern such as
// "/home/*/.cache/**".
func (s *ExclusionSet) AddPattern(pattern string) error {
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("invalid exclusion pattern: %s", pattern)
	}
	s.patterns = append(s.patterns, pattern)
	return nil
}

// Excludes reports whether path or one of its ancestors is excluded. A nil
// set excludes nothing.
func (s *ExclusionSet) Excludes(path string) bool {
	if s == nil {
		return false
	}

	path = filepath.Clean(path)
	for p := path; ; {
		if _, ok := s.paths[p]; ok {
			return true
		}
		parent := filepath.Dir(p)
		if parent == p {
			break
		}
		p = parent
	}

	slashed := filepath.ToSlash(path)
	for _, pattern := range s.patterns {
		if ok, _ := doublestar.Match(pattern, slashed); ok {
			return true
		}
	}
	return false
}

// Paths returns the excluded paths, sorted
func (s *ExclusionSet) Paths() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.paths))
	for p := range s.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
