// Package exclude decides which remote entries a mirror run leaves out
package exclude

import (
	"fmt"
	"path"
	"strings"
)

// Matcher tests slash-separated relative paths against glob patterns.
//
// Pattern forms:
//   - "name/"    a folder with that base name, anywhere
//   - "a/b/"     the folder at that exact relative path
//   - "*.tmp"    glob against the full path, then against the base name
//   - "a/b.txt"  that exact path, or anything below it
//   - "name"     any entry with that base name
type Matcher struct {
	patterns []string
}

// DefaultPatterns returns the opt-in set enabled by --default-excludes
func DefaultPatterns() []string {
	return []string{
		".git/",
		".DS_Store",
		"._*",
		"node_modules/",
		"*.tmp",
		"Thumbs.db",
	}
}

// New compiles patterns. Blank patterns are ignored; malformed globs are
// an error.
func New(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := path.Match(strings.TrimSuffix(p, "/"), ""); err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		m.patterns = append(m.patterns, p)
	}
	return m, nil
}

// Len returns the number of active patterns
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.patterns)
}

// IsExcluded reports whether relPath (relative to the mirror base) matches
func (m *Matcher) IsExcluded(relPath string, isDir bool) bool {
	if m == nil || relPath == "" {
		return false
	}
	relPath = strings.TrimPrefix(relPath, "./")
	base := path.Base(relPath)

	for _, p := range m.patterns {
		if strings.HasSuffix(p, "/") {
			if !isDir {
				continue
			}
			dirPattern := strings.TrimSuffix(p, "/")
			if strings.Contains(dirPattern, "/") {
				if globOrEqual(dirPattern, relPath) {
					return true
				}
			} else if globOrEqual(dirPattern, base) {
				return true
			}
			continue
		}

		if strings.ContainsAny(p, "*?[") {
			if ok, _ := path.Match(p, relPath); ok {
				return true
			}
			if ok, _ := path.Match(p, base); ok {
				return true
			}
			continue
		}

		if relPath == p || strings.HasPrefix(relPath, p+"/") || base == p {
			return true
		}
	}
	return false
}

func globOrEqual(pattern, name string) bool {
	if pattern == name {
		return true
	}
	ok, _ := path.Match(pattern, name)
	return ok
}
