package batch

import (
	"fmt"
	"path/filepath"
	"sort"

	"menumatch/internal/services"
)

// Discover returns the files in dir matching pattern, sorted by path.
func Discover(dir, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, stageName, "discover", fmt.Sprintf("bad image pattern %q", pattern), err)
	}
	sort.Strings(matches)
	return matches, nil
}

// Sample picks up to n evenly spaced entries: every len/n-th path starting at
// the first, truncated to n. n <= 0 or n >= len(paths) returns paths
// unchanged.
func Sample(paths []string, n int) []string {
	if n <= 0 || n >= len(paths) {
		return paths
	}
	step := len(paths) / n
	out := make([]string, 0, n)
	for i := 0; i < len(paths) && len(out) < n; i += step {
		out = append(out, paths[i])
	}
	return out
}
