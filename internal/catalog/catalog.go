// Package catalog loads the reference descriptions images are matched against.
package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"

	"menumatch/internal/matching"
	"menumatch/internal/services"
)

// ErrEmpty is returned when a catalog source holds no usable lines.
var ErrEmpty = errors.New("catalog is empty")

// Load reads one description per line from path. Lines are trimmed and kept
// as written; blank lines and lines equal to an earlier one under NFKC are
// dropped while file order is preserved.
func Load(path string) (matching.Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "catalog", "open", path, err)
		}
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "open", path, err)
	}
	defer file.Close()

	entries, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return entries, nil
}

// Read parses catalog lines from r.
func Read(r io.Reader) (matching.Catalog, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	seen := make(map[string]struct{})
	var entries matching.Catalog
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" {
			continue
		}
		key := norm.NFKC.String(line)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "catalog", "read", "", err)
	}
	if len(entries) == 0 {
		return nil, services.Wrap(services.ErrValidation, "catalog", "read", "", ErrEmpty)
	}
	return entries, nil
}
