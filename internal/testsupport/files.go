package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteImage writes a placeholder JPEG of the requested size: the SOI marker
// followed by a repeating byte. Sizes below the marker length are raised.
func WriteImage(t testing.TB, path string, size int) {
	t.Helper()

	marker := []byte{0xff, 0xd8, 0xff}
	if size < len(marker) {
		size = len(marker)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	data := make([]byte, size)
	copy(data, marker)
	for i := len(marker); i < size; i++ {
		data[i] = 0x42
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
