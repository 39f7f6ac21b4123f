package archive

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestArchiveCache(t *testing.T) {
	// Create temp directory
	tmpDir := t.TempDir()

	dbPath := filepath.Join(tmpDir, ".cache.sqlite")
	if err := os.WriteFile(dbPath, []byte("sqlite bytes"), 0644); err != nil {
		t.Fatalf("Failed to create cache file: %v", err)
	}

	archivedPath, err := ArchiveCache(dbPath)
	if err != nil {
		t.Fatalf("ArchiveCache failed: %v", err)
	}

	// The cache stays in place
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("Cache file missing after archiving: %v", err)
	}

	// Check that archive directory was created
	archiveDir := filepath.Join(tmpDir, "archive")
	if filepath.Dir(archivedPath) != archiveDir {
		t.Errorf("archive written to %s, want directory %s", archivedPath, archiveDir)
	}

	// Verify the name, cache-YYYYMMDD-HHMMSS.sqlite
	name := filepath.Base(archivedPath)
	if !strings.HasPrefix(name, "cache-") || !strings.HasSuffix(name, ".sqlite") {
		t.Errorf("Unexpected archive name: %s", name)
	}

	data, err := os.ReadFile(archivedPath)
	if err != nil {
		t.Fatalf("Failed to read archive: %v", err)
	}
	if string(data) != "sqlite bytes" {
		t.Errorf("archive content = %q", data)
	}
}

func TestArchiveCache_NonExistentFile(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := ArchiveCache(filepath.Join(tmpDir, "nonexistent.sqlite"))
	if err == nil {
		t.Fatal("Expected error for non-existent cache")
	}

	if !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Expected 'does not exist' error, got: %v", err)
	}
}

func TestArchiveCache_MultipleArchives(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "translations.db")
	if err := os.WriteFile(dbPath, []byte("v1"), 0644); err != nil {
		t.Fatal(err)
	}

	// Archive twice to ensure unique names
	seen := make(map[string]bool)
	for i := 0; i < 2; i++ {
		if i == 1 {
			time.Sleep(10 * time.Millisecond)
		}
		path, err := ArchiveCache(dbPath)
		if err != nil {
			t.Fatalf("ArchiveCache failed on iteration %d: %v", i, err)
		}
		seen[path] = true
	}

	entries, err := os.ReadDir(filepath.Join(tmpDir, "archive"))
	if err != nil {
		t.Fatalf("Failed to read archive directory: %v", err)
	}
	if len(entries) != 2 || len(seen) != 2 {
		t.Fatalf("Expected 2 distinct archives, got %d entries", len(entries))
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "translations-") {
			t.Errorf("Unexpected archive name: %s", e.Name())
		}
	}
}
