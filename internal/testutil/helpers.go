package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// CreateTestDirectory creates a temporary directory with the layout of a run:
// source packs, output and cache directories
func CreateTestDirectory(t *testing.T) string {
	t.Helper()

	tempDir := t.TempDir()

	dirs := []string{
		"source",
		"out",
		"cache",
	}

	for _, dir := range dirs {
		path := filepath.Join(tempDir, dir)
		if err := os.MkdirAll(path, 0755); err != nil {
			t.Fatalf("Failed to create test directory %s: %v", path, err)
		}
	}

	return tempDir
}

// CreateTestFile creates a test file with content
func CreateTestFile(t *testing.T, path string, content []byte) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create directory for test file: %v", err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to create test file %s: %v", path, err)
	}
}

// CreatePackFile writes cards as a JSON pack file named pack.json in dir
func CreatePackFile(t *testing.T, dir, pack string, cards []map[string]any) string {
	t.Helper()

	data, err := json.MarshalIndent(cards, "", "  ")
	if err != nil {
		t.Fatalf("Failed to encode pack %s: %v", pack, err)
	}
	path := filepath.Join(dir, pack+".json")
	CreateTestFile(t, path, data)
	return path
}

// SampleCards returns a small pack with glossary terms, repeated text and
// blank fields
func SampleCards() []map[string]any {
	return []map[string]any{
		{"code": "01001", "name": "Roland Banks", "traits": "Agency. Detective.", "text": "Place 1 Doom token on this card."},
		{"code": "01002", "name": "Daisy Walker", "subname": "The Librarian", "text": "Draw 1 card.", "flavor": ""},
		{"code": "01003", "name": "Lucky!", "text": "Draw 1 card.", "cost": 1},
	}
}

// ReadJSON decodes the JSON file at path into v
func ReadJSON(t *testing.T, path string, v any) {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("Failed to decode %s: %v", path, err)
	}
}

// AssertFileExists checks if a file exists
func AssertFileExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Expected file to exist: %s", path)
	}
}

// AssertFileNotExists checks if a file does not exist
func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); err == nil {
		t.Errorf("Expected file to not exist: %s", path)
	}
}

// AssertFileContains checks if a file contains a substring
func AssertFileContains(t *testing.T, path string, substring string) {
	t.Helper()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}

	if !strings.Contains(string(content), substring) {
		t.Errorf("File %s does not contain expected substring: %q", path, substring)
	}
}
