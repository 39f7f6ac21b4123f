package glossary

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func TestLoad_Formats(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		want    map[string]string
	}{
		{
			name:    "json object",
			file:    "g.json",
			content: `{"Doom": "Perdição", "Clue": "Pista"}`,
			want:    map[string]string{"Doom": "Perdição", "Clue": "Pista"},
		},
		{
			name:    "json list",
			file:    "list.json",
			content: `[{"source": "Chaos Bag", "target": "Saco do Caos"}]`,
			want:    map[string]string{"Chaos Bag": "Saco do Caos"},
		},
		{
			name:    "yaml mapping",
			file:    "g.yaml",
			content: "Evade: Evadir\nEngage: Engajar\n",
			want:    map[string]string{"Evade": "Evadir", "Engage": "Engajar"},
		},
		{
			name:    "yaml list",
			file:    "g.yml",
			content: "- source: Scenario\n  target: Cenário\n",
			want:    map[string]string{"Scenario": "Cenário"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			ix, err := Load([]string{path}, "")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if ix.Len() != len(tt.want) {
				t.Errorf("Len() = %d, want %d", ix.Len(), len(tt.want))
			}
			for src, tgt := range tt.want {
				got, ok := ix.Lookup(src)
				if !ok || got != tgt {
					t.Errorf("Lookup(%q) = %q, %v; want %q", src, got, ok, tgt)
				}
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.json", `{"Doom": "Perdição"}`)
	b := writeFile(t, dir, "b.yaml", "doom: Ruína\n")
	empty := writeFile(t, dir, "empty.json", `{"Clue": ""}`)
	reserved := writeFile(t, dir, "reserved.json", `{"⟦G0⟧": "x"}`)
	badExt := writeFile(t, dir, "terms.txt", "Doom=Perdição")
	malformed := writeFile(t, dir, "bad.json", `{"Doom": 1}`)

	tests := []struct {
		name  string
		paths []string
	}{
		{"duplicate across files", []string{a, b}},
		{"empty target", []string{empty}},
		{"reserved characters", []string{reserved}},
		{"unsupported extension", []string{badExt}},
		{"malformed entry", []string{malformed}},
		{"missing file", []string{filepath.Join(dir, "nope.json")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.paths, "")
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Load() error = %v, want *ConfigError", err)
			}
		})
	}
}

func TestEntries_LongestFirst(t *testing.T) {
	// Load order must not matter
	orders := [][]Entry{
		{{"Ancient", "Y"}, {"Ancient One", "X"}, {"One", "Z"}},
		{{"Ancient One", "X"}, {"One", "Z"}, {"Ancient", "Y"}},
	}

	for _, entries := range orders {
		ix, err := New(entries, "v1")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		got := ix.Entries()
		want := []string{"Ancient One", "Ancient", "One"}
		for i, e := range got {
			if e.Source != want[i] {
				t.Errorf("Entries()[%d] = %q, want %q", i, e.Source, want[i])
			}
		}
	}
}

func TestVersion(t *testing.T) {
	a, _ := New([]Entry{{"Doom", "Perdição"}, {"Clue", "Pista"}}, "")
	b, _ := New([]Entry{{"Clue", "Pista"}, {"Doom", "Perdição"}}, "")
	c, _ := New([]Entry{{"Clue", "Pista"}, {"Doom", "Ruína"}}, "")
	tagged, _ := New([]Entry{{"Clue", "Pista"}}, "2024-10")

	if a.Version() != b.Version() {
		t.Errorf("derived version depends on load order: %s vs %s", a.Version(), b.Version())
	}
	if a.Version() == c.Version() {
		t.Error("derived version should change when a target changes")
	}
	if !strings.HasPrefix(a.Version(), "sha256:") {
		t.Errorf("unexpected derived version %q", a.Version())
	}
	if tagged.Version() != "2024-10" {
		t.Errorf("Version() = %q, want explicit tag", tagged.Version())
	}
}

func TestApplyPost(t *testing.T) {
	ix, err := New([]Entry{{"Doom", "Perdição"}, {"Chaos Bag", "Saco do Caos"}, {"Clue", "Pista"}}, "")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		in   string
		want string
	}{
		{"Place 1 Doom token", "Place 1 Perdição token"},
		{"Reveal a chaos bag token", "Reveal a Saco do Caos token"},
		{"Doomed investigators", "Doomed investigators"},
		{"Clues, Clue.", "Clues, Pista."},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ix.ApplyPost(tt.in); got != tt.want {
			t.Errorf("ApplyPost(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefault(t *testing.T) {
	ix, err := New(Default(), "")
	if err != nil {
		t.Fatalf("default glossary invalid: %v", err)
	}
	if got, ok := ix.Lookup("doom"); !ok || got != "Perdição" {
		t.Errorf("Lookup(doom) = %q, %v", got, ok)
	}
}
