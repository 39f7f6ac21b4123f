package placeholder

import (
	"errors"
	"strings"
	"testing"

	"codeberg.org/snonux/cardtrans/internal/glossary"
)

func newIndex(t *testing.T, entries ...glossary.Entry) *glossary.Index {
	t.Helper()
	ix, err := glossary.New(entries, "test")
	if err != nil {
		t.Fatalf("glossary.New() error = %v", err)
	}
	return ix
}

func TestMask_LongestMatch(t *testing.T) {
	ix := newIndex(t,
		glossary.Entry{Source: "Ancient", Target: "Y"},
		glossary.Entry{Source: "Ancient One", Target: "X"},
	)

	masked, rm := Mask("Ancient One awakens", ix)
	if masked != "⟦G0⟧ awakens" {
		t.Errorf("masked = %q", masked)
	}
	if rm.Len() != 1 || rm.Tokens[0].Target != "X" || rm.Tokens[0].Original != "Ancient One" {
		t.Errorf("restore map = %+v, want the Ancient One entry", rm.Tokens)
	}
}

func TestMask_CaseAndBoundaries(t *testing.T) {
	ix := newIndex(t,
		glossary.Entry{Source: "Doom", Target: "Perdição"},
		glossary.Entry{Source: "Clue", Target: "Pista"},
	)

	tests := []struct {
		name   string
		in     string
		masked string
		tokens int
	}{
		{"single", "Place 1 Doom token", "Place 1 ⟦G0⟧ token", 1},
		{"lower case", "place doom on it", "place ⟦G0⟧ on it", 1},
		{"numbered in order", "Clue then Doom then clue", "⟦G0⟧ then ⟦G1⟧ then ⟦G2⟧", 3},
		{"inside a word", "Doomed, clueless", "Doomed, clueless", 0},
		{"punctuation", "[action]: Discover 1 clue.", "[action]: Discover 1 ⟦G0⟧.", 1},
		{"empty", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			masked, rm := Mask(tt.in, ix)
			if masked != tt.masked {
				t.Errorf("Mask(%q) = %q, want %q", tt.in, masked, tt.masked)
			}
			if rm.Len() != tt.tokens {
				t.Errorf("tokens = %d, want %d", rm.Len(), tt.tokens)
			}
		})
	}
}

func TestMask_Deterministic(t *testing.T) {
	ix := newIndex(t,
		glossary.Entry{Source: "Doom", Target: "Perdição"},
		glossary.Entry{Source: "Chaos Bag", Target: "Saco do Caos"},
	)
	text := "Reveal a Chaos Bag token. If it is Doom, place 1 doom."

	first, _ := Mask(text, ix)
	for i := 0; i < 10; i++ {
		again, _ := Mask(text, ix)
		if again != first {
			t.Fatalf("Mask is not deterministic: %q vs %q", first, again)
		}
	}
}

func TestRoundTrip_Identity(t *testing.T) {
	ix := newIndex(t,
		glossary.Entry{Source: "Doom", Target: "Perdição"},
		glossary.Entry{Source: "Ancient One", Target: "Ancião"},
		glossary.Entry{Source: "Clue", Target: "Pista"},
	)

	texts := []string{
		"",
		"No terms here.",
		"Place 1 Doom token",
		"The ancient one gathers DOOM and clue, then Clue again.",
		"Ünïcödé clue — doom…",
		"Doom",
	}

	for _, text := range texts {
		masked, rm := Mask(text, ix)
		got, err := Reveal(masked, rm)
		if err != nil {
			t.Errorf("Reveal(Mask(%q)) error = %v", text, err)
			continue
		}
		if got != text {
			t.Errorf("Reveal(Mask(%q)) = %q", text, got)
		}
	}
}

func TestUnmask(t *testing.T) {
	ix := newIndex(t, glossary.Entry{Source: "Doom", Target: "Perdição"})

	masked, rm := Mask("Place 1 Doom token", ix)
	// A translator that only rewrites the surrounding words
	translated := strings.Replace(masked, "Place", "Coloque", 1)

	got, err := Unmask(translated, rm)
	if err != nil {
		t.Fatalf("Unmask() error = %v", err)
	}
	if got != "Coloque 1 Perdição token" {
		t.Errorf("Unmask() = %q", got)
	}
}

func TestUnmask_Mismatch(t *testing.T) {
	ix := newIndex(t,
		glossary.Entry{Source: "Doom", Target: "Perdição"},
		glossary.Entry{Source: "Clue", Target: "Pista"},
	)
	_, rm := Mask("Doom and Clue", ix)

	tests := []struct {
		name       string
		translated string
	}{
		{"dropped", "⟦G0⟧ e pista"},
		{"duplicated", "⟦G0⟧ e ⟦G1⟧ ⟦G1⟧"},
		{"invented", "⟦G0⟧ e ⟦G1⟧ ⟦G7⟧"},
		{"altered", "⟦G0⟧ e [G1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmask(tt.translated, rm)
			var mm *MismatchError
			if !errors.As(err, &mm) {
				t.Fatalf("Unmask() error = %v, want *MismatchError", err)
			}
			if mm.Expected != 2 {
				t.Errorf("Expected = %d, want 2", mm.Expected)
			}
		})
	}
}

func TestUnmask_NoTokens(t *testing.T) {
	got, err := Unmask("plain text", RestoreMap{})
	if err != nil || got != "plain text" {
		t.Errorf("Unmask() = %q, %v", got, err)
	}

	if _, err := Unmask("stray ⟦G0⟧", RestoreMap{}); err == nil {
		t.Error("expected mismatch for a placeholder that was never inserted")
	}
}
