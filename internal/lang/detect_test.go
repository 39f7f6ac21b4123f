package lang

import "testing"

const (
	ptText = "No final da rodada, cada investigador compra uma carta e ganha dois recursos adicionais."
	enText = "At the end of the round, each investigator draws one card and gains two resources."
)

func TestDetectCode(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty", "", "und"},
		{"too short", "Compre 1 carta.", "und"},
		{"english", enText, "en"},
		{"portuguese", ptText, "pt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := DetectCode(tt.text); got != tt.want {
				t.Errorf("DetectCode(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestDetectAmong(t *testing.T) {
	tests := []struct {
		name string
		text string
		tags []string
		want string
	}{
		{"portuguese among pair", ptText, []string{"en", "pt-BR"}, "pt"},
		{"english among pair", enText, []string{"en", "pt-BR"}, "en"},
		{"single candidate", ptText, []string{"pt"}, "pt"},
		{"unknown tags", ptText, []string{"xx", "tlh"}, "und"},
		{"too short", "Sim.", []string{"en", "pt"}, "und"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := DetectAmong(tt.text, tt.tags...); got != tt.want {
				t.Errorf("DetectAmong(%q, %v) = %q, want %q", tt.text, tt.tags, got, tt.want)
			}
		})
	}

	if _, conf := DetectAmong(ptText, "en", "pt"); conf < MinConfidence {
		t.Errorf("confidence between en and pt = %v, want at least %v", conf, MinConfidence)
	}
}

func TestBaseTag(t *testing.T) {
	tests := map[string]string{
		"pt-BR": "pt",
		"en":    "en",
		"zh_TW": "zh",
		" DE ":  "de",
	}
	for in, want := range tests {
		if got := BaseTag(in); got != want {
			t.Errorf("BaseTag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsLanguage(t *testing.T) {
	if !IsLanguage(ptText, "en", "pt-BR", MinConfidence) {
		t.Error("expected Portuguese text to match pt-BR")
	}
	if IsLanguage(enText, "en", "pt-BR", MinConfidence) {
		t.Error("English text should not match pt-BR")
	}
	if IsLanguage(ptText, "pt-BR", "en", 0) {
		t.Error("Portuguese text should not match en")
	}
	if IsLanguage("Sim.", "en", "pt-BR", 0) {
		t.Error("short text should never match")
	}
	if IsLanguage(ptText, "en", "pt-BR", 1.1) {
		t.Error("confidence above 1 can never be reached")
	}
}
