package internal

import (
	"reflect"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"core":           "core",
		"the dunwich/01": "the_dunwich_01",
		"ação":           "ação",
		"../etc":         "_etc",
		"..":             "_",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" tde, win,,core ")
	if want := []string{"tde", "win", "core"}; !reflect.DeepEqual(got, want) {
		t.Errorf("SplitList() = %v, want %v", got, want)
	}
	if SplitList("") != nil {
		t.Error("SplitList(\"\") should be nil")
	}
}
