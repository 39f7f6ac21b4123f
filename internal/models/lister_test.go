package models

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

type fakeSource struct {
	ids []string
	err error
}

func (f fakeSource) Name() string { return "fake" }

func (f fakeSource) ListModels(ctx context.Context) ([]string, error) {
	return f.ids, f.err
}

func TestCategorize(t *testing.T) {
	c := Categorize([]string{"tts-1", "gpt-4o-mini", "o3-mini", "dall-e-3", "gpt-4o", "llama3.1:8b", "text-embedding-3-small", "gpt-5"})

	if want := []string{"gpt-4o", "gpt-4o-mini", "llama3.1:8b"}; !reflect.DeepEqual(c.Chat, want) {
		t.Errorf("Chat = %v, want %v", c.Chat, want)
	}
	if want := []string{"gpt-5", "o3-mini"}; !reflect.DeepEqual(c.Reasoning, want) {
		t.Errorf("Reasoning = %v, want %v", c.Reasoning, want)
	}
	if want := []string{"dall-e-3", "text-embedding-3-small", "tts-1"}; !reflect.DeepEqual(c.Other, want) {
		t.Errorf("Other = %v, want %v", c.Other, want)
	}
}

func TestListAvailableModels(t *testing.T) {
	var buf bytes.Buffer
	lister := NewLister(fakeSource{ids: []string{"gpt-4o", "whisper-1"}}, &buf)

	if err := lister.ListAvailableModels(context.Background()); err != nil {
		t.Fatalf("ListAvailableModels failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Available fake models", "  gpt-4o\n", "none found", "1 other models"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "whisper-1") {
		t.Error("non-chat model listed")
	}
}

func TestListAvailableModels_Error(t *testing.T) {
	lister := NewLister(fakeSource{err: errors.New("401 unauthorized")}, &bytes.Buffer{})

	err := lister.ListAvailableModels(context.Background())
	if err == nil {
		t.Fatal("Expected error from source")
	}
	if !strings.Contains(err.Error(), "failed to list models") {
		t.Errorf("unexpected error: %v", err)
	}
}
