package models

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Source is a provider that can enumerate its models
type Source interface {
	Name() string
	ListModels(ctx context.Context) ([]string, error)
}

// Categories groups model IDs by use
type Categories struct {
	Chat      []string
	Reasoning []string
	Other     []string
}

// Lister handles listing available models of one provider
type Lister struct {
	source Source
	out    io.Writer
}

// NewLister creates a new model lister writing to out
func NewLister(source Source, out io.Writer) *Lister {
	return &Lister{source: source, out: out}
}

// Categorize sorts ids into chat, reasoning and other models
func Categorize(ids []string) Categories {
	var c Categories
	for _, id := range ids {
		lower := strings.ToLower(id)
		switch {
		case isNonChat(lower):
			c.Other = append(c.Other, id)
		case isReasoning(lower):
			c.Reasoning = append(c.Reasoning, id)
		default:
			c.Chat = append(c.Chat, id)
		}
	}
	sort.Strings(c.Chat)
	sort.Strings(c.Reasoning)
	sort.Strings(c.Other)
	return c
}

func isNonChat(id string) bool {
	for _, marker := range []string{"tts", "audio", "dall-e", "whisper", "embed", "moderation", "transcribe", "image", "davinci", "babbage"} {
		if strings.Contains(id, marker) {
			return true
		}
	}
	return false
}

func isReasoning(id string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(id, prefix) {
			return true
		}
	}
	return false
}

// ListAvailableModels prints the provider's models grouped by category
func (l *Lister) ListAvailableModels(ctx context.Context) error {
	ids, err := l.source.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	c := Categorize(ids)

	fmt.Fprintf(l.out, "Available %s models:\n", l.source.Name())
	printGroup(l.out, "Chat models (usable for translation)", c.Chat)
	printGroup(l.out, "Reasoning models (temperature is fixed, seeds are ignored)", c.Reasoning)
	if len(c.Other) > 0 {
		fmt.Fprintf(l.out, "\n%d other models (audio, image, embedding) not shown\n", len(c.Other))
	}
	return nil
}

func printGroup(w io.Writer, title string, ids []string) {
	fmt.Fprintf(w, "\n%s:\n", title)
	if len(ids) == 0 {
		fmt.Fprintln(w, "  none found")
		return
	}
	for _, id := range ids {
		fmt.Fprintf(w, "  %s\n", id)
	}
}
