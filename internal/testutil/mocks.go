package testutil

import (
	"context"
	"strings"
	"sync"

	"codeberg.org/snonux/cardtrans/internal/translation"
)

// FakeTranslator translates each text with Translate and records every call.
// Script, when set, replaces the whole call; Errors are returned in order,
// one per call, before falling back to translating.
type FakeTranslator struct {
	Translate func(text string) string
	Script    func(call int, texts []string) ([]string, error)
	Errors    []error

	mu    sync.Mutex
	calls [][]string
}

// TranslateBatch implements the pipeline's translator
func (f *FakeTranslator) TranslateBatch(ctx context.Context, texts []string, pair translation.LanguagePair) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), texts...))
	call := len(f.calls)
	var err error
	if len(f.Errors) > 0 {
		err, f.Errors = f.Errors[0], f.Errors[1:]
	}
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if f.Script != nil {
		return f.Script(call, texts)
	}
	return f.apply(texts), nil
}

func (f *FakeTranslator) apply(texts []string) []string {
	out := make([]string, len(texts))
	for i, s := range texts {
		if f.Translate != nil {
			out[i] = f.Translate(s)
		} else {
			out[i] = s
		}
	}
	return out
}

// CallCount returns how many batches were sent
func (f *FakeTranslator) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// Calls returns the texts of every call in order
func (f *FakeTranslator) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.calls...)
}

// FakeBackend is a translation.Backend that answers every prompt with its
// segments passed through Translate
type FakeBackend struct {
	Translate func(text string) string
	Err       error

	mu    sync.Mutex
	calls int
}

func (b *FakeBackend) Name() string  { return "fake" }
func (b *FakeBackend) Model() string { return "fake-model" }

// Complete answers with one translation per segment
func (b *FakeBackend) Complete(ctx context.Context, p translation.Prompt) (string, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()

	if b.Err != nil {
		return "", b.Err
	}
	out := make([]string, len(p.Segments))
	for i, s := range p.Segments {
		if b.Translate != nil {
			out[i] = b.Translate(s)
		} else {
			out[i] = s
		}
	}
	return translation.EncodeReply(out), nil
}

// CallCount returns how many prompts were answered
func (b *FakeBackend) CallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// Replacer builds a Translate func from old/new pairs
func Replacer(oldnew ...string) func(string) string {
	r := strings.NewReplacer(oldnew...)
	return r.Replace
}
