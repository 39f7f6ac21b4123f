package translation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// LanguagePair names the source and target language of a run, as BCP-47 tags
type LanguagePair struct {
	Source string
	Target string
}

func (p LanguagePair) String() string {
	return p.Source + "->" + p.Target
}

// Prompt is a provider-neutral chat request. Segments holds the texts the
// User message carries, in order.
type Prompt struct {
	System   string
	User     string
	Segments []string
}

type promptPayload struct {
	SourceLanguage string   `json:"source_language"`
	TargetLanguage string   `json:"target_language"`
	Segments       []string `json:"segments"`
}

type replyPayload struct {
	Translations []string `json:"translations"`
}

const systemPrompt = `You translate text from trading card games.
Translate every entry of "segments" from %[1]s into %[2]s.
Rules:
- Return JSON only, shaped as {"translations": ["...", "..."]}.
- Return exactly %[3]d translations, in the same order as the input.
- Copy every token of the form ⟦G0⟧, ⟦G1⟧, ... unchanged, exactly once.
- Keep line breaks, numbers, icons in [brackets] and markup as they are.
- Do not add notes, explanations or quotes around the result.`

// BuildPrompt renders texts as a single deterministic request
func BuildPrompt(texts []string, pair LanguagePair) (Prompt, error) {
	user, err := json.Marshal(promptPayload{
		SourceLanguage: pair.Source,
		TargetLanguage: pair.Target,
		Segments:       texts,
	})
	if err != nil {
		return Prompt{}, fmt.Errorf("failed to encode segments: %w", err)
	}
	return Prompt{
		System:   fmt.Sprintf(systemPrompt, pair.Source, pair.Target, len(texts)),
		User:     string(user),
		Segments: append([]string(nil), texts...),
	}, nil
}

// EncodeReply renders translations the way a well-behaved model answers.
// Test backends use it.
func EncodeReply(translations []string) string {
	b, _ := json.Marshal(replyPayload{Translations: translations})
	return string(b)
}

var codeFence = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ParseReply extracts exactly expected segments from a model reply. It
// accepts {"translations": [...]} or a bare array, optionally wrapped in a
// markdown code fence.
func ParseReply(content string, expected int) ([]string, error) {
	content = strings.TrimSpace(content)
	if m := codeFence.FindStringSubmatch(content); m != nil {
		content = m[1]
	}

	segments, err := decodeSegments(content)
	if err != nil {
		return nil, &ResponseShapeError{Expected: expected, Got: -1, Err: err}
	}
	if len(segments) != expected {
		return nil, &ResponseShapeError{Expected: expected, Got: len(segments)}
	}
	return segments, nil
}

func decodeSegments(content string) ([]string, error) {
	if start := strings.Index(content, "{"); start >= 0 && (strings.Index(content, "[") < 0 || start < strings.Index(content, "[")) {
		end := strings.LastIndex(content, "}")
		if end < start {
			return nil, fmt.Errorf("unterminated JSON object")
		}
		var reply replyPayload
		if err := json.Unmarshal([]byte(content[start:end+1]), &reply); err != nil {
			return nil, err
		}
		if reply.Translations == nil {
			return nil, fmt.Errorf("reply has no translations field")
		}
		return reply.Translations, nil
	}

	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array found")
	}
	var segments []string
	if err := json.Unmarshal([]byte(content[start:end+1]), &segments); err != nil {
		return nil, err
	}
	return segments, nil
}
