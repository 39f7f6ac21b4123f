// Package placeholder masks glossary terms before text leaves the process and
// restores them afterwards. Masking is a pure function of the text and the
// glossary, so identical input always yields identical masked text.
package placeholder

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"codeberg.org/snonux/cardtrans/internal/glossary"
)

// tokenPattern matches every placeholder, including ones a model invented
var tokenPattern = regexp.MustCompile(`⟦G(\d+)⟧`)

// Token is one masked occurrence
type Token struct {
	Placeholder string
	Original    string // surface form found in the source text
	Target      string // glossary translation
}

// RestoreMap records the placeholders inserted into one text, in order
type RestoreMap struct {
	Tokens []Token
}

// Len returns the number of placeholders
func (rm RestoreMap) Len() int {
	return len(rm.Tokens)
}

// MismatchError means the translated text does not carry exactly the
// placeholders that were inserted.
type MismatchError struct {
	Expected   int
	Found      int
	Missing    []string
	Unexpected []string
}

func (e *MismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ","))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unexpected "+strings.Join(e.Unexpected, ","))
	}
	return fmt.Sprintf("placeholder mismatch: expected %d, found %d (%s)", e.Expected, e.Found, strings.Join(parts, "; "))
}

// Format returns the placeholder for index i
func Format(i int) string {
	return "⟦G" + strconv.Itoa(i) + "⟧"
}

// Mask replaces every glossary term in text, longest match first, with a
// placeholder numbered by order of occurrence.
func Mask(text string, ix *glossary.Index) (string, RestoreMap) {
	var rm RestoreMap
	if ix == nil || ix.Len() == 0 || text == "" {
		return text, rm
	}

	runes := []rune(text)
	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(runes); {
		e, n, ok := ix.MatchAt(runes, i)
		if !ok {
			b.WriteRune(runes[i])
			i++
			continue
		}
		ph := Format(len(rm.Tokens))
		rm.Tokens = append(rm.Tokens, Token{
			Placeholder: ph,
			Original:    string(runes[i : i+n]),
			Target:      e.Target,
		})
		b.WriteString(ph)
		i += n
	}

	return b.String(), rm
}

// Unmask swaps each placeholder in translated text for its glossary target
func Unmask(translated string, rm RestoreMap) (string, error) {
	return restore(translated, rm, func(t Token) string { return t.Target })
}

// Reveal swaps each placeholder back to the original source wording, so
// Reveal(Mask(t)) == t.
func Reveal(masked string, rm RestoreMap) (string, error) {
	return restore(masked, rm, func(t Token) string { return t.Original })
}

func restore(text string, rm RestoreMap, pick func(Token) string) (string, error) {
	if err := Check(text, rm); err != nil {
		return "", err
	}
	if rm.Len() == 0 {
		return text, nil
	}

	byPlaceholder := make(map[string]string, rm.Len())
	for _, t := range rm.Tokens {
		byPlaceholder[t.Placeholder] = pick(t)
	}
	return tokenPattern.ReplaceAllStringFunc(text, func(ph string) string {
		return byPlaceholder[ph]
	}), nil
}

// Check verifies that text contains every placeholder of rm exactly once and
// no other placeholder.
func Check(text string, rm RestoreMap) error {
	found := tokenPattern.FindAllString(text, -1)

	counts := make(map[string]int, len(found))
	for _, ph := range found {
		counts[ph]++
	}

	var missing, unexpected []string
	expected := make(map[string]bool, rm.Len())
	for _, t := range rm.Tokens {
		expected[t.Placeholder] = true
		switch c := counts[t.Placeholder]; {
		case c == 0:
			missing = append(missing, t.Placeholder)
		case c > 1:
			unexpected = append(unexpected, t.Placeholder)
		}
	}
	for ph := range counts {
		if !expected[ph] {
			unexpected = append(unexpected, ph)
		}
	}

	if len(missing) == 0 && len(unexpected) == 0 && len(found) == rm.Len() {
		return nil
	}
	sort.Strings(unexpected)
	return &MismatchError{
		Expected:   rm.Len(),
		Found:      len(found),
		Missing:    missing,
		Unexpected: unexpected,
	}
}
