package glossary

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Reserved runes open and close placeholder tokens; glossary terms may not
// contain them.
const (
	ReservedOpen  = '⟦'
	ReservedClose = '⟧'
)

// Entry maps one source term to its fixed translation
type Entry struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// ConfigError reports an unusable glossary. It is fatal: the run stops before
// any external call is made.
type ConfigError struct {
	File string
	Msg  string
}

func (e *ConfigError) Error() string {
	if e.File == "" {
		return "glossary: " + e.Msg
	}
	return fmt.Sprintf("glossary %s: %s", e.File, e.Msg)
}

// Index is an immutable, loaded glossary
type Index struct {
	entries  []Entry // longest first
	bySource map[string]Entry
	version  string
}

// Default returns the minimal glossary used when no glossary file exists.
func Default() []Entry {
	return []Entry{
		{Source: "Clue", Target: "Pista"},
		{Source: "Clues", Target: "Pistas"},
		{Source: "Doom", Target: "Perdição"},
		{Source: "Chaos Bag", Target: "Saco do Caos"},
		{Source: "Skill Test", Target: "Teste de Perícia"},
		{Source: "Evade", Target: "Evadir"},
		{Source: "Engage", Target: "Engajar"},
		{Source: "Scenario", Target: "Cenário"},
		{Source: "Campaign", Target: "Campanha"},
		{Source: "Exhaust", Target: "Exaurir"},
		{Source: "Exhausted", Target: "Exaurido"},
	}
}

// Load reads and merges glossary files. A file is either a mapping of
// source term to target term or a list of {source, target} objects, in JSON
// or YAML depending on its extension. An empty version derives one from the
// merged content.
func Load(paths []string, version string) (*Index, error) {
	var all []Entry
	seen := make(map[string]string)

	for _, path := range paths {
		entries, err := readFile(path)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			key := foldKey(e.Source)
			if prev, ok := seen[key]; ok {
				return nil, &ConfigError{File: path, Msg: fmt.Sprintf("duplicate term %q (already defined in %s)", e.Source, prev)}
			}
			seen[key] = path
			all = append(all, e)
		}
	}

	return New(all, version)
}

// New builds an index from entries
func New(entries []Entry, version string) (*Index, error) {
	ix := &Index{
		entries:  make([]Entry, 0, len(entries)),
		bySource: make(map[string]Entry, len(entries)),
	}

	for _, e := range entries {
		e.Source = strings.TrimSpace(e.Source)
		e.Target = strings.TrimSpace(e.Target)
		if err := validate(e); err != nil {
			return nil, err
		}
		key := foldKey(e.Source)
		if _, ok := ix.bySource[key]; ok {
			return nil, &ConfigError{Msg: fmt.Sprintf("duplicate term %q", e.Source)}
		}
		ix.bySource[key] = e
		ix.entries = append(ix.entries, e)
	}

	sort.Slice(ix.entries, func(i, j int) bool {
		li := utf8.RuneCountInString(ix.entries[i].Source)
		lj := utf8.RuneCountInString(ix.entries[j].Source)
		if li != lj {
			return li > lj
		}
		return ix.entries[i].Source < ix.entries[j].Source
	})

	ix.version = version
	if ix.version == "" {
		ix.version = ix.digest()
	}

	return ix, nil
}

// Lookup returns the target term for a source term, ignoring case
func (ix *Index) Lookup(term string) (string, bool) {
	e, ok := ix.bySource[foldKey(term)]
	if !ok {
		return "", false
	}
	return e.Target, true
}

// Entries returns the entries in scan order: longest source term first,
// ties broken alphabetically.
func (ix *Index) Entries() []Entry {
	out := make([]Entry, len(ix.entries))
	copy(out, ix.entries)
	return out
}

// Len returns the number of terms
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Version identifies this glossary content in cache fingerprints
func (ix *Index) Version() string {
	return ix.version
}

// ApplyPost replaces whole-word source terms in already translated text with
// their targets, longest first. It is used when text had to be translated
// without placeholders.
func (ix *Index) ApplyPost(text string) string {
	if len(ix.entries) == 0 || text == "" {
		return text
	}

	runes := []rune(text)
	var b strings.Builder
	for i := 0; i < len(runes); {
		if e, n, ok := ix.MatchAt(runes, i); ok {
			b.WriteString(e.Target)
			i += n
			continue
		}
		b.WriteRune(runes[i])
		i++
	}
	return b.String()
}

// MatchAt reports the longest entry matching runes at position i as a whole
// word, and the number of runes it covers.
func (ix *Index) MatchAt(runes []rune, i int) (Entry, int, bool) {
	if i > 0 && isWordRune(runes[i-1]) {
		return Entry{}, 0, false
	}
	for _, e := range ix.entries {
		term := []rune(e.Source)
		n := len(term)
		if i+n > len(runes) {
			continue
		}
		if !equalFoldRunes(runes[i:i+n], term) {
			continue
		}
		if i+n < len(runes) && isWordRune(runes[i+n]) {
			continue
		}
		return e, n, true
	}
	return Entry{}, 0, false
}

func (ix *Index) digest() string {
	h := sha256.New()
	sorted := ix.Entries()
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Source < sorted[j].Source })
	for _, e := range sorted {
		fmt.Fprintf(h, "%d:%s=%d:%s\n", len(e.Source), e.Source, len(e.Target), e.Target)
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil))[:12]
}

func readFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{File: path, Msg: err.Error()}
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return decodeJSON(path, data)
	case ".yaml", ".yml":
		return decodeYAML(path, data)
	default:
		return nil, &ConfigError{File: path, Msg: fmt.Sprintf("unsupported glossary format %q", ext)}
	}
}

func decodeJSON(path string, data []byte) ([]Entry, error) {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err == nil {
		return fromMap(m), nil
	}
	var list []Entry
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, &ConfigError{File: path, Msg: "expected an object of terms or a list of {source, target}: " + err.Error()}
	}
	return list, nil
}

func decodeYAML(path string, data []byte) ([]Entry, error) {
	var m map[string]string
	if err := yaml.Unmarshal(data, &m); err == nil {
		return fromMap(m), nil
	}
	var list []Entry
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, &ConfigError{File: path, Msg: "expected a mapping of terms or a list of {source, target}: " + err.Error()}
	}
	return list, nil
}

// fromMap keeps key order deterministic; map iteration order is random.
func fromMap(m map[string]string) []Entry {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		out = append(out, Entry{Source: k, Target: m[k]})
	}
	return out
}

func validate(e Entry) error {
	if e.Source == "" {
		return &ConfigError{Msg: fmt.Sprintf("empty source term (target %q)", e.Target)}
	}
	if e.Target == "" {
		return &ConfigError{Msg: fmt.Sprintf("empty target for term %q", e.Source)}
	}
	if strings.ContainsAny(e.Source+e.Target, string([]rune{ReservedOpen, ReservedClose})) {
		return &ConfigError{Msg: fmt.Sprintf("term %q uses reserved placeholder characters", e.Source)}
	}
	return nil
}

func foldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func equalFoldRunes(a, b []rune) bool {
	for i := range a {
		if unicode.ToLower(a[i]) != unicode.ToLower(b[i]) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
