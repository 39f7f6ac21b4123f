// Package cards reads pack files of card records and flattens them into
// rows. A pack file is a JSON array of card objects or a single object.
package cards

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// ExtractFields are the columns of the flat CSV export
var ExtractFields = []string{"code", "name", "subname", "text", "traits", "flavor", "back_text", "back_flavor"}

// TranslatableFields are the free-text fields translated by default
var TranslatableFields = []string{"name", "subname", "text", "flavor", "traits"}

// Row is one card of one pack
type Row struct {
	Pack   string            // pack name, the file name without extension
	File   string            // path of the pack file
	Code   string            // card code, may be empty
	Index  int               // position of the card in its pack
	Values map[string]string // string fields of the card
	Raw    map[string]any    // the card as decoded, for export
}

// Key identifies the row across runs
func (r Row) Key() string {
	if r.Code != "" {
		return r.Pack + ":" + r.Code
	}
	return r.Pack + "#" + strconv.Itoa(r.Index)
}

// Keys returns the key of every row. A row whose code already appeared
// earlier in its pack falls back to <pack>#<index>, so keys stay unique.
func Keys(rows []Row) []string {
	keys := make([]string, len(rows))
	seen := make(map[string]bool, len(rows))
	for i, row := range rows {
		key := row.Key()
		if seen[key] {
			key = row.Pack + "#" + strconv.Itoa(row.Index)
		}
		for n := 2; seen[key]; n++ {
			key = row.Pack + "#" + strconv.Itoa(row.Index) + "." + strconv.Itoa(n)
		}
		seen[key] = true
		keys[i] = key
	}
	return keys
}

// Text returns field as text. Missing fields are empty and non-string
// values are rendered as JSON.
func (r Row) Text(field string) string {
	if v, ok := r.Values[field]; ok {
		return v
	}
	raw, ok := r.Raw[field]
	if !ok || raw == nil {
		return ""
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Sprint(raw)
	}
	return string(b)
}

// Options filter what Extract reads
type Options struct {
	// Packs keeps only files whose name contains one of the entries
	Packs  []string
	Logger logrus.FieldLogger
}

// Extract reads every *.json file in dir in name order. Files that are not
// valid JSON or not an object or array are skipped with a warning.
func Extract(dir string, opts Options) ([]Row, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	files, err := FindPackFiles(dir, opts.Packs)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for _, file := range files {
		cards, err := ReadPack(file)
		if err != nil {
			log.WithField("file", file).Warnf("skipping pack: %v", err)
			continue
		}
		pack := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		for i, card := range cards {
			rows = append(rows, newRow(pack, file, i, card))
		}
	}
	return rows, nil
}

// FindPackFiles lists the *.json files of dir sorted by name
func FindPackFiles(dir string, packs []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read source directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), ".json") {
			continue
		}
		if !matchesPack(name, packs) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}

func matchesPack(name string, packs []string) bool {
	if len(packs) == 0 {
		return true
	}
	for _, p := range packs {
		if p = strings.TrimSpace(p); p != "" && strings.Contains(name, p) {
			return true
		}
	}
	return false
}

// ReadPack decodes a pack file into card objects
func ReadPack(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pack: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	switch v := doc.(type) {
	case map[string]any:
		return []map[string]any{v}, nil
	case []any:
		cards := make([]map[string]any, 0, len(v))
		for i, item := range v {
			card, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("entry %d is not an object", i)
			}
			cards = append(cards, card)
		}
		return cards, nil
	default:
		return nil, fmt.Errorf("unsupported JSON structure %T", doc)
	}
}

func newRow(pack, file string, index int, card map[string]any) Row {
	row := Row{
		Pack:   pack,
		File:   file,
		Index:  index,
		Values: make(map[string]string),
		Raw:    card,
	}
	for k, v := range card {
		if s, ok := v.(string); ok {
			row.Values[k] = s
		}
	}
	switch code := card["code"].(type) {
	case string:
		row.Code = code
	case json.Number:
		row.Code = code.String()
	}
	return row
}
