// Package export writes the results of a run: one translated JSON file per
// pack and a review CSV listing every unit with its status.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"codeberg.org/snonux/cardtrans/internal"
	"codeberg.org/snonux/cardtrans/internal/cards"
	"codeberg.org/snonux/cardtrans/internal/pipeline"
)

// ReviewHeader is the column layout of the review CSV
var ReviewHeader = []string{"code", "field", "source", "translation", "status", "pack_file"}

// Options configures the export
type Options struct {
	OutputDir string   // Directory receiving <pack>.json
	CSVDir    string   // Directory receiving <pack>_<suffix>.csv, defaults to OutputDir/csv
	Suffix    string   // Appended to translated field names, e.g. name_pt
	Fields    []string // Fields that were translated
	SkipJSON  bool     // Only write the review CSVs (dry run)
}

// DefaultOptions returns sensible defaults
func DefaultOptions() *Options {
	return &Options{
		OutputDir: "out",
		Suffix:    "pt",
		Fields:    cards.TranslatableFields,
	}
}

// Summary lists the files written
type Summary struct {
	JSONFiles []string
	CSVFiles  []string
}

// Exporter writes translated packs
type Exporter struct {
	options *Options
}

// NewExporter creates a new exporter
func NewExporter(options *Options) *Exporter {
	if options == nil {
		options = DefaultOptions()
	}
	return &Exporter{options: options}
}

func (e *Exporter) csvDir() string {
	if e.options.CSVDir != "" {
		return e.options.CSVDir
	}
	return filepath.Join(e.options.OutputDir, "csv")
}

// Export writes every pack found in rows, which must be the rows the
// pipeline ran on. Rows keep their pack order.
func (e *Exporter) Export(rows []cards.Row, res *pipeline.Result) (*Summary, error) {
	packs, order := groupByPack(rows)
	summary := &Summary{}

	for _, pack := range order {
		packRows := packs[pack]
		name := internal.SanitizeFilename(pack)

		if !e.options.SkipJSON {
			path := filepath.Join(e.options.OutputDir, name+".json")
			if err := e.writeJSON(path, packRows, res); err != nil {
				return summary, err
			}
			summary.JSONFiles = append(summary.JSONFiles, path)
		}

		path := filepath.Join(e.csvDir(), fmt.Sprintf("%s_%s.csv", name, e.options.Suffix))
		if err := e.writeReview(path, packRows, res); err != nil {
			return summary, err
		}
		summary.CSVFiles = append(summary.CSVFiles, path)
	}
	return summary, nil
}

// keyedRow is a row with the unit key the pipeline gave it
type keyedRow struct {
	cards.Row
	key string
}

// TranslatedCard returns the card of row with translated fields added. key
// is the row's entry in cards.Keys.
func (e *Exporter) TranslatedCard(row cards.Row, key string, res *pipeline.Result) map[string]any {
	card := make(map[string]any, len(row.Raw)+len(e.options.Fields))
	for k, v := range row.Raw {
		card[k] = v
	}
	for _, field := range e.options.Fields {
		o, ok := res.Get(key, field)
		if !ok {
			continue
		}
		card[field+"_"+e.options.Suffix] = o.Text
		if o.Status == pipeline.StatusFailed {
			card[field+"_status"] = o.Status.String()
		}
	}
	return card
}

func (e *Exporter) writeJSON(path string, rows []keyedRow, res *pipeline.Result) error {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, e.TranslatedCard(row.Row, row.key, res))
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (e *Exporter) writeReview(path string, rows []keyedRow, res *pipeline.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create CSV directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(ReviewHeader); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for _, row := range rows {
		for _, field := range e.options.Fields {
			o, ok := res.Get(row.key, field)
			if !ok {
				continue
			}
			record := []string{row.Code, field, o.Unit.Source, o.Text, o.Status.String(), row.File}
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write unit %s: %w", o.Unit.ID, err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return file.Close()
}

func groupByPack(rows []cards.Row) (map[string][]keyedRow, []string) {
	keys := cards.Keys(rows)
	packs := make(map[string][]keyedRow)
	var order []string
	for i, row := range rows {
		if _, ok := packs[row.Pack]; !ok {
			order = append(order, row.Pack)
		}
		packs[row.Pack] = append(packs[row.Pack], keyedRow{Row: row, key: keys[i]})
	}
	for _, pack := range order {
		sort.SliceStable(packs[pack], func(i, j int) bool {
			return packs[pack][i].Index < packs[pack][j].Index
		})
	}
	return packs, order
}
