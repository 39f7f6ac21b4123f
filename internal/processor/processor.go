package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"codeberg.org/snonux/cardtrans/internal"
	"codeberg.org/snonux/cardtrans/internal/archive"
	"codeberg.org/snonux/cardtrans/internal/batch"
	"codeberg.org/snonux/cardtrans/internal/cache"
	"codeberg.org/snonux/cardtrans/internal/cards"
	"codeberg.org/snonux/cardtrans/internal/cli"
	"codeberg.org/snonux/cardtrans/internal/export"
	"codeberg.org/snonux/cardtrans/internal/glossary"
	"codeberg.org/snonux/cardtrans/internal/models"
	"codeberg.org/snonux/cardtrans/internal/pipeline"
	"codeberg.org/snonux/cardtrans/internal/ratelimit"
	"codeberg.org/snonux/cardtrans/internal/translation"
)

// Processor handles one invocation of the command
type Processor struct {
	flags *cli.Flags
	log   *logrus.Logger
	out   io.Writer
	clock clock.Clock

	// backend replaces the provider named in flags when set
	backend translation.Backend
	// translator replaces the whole adapter when set
	translator pipeline.Translator
}

// NewProcessor creates a new processor
func NewProcessor(flags *cli.Flags, log *logrus.Logger) *Processor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Processor{
		flags: flags,
		log:   log,
		out:   os.Stdout,
		clock: clock.New(),
	}
}

// Run extracts the packs and translates them, or only flattens them when
// ExtractOnly is set. The returned report is nil for extract-only runs.
func (p *Processor) Run(ctx context.Context) (*pipeline.Report, error) {
	rows, err := cards.Extract(p.flags.SourceDir, cards.Options{
		Packs:  internal.SplitList(p.flags.Packs),
		Logger: p.log,
	})
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(p.out, "Loaded %d cards from %s\n", len(rows), p.flags.SourceDir)

	if err := os.MkdirAll(p.flags.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	if p.flags.ExtractOnly {
		path := filepath.Join(p.flags.OutputDir, "output.csv")
		if err := cards.WriteCSV(path, rows, cards.ExtractFields); err != nil {
			return nil, err
		}
		fmt.Fprintf(p.out, "Flat card export written to: %s\n", path)
		return nil, nil
	}

	ix, err := p.loadGlossary()
	if err != nil {
		return nil, err
	}

	store, err := p.openCache(ctx, ix)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	tr, model, err := p.buildTranslator(ctx)
	if err != nil {
		return nil, err
	}

	runID, err := store.StartRun(ctx, p.flags.DryRun)
	if err != nil {
		return nil, err
	}
	log := p.log.WithField("run", runID)
	log.WithFields(logrus.Fields{
		"model":    model,
		"glossary": ix.Version(),
		"cards":    len(rows),
	}).Info("starting translation run")

	cfg := p.pipelineConfig(model, log)
	gate := ratelimit.NewGate(p.flags.RateRequests, p.flags.RateInterval, p.clock)
	res, runErr := pipeline.New(cfg, ix, tr, store, gate).Run(ctx, rows)
	res.Report.RunID = runID

	// the run record is written even when ctx was cancelled
	if err := store.FinishRun(context.WithoutCancel(ctx), runID, runStats(res.Report, runErr)); err != nil {
		log.Warnf("failed to record run: %v", err)
	}

	exporter := export.NewExporter(&export.Options{
		OutputDir: p.flags.OutputDir,
		Suffix:    p.flags.Suffix,
		Fields:    cfg.Fields,
		SkipJSON:  p.flags.DryRun,
	})
	summary, err := exporter.Export(rows, res)
	if err != nil {
		return &res.Report, errors.Join(runErr, fmt.Errorf("export failed: %w", err))
	}

	p.printPlan(res)
	p.printSummary(res.Report, summary)
	return &res.Report, runErr
}

// ListModels prints the models of the configured provider
func (p *Processor) ListModels(ctx context.Context) error {
	backend := p.backend
	if backend == nil {
		var err error
		backend, err = translation.NewBackend(ctx, p.backendConfig())
		if err != nil {
			return err
		}
	}
	source, ok := backend.(models.Source)
	if !ok {
		return fmt.Errorf("listing models is not supported for provider %s", backend.Name())
	}
	return models.NewLister(source, p.out).ListAvailableModels(ctx)
}

// loadGlossary reads the glossary files. A missing default glossary falls
// back to the built-in terms; any other problem is a configuration error.
func (p *Processor) loadGlossary() (*glossary.Index, error) {
	files := p.flags.GlossaryFiles
	if len(files) == 1 {
		if _, err := os.Stat(files[0]); os.IsNotExist(err) {
			p.log.WithField("file", files[0]).Warn("glossary file not found, using the built-in glossary")
			return glossary.New(glossary.Default(), p.flags.GlossaryVersion)
		}
	}
	ix, err := glossary.Load(files, p.flags.GlossaryVersion)
	if err != nil {
		return nil, err
	}
	p.log.WithFields(logrus.Fields{"terms": ix.Len(), "version": ix.Version()}).Debug("glossary loaded")
	return ix, nil
}

// openCache opens the cache, archiving it and dropping entries of other
// glossary versions first when PurgeCache is set
func (p *Processor) openCache(ctx context.Context, ix *glossary.Index) (*cache.Store, error) {
	path := p.flags.CachePath
	purge := p.flags.PurgeCache && !p.flags.DryRun
	if purge {
		if _, err := os.Stat(path); err == nil {
			archived, err := archive.ArchiveCache(path)
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(p.out, "Cache archived to: %s\n", archived)
		}
	}

	store, err := cache.Open(path, cache.WithClock(p.clock), cache.WithLogger(p.log))
	if err != nil {
		return nil, err
	}
	if purge {
		n, err := store.PurgeExcept(ctx, ix.Version())
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("purge cache: %w", err)
		}
		fmt.Fprintf(p.out, "Purged %d cache entries of other glossary versions\n", n)
	}
	return store, nil
}

// buildTranslator returns the adapter and the model name that goes into
// every fingerprint
func (p *Processor) buildTranslator(ctx context.Context) (pipeline.Translator, string, error) {
	if p.translator != nil {
		model := p.flags.Model
		if model == "" {
			model = translation.DefaultModel(p.flags.Provider)
		}
		return p.translator, model, nil
	}

	backend := p.backend
	if backend == nil {
		var err error
		if backend, err = translation.NewBackend(ctx, p.backendConfig()); err != nil {
			return nil, "", err
		}
	}

	opts := translation.DefaultAdapterOptions()
	opts.Timeout = p.flags.Timeout
	opts.Logger = p.log
	return translation.NewTranslator(backend, opts), backend.Model(), nil
}

func (p *Processor) backendConfig() translation.Config {
	return translation.Config{
		Provider: p.flags.Provider,
		Model:    p.flags.Model,
		APIKey:   cli.GetAPIKey(p.flags.Provider),
		BaseURL:  p.flags.BaseURL,
		Seed:     p.flags.Seed,
	}
}

func (p *Processor) pipelineConfig(model string, log logrus.FieldLogger) pipeline.Config {
	cfg := pipeline.DefaultConfig()
	if fields := internal.SplitList(p.flags.Fields); len(fields) > 0 {
		cfg.Fields = fields
	}
	cfg.Pair = translation.LanguagePair{Source: p.flags.SourceLang, Target: p.flags.TargetLang}
	cfg.Model = model
	cfg.Batch = batch.Limit{MaxUnits: p.flags.BatchSize, MaxChars: p.flags.BatchChars}
	cfg.Concurrency = p.flags.Concurrency
	cfg.Retry.MaxAttempts = p.flags.MaxRetries
	cfg.DryRun = p.flags.DryRun
	cfg.SkipTargetLanguage = p.flags.SkipTargetLanguage
	cfg.Clock = p.clock
	cfg.Logger = log
	cfg.OnBatch = func(done, total int) {
		fmt.Fprintf(p.out, "  batch %d/%d done\n", done, total)
	}
	return cfg
}

func runStats(rep pipeline.Report, runErr error) cache.RunStats {
	status := "done"
	switch {
	case errors.Is(runErr, context.Canceled):
		status = "interrupted"
	case runErr != nil:
		status = "failed"
	}
	return cache.RunStats{
		Status:     status,
		Units:      rep.Units,
		Translated: rep.Translated,
		CacheHits:  rep.CacheHits,
		Failed:     rep.Failed,
		Calls:      rep.Calls,
	}
}

func (p *Processor) printPlan(res *pipeline.Result) {
	if !res.Report.DryRun {
		return
	}
	fmt.Fprintf(p.out, "\nDry run, %d batches would be sent:\n", len(res.Plan))
	for i, b := range res.Plan {
		fmt.Fprintf(p.out, "  batch %d: %d units, %d chars\n", i+1, len(b.Units), b.Chars)
	}
}

// printSummary prints the end-of-run counters
func (p *Processor) printSummary(rep pipeline.Report, summary *export.Summary) {
	fmt.Fprintf(p.out, "\n=== Translation Summary ===\n")
	fmt.Fprintf(p.out, "Units: %d (%d requests in %s)\n", rep.Units, rep.Calls, rep.Duration.Round(time.Millisecond))
	color.New(color.FgGreen).Fprintf(p.out, "Translated: %d\n", rep.Translated)
	color.New(color.FgCyan).Fprintf(p.out, "Cached: %d\n", rep.CacheHits)
	if rep.Failed > 0 {
		color.New(color.FgRed).Fprintf(p.out, "Failed: %d\n", rep.Failed)
	} else {
		fmt.Fprintf(p.out, "Failed: 0\n")
	}
	fmt.Fprintf(p.out, "Skipped: %d\n", rep.Skipped)
	if rep.Warnings > 0 {
		color.New(color.FgYellow).Fprintf(p.out, "Cache warnings: %d\n", rep.Warnings)
	}
	for _, f := range summary.JSONFiles {
		fmt.Fprintf(p.out, "Wrote %s\n", f)
	}
	for _, f := range summary.CSVFiles {
		fmt.Fprintf(p.out, "Wrote %s\n", f)
	}
	fmt.Fprintf(p.out, "===========================\n")
}
