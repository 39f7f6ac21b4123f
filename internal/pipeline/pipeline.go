package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"codeberg.org/snonux/cardtrans/internal/batch"
	"codeberg.org/snonux/cardtrans/internal/cache"
	"codeberg.org/snonux/cardtrans/internal/cards"
	"codeberg.org/snonux/cardtrans/internal/glossary"
	"codeberg.org/snonux/cardtrans/internal/lang"
	"codeberg.org/snonux/cardtrans/internal/placeholder"
	"codeberg.org/snonux/cardtrans/internal/translation"
	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

// Pipeline runs translations. A Pipeline may run several times; runs must
// not overlap.
type Pipeline struct {
	cfg        Config
	glossary   *glossary.Index
	translator Translator
	cache      Cache
	gate       Gate
	clock      clock.Clock
	log        logrus.FieldLogger

	stage Stage
	mu    sync.Mutex
	calls int
	warns int
}

var errNotDispatched = errors.New("not translated: run stopped before this unit was sent")

// group is the set of units sharing one fingerprint. Only one request is
// made per group.
type group struct {
	fp     string
	source string
	masked string
	rm     placeholder.RestoreMap
	units  []int

	text   string
	status Status
	err    error
}

// New creates a pipeline. gate may be nil for unlimited dispatch.
func New(cfg Config, ix *glossary.Index, tr Translator, c Cache, gate Gate) *Pipeline {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if len(cfg.Fields) == 0 {
		cfg.Fields = cards.TranslatableFields
	}
	return &Pipeline{
		cfg:        cfg,
		glossary:   ix,
		translator: tr,
		cache:      c,
		gate:       gate,
		clock:      cfg.Clock,
		log:        cfg.Logger,
	}
}

// BuildUnits creates one unit per non-blank configured field, rows first.
// Rows are keyed with cards.Keys.
func BuildUnits(rows []cards.Row, fields []string, pair translation.LanguagePair) []Unit {
	var units []Unit
	keys := cards.Keys(rows)
	for i, row := range rows {
		key := keys[i]
		for _, field := range fields {
			text, ok := row.Values[field]
			if !ok || strings.TrimSpace(text) == "" {
				continue
			}
			units = append(units, Unit{
				ID:     key + "/" + field,
				RowKey: key,
				Field:  field,
				Source: text,
				Pair:   pair,
			})
		}
	}
	return units
}

// Run translates rows. Every unit gets an outcome, even when the run is
// aborted; the returned error is non-nil only for cache failures, fatal
// translator errors and cancellation, and the partial Result is returned
// alongside it.
func (p *Pipeline) Run(ctx context.Context, rows []cards.Row) (*Result, error) {
	start := p.clock.Now()
	p.calls, p.warns = 0, 0

	p.enter(StageLoading)
	units := BuildUnits(rows, p.cfg.Fields, p.cfg.Pair)
	res := &Result{
		Outcomes: make([]Outcome, len(units)),
		index:    make(map[string]int, len(units)),
	}
	for i, u := range units {
		res.Outcomes[i] = Outcome{Unit: u, Text: u.Source}
		res.index[u.ID] = i
	}

	p.enter(StageMasking)
	groups := p.group(units, res)

	p.enter(StageCacheLookup)
	pending, err := p.lookup(ctx, groups)
	if err != nil {
		return p.finish(res, groups, start, fmt.Errorf("cache lookup: %w", err))
	}

	p.enter(StageBatching)
	batches := batch.Make(pending, func(g *group) int {
		return utf8.RuneCountInString(g.masked)
	}, p.cfg.Batch)
	res.Report.Batches = len(batches)

	var runErr error
	if p.cfg.DryRun {
		res.Plan = plan(batches, units)
		for _, g := range pending {
			g.status = StatusPending
		}
	} else if len(batches) > 0 {
		p.enter(StageDispatching)
		runErr = p.dispatch(ctx, batches)
	}

	return p.finish(res, groups, start, runErr)
}

// group masks and fingerprints every unit and merges identical fingerprints
func (p *Pipeline) group(units []Unit, res *Result) []*group {
	version := p.glossary.Version()
	byFP := make(map[string]*group)
	var groups []*group

	for i, u := range units {
		if p.cfg.SkipTargetLanguage && lang.IsLanguage(u.Source, u.Pair.Source, u.Pair.Target, lang.MinConfidence) {
			res.Outcomes[i].Status = StatusSkipped
			continue
		}

		fp := cache.Fingerprint(u.Source, u.Pair.Source, u.Pair.Target, p.cfg.Model, version)
		res.Outcomes[i].Fingerprint = fp
		if g, ok := byFP[fp]; ok {
			g.units = append(g.units, i)
			continue
		}

		masked, rm := placeholder.Mask(u.Source, p.glossary)
		g := &group{fp: fp, source: u.Source, masked: masked, rm: rm, units: []int{i}}
		byFP[fp] = g
		groups = append(groups, g)
	}

	p.log.WithFields(logrus.Fields{
		"units":  len(units),
		"unique": len(groups),
	}).Debug("units masked")
	return groups
}

// lookup fills cache hits and returns the groups still to translate
func (p *Pipeline) lookup(ctx context.Context, groups []*group) ([]*group, error) {
	fps := make([]string, len(groups))
	for i, g := range groups {
		fps[i] = g.fp
	}
	hits, err := p.cache.GetMany(ctx, fps)
	if err != nil {
		return nil, err
	}

	var pending []*group
	for _, g := range groups {
		if rec, ok := hits[g.fp]; ok {
			g.text = rec.Translated
			g.status = StatusCached
			continue
		}
		pending = append(pending, g)
	}
	return pending, nil
}

// finish merges group results into outcomes and completes the report
func (p *Pipeline) finish(res *Result, groups []*group, start time.Time, runErr error) (*Result, error) {
	p.enter(StageMerging)

	for _, g := range groups {
		status, err := g.status, g.err
		if status == 0 {
			status = StatusFailed
			if err == nil {
				err = errNotDispatched
			}
		}
		for _, i := range g.units {
			o := &res.Outcomes[i]
			o.Status, o.Err = status, err
			switch status {
			case StatusFailed, StatusPending:
				// merged units may differ in surrounding whitespace
				o.Text = o.Unit.Source
			default:
				o.Text = g.text
			}
		}
	}

	rep := &res.Report
	rep.Units = len(res.Outcomes)
	rep.DryRun = p.cfg.DryRun
	for _, o := range res.Outcomes {
		switch o.Status {
		case StatusTranslated:
			rep.Translated++
		case StatusCached:
			rep.CacheHits++
		case StatusFailed:
			rep.Failed++
		case StatusSkipped:
			rep.Skipped++
		}
	}
	p.mu.Lock()
	rep.Calls, rep.Warnings = p.calls, p.warns
	p.mu.Unlock()

	if runErr != nil {
		p.enter(StageFailed)
	} else {
		p.enter(StageDone)
	}
	rep.Stage = p.stage
	rep.Duration = p.clock.Since(start)
	return res, runErr
}

func (p *Pipeline) enter(s Stage) {
	p.stage = s
	p.log.WithField("stage", s.String()).Debug("pipeline stage")
	if p.cfg.OnStage != nil {
		p.cfg.OnStage(s)
	}
}

func plan(batches [][]*group, units []Unit) []PlannedBatch {
	out := make([]PlannedBatch, 0, len(batches))
	for _, b := range batches {
		var pb PlannedBatch
		for _, g := range b {
			pb.Texts = append(pb.Texts, g.masked)
			pb.Chars += utf8.RuneCountInString(g.masked)
			for _, i := range g.units {
				pb.Units = append(pb.Units, units[i].ID)
			}
		}
		out = append(out, pb)
	}
	return out
}
