// Package pipeline drives one translation run: it turns card rows into
// units, masks glossary terms, skips what the cache already knows, batches
// the rest, sends the batches through the rate gate to the translator and
// merges every unit back into exactly one outcome.
package pipeline

import (
	"context"
	"time"

	"codeberg.org/snonux/cardtrans/internal/batch"
	"codeberg.org/snonux/cardtrans/internal/cache"
	"codeberg.org/snonux/cardtrans/internal/ratelimit"
	"codeberg.org/snonux/cardtrans/internal/translation"
	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

// Stage is a step of the run state machine
type Stage int

const (
	StageLoading Stage = iota
	StageMasking
	StageCacheLookup
	StageBatching
	StageDispatching
	StageMerging
	StageDone
	StageFailed
)

var stageNames = [...]string{
	"loading",
	"masking",
	"cache-lookup",
	"batching",
	"dispatching",
	"merging",
	"done",
	"failed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Status is the fate of one unit
type Status int

const (
	StatusTranslated Status = iota + 1
	StatusCached
	StatusFailed
	StatusSkipped
	StatusPending // dry run only
)

func (s Status) String() string {
	switch s {
	case StatusTranslated:
		return "translated"
	case StatusCached:
		return "cached"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	case StatusPending:
		return "pending"
	default:
		return "unknown"
	}
}

// Unit is one field of one card. ID is stable across runs.
type Unit struct {
	ID     string
	RowKey string
	Field  string
	Source string
	Pair   translation.LanguagePair
}

// Outcome is the output for one unit. Failed and skipped units carry the
// source text unchanged.
type Outcome struct {
	Unit        Unit
	Text        string
	Status      Status
	Fingerprint string
	Err         error
}

// PlannedBatch describes a request a dry run would have sent
type PlannedBatch struct {
	Units []string // unit IDs, duplicates included
	Texts []string // masked texts as they would be sent
	Chars int
}

// Report summarises a run
type Report struct {
	RunID      string
	Units      int
	Translated int
	CacheHits  int
	Failed     int
	Skipped    int
	Batches    int
	Calls      int
	Warnings   int
	Stage      Stage
	DryRun     bool
	Duration   time.Duration
}

// Result holds every outcome of a run in unit order
type Result struct {
	Outcomes []Outcome
	Plan     []PlannedBatch
	Report   Report

	index map[string]int
}

// Get returns the outcome for field of the row with rowKey
func (r *Result) Get(rowKey, field string) (Outcome, bool) {
	i, ok := r.index[rowKey+"/"+field]
	if !ok {
		return Outcome{}, false
	}
	return r.Outcomes[i], true
}

// Translator sends one batch of texts
type Translator interface {
	TranslateBatch(ctx context.Context, texts []string, pair translation.LanguagePair) ([]string, error)
}

// Cache is the durable fingerprint store
type Cache interface {
	GetMany(ctx context.Context, fps []string) (map[string]cache.Record, error)
	PutBatch(ctx context.Context, recs []cache.Record) ([]cache.ConsistencyWarning, error)
}

// Gate admits outbound calls
type Gate interface {
	Acquire(ctx context.Context) (ratelimit.Permit, error)
}

// Config controls a run
type Config struct {
	Fields      []string
	Pair        translation.LanguagePair
	Model       string // part of every fingerprint
	Batch       batch.Limit
	Concurrency int
	Retry       ratelimit.RetryPolicy
	// MaxSplits bounds how often a batch is halved after malformed replies
	MaxSplits int
	DryRun    bool
	// SkipTargetLanguage leaves units alone that already read as the target
	SkipTargetLanguage bool

	Clock  clock.Clock
	Logger logrus.FieldLogger
	// OnStage is called on every stage change
	OnStage func(Stage)
	// OnBatch is called after each dispatched batch finished
	OnBatch func(done, total int)
}

// DefaultConfig returns the settings the CLI starts from
func DefaultConfig() Config {
	return Config{
		Fields:      []string{"name", "subname", "text", "flavor", "traits"},
		Pair:        translation.LanguagePair{Source: "en", Target: "pt-BR"},
		Batch:       batch.Limit{MaxUnits: 20, MaxChars: 6000},
		Concurrency: 2,
		Retry:       ratelimit.DefaultRetryPolicy(),
		MaxSplits:   3,
	}
}
