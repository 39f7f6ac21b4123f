package cli

import (
	"time"
)

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile     string
	SourceDir   string
	OutputDir   string
	Packs       string
	LogLevel    string
	DryRun      bool
	ListModels  bool
	ExtractOnly bool
	PurgeCache  bool

	// Translation flags
	Fields             string
	SourceLang         string
	TargetLang         string
	Suffix             string
	Provider           string
	Model              string
	BaseURL            string
	Seed               int
	Timeout            time.Duration
	SkipTargetLanguage bool

	// Glossary and cache flags
	GlossaryFiles   []string
	GlossaryVersion string
	CachePath       string

	// Scheduling flags
	BatchSize    int
	BatchChars   int
	Concurrency  int
	RateRequests int
	RateInterval time.Duration
	MaxRetries   int
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		SourceDir:     "source",
		OutputDir:     "out",
		LogLevel:      "info",
		Fields:        "name,subname,text,flavor,traits",
		SourceLang:    "en",
		TargetLang:    "pt-BR",
		Suffix:        "pt",
		Provider:      "openai",
		Seed:          42,
		Timeout:       2 * time.Minute,
		GlossaryFiles: []string{"glossary.json"},
		CachePath:     ".cache.sqlite",
		BatchSize:     20,
		BatchChars:    6000,
		Concurrency:   2,
		RateRequests:  30,
		RateInterval:  time.Minute,
		MaxRetries:    5,
	}
}
