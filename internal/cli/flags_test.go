package cli

import (
	"reflect"
	"testing"
	"time"
)

func TestNewFlags(t *testing.T) {
	flags := NewFlags()

	// Test default values
	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"SourceDir", flags.SourceDir, "source"},
		{"OutputDir", flags.OutputDir, "out"},
		{"Fields", flags.Fields, "name,subname,text,flavor,traits"},
		{"SourceLang", flags.SourceLang, "en"},
		{"TargetLang", flags.TargetLang, "pt-BR"},
		{"Suffix", flags.Suffix, "pt"},
		{"Provider", flags.Provider, "openai"},
		{"GlossaryFiles", flags.GlossaryFiles, []string{"glossary.json"}},
		{"CachePath", flags.CachePath, ".cache.sqlite"},
		{"RateRequests", flags.RateRequests, 30},
		{"RateInterval", flags.RateInterval, time.Minute},
		{"MaxRetries", flags.MaxRetries, 5},
		{"BatchSize", flags.BatchSize, 20},
		{"Timeout", flags.Timeout, 2 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.expected) {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}

	// Test boolean defaults (should be false)
	boolTests := []struct {
		name  string
		value bool
	}{
		{"DryRun", flags.DryRun},
		{"ListModels", flags.ListModels},
		{"ExtractOnly", flags.ExtractOnly},
		{"PurgeCache", flags.PurgeCache},
		{"SkipTargetLanguage", flags.SkipTargetLanguage},
	}

	for _, tt := range boolTests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value {
				t.Errorf("%s = %v, want false", tt.name, tt.value)
			}
		})
	}

	// Test string defaults (should be empty)
	stringTests := []struct {
		name  string
		value string
	}{
		{"CfgFile", flags.CfgFile},
		{"Packs", flags.Packs},
		{"Model", flags.Model},
		{"BaseURL", flags.BaseURL},
		{"GlossaryVersion", flags.GlossaryVersion},
	}

	for _, tt := range stringTests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Errorf("%s = %v, want empty string", tt.name, tt.value)
			}
		})
	}
}
