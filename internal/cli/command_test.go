package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func TestCreateRootCommand(t *testing.T) {
	flags := NewFlags()
	cmd := CreateRootCommand(flags)

	// Test basic command properties
	if cmd.Use != "cardtrans [source-dir]" {
		t.Errorf("Expected Use to be 'cardtrans [source-dir]', got %s", cmd.Use)
	}

	if !strings.Contains(cmd.Short, "translator") {
		t.Errorf("Expected Short description to mention the translator")
	}

	// Test that flags are set up
	flagNames := []string{
		"config", "output", "packs", "log-level", "dry-run", "list-models",
		"extract-only", "purge-cache", "fields", "source-lang", "target-lang",
		"suffix", "provider", "model", "base-url", "seed", "timeout",
		"skip-target-language", "glossary", "glossary-version", "cache",
		"batch-size", "batch-chars", "concurrency", "rate", "rate-interval",
		"max-retries",
	}

	for _, name := range flagNames {
		t.Run("flag_"+name, func(t *testing.T) {
			var flag *pflag.Flag
			if name == "config" {
				flag = cmd.PersistentFlags().Lookup(name)
			} else {
				flag = cmd.Flags().Lookup(name)
			}
			if flag == nil {
				t.Errorf("Expected flag %s to exist", name)
			}
		})
	}
}

func TestSetupFlags(t *testing.T) {
	cmd := &cobra.Command{}
	flags := NewFlags()

	setupFlags(cmd, flags)

	tests := map[string]string{
		"output":      "out",
		"cache":       ".cache.sqlite",
		"target-lang": "pt-BR",
		"rate":        "30",
		"glossary":    "[glossary.json]",
	}
	for name, want := range tests {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			t.Fatalf("%s flag not found", name)
		}
		if f.DefValue != want {
			t.Errorf("default of --%s = %s, want %s", name, f.DefValue, want)
		}
	}
}

func TestInitConfig(t *testing.T) {
	// Save original viper state
	originalConfig := viper.New()
	*originalConfig = *viper.GetViper()
	defer func() {
		*viper.GetViper() = *originalConfig
	}()

	tests := []struct {
		name      string
		setupFunc func(t *testing.T) string
	}{
		{
			name: "with config file",
			setupFunc: func(t *testing.T) string {
				tmpDir := t.TempDir()
				cfgPath := filepath.Join(tmpDir, "test-config.yaml")
				content := `translate:
  provider: gemini
  gemini_key: test-key
batch:
  size: 5`
				if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
					t.Fatalf("Failed to create test config: %v", err)
				}
				return cfgPath
			},
		},
		{
			name: "without config file",
			setupFunc: func(t *testing.T) string {
				return ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Reset viper for each test
			viper.Reset()

			cfgPath := tt.setupFunc(t)
			InitConfig(cfgPath)

			if cfgPath != "" && viper.GetInt("batch.size") != 5 {
				t.Errorf("batch.size = %d, want 5", viper.GetInt("batch.size"))
			}

			// Test environment variable prefix and key replacer
			t.Setenv("CARDTRANS_TEST_VAR", "test-value")
			t.Setenv("CARDTRANS_RATE_REQUESTS", "12")

			if viper.GetString("test_var") != "test-value" {
				t.Error("Environment variable not properly loaded")
			}
			if viper.GetInt("rate.requests") != 12 {
				t.Errorf("rate.requests = %d, want 12 from environment", viper.GetInt("rate.requests"))
			}
		})
	}
}

func TestApplyConfig(t *testing.T) {
	originalConfig := viper.New()
	*originalConfig = *viper.GetViper()
	defer func() {
		*viper.GetViper() = *originalConfig
	}()
	viper.Reset()

	flags := NewFlags()
	cmd := CreateRootCommand(flags)
	if err := cmd.Flags().Set("batch-size", "7"); err != nil {
		t.Fatal(err)
	}

	viper.Set("batch.size", 99)
	viper.Set("translate.provider", "ollama")
	viper.Set("rate.interval", "30s")
	viper.Set("glossary.files", []string{"a.json", "b.yaml"})

	ApplyConfig(cmd)

	if flags.BatchSize != 7 {
		t.Errorf("BatchSize = %d, command line should win", flags.BatchSize)
	}
	if flags.Provider != "ollama" {
		t.Errorf("Provider = %q, want ollama from config", flags.Provider)
	}
	if flags.RateInterval != 30*time.Second {
		t.Errorf("RateInterval = %v, want 30s", flags.RateInterval)
	}
	if strings.Join(flags.GlossaryFiles, ",") != "a.json,b.yaml" {
		t.Errorf("GlossaryFiles = %v", flags.GlossaryFiles)
	}
}

func TestGetAPIKey(t *testing.T) {
	// Save original viper state
	originalConfig := viper.New()
	*originalConfig = *viper.GetViper()
	defer func() {
		*viper.GetViper() = *originalConfig
	}()

	tests := []struct {
		name      string
		provider  string
		envName   string
		envKey    string
		configKey string
		configVal string
		expected  string
	}{
		{
			name:      "openai from environment",
			provider:  "openai",
			envName:   "OPENAI_API_KEY",
			envKey:    "env-test-key",
			configKey: "translate.openai_key",
			configVal: "config-test-key",
			expected:  "env-test-key",
		},
		{
			name:      "openai from config when no env",
			provider:  "openai",
			configKey: "translate.openai_key",
			configVal: "config-test-key",
			expected:  "config-test-key",
		},
		{
			name:     "gemini from environment",
			provider: "gemini",
			envName:  "GEMINI_API_KEY",
			envKey:   "gemini-key",
			expected: "gemini-key",
		},
		{
			name:      "ollama needs no key",
			provider:  "ollama",
			configKey: "translate.openai_key",
			configVal: "config-test-key",
			expected:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			for _, env := range []string{"OPENAI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"} {
				t.Setenv(env, "")
			}
			if tt.envName != "" {
				t.Setenv(tt.envName, tt.envKey)
			}
			if tt.configKey != "" {
				viper.Set(tt.configKey, tt.configVal)
			}

			if got := GetAPIKey(tt.provider); got != tt.expected {
				t.Errorf("GetAPIKey(%s) = %v, want %v", tt.provider, got, tt.expected)
			}
		})
	}
}

func TestBindFlagsToViper(t *testing.T) {
	// Save original viper state
	originalConfig := viper.New()
	*originalConfig = *viper.GetViper()
	defer func() {
		*viper.GetViper() = *originalConfig
	}()

	// Reset viper
	viper.Reset()

	cmd := &cobra.Command{}
	flags := NewFlags()
	setupFlags(cmd, flags)

	// Set some flag values
	cmd.Flags().Set("output", "/test/output")
	cmd.Flags().Set("model", "gpt-4o")
	cmd.Flags().Set("batch-chars", "1234")

	bindFlagsToViper(cmd)

	if viper.GetString("output.directory") != "/test/output" {
		t.Errorf("Expected output.directory to be /test/output, got %s", viper.GetString("output.directory"))
	}
	if viper.GetString("translate.model") != "gpt-4o" {
		t.Errorf("Expected translate.model to be gpt-4o, got %s", viper.GetString("translate.model"))
	}
	if viper.GetInt("batch.chars") != 1234 {
		t.Errorf("Expected batch.chars to be 1234, got %d", viper.GetInt("batch.chars"))
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug")
	if err != nil {
		t.Fatal(err)
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v, want debug", logger.GetLevel())
	}
	if _, err := NewLogger("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
