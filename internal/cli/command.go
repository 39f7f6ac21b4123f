package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/cardtrans/internal"
)

// configKeys maps viper keys to the flags bound to them
var configKeys = []struct {
	key  string
	flag string
}{
	{"output.directory", "output"},
	{"source.packs", "packs"},
	{"log.level", "log-level"},
	{"translate.fields", "fields"},
	{"translate.source_lang", "source-lang"},
	{"translate.target_lang", "target-lang"},
	{"translate.suffix", "suffix"},
	{"translate.provider", "provider"},
	{"translate.model", "model"},
	{"translate.base_url", "base-url"},
	{"translate.seed", "seed"},
	{"translate.timeout", "timeout"},
	{"translate.skip_target_language", "skip-target-language"},
	{"glossary.files", "glossary"},
	{"glossary.version", "glossary-version"},
	{"cache.path", "cache"},
	{"batch.size", "batch-size"},
	{"batch.chars", "batch-chars"},
	{"batch.concurrency", "concurrency"},
	{"rate.requests", "rate"},
	{"rate.interval", "rate-interval"},
	{"retry.max_attempts", "max-retries"},
}

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cardtrans [source-dir]",
		Short: "Card text translator with glossary protection and a resumable cache",
		Long: `cardtrans translates the free-text fields of card pack JSON files with
a language model. Glossary terms are protected with placeholders, results are
cached by fingerprint in a local SQLite database, and interrupted runs resume
where they stopped.

Examples:
  cardtrans                               # Translate ./source into ./out
  cardtrans packs/ --packs tde,win        # Only packs whose name matches
  cardtrans --dry-run                     # Show the batches that would be sent
  cardtrans --extract-only                # Write out/output.csv and stop
  cardtrans --provider ollama --model qwen2.5`,
		Args:    cobra.MaximumNArgs(1),
		Version: internal.Version,
	}

	// Set up flags
	setupFlags(rootCmd, flags)

	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	// Global flags
	cmd.PersistentFlags().StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.cardtrans.yaml)")

	// Local flags
	cmd.Flags().StringVarP(&flags.OutputDir, "output", "o", flags.OutputDir, "Output directory")
	cmd.Flags().StringVar(&flags.Packs, "packs", "", "Comma separated pack name filter (e.g. tde,win)")
	cmd.Flags().StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn, error")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "Plan batches and write review CSVs without calling the model")
	cmd.Flags().BoolVar(&flags.ListModels, "list-models", false, "List models available to the configured provider")
	cmd.Flags().BoolVar(&flags.ExtractOnly, "extract-only", false, "Only flatten the packs into output.csv")
	cmd.Flags().BoolVar(&flags.PurgeCache, "purge-cache", false, "Archive the cache and drop entries of other glossary versions")

	// Translation flags
	cmd.Flags().StringVar(&flags.Fields, "fields", flags.Fields, "Comma separated card fields to translate")
	cmd.Flags().StringVar(&flags.SourceLang, "source-lang", flags.SourceLang, "Source language tag")
	cmd.Flags().StringVar(&flags.TargetLang, "target-lang", flags.TargetLang, "Target language tag")
	cmd.Flags().StringVar(&flags.Suffix, "suffix", flags.Suffix, "Suffix of translated fields in the output (name_<suffix>)")
	cmd.Flags().StringVar(&flags.Provider, "provider", flags.Provider, "Model provider: openai, gemini or ollama")
	cmd.Flags().StringVar(&flags.Model, "model", "", "Model name (default depends on the provider)")
	cmd.Flags().StringVar(&flags.BaseURL, "base-url", "", "Override the provider endpoint")
	cmd.Flags().IntVar(&flags.Seed, "seed", flags.Seed, "Sampling seed sent with every request")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", flags.Timeout, "Timeout of a single model call")
	cmd.Flags().BoolVar(&flags.SkipTargetLanguage, "skip-target-language", false, "Leave text that already reads as the target language")

	// Glossary and cache flags
	cmd.Flags().StringSliceVar(&flags.GlossaryFiles, "glossary", flags.GlossaryFiles, "Glossary files (JSON or YAML), later files may not redefine terms")
	cmd.Flags().StringVar(&flags.GlossaryVersion, "glossary-version", "", "Glossary version tag (default is a content hash)")
	cmd.Flags().StringVar(&flags.CachePath, "cache", flags.CachePath, "SQLite cache file")

	// Scheduling flags
	cmd.Flags().IntVar(&flags.BatchSize, "batch-size", flags.BatchSize, "Maximum units per request")
	cmd.Flags().IntVar(&flags.BatchChars, "batch-chars", flags.BatchChars, "Maximum characters per request")
	cmd.Flags().IntVar(&flags.Concurrency, "concurrency", flags.Concurrency, "Requests in flight at once")
	cmd.Flags().IntVar(&flags.RateRequests, "rate", flags.RateRequests, "Requests allowed per rate interval (0 disables the limit)")
	cmd.Flags().DurationVar(&flags.RateInterval, "rate-interval", flags.RateInterval, "Rate limit interval")
	cmd.Flags().IntVar(&flags.MaxRetries, "max-retries", flags.MaxRetries, "Attempts per batch before giving up")

	// Bind flags to viper
	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	for _, k := range configKeys {
		viper.BindPFlag(k.key, cmd.Flags().Lookup(k.flag))
	}
}

// ApplyConfig copies values from the config file and environment into the
// flags the user did not set on the command line
func ApplyConfig(cmd *cobra.Command) {
	for _, k := range configKeys {
		f := cmd.Flags().Lookup(k.flag)
		if f == nil || f.Changed || !viper.IsSet(k.key) {
			continue
		}
		var value string
		if f.Value.Type() == "stringSlice" {
			value = strings.Join(viper.GetStringSlice(k.key), ",")
		} else {
			value = viper.GetString(k.key)
		}
		if err := cmd.Flags().Set(k.flag, value); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: ignoring config value %s=%q: %v\n", k.key, value, err)
		}
	}
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".cardtrans" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".cardtrans")
	}

	// Environment variables, CARDTRANS_BATCH_SIZE for batch.size
	viper.SetEnvPrefix("CARDTRANS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// GetAPIKey retrieves the API key of provider from environment or config
func GetAPIKey(provider string) string {
	switch provider {
	case "gemini":
		for _, env := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
			if key := os.Getenv(env); key != "" {
				return key
			}
		}
		return viper.GetString("translate.gemini_key")
	case "ollama":
		return ""
	default:
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			return key
		}
		return viper.GetString("translate.openai_key")
	}
}
