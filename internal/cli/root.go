package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/reportwatch/internal/logging"
	"github.com/ppiankov/reportwatch/internal/model"
	"github.com/ppiankov/reportwatch/internal/validate"
)

// version is overridden at build time with -ldflags "-X .../internal/cli.version=..."
var version = "0.1.0"

var (
	cfgFile   string
	verbose   bool
	logFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "reportwatch",
	Short: "reportwatch - analyst report downloader, summarizer and sentiment scorer",
	Long: `reportwatch retrieves financial analyst reports from a fixed set of
institutional websites, extracts their text, writes a condensed summary
and a sentiment score per report, and merges the reports of each source
into one file.

Run sources once with 'reportwatch run', or start the web UI and the
periodic scheduler with 'reportwatch serve'.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx available to every subcommand
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("reportwatch v%s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.reportwatch/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console or json (overrides config)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// envKeys are the config keys that may be set through REPORTWATCH_* variables
var envKeys = []string{
	"http.timeout", "http.user_agent", "http.insecure_tls", "http.respect_robots",
	"http.http_proxy", "http.https_proxy", "http.no_proxy",
	"render.timeout", "render.headless", "render.exec_path",
	"storage.root", "storage.summary_dir",
	"summarizer.provider", "summarizer.model", "summarizer.api_key", "summarizer.base_url",
	"schedule.interval", "schedule.run_on_start",
	"server.addr",
	"cache.enabled", "cache.dir",
	"telemetry.enabled",
	"log.level", "log.format",
}

// initConfig reads in .env, the config file and ENV variables
func initConfig() {
	// API tokens usually live in .env next to the working directory
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".reportwatch"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match REPORTWATCH_*
	viper.SetEnvPrefix("REPORTWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range envKeys {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig merges defaults, config file and environment into a Config
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	// A configured catalog replaces the built-in one instead of merging by index
	if viper.IsSet("sources") {
		cfg.Sources = nil
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if verbose {
		cfg.Log.Level = "debug"
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	if err := validate.Sources(cfg.Sources); err != nil {
		return nil, fmt.Errorf("invalid sources: %w", err)
	}

	return cfg, nil
}

// setup loads the configuration and builds the logger every command uses
func setup() (*model.Config, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// resolveSources maps display names to catalog sources, preserving order.
// Unknown names are an error listing the valid ones.
func resolveSources(catalog *model.Catalog, names []string) ([]model.Source, error) {
	var sources []model.Source
	var unknown []string
	seen := make(map[string]bool)

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		source, ok := catalog.Lookup(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		sources = append(sources, source)
	}

	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown source(s): %s (known: %s)",
			strings.Join(unknown, ", "), strings.Join(catalog.SortedNames(), ", "))
	}
	return sources, nil
}
