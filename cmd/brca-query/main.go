// Package main provides the brca-query command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/brca-exchange-query/internal/brca"
	"github.com/inodb/brca-exchange-query/internal/ga4gh"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const configName = ".brca-query.yaml"

var cfgFile string

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd()
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			return ExitUsage
		}
		if errors.Is(err, brca.ErrUnknownGene) {
			fmt.Fprintf(os.Stderr, "Hint: supported genes are %s\n", strings.Join(brca.Genes(), ", "))
		}
		return ExitError
	}
	return ExitSuccess
}

// usageError marks errors caused by bad arguments or flags.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "brca-query",
		Short: "Query BRCA Exchange for BRCA1/BRCA2 variants",
		Long: `brca-query searches the BRCA Exchange GA4GH variant service for variants
in BRCA1 or BRCA2 and prints one flat row per variant.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &usageError{err}
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default: ~/"+configName+")")
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.String("endpoint", ga4gh.DefaultBaseURL, "GA4GH API base URL")
	pf.String("variant-set", brca.DefaultVariantSet, "Variant set to search")
	pf.StringSlice("columns", brca.DefaultColumns, "Info fields to append to each row")
	pf.Int("page-size", ga4gh.DefaultPageSize, "Variants requested per page")
	pf.Duration("timeout", 30*time.Second, "Per-request timeout")
	pf.Bool("insecure", false, "Skip TLS certificate verification")
	pf.String("cache", "", "DuckDB file caching query results (disabled if empty)")

	for _, name := range []string{"verbose", "endpoint", "variant-set", "columns", "page-size", "timeout", "insecure", "cache"} {
		viper.BindPFlag(configKey(name), pf.Lookup(name))
	}

	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newBatchCmd())
	cmd.AddCommand(newGenesCmd())
	cmd.AddCommand(newCacheCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// configKey maps a flag name to its config file key.
func configKey(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.SetConfigFile(filepath.Join(home, configName))
		}
	}
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("BRCA_QUERY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// newLogger builds a console logger on stderr.
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if viper.GetBool("verbose") {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}
