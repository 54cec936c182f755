package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/filepair/internal/config"
	"github.com/harrison/filepair/internal/engine"
	"github.com/harrison/filepair/internal/fileops"
	"github.com/harrison/filepair/internal/history"
	"github.com/harrison/filepair/internal/logger"
	"github.com/harrison/filepair/internal/models"
	"github.com/harrison/filepair/internal/report"
)

// loadMergedConfig loads configuration honoring the --config flag and merges
// in the shared flags that override it.
func loadMergedConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(".")
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// Build flag pointers for merge (only values the user set)
	var concurrencyPtr *bool
	if cmd.Flags().Changed("no-concurrency") {
		noConcurrency, _ := cmd.Flags().GetBool("no-concurrency")
		concurrency := !noConcurrency
		concurrencyPtr = &concurrency
	}

	var minSimilarityPtr *float64
	if cmd.Flags().Changed("min-similarity") {
		minSimilarity, _ := cmd.Flags().GetFloat64("min-similarity")
		minSimilarityPtr = &minSimilarity
	}

	var logLevelPtr *string
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level := "debug"
		logLevelPtr = &level
	}

	cfg.MergeWithFlags(concurrencyPtr, minSimilarityPtr, logLevelPtr)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// addSharedFlags registers the flags common to the match and filter commands.
func addSharedFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to config file (default: .filepair/config.yaml)")
	cmd.Flags().Bool("no-concurrency", false, "Disable chunked parallel matching")
	cmd.Flags().Bool("verbose", false, "Show detailed progress information")
	cmd.Flags().StringP("output", "o", "", "Export the result to a file (.json or .csv)")
	cmd.Flags().String("copy-to", "", "Copy matched target files to this directory")
	cmd.Flags().String("move-to", "", "Move matched target files to this directory")
	cmd.Flags().Bool("delete", false, "Delete matched target files")
}

// executeMatch runs the engine for one request, prints the result, exports
// and records it, and applies any requested bulk file operation. It is the
// shared back half of the match and filter commands.
func executeMatch(cmd *cobra.Command, cfg *config.Config, req models.MatchRequest, sourceDir, targetDir string) error {
	copyTo, _ := cmd.Flags().GetString("copy-to")
	moveTo, _ := cmd.Flags().GetString("move-to")
	deleteMatched, _ := cmd.Flags().GetBool("delete")
	if countTrue(copyTo != "", moveTo != "", deleteMatched) > 1 {
		return fmt.Errorf("only one of --copy-to, --move-to, --delete may be used")
	}

	log := logger.NewConsoleLogger(cmd.OutOrStdout(), cfg.LogLevel)
	monitor := newConsoleMonitor(cmd.OutOrStdout(), log)

	// Ctrl-C cancels the run; the engine stops at the next phase boundary.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := engine.New(monitor).Run(ctx, req, sourceDir, targetDir)
	monitor.Finish()
	if err != nil {
		if ctx.Err() != nil {
			log.LogWarn("matching cancelled")
		}
		return err
	}

	printResult(cmd, result)
	log.LogInfo(report.Summary(result))

	if outputPath, _ := cmd.Flags().GetString("output"); outputPath != "" {
		if err := report.Write(outputPath, result); err != nil {
			return fmt.Errorf("failed to export result: %w", err)
		}
		log.LogInfo("result exported to " + outputPath)
	}

	recordHistory(cfg, log, req, sourceDir, targetDir, result)

	switch {
	case copyTo != "":
		return applyFileOp(ctx, log, "copied", func() (*fileops.Outcome, error) {
			return fileops.CopyTargets(ctx, result.Pairs, copyTo)
		})
	case moveTo != "":
		return applyFileOp(ctx, log, "moved", func() (*fileops.Outcome, error) {
			return fileops.MoveTargets(ctx, result.Pairs, moveTo)
		})
	case deleteMatched:
		return applyFileOp(ctx, log, "deleted", func() (*fileops.Outcome, error) {
			return fileops.DeleteTargets(ctx, result.Pairs)
		})
	}
	return nil
}

func countTrue(conditions ...bool) int {
	n := 0
	for _, c := range conditions {
		if c {
			n++
		}
	}
	return n
}

// printResult writes the pair list and unmatched leftovers to stdout.
func printResult(cmd *cobra.Command, result *models.MatchResult) {
	out := cmd.OutOrStdout()

	for _, pair := range result.Pairs {
		if pair.Source != nil {
			fmt.Fprintf(out, "%s -> %s\n", pair.SourceDisplay, pair.Target.Base)
		} else {
			// Keyword pairs have no source file; the keyword is the key.
			fmt.Fprintf(out, "%q -> %s\n", pair.Key, pair.Target.Base)
		}
	}

	if len(result.UnmatchedSources) > 0 {
		fmt.Fprintf(out, "\nUnmatched sources (%d):\n", len(result.UnmatchedSources))
		for _, src := range result.UnmatchedSources {
			fmt.Fprintf(out, "  %s\n", src.Base)
		}
	}
	if len(result.UnmatchedKeywords) > 0 {
		fmt.Fprintf(out, "\nUnmatched keywords (%d):\n", len(result.UnmatchedKeywords))
		for _, kw := range result.UnmatchedKeywords {
			fmt.Fprintf(out, "  %s\n", kw)
		}
	}
}

// recordHistory persists the run summary. History failures are logged, never
// fatal; the match itself already succeeded.
func recordHistory(cfg *config.Config, log *logger.ConsoleLogger, req models.MatchRequest, sourceDir, targetDir string, result *models.MatchResult) {
	if !cfg.History.Enabled {
		return
	}

	store, err := history.NewStore(cfg.History.DBPath)
	if err != nil {
		log.LogWarn("history unavailable: " + err.Error())
		return
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.RecordRun(ctx, req, sourceDir, targetDir, result); err != nil {
		log.LogWarn("failed to record run history: " + err.Error())
	}
}

// applyFileOp runs one bulk operation and reports per-file failures.
func applyFileOp(ctx context.Context, log *logger.ConsoleLogger, verb string, op func() (*fileops.Outcome, error)) error {
	outcome, err := op()
	if err != nil {
		return err
	}

	log.LogInfo(fmt.Sprintf("%s %d file(s)", verb, outcome.Succeeded))
	for _, failure := range outcome.Failures {
		log.LogError(fmt.Sprintf("%s: %v", failure.Path, failure.Err))
	}
	if outcome.Failed() {
		return fmt.Errorf("%d file(s) could not be %s", len(outcome.Failures), verb)
	}
	return nil
}
