package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/filepair/internal/config"
	"github.com/harrison/filepair/internal/history"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent match runs",
		Long: `History lists recent match runs recorded in the history database.

Pass a run id to show the pairs that run produced:
  filepair history
  filepair history --limit 5
  filepair history 4f6b2c1a-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: historyCommand,
	}

	cmd.Flags().String("config", "", "Path to config file (default: .filepair/config.yaml)")
	cmd.Flags().Int("limit", 10, "Maximum number of runs to show")

	return cmd
}

// historyCommand implements the history command logic
func historyCommand(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
	} else {
		cfg, err = config.LoadConfigFromDir(".")
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("history is disabled in the configuration")
	}

	store, err := history.NewStore(cfg.History.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer store.Close()

	out := cmd.OutOrStdout()

	if len(args) == 1 {
		pairs, err := store.RunPairs(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(pairs) == 0 {
			fmt.Fprintf(out, "no pairs recorded for run %s\n", args[0])
			return nil
		}
		for _, pair := range pairs {
			fmt.Fprintf(out, "%s -> %s\n", pair[0], pair[1])
		}
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	records, err := store.RecentRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "no runs recorded yet")
		return nil
	}

	for _, rec := range records {
		fmt.Fprintf(out, "%s  %s  %s/%s  matched %d  unmatched %d  %dms\n",
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
			rec.ID,
			rec.Strategy,
			rec.Basis,
			rec.MatchedCount,
			rec.UnmatchedCount,
			rec.DurationMs,
		)
	}
	return nil
}
