package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrison/filepair/internal/models"
)

// NewMatchCommand creates the match command (directory mode)
func NewMatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <source-dir> <target-dir>",
		Short: "Pair files in a source directory with files in a target directory",
		Long: `Match pairs every file in the source directory with a file in the
target directory, using the selected basis:

  name        exact filename (stem only unless --format-match)
  id          leading alphanumeric id prefix
  similarity  closest stem by edit distance (see --min-similarity)
  replace     substring substitution (requires --replace old=new)
  regex       first capture group of --source-pattern and --target-pattern

Configuration is loaded from .filepair/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  filepair match ./audio ./lyrics
  filepair match --basis id ./takes ./notes
  filepair match --basis similarity --min-similarity 0.7 ./a ./b
  filepair match --basis replace --replace _mix=_master ./mixes ./masters
  filepair match --basis regex --source-pattern '^(\d+)_' --target-pattern '^(\d+)-' ./a ./b
  filepair match ./a ./b --output pairs.csv
  filepair match ./a ./b --move-to ./paired`,
		Args: cobra.ExactArgs(2),
		RunE: matchCommand,
	}

	addSharedFlags(cmd)
	cmd.Flags().String("basis", "name", "Match basis: name, id, similarity, replace, regex")
	cmd.Flags().Bool("format-match", false, "Require matching file extensions (name basis)")
	cmd.Flags().Float64("min-similarity", 0.5, "Exclusive similarity lower bound (similarity basis)")
	cmd.Flags().StringArray("replace", nil, "Substitution as old=new, repeatable (replace basis)")
	cmd.Flags().String("source-pattern", "", "Regex with one capture group for source files (regex basis)")
	cmd.Flags().String("target-pattern", "", "Regex with one capture group for target files (regex basis)")

	return cmd
}

// matchCommand implements the match command logic
func matchCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadMergedConfig(cmd)
	if err != nil {
		return err
	}

	basisName, _ := cmd.Flags().GetString("basis")
	basis, err := parseBasis(basisName)
	if err != nil {
		return err
	}

	formatMatch, _ := cmd.Flags().GetBool("format-match")
	replaceSpecs, _ := cmd.Flags().GetStringArray("replace")
	replacements, err := parseReplacements(replaceSpecs)
	if err != nil {
		return err
	}

	sourcePattern, _ := cmd.Flags().GetString("source-pattern")
	targetPattern, _ := cmd.Flags().GetString("target-pattern")

	req := models.MatchRequest{
		Strategy:      models.ByDirectory,
		Basis:         basis,
		FormatMatch:   formatMatch,
		Concurrency:   cfg.Concurrency,
		MinSimilarity: cfg.MinSimilarity,
		Replacements:  replacements,
		SourcePattern: sourcePattern,
		TargetPattern: targetPattern,
	}

	return executeMatch(cmd, cfg, req, args[0], args[1])
}

// parseBasis maps a --basis value to its Basis constant.
func parseBasis(name string) (models.Basis, error) {
	switch strings.ToLower(name) {
	case "name":
		return models.BasisFullName, nil
	case "id":
		return models.BasisIDPrefix, nil
	case "similarity":
		return models.BasisSimilarity, nil
	case "replace":
		return models.BasisPatternReplace, nil
	case "regex":
		return models.BasisRegex, nil
	}
	return 0, fmt.Errorf("unknown basis %q, must be one of: name, id, similarity, replace, regex", name)
}

// parseReplacements parses repeated old=new flag values. An empty old side
// is rejected; an empty new side deletes the substring.
func parseReplacements(specs []string) ([]models.Replacement, error) {
	var replacements []models.Replacement
	for _, spec := range specs {
		oldPart, newPart, found := strings.Cut(spec, "=")
		if !found || oldPart == "" {
			return nil, fmt.Errorf("invalid --replace value %q, expected old=new", spec)
		}
		replacements = append(replacements, models.Replacement{Old: oldPart, New: newPart})
	}
	return replacements, nil
}
