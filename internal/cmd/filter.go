package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrison/filepair/internal/keywords"
	"github.com/harrison/filepair/internal/models"
)

// NewFilterCommand creates the filter command (keyword mode)
func NewFilterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter <target-dir>",
		Short: "Pair keywords with files in a target directory",
		Long: `Filter pairs each keyword with a file in the target directory.

Keywords come from --keywords (separated by newlines or semicolons) or from
--keywords-file. Markdown keyword files contribute one keyword per heading
and list item; any other file is split like --keywords input.

With --text-basis full a keyword must equal a file stem exactly. The default
search basis ranks candidates: exact stem, then prefix, then suffix, then
substring, keeping the best-scoring file per keyword. With --expand every
file pairs with the first keyword, in list order, that occurs in its name,
so one keyword can collect several files.

Examples:
  filepair filter --keywords "101-vocal;102-vocal" ./takes
  filepair filter --keywords-file tracklist.md ./takes
  filepair filter --keywords "101" --text-basis full ./takes
  filepair filter --keywords-file list.txt --expand ./takes --copy-to ./picked`,
		Args: cobra.ExactArgs(1),
		RunE: filterCommand,
	}

	addSharedFlags(cmd)
	cmd.Flags().StringP("keywords", "k", "", "Keywords separated by newlines or semicolons")
	cmd.Flags().String("keywords-file", "", "File to load keywords from (.md extracts headings and list items)")
	cmd.Flags().String("text-basis", "search", "Keyword comparison: full or search")
	cmd.Flags().Bool("expand", false, "Pair each file with the first keyword its name contains")

	return cmd
}

// filterCommand implements the filter command logic
func filterCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadMergedConfig(cmd)
	if err != nil {
		return err
	}

	keywordInput, _ := cmd.Flags().GetString("keywords")
	keywordsFile, _ := cmd.Flags().GetString("keywords-file")
	if keywordInput != "" && keywordsFile != "" {
		return fmt.Errorf("cannot use both --keywords and --keywords-file")
	}

	var keywordList []string
	if keywordsFile != "" {
		keywordList, err = keywords.FromFile(keywordsFile)
		if err != nil {
			return err
		}
	} else {
		keywordList = keywords.Split(keywordInput)
	}
	if len(keywordList) == 0 {
		return fmt.Errorf("no keywords given, use --keywords or --keywords-file")
	}

	textBasisName, _ := cmd.Flags().GetString("text-basis")
	textBasis, err := parseTextBasis(textBasisName)
	if err != nil {
		return err
	}

	expand, _ := cmd.Flags().GetBool("expand")

	req := models.MatchRequest{
		Strategy:     models.ByKeyword,
		Keywords:     keywordList,
		TextBasis:    textBasis,
		ExpandSearch: expand,
		Concurrency:  cfg.Concurrency,
	}

	return executeMatch(cmd, cfg, req, "", args[0])
}

// parseTextBasis maps a --text-basis value to its TextBasis constant.
func parseTextBasis(name string) (models.TextBasis, error) {
	switch strings.ToLower(name) {
	case "full":
		return models.TextFullMatch, nil
	case "search":
		return models.TextSubstring, nil
	}
	return 0, fmt.Errorf("unknown text basis %q, must be full or search", name)
}
