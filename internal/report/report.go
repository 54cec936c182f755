// Package report exports match results to JSON or CSV files.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/harrison/filepair/internal/filelock"
	"github.com/harrison/filepair/internal/models"
)

// pairRecord is the serialized form of one match pair.
type pairRecord struct {
	Source string `json:"source,omitempty"`
	Target string `json:"target"`
	Key    string `json:"key,omitempty"`
}

// document is the serialized form of a whole run.
type document struct {
	RunID             string       `json:"run_id"`
	MatchedCount      int          `json:"matched_count"`
	SourceCount       int          `json:"source_count"`
	TargetCount       int          `json:"target_count"`
	DurationMs        int64        `json:"duration_ms"`
	Pairs             []pairRecord `json:"pairs"`
	UnmatchedSources  []string     `json:"unmatched_sources,omitempty"`
	UnmatchedKeywords []string     `json:"unmatched_keywords,omitempty"`
}

// sourceLabel returns the display name of a pair's source side. Keyword
// pairs have no source file, so the keyword itself serves as the label.
func sourceLabel(pair models.MatchPair) string {
	if pair.SourceDisplay != "" {
		return pair.SourceDisplay
	}
	return pair.Key
}

func buildDocument(result *models.MatchResult) document {
	doc := document{
		RunID:             result.RunID,
		MatchedCount:      result.MatchedCount,
		SourceCount:       result.SourceCount,
		TargetCount:       result.TargetCount,
		DurationMs:        result.Duration.Milliseconds(),
		Pairs:             make([]pairRecord, 0, len(result.Pairs)),
		UnmatchedKeywords: result.UnmatchedKeywords,
	}
	for _, pair := range result.Pairs {
		doc.Pairs = append(doc.Pairs, pairRecord{
			Source: sourceLabel(pair),
			Target: pair.Target.Base,
			Key:    pair.Key,
		})
	}
	for _, src := range result.UnmatchedSources {
		doc.UnmatchedSources = append(doc.UnmatchedSources, src.Base)
	}
	return doc
}

// WriteJSON writes the result to path as indented JSON.
func WriteJSON(path string, result *models.MatchResult) error {
	data, err := json.MarshalIndent(buildDocument(result), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	return filelock.AtomicWrite(path, data)
}

// WriteCSV writes the result pairs to path as CSV with a header row.
// Unmatched entries follow the pairs with an empty counterpart column.
func WriteCSV(path string, result *models.MatchResult) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"status", "source", "target", "key"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, pair := range result.Pairs {
		if err := w.Write([]string{"matched", sourceLabel(pair), pair.Target.Base, pair.Key}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	for _, src := range result.UnmatchedSources {
		if err := w.Write([]string{"unmatched", src.Base, "", ""}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	for _, kw := range result.UnmatchedKeywords {
		if err := w.Write([]string{"unmatched", kw, "", ""}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return filelock.AtomicWrite(path, buf.Bytes())
}

// Write picks the format from the file extension: .csv writes CSV, anything
// else writes JSON.
func Write(path string, result *models.MatchResult) error {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return WriteCSV(path, result)
	}
	return WriteJSON(path, result)
}

// Summary returns a short one-line description of the result for logging.
func Summary(result *models.MatchResult) string {
	return fmt.Sprintf("matched %d pairs (%d sources, %d targets) in %s",
		result.MatchedCount, result.SourceCount, result.TargetCount, result.Duration)
}
