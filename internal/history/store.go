// Package history persists match run summaries to a local SQLite database
// so past runs can be reviewed from the CLI.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/filepair/internal/filelock"
	"github.com/harrison/filepair/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// RunRecord is one row of run history.
type RunRecord struct {
	ID             string
	Strategy       string
	Basis          string
	SourceDir      string
	TargetDir      string
	KeywordCount   int
	MatchedCount   int
	SourceCount    int
	TargetCount    int
	UnmatchedCount int
	DurationMs     int64
	CreatedAt      time.Time
}

// Store manages the SQLite run-history database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if necessary) the history database at dbPath.
// Pass ":memory:" for an ephemeral store.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == ":memory:" {
		return openAndInitStore(dbPath)
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Schema creation races when two invocations open a fresh database at
	// the same time; hold a cross-process lock until init is done.
	lock := filelock.New(dbPath + ".lock")
	if err := lock.Lock(); err != nil {
		return nil, err
	}
	defer lock.Unlock()

	return openAndInitStore(dbPath)
}

// openAndInitStore opens the database connection, applies the pragmas, and
// initializes the schema.
func openAndInitStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// busy_timeout must come first so the remaining pragmas wait on locks
	// held by a concurrent invocation.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// execWithRetry executes a statement with exponential backoff on lock errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordRun stores the summary and pairs of a completed match run in a
// single transaction.
func (s *Store) RecordRun(ctx context.Context, req models.MatchRequest, sourceDir, targetDir string, result *models.MatchResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	unmatched := len(result.UnmatchedSources) + len(result.UnmatchedKeywords)
	_, err = tx.ExecContext(ctx, `INSERT INTO match_runs
		(id, strategy, basis, source_dir, target_dir, keyword_count, matched_count, source_count, target_count, unmatched_count, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID,
		req.Strategy.String(),
		req.Basis.String(),
		sourceDir,
		targetDir,
		len(req.Keywords),
		result.MatchedCount,
		result.SourceCount,
		result.TargetCount,
		unmatched,
		result.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert match run: %w", err)
	}

	if len(result.Pairs) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO match_pairs (run_id, source, target) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare pair statement: %w", err)
		}
		defer stmt.Close()

		for _, pair := range result.Pairs {
			source := pair.SourceDisplay
			if source == "" {
				// Keyword pairs have no source file; store the keyword.
				source = pair.Key
			}
			if _, err := stmt.ExecContext(ctx, result.RunID, source, pair.Target.Base); err != nil {
				return fmt.Errorf("insert match pair: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit run records, most recent first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*RunRecord, error) {
	query := `SELECT id, strategy, basis, source_dir, target_dir, keyword_count, matched_count, source_count, target_count, unmatched_count, duration_ms, created_at
		FROM match_runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var records []*RunRecord
	for rows.Next() {
		rec := &RunRecord{}
		if err := rows.Scan(
			&rec.ID,
			&rec.Strategy,
			&rec.Basis,
			&rec.SourceDir,
			&rec.TargetDir,
			&rec.KeywordCount,
			&rec.MatchedCount,
			&rec.SourceCount,
			&rec.TargetCount,
			&rec.UnmatchedCount,
			&rec.DurationMs,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return records, nil
}

// RunPairs returns the stored source/target pairs for a run as display strings.
func (s *Store) RunPairs(ctx context.Context, runID string) ([][2]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, target FROM match_pairs WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query pairs: %w", err)
	}
	defer rows.Close()

	var pairs [][2]string
	for rows.Next() {
		var source, target string
		if err := rows.Scan(&source, &target); err != nil {
			return nil, fmt.Errorf("scan pair row: %w", err)
		}
		pairs = append(pairs, [2]string{source, target})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pair rows: %w", err)
	}
	return pairs, nil
}
