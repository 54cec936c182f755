// Package engine orchestrates a matching run: scanning, index construction,
// strategy dispatch, chunked parallel execution, and result aggregation.
//
// The engine is a pure compute pipeline. It reports progress through a
// nil-tolerant Monitor, honors cancellation through the context at phase
// boundaries only, and emits exactly one terminal outcome per run: a
// MatchResult, an error, or the context's cancellation error. It never
// mutates any file it scans.
package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/filepair/internal/fileutil"
	"github.com/harrison/filepair/internal/index"
	"github.com/harrison/filepair/internal/models"
	"github.com/harrison/filepair/internal/strategy"
)

// ErrMissingInput reports that a required directory or the keyword list was
// absent. It is surfaced before any scanning happens.
var ErrMissingInput = errors.New("required input missing")

const (
	// parallelThreshold is the list length above which chunked parallel
	// processing is worth the dispatch overhead.
	parallelThreshold = 100

	// sequentialTick is how many items the sequential path processes
	// between progress reports.
	sequentialTick = 20

	// minWorkers floors the worker count on small machines.
	minWorkers = 4
)

// Monitor receives the engine's informational events. Implementations must
// tolerate concurrent calls; the engine tolerates a nil Monitor.
type Monitor interface {
	// FileCounts reports the raw file counts of the scanned directories
	// before matching begins.
	FileCounts(sourceCount, targetCount int)

	// Progress reports completed/total ticks. The counter may reset
	// between phases.
	Progress(completed, total int)
}

// Engine runs match requests. The zero value is not usable; construct with
// New.
type Engine struct {
	monitor Monitor
	workers int
}

// New returns an Engine reporting to monitor (nil to disable reporting).
// The worker count is max(4, available CPUs) and doubles as the chunk count
// for parallel runs.
func New(monitor Monitor) *Engine {
	workers := runtime.NumCPU()
	if workers < minWorkers {
		workers = minWorkers
	}
	return &Engine{monitor: monitor, workers: workers}
}

// Run executes one match request against the given directories and returns
// the single terminal result. Keyword-mode requests ignore sourceDir.
// Cancellation surfaces as ctx.Err(); no partial result is ever returned
// alongside an error.
func (e *Engine) Run(ctx context.Context, req models.MatchRequest, sourceDir, targetDir string) (*models.MatchResult, error) {
	start := time.Now()

	if err := validateRequest(req, sourceDir, targetDir); err != nil {
		return nil, err
	}

	sourceCount := 0
	if req.Strategy == models.ByDirectory {
		sourceCount = fileutil.CountFiles(sourceDir)
	}
	targetCount := fileutil.CountFiles(targetDir)
	e.fileCounts(sourceCount, targetCount)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &models.MatchResult{
		RunID:       uuid.NewString(),
		SourceCount: sourceCount,
		TargetCount: targetCount,
	}

	var err error
	switch req.Strategy {
	case models.ByDirectory:
		err = e.runDirectory(ctx, req, sourceDir, targetDir, result)
	case models.ByKeyword:
		err = e.runKeyword(ctx, req, targetDir, result)
	default:
		err = fmt.Errorf("unknown strategy kind %d", req.Strategy)
	}
	if err != nil {
		return nil, err
	}

	result.MatchedCount = len(result.Pairs)
	result.Duration = time.Since(start)
	return result, nil
}

// validateRequest enforces the pre-scan input requirements.
func validateRequest(req models.MatchRequest, sourceDir, targetDir string) error {
	switch req.Strategy {
	case models.ByDirectory:
		if sourceDir == "" || targetDir == "" {
			return fmt.Errorf("%w: source and target directories are required", ErrMissingInput)
		}
		if req.Basis == models.BasisPatternReplace && len(req.Replacements) == 0 {
			return fmt.Errorf("%w: at least one replacement is required", ErrMissingInput)
		}
		if req.Basis == models.BasisRegex && (req.SourcePattern == "" || req.TargetPattern == "") {
			return fmt.Errorf("%w: source and target patterns are required", ErrMissingInput)
		}
	case models.ByKeyword:
		if targetDir == "" {
			return fmt.Errorf("%w: target directory is required", ErrMissingInput)
		}
		if len(req.Keywords) == 0 {
			return fmt.Errorf("%w: at least one keyword is required", ErrMissingInput)
		}
	}
	return nil
}

func (e *Engine) runDirectory(ctx context.Context, req models.MatchRequest, sourceDir, targetDir string, result *models.MatchResult) error {
	sources := fileutil.ListFiles(sourceDir)
	e.progress(1, 2)
	if err := ctx.Err(); err != nil {
		return err
	}

	targets := fileutil.ListFiles(targetDir)
	e.progress(2, 2)
	if err := ctx.Err(); err != nil {
		return err
	}

	var pairs []models.MatchPair
	var err error

	// keep reports whether a source participates in unmatched accounting.
	// Bases that key sources by an extracted value silently drop sources
	// that produce no key; that quirk of the original accounting is kept
	// deliberately.
	keep := func(models.FileEntry) bool { return true }

	switch req.Basis {
	case models.BasisFullName:
		var idx *index.Index
		idx, err = index.Build(ctx, targets, e.progress)
		if err != nil {
			return err
		}
		pairs, err = e.runChunks(ctx, sources, req.Concurrency, func(chunk []models.FileEntry, _ int) []models.MatchPair {
			return strategy.ExactName(chunk, idx, req.FormatMatch)
		})

	case models.BasisIDPrefix:
		byID := index.BuildIDIndex(sources)
		keep = func(entry models.FileEntry) bool {
			_, ok := index.ExtractID(entry.Base)
			return ok
		}
		pairs, err = e.runChunks(ctx, targets, req.Concurrency, func(chunk []models.FileEntry, _ int) []models.MatchPair {
			return strategy.IDPrefix(chunk, byID)
		})

	case models.BasisSimilarity:
		pairs, err = e.runChunks(ctx, sources, req.Concurrency, func(chunk []models.FileEntry, _ int) []models.MatchPair {
			return strategy.Similarity(chunk, targets, req.MinSimilarity)
		})

	case models.BasisPatternReplace:
		var idx *index.Index
		idx, err = index.Build(ctx, targets, e.progress)
		if err != nil {
			return err
		}
		pairs, err = e.runChunks(ctx, sources, req.Concurrency, func(chunk []models.FileEntry, _ int) []models.MatchPair {
			return strategy.PatternReplace(chunk, idx, req.Replacements)
		})

	case models.BasisRegex:
		sourceRe, compileErr := regexp.Compile(req.SourcePattern)
		if compileErr != nil {
			return fmt.Errorf("invalid source pattern %q: %w", req.SourcePattern, compileErr)
		}
		targetRe, compileErr := regexp.Compile(req.TargetPattern)
		if compileErr != nil {
			return fmt.Errorf("invalid target pattern %q: %w", req.TargetPattern, compileErr)
		}
		byKey := strategy.RegexTargetIndex(targets, targetRe)
		keep = func(entry models.FileEntry) bool {
			_, ok := strategy.CaptureKey(sourceRe, entry.Base)
			return ok
		}
		pairs, err = e.runChunks(ctx, sources, req.Concurrency, func(chunk []models.FileEntry, _ int) []models.MatchPair {
			return strategy.Regex(chunk, sourceRe, byKey)
		})

	default:
		return fmt.Errorf("unknown match basis %d", req.Basis)
	}
	if err != nil {
		return err
	}

	result.Pairs = pairs
	result.UnmatchedSources = unmatchedSources(sources, pairs, keep)
	return nil
}

func (e *Engine) runKeyword(ctx context.Context, req models.MatchRequest, targetDir string, result *models.MatchResult) error {
	targets := fileutil.ListFiles(targetDir)
	e.progress(1, 1)
	if err := ctx.Err(); err != nil {
		return err
	}

	var pairs []models.MatchPair
	var err error

	switch {
	case req.TextBasis == models.TextFullMatch:
		// Direct stem lookups; nothing to parallelize.
		var idx *index.Index
		idx, err = index.Build(ctx, targets, e.progress)
		if err != nil {
			return err
		}
		pairs = strategy.KeywordFull(req.Keywords, idx)

	case req.ExpandSearch:
		pairs, err = e.runChunks(ctx, targets, req.Concurrency, func(chunk []models.FileEntry, _ int) []models.MatchPair {
			return strategy.KeywordExpand(chunk, req.Keywords)
		})

	default:
		var best map[string]strategy.ScoredCandidate
		best, err = e.runScored(ctx, targets, req.Keywords, req.Concurrency)
		if err == nil {
			pairs = strategy.ScoredPairs(best, req.Keywords)
		}
	}
	if err != nil {
		return err
	}

	result.Pairs = pairs
	result.UnmatchedKeywords = unmatchedKeywords(req.Keywords, pairs)
	return nil
}

// chunkResult carries one chunk's output to the aggregation loop.
type chunkResult struct {
	pairs []models.MatchPair
	best  map[string]strategy.ScoredCandidate
}

// runChunks executes fn over items, either sequentially with a progress tick
// every 20 items, or in parallel chunks when the list is large enough and
// the request allows it. Parallel chunk outputs are appended in completion
// order, so the pair set is deterministic but the list order is not.
func (e *Engine) runChunks(ctx context.Context, items []models.FileEntry, concurrent bool, fn func(chunk []models.FileEntry, offset int) []models.MatchPair) ([]models.MatchPair, error) {
	if len(items) == 0 {
		return nil, nil
	}

	if !concurrent || len(items) <= parallelThreshold {
		return e.runSequential(ctx, items, fn)
	}

	var pairs []models.MatchPair
	err := e.dispatchChunks(ctx, items, func(chunk []models.FileEntry, offset int) chunkResult {
		return chunkResult{pairs: fn(chunk, offset)}
	}, func(res chunkResult) {
		pairs = append(pairs, res.pairs...)
	})
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

// runScored is the chunk executor for the scored keyword search. Per-chunk
// winners merge under the same better-score-or-earlier-position rule the
// scan itself uses, which keeps the outcome independent of completion order.
func (e *Engine) runScored(ctx context.Context, targets []models.FileEntry, keywords []string, concurrent bool) (map[string]strategy.ScoredCandidate, error) {
	best := make(map[string]strategy.ScoredCandidate)
	if len(targets) == 0 {
		return best, nil
	}

	if !concurrent || len(targets) <= parallelThreshold {
		total := len(targets)
		for start := 0; start < total; start += sequentialTick {
			end := start + sequentialTick
			if end > total {
				end = total
			}
			strategy.MergeScored(best, strategy.ScoreKeywords(targets[start:end], start, keywords))
			e.progress(end, total)
		}
		return best, nil
	}

	err := e.dispatchChunks(ctx, targets, func(chunk []models.FileEntry, offset int) chunkResult {
		return chunkResult{best: strategy.ScoreKeywords(chunk, offset, keywords)}
	}, func(res chunkResult) {
		strategy.MergeScored(best, res.best)
	})
	if err != nil {
		return nil, err
	}
	return best, nil
}

// runSequential processes the whole list on the calling goroutine, ticking
// progress every 20 items.
func (e *Engine) runSequential(ctx context.Context, items []models.FileEntry, fn func(chunk []models.FileEntry, offset int) []models.MatchPair) ([]models.MatchPair, error) {
	var pairs []models.MatchPair
	total := len(items)
	for start := 0; start < total; start += sequentialTick {
		end := start + sequentialTick
		if end > total {
			end = total
		}
		pairs = append(pairs, fn(items[start:end], start)...)
		e.progress(end, total)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return pairs, nil
}

// dispatchChunks splits items into contiguous chunks of size ceil(n/workers)
// and runs work on each through a bounded worker pool. The context is
// polled before every dispatch: once cancelled, no further chunk starts, and
// results of chunks already in flight are discarded. merge runs only on the
// aggregation goroutine, so chunk outputs stay private until then.
func (e *Engine) dispatchChunks(ctx context.Context, items []models.FileEntry, work func(chunk []models.FileEntry, offset int) chunkResult, merge func(chunkResult)) error {
	total := len(items)
	chunkSize := (total + e.workers - 1) / e.workers

	type span struct{ start, end int }
	var spans []span
	for start := 0; start < total; start += chunkSize {
		end := start + chunkSize
		if end > total {
			end = total
		}
		spans = append(spans, span{start, end})
	}

	semaphore := make(chan struct{}, e.workers)
	results := make(chan chunkResult, len(spans))

	var wg sync.WaitGroup
	var launchErr error

	for _, s := range spans {
		if err := ctx.Err(); err != nil {
			launchErr = err
			break
		}

		select {
		case <-ctx.Done():
			launchErr = ctx.Err()
		case semaphore <- struct{}{}:
		}
		if launchErr != nil {
			break
		}

		wg.Add(1)
		go func(s span) {
			defer wg.Done()
			defer func() { <-semaphore }()
			results <- work(items[s.start:s.end], s.start)
		}(s)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		// A chunk dispatched before cancellation still completes, but
		// its result is dropped.
		if ctx.Err() != nil {
			continue
		}
		merge(res)
		completed++
		e.progress(completed*total/len(spans), total)
	}

	if launchErr != nil {
		return launchErr
	}
	return ctx.Err()
}

// unmatchedSources returns every scanned source that keep admits and that
// appears in no pair, preserving scan order.
func unmatchedSources(sources []models.FileEntry, pairs []models.MatchPair, keep func(models.FileEntry) bool) []models.FileEntry {
	matched := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		if p.Source != nil {
			matched[p.Source.Path] = true
		}
	}

	var unmatched []models.FileEntry
	for _, src := range sources {
		if !keep(src) || matched[src.Path] {
			continue
		}
		unmatched = append(unmatched, src)
	}
	return unmatched
}

// unmatchedKeywords returns the keywords that justified no pair, unique and
// in request order.
func unmatchedKeywords(keywords []string, pairs []models.MatchPair) []string {
	matched := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		matched[p.Key] = true
	}

	var unmatched []string
	seen := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		if seen[kw] || matched[kw] {
			continue
		}
		seen[kw] = true
		unmatched = append(unmatched, kw)
	}
	return unmatched
}

func (e *Engine) progress(completed, total int) {
	if e.monitor != nil {
		e.monitor.Progress(completed, total)
	}
}

func (e *Engine) fileCounts(sourceCount, targetCount int) {
	if e.monitor != nil {
		e.monitor.FileCounts(sourceCount, targetCount)
	}
}
