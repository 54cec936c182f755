package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/filepair/internal/models"
)

// recordingMonitor captures monitor events for assertions. Safe for
// concurrent use because parallel chunk completion reports progress from the
// aggregation goroutine while tests read afterwards.
type recordingMonitor struct {
	mu          sync.Mutex
	sourceCount int
	targetCount int
	ticks       int
}

func (m *recordingMonitor) FileCounts(sourceCount, targetCount int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sourceCount = sourceCount
	m.targetCount = targetCount
}

func (m *recordingMonitor) Progress(completed, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks++
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
}

func pairSet(result *models.MatchResult) []string {
	keys := make([]string, 0, len(result.Pairs))
	for _, p := range result.Pairs {
		src := ""
		if p.Source != nil {
			src = p.Source.Base
		}
		keys = append(keys, fmt.Sprintf("%s|%s|%s", src, p.Target.Base, p.Key))
	}
	sort.Strings(keys)
	return keys
}

func TestRunExactNameFormatMatch(t *testing.T) {
	sourceDir := t.TempDir()
	targetDir := t.TempDir()
	writeFiles(t, sourceDir, "a.txt", "b.txt")
	writeFiles(t, targetDir, "a.txt", "c.txt")

	monitor := &recordingMonitor{}
	result, err := New(monitor).Run(context.Background(), models.MatchRequest{
		Strategy:    models.ByDirectory,
		Basis:       models.BasisFullName,
		FormatMatch: true,
	}, sourceDir, targetDir)

	require.NoError(t, err)
	require.Len(t, result.Pairs, 1)
	assert.Equal(t, "a.txt", result.Pairs[0].TargetDisplay)
	require.Len(t, result.UnmatchedSources, 1)
	assert.Equal(t, "b.txt", result.UnmatchedSources[0].Base)
	assert.Equal(t, 1, result.MatchedCount)
	assert.Equal(t, 2, monitor.sourceCount)
	assert.Equal(t, 2, monitor.targetCount)
	assert.NotEmpty(t, result.RunID)
	assert.Empty(t, result.UnmatchedKeywords)
	assert.Greater(t, monitor.ticks, 0)
}

func TestRunExactNameStemFanOut(t *testing.T) {
	sourceDir := t.TempDir()
	targetDir := t.TempDir()
	writeFiles(t, sourceDir, "x.mp3")
	writeFiles(t, targetDir, "x.wav", "x.flac")

	result, err := New(nil).Run(context.Background(), models.MatchRequest{
		Strategy: models.ByDirectory,
		Basis:    models.BasisFullName,
	}, sourceDir, targetDir)

	require.NoError(t, err)
	assert.Len(t, result.Pairs, 2)
	assert.Empty(t, result.UnmatchedSources)
}

func TestRunIDPrefix(t *testing.T) {
	sourceDir := t.TempDir()
	targetDir := t.TempDir()
	writeFiles(t, sourceDir, "101-vocal.mp3", "102-vocal.mp3")
	writeFiles(t, targetDir, "101-inst.mp3", "999-inst.mp3")

	result, err := New(nil).Run(context.Background(), models.MatchRequest{
		Strategy: models.ByDirectory,
		Basis:    models.BasisIDPrefix,
	}, sourceDir, targetDir)

	require.NoError(t, err)
	require.Len(t, result.Pairs, 1)
	assert.Equal(t, "101", result.Pairs[0].Key)
	require.Len(t, result.UnmatchedSources, 1)
	assert.Equal(t, "102-vocal.mp3", result.UnmatchedSources[0].Base)
}

func TestRunIDPrefixDropsSourcesWithoutID(t *testing.T) {
	sourceDir := t.TempDir()
	targetDir := t.TempDir()
	writeFiles(t, sourceDir, "-noid.mp3", "101-vocal.mp3")
	writeFiles(t, targetDir, "101-inst.mp3")

	result, err := New(nil).Run(context.Background(), models.MatchRequest{
		Strategy: models.ByDirectory,
		Basis:    models.BasisIDPrefix,
	}, sourceDir, targetDir)

	require.NoError(t, err)
	assert.Len(t, result.Pairs, 1)
	// The id-less file is neither matched nor reported unmatched.
	assert.Empty(t, result.UnmatchedSources)
}

func TestRunPartitionProperty(t *testing.T) {
	sourceDir := t.TempDir()
	targetDir := t.TempDir()

	var sourceNames []string
	for i := 0; i < 60; i++ {
		sourceNames = append(sourceNames, fmt.Sprintf("file-%02d.txt", i))
	}
	writeFiles(t, sourceDir, sourceNames...)
	writeFiles(t, targetDir, "file-03.txt", "file-17.txt", "file-59.txt")

	result, err := New(nil).Run(context.Background(), models.MatchRequest{
		Strategy:    models.ByDirectory,
		Basis:       models.BasisFullName,
		FormatMatch: true,
	}, sourceDir, targetDir)

	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, p := range result.Pairs {
		seen[p.Source.Path] = true
	}
	for _, u := range result.UnmatchedSources {
		assert.False(t, seen[u.Path], "source %s both matched and unmatched", u.Base)
		seen[u.Path] = true
	}
	assert.Len(t, seen, 60, "every scanned source accounted for exactly once")
}

func TestRunDeterministicPairSetWithConcurrency(t *testing.T) {
	sourceDir := t.TempDir()
	targetDir := t.TempDir()

	var names []string
	for i := 0; i < 250; i++ {
		names = append(names, fmt.Sprintf("%03d-track.mp3", i))
	}
	writeFiles(t, sourceDir, names...)
	var targetNames []string
	for i := 0; i < 250; i += 2 {
		targetNames = append(targetNames, fmt.Sprintf("%03d-other.mp3", i))
	}
	writeFiles(t, targetDir, targetNames...)

	run := func(concurrent bool) *models.MatchResult {
		result, err := New(nil).Run(context.Background(), models.MatchRequest{
			Strategy:    models.ByDirectory,
			Basis:       models.BasisIDPrefix,
			Concurrency: concurrent,
		}, sourceDir, targetDir)
		require.NoError(t, err)
		return result
	}

	sequential := run(false)
	parallel := run(true)

	assert.Equal(t, pairSet(sequential), pairSet(parallel))
	assert.Equal(t, len(sequential.UnmatchedSources), len(parallel.UnmatchedSources))

	// Idempotence: an unchanged directory yields an identical pair set.
	again := run(true)
	assert.Equal(t, pairSet(parallel), pairSet(again))
}

func TestRunKeywordFullMatch(t *testing.T) {
	targetDir := t.TempDir()
	writeFiles(t, targetDir, "song.mp3", "other.mp3")

	result, err := New(nil).Run(context.Background(), models.MatchRequest{
		Strategy:  models.ByKeyword,
		TextBasis: models.TextFullMatch,
		Keywords:  []string{"song", "missing"},
	}, "", targetDir)

	require.NoError(t, err)
	require.Len(t, result.Pairs, 1)
	assert.Nil(t, result.Pairs[0].Source)
	assert.Equal(t, []string{"missing"}, result.UnmatchedKeywords)
	assert.Empty(t, result.UnmatchedSources)
}

func TestRunKeywordSubstringBestMatch(t *testing.T) {
	targetDir := t.TempDir()
	writeFiles(t, targetDir, "123-original.wav", "1234-original.wav")

	result, err := New(nil).Run(context.Background(), models.MatchRequest{
		Strategy:  models.ByKeyword,
		TextBasis: models.TextSubstring,
		Keywords:  []string{"123"},
	}, "", targetDir)

	require.NoError(t, err)
	require.Len(t, result.Pairs, 1)
	assert.Equal(t, "123-original.wav", result.Pairs[0].TargetDisplay)
	assert.Empty(t, result.UnmatchedKeywords)
}

func TestRunKeywordExpand(t *testing.T) {
	targetDir := t.TempDir()
	writeFiles(t, targetDir, "123-original.wav", "1234-original.wav")

	result, err := New(nil).Run(context.Background(), models.MatchRequest{
		Strategy:     models.ByKeyword,
		TextBasis:    models.TextSubstring,
		ExpandSearch: true,
		Keywords:     []string{"123"},
	}, "", targetDir)

	require.NoError(t, err)
	require.Len(t, result.Pairs, 2)
	for _, p := range result.Pairs {
		assert.Equal(t, "123", p.Key)
	}
}

func TestRunKeywordScoredDeterministicWithConcurrency(t *testing.T) {
	targetDir := t.TempDir()
	var names []string
	for i := 0; i < 300; i++ {
		names = append(names, fmt.Sprintf("clip-%03d.wav", i))
	}
	writeFiles(t, targetDir, names...)

	req := models.MatchRequest{
		Strategy:  models.ByKeyword,
		TextBasis: models.TextSubstring,
		Keywords:  []string{"clip-007", "clip", "absent"},
	}

	run := func(concurrent bool) *models.MatchResult {
		req := req
		req.Concurrency = concurrent
		result, err := New(nil).Run(context.Background(), req, "", targetDir)
		require.NoError(t, err)
		return result
	}

	sequential := run(false)
	parallel := run(true)
	assert.Equal(t, pairSet(sequential), pairSet(parallel))
	assert.Equal(t, []string{"absent"}, sequential.UnmatchedKeywords)
	assert.Equal(t, []string{"absent"}, parallel.UnmatchedKeywords)
}

func TestRunSimilarity(t *testing.T) {
	sourceDir := t.TempDir()
	targetDir := t.TempDir()
	writeFiles(t, sourceDir, "12345-vocal.mp3", "unrelated.mp3")
	writeFiles(t, targetDir, "12345-voice.mp3")

	result, err := New(nil).Run(context.Background(), models.MatchRequest{
		Strategy:      models.ByDirectory,
		Basis:         models.BasisSimilarity,
		MinSimilarity: 0.5,
	}, sourceDir, targetDir)

	require.NoError(t, err)
	require.Len(t, result.Pairs, 1)
	assert.Equal(t, "12345-vocal.mp3", result.Pairs[0].SourceDisplay)
	require.Len(t, result.UnmatchedSources, 1)
	assert.Equal(t, "unrelated.mp3", result.UnmatchedSources[0].Base)
}

func TestRunPatternReplace(t *testing.T) {
	sourceDir := t.TempDir()
	targetDir := t.TempDir()
	writeFiles(t, sourceDir, "101-vocal.mp3")
	writeFiles(t, targetDir, "101-inst.mp3")

	result, err := New(nil).Run(context.Background(), models.MatchRequest{
		Strategy:     models.ByDirectory,
		Basis:        models.BasisPatternReplace,
		Replacements: []models.Replacement{{Old: "vocal", New: "inst"}},
	}, sourceDir, targetDir)

	require.NoError(t, err)
	require.Len(t, result.Pairs, 1)
	assert.Equal(t, "101-inst.mp3", result.Pairs[0].TargetDisplay)
}

func TestRunRegex(t *testing.T) {
	sourceDir := t.TempDir()
	targetDir := t.TempDir()
	writeFiles(t, sourceDir, "track_42_mix.mp3", "nodigits.mp3")
	writeFiles(t, targetDir, "42-master.mp3")

	result, err := New(nil).Run(context.Background(), models.MatchRequest{
		Strategy:      models.ByDirectory,
		Basis:         models.BasisRegex,
		SourcePattern: `_(\d+)_`,
		TargetPattern: `^(\d+)-`,
	}, sourceDir, targetDir)

	require.NoError(t, err)
	require.Len(t, result.Pairs, 1)
	assert.Equal(t, "42", result.Pairs[0].Key)
	// Sources that never produce a capture key drop from unmatched accounting.
	assert.Empty(t, result.UnmatchedSources)
}

func TestRunRegexInvalidPattern(t *testing.T) {
	result, err := New(nil).Run(context.Background(), models.MatchRequest{
		Strategy:      models.ByDirectory,
		Basis:         models.BasisRegex,
		SourcePattern: `([`,
		TargetPattern: `^(\d+)`,
	}, t.TempDir(), t.TempDir())

	require.Error(t, err)
	assert.Nil(t, result)
}

func TestRunMissingInput(t *testing.T) {
	tests := []struct {
		name      string
		req       models.MatchRequest
		sourceDir string
		targetDir string
	}{
		{
			name:      "directory mode without source",
			req:       models.MatchRequest{Strategy: models.ByDirectory},
			targetDir: "/tmp",
		},
		{
			name:      "directory mode without target",
			req:       models.MatchRequest{Strategy: models.ByDirectory},
			sourceDir: "/tmp",
		},
		{
			name:      "keyword mode without keywords",
			req:       models.MatchRequest{Strategy: models.ByKeyword},
			targetDir: "/tmp",
		},
		{
			name: "keyword mode without target",
			req:  models.MatchRequest{Strategy: models.ByKeyword, Keywords: []string{"x"}},
		},
		{
			name:      "pattern replace without replacements",
			req:       models.MatchRequest{Strategy: models.ByDirectory, Basis: models.BasisPatternReplace},
			sourceDir: "/tmp",
			targetDir: "/tmp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := New(nil).Run(context.Background(), tt.req, tt.sourceDir, tt.targetDir)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, ErrMissingInput)
		})
	}
}

func TestRunMissingDirectoryIsEmptyNotError(t *testing.T) {
	// A directory that does not exist scans as empty; the run still
	// completes with zero pairs.
	result, err := New(nil).Run(context.Background(), models.MatchRequest{
		Strategy:    models.ByDirectory,
		Basis:       models.BasisFullName,
		FormatMatch: true,
	}, "/does/not/exist", "/also/missing")

	require.NoError(t, err)
	assert.Empty(t, result.Pairs)
	assert.Empty(t, result.UnmatchedSources)
	assert.Equal(t, 0, result.MatchedCount)
}

func TestRunCancelledBeforeStart(t *testing.T) {
	sourceDir := t.TempDir()
	targetDir := t.TempDir()
	writeFiles(t, sourceDir, "a.txt")
	writeFiles(t, targetDir, "a.txt")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := New(nil).Run(ctx, models.MatchRequest{
		Strategy:    models.ByDirectory,
		Basis:       models.BasisFullName,
		FormatMatch: true,
	}, sourceDir, targetDir)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
}

// cancellingMonitor cancels the run from within a progress callback,
// exercising the between-phase checkpoints.
type cancellingMonitor struct {
	cancel context.CancelFunc
	after  int
	calls  int
}

func (m *cancellingMonitor) FileCounts(int, int) {}

func (m *cancellingMonitor) Progress(int, int) {
	m.calls++
	if m.calls == m.after {
		m.cancel()
	}
}

func TestRunCancelledMidRun(t *testing.T) {
	sourceDir := t.TempDir()
	targetDir := t.TempDir()

	var names []string
	for i := 0; i < 200; i++ {
		names = append(names, fmt.Sprintf("file-%03d.txt", i))
	}
	writeFiles(t, sourceDir, names...)
	writeFiles(t, targetDir, names...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	monitor := &cancellingMonitor{cancel: cancel, after: 2}

	result, err := New(monitor).Run(ctx, models.MatchRequest{
		Strategy:    models.ByDirectory,
		Basis:       models.BasisFullName,
		FormatMatch: true,
		Concurrency: true,
	}, sourceDir, targetDir)

	assert.Nil(t, result, "no partial result after cancellation")
	assert.ErrorIs(t, err, context.Canceled)
}
