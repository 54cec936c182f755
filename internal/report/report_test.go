package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/filepair/internal/models"
)

func sampleResult() *models.MatchResult {
	src := models.NewFileEntry("/src/101-vocal.wav")
	return &models.MatchResult{
		RunID:        "test-run",
		MatchedCount: 1,
		SourceCount:  2,
		TargetCount:  3,
		Duration:     15 * time.Millisecond,
		Pairs: []models.MatchPair{
			{
				Source:        &src,
				Target:        models.NewFileEntry("/dst/101-vocal.txt"),
				SourceDisplay: "101-vocal.wav",
				Key:           "101",
			},
		},
		UnmatchedSources: []models.FileEntry{
			models.NewFileEntry("/src/orphan.wav"),
		},
	}
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, WriteJSON(path, sampleResult()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "test-run", doc.RunID)
	assert.Equal(t, int64(15), doc.DurationMs)
	require.Len(t, doc.Pairs, 1)
	assert.Equal(t, "101-vocal.wav", doc.Pairs[0].Source)
	assert.Equal(t, "101-vocal.txt", doc.Pairs[0].Target)
	assert.Equal(t, "101", doc.Pairs[0].Key)
	assert.Equal(t, []string{"orphan.wav"}, doc.UnmatchedSources)
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, WriteCSV(path, sampleResult()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"status", "source", "target", "key"}, rows[0])
	assert.Equal(t, []string{"matched", "101-vocal.wav", "101-vocal.txt", "101"}, rows[1])
	assert.Equal(t, []string{"unmatched", "orphan.wav", "", ""}, rows[2])
}

func TestWritePicksFormatFromExtension(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "out.CSV")
	require.NoError(t, Write(csvPath, sampleResult()))
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "status,source,target,key"))

	jsonPath := filepath.Join(dir, "out.json")
	require.NoError(t, Write(jsonPath, sampleResult()))
	data, err = os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestSummary(t *testing.T) {
	s := Summary(sampleResult())
	assert.Contains(t, s, "1 pairs")
	assert.Contains(t, s, "2 sources")
	assert.Contains(t, s, "3 targets")
}
