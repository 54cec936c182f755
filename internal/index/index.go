// Package index builds the lookup structures the matching strategies run
// against. Indices are built once per run and treated as read-only for the
// duration of chunk processing.
package index

import (
	"context"
	"regexp"

	"github.com/harrison/filepair/internal/models"
)

// BatchSize is the number of entries processed between progress ticks and
// cancellation checks during index construction.
const BatchSize = 1000

var idPattern = regexp.MustCompile(`^[A-Za-z0-9]+`)

// Index holds the name-keyed lookup structures for one side of a match.
type Index struct {
	// ByFullName maps basename to entry. Duplicate basenames overwrite:
	// the last entry processed wins.
	ByFullName map[string]models.FileEntry

	// ByStem maps stem to every entry sharing it, so a single stem can
	// fan out to multiple pairs.
	ByStem map[string][]models.FileEntry
}

// Build constructs an Index over entries in fixed-size batches. The progress
// callback (nil allowed) receives a tick after every batch, and ctx is
// checked at the same boundaries so cancellation never waits on a full
// single-pass build.
func Build(ctx context.Context, entries []models.FileEntry, progress func(completed, total int)) (*Index, error) {
	idx := &Index{
		ByFullName: make(map[string]models.FileEntry, len(entries)),
		ByStem:     make(map[string][]models.FileEntry),
	}

	total := len(entries)
	for start := 0; start < total; start += BatchSize {
		end := start + BatchSize
		if end > total {
			end = total
		}

		for _, entry := range entries[start:end] {
			idx.ByFullName[entry.Base] = entry
			idx.ByStem[entry.Stem] = append(idx.ByStem[entry.Stem], entry)
		}

		if progress != nil {
			progress(end, total)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	return idx, nil
}

// ExtractID returns the leading alphanumeric run of name. Names that do not
// start with an alphanumeric character have no id and are reported as
// not ok; such files are excluded from id-based matching entirely.
func ExtractID(name string) (string, bool) {
	id := idPattern.FindString(name)
	return id, id != ""
}

// IDIndex maps an extracted id to every entry sharing it.
type IDIndex map[string][]models.FileEntry

// BuildIDIndex keys entries by their extracted id. Entries without an id are
// skipped, which also drops them from unmatched accounting downstream.
func BuildIDIndex(entries []models.FileEntry) IDIndex {
	idx := make(IDIndex)
	for _, entry := range entries {
		id, ok := ExtractID(entry.Base)
		if !ok {
			continue
		}
		idx[id] = append(idx[id], entry)
	}
	return idx
}
