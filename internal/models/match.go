// Package models defines the data types exchanged between the matching
// engine, its strategies, and the CLI layer.
package models

import (
	"path/filepath"
	"strings"
	"time"
)

// StrategyKind selects the overall matching mode.
type StrategyKind int

const (
	// ByDirectory pairs files from a source directory against a target directory.
	ByDirectory StrategyKind = iota
	// ByKeyword pairs user-supplied keywords against files in a target directory.
	ByKeyword
)

// String returns the human-readable strategy name.
func (s StrategyKind) String() string {
	switch s {
	case ByDirectory:
		return "directory"
	case ByKeyword:
		return "keyword"
	default:
		return "unknown"
	}
}

// Basis selects the attribute used to key a directory-mode match.
type Basis int

const (
	// BasisFullName matches on the complete filename (or the stem when
	// FormatMatch is disabled).
	BasisFullName Basis = iota
	// BasisIDPrefix matches on the leading alphanumeric run of the filename.
	BasisIDPrefix
	// BasisSimilarity matches each source to the most similar target stem.
	BasisSimilarity
	// BasisPatternReplace matches by substituting configured substrings in the
	// source filename and looking the result up among the targets.
	BasisPatternReplace
	// BasisRegex matches on the first capture group of user-supplied patterns.
	BasisRegex
)

// String returns the human-readable basis name.
func (b Basis) String() string {
	switch b {
	case BasisFullName:
		return "name"
	case BasisIDPrefix:
		return "id"
	case BasisSimilarity:
		return "similarity"
	case BasisPatternReplace:
		return "replace"
	case BasisRegex:
		return "regex"
	default:
		return "unknown"
	}
}

// TextBasis selects how keywords are compared against target filenames.
type TextBasis int

const (
	// TextFullMatch requires a keyword to equal a target stem exactly.
	TextFullMatch TextBasis = iota
	// TextSubstring searches for the keyword as a substring.
	TextSubstring
)

// String returns the human-readable text basis name.
func (t TextBasis) String() string {
	switch t {
	case TextFullMatch:
		return "full"
	case TextSubstring:
		return "search"
	default:
		return "unknown"
	}
}

// FileEntry describes one regular file observed during a scan. Entries are
// ephemeral: they are recomputed on every scan and carry no identity across
// runs.
type FileEntry struct {
	Path string // absolute path
	Base string // filename including extension
	Stem string // filename without extension
	Ext  string // extension including the leading dot, may be empty
}

// NewFileEntry derives the basename, stem, and extension for path.
func NewFileEntry(path string) FileEntry {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return FileEntry{
		Path: path,
		Base: base,
		Stem: strings.TrimSuffix(base, ext),
		Ext:  ext,
	}
}

// Replacement is one substring substitution tried by the pattern-replace
// basis.
type Replacement struct {
	Old string
	New string
}

// MatchRequest is the immutable configuration for one engine invocation.
// It is created once per run and never mutated by the engine.
type MatchRequest struct {
	Strategy    StrategyKind
	Basis       Basis
	FormatMatch bool // require matching extension (full-name basis)

	// Keyword mode settings. Keywords keep their input order and are not
	// deduplicated.
	Keywords     []string
	TextBasis    TextBasis
	ExpandSearch bool

	// Concurrency enables chunked parallel processing for large inputs.
	Concurrency bool

	// MinSimilarity is the exclusive lower bound for the similarity basis.
	MinSimilarity float64

	// Replacements drive the pattern-replace basis.
	Replacements []Replacement

	// SourcePattern and TargetPattern drive the regex basis; the first
	// capture group of each is the match key.
	SourcePattern string
	TargetPattern string
}

// MatchPair records one source/target pairing. Source is nil in keyword mode.
// Key is the value that justified the pairing: the shared filename, id,
// keyword, or stem.
type MatchPair struct {
	Source        *FileEntry
	Target        FileEntry
	SourceDisplay string
	TargetDisplay string
	Key           string
}

// MatchResult is the single terminal output of a successful run. It is
// immutable once returned. Exactly one of UnmatchedSources and
// UnmatchedKeywords is populated, depending on the request's StrategyKind.
type MatchResult struct {
	RunID             string
	Pairs             []MatchPair
	UnmatchedSources  []FileEntry
	UnmatchedKeywords []string
	MatchedCount      int
	SourceCount       int
	TargetCount       int
	Duration          time.Duration
}
