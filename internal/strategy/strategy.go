// Package strategy implements the pairing algorithms. Every function here is
// pure over its inputs: strategies read the prebuilt indices, never mutate
// shared state, and return their pairs by value, which is what makes chunked
// parallel execution safe without locks.
package strategy

import (
	"regexp"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/harrison/filepair/internal/index"
	"github.com/harrison/filepair/internal/models"
)

// Candidate scores for the substring keyword search, best to worst.
const (
	scoreExact     = 100 // stem equals the keyword
	scorePrefix    = 80  // stem starts with keyword plus a separator
	scoreSuffix    = 60  // stem ends with a separator plus the keyword
	scoreSubstring = 40  // plain containment
)

// ExactName pairs each source against the target index by name. With
// formatMatch the full basename must match, yielding at most one pair per
// source. Without it the stem is used instead and one source can fan out to
// every target sharing its stem.
func ExactName(sources []models.FileEntry, idx *index.Index, formatMatch bool) []models.MatchPair {
	var pairs []models.MatchPair
	for _, src := range sources {
		if formatMatch {
			if tgt, ok := idx.ByFullName[src.Base]; ok {
				pairs = append(pairs, models.MatchPair{
					Source:        &src,
					Target:        tgt,
					SourceDisplay: src.Base,
					TargetDisplay: tgt.Base,
					Key:           src.Base,
				})
			}
			continue
		}

		for _, tgt := range idx.ByStem[src.Stem] {
			pairs = append(pairs, models.MatchPair{
				Source:        &src,
				Target:        tgt,
				SourceDisplay: src.Base,
				TargetDisplay: tgt.Base,
				Key:           src.Stem,
			})
		}
	}
	return pairs
}

// IDPrefix pairs each target against every source sharing its leading
// alphanumeric id. Fan-out happens in both directions when ids repeat on
// either side. Targets without an id produce nothing.
func IDPrefix(targets []models.FileEntry, sources index.IDIndex) []models.MatchPair {
	var pairs []models.MatchPair
	for _, tgt := range targets {
		id, ok := index.ExtractID(tgt.Base)
		if !ok {
			continue
		}
		for _, src := range sources[id] {
			pairs = append(pairs, models.MatchPair{
				Source:        &src,
				Target:        tgt,
				SourceDisplay: src.Base,
				TargetDisplay: tgt.Base,
				Key:           id,
			})
		}
	}
	return pairs
}

// KeywordFull pairs a keyword only with a target whose stem equals it
// exactly. Duplicate stems resolve to the last-indexed target, matching the
// overwrite semantics of the full-name index. At most one pair per keyword.
func KeywordFull(keywords []string, idx *index.Index) []models.MatchPair {
	var pairs []models.MatchPair
	for _, kw := range keywords {
		candidates := idx.ByStem[kw]
		if len(candidates) == 0 {
			continue
		}
		tgt := candidates[len(candidates)-1]
		pairs = append(pairs, models.MatchPair{
			Target:        tgt,
			TargetDisplay: tgt.Base,
			Key:           kw,
		})
	}
	return pairs
}

// ScoredCandidate is the best target found so far for one keyword during a
// substring search. Pos is the target's absolute position in the scanned
// list and breaks score ties in favor of the earlier target, keeping the
// outcome identical between sequential and chunked runs.
type ScoredCandidate struct {
	Target models.FileEntry
	Score  int
	Pos    int
}

// scoreStem rates how well a target stem matches a keyword. Zero means the
// keyword does not occur at all.
func scoreStem(stem, keyword string) int {
	switch {
	case stem == keyword:
		return scoreExact
	case strings.HasPrefix(stem, keyword+"-") || strings.HasPrefix(stem, keyword+"_"):
		return scorePrefix
	case strings.HasSuffix(stem, "-"+keyword) || strings.HasSuffix(stem, "_"+keyword):
		return scoreSuffix
	case strings.Contains(stem, keyword):
		return scoreSubstring
	default:
		return 0
	}
}

// ScoreKeywords scans one chunk of targets and returns the best candidate
// per keyword within that chunk. offset is the chunk's starting position in
// the full target list.
func ScoreKeywords(targets []models.FileEntry, offset int, keywords []string) map[string]ScoredCandidate {
	best := make(map[string]ScoredCandidate)
	for i, tgt := range targets {
		for _, kw := range keywords {
			score := scoreStem(tgt.Stem, kw)
			if score == 0 {
				continue
			}
			candidate := ScoredCandidate{Target: tgt, Score: score, Pos: offset + i}
			if current, ok := best[kw]; !ok || betterCandidate(candidate, current) {
				best[kw] = candidate
			}
		}
	}
	return best
}

// betterCandidate reports whether a should replace b: strictly higher score
// wins, equal scores keep the earlier target.
func betterCandidate(a, b ScoredCandidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Pos < b.Pos
}

// MergeScored folds the per-chunk candidates of src into dst under the same
// replacement rule the per-chunk scan uses.
func MergeScored(dst, src map[string]ScoredCandidate) {
	for kw, candidate := range src {
		if current, ok := dst[kw]; !ok || betterCandidate(candidate, current) {
			dst[kw] = candidate
		}
	}
}

// ScoredPairs converts the winning candidates into pairs, ordered by the
// keywords' request order. Keywords with no candidate emit nothing.
func ScoredPairs(best map[string]ScoredCandidate, keywords []string) []models.MatchPair {
	var pairs []models.MatchPair
	seen := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		if seen[kw] {
			continue
		}
		seen[kw] = true
		candidate, ok := best[kw]
		if !ok {
			continue
		}
		pairs = append(pairs, models.MatchPair{
			Target:        candidate.Target,
			TargetDisplay: candidate.Target.Base,
			Key:           kw,
		})
	}
	return pairs
}

// KeywordExpand pairs each target with the first keyword, in request order,
// that occurs anywhere in its full filename. A target contributes at most
// one pair even when several keywords match it; several targets may share a
// keyword.
func KeywordExpand(targets []models.FileEntry, keywords []string) []models.MatchPair {
	var pairs []models.MatchPair
	for _, tgt := range targets {
		for _, kw := range keywords {
			if strings.Contains(tgt.Base, kw) {
				pairs = append(pairs, models.MatchPair{
					Target:        tgt,
					TargetDisplay: tgt.Base,
					Key:           kw,
				})
				break
			}
		}
	}
	return pairs
}

// Similarity pairs each source with the single target whose stem is most
// similar to the source stem, measured by normalized Levenshtein ratio. A
// pair is emitted only when the best ratio strictly exceeds minRatio, so a
// source with no sufficiently close target stays unmatched.
func Similarity(sources []models.FileEntry, targets []models.FileEntry, minRatio float64) []models.MatchPair {
	var pairs []models.MatchPair
	for _, src := range sources {
		bestScore := minRatio
		var best *models.FileEntry
		for i := range targets {
			ratio := levenshtein.RatioForStrings([]rune(src.Stem), []rune(targets[i].Stem), levenshtein.DefaultOptions)
			if ratio > bestScore {
				bestScore = ratio
				best = &targets[i]
			}
		}
		if best == nil {
			continue
		}
		pairs = append(pairs, models.MatchPair{
			Source:        &src,
			Target:        *best,
			SourceDisplay: src.Base,
			TargetDisplay: best.Base,
			Key:           best.Stem,
		})
	}
	return pairs
}

// PatternReplace tries every configured substitution on each source
// basename and pairs the source with a target whose basename equals the
// substituted name. Each replacement that produces a hit emits its own pair.
func PatternReplace(sources []models.FileEntry, idx *index.Index, replacements []models.Replacement) []models.MatchPair {
	var pairs []models.MatchPair
	for _, src := range sources {
		for _, rep := range replacements {
			if rep.Old == "" || !strings.Contains(src.Base, rep.Old) {
				continue
			}
			candidate := strings.ReplaceAll(src.Base, rep.Old, rep.New)
			tgt, ok := idx.ByFullName[candidate]
			if !ok {
				continue
			}
			pairs = append(pairs, models.MatchPair{
				Source:        &src,
				Target:        tgt,
				SourceDisplay: src.Base,
				TargetDisplay: tgt.Base,
				Key:           candidate,
			})
		}
	}
	return pairs
}

// Regex pairs sources and targets that share the value of their patterns'
// first capture group. targetsByKey carries the prebuilt target lookup with
// overwrite semantics on duplicate keys.
func Regex(sources []models.FileEntry, sourceRe *regexp.Regexp, targetsByKey map[string]models.FileEntry) []models.MatchPair {
	var pairs []models.MatchPair
	for _, src := range sources {
		key, ok := CaptureKey(sourceRe, src.Base)
		if !ok {
			continue
		}
		tgt, found := targetsByKey[key]
		if !found {
			continue
		}
		pairs = append(pairs, models.MatchPair{
			Source:        &src,
			Target:        tgt,
			SourceDisplay: src.Base,
			TargetDisplay: tgt.Base,
			Key:           key,
		})
	}
	return pairs
}

// CaptureKey extracts the first capture group of re from name. Patterns
// without capture groups, or names they do not match, produce no key.
func CaptureKey(re *regexp.Regexp, name string) (string, bool) {
	m := re.FindStringSubmatch(name)
	if len(m) < 2 || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// RegexTargetIndex keys targets by the first capture group of re. Duplicate
// keys overwrite, last target wins.
func RegexTargetIndex(targets []models.FileEntry, re *regexp.Regexp) map[string]models.FileEntry {
	byKey := make(map[string]models.FileEntry)
	for _, tgt := range targets {
		if key, ok := CaptureKey(re, tgt.Base); ok {
			byKey[key] = tgt
		}
	}
	return byKey
}
