// Package fileutil provides the non-recursive directory scanner that feeds
// the matching engine.
//
// Scanning is deliberately forgiving: a missing, empty, or inaccessible
// directory produces an empty file set rather than an error, so the engine
// can report "no matches" instead of failing on half-configured input.
package fileutil
