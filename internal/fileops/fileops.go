// Package fileops applies bulk copy, move, and delete operations to the
// files selected by a match run.
package fileops

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/harrison/filepair/internal/models"
)

// Failure records one file that could not be processed.
type Failure struct {
	Path string
	Err  error
}

// Outcome summarizes a bulk operation. Failures holds one entry per file
// that could not be processed; the operation keeps going past individual
// failures.
type Outcome struct {
	Succeeded int
	Failures  []Failure
}

// Failed reports whether any file failed.
func (o *Outcome) Failed() bool {
	return len(o.Failures) > 0
}

// targets extracts the target paths of all pairs.
func targets(pairs []models.MatchPair) []string {
	paths := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		paths = append(paths, pair.Target.Path)
	}
	return paths
}

// CopyTargets copies every matched target file into destDir. Existing files
// in destDir with the same basename are overwritten.
func CopyTargets(ctx context.Context, pairs []models.MatchPair, destDir string) (*Outcome, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("create destination directory: %w", err)
	}

	outcome := &Outcome{}
	for _, path := range targets(pairs) {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}
		if err := copyFile(path, filepath.Join(destDir, filepath.Base(path))); err != nil {
			outcome.Failures = append(outcome.Failures, Failure{Path: path, Err: err})
			continue
		}
		outcome.Succeeded++
	}
	return outcome, nil
}

// MoveTargets moves every matched target file into destDir. Rename is tried
// first; cross-device moves fall back to copy and remove.
func MoveTargets(ctx context.Context, pairs []models.MatchPair, destDir string) (*Outcome, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("create destination directory: %w", err)
	}

	outcome := &Outcome{}
	for _, path := range targets(pairs) {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}
		dest := filepath.Join(destDir, filepath.Base(path))
		if err := os.Rename(path, dest); err != nil {
			if err = copyFile(path, dest); err == nil {
				err = os.Remove(path)
			}
			if err != nil {
				outcome.Failures = append(outcome.Failures, Failure{Path: path, Err: err})
				continue
			}
		}
		outcome.Succeeded++
	}
	return outcome, nil
}

// DeleteTargets removes every matched target file.
func DeleteTargets(ctx context.Context, pairs []models.MatchPair) (*Outcome, error) {
	outcome := &Outcome{}
	for _, path := range targets(pairs) {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}
		if err := os.Remove(path); err != nil {
			outcome.Failures = append(outcome.Failures, Failure{Path: path, Err: err})
			continue
		}
		outcome.Succeeded++
	}
	return outcome, nil
}

// copyFile copies src to dest preserving the source file mode.
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}
