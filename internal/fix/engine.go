// Package fix deletes the source lines holding recorded attribute lists and
// writes the affected files back in place.
//
// Writes are not transactional: each file is rewritten once, files are
// processed in path order, and a failed write neither stops the remaining
// files nor rolls back files already written.
package fix

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"refaudit/internal/source"
)

// ErrNoLocations is returned when Apply receives nothing to remove.
var ErrNoLocations = errors.New("no locations to remove")

// Options configures Apply.
type Options struct {
	// DryRun computes the new buffers and diffs without writing.
	DryRun bool
	// Lenient removes lines even when the attribute list shares its line with
	// other code or spans several lines.
	Lenient bool
	Logger  *zap.Logger
}

// SkippedLocation records a location that was not removed.
type SkippedLocation struct {
	Span   source.Span
	Path   string
	Line   uint32
	Reason string
}

// FileChange summarises modifications performed on a file.
type FileChange struct {
	Path    string
	Removed int
	// Diff is a unified diff of the change; filled for dry runs.
	Diff string
}

// FileFailure records a file that could not be written.
type FileFailure struct {
	Path string
	Err  error
}

// ApplyResult aggregates file changes, skipped locations and write failures.
type ApplyResult struct {
	FileChanges []FileChange
	Skipped     []SkippedLocation
	Failed      []FileFailure
}

// Removed is the total number of removed lines.
func (r *ApplyResult) Removed() int {
	n := 0
	for _, c := range r.FileChanges {
		n += c.Removed
	}
	return n
}

// Apply groups locs by file, removes the line holding each location's start
// in strictly descending offset order, and writes every changed file once.
// Write errors are collected per file and joined into the returned error.
func Apply(fs *source.FileSet, locs []source.Span, opts Options) (*ApplyResult, error) {
	result := &ApplyResult{
		FileChanges: make([]FileChange, 0),
		Skipped:     make([]SkippedLocation, 0),
		Failed:      make([]FileFailure, 0),
	}
	if fs == nil {
		return result, fmt.Errorf("fix: FileSet is nil")
	}
	if len(locs) == 0 {
		return result, ErrNoLocations
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	groups := groupByFile(locs)
	fileIDs := make([]source.FileID, 0, len(groups))
	for id := range groups {
		fileIDs = append(fileIDs, id)
	}
	sort.Slice(fileIDs, func(i, j int) bool {
		return fs.Get(fileIDs[i]).Path < fs.Get(fileIDs[j]).Path
	})

	baseDir := fs.BaseDir()
	var writeErrs []error
	for _, id := range fileIDs {
		file := fs.Get(id)
		if file == nil {
			return result, fmt.Errorf("fix: unknown file id %d", id)
		}
		path := file.FormatPath("relative", baseDir)

		plan := planFile(file, groups[id], opts.Lenient)
		for _, s := range plan.skipped {
			s.Path = path
			result.Skipped = append(result.Skipped, s)
		}
		if len(plan.offsets) == 0 {
			continue
		}

		buf := file.Content
		for _, off := range plan.offsets {
			buf = source.RemoveLine(buf, off)
		}
		change := FileChange{Path: path, Removed: len(plan.offsets)}

		if opts.DryRun {
			change.Diff = unifiedDiff(path, file.Content, buf)
			result.FileChanges = append(result.FileChanges, change)
			continue
		}
		if file.Flags&source.FileVirtual != 0 {
			result.FileChanges = append(result.FileChanges, change)
			continue
		}
		if err := writeFile(file, buf); err != nil {
			logger.Warn("write failed", zap.String("path", file.Path), zap.Error(err))
			result.Failed = append(result.Failed, FileFailure{Path: path, Err: err})
			writeErrs = append(writeErrs, fmt.Errorf("write %s: %w", file.Path, err))
			continue
		}
		logger.Debug("file rewritten", zap.String("path", file.Path), zap.Int("removed", change.Removed))
		result.FileChanges = append(result.FileChanges, change)
	}
	return result, errors.Join(writeErrs...)
}

func writeFile(file *source.File, content []byte) error {
	out, err := file.Encode(content)
	if err != nil {
		return err
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(file.Path); err == nil {
		mode = info.Mode()
	}
	return os.WriteFile(file.Path, out, mode)
}

func groupByFile(locs []source.Span) map[source.FileID][]source.Span {
	buckets := make(map[source.FileID][]source.Span)
	seen := make(map[source.Span]struct{}, len(locs))
	for _, loc := range locs {
		if _, dup := seen[loc]; dup {
			continue
		}
		seen[loc] = struct{}{}
		buckets[loc.File] = append(buckets[loc.File], loc)
	}
	return buckets
}
