// Package hunter walks a filesystem looking for target filenames and for
// files whose contents contain the search string.
package hunter

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"sync/atomic"
	"time"

	"github.com/railwayapp/ctfhunter/internal/filesystems"
	"github.com/railwayapp/ctfhunter/internal/logger"
	"github.com/railwayapp/ctfhunter/internal/search"
	"golang.org/x/sync/errgroup"
)

// Reporter receives findings as soon as they are made. Implementations must
// emit each call as one self-contained unit, since workers report
// concurrently.
type Reporter interface {
	// FlagFile reports a file whose name is in the target set. open yields
	// the file contents; a failing open is reported, not returned.
	FlagFile(path string, open func() (io.ReadCloser, error)) error

	// StringMatch reports a file whose contents contain the needle.
	StringMatch(path string) error
}

// Options configures a Hunter.
type Options struct {
	// Needle is the search string as typed by the operator. It is folded
	// exactly once, in New.
	Needle string

	Targets TargetSet

	// ChunkSize is the scanner read size; zero means search.DefaultChunkSize.
	ChunkSize int

	// Workers bounds concurrent file visits. Values below 2 keep the walk
	// fully sequential.
	Workers int
}

// Summary counts what a run saw.
type Summary struct {
	Directories   int64         `json:"directories" yaml:"directories" toml:"directories"`
	Files         int64         `json:"files" yaml:"files" toml:"files"`
	Skipped       int64         `json:"skipped" yaml:"skipped" toml:"skipped"`
	FlagFiles     int64         `json:"flag_files" yaml:"flag_files" toml:"flag_files"`
	StringMatches int64         `json:"string_matches" yaml:"string_matches" toml:"string_matches"`
	Duration      time.Duration `json:"duration_ns" yaml:"duration_ns" toml:"duration_ns"`
}

type counters struct {
	directories   atomic.Int64
	files         atomic.Int64
	skipped       atomic.Int64
	flagFiles     atomic.Int64
	stringMatches atomic.Int64
}

func (c *counters) summary(elapsed time.Duration) Summary {
	return Summary{
		Directories:   c.directories.Load(),
		Files:         c.files.Load(),
		Skipped:       c.skipped.Load(),
		FlagFiles:     c.flagFiles.Load(),
		StringMatches: c.stringMatches.Load(),
		Duration:      elapsed,
	}
}

// Hunter walks one filesystem. The needle and target set are fixed at
// construction and shared read-only by every worker.
type Hunter struct {
	fsys     filesystems.FileSystem
	reporter Reporter
	log      logger.Logger
	scanner  *search.Scanner
	needle   []byte
	targets  TargetSet
	workers  int
}

// New creates a Hunter over fsys reporting to reporter.
func New(fsys filesystems.FileSystem, reporter Reporter, log logger.Logger, opts Options) *Hunter {
	if log == nil {
		log = logger.Nop()
	}
	targets := opts.Targets
	if len(targets.names) == 0 {
		targets = NewTargetSet()
	}

	return &Hunter{
		fsys:     fsys,
		reporter: reporter,
		log:      log,
		scanner:  search.NewScanner(opts.ChunkSize),
		needle:   search.Lower(opts.Needle),
		targets:  targets,
		workers:  max(opts.Workers, 1),
	}
}

// run holds the per-Run state so a Hunter can be reused.
type run struct {
	*Hunter
	root  string
	stats counters
	group *errgroup.Group
}

// Run walks root depth-first and reports findings as it goes. Entries that
// cannot be listed or inspected are skipped; an inaccessible root simply
// yields nothing. Only a failing reporter or a cancelled ctx stops the walk.
func (h *Hunter) Run(ctx context.Context, root string) (Summary, error) {
	start := time.Now()

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(h.workers)

	r := &run{Hunter: h, root: root, group: group}
	walkErr := r.walkDir(gctx, root)
	waitErr := group.Wait()

	summary := r.stats.summary(time.Since(start))

	// A reporter failure cancels gctx, so prefer it over the cancellation it caused
	if waitErr != nil {
		return summary, waitErr
	}
	return summary, walkErr
}

func (r *run) walkDir(ctx context.Context, dir string) error {
	r.stats.directories.Add(1)

	for entry, err := range r.fsys.ReadDir(dir) {
		if err != nil {
			if dir == r.root {
				r.log.Warnf("cannot read start directory %s: %v", dir, err)
			} else {
				r.log.Debugf("skipping directory %s: %v", dir, err)
			}
			r.stats.skipped.Add(1)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		name := entry.Name()
		if name == "." || name == ".." {
			continue
		}

		path := r.fsys.Join(dir, name)

		// Lstat never follows links, so classification and the later open agree
		info, err := r.fsys.Lstat(path)
		if err != nil {
			r.log.Debugf("skipping %s: %v", path, err)
			r.stats.skipped.Add(1)
			continue
		}

		mode := info.Mode()
		switch {
		case mode&fs.ModeSymlink != 0:
			r.log.Debugf("skipping symlink %s", path)
			r.stats.skipped.Add(1)
		case mode.IsDir():
			if err := r.walkDir(ctx, path); err != nil {
				return err
			}
		case mode.IsRegular():
			if err := r.dispatch(ctx, path, name); err != nil {
				return err
			}
		default:
			r.log.Debugf("skipping special file %s (%s)", path, mode.Type())
			r.stats.skipped.Add(1)
		}
	}

	return nil
}

// dispatch visits the file inline when sequential, or on the worker pool.
func (r *run) dispatch(ctx context.Context, path, name string) error {
	if r.workers < 2 {
		return r.visit(path, name)
	}

	r.group.Go(func() error {
		return r.visit(path, name)
	})
	return ctx.Err()
}

// visit runs both checks on one regular file. They are independent and may
// both fire.
func (r *run) visit(path, name string) error {
	r.stats.files.Add(1)

	if r.targets.Match(name) {
		r.stats.flagFiles.Add(1)
		open := func() (io.ReadCloser, error) { return r.fsys.Open(path) }
		if err := r.reporter.FlagFile(path, open); err != nil {
			return fmt.Errorf("failed to report flag file %s: %w", path, err)
		}
	}

	found, err := r.scanner.ScanFile(r.fsys, path, r.needle)
	if err != nil {
		r.log.Debugf("no content match for %s: %v", path, err)
		return nil
	}
	if found {
		r.stats.stringMatches.Add(1)
		if err := r.reporter.StringMatch(path); err != nil {
			return fmt.Errorf("failed to report string match %s: %w", path, err)
		}
	}
	return nil
}
