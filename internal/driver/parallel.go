package driver

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"refaudit/internal/csharp"
	"refaudit/internal/diag"
	"refaudit/internal/observ"
	"refaudit/internal/source"
)

// CompileOptions configures Compile.
type CompileOptions struct {
	Include []string
	Exclude []string
	// Jobs bounds parallel parsing; <= 0 means GOMAXPROCS.
	Jobs           int
	AllowUnsafe    bool
	MaxDiagnostics int
	Progress       ProgressSink
	Phases         PhaseObserver
	Logger         *zap.Logger
	Timer          *observ.Timer
}

// CompileResult is a bound compilation of one directory.
type CompileResult struct {
	Dir string
	// Files are the discovered sources, relative to Dir, in sorted order.
	Files       []string
	FileSet     *source.FileSet
	Compilation *csharp.Compilation
	// Diagnostics holds load failures followed by compilation diagnostics.
	Diagnostics []diag.Diagnostic
	Timer       *observ.Timer
}

// Compile discovers the sources below dir, parses them in parallel and
// binds them in file order, so the result does not depend on scheduling.
func Compile(ctx context.Context, dir string, opts CompileOptions) (*CompileResult, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	timer := opts.Timer
	if timer == nil {
		timer = observ.NewTimer()
	}
	phases := phaseTracker{timer: timer, observer: opts.Phases}

	end := phases.begin("discover")
	emit(opts.Progress, Event{Stage: StageDiscover, Status: StatusWorking})
	files, err := Discover(dir, opts.Include, opts.Exclude)
	if err != nil {
		end("failed")
		emit(opts.Progress, Event{Stage: StageDiscover, Status: StatusError, Err: err})
		return nil, fmt.Errorf("discover %s: %w", dir, err)
	}
	end(fmt.Sprintf("%d files", len(files)))
	emit(opts.Progress, Event{Stage: StageDiscover, Status: StatusDone})
	log.Debug("discovered sources", zap.String("dir", dir), zap.Int("files", len(files)))

	res := &CompileResult{
		Dir:     dir,
		Files:   files,
		FileSet: source.NewFileSetWithBase(dir),
		Timer:   timer,
	}
	for _, f := range files {
		emit(opts.Progress, Event{File: f, Stage: StageParse, Status: StatusQueued})
	}

	end = phases.begin("parse")
	units, loadDiags, err := parseAll(ctx, res.FileSet, dir, files, opts, log)
	if err != nil {
		end("failed")
		return nil, err
	}
	end(fmt.Sprintf("%d units", len(units)))

	end = phases.begin("bind")
	emit(opts.Progress, Event{Stage: StageBind, Status: StatusWorking})
	start := time.Now()
	res.Compilation = csharp.Bind(res.FileSet, units, csharp.Options{
		AllowUnsafe:    opts.AllowUnsafe,
		MaxDiagnostics: opts.MaxDiagnostics,
		Logger:         log,
	})
	emit(opts.Progress, Event{Stage: StageBind, Status: StatusDone, Elapsed: time.Since(start)})
	res.Diagnostics = append(loadDiags, res.Compilation.Diagnostics()...)
	end(fmt.Sprintf("%d diagnostics", len(res.Diagnostics)))
	return res, nil
}

// parseAll loads files sequentially (the FileSet is not safe for concurrent
// writes) and parses them on a bounded errgroup. Results are stored by
// index, so no locking is needed.
func parseAll(ctx context.Context, fileSet *source.FileSet, dir string, files []string, opts CompileOptions, log *zap.Logger) ([]*csharp.Unit, []diag.Diagnostic, error) {
	var loadDiags []diag.Diagnostic
	loaded := make([]*source.File, len(files))
	for i, rel := range files {
		id, err := fileSet.Load(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			loadDiags = append(loadDiags, diag.NewError(diag.IOLoadFileError, source.Span{},
				fmt.Sprintf("failed to load %s: %v", rel, err)))
			emit(opts.Progress, Event{File: rel, Stage: StageParse, Status: StatusError, Err: err})
			log.Warn("load failed", zap.String("file", rel), zap.Error(err))
			continue
		}
		loaded[i] = fileSet.Get(id)
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	units := make([]*csharp.Unit, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(files))))
	for i, rel := range files {
		file := loaded[i]
		if file == nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			emit(opts.Progress, Event{File: rel, Stage: StageParse, Status: StatusWorking})
			u, err := csharp.Parse(gctx, file)
			if err != nil {
				emit(opts.Progress, Event{File: rel, Stage: StageParse, Status: StatusError, Err: err})
				return err
			}
			units[i] = u
			elapsed := time.Since(start)
			emit(opts.Progress, Event{File: rel, Stage: StageParse, Status: StatusDone, Elapsed: elapsed})
			log.Debug("parsed", zap.String("file", rel), zap.Duration("elapsed", elapsed),
				zap.Int("syntax_diagnostics", len(u.Diagnostics)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	out := make([]*csharp.Unit, 0, len(units))
	for _, u := range units {
		if u != nil {
			out = append(out, u)
		}
	}
	return out, loadDiags, nil
}
