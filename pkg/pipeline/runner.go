package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/printomat/pkg/cache"
	"github.com/matzehuels/printomat/pkg/engine"
	"github.com/matzehuels/printomat/pkg/geometry"
	"github.com/matzehuels/printomat/pkg/ingest"
	"github.com/matzehuels/printomat/pkg/observability"
	"github.com/matzehuels/printomat/pkg/preview"
	"github.com/matzehuels/printomat/pkg/versioning"
)

// Runner encapsulates pipeline execution with preview caching.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete ingest → transform → save pipeline over files
// (names relative to dir). Per-file failures are reported in the result;
// only invalid options fail the whole run.
func (r *Runner) Execute(ctx context.Context, dir string, files []string, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	writer := versioning.NewWriter(opts.Logger)
	normalizer := ingest.New(ingest.Options{
		Paper:   opts.paper,
		Margin:  opts.Margin,
		Backend: opts.backend,
		Writer:  writer,
		Workers: opts.Workers,
		Logger:  opts.Logger,
	})
	cfg := engine.Config{
		Paper:   opts.paper,
		Margin:  opts.Margin,
		Backend: opts.backend,
		Logger:  opts.Logger,
	}

	result := &Result{Files: make([]FileResult, len(files))}
	result.Stats.Files = len(files)

	// Stage 1: Ingest
	ingestStart := time.Now()
	ingested := normalizer.Batch(ctx, dir, files)
	result.Stats.IngestTime = time.Since(ingestStart)

	r.Logger.Info("ingested files",
		"files", len(files),
		"documents", len(ingest.Entries(ingested)),
		"duration", result.Stats.IngestTime)

	// Stages 2 and 3 run per document so one failure cannot affect another.
	for i, in := range ingested {
		fr := &result.Files[i]
		fr.Name = in.Name
		if in.Err != nil {
			fr.Err = in.Err
			result.Stats.Failed++
			continue
		}
		if err := ctx.Err(); err != nil {
			fr.Err = err
			result.Stats.Failed++
			continue
		}
		r.process(ctx, in.Entry, writer, cfg, &opts, fr, &result.Stats)
		if fr.Err != nil {
			result.Stats.Failed++
		}
	}

	r.Logger.Info("pipeline finished",
		"saved", result.Stats.Saved,
		"failed", result.Stats.Failed,
		"transform", result.Stats.TransformTime,
		"save", result.Stats.SaveTime)
	return result, nil
}

// process transforms and saves one ingested entry, filling fr.
func (r *Runner) process(ctx context.Context, entry *ingest.Entry, writer *versioning.Writer, cfg engine.Config, opts *Options, fr *FileResult, stats *Stats) {
	fr.Output, fr.Version, fr.Pages = entry.Path.Join(), entry.Path.Version, entry.Pages

	fileOpts := engine.DefaultOptions(entry.Orientation)
	fileOpts.Copies = opts.Copies
	fileOpts.Color = engine.ColorMode(opts.Color)
	fileOpts.Duplex = engine.Duplex(opts.Duplex)

	eng, err := engine.Open(entry.Path, fileOpts, cfg)
	if err != nil {
		fr.Err = err
		return
	}
	defer eng.Release()

	// Stage 2: Transform
	if opts.Transforms() {
		op := "rotate"
		if opts.layout > geometry.OneUp {
			op = "impose"
		}
		hooks := observability.Document()
		hooks.OnTransformStart(ctx, op, eng.Document().PageCount())
		start := time.Now()
		if op == "impose" {
			if opts.rotate {
				r.Logger.Warn("orientation ignored for imposed layout", "file", entry.Name)
			}
			err = eng.Impose(opts.layout)
		} else {
			err = eng.Rotate(opts.orientation)
		}
		elapsed := time.Since(start)
		stats.TransformTime += elapsed
		hooks.OnTransformComplete(ctx, op, elapsed, err)
		if err != nil {
			fr.Err = err
			return
		}
	}
	fr.Options = eng.Options()
	fr.Pages = eng.Document().PageCount()
	stats.Pages += fr.Pages

	if opts.Preview {
		renderer := preview.NewRenderer(nil, r.Cache, r.Keyer, r.Logger)
		png, err := renderer.RenderPNG(ctx, eng.Document(), preview.Request{
			Width:     opts.PreviewWidth,
			Height:    opts.PreviewHeight,
			Grayscale: fileOpts.Color == engine.Grayscale,
		})
		if err != nil {
			r.Logger.Warn("preview failed", "file", entry.Name, "error", err)
		}
		fr.Preview = png
	}

	// Stage 3: Save
	if !eng.Dirty() {
		return
	}
	start := time.Now()
	next, err := writer.Save(eng.Document(), entry.Path)
	stats.SaveTime += time.Since(start)
	observability.Document().OnSave(ctx, next.Join(), next.Version, err)
	if err != nil {
		fr.Err = err
		return
	}
	fr.Output, fr.Version = next.Join(), next.Version
	stats.Saved++
	r.Logger.Debug("saved", "file", entry.Name, "version", next.Name(), "pages", fr.Pages)
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
