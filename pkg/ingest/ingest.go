package ingest

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/printomat/pkg/errors"
	"github.com/matzehuels/printomat/pkg/geometry"
	"github.com/matzehuels/printomat/pkg/observability"
	"github.com/matzehuels/printomat/pkg/pagedoc"
	"github.com/matzehuels/printomat/pkg/versioning"
)

// DefaultWorkers is the default number of files normalized concurrently.
const DefaultWorkers = 4

// Options configures a Normalizer.
type Options struct {
	Paper   geometry.PaperSize
	Margin  float64
	Backend pagedoc.Backend
	Writer  *versioning.Writer
	Workers int
	Logger  *log.Logger
}

// Normalizer turns source files into normalized documents.
type Normalizer struct {
	opts Options
}

// New creates a Normalizer. Zero-valued options take defaults: A4 paper,
// the default margin, the memory backend and a private writer.
func New(opts Options) *Normalizer {
	if opts.Paper.Width == 0 {
		opts.Paper = geometry.A4
	}
	if opts.Margin == 0 {
		opts.Margin = geometry.DefaultMargin
	}
	if opts.Backend == nil {
		opts.Backend = pagedoc.MemoryBackend{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.Writer == nil {
		opts.Writer = versioning.NewWriter(opts.Logger)
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &Normalizer{opts: opts}
}

// Options returns the effective options.
func (n *Normalizer) Options() Options { return n.opts }

// Entry describes one successfully ingested file.
type Entry struct {
	Index       int
	Name        string
	Path        versioning.Path
	Pages       int
	Orientation geometry.Orientation
}

// Result is the outcome of ingesting one file. Exactly one of Entry and Err
// is set.
type Result struct {
	Name  string
	Entry *Entry
	Err   error
}

// Ingest normalizes the file at path and writes version 1 next to it.
func (n *Normalizer) Ingest(ctx context.Context, path string) (*Entry, error) {
	name := filepath.Base(path)
	start := time.Now()
	observability.Document().OnIngestStart(ctx, name)

	entry, err := n.ingest(path)

	pages := 0
	if entry != nil {
		pages = entry.Pages
	}
	observability.Document().OnIngestComplete(ctx, name, pages, time.Since(start), err)
	if err != nil {
		n.opts.Logger.Warn("ingest failed", "file", name, "error", err)
		return nil, err
	}
	n.opts.Logger.Info("normalized", "file", name, "pages", entry.Pages, "version", entry.Path.Name())
	return entry, nil
}

func (n *Normalizer) ingest(path string) (*Entry, error) {
	doc, err := n.NormalizeFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnreadableSource, err, "normalize %s", filepath.Base(path))
	}
	data, err := doc.Bytes()
	if err != nil {
		return nil, err
	}
	src := versioning.Parse(path)
	out, err := n.opts.Writer.Create(data, versioning.Path{Dir: src.Dir, Stem: src.Stem})
	if err != nil {
		return nil, err
	}
	first, _ := doc.Page(0)
	return &Entry{
		Name:        filepath.Base(path),
		Path:        out,
		Pages:       doc.PageCount(),
		Orientation: first.Size.Orientation(),
	}, nil
}

// Batch ingests files (names relative to dir) concurrently. Results are in
// input order; successful entries are indexed 0..k-1 in that order.
func (n *Normalizer) Batch(ctx context.Context, dir string, files []string) []Result {
	results := make([]Result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.opts.Workers)

	for i, name := range files {
		i, name := i, name
		results[i].Name = name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			entry, err := n.Ingest(gctx, filepath.Join(dir, name))
			results[i].Entry, results[i].Err = entry, err
			return nil
		})
	}
	_ = g.Wait()

	index := 0
	for i := range results {
		if results[i].Entry != nil {
			results[i].Entry.Index = index
			index++
		}
	}
	return results
}

// Entries returns the successful entries of results in index order.
func Entries(results []Result) []*Entry {
	var out []*Entry
	for _, r := range results {
		if r.Entry != nil {
			out = append(out, r.Entry)
		}
	}
	return out
}
