// Package engine applies reversible transformations to one active document.
//
// An [Engine] starts Pristine. The first rotation or imposition captures an
// immutable snapshot of the document's bytes and moves it to Transformed.
// Every later transformation is derived from a stable source, never from the
// previous transformation's output, so repeated operations do not compound:
// rotations re-read the snapshot and impositions re-read the ingested
// version from disk. RestoreOriginal drops all of that and reloads the
// ingested version.
//
// A failed operation leaves the document, state and options unchanged.
package engine

import (
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/printomat/pkg/errors"
	"github.com/matzehuels/printomat/pkg/geometry"
	"github.com/matzehuels/printomat/pkg/pagedoc"
	"github.com/matzehuels/printomat/pkg/versioning"
)

// State is the lifecycle state of an engine's document.
type State int

const (
	// Pristine documents match the version they were loaded from.
	Pristine State = iota
	// Transformed documents differ from it and must be saved or discarded.
	Transformed
)

// String returns the state name.
func (s State) String() string {
	if s == Transformed {
		return "transformed"
	}
	return "pristine"
}

// Config holds the page parameters and backend shared by engines.
type Config struct {
	Paper   geometry.PaperSize
	Margin  float64
	Backend pagedoc.Backend
	Logger  *log.Logger
}

func (c Config) withDefaults() Config {
	if c.Paper.Width == 0 {
		c.Paper = geometry.A4
	}
	if c.Margin == 0 {
		c.Margin = geometry.DefaultMargin
	}
	if c.Backend == nil {
		c.Backend = pagedoc.MemoryBackend{}
	}
	if c.Logger == nil {
		c.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return c
}

// Snapshot is the immutable serialized form of a document taken before its
// first transformation.
type Snapshot struct {
	data []byte
}

// Bytes returns a copy of the snapshot data.
func (s *Snapshot) Bytes() []byte {
	return append([]byte(nil), s.data...)
}

// Engine owns the active document of one entry.
type Engine struct {
	cfg      Config
	path     versioning.Path
	doc      *pagedoc.Document
	snapshot *Snapshot
	state    State
	recorded geometry.Orientation
	opts     FileOptions
	restored bool
}

// New wraps doc, loaded from the latest version of path.
func New(path versioning.Path, doc *pagedoc.Document, opts FileOptions, cfg Config) *Engine {
	e := &Engine{cfg: cfg.withDefaults(), path: path, doc: doc, opts: opts}
	if p, err := doc.Page(0); err == nil {
		e.recorded = p.Size.Orientation()
	}
	return e
}

// Open loads the latest version of path.
func Open(path versioning.Path, opts FileOptions, cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()
	doc, err := load(cfg.Backend, path.Join())
	if err != nil {
		return nil, err
	}
	return New(path, doc, opts, cfg), nil
}

func load(backend pagedoc.Backend, path string) (*pagedoc.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnreadableSource, err, "read %s", path)
	}
	return pagedoc.Open(backend, data)
}

// Document returns the active document, or nil after Release.
func (e *Engine) Document() *pagedoc.Document { return e.doc }

// Path returns the versioned path the document was loaded from.
func (e *Engine) Path() versioning.Path { return e.path }

// State returns the lifecycle state.
func (e *Engine) State() State { return e.state }

// Options returns the current file options.
func (e *Engine) Options() FileOptions { return e.opts }

// Dirty reports whether the document differs from the latest version of
// its path: it was transformed, or restored over a later version.
func (e *Engine) Dirty() bool {
	return e.state == Transformed || (e.restored && e.path.Version != e.path.Origin)
}

// Snapshot returns the captured snapshot, or nil while Pristine.
func (e *Engine) Snapshot() *Snapshot { return e.snapshot }

// Orientation returns the orientation recorded when the document was loaded.
func (e *Engine) Orientation() geometry.Orientation { return e.recorded }

// ensureSnapshot captures the snapshot once, on the first transformation.
func (e *Engine) ensureSnapshot() (*Snapshot, error) {
	if e.snapshot != nil {
		return e.snapshot, nil
	}
	if e.doc == nil {
		return nil, errors.New(errors.ErrCodeSnapshotMissing, "no active document to snapshot")
	}
	data, err := e.doc.Bytes()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSnapshotMissing, err, "capture snapshot")
	}
	return &Snapshot{data: data}, nil
}

// Rotate re-renders every page of the snapshot onto a sheet of the target
// orientation. Rotating to the recorded orientation fills the full sheet;
// rotating away from it insets by the margin and fits each page. The layout
// resets to one-up.
func (e *Engine) Rotate(target geometry.Orientation) error {
	snap, err := e.ensureSnapshot()
	if err != nil {
		return err
	}
	out, err := pagedoc.Open(e.cfg.Backend, snap.data)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSnapshotMissing, err, "reopen snapshot")
	}

	sheet := e.cfg.Paper.Sheet(target)
	dest := geometry.RectOf(sheet)
	if target != e.recorded {
		if dest, err = geometry.Inset(dest, e.cfg.Margin); err != nil {
			return err
		}
	}

	// Rotated sheets are appended after the snapshot pages they copy, then
	// the snapshot pages are discarded.
	count := out.PageCount()
	for i := 0; i < count; i++ {
		page := out.NewPage(sheet)
		if err := out.CopyRegion(page, dest, out, i); err != nil {
			return err
		}
	}
	if count > 0 {
		if err := out.DeletePages(0, count-1); err != nil {
			return err
		}
	}

	e.commit(out, snap)
	e.opts.Orientation = target
	e.opts.Layout = geometry.OneUp
	e.cfg.Logger.Debug("rotated", "path", e.path.Name(), "orientation", target, "pages", out.PageCount())
	return nil
}

// Impose tiles the ingested version n pages per sheet.
//
// When the source has fewer pages than n, a single sheet is produced and the
// pages repeat to fill every tile. Otherwise a new sheet starts every n
// pages and unused tiles of the last sheet stay blank.
func (e *Engine) Impose(n geometry.Layout) error {
	if !n.Valid() {
		return errors.New(errors.ErrCodeInvalidInput, "layout must be 1, 2 or 4, got %d", int(n))
	}
	snap, err := e.ensureSnapshot()
	if err != nil {
		return err
	}
	src, err := load(e.cfg.Backend, e.path.Ingested())
	if err != nil {
		return err
	}
	count := src.PageCount()
	if count == 0 {
		return errors.New(errors.ErrCodeGeometryDegenerate, "nothing to impose")
	}
	first, _ := src.Page(0)
	sheet := geometry.ImposedSheet(first.Size, n)
	tiles, err := geometry.TileRects(sheet, n)
	if err != nil {
		return err
	}

	out := pagedoc.New(e.cfg.Backend)
	if count < int(n) {
		page := out.NewPage(sheet)
		for t, tile := range tiles {
			if err := out.CopyRegion(page, tile, src, t%count); err != nil {
				return err
			}
		}
	} else {
		page := -1
		for i := 0; i < count; i++ {
			if i%int(n) == 0 {
				page = out.NewPage(sheet)
			}
			if err := out.CopyRegion(page, tiles[i%int(n)], src, i); err != nil {
				return err
			}
		}
	}

	e.commit(out, snap)
	e.opts.Layout = n
	e.opts.Orientation = sheet.Orientation()
	e.cfg.Logger.Debug("imposed", "path", e.path.Name(), "layout", int(n), "sheets", out.PageCount())
	return nil
}

// RestoreOriginal reloads the ingested version, drops the snapshot and
// resets the options to their defaults.
func (e *Engine) RestoreOriginal() error {
	doc, err := load(e.cfg.Backend, e.path.Ingested())
	if err != nil {
		return err
	}
	e.doc = doc
	e.snapshot = nil
	e.state = Pristine
	e.restored = true
	e.recorded = geometry.Portrait
	if p, err := doc.Page(0); err == nil {
		e.recorded = p.Size.Orientation()
	}
	e.opts = DefaultOptions(e.recorded)
	e.cfg.Logger.Debug("restored", "path", e.path.Ingested())
	return nil
}

func (e *Engine) commit(doc *pagedoc.Document, snap *Snapshot) {
	e.doc = doc
	e.snapshot = snap
	e.state = Transformed
}

// SetCopies sets the copy count, clamped to [MinCopies, MaxCopies].
func (e *Engine) SetCopies(n int) int {
	e.opts.Copies = ClampCopies(n)
	return e.opts.Copies
}

// SetColor sets the color mode.
func (e *Engine) SetColor(m ColorMode) error {
	parsed, err := ParseColorMode(string(m))
	if err != nil {
		return err
	}
	e.opts.Color = parsed
	return nil
}

// SetDuplex sets the duplex mode.
func (e *Engine) SetDuplex(d Duplex) error {
	parsed, err := ParseDuplex(string(d))
	if err != nil {
		return err
	}
	e.opts.Duplex = parsed
	return nil
}

// Release drops the document and snapshot. The engine is unusable
// afterwards.
func (e *Engine) Release() {
	e.doc = nil
	e.snapshot = nil
}
