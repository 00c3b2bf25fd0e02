// Package session orchestrates the documents of one upload.
//
// A kiosk user types an upload code; the files uploaded under that code live
// in one directory. A [Session] ingests every supported file in it, then lets
// the user work on one document at a time: select it, preview it, rotate or
// impose it, change its print options and finally save or discard it.
//
// At most one entry is active. Selecting another entry finalizes the active
// one first, so a transformed document is always written as a new version
// before the user moves on. Closing the session finalizes whatever is still
// active.
//
// # Architecture
//
// Sessions are held by a [Manager], which maps session IDs to live sessions,
// expires idle ones and records a [Manifest] of the final print jobs in a
// [Store] when a session closes:
//   - memory: [NewMemoryStore] for tests and single-run CLI use
//   - file: [NewFileStore] keeps one JSON manifest per session on disk
//
// # Usage
//
//	sess, err := session.Open(ctx, "/srv/uploads/4821", cfg)
//	if err != nil {
//	    return err
//	}
//	results, err := sess.Ingest(ctx)
//	...
//	if err := sess.Rotate(ctx, 0, geometry.Landscape); err != nil {
//	    // the previous document is still active and unchanged
//	}
//	path, err := sess.FinalizeSave(ctx, 0)
package session

import (
	"context"
	"image"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/printomat/pkg/engine"
	"github.com/matzehuels/printomat/pkg/errors"
	"github.com/matzehuels/printomat/pkg/geometry"
	"github.com/matzehuels/printomat/pkg/ingest"
	"github.com/matzehuels/printomat/pkg/observability"
	"github.com/matzehuels/printomat/pkg/preview"
	"github.com/matzehuels/printomat/pkg/versioning"
)

// Default durations and sizes.
const (
	// DefaultTTL is how long a session may sit idle before it expires.
	DefaultTTL = 15 * time.Minute

	// DefaultPreviewWidth and DefaultPreviewHeight bound previews that do
	// not ask for a size.
	DefaultPreviewWidth  = 600
	DefaultPreviewHeight = 850
)

// Config holds the collaborators shared by all sessions.
type Config struct {
	Normalizer *ingest.Normalizer
	Writer     *versioning.Writer
	Engine     engine.Config
	Renderer   *preview.Renderer
	TTL        time.Duration
	Logger     *log.Logger
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if c.Normalizer == nil {
		c.Normalizer = ingest.New(ingest.Options{Writer: c.Writer, Logger: c.Logger})
	}
	opts := c.Normalizer.Options()
	if c.Writer == nil {
		c.Writer = opts.Writer
	}
	if c.Engine.Paper.Width == 0 {
		c.Engine.Paper = opts.Paper
	}
	if c.Engine.Margin == 0 {
		c.Engine.Margin = opts.Margin
	}
	if c.Engine.Backend == nil {
		c.Engine.Backend = opts.Backend
	}
	if c.Engine.Logger == nil {
		c.Engine.Logger = c.Logger
	}
	if c.Renderer == nil {
		c.Renderer = preview.NewRenderer(nil, nil, nil, c.Logger)
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	return c
}

// Entry is one ingested document of a session.
type Entry struct {
	Index   int
	Name    string
	Path    versioning.Path
	Pages   int
	Options engine.FileOptions

	engine *engine.Engine
}

// Failure records a file that could not be ingested.
type Failure struct {
	Name    string      `json:"name"`
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

// Session is the working state of one upload directory. Its methods are
// safe for concurrent use.
type Session struct {
	ID        string
	Code      string
	Dir       string
	CreatedAt time.Time

	mu        sync.Mutex
	cfg       Config
	expiresAt time.Time
	entries   []*Entry
	failures  []Failure
	active    int
	revision  int
	ingested  bool
	closed    bool
}

// Open creates a session over the upload directory dir. The directory name
// is the upload code.
func Open(ctx context.Context, dir string, cfg Config) (*Session, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnreadableSource, err, "open upload %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.ErrCodeInvalidPath, "%s is not a directory", dir)
	}
	cfg = cfg.withDefaults()
	now := time.Now()
	s := &Session{
		ID:        uuid.NewString(),
		Code:      filepath.Base(dir),
		Dir:       dir,
		CreatedAt: now,
		cfg:       cfg,
		expiresAt: now.Add(cfg.TTL),
		active:    -1,
	}
	cfg.Logger.Debug("session opened", "session", s.ID, "dir", dir)
	return s, nil
}

// ExpiresAt returns the time the session expires unless it is used again.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// IsExpired reports whether the session has been idle past its TTL.
func (s *Session) IsExpired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Now().After(s.expiresAt)
}

// Ingest normalizes every supported file of the upload directory. Failed
// files are reported in the results and kept as session failures; the
// successful entries are indexed contiguously from zero.
func (s *Session) Ingest(ctx context.Context) ([]ingest.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return nil, err
	}
	if s.ingested {
		return nil, errors.New(errors.ErrCodeInvalidInput, "session %s already ingested", s.ID)
	}

	files, err := ingest.ListSources(s.Dir)
	if err != nil {
		return nil, err
	}
	results := s.cfg.Normalizer.Batch(ctx, s.Dir, files)
	for _, r := range results {
		if r.Err != nil {
			s.failures = append(s.failures, Failure{
				Name:    r.Name,
				Code:    errors.GetCode(r.Err),
				Message: errors.UserMessage(r.Err),
			})
			continue
		}
		s.entries = append(s.entries, &Entry{
			Index:   r.Entry.Index,
			Name:    r.Entry.Name,
			Path:    r.Entry.Path,
			Pages:   r.Entry.Pages,
			Options: engine.DefaultOptions(r.Entry.Orientation),
		})
	}
	s.ingested = true
	s.touch()
	s.cfg.Logger.Info("session ingested", "session", s.ID, "documents", len(s.entries), "failed", len(s.failures))
	return results, nil
}

// Select makes the entry at index active, finalizing the previously active
// entry.
func (s *Session) Select(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.activate(ctx, index)
	return err
}

// Active returns the index of the active entry, or -1.
func (s *Session) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Preview renders page of the entry at index at the default preview size.
func (s *Session) Preview(ctx context.Context, index, page int) (image.Image, error) {
	data, err := s.PreviewPNG(ctx, index, preview.Request{Page: page})
	if err != nil {
		return nil, err
	}
	return preview.DecodePNG(data)
}

// PreviewPNG renders a page of the entry at index as PNG. Grayscale follows
// the entry's color mode; a zero size takes the defaults.
func (s *Session) PreviewPNG(ctx context.Context, index int, req preview.Request) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.activate(ctx, index)
	if err != nil {
		return nil, err
	}
	doc := e.engine.Document()
	if req.Page < 0 || req.Page >= doc.PageCount() {
		return nil, errors.New(errors.ErrCodeNotFound, "page %d of %s (has %d)", req.Page, e.Name, doc.PageCount())
	}
	if req.Width <= 0 {
		req.Width = DefaultPreviewWidth
	}
	if req.Height <= 0 {
		req.Height = DefaultPreviewHeight
	}
	req.Grayscale = e.engine.Options().Color == engine.Grayscale
	return s.cfg.Renderer.RenderPNG(ctx, doc, req)
}

// Rotate re-renders the entry at index onto sheets of orientation o.
func (s *Session) Rotate(ctx context.Context, index int, o geometry.Orientation) error {
	return s.transform(ctx, index, "rotate", func(e *engine.Engine) error {
		return e.Rotate(o)
	})
}

// Impose tiles the entry at index n pages per sheet.
func (s *Session) Impose(ctx context.Context, index int, n geometry.Layout) error {
	return s.transform(ctx, index, "impose", func(e *engine.Engine) error {
		return e.Impose(n)
	})
}

// RestoreOriginal reverts the entry at index to its ingested version and
// resets its options.
func (s *Session) RestoreOriginal(ctx context.Context, index int) error {
	return s.transform(ctx, index, "restore", func(e *engine.Engine) error {
		return e.RestoreOriginal()
	})
}

func (s *Session) transform(ctx context.Context, index int, op string, fn func(*engine.Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.activate(ctx, index)
	if err != nil {
		return err
	}

	hooks := observability.Document()
	hooks.OnTransformStart(ctx, op, e.engine.Document().PageCount())
	start := time.Now()
	err = fn(e.engine)
	hooks.OnTransformComplete(ctx, op, time.Since(start), err)
	if err != nil {
		s.cfg.Logger.Warn("transform failed", "session", s.ID, "op", op, "file", e.Name, "error", err)
		return err
	}
	s.revision++
	s.cfg.Logger.Debug("transformed", "session", s.ID, "op", op, "file", e.Name, "pages", e.engine.Document().PageCount())
	return nil
}

// SetCopies sets the copy count of the entry at index and returns the
// clamped value.
func (s *Session) SetCopies(index, n int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(index)
	if err != nil {
		return 0, err
	}
	e.Options.Copies = engine.ClampCopies(n)
	if e.engine != nil {
		e.engine.SetCopies(n)
	}
	s.revision++
	return e.Options.Copies, nil
}

// SetColor sets the color mode of the entry at index.
func (s *Session) SetColor(index int, m engine.ColorMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(index)
	if err != nil {
		return err
	}
	parsed, err := engine.ParseColorMode(string(m))
	if err != nil {
		return err
	}
	if e.engine != nil {
		if err := e.engine.SetColor(parsed); err != nil {
			return err
		}
	}
	e.Options.Color = parsed
	s.revision++
	return nil
}

// SetDuplex sets the duplex mode of the entry at index.
func (s *Session) SetDuplex(index int, d engine.Duplex) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(index)
	if err != nil {
		return err
	}
	parsed, err := engine.ParseDuplex(string(d))
	if err != nil {
		return err
	}
	if e.engine != nil {
		if err := e.engine.SetDuplex(parsed); err != nil {
			return err
		}
	}
	e.Options.Duplex = parsed
	s.revision++
	return nil
}

// FinalizeSave ends the active life of the entry at index and returns the
// path of its current version. A changed document is written as a new
// version first; an unchanged one is released without writing. If the write
// fails the entry stays active so the caller may retry or discard.
func (s *Session) FinalizeSave(ctx context.Context, index int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(index)
	if err != nil {
		return "", err
	}
	if e.engine == nil {
		return e.Path.Join(), nil
	}
	return s.finalize(ctx, e)
}

func (s *Session) finalize(ctx context.Context, e *Entry) (string, error) {
	eng := e.engine
	if eng.Dirty() {
		next, err := s.cfg.Writer.Save(eng.Document(), e.Path)
		observability.Document().OnSave(ctx, next.Join(), next.Version, err)
		if err != nil {
			s.cfg.Logger.Error("save failed", "session", s.ID, "file", e.Name, "error", err)
			return "", err
		}
		e.Path = next
		s.cfg.Logger.Info("saved", "session", s.ID, "file", e.Name, "version", next.Name())
	}
	e.Pages = eng.Document().PageCount()
	e.Options = eng.Options()
	s.release(e)
	return e.Path.Join(), nil
}

// Discard releases the entry at index without saving. Its print options
// are kept; transformations are dropped.
func (s *Session) Discard(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(index)
	if err != nil {
		return err
	}
	if e.engine != nil {
		s.release(e)
		s.cfg.Logger.Debug("discarded", "session", s.ID, "file", e.Name)
	}
	return nil
}

func (s *Session) release(e *Entry) {
	e.engine.Release()
	e.engine = nil
	if s.active == e.Index {
		s.active = -1
	}
	s.revision++
}

// Close finalizes the active entry and makes the session unusable. Closing
// twice is a no-op. If the upload directory has vanished the active entry's
// changes are dropped and the session still closes.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if s.active >= 0 {
		e := s.entries[s.active]
		if _, err := s.finalize(ctx, e); err != nil {
			if !errors.IsSourceVanished(err) {
				return err
			}
			s.cfg.Logger.Warn("upload vanished, changes dropped", "session", s.ID, "file", e.Name)
			s.release(e)
		}
	}
	s.closed = true
	s.cfg.Logger.Debug("session closed", "session", s.ID)
	return nil
}

// abandon makes the session unusable without saving the active entry.
func (s *Session) abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active >= 0 {
		s.release(s.entries[s.active])
	}
	s.closed = true
}

// usable reports why the session cannot be used, if it cannot.
func (s *Session) usable() error {
	if s.closed {
		return errors.New(errors.ErrCodeSessionNotFound, "session %s is closed", s.ID)
	}
	return nil
}

func (s *Session) touch() {
	s.expiresAt = time.Now().Add(s.cfg.TTL)
}

func (s *Session) entry(index int) (*Entry, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(s.entries) {
		return nil, errors.New(errors.ErrCodeNotFound, "no document %d in session %s", index, s.ID)
	}
	s.touch()
	return s.entries[index], nil
}

// activate returns the entry at index with a live engine, finalizing the
// previously active entry when the selection changes.
func (s *Session) activate(ctx context.Context, index int) (*Entry, error) {
	e, err := s.entry(index)
	if err != nil {
		return nil, err
	}
	if s.active == index && e.engine != nil {
		return e, nil
	}
	if s.active >= 0 {
		if _, err := s.finalize(ctx, s.entries[s.active]); err != nil {
			return nil, err
		}
	}
	eng, err := engine.Open(e.Path, e.Options, s.cfg.Engine)
	if err != nil {
		return nil, err
	}
	e.engine = eng
	s.active = index
	s.revision++
	return e, nil
}
