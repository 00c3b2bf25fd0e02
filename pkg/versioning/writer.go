package versioning

import (
	"bytes"
	stderrors "errors"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/printomat/pkg/errors"
	"github.com/matzehuels/printomat/pkg/pagedoc"
)

// maxProbe bounds the search for a free version name.
const maxProbe = 10000

// Writer allocates version names and writes files exclusively. It never
// overwrites an existing file. Calls are serialized, so concurrent saves of
// the same stem receive distinct versions.
type Writer struct {
	mu     sync.Mutex
	logger *log.Logger
}

// NewWriter creates a writer. A nil logger discards output.
func NewWriter(logger *log.Logger) *Writer {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Writer{logger: logger}
}

// Save writes doc as the version after p.Version and marks it terminally
// saved. If that name is taken it advances to the next free one. Saving a
// document twice fails with DOUBLE_SAVE; a failed save leaves doc unsaved.
func (w *Writer) Save(doc *pagedoc.Document, p Path) (Path, error) {
	if doc.Saved() {
		return p, errors.New(errors.ErrCodeDoubleSave, "document %s already saved", doc.ID())
	}
	next, err := w.write(doc, p)
	if err != nil {
		return p, err
	}
	doc.MarkSaved()
	return next, nil
}

// Create writes already-serialized data as a new version after p.Version
// and makes it the origin of the returned path. Ingestion uses it to
// produce <stem>.1.
func (w *Writer) Create(data []byte, p Path) (Path, error) {
	next, err := w.write(bytes.NewReader(data), p)
	if err != nil {
		return p, err
	}
	next.Origin = next.Version
	return next, nil
}

// write serializes src into the first free version after p. The document
// is encoded straight into the exclusively created file.
func (w *Writer) write(src io.WriterTo, p Path) (Path, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	next := p.Next()
	for i := 0; i < maxProbe; i++ {
		n, err := writeExclusive(next.Join(), src)
		switch {
		case err == nil:
			w.logger.Debug("wrote version", "path", next.Join(), "bytes", n)
			return next, nil
		case stderrors.Is(err, fs.ErrExist):
			w.logger.Debug("version taken", "path", next.Join())
			next = next.Next()
		case stderrors.Is(err, fs.ErrNotExist):
			return p, errors.Wrap(errors.ErrCodeUnreadableSource, err, "directory %s vanished", p.Dir)
		default:
			return p, errors.Wrap(errors.ErrCodeInternal, err, "write %s", next.Join())
		}
	}
	return p, errors.New(errors.ErrCodeInternal, "no free version for %s after %d attempts", p.Stem, maxProbe)
}

func writeExclusive(path string, src io.WriterTo) (int64, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := src.WriteTo(f)
	if err != nil {
		f.Close()
		os.Remove(path)
		return 0, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return 0, err
	}
	return n, nil
}
