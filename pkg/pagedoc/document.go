package pagedoc

import (
	"bytes"
	"io"

	"github.com/google/uuid"

	"github.com/matzehuels/printomat/pkg/errors"
	"github.com/matzehuels/printomat/pkg/geometry"
)

// Backend inspects and encodes serialized paged documents.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string
	// Inspect returns the size of every page of a serialized document.
	Inspect(data []byte) ([]geometry.Size, error)
	// Encode serializes doc to w. Encoding the same document twice must
	// produce identical bytes.
	Encode(w io.Writer, doc *Document) error
}

// Placement puts one page of a paged blob, or an image blob, into a
// destination rectangle on a page. The source is scaled to exactly fill Dest.
type Placement struct {
	Blob *Blob
	Page int
	Dest geometry.Rect
}

// Page is one page of a document.
type Page struct {
	Size       geometry.Size
	Placements []Placement
}

// Document is an ordered sequence of pages backed by a Backend.
type Document struct {
	id      string
	backend Backend
	pages   []Page
	saved   bool
}

// New creates an empty document.
func New(backend Backend) *Document {
	return &Document{id: uuid.NewString(), backend: backend}
}

// Open loads a serialized document. Each source page becomes a page of the
// same size holding a single full-page placement of the source.
func Open(backend Backend, data []byte) (*Document, error) {
	sizes, err := backend.Inspect(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnreadableSource, err, "open %s document", backend.Name())
	}
	blob := NewPagedBlob(data)
	doc := New(backend)
	for i, size := range sizes {
		doc.pages = append(doc.pages, Page{
			Size:       size,
			Placements: []Placement{{Blob: blob, Page: i, Dest: geometry.RectOf(size)}},
		})
	}
	return doc, nil
}

// ID returns the document's unique identifier.
func (d *Document) ID() string { return d.id }

// Backend returns the backend that encodes the document.
func (d *Document) Backend() Backend { return d.backend }

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return len(d.pages) }

// Page returns a copy of page i.
func (d *Document) Page(i int) (Page, error) {
	if i < 0 || i >= len(d.pages) {
		return Page{}, errors.New(errors.ErrCodeInvalidInput, "page %d out of range [0,%d)", i, len(d.pages))
	}
	p := d.pages[i]
	p.Placements = append([]Placement(nil), p.Placements...)
	return p, nil
}

// Pages returns copies of all pages in order.
func (d *Document) Pages() []Page {
	out := make([]Page, len(d.pages))
	for i := range d.pages {
		out[i], _ = d.Page(i)
	}
	return out
}

// NewPage appends a blank page of the given size and returns its index.
func (d *Document) NewPage(size geometry.Size) int {
	d.pages = append(d.pages, Page{Size: size})
	return len(d.pages) - 1
}

// CopyRegion renders page srcPage of src into dest on page dst, fitted with
// its proportions kept and centred.
func (d *Document) CopyRegion(dst int, dest geometry.Rect, src *Document, srcPage int) error {
	if dst < 0 || dst >= len(d.pages) {
		return errors.New(errors.ErrCodeInvalidInput, "destination page %d out of range", dst)
	}
	page, err := src.Page(srcPage)
	if err != nil {
		return err
	}
	if page.Size.Empty() || dest.Empty() {
		return errors.New(errors.ErrCodeGeometryDegenerate, "cannot copy %+v into %+v", page.Size, dest)
	}
	fitted := geometry.Fit(page.Size, dest)
	for _, pl := range page.Placements {
		d.pages[dst].Placements = append(d.pages[dst].Placements, Placement{
			Blob: pl.Blob,
			Page: pl.Page,
			Dest: geometry.Map(pl.Dest, page.Size, fitted),
		})
	}
	return nil
}

// PlaceImage places an image blob fitted into dest on page dst.
func (d *Document) PlaceImage(dst int, dest geometry.Rect, blob *Blob) error {
	if dst < 0 || dst >= len(d.pages) {
		return errors.New(errors.ErrCodeInvalidInput, "destination page %d out of range", dst)
	}
	if blob.Kind() != KindImage {
		return errors.New(errors.ErrCodeInvalidInput, "blob is not an image")
	}
	if blob.PixelSize().Empty() || dest.Empty() {
		return errors.New(errors.ErrCodeGeometryDegenerate, "cannot place image into %+v", dest)
	}
	d.pages[dst].Placements = append(d.pages[dst].Placements, Placement{
		Blob: blob,
		Dest: geometry.Fit(blob.PixelSize(), dest),
	})
	return nil
}

// DeletePages removes pages from..to inclusive.
func (d *Document) DeletePages(from, to int) error {
	if from < 0 || to >= len(d.pages) || from > to {
		return errors.New(errors.ErrCodeInvalidInput, "invalid page range %d-%d of %d", from, to, len(d.pages))
	}
	d.pages = append(d.pages[:from], d.pages[to+1:]...)
	return nil
}

// Bytes serializes the document through its backend.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.backend.Encode(&buf, d); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode %s document", d.backend.Name())
	}
	return buf.Bytes(), nil
}

// WriteTo serializes the document to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	data, err := d.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Saved reports whether the document was terminally saved.
func (d *Document) Saved() bool { return d.saved }

// MarkSaved records that the document was terminally saved.
func (d *Document) MarkSaved() { d.saved = true }
