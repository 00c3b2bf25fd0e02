// Package pdf implements the PDF backend for pagedoc.
//
// Inspection parses and validates documents with pdfcpu. Encoding composes
// a fresh document with fpdf: paged placements are imported as templates
// through gofpdi, image placements are embedded directly. The composed file
// is then rewritten in canonical object order so identical documents encode
// to identical bytes.
package pdf

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/go-pdf/fpdf/contrib/gofpdi"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/matzehuels/printomat/pkg/geometry"
	"github.com/matzehuels/printomat/pkg/pagedoc"
)

// creationDate is stamped on every encoded document so output is stable.
var creationDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Backend is the PDF implementation of pagedoc.Backend.
type Backend struct {
	// Relaxed selects pdfcpu's relaxed validation, which accepts most
	// documents produced by scanners and office suites.
	Relaxed bool
}

// New returns a PDF backend with relaxed validation.
func New() *Backend {
	return &Backend{Relaxed: true}
}

// Name implements pagedoc.Backend.
func (b *Backend) Name() string { return "pdf" }

// Inspect implements pagedoc.Backend.
func (b *Backend) Inspect(data []byte) ([]geometry.Size, error) {
	conf := model.NewDefaultConfiguration()
	if b.Relaxed {
		conf.ValidationMode = model.ValidationRelaxed
	}
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("count pages: %w", err)
	}
	if ctx.PageCount == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("page dimensions: %w", err)
	}
	sizes := make([]geometry.Size, len(dims))
	for i, d := range dims {
		sizes[i] = geometry.Size{W: d.Width, H: d.Height}
	}
	return sizes, nil
}

// Encode implements pagedoc.Backend.
func (b *Backend) Encode(w io.Writer, doc *pagedoc.Document) error {
	pages := doc.Pages()
	if len(pages) == 0 {
		return fmt.Errorf("document has no pages")
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: pages[0].Size.W, Ht: pages[0].Size.H},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreationDate(creationDate)
	pdf.SetModificationDate(creationDate)
	pdf.SetCatalogSort(true)

	c := newComposer(pdf)
	for _, page := range pages {
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: page.Size.W, Ht: page.Size.H})
		for _, pl := range page.Placements {
			if err := c.place(pl); err != nil {
				return err
			}
		}
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("compose pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return fmt.Errorf("compose pdf: %w", err)
	}
	data, err := canonicalize(buf.Bytes())
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

type templateKey struct {
	digest string
	page   int
}

// composer memoises imported templates and registered images for one
// encoding pass.
type composer struct {
	pdf       *fpdf.Fpdf
	importer  *gofpdi.Importer
	streams   map[string]*io.ReadSeeker
	templates map[templateKey]int
	images    map[string]bool
}

func newComposer(pdf *fpdf.Fpdf) *composer {
	return &composer{
		pdf:       pdf,
		importer:  gofpdi.NewImporter(),
		streams:   make(map[string]*io.ReadSeeker),
		templates: make(map[templateKey]int),
		images:    make(map[string]bool),
	}
}

func (c *composer) place(pl pagedoc.Placement) error {
	d := pl.Dest
	switch pl.Blob.Kind() {
	case pagedoc.KindPaged:
		tpl := c.template(pl.Blob, pl.Page)
		c.importer.UseImportedTemplate(c.pdf, tpl, d.Left, d.Top, d.Width(), d.Height())
	case pagedoc.KindImage:
		opts := fpdf.ImageOptions{ImageType: imageType(pl.Blob.Format())}
		name := pl.Blob.Digest()
		if !c.images[name] {
			c.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(pl.Blob.Bytes()))
			c.images[name] = true
		}
		c.pdf.ImageOptions(name, d.Left, d.Top, d.Width(), d.Height(), false, opts, 0, "")
	default:
		return fmt.Errorf("unsupported blob kind %v", pl.Blob.Kind())
	}
	return c.pdf.Error()
}

// template imports page (zero-based) of a paged blob once per pass.
// gofpdi keys its parsers by stream identity, so each blob keeps one stream.
func (c *composer) template(blob *pagedoc.Blob, page int) int {
	key := templateKey{digest: blob.Digest(), page: page}
	if tpl, ok := c.templates[key]; ok {
		return tpl
	}
	rs, ok := c.streams[blob.Digest()]
	if !ok {
		var r io.ReadSeeker = bytes.NewReader(blob.Bytes())
		rs = &r
		c.streams[blob.Digest()] = rs
	}
	tpl := c.importer.ImportPageFromStream(c.pdf, rs, page+1, "/MediaBox")
	c.templates[key] = tpl
	return tpl
}

func imageType(format string) string {
	if format == pagedoc.FormatJPEG {
		return "JPG"
	}
	return "PNG"
}
