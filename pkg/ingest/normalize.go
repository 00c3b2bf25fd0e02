package ingest

import (
	"os"

	"github.com/matzehuels/printomat/pkg/errors"
	"github.com/matzehuels/printomat/pkg/geometry"
	"github.com/matzehuels/printomat/pkg/pagedoc"
	"github.com/matzehuels/printomat/pkg/raster"
)

// NormalizeImage places img on a single sheet of the configured paper.
//
// The sheet follows the image's orientation. A square image is framed by a
// square spanning the sheet's shorter side; any other image by the whole
// sheet. The frame is inset by the margin and the image fitted into it.
func (n *Normalizer) NormalizeImage(img *raster.Image) (*pagedoc.Document, error) {
	w, h := float64(img.Width), float64(img.Height)
	sheet := n.opts.Paper.Sheet(geometry.Classify(w, h))

	frame := geometry.RectOf(sheet)
	if geometry.IsSquare(w, h) {
		side := min(sheet.W, sheet.H)
		frame = geometry.Rect{Right: side, Bottom: side}
	}
	frame, err := geometry.Inset(frame, n.opts.Margin)
	if err != nil {
		return nil, err
	}

	doc := pagedoc.New(n.opts.Backend)
	page := doc.NewPage(sheet)
	if err := doc.PlaceImage(page, frame, img.Blob()); err != nil {
		return nil, err
	}
	return doc, nil
}

// NormalizePaged normalizes every page of a serialized paged document.
// Pages that already match the paper size in either orientation are copied
// unchanged; the rest are rendered inset and fitted onto a sheet matching
// their orientation.
func (n *Normalizer) NormalizePaged(data []byte) (*pagedoc.Document, error) {
	src, err := pagedoc.Open(n.opts.Backend, data)
	if err != nil {
		return nil, err
	}
	if src.PageCount() == 0 {
		return nil, errors.New(errors.ErrCodeUnreadableSource, "document has no pages")
	}

	doc := pagedoc.New(n.opts.Backend)
	for i := 0; i < src.PageCount(); i++ {
		p, err := src.Page(i)
		if err != nil {
			return nil, err
		}
		if n.opts.Paper.Matches(p.Size) {
			page := doc.NewPage(p.Size)
			if err := doc.CopyRegion(page, geometry.RectOf(p.Size), src, i); err != nil {
				return nil, err
			}
			continue
		}

		sheet := n.opts.Paper.Sheet(p.Size.Orientation())
		frame, err := geometry.Inset(geometry.RectOf(sheet), n.opts.Margin)
		if err != nil {
			return nil, err
		}
		page := doc.NewPage(sheet)
		if err := doc.CopyRegion(page, frame, src, i); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// NormalizeFile reads path and normalizes it according to its extension.
func (n *Normalizer) NormalizeFile(path string) (*pagedoc.Document, error) {
	switch KindOf(path) {
	case SourceImage:
		img, err := raster.Open(path)
		if err != nil {
			return nil, err
		}
		return n.NormalizeImage(img)
	case SourcePaged:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeUnreadableSource, err, "read %s", path)
		}
		return n.NormalizePaged(data)
	}
	return nil, errors.New(errors.ErrCodeUnreadableSource, "unsupported file type: %s", path)
}
