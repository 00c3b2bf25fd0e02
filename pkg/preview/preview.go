// Package preview renders on-screen previews of document pages.
//
// Rendering real PDF content to pixels is delegated to a [Rasterizer]. The
// built-in [LayoutRasterizer] draws the page layout: the sheet, embedded
// images at their placed size, and a labelled frame for each imported page.
// That is enough for the kiosk to show where content lands after a
// rotation or imposition.
package preview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/matzehuels/printomat/pkg/errors"
	"github.com/matzehuels/printomat/pkg/pagedoc"
)

// Rasterizer renders one page of a document into an image no larger than
// maxW×maxH pixels, preserving the page's aspect ratio.
type Rasterizer interface {
	Rasterize(ctx context.Context, doc *pagedoc.Document, page, maxW, maxH int) (image.Image, error)
}

// LayoutRasterizer draws page layouts with gg.
type LayoutRasterizer struct {
	Background color.Color
	Frame      color.Color
	Panel      color.Color
}

// NewLayoutRasterizer returns a rasterizer with the default palette.
func NewLayoutRasterizer() *LayoutRasterizer {
	return &LayoutRasterizer{
		Background: color.White,
		Frame:      color.Gray{Y: 0x80},
		Panel:      color.Gray{Y: 0xEE},
	}
}

// Rasterize implements Rasterizer.
func (r *LayoutRasterizer) Rasterize(ctx context.Context, doc *pagedoc.Document, page, maxW, maxH int) (image.Image, error) {
	if maxW <= 0 || maxH <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "preview size must be positive, got %dx%d", maxW, maxH)
	}
	p, err := doc.Page(page)
	if err != nil {
		return nil, err
	}
	if p.Size.Empty() {
		return nil, errors.New(errors.ErrCodeGeometryDegenerate, "page %d has no area", page)
	}

	scale := math.Min(float64(maxW)/p.Size.W, float64(maxH)/p.Size.H)
	w := max(1, int(math.Round(p.Size.W*scale)))
	h := max(1, int(math.Round(p.Size.H*scale)))

	dc := gg.NewContext(w, h)
	dc.SetColor(r.Background)
	dc.Clear()

	for _, pl := range p.Placements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		x, y := pl.Dest.Left*scale, pl.Dest.Top*scale
		dw, dh := pl.Dest.Width()*scale, pl.Dest.Height()*scale
		switch pl.Blob.Kind() {
		case pagedoc.KindImage:
			img, err := imaging.Decode(bytes.NewReader(pl.Blob.Bytes()))
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeUnreadableSource, err, "decode placed image")
			}
			fitted := imaging.Resize(img, max(1, int(math.Round(dw))), max(1, int(math.Round(dh))), imaging.Lanczos)
			dc.DrawImage(fitted, int(math.Round(x)), int(math.Round(y)))
		default:
			dc.SetColor(r.Panel)
			dc.DrawRectangle(x, y, dw, dh)
			dc.Fill()
			dc.SetColor(r.Frame)
			dc.SetLineWidth(1)
			dc.DrawRectangle(x+0.5, y+0.5, dw-1, dh-1)
			dc.Stroke()
			dc.DrawStringAnchored(fmt.Sprintf("page %d", pl.Page+1), x+dw/2, y+dh/2, 0.5, 0.5)
		}
	}
	return dc.Image(), nil
}

// Grayscale converts img to grayscale.
func Grayscale(img image.Image) image.Image {
	return imaging.Grayscale(img)
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodePNG decodes PNG data.
func DecodePNG(data []byte) (image.Image, error) {
	return imaging.Decode(bytes.NewReader(data))
}
