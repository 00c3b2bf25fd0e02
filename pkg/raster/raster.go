// Package raster decodes source images into a form the PDF writer can embed.
//
// Decoding honours EXIF orientation, so a photo taken in portrait on a phone
// is classified as portrait even when its pixels are stored sideways. The
// result is re-encoded as JPEG when the source was JPEG and as opaque 8-bit
// PNG otherwise.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/matzehuels/printomat/pkg/errors"
	"github.com/matzehuels/printomat/pkg/pagedoc"
)

// JPEGQuality is the quality used when re-encoding JPEG sources.
const JPEGQuality = 95

// Image is a decoded, orientation-corrected raster.
type Image struct {
	Width  int
	Height int
	// Format is pagedoc.FormatJPEG or pagedoc.FormatPNG.
	Format string
	// Data is the re-encoded payload.
	Data []byte
	// Pixels is the decoded image after orientation correction.
	Pixels image.Image
}

// Blob wraps the re-encoded payload for placement in a document.
func (i *Image) Blob() *pagedoc.Blob {
	return pagedoc.NewImageBlob(i.Data, i.Format, i.Width, i.Height)
}

// Open reads and decodes the image at path.
func Open(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnreadableSource, err, "read %s", path)
	}
	img, err := Decode(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnreadableSource, err, "decode %s", path)
	}
	return img, nil
}

// Decode decodes data, applies EXIF orientation and re-encodes it.
func Decode(data []byte) (*Image, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnreadableSource, err, "unrecognized image")
	}
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnreadableSource, err, "decode %s image", format)
	}
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.New(errors.ErrCodeUnreadableSource, "image has no pixels")
	}

	out := &Image{Width: b.Dx(), Height: b.Dy(), Pixels: src}
	var buf bytes.Buffer
	if format == "jpeg" {
		out.Format = pagedoc.FormatJPEG
		err = imaging.Encode(&buf, src, imaging.JPEG, imaging.JPEGQuality(JPEGQuality))
	} else {
		out.Format = pagedoc.FormatPNG
		err = imaging.Encode(&buf, Flatten(src), imaging.PNG)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", out.Format, err)
	}
	out.Data = buf.Bytes()
	return out, nil
}

// Flatten composites img over a white background so the result is opaque.
func Flatten(img image.Image) *image.NRGBA {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}
