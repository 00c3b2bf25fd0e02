package pagedoc

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/matzehuels/printomat/pkg/geometry"
)

// Kind distinguishes serialized paged documents from raster images.
type Kind int

const (
	// KindPaged is a serialized document the backend can inspect.
	KindPaged Kind = iota
	// KindImage is an encoded raster image.
	KindImage
)

// String returns the name of the kind.
func (k Kind) String() string {
	if k == KindImage {
		return "image"
	}
	return "paged"
}

// Image formats accepted for image blobs.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
)

// Blob is an immutable source payload referenced by placements.
type Blob struct {
	kind   Kind
	data   []byte
	digest string
	format string
	pixels geometry.Size
}

// NewPagedBlob wraps a serialized paged document.
func NewPagedBlob(data []byte) *Blob {
	return &Blob{kind: KindPaged, data: data, digest: digest(data)}
}

// NewImageBlob wraps an encoded raster image of the given pixel dimensions.
func NewImageBlob(data []byte, format string, width, height int) *Blob {
	return &Blob{
		kind:   KindImage,
		data:   data,
		digest: digest(data),
		format: format,
		pixels: geometry.Size{W: float64(width), H: float64(height)},
	}
}

// Kind returns the payload kind.
func (b *Blob) Kind() Kind { return b.kind }

// Bytes returns the payload. Callers must not modify it.
func (b *Blob) Bytes() []byte { return b.data }

// Digest returns the hex SHA-256 digest of the payload.
func (b *Blob) Digest() string { return b.digest }

// Format returns the image format for image blobs.
func (b *Blob) Format() string { return b.format }

// PixelSize returns the pixel dimensions of an image blob.
func (b *Blob) PixelSize() geometry.Size { return b.pixels }

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
