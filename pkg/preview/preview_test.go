package preview

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/matzehuels/printomat/pkg/cache"
	"github.com/matzehuels/printomat/pkg/errors"
	"github.com/matzehuels/printomat/pkg/geometry"
	"github.com/matzehuels/printomat/pkg/pagedoc"
)

func redBlob(t *testing.T) *pagedoc.Blob {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 30, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 30; x++ {
			img.Set(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return pagedoc.NewImageBlob(buf.Bytes(), pagedoc.FormatPNG, 30, 40)
}

func imageDoc(t *testing.T) *pagedoc.Document {
	t.Helper()
	doc := pagedoc.New(pagedoc.MemoryBackend{})
	page := doc.NewPage(geometry.A4.Sheet(geometry.Portrait))
	frame, _ := geometry.Inset(geometry.A4.Rect(geometry.Portrait), geometry.DefaultMargin)
	if err := doc.PlaceImage(page, frame, redBlob(t)); err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestLayoutRasterizerImage(t *testing.T) {
	img, err := NewLayoutRasterizer().Rasterize(context.Background(), imageDoc(t), 0, 200, 200)
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	b := img.Bounds()
	if b.Dy() != 200 || b.Dx() >= 200 {
		t.Errorf("bounds = %v, want height-limited portrait", b)
	}
	r, g, _, _ := img.At(b.Dx()/2, b.Dy()/2).RGBA()
	if r < 0xF000 || g > 0x1000 {
		t.Errorf("centre pixel should be red, got r=%x g=%x", r, g)
	}
	r, g, _, _ = img.At(0, 0).RGBA()
	if r != 0xFFFF || g != 0xFFFF {
		t.Errorf("corner pixel should be white margin, got r=%x g=%x", r, g)
	}
}

func TestLayoutRasterizerPagedPanel(t *testing.T) {
	src, _ := pagedoc.Open(pagedoc.MemoryBackend{}, pagedoc.MemoryFixture(geometry.A4.Sheet(geometry.Portrait)))
	img, err := NewLayoutRasterizer().Rasterize(context.Background(), src, 0, 100, 100)
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if img.Bounds().Dy() != 100 {
		t.Errorf("bounds = %v", img.Bounds())
	}
}

func TestLayoutRasterizerErrors(t *testing.T) {
	r := NewLayoutRasterizer()
	if _, err := r.Rasterize(context.Background(), imageDoc(t), 3, 100, 100); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("page out of range: err = %v", err)
	}
	if _, err := r.Rasterize(context.Background(), imageDoc(t), 0, 0, 100); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("zero size: err = %v", err)
	}
}

func TestGrayscale(t *testing.T) {
	img, _ := NewLayoutRasterizer().Rasterize(context.Background(), imageDoc(t), 0, 100, 100)
	gray := Grayscale(img)
	b := gray.Bounds()
	r, g, bl, _ := gray.At(b.Dx()/2, b.Dy()/2).RGBA()
	if r != g || g != bl {
		t.Errorf("grayscale pixel has color: %x %x %x", r, g, bl)
	}
}

type countingRasterizer struct {
	inner Rasterizer
	calls int
}

func (c *countingRasterizer) Rasterize(ctx context.Context, doc *pagedoc.Document, page, w, h int) (image.Image, error) {
	c.calls++
	return c.inner.Rasterize(ctx, doc, page, w, h)
}

func TestRendererCaches(t *testing.T) {
	ctx := context.Background()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	counter := &countingRasterizer{inner: NewLayoutRasterizer()}
	r := NewRenderer(counter, fc, nil, nil)
	doc := imageDoc(t)
	req := Request{Page: 0, Width: 120, Height: 120}

	first, err := r.RenderPNG(ctx, doc, req)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	second, err := r.RenderPNG(ctx, doc, req)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if counter.calls != 1 {
		t.Errorf("rasterizer calls = %d, want 1", counter.calls)
	}
	if !bytes.Equal(first, second) {
		t.Error("cached preview differs")
	}

	req.Grayscale = true
	if _, err := r.Render(ctx, doc, req); err != nil {
		t.Fatal(err)
	}
	if counter.calls != 2 {
		t.Errorf("grayscale preview should miss the cache, calls = %d", counter.calls)
	}
}
