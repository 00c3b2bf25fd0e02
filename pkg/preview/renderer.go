package preview

import (
	"context"
	"image"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/printomat/pkg/cache"
	"github.com/matzehuels/printomat/pkg/observability"
	"github.com/matzehuels/printomat/pkg/pagedoc"
)

// Request describes one preview.
type Request struct {
	Page      int
	Width     int
	Height    int
	Grayscale bool
}

// Renderer rasterizes previews and caches the encoded result.
type Renderer struct {
	Rasterizer Rasterizer
	Cache      cache.Cache
	Keyer      cache.Keyer
	TTL        time.Duration
	Logger     *log.Logger
}

// NewRenderer creates a Renderer. Nil arguments take defaults: the layout
// rasterizer, no cache and the default keyer.
func NewRenderer(r Rasterizer, c cache.Cache, k cache.Keyer, logger *log.Logger) *Renderer {
	if r == nil {
		r = NewLayoutRasterizer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if k == nil {
		k = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Renderer{Rasterizer: r, Cache: c, Keyer: k, Logger: logger}
}

// Render returns the preview of req.Page, serving it from the cache when
// the same document was rendered with the same parameters before.
func (r *Renderer) Render(ctx context.Context, doc *pagedoc.Document, req Request) (image.Image, error) {
	png, err := r.RenderPNG(ctx, doc, req)
	if err != nil {
		return nil, err
	}
	return DecodePNG(png)
}

// RenderPNG is Render returning the encoded PNG.
func (r *Renderer) RenderPNG(ctx context.Context, doc *pagedoc.Document, req Request) ([]byte, error) {
	data, err := doc.Bytes()
	if err != nil {
		return nil, err
	}
	key := r.Keyer.PreviewKey(cache.Hash(data), cache.PreviewKeyOpts{
		Page:      req.Page,
		Width:     req.Width,
		Height:    req.Height,
		Grayscale: req.Grayscale,
	})

	if cached, ok, err := r.Cache.Get(ctx, key); err != nil {
		r.Logger.Warn("preview cache read failed", "error", err)
	} else if ok {
		observability.Cache().OnCacheHit(ctx, "preview")
		return cached, nil
	}
	observability.Cache().OnCacheMiss(ctx, "preview")

	img, err := r.Rasterizer.Rasterize(ctx, doc, req.Page, req.Width, req.Height)
	if err != nil {
		return nil, err
	}
	if req.Grayscale {
		img = Grayscale(img)
	}
	png, err := EncodePNG(img)
	if err != nil {
		return nil, err
	}
	if err := r.Cache.Set(ctx, key, png, r.TTL); err != nil {
		r.Logger.Warn("preview cache write failed", "error", err)
	} else {
		observability.Cache().OnCacheSet(ctx, "preview", len(png))
	}
	return png, nil
}
