package pagedoc

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/matzehuels/printomat/pkg/geometry"
)

const memoryFormat = "printomat-memory/1"

// MemoryBackend encodes documents as deterministic JSON. Blob payloads are
// referenced by digest only, so the encoding is small and stable.
type MemoryBackend struct{}

type memoryDoc struct {
	Format string       `json:"format"`
	Pages  []memoryPage `json:"pages"`
}

type memoryPage struct {
	W          float64           `json:"w"`
	H          float64           `json:"h"`
	Placements []memoryPlacement `json:"placements,omitempty"`
}

type memoryPlacement struct {
	Kind   string     `json:"kind"`
	Blob   string     `json:"blob"`
	Page   int        `json:"page"`
	Dest   [4]float64 `json:"dest"`
	Pixels []float64  `json:"pixels,omitempty"`
}

// Name implements Backend.
func (MemoryBackend) Name() string { return "memory" }

// Inspect implements Backend.
func (MemoryBackend) Inspect(data []byte) ([]geometry.Size, error) {
	var doc memoryDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode memory document: %w", err)
	}
	if doc.Format != memoryFormat {
		return nil, fmt.Errorf("unexpected format %q", doc.Format)
	}
	sizes := make([]geometry.Size, len(doc.Pages))
	for i, p := range doc.Pages {
		if p.W <= 0 || p.H <= 0 {
			return nil, fmt.Errorf("page %d has invalid size %vx%v", i, p.W, p.H)
		}
		sizes[i] = geometry.Size{W: p.W, H: p.H}
	}
	return sizes, nil
}

// Encode implements Backend.
func (MemoryBackend) Encode(w io.Writer, doc *Document) error {
	out := memoryDoc{Format: memoryFormat, Pages: make([]memoryPage, 0, doc.PageCount())}
	for _, page := range doc.Pages() {
		mp := memoryPage{W: page.Size.W, H: page.Size.H}
		for _, pl := range page.Placements {
			entry := memoryPlacement{
				Kind: pl.Blob.Kind().String(),
				Blob: pl.Blob.Digest(),
				Page: pl.Page,
				Dest: [4]float64{pl.Dest.Left, pl.Dest.Top, pl.Dest.Right, pl.Dest.Bottom},
			}
			if pl.Blob.Kind() == KindImage {
				px := pl.Blob.PixelSize()
				entry.Pixels = []float64{px.W, px.H}
			}
			mp.Placements = append(mp.Placements, entry)
		}
		out.Pages = append(out.Pages, mp)
	}
	return json.NewEncoder(w).Encode(out)
}

// MemoryFixture returns a serialized memory document with blank pages of
// the given sizes.
func MemoryFixture(sizes ...geometry.Size) []byte {
	doc := memoryDoc{Format: memoryFormat}
	for _, s := range sizes {
		doc.Pages = append(doc.Pages, memoryPage{W: s.W, H: s.H})
	}
	data, _ := json.Marshal(doc)
	return data
}
