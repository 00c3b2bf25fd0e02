package ingest

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/printomat/pkg/errors"
	"github.com/matzehuels/printomat/pkg/geometry"
	"github.com/matzehuels/printomat/pkg/pagedoc"
	"github.com/matzehuels/printomat/pkg/raster"
)

func writeImage(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y += 7 {
		for x := 0; x < w; x += 7 {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	var err error
	if filepath.Ext(name) == ".png" {
		err = png.Encode(&buf, img)
	} else {
		err = jpeg.Encode(&buf, img, nil)
	}
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writePaged(t *testing.T, dir, name string, sizes ...geometry.Size) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, pagedoc.MemoryFixture(sizes...), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func placement(t *testing.T, doc *pagedoc.Document, page int) pagedoc.Placement {
	t.Helper()
	p, err := doc.Page(page)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Placements) != 1 {
		t.Fatalf("page %d has %d placements, want 1", page, len(p.Placements))
	}
	return p.Placements[0]
}

func TestNormalizeImagePhoto(t *testing.T) {
	n := New(Options{})
	img, err := raster.Decode(mustRead(t, writeImage(t, t.TempDir(), "photo.jpg", 300, 400)))
	if err != nil {
		t.Fatal(err)
	}

	doc, err := n.NormalizeImage(img)
	if err != nil {
		t.Fatalf("NormalizeImage: %v", err)
	}
	p, _ := doc.Page(0)
	if p.Size != geometry.A4.Sheet(geometry.Portrait) {
		t.Errorf("sheet = %+v, want portrait A4", p.Size)
	}
	dest := placement(t, doc, 0).Dest
	if math.Abs(dest.Width()-575) > 1e-9 {
		t.Errorf("width = %v, want inset width 575", dest.Width())
	}
	if math.Abs(dest.Width()/dest.Height()-0.75) > 1e-9 {
		t.Errorf("aspect = %v, want 0.75", dest.Width()/dest.Height())
	}
	inset, _ := geometry.Inset(geometry.RectOf(p.Size), geometry.DefaultMargin)
	if !inset.Contains(dest) {
		t.Errorf("placement %+v outside inset %+v", dest, inset)
	}
}

func TestNormalizeImageTallSpansHeight(t *testing.T) {
	n := New(Options{})
	img, _ := raster.Decode(mustRead(t, writeImage(t, t.TempDir(), "strip.png", 100, 400)))
	doc, err := n.NormalizeImage(img)
	if err != nil {
		t.Fatal(err)
	}
	if h := placement(t, doc, 0).Dest.Height(); math.Abs(h-822) > 1e-9 {
		t.Errorf("height = %v, want 822", h)
	}
}

func TestNormalizeImageLandscape(t *testing.T) {
	n := New(Options{})
	img, _ := raster.Decode(mustRead(t, writeImage(t, t.TempDir(), "wide.png", 400, 300)))
	doc, _ := n.NormalizeImage(img)
	p, _ := doc.Page(0)
	if p.Size != geometry.A4.Sheet(geometry.Landscape) {
		t.Errorf("sheet = %+v, want landscape A4", p.Size)
	}
}

func TestNormalizeImageSquare(t *testing.T) {
	n := New(Options{})
	img, _ := raster.Decode(mustRead(t, writeImage(t, t.TempDir(), "sq.png", 200, 200)))
	doc, _ := n.NormalizeImage(img)
	dest := placement(t, doc, 0).Dest
	if math.Abs(dest.Width()-dest.Height()) > 1e-9 {
		t.Errorf("square image placed as %vx%v", dest.Width(), dest.Height())
	}
	if math.Abs(dest.Width()-575) > 1e-9 || dest.Top != 10 {
		t.Errorf("dest = %+v, want 575 square at the top margin", dest)
	}
}

func TestNormalizePaged(t *testing.T) {
	n := New(Options{})
	a4l := geometry.A4.Sheet(geometry.Landscape)

	t.Run("standard pages unchanged", func(t *testing.T) {
		doc, err := n.NormalizePaged(pagedoc.MemoryFixture(a4l, a4l))
		if err != nil {
			t.Fatal(err)
		}
		if doc.PageCount() != 2 {
			t.Fatalf("pages = %d", doc.PageCount())
		}
		for i := 0; i < 2; i++ {
			p, _ := doc.Page(i)
			if p.Size != a4l {
				t.Errorf("page %d size = %+v", i, p.Size)
			}
			if dest := placement(t, doc, i).Dest; !dest.Equal(geometry.RectOf(a4l)) {
				t.Errorf("page %d dest = %+v, want full page", i, dest)
			}
		}
	})

	t.Run("letter page re-rendered", func(t *testing.T) {
		letterL := geometry.Letter.Sheet(geometry.Landscape)
		doc, err := n.NormalizePaged(pagedoc.MemoryFixture(letterL))
		if err != nil {
			t.Fatal(err)
		}
		p, _ := doc.Page(0)
		if p.Size != a4l {
			t.Errorf("size = %+v, want landscape A4", p.Size)
		}
		inset, _ := geometry.Inset(geometry.RectOf(a4l), geometry.DefaultMargin)
		dest := placement(t, doc, 0).Dest
		if !inset.Contains(dest) {
			t.Errorf("dest %+v outside inset", dest)
		}
		if math.Abs(dest.Width()/dest.Height()-792.0/612.0) > 1e-9 {
			t.Errorf("aspect changed: %v", dest.Width()/dest.Height())
		}
	})

	t.Run("unreadable", func(t *testing.T) {
		_, err := n.NormalizePaged([]byte("%PDF-garbage"))
		if !errors.Is(err, errors.ErrCodeUnreadableSource) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestIngestWritesFirstVersion(t *testing.T) {
	dir := t.TempDir()
	src := writeImage(t, dir, "photo.jpg", 30, 40)
	before := mustRead(t, src)

	entry, err := New(Options{}).Ingest(context.Background(), src)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if entry.Path.Name() != "photo.1" || entry.Path.Origin != 1 {
		t.Errorf("path = %+v, want photo.1", entry.Path)
	}
	if _, err := os.Stat(filepath.Join(dir, "photo.1")); err != nil {
		t.Errorf("photo.1 not written: %v", err)
	}
	if !bytes.Equal(before, mustRead(t, src)) {
		t.Error("source file was modified")
	}
	if entry.Pages != 1 || entry.Orientation != geometry.Portrait {
		t.Errorf("entry = %+v", entry)
	}
}

func TestIngestVanished(t *testing.T) {
	_, err := New(Options{}).Ingest(context.Background(), filepath.Join(t.TempDir(), "gone.jpg"))
	if !errors.IsSourceVanished(err) {
		t.Errorf("err = %v, want source vanished", err)
	}
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "a.jpg", 30, 40)
	os.WriteFile(filepath.Join(dir, "b.png"), []byte("not a png"), 0o644)
	writePaged(t, dir, "c.pdf", geometry.A4.Sheet(geometry.Portrait))
	writeImage(t, dir, "d.png", 40, 30)

	files, err := ListSources(dir)
	if err != nil {
		t.Fatal(err)
	}
	results := New(Options{Workers: 2}).Batch(context.Background(), dir, files)
	if len(results) != 4 {
		t.Fatalf("results = %d, want 4", len(results))
	}
	if results[1].Err == nil || !errors.Is(results[1].Err, errors.ErrCodeUnreadableSource) {
		t.Errorf("b.png err = %v, want UNREADABLE_SOURCE", results[1].Err)
	}

	entries := Entries(results)
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	for i, e := range entries {
		if e.Index != i {
			t.Errorf("entry %s index = %d, want %d", e.Name, e.Index, i)
		}
	}
	if entries[2].Name != "d.png" {
		t.Errorf("entries out of order: %s", entries[2].Name)
	}
}

func TestBatchCancelled(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "a.jpg", 10, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := New(Options{}).Batch(ctx, dir, []string{"a.jpg"})
	if results[0].Err == nil {
		t.Error("expected cancellation error")
	}
}

func TestListSources(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.PDF", "a.jpg", "notes.txt", "photo.1"} {
		os.WriteFile(filepath.Join(dir, name), nil, 0o644)
	}
	os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755)

	got, err := ListSources(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "a.jpg" || got[1] != "b.PDF" {
		t.Errorf("ListSources = %v", got)
	}

	if _, err := ListSources(filepath.Join(dir, "missing")); !errors.IsSourceVanished(err) {
		t.Errorf("err = %v, want source vanished", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"photo.jpg", "photo.jpg"},
		{"My Photo (1).JPG", "My_Photo_1.JPG"},
		{"../../etc/passwd", "etc_passwd"},
		{"Čížek résumé.pdf", "Cizek_resume.pdf"},
		{".hidden", "hidden"},
		{"日本.png", "png"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}
