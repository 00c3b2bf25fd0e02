package engine

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/printomat/pkg/errors"
	"github.com/matzehuels/printomat/pkg/geometry"
	"github.com/matzehuels/printomat/pkg/pagedoc"
	"github.com/matzehuels/printomat/pkg/versioning"
)

var (
	a4p = geometry.A4.Sheet(geometry.Portrait)
	a4l = geometry.A4.Sheet(geometry.Landscape)
)

func setup(t *testing.T, sizes ...geometry.Size) *Engine {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "doc.1"), pagedoc.MemoryFixture(sizes...), 0o644); err != nil {
		t.Fatal(err)
	}
	path := versioning.Path{Dir: dir, Stem: "doc", Origin: 1, Version: 1}
	e, err := Open(path, DefaultOptions(sizes[0].Orientation()), Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return e
}

func docBytes(t *testing.T, e *Engine) []byte {
	t.Helper()
	data, err := e.Document().Bytes()
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestSnapshotCapturedOnce(t *testing.T) {
	e := setup(t, a4p)
	if e.State() != Pristine || e.Snapshot() != nil {
		t.Fatal("new engine should be pristine without snapshot")
	}
	before := docBytes(t, e)

	if err := e.Rotate(geometry.Landscape); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	snap := e.Snapshot()
	if snap == nil || !bytes.Equal(snap.Bytes(), before) {
		t.Fatal("snapshot should hold the pre-transformation bytes")
	}
	if e.State() != Transformed {
		t.Errorf("state = %v, want transformed", e.State())
	}

	if err := e.Impose(geometry.TwoUp); err != nil {
		t.Fatalf("Impose: %v", err)
	}
	if e.Snapshot() != snap {
		t.Error("snapshot must not be replaced by later transformations")
	}
}

func TestRotateIdempotent(t *testing.T) {
	e := setup(t, a4p, a4p)
	if err := e.Rotate(geometry.Landscape); err != nil {
		t.Fatal(err)
	}
	once := docBytes(t, e)
	if err := e.Rotate(geometry.Landscape); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(once, docBytes(t, e)) {
		t.Error("Rotate(O) twice should equal Rotate(O) once")
	}
}

func TestRotateAway(t *testing.T) {
	e := setup(t, a4p)
	if err := e.Rotate(geometry.Landscape); err != nil {
		t.Fatal(err)
	}
	p, _ := e.Document().Page(0)
	if p.Size != a4l {
		t.Fatalf("size = %+v, want landscape", p.Size)
	}
	inset, _ := geometry.Inset(geometry.RectOf(a4l), geometry.DefaultMargin)
	dest := p.Placements[0].Dest
	if !inset.Contains(dest) {
		t.Errorf("dest %+v outside inset %+v", dest, inset)
	}
	if math.Abs(dest.Height()-inset.Height()) > 1e-9 {
		t.Errorf("portrait page on landscape sheet should span inset height, got %v", dest.Height())
	}
	if o := e.Options(); o.Orientation != geometry.Landscape || o.Layout != geometry.OneUp {
		t.Errorf("options = %+v", o)
	}
}

func TestRotateReplacesPagesInOrder(t *testing.T) {
	e := setup(t, a4p, a4l, a4p)
	if err := e.Rotate(geometry.Landscape); err != nil {
		t.Fatal(err)
	}
	pages := e.Document().Pages()
	if len(pages) != 3 {
		t.Fatalf("pages = %d, want 3", len(pages))
	}
	for i, p := range pages {
		if p.Size != a4l || len(p.Placements) != 1 {
			t.Fatalf("page %d = %+v, want one placement on a landscape sheet", i, p)
		}
	}
	first, middle, last := pages[0].Placements[0].Dest, pages[1].Placements[0].Dest, pages[2].Placements[0].Dest
	if !first.Equal(last) {
		t.Errorf("portrait pages placed differently: %+v vs %+v", first, last)
	}
	if middle.Width() <= first.Width() {
		t.Errorf("landscape page width %v should exceed portrait width %v", middle.Width(), first.Width())
	}
}

func TestRotateBackUsesFullSheet(t *testing.T) {
	e := setup(t, a4p)
	_ = e.Rotate(geometry.Landscape)
	if err := e.Rotate(geometry.Portrait); err != nil {
		t.Fatal(err)
	}
	p, _ := e.Document().Page(0)
	if p.Size != a4p || !p.Placements[0].Dest.Equal(geometry.RectOf(a4p)) {
		t.Errorf("page = %+v, want full portrait sheet", p)
	}
}

func TestImposeOneUpKeepsPages(t *testing.T) {
	e := setup(t, a4p)
	if err := e.Impose(geometry.OneUp); err != nil {
		t.Fatal(err)
	}
	if e.Document().PageCount() != 1 {
		t.Errorf("pages = %d, want 1", e.Document().PageCount())
	}
	p, _ := e.Document().Page(0)
	if p.Size != a4p {
		t.Errorf("size = %+v, want %+v", p.Size, a4p)
	}
}

func TestImposeTwoUp(t *testing.T) {
	e := setup(t, a4p, a4p)
	if err := e.Impose(geometry.TwoUp); err != nil {
		t.Fatal(err)
	}
	if e.Document().PageCount() != 1 {
		t.Fatalf("sheets = %d, want 1", e.Document().PageCount())
	}
	p, _ := e.Document().Page(0)
	if p.Size != a4l {
		t.Errorf("sheet = %+v, want landscape", p.Size)
	}
	if len(p.Placements) != 2 || p.Placements[0].Page != 0 || p.Placements[1].Page != 1 {
		t.Errorf("placements = %+v", p.Placements)
	}
	if o := e.Options(); o.Layout != geometry.TwoUp || o.Orientation != geometry.Landscape {
		t.Errorf("options = %+v", o)
	}
}

func TestImposeFourUpPolicy(t *testing.T) {
	tests := []struct {
		name       string
		pages      int
		wantSheets int
		wantPages  [][]int
	}{
		{"fewer pages cycle", 3, 1, [][]int{{0, 1, 2, 0}}},
		{"exact", 4, 1, [][]int{{0, 1, 2, 3}}},
		{"overflow leaves blanks", 5, 2, [][]int{{0, 1, 2, 3}, {4}}},
		{"single page fills sheet", 1, 1, [][]int{{0, 0, 0, 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sizes := make([]geometry.Size, tt.pages)
			for i := range sizes {
				sizes[i] = a4p
			}
			e := setup(t, sizes...)
			if err := e.Impose(geometry.FourUp); err != nil {
				t.Fatal(err)
			}
			doc := e.Document()
			if doc.PageCount() != tt.wantSheets {
				t.Fatalf("sheets = %d, want %d", doc.PageCount(), tt.wantSheets)
			}
			for s, want := range tt.wantPages {
				p, _ := doc.Page(s)
				if len(p.Placements) != len(want) {
					t.Fatalf("sheet %d placements = %d, want %d", s, len(p.Placements), len(want))
				}
				for i, pl := range p.Placements {
					if pl.Page != want[i] {
						t.Errorf("sheet %d tile %d = page %d, want %d", s, i, pl.Page, want[i])
					}
				}
			}
		})
	}
}

func TestImposeReadsIngestedVersion(t *testing.T) {
	e := setup(t, a4p, a4p)
	_ = e.Rotate(geometry.Landscape)
	if err := e.Impose(geometry.TwoUp); err != nil {
		t.Fatal(err)
	}
	p, _ := e.Document().Page(0)
	// Rotation is not carried into the imposition.
	if p.Size != a4l {
		t.Errorf("sheet = %+v", p.Size)
	}
}

func TestImposeInvalidLayout(t *testing.T) {
	e := setup(t, a4p)
	before := docBytes(t, e)
	if err := e.Impose(3); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v", err)
	}
	if e.State() != Pristine || !bytes.Equal(before, docBytes(t, e)) {
		t.Error("failed impose must leave the document unchanged")
	}
}

func TestFailureKeepsPreviousState(t *testing.T) {
	e := setup(t, a4p, a4p)
	if err := e.Impose(geometry.TwoUp); err != nil {
		t.Fatal(err)
	}
	before := docBytes(t, e)
	opts := e.Options()

	os.Remove(e.Path().Ingested())
	err := e.Impose(geometry.FourUp)
	if !errors.IsSourceVanished(err) {
		t.Fatalf("err = %v, want source vanished", err)
	}
	if !bytes.Equal(before, docBytes(t, e)) || e.Options() != opts {
		t.Error("failed impose must keep the previous document and options")
	}
	if err := e.RestoreOriginal(); !errors.IsSourceVanished(err) {
		t.Errorf("restore err = %v", err)
	}
	if e.State() != Transformed {
		t.Error("failed restore must keep the transformed state")
	}
}

func TestRestoreOriginal(t *testing.T) {
	e := setup(t, a4p, a4p)
	original := docBytes(t, e)
	e.SetCopies(5)
	_ = e.SetColor(Grayscale)
	_ = e.Impose(geometry.FourUp)

	if err := e.RestoreOriginal(); err != nil {
		t.Fatal(err)
	}
	if e.State() != Pristine || e.Snapshot() != nil {
		t.Error("restore should return to pristine without snapshot")
	}
	if !bytes.Equal(original, docBytes(t, e)) {
		t.Error("restored document should match the ingested version")
	}
	if e.Options() != DefaultOptions(geometry.Portrait) {
		t.Errorf("options = %+v, want defaults", e.Options())
	}
}

func TestDirty(t *testing.T) {
	e := setup(t, a4p)
	if e.Dirty() {
		t.Error("fresh engine should not be dirty")
	}
	_ = e.Rotate(geometry.Landscape)
	if !e.Dirty() {
		t.Error("transformed engine should be dirty")
	}
	_ = e.RestoreOriginal()
	if e.Dirty() {
		t.Error("restoring the latest version should not be dirty")
	}

	// Loaded from a later version, restoring goes back to the origin.
	dir := e.Path().Dir
	if err := os.WriteFile(filepath.Join(dir, "doc.2"), pagedoc.MemoryFixture(a4l), 0o644); err != nil {
		t.Fatal(err)
	}
	later, err := Open(versioning.Path{Dir: dir, Stem: "doc", Origin: 1, Version: 2}, DefaultOptions(geometry.Landscape), Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := later.RestoreOriginal(); err != nil {
		t.Fatal(err)
	}
	if later.State() != Pristine || !later.Dirty() {
		t.Error("restore over a later version should be pristine but dirty")
	}
}

func TestReleased(t *testing.T) {
	e := setup(t, a4p)
	e.Release()
	if err := e.Rotate(geometry.Landscape); !errors.Is(err, errors.ErrCodeSnapshotMissing) {
		t.Errorf("err = %v, want SNAPSHOT_MISSING", err)
	}
}

func TestOptionSetters(t *testing.T) {
	e := setup(t, a4p)
	for in, want := range map[int]int{0: 1, -4: 1, 7: 7, 99: 99, 150: 99} {
		if got := e.SetCopies(in); got != want {
			t.Errorf("SetCopies(%d) = %d, want %d", in, got, want)
		}
	}
	if err := e.SetColor("sepia"); err == nil {
		t.Error("expected error for unknown color mode")
	}
	if err := e.SetDuplex(TwoSidedLong); err != nil || e.Options().Duplex != TwoSidedLong {
		t.Errorf("SetDuplex: %v", err)
	}
	if err := e.SetColor("GRAYSCALE"); err != nil || e.Options().Color != Grayscale {
		t.Errorf("SetColor stored %q, %v", e.Options().Color, err)
	}
	if err := e.SetDuplex("One-Sided"); err != nil || e.Options().Duplex != OneSided {
		t.Errorf("SetDuplex stored %q, %v", e.Options().Duplex, err)
	}
	if e.State() != Pristine {
		t.Error("option changes must not transform the document")
	}
}
