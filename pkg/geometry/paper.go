package geometry

import (
	"math"
	"strings"

	"github.com/matzehuels/printomat/pkg/errors"
)

// DefaultMargin is the printer-safe margin in points applied on each side.
const DefaultMargin = 10.0

// PaperSize is a named sheet size in portrait orientation, in points.
type PaperSize struct {
	Name   string
	Width  float64 // in `pt` (1" = 72pts)
	Height float64 // in `pt`
}

var (
	A4     = PaperSize{Name: "A4", Width: 595, Height: 842}     // 210mm x 297mm
	Letter = PaperSize{Name: "Letter", Width: 612, Height: 792} // 8.5" x 11"
	A5     = PaperSize{Name: "A5", Width: 420, Height: 595}     // 148mm x 210mm
)

var papers = []PaperSize{A4, Letter, A5}

// LookupPaper finds a paper size by name (case-insensitive).
func LookupPaper(name string) (PaperSize, error) {
	for _, p := range papers {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return PaperSize{}, errors.New(errors.ErrCodeInvalidInput, "unknown paper size: %q", name)
}

// Sheet returns the paper size in the given orientation.
func (p PaperSize) Sheet(o Orientation) Size {
	s := Size{W: p.Width, H: p.Height}
	if o == Landscape {
		return s.Swap()
	}
	return s
}

// Rect returns the full sheet rectangle in the given orientation.
func (p PaperSize) Rect(o Orientation) Rect {
	return RectOf(p.Sheet(o))
}

// Matches reports whether s equals the paper size in either axis order,
// within one point.
func (p PaperSize) Matches(s Size) bool {
	return (math.Abs(s.W-p.Width) < 1 && math.Abs(s.H-p.Height) < 1) ||
		(math.Abs(s.W-p.Height) < 1 && math.Abs(s.H-p.Width) < 1)
}
