package geometry

import (
	"math"

	"github.com/matzehuels/printomat/pkg/errors"
)

// epsilon is the tolerance used when comparing point values.
const epsilon = 1e-6

// Size is a width and height in points.
type Size struct {
	W, H float64
}

// Orientation returns the orientation of the size.
func (s Size) Orientation() Orientation {
	return Classify(s.W, s.H)
}

// Swap returns the size with its axes exchanged.
func (s Size) Swap() Size {
	return Size{W: s.H, H: s.W}
}

// Empty reports whether either dimension is zero or negative.
func (s Size) Empty() bool {
	return s.W <= 0 || s.H <= 0
}

// Rect is an axis-aligned rectangle in points with a top-left origin.
type Rect struct {
	Left, Top, Right, Bottom float64
}

// RectOf returns the rectangle spanning size s from the origin.
func RectOf(s Size) Rect {
	return Rect{Right: s.W, Bottom: s.H}
}

// Width returns the horizontal extent of r.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns the vertical extent of r.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Size returns the extent of r.
func (r Rect) Size() Size { return Size{W: r.Width(), H: r.Height()} }

// Area returns the area of r, or 0 for an empty rectangle.
func (r Rect) Area() float64 {
	if r.Empty() {
		return 0
	}
	return r.Width() * r.Height()
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// Center returns the centre point of r.
func (r Rect) Center() (x, y float64) {
	return (r.Left + r.Right) / 2, (r.Top + r.Bottom) / 2
}

// Contains reports whether o lies entirely within r.
func (r Rect) Contains(o Rect) bool {
	return o.Left >= r.Left-epsilon && o.Top >= r.Top-epsilon &&
		o.Right <= r.Right+epsilon && o.Bottom <= r.Bottom+epsilon
}

// Intersect returns the overlap of r and o. The result is empty when the
// rectangles do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	out := Rect{
		Left:   math.Max(r.Left, o.Left),
		Top:    math.Max(r.Top, o.Top),
		Right:  math.Min(r.Right, o.Right),
		Bottom: math.Min(r.Bottom, o.Bottom),
	}
	if out.Empty() {
		return Rect{}
	}
	return out
}

// Equal reports whether r and o match within a small tolerance.
func (r Rect) Equal(o Rect) bool {
	return nearly(r.Left, o.Left) && nearly(r.Top, o.Top) &&
		nearly(r.Right, o.Right) && nearly(r.Bottom, o.Bottom)
}

// Inset shrinks rect by margin on all four sides.
//
// A negative margin, or one that reaches half of the smaller side, would
// collapse the rectangle; Inset then returns an empty rectangle at the centre
// of rect together with a GEOMETRY_DEGENERATE error.
func Inset(rect Rect, margin float64) (Rect, error) {
	if margin < 0 {
		cx, cy := rect.Center()
		return Rect{Left: cx, Top: cy, Right: cx, Bottom: cy},
			errors.New(errors.ErrCodeGeometryDegenerate, "negative margin %.2f", margin)
	}
	if 2*margin >= math.Min(rect.Width(), rect.Height()) {
		cx, cy := rect.Center()
		return Rect{Left: cx, Top: cy, Right: cx, Bottom: cy},
			errors.New(errors.ErrCodeGeometryDegenerate,
				"margin %.2f exceeds half of %.2fx%.2f", margin, rect.Width(), rect.Height())
	}
	return Rect{
		Left:   rect.Left + margin,
		Top:    rect.Top + margin,
		Right:  rect.Right - margin,
		Bottom: rect.Bottom - margin,
	}, nil
}

// Fit returns the largest rectangle with the aspect ratio of content that
// fits inside frame, centred in it. Content is never distorted. A degenerate
// content size or frame yields an empty rectangle at the frame's centre.
func Fit(content Size, frame Rect) Rect {
	cx, cy := frame.Center()
	if content.Empty() || frame.Empty() {
		return Rect{Left: cx, Top: cy, Right: cx, Bottom: cy}
	}
	scale := math.Min(frame.Width()/content.W, frame.Height()/content.H)
	w, h := content.W*scale, content.H*scale
	return Rect{
		Left:   cx - w/2,
		Top:    cy - h/2,
		Right:  cx + w/2,
		Bottom: cy + h/2,
	}
}

// Map maps r, expressed in the coordinate space of a page of size from,
// linearly into the destination rectangle into.
func Map(r Rect, from Size, into Rect) Rect {
	if from.Empty() {
		return into
	}
	sx := into.Width() / from.W
	sy := into.Height() / from.H
	return Rect{
		Left:   into.Left + r.Left*sx,
		Top:    into.Top + r.Top*sy,
		Right:  into.Left + r.Right*sx,
		Bottom: into.Top + r.Bottom*sy,
	}
}

func nearly(a, b float64) bool {
	return math.Abs(a-b) <= epsilon
}
