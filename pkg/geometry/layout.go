package geometry

import (
	"strconv"

	"github.com/matzehuels/printomat/pkg/errors"
)

// Layout is the number of source pages tiled onto one output sheet.
type Layout int

// Supported layouts.
const (
	OneUp  Layout = 1
	TwoUp  Layout = 2
	FourUp Layout = 4
)

// Valid reports whether l is one of the supported layouts.
func (l Layout) Valid() bool {
	return l == OneUp || l == TwoUp || l == FourUp
}

// ParseLayout parses "1", "2" or "4".
func ParseLayout(s string) (Layout, error) {
	n, err := strconv.Atoi(s)
	if err != nil || !Layout(n).Valid() {
		return 0, errors.New(errors.ErrCodeInvalidInput, "layout must be 1, 2 or 4, got %q", s)
	}
	return Layout(n), nil
}

// ImposedSheet returns the output sheet size for tiling pages of size src.
// One-up and four-up keep the source size; two-up swaps its axes so that each
// half keeps the source orientation.
func ImposedSheet(src Size, n Layout) Size {
	if n == TwoUp {
		return src.Swap()
	}
	return src
}

// TileRects splits sheet into n equal tiles.
//
// Two-up splits a portrait sheet (height > width) into top and bottom halves
// and any other sheet, square included, into left and right halves; the first
// tile is the top or left one. Four-up yields quadrants in row-major order.
func TileRects(sheet Size, n Layout) ([]Rect, error) {
	if sheet.Empty() {
		return nil, errors.New(errors.ErrCodeGeometryDegenerate,
			"cannot tile a %.2fx%.2f sheet", sheet.W, sheet.H)
	}
	w, h := sheet.W, sheet.H
	switch n {
	case OneUp:
		return []Rect{RectOf(sheet)}, nil
	case TwoUp:
		if h > w {
			return []Rect{
				{Left: 0, Top: 0, Right: w, Bottom: h / 2},
				{Left: 0, Top: h / 2, Right: w, Bottom: h},
			}, nil
		}
		return []Rect{
			{Left: 0, Top: 0, Right: w / 2, Bottom: h},
			{Left: w / 2, Top: 0, Right: w, Bottom: h},
		}, nil
	case FourUp:
		return []Rect{
			{Left: 0, Top: 0, Right: w / 2, Bottom: h / 2},
			{Left: w / 2, Top: 0, Right: w, Bottom: h / 2},
			{Left: 0, Top: h / 2, Right: w / 2, Bottom: h},
			{Left: w / 2, Top: h / 2, Right: w, Bottom: h},
		}, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "unsupported layout: %d", int(n))
}
