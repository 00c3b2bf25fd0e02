// Package geometry provides the page arithmetic used to normalize and impose
// documents: rectangles in PDF points, printer-margin insets, orientation,
// aspect-ratio fitting and N-up tiling.
//
// All rectangles use a top-left origin with y growing downwards, matching
// the coordinate system of the PDF writer. Every type here is a value type;
// operations return new values and never mutate their inputs.
//
// # Fitting
//
// [Fit] computes the largest rectangle with a given aspect ratio that fits
// inside a frame, centred:
//
//	frame, _ := geometry.Inset(geometry.A4.Rect(geometry.Portrait), geometry.DefaultMargin)
//	dest := geometry.Fit(geometry.Size{W: 3000, H: 4000}, frame)
//
// # Tiling
//
// [TileRects] splits an imposed sheet into 1, 2 or 4 equal tiles. Combined
// with [ImposedSheet], a 2-up sheet swaps the source axes so each half keeps
// the source page's orientation.
package geometry
