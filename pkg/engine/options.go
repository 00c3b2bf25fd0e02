package engine

import (
	"strings"

	"github.com/matzehuels/printomat/pkg/errors"
	"github.com/matzehuels/printomat/pkg/geometry"
)

// Copy count bounds.
const (
	MinCopies = 1
	MaxCopies = 99
)

// ColorMode selects color or grayscale printing.
type ColorMode string

const (
	Color     ColorMode = "color"
	Grayscale ColorMode = "grayscale"
)

// Duplex selects single or double sided printing.
type Duplex string

const (
	OneSided      Duplex = "one-sided"
	TwoSidedLong  Duplex = "two-sided-long"
	TwoSidedShort Duplex = "two-sided-short"
)

// ParseColorMode parses a color mode.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(s)); m {
	case Color, Grayscale:
		return m, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown color mode: %q", s)
}

// ParseDuplex parses a duplex mode.
func ParseDuplex(s string) (Duplex, error) {
	switch d := Duplex(strings.ToLower(s)); d {
	case OneSided, TwoSidedLong, TwoSidedShort:
		return d, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown duplex mode: %q", s)
}

// FileOptions are the per-document print settings chosen by the user.
type FileOptions struct {
	Copies      int                  `json:"copies"`
	Color       ColorMode            `json:"color"`
	Duplex      Duplex               `json:"duplex"`
	Orientation geometry.Orientation `json:"orientation"`
	Layout      geometry.Layout      `json:"layout"`
}

// DefaultOptions returns the options of a freshly ingested document with
// the given orientation.
func DefaultOptions(o geometry.Orientation) FileOptions {
	return FileOptions{
		Copies:      MinCopies,
		Color:       Color,
		Duplex:      OneSided,
		Orientation: o,
		Layout:      geometry.OneUp,
	}
}

// ClampCopies limits n to [MinCopies, MaxCopies].
func ClampCopies(n int) int {
	return max(MinCopies, min(MaxCopies, n))
}
