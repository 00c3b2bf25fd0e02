package geometry

import (
	"math"
	"strings"

	"github.com/matzehuels/printomat/pkg/errors"
)

// SquareTolerance is the maximum deviation of the aspect ratio from 1 for a
// page or image to count as square.
const SquareTolerance = 0.01

// Orientation is the long-axis direction of a page.
type Orientation int

const (
	// Portrait pages are at least as tall as they are wide.
	Portrait Orientation = iota
	// Landscape pages are wider than tall.
	Landscape
)

// String returns the lowercase name of the orientation.
func (o Orientation) String() string {
	if o == Landscape {
		return "landscape"
	}
	return "portrait"
}

// MarshalText implements encoding.TextMarshaler.
func (o Orientation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Orientation) UnmarshalText(text []byte) error {
	parsed, err := ParseOrientation(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// ParseOrientation parses "portrait" or "landscape" (case-insensitive,
// single-letter abbreviations accepted).
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "portrait", "p":
		return Portrait, nil
	case "landscape", "l":
		return Landscape, nil
	}
	return Portrait, errors.New(errors.ErrCodeInvalidInput, "unknown orientation: %q", s)
}

// Classify returns Portrait iff width ≤ height.
func Classify(width, height float64) Orientation {
	if width <= height {
		return Portrait
	}
	return Landscape
}

// AspectRatio returns max(width,height)/min(width,height), which is always
// at least 1. Degenerate input returns 0.
func AspectRatio(width, height float64) float64 {
	if width <= 0 || height <= 0 {
		return 0
	}
	return math.Max(width, height) / math.Min(width, height)
}

// IsSquare reports whether the aspect ratio is within SquareTolerance of 1.
func IsSquare(width, height float64) bool {
	r := AspectRatio(width, height)
	return r > 0 && r-1 <= SquareTolerance
}
