// Package pipeline provides the batch print-preparation pipeline for printomat.
//
// This package runs the complete ingest → transform → save pipeline over a
// set of files without user interaction. The CLI uses it for the normalize
// and impose commands; the interactive kiosk drives the same building blocks
// one document at a time through pkg/session.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Ingest: Normalize every file onto the paper size and write version 1
//  2. Transform: Rotate or impose each document as requested
//  3. Save: Write changed documents as the next version
//
// # Usage
//
//	runner := pipeline.NewRunner(nil, nil, logger)
//	result, err := runner.Execute(ctx, dir, files, pipeline.Options{
//	    Layout: 2,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, f := range result.Files {
//	    fmt.Println(f.Name, "->", f.Output)
//	}
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/printomat/pkg/config"
	"github.com/matzehuels/printomat/pkg/engine"
	"github.com/matzehuels/printomat/pkg/errors"
	"github.com/matzehuels/printomat/pkg/geometry"
	"github.com/matzehuels/printomat/pkg/ingest"
	"github.com/matzehuels/printomat/pkg/pagedoc"
	"github.com/matzehuels/printomat/pkg/pagedoc/pdf"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultPaper is the default paper size name.
	DefaultPaper = "A4"

	// DefaultBackend is the default paged-document backend.
	DefaultBackend = config.BackendPDF

	// DefaultPreviewWidth is the default preview width in pixels.
	DefaultPreviewWidth = 600

	// DefaultPreviewHeight is the default preview height in pixels.
	DefaultPreviewHeight = 850
)

// NewBackend returns the paged-document backend with the given name.
func NewBackend(name string) (pagedoc.Backend, error) {
	switch name {
	case config.BackendPDF:
		return pdf.New(), nil
	case config.BackendMemory:
		return pagedoc.MemoryBackend{}, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "invalid backend: %q (must be one of: pdf, memory)", name)
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a pipeline run.
type Options struct {
	// Ingest options
	Paper   string  `json:"paper,omitempty"`
	Margin  float64 `json:"margin,omitempty"`
	Backend string  `json:"backend,omitempty"`
	Workers int     `json:"workers,omitempty"`

	// Transform options. A layout above one takes precedence over an
	// orientation, since imposition picks its own sheet orientation.
	Orientation string `json:"orientation,omitempty"`
	Layout      int    `json:"layout,omitempty"`

	// Print options recorded on every file
	Copies int    `json:"copies,omitempty"`
	Color  string `json:"color,omitempty"`
	Duplex string `json:"duplex,omitempty"`

	// Preview renders the first page of every output as PNG.
	Preview       bool `json:"preview,omitempty"`
	PreviewWidth  int  `json:"preview_width,omitempty"`
	PreviewHeight int  `json:"preview_height,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	paper       geometry.PaperSize
	backend     pagedoc.Backend
	orientation geometry.Orientation
	rotate      bool
	layout      geometry.Layout

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Files holds one entry per input file, in input order.
	Files []FileResult

	// Stats contains timing and size information.
	Stats Stats
}

// FileResult is the outcome for one input file. Err is set when the file
// failed at any stage; the other files are unaffected.
type FileResult struct {
	Name    string
	Output  string
	Version int
	Pages   int
	Options engine.FileOptions
	Preview []byte
	Err     error
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Files         int
	Failed        int
	Saved         int
	Pages         int
	IngestTime    time.Duration
	TransformTime time.Duration
	SaveTime      time.Duration
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks all fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Paper == "" {
		o.Paper = DefaultPaper
	}
	paper, err := geometry.LookupPaper(o.Paper)
	if err != nil {
		return err
	}
	o.paper = paper
	if o.Margin == 0 {
		o.Margin = geometry.DefaultMargin
	}
	if _, err := geometry.Inset(paper.Rect(geometry.Portrait), o.Margin); err != nil {
		return err
	}

	if o.Backend == "" {
		o.Backend = DefaultBackend
	}
	if o.backend, err = NewBackend(o.Backend); err != nil {
		return err
	}
	if o.Workers <= 0 {
		o.Workers = ingest.DefaultWorkers
	}

	if o.Orientation != "" {
		if o.orientation, err = geometry.ParseOrientation(o.Orientation); err != nil {
			return err
		}
		o.rotate = true
	}
	if o.Layout == 0 {
		o.Layout = int(geometry.OneUp)
	}
	o.layout = geometry.Layout(o.Layout)
	if !o.layout.Valid() {
		return errors.New(errors.ErrCodeInvalidInput, "invalid layout: %d (must be one of: 1, 2, 4)", o.Layout)
	}

	if o.Copies == 0 {
		o.Copies = engine.MinCopies
	}
	o.Copies = engine.ClampCopies(o.Copies)
	if o.Color == "" {
		o.Color = string(engine.Color)
	}
	if _, err := engine.ParseColorMode(o.Color); err != nil {
		return err
	}
	if o.Duplex == "" {
		o.Duplex = string(engine.OneSided)
	}
	if _, err := engine.ParseDuplex(o.Duplex); err != nil {
		return err
	}

	if o.PreviewWidth <= 0 {
		o.PreviewWidth = DefaultPreviewWidth
	}
	if o.PreviewHeight <= 0 {
		o.PreviewHeight = DefaultPreviewHeight
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// PaperSize returns the validated paper size.
func (o *Options) PaperSize() geometry.PaperSize { return o.paper }

// PagedBackend returns the validated paged-document backend.
func (o *Options) PagedBackend() pagedoc.Backend { return o.backend }

// Transforms reports whether the run changes documents after ingestion.
func (o *Options) Transforms() bool {
	return o.rotate || o.layout != geometry.OneUp
}
