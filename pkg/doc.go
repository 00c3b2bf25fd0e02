// Package pkg provides the core libraries for Printomat, which prepares
// uploaded documents for printing at a self-service kiosk.
//
// # Overview
//
// An upload is a directory of PDFs and images named by a short code. Every
// file is normalized onto one paper size, may be rotated or imposed several
// pages per sheet, and each change is written next to the upload as a new
// numbered version (report.1, report.2, ...). Sources are never modified.
//
// # Architecture
//
// The typical data flow:
//
//	Upload directory
//	         ↓
//	    [ingest] package (decode, fit onto the sheet, write <stem>.1)
//	         ↓
//	    [engine] package (rotate, impose, restore, print options)
//	         ↓
//	    [versioning] package (write <stem>.<n+1> exactly once)
//	         ↓
//	    [preview] package (PNG previews, cached)
//
// [session] ties these together for one upload code and keeps at most one
// document open at a time. [pipeline] runs the same steps as a batch for
// the command line.
//
// # Quick Start
//
// Normalize and impose every file of an upload 2-up:
//
//	runner := pipeline.NewRunner(nil, nil, nil)
//	result, err := runner.Execute(ctx, "/srv/uploads/4821", names, pipeline.Options{
//	    Layout: 2,
//	    Copies: 3,
//	})
//
// # Main Packages
//
// ## Documents
//
// [geometry] - Paper sizes, orientations, rectangles and the fit and tile
// math behind normalization and imposition.
//
// [pagedoc] - Paged documents built from imported pages and placed images,
// serialized by a [pagedoc.Backend]. [pagedoc/pdf] writes PDF; the memory
// backend writes a compact JSON form for tests and dry runs.
//
// [raster] - Image decoding with EXIF orientation applied.
//
// ## Processing
//
// [ingest] - Source discovery and normalization, with a bounded worker pool.
//
// [engine] - The per-document transformation state machine.
//
// [versioning] - Version file naming and write-once saving.
//
// [preview] - Page rasterization and PNG encoding.
//
// ## Infrastructure
//
// [cache] - Preview caches: null, file and Redis.
//
// [config] - TOML configuration with PRINTOMAT_* environment overrides.
//
// [errors] - Coded errors shared by every layer.
//
// [observability] - Hooks for ingest, transform, save, cache and HTTP events.
//
// [geometry]: https://pkg.go.dev/github.com/matzehuels/printomat/pkg/geometry
// [pagedoc]: https://pkg.go.dev/github.com/matzehuels/printomat/pkg/pagedoc
// [pagedoc/pdf]: https://pkg.go.dev/github.com/matzehuels/printomat/pkg/pagedoc/pdf
// [pagedoc.Backend]: https://pkg.go.dev/github.com/matzehuels/printomat/pkg/pagedoc#Backend
// [raster]: https://pkg.go.dev/github.com/matzehuels/printomat/pkg/raster
// [ingest]: https://pkg.go.dev/github.com/matzehuels/printomat/pkg/ingest
// [engine]: https://pkg.go.dev/github.com/matzehuels/printomat/pkg/engine
// [versioning]: https://pkg.go.dev/github.com/matzehuels/printomat/pkg/versioning
// [preview]: https://pkg.go.dev/github.com/matzehuels/printomat/pkg/preview
// [session]: https://pkg.go.dev/github.com/matzehuels/printomat/pkg/session
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/printomat/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/printomat/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/printomat/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/printomat/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/printomat/pkg/observability
package pkg
