// Package ingest normalizes uploaded source files into print-ready documents.
//
// Images are placed on a single sheet whose orientation follows the image,
// inset by the printer margin and fitted without distortion. Paged documents
// keep pages that already match the paper size and re-render every other page
// onto a sheet of matching orientation, again inset and fitted.
//
// The source file is never modified. The normalized document is written next
// to it as version 1 (<stem>.1), or the next free version if that name is
// taken.
//
// # Batches
//
// [Normalizer.Batch] ingests many files concurrently. Each file succeeds or
// fails on its own; successful files receive contiguous indices in input
// order, so a failed file leaves no gap.
package ingest
