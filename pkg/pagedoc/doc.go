// Package pagedoc models paged documents as an ordered list of pages, each
// composed of placements of source payloads.
//
// A [Document] never embeds a third-party document type. It wraps a
// [Backend], which knows how to inspect a serialized document and how to
// encode a composed one. The PDF backend lives in the pdf subpackage; the
// [MemoryBackend] in this package encodes documents as deterministic JSON
// and is used for tests and dry runs.
//
// Placements reference immutable [Blob] values. Copying a page region into
// another document maps the source page's placements into the destination
// rectangle rather than re-reading pixels, so repeated copies never drift:
//
//	src, _ := pagedoc.Open(backend, data)
//	dst := pagedoc.New(backend)
//	page := dst.NewPage(geometry.A4.Sheet(geometry.Portrait))
//	_ = dst.CopyRegion(page, frame, src, 0)
//	out, _ := dst.Bytes()
package pagedoc
