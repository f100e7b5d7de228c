// Package writer serializes composed documents to PDF byte streams.
//
// Output is a single-revision PDF 1.7 file: header with binary marker
// comment, every object in numbering order, a classic cross-reference
// table, and a trailer carrying /Size, /Root, /Info, and a fresh /ID.
//
//	var buf bytes.Buffer
//	err := writer.New().Write(doc, &buf)
//
// The default mode writes objects exactly as composed. [WithRecompact]
// additionally drops objects unreachable from the catalog, renumbers the
// survivors contiguously, and flate-compresses streams that carry no
// filter.
package writer
