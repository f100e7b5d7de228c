// Package reader parses PDF byte streams into immutable source documents.
//
// A [Document] is the parsed view of one input: its cross-reference table
// (classic or stream form, with incremental updates merged), trailer,
// catalog, and flattened page list. Documents are read-only; composition
// operations copy from them but never write back.
//
// Open a document from a file, an io.Reader, or a byte slice:
//
//	doc, err := reader.Open("input.pdf")
//	doc, err := reader.FromBytes(data)
//
// Structural failures (missing trailer, dangling references, cyclic page
// trees) surface as [MalformedDocumentError] carrying the byte offset where
// parsing gave up.
package reader
