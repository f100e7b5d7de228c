// Package compose builds new documents out of pages copied from parsed
// source documents.
//
// A [Document] is an output under construction: a flat list of objects with
// fresh contiguous numbering, a single page tree node, and a catalog. Pages
// are deep-copied from their sources with every transitively referenced
// object carried along, so an output never aliases a source document's
// object graph. Inherited page attributes are materialized onto each copied
// page dictionary, which keeps the flat tree equivalent to the original
// nested one.
//
// The package-level operations cover the standard compositions:
//
//	merged, err := compose.Merge(docA, docB)
//	chapter, err := compose.ExtractRange(doc, "1-3,7")
//	parts, err := compose.SplitIndividual(doc)
//	rotated, err := compose.Rotate(doc, "2-4", 90)
//	shuffled, err := compose.Reorder(doc, []int{3, 1, 2})
//
// All operations are non-destructive: sources are never modified.
package compose
