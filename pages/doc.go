// Package pages models the PDF document catalog and page tree.
//
// A PDF organizes its pages as a tree of /Pages nodes with /Page leaves.
// [PageTree] flattens that tree into an ordered page list, carrying the
// inheritable attributes (MediaBox, CropBox, Resources, Rotate) down from
// ancestor nodes so every [Page] answers for itself, and rejecting cyclic
// trees during traversal.
//
// Pages are read-only views into a parsed document. Composition never
// mutates them; it copies the objects they reference into a new document.
package pages
