// Package pagerange resolves textual page-range expressions.
//
// An expression is a comma-separated list of tokens, each either a single
// positive integer ("5") or an inclusive range ("2-7"). Indices are 1-based.
// Resolution validates every token against the document's page count,
// silently drops tokens that are malformed or out of bounds, and returns the
// surviving indices deduplicated and sorted ascending:
//
//	pagerange.Resolve("5,1-3,3", 10)  // [1 2 3 5]
//	pagerange.Resolve("1-3,7-9", 5)   // [1 2 3]
//
// The permissive dropping matches what users of interactive tools expect.
// Callers that want strict behavior can run [Validate] first, which reports
// the first bad token instead of dropping it.
package pagerange
