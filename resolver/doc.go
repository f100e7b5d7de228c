// Package resolver provides cycle-safe resolution of PDF indirect references.
//
// PDF objects refer to each other through indirect references ("12 0 R").
// The [ObjectResolver] follows those references, optionally recursing into
// dictionaries and arrays, while guarding against circular reference chains
// and unbounded recursion depth.
//
// The resolver is decoupled from any particular file reader through the
// [ObjectReader] interface, which the reader package implements.
package resolver
