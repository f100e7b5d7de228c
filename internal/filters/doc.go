// Package filters implements PDF stream filters.
//
// Decoding supports FlateDecode (with TIFF and PNG predictors),
// ASCIIHexDecode, ASCII85Decode, and CCITTFaxDecode. Encoding supports
// FlateDecode only, which is what document rewriting uses when compacting
// streams.
//
// Filter parameters arrive as a [Params] map translated from the stream's
// DecodeParms dictionary.
package filters
