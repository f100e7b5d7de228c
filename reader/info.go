package reader

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding/unicode"

	"github.com/tsawler/folio/core"
)

// Info holds the document information dictionary's standard text fields,
// decoded to UTF-8.
type Info struct {
	Title    string
	Author   string
	Subject  string
	Keywords string
	Creator  string
	Producer string
}

// InfoDict returns the raw document info dictionary from the trailer, or nil
// if the document has none.
func (d *Document) InfoDict() (core.Dict, error) {
	infoRef := d.trailer.Get("Info")
	if infoRef == nil {
		return nil, nil // Info is optional
	}

	obj, err := d.Resolve(infoRef)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve info: %w", err)
	}

	info, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("info is not a dictionary: %T", obj)
	}

	return info, nil
}

// Info returns the document's metadata fields with text strings decoded.
// Returns the zero Info if the document carries no info dictionary.
func (d *Document) Info() (Info, error) {
	dict, err := d.InfoDict()
	if err != nil || dict == nil {
		return Info{}, err
	}

	get := func(key string) string {
		s, ok := dict.GetString(key)
		if !ok {
			return ""
		}
		return DecodeTextString(string(s))
	}

	return Info{
		Title:    get("Title"),
		Author:   get("Author"),
		Subject:  get("Subject"),
		Keywords: get("Keywords"),
		Creator:  get("Creator"),
		Producer: get("Producer"),
	}, nil
}

// DecodeTextString decodes a PDF text string to UTF-8. Strings starting with
// the UTF-16BE byte order mark (FE FF) are decoded as UTF-16; everything
// else is treated as PDFDocEncoding, which is passed through byte-for-byte
// (its printable range coincides with Latin-1).
func DecodeTextString(s string) string {
	if len(s) >= 2 && s[0] == 0xFE && s[1] == 0xFF {
		// Decoders are stateful, so build one per call
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		decoded, err := dec.Bytes([]byte(s))
		if err == nil {
			return string(decoded)
		}
	}

	// PDFDocEncoding: map high bytes through Latin-1
	if !hasHighBytes(s) {
		return s
	}
	var buf bytes.Buffer
	for _, b := range []byte(s) {
		buf.WriteRune(rune(b))
	}
	return buf.String()
}

func hasHighBytes(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return true
		}
	}
	return false
}
