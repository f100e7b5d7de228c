package core

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"testing"
)

func zlibCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("compress failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("compress close failed: %v", err)
	}
	return buf.Bytes()
}

func TestStreamDecodeNoFilter(t *testing.T) {
	stream := &Stream{
		Dict: Dict{"Length": Int(5)},
		Data: []byte("hello"),
	}

	data, err := stream.Decode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("expected %q, got %q", "hello", string(data))
	}
}

func TestStreamDecodeFlate(t *testing.T) {
	raw := []byte("some content stream operators BT ET")
	compressed := zlibCompress(t, raw)

	stream := &Stream{
		Dict: Dict{
			"Length": Int(len(compressed)),
			"Filter": Name("FlateDecode"),
		},
		Data: compressed,
	}

	data, err := stream.Decode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(data, raw) {
		t.Errorf("expected %q, got %q", raw, data)
	}
}

func TestStreamDecodeFilterChain(t *testing.T) {
	// ASCIIHexDecode then FlateDecode
	raw := []byte("chained")
	compressed := zlibCompress(t, raw)
	hexEncoded := []byte(hex.EncodeToString(compressed) + ">")

	stream := &Stream{
		Dict: Dict{
			"Length": Int(len(hexEncoded)),
			"Filter": Array{Name("ASCIIHexDecode"), Name("FlateDecode")},
		},
		Data: hexEncoded,
	}

	data, err := stream.Decode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(data, raw) {
		t.Errorf("expected %q, got %q", raw, data)
	}
}

func TestStreamDecodeImageFiltersPassThrough(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	stream := &Stream{
		Dict: Dict{"Filter": Name("DCTDecode")},
		Data: jpeg,
	}

	data, err := stream.Decode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(data, jpeg) {
		t.Error("DCTDecode data should pass through untouched")
	}
}

func TestStreamDecodeUnsupportedFilter(t *testing.T) {
	stream := &Stream{
		Dict: Dict{"Filter": Name("JBIG2Decode")},
		Data: []byte{0},
	}

	if _, err := stream.Decode(); err == nil {
		t.Error("expected error for unsupported filter")
	}
}

func TestStreamEncodeRoundTrip(t *testing.T) {
	raw := []byte("q 0 0 612 792 re W n Q")
	stream := &Stream{Dict: Dict{"Length": Int(len(raw))}, Data: raw}

	if stream.IsEncoded() {
		t.Fatal("fresh stream should not report a filter")
	}

	if err := stream.Encode(raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !stream.IsEncoded() {
		t.Error("encoded stream should report a filter")
	}
	if name, _ := stream.Dict.GetName("Filter"); name != "FlateDecode" {
		t.Errorf("expected /Filter /FlateDecode, got %v", name)
	}
	if length, _ := stream.Dict.GetInt("Length"); int(length) != len(stream.Data) {
		t.Errorf("/Length %d does not match data size %d", length, len(stream.Data))
	}

	decoded, err := stream.Decode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(decoded, raw) {
		t.Errorf("round trip changed data: %q -> %q", raw, decoded)
	}
}
