package filters

import (
	"bytes"
	"testing"
)

func TestASCIIHexDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []byte
	}{
		{"simple", "48656C6C6F>", []byte("Hello")},
		{"lowercase", "48656c6c6f>", []byte("Hello")},
		{"whitespace ignored", "48 65\n6C\t6C 6F>", []byte("Hello")},
		{"odd digit count pads zero", "486>", []byte{0x48, 0x60}},
		{"no EOD marker", "4865", []byte{0x48, 0x65}},
		{"empty", ">", []byte{}},
		{"data after EOD ignored", "48>65", []byte{0x48}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ASCIIHexDecode([]byte(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("decoded = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestASCIIHexDecodeInvalid(t *testing.T) {
	if _, err := ASCIIHexDecode([]byte("4X>")); err == nil {
		t.Error("expected error for invalid hex digit")
	}
}

func TestASCII85Decode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []byte
	}{
		{"full group", "9jqo^", []byte("Man ")},
		{"with EOD", "9jqo^~>", []byte("Man ")},
		{"data after EOD ignored", "9jqo^~>XXXX", []byte("Man ")},
		{"z shortcut", "z", []byte{0, 0, 0, 0}},
		{"partial group one byte", "9`", []byte("M")},
		{"whitespace ignored", "9jq o^", []byte("Man ")},
		{"empty", "~>", []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ASCII85Decode([]byte(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("decoded = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestASCII85DecodeInvalid(t *testing.T) {
	if _, err := ASCII85Decode([]byte("9jq\x7fo^")); err == nil {
		t.Error("expected error for out-of-range character")
	}
}
