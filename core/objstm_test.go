package core

import (
	"fmt"
	"testing"
)

// buildObjectStream packs the given objects (numbered from firstNum) into an
// uncompressed object stream.
func buildObjectStream(t *testing.T, firstNum int, bodies []string) *Stream {
	t.Helper()

	var header, data string
	for i, body := range bodies {
		header += fmt.Sprintf("%d %d ", firstNum+i, len(data))
		data += body + " "
	}

	payload := header + data
	return &Stream{
		Dict: Dict{
			"Type":   Name("ObjStm"),
			"N":      Int(len(bodies)),
			"First":  Int(len(header)),
			"Length": Int(len(payload)),
		},
		Data: []byte(payload),
	}
}

func TestNewObjectStream(t *testing.T) {
	stream := buildObjectStream(t, 10, []string{"(a)", "42"})

	objStm, err := NewObjectStream(stream)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if objStm.N() != 2 {
		t.Errorf("N() = %d, want 2", objStm.N())
	}
}

func TestNewObjectStreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		stream *Stream
	}{
		{"nil stream", nil},
		{"wrong type", &Stream{Dict: Dict{"Type": Name("XObject")}}},
		{"missing N", &Stream{Dict: Dict{"Type": Name("ObjStm"), "First": Int(0)}}},
		{"missing First", &Stream{Dict: Dict{"Type": Name("ObjStm"), "N": Int(1)}}},
		{"negative N", &Stream{Dict: Dict{"Type": Name("ObjStm"), "N": Int(-1), "First": Int(0)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewObjectStream(tt.stream); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestObjectStreamGetObjectByIndex(t *testing.T) {
	stream := buildObjectStream(t, 10, []string{
		"<< /Type /Font /Subtype /Type1 >>",
		"(hello)",
		"[1 2 3]",
	})

	objStm, err := NewObjectStream(stream)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	obj, num, err := objStm.GetObjectByIndex(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != 10 {
		t.Errorf("object number = %d, want 10", num)
	}
	dict, ok := obj.(Dict)
	if !ok {
		t.Fatalf("expected Dict, got %T", obj)
	}
	if name, _ := dict.GetName("Type"); name != "Font" {
		t.Errorf("expected /Type /Font, got %v", name)
	}

	obj, num, err = objStm.GetObjectByIndex(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != 12 {
		t.Errorf("object number = %d, want 12", num)
	}
	if arr, ok := obj.(Array); !ok || len(arr) != 3 {
		t.Errorf("expected 3-element array, got %v", obj)
	}

	if _, _, err := objStm.GetObjectByIndex(3); err == nil {
		t.Error("expected error for out-of-range index")
	}
}

func TestObjectStreamGetObjectByNumber(t *testing.T) {
	stream := buildObjectStream(t, 20, []string{"(x)", "(y)"})

	objStm, err := NewObjectStream(stream)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	obj, index, err := objStm.GetObjectByNumber(21)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if index != 1 {
		t.Errorf("index = %d, want 1", index)
	}
	if obj != String("y") {
		t.Errorf("expected (y), got %v", obj)
	}

	if _, _, err := objStm.GetObjectByNumber(99); err == nil {
		t.Error("expected error for unknown object number")
	}
}

func TestObjectStreamObjectNumbers(t *testing.T) {
	stream := buildObjectStream(t, 5, []string{"1", "2", "3"})

	objStm, err := NewObjectStream(stream)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	nums, err := objStm.ObjectNumbers()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{5, 6, 7}
	for i := range want {
		if nums[i] != want[i] {
			t.Errorf("nums[%d] = %d, want %d", i, nums[i], want[i])
		}
	}
}
