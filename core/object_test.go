package core

import (
	"reflect"
	"testing"
)

func TestObjectString(t *testing.T) {
	tests := []struct {
		name string
		obj  Object
		want string
	}{
		{"null", Null{}, "null"},
		{"true", Bool(true), "true"},
		{"false", Bool(false), "false"},
		{"int", Int(42), "42"},
		{"negative int", Int(-7), "-7"},
		{"real", Real(1.5), "1.5"},
		{"name", Name("Type"), "/Type"},
		{"indirect ref", IndirectRef{Number: 3, Generation: 0}, "3 0 R"},
		{"array", Array{Int(1), Name("X")}, "[1 /X]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.obj.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// Dict rendering must be deterministic regardless of insertion order.
func TestDictStringSortedKeys(t *testing.T) {
	dict := Dict{
		"Zebra": Int(1),
		"Alpha": Int(2),
		"Mid":   Int(3),
	}

	want := "<</Alpha 2 /Mid 3 /Zebra 1>>"
	for i := 0; i < 5; i++ {
		if got := dict.String(); got != want {
			t.Fatalf("String() = %q, want %q", got, want)
		}
	}
}

func TestDictAccessors(t *testing.T) {
	dict := Dict{
		"Type":   Name("Page"),
		"Count":  Int(3),
		"Kids":   Array{IndirectRef{Number: 4}},
		"Parent": IndirectRef{Number: 2},
		"Title":  String("hello"),
		"Inner":  Dict{"A": Int(1)},
	}

	if name, ok := dict.GetName("Type"); !ok || name != "Page" {
		t.Errorf("GetName(Type) = %v, %v", name, ok)
	}
	if n, ok := dict.GetInt("Count"); !ok || n != 3 {
		t.Errorf("GetInt(Count) = %v, %v", n, ok)
	}
	if arr, ok := dict.GetArray("Kids"); !ok || len(arr) != 1 {
		t.Errorf("GetArray(Kids) = %v, %v", arr, ok)
	}
	if ref, ok := dict.GetIndirectRef("Parent"); !ok || ref.Number != 2 {
		t.Errorf("GetIndirectRef(Parent) = %v, %v", ref, ok)
	}
	if s, ok := dict.GetString("Title"); !ok || s != "hello" {
		t.Errorf("GetString(Title) = %v, %v", s, ok)
	}
	if inner, ok := dict.GetDict("Inner"); !ok || len(inner) != 1 {
		t.Errorf("GetDict(Inner) = %v, %v", inner, ok)
	}

	// Wrong type lookups fail cleanly
	if _, ok := dict.GetInt("Type"); ok {
		t.Error("GetInt(Type) should fail for a name value")
	}
	if _, ok := dict.GetName("Missing"); ok {
		t.Error("GetName(Missing) should fail")
	}

	if !dict.Has("Type") || dict.Has("Missing") {
		t.Error("Has gave wrong answer")
	}

	dict.Delete("Title")
	if dict.Has("Title") {
		t.Error("Delete did not remove key")
	}
}

func TestArrayAccessors(t *testing.T) {
	arr := Array{Int(10), Real(2.5), Name("X")}

	if arr.Len() != 3 {
		t.Errorf("Len() = %d, want 3", arr.Len())
	}
	if arr.Get(-1) != nil || arr.Get(3) != nil {
		t.Error("out-of-range Get should return nil")
	}
	if n, ok := arr.GetInt(0); !ok || n != 10 {
		t.Errorf("GetInt(0) = %v, %v", n, ok)
	}
	if f, ok := arr.GetNumber(1); !ok || f != 2.5 {
		t.Errorf("GetNumber(1) = %v, %v", f, ok)
	}
	if f, ok := arr.GetNumber(0); !ok || f != 10 {
		t.Errorf("GetNumber(0) = %v, %v", f, ok)
	}
	if _, ok := arr.GetNumber(2); ok {
		t.Error("GetNumber(2) should fail for a name")
	}
}

func TestDictCloneIsDeep(t *testing.T) {
	original := Dict{
		"Kids":  Array{IndirectRef{Number: 4}},
		"Inner": Dict{"A": Int(1)},
	}

	clone := original.Clone()

	// Mutating the clone must not touch the original
	inner, _ := clone.GetDict("Inner")
	inner.Set("A", Int(99))
	kids, _ := clone.GetArray("Kids")
	kids[0] = Null{}

	origInner, _ := original.GetDict("Inner")
	if n, _ := origInner.GetInt("A"); n != 1 {
		t.Errorf("original inner dict was mutated: %v", n)
	}
	origKids, _ := original.GetArray("Kids")
	if _, ok := origKids[0].(IndirectRef); !ok {
		t.Errorf("original array was mutated: %v", origKids[0])
	}
}

func TestStreamCloneIsDeep(t *testing.T) {
	original := &Stream{
		Dict: Dict{"Length": Int(3)},
		Data: []byte{1, 2, 3},
	}

	clone := original.Clone()
	clone.Data[0] = 99
	clone.Dict.Set("Length", Int(0))

	if original.Data[0] != 1 {
		t.Error("original stream data was mutated")
	}
	if n, _ := original.Dict.GetInt("Length"); n != 3 {
		t.Error("original stream dict was mutated")
	}
}

func TestCloneObject(t *testing.T) {
	tests := []struct {
		name string
		obj  Object
	}{
		{"null", Null{}},
		{"int", Int(5)},
		{"name", Name("X")},
		{"ref", IndirectRef{Number: 9}},
		{"array", Array{Int(1)}},
		{"dict", Dict{"A": Int(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clone := CloneObject(tt.obj)
			if !reflect.DeepEqual(clone, tt.obj) {
				t.Errorf("clone %v differs from original %v", clone, tt.obj)
			}
		})
	}
}
