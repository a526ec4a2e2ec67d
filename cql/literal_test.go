package cql

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cqlforge/cqlforge/meta"
)

func TestFormatScalars(t *testing.T) {
	id := uuid.MustParse("2b4f1e9c-9d1a-4c51-8f7e-2f64a1e5c0aa")
	cases := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{"plain", "'plain'"},
		{"O'Brien", "'O''Brien'"},
		{true, "true"},
		{42, "42"},
		{int64(-7), "-7"},
		{uint64(9), "9"},
		{1.5, "1.5"},
		{id, "2b4f1e9c-9d1a-4c51-8f7e-2f64a1e5c0aa"},
		{time.UnixMilli(1725000000000).UTC(), "1725000000000"},
		{[]byte{0xde, 0xad}, "0xDEAD"},
		{[]any{1, 2, 3}, "[1, 2, 3]"},
	}
	for _, c := range cases {
		got, err := Format(c.in)
		if err != nil {
			t.Fatalf("Format(%v): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("Format(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatRejectsUnknownTypes(t *testing.T) {
	if _, err := Format(struct{}{}); err == nil {
		t.Fatal("expected error for struct literal")
	}
}

func TestFormatTypedCollections(t *testing.T) {
	set := meta.SetOf(meta.Scalar(meta.TypeText))
	got, err := FormatTyped([]string{"a", "b"}, set)
	if err != nil {
		t.Fatal(err)
	}
	if got != "{'a', 'b'}" {
		t.Errorf("set literal = %q", got)
	}

	list := meta.ListOf(meta.Scalar(meta.TypeInt))
	got, err = FormatTyped([]int{3, 1}, list)
	if err != nil {
		t.Fatal(err)
	}
	if got != "[3, 1]" {
		t.Errorf("list literal = %q", got)
	}

	m := meta.MapOf(meta.Scalar(meta.TypeText), meta.Scalar(meta.TypeInt))
	got, err = FormatTyped(map[string]any{"b": 2, "a": 1}, m)
	if err != nil {
		t.Fatal(err)
	}
	// Map entries sort by rendered key for a stable wire form.
	if got != "{'a': 1, 'b': 2}" {
		t.Errorf("map literal = %q", got)
	}
}

func TestFormatTypedNilIsNull(t *testing.T) {
	got, err := FormatTyped(nil, meta.Scalar(meta.TypeText))
	if err != nil || got != "null" {
		t.Fatalf("FormatTyped(nil) = %q, %v", got, err)
	}
}

func TestElementValues(t *testing.T) {
	elems, err := ElementValues([]string{"x", "y"})
	if err != nil {
		t.Fatal(err)
	}
	if len(elems) != 2 || elems[0] != "x" || elems[1] != "y" {
		t.Errorf("ElementValues = %v", elems)
	}
	if _, err := ElementValues("scalar"); err == nil {
		t.Fatal("expected error for non-collection value")
	}
}
