package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestTextCoercion(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "India", "India"},
		{"json number", json.Number("42"), "42"},
		{"float", 2.5, "2.5"},
		{"whole float", float64(3), "3"},
		{"int", 7, "7"},
		{"bool", true, "true"},
		{"object", map[string]any{"a": json.Number("1")}, `{"a":1}`},
		{"array", []any{"x", "y"}, `["x","y"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.in); got != tt.want {
				t.Errorf("Text(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRecordGetNested(t *testing.T) {
	v, err := Decode(strings.NewReader(`{"id": 1, "company": {"name": "Acme", "site": {"city": "Pune"}}}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	r := Record(v.(map[string]any))

	if got := r.Text("company.name"); got != "Acme" {
		t.Errorf("company.name = %q, want Acme", got)
	}
	if got := r.Text("company.site.city"); got != "Pune" {
		t.Errorf("company.site.city = %q, want Pune", got)
	}
	if got := r.Get("company.missing.deeper"); got != nil {
		t.Errorf("expected nil for missing path, got %v", got)
	}
	if got := r.ID(); got != "1" {
		t.Errorf("ID() = %q, want 1", got)
	}
}

func TestRecordGetLiteralDottedKey(t *testing.T) {
	r := Record{"a.b": "literal"}
	if got := r.Text("a.b"); got != "literal" {
		t.Errorf("expected literal key lookup, got %q", got)
	}
}

func TestNilRecord(t *testing.T) {
	var r Record
	if r.Get("anything") != nil {
		t.Error("nil record should return nil")
	}
}

func TestNumber(t *testing.T) {
	if f, ok := Number(json.Number("12.5")); !ok || f != 12.5 {
		t.Errorf("Number(json 12.5) = %v, %v", f, ok)
	}
	if _, ok := Number("12"); ok {
		t.Error("strings are not numbers")
	}
	if f, ok := NumberLike(" 12 "); !ok || f != 12 {
		t.Errorf("NumberLike(\" 12 \") = %v, %v", f, ok)
	}
	if _, ok := NumberLike("twelve"); ok {
		t.Error("non-numeric string should not parse")
	}
}

func TestEncodeDecodeRecordsKeepsNumbers(t *testing.T) {
	data, err := EncodeRecords([]Record{{"id": json.Number("9007199254740993"), "name": "big"}})
	if err != nil {
		t.Fatalf("EncodeRecords failed: %v", err)
	}
	records, err := DecodeRecords(data)
	if err != nil {
		t.Fatalf("DecodeRecords failed: %v", err)
	}
	if got := records[0].ID(); got != "9007199254740993" {
		t.Errorf("id lost precision: %s", got)
	}

	empty, err := EncodeRecords(nil)
	if err != nil {
		t.Fatalf("EncodeRecords(nil) failed: %v", err)
	}
	if string(empty) != "[]" {
		t.Errorf("nil records should encode as [], got %s", empty)
	}
}

func TestParseDirection(t *testing.T) {
	if ParseDirection("DESC") != Desc {
		t.Error("DESC should parse as Desc")
	}
	if ParseDirection("") != Asc || ParseDirection("sideways") != Asc {
		t.Error("unknown directions should default to Asc")
	}
}
