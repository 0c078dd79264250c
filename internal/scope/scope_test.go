// Copyright 2025 James Ross
package scope

import "testing"

func TestMergeExtractRoundTrip(t *testing.T) {
	meta := map[string]any{"other": "kept"}
	s := Entry{Type: "organization", ID: "org_1", Tags: []string{"beta"}}
	merged := Merge(meta, &s)

	got, ok := Extract(merged)
	if !ok {
		t.Fatal("expected scope to round-trip")
	}
	if !got.Equal(s) {
		t.Fatalf("expected %+v, got %+v", s, got)
	}
	if merged["other"] != "kept" {
		t.Fatal("merge must not disturb unrelated metadata keys")
	}
	if meta["other"] != "kept" || len(meta) != 1 {
		t.Fatal("merge must not mutate the input map")
	}
}

func TestMergeNilScopeIsNoop(t *testing.T) {
	meta := map[string]any{"a": 1}
	if got := Merge(meta, nil); &got != &meta && got["a"] != 1 {
		t.Fatal("merging a nil scope must return metadata unchanged")
	}
}

func TestNumericIDPreserved(t *testing.T) {
	s := Entry{Type: "account", ID: 42}
	merged := Merge(nil, &s)
	got, _ := Extract(merged)
	if _, isString := got.ID.(string); isString {
		t.Fatal("numeric scope id must not be coerced to a string")
	}
	if got.ID.(int) != 42 {
		t.Fatalf("expected numeric id 42, got %v", got.ID)
	}
}
