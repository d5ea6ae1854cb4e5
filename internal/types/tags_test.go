package types

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestTagSetDeduplicates(t *testing.T) {
	s := NewTagSet("db", "web", "db")
	if len(s) != 2 {
		t.Fatalf("expected 2 members, got %d", len(s))
	}
	if !s.Contains("db") || !s.Contains("web") {
		t.Errorf("missing expected members: %v", s.Slice())
	}
}

func TestTagSetIntersects(t *testing.T) {
	cases := []struct {
		name string
		a, b TagSet
		want bool
	}{
		{"overlap", NewTagSet("db", "web"), NewTagSet("web"), true},
		{"disjoint", NewTagSet("db"), NewTagSet("web"), false},
		{"empty left", NewTagSet(), NewTagSet("web"), false},
		{"both empty", NewTagSet(), NewTagSet(), false},
		{"subset", NewTagSet("a", "b", "c"), NewTagSet("b", "c"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Intersects(tc.b); got != tc.want {
				t.Errorf("Intersects = %v, want %v", got, tc.want)
			}
			// Intersection is symmetric.
			if got := tc.b.Intersects(tc.a); got != tc.want {
				t.Errorf("reverse Intersects = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTagSetJSONRoundTrip(t *testing.T) {
	s := NewTagSet("web", "db", "app")

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// Sorted output regardless of map iteration order.
	if string(data) != `["app","db","web"]` {
		t.Errorf("unexpected wire form: %s", data)
	}

	var back TagSet
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(s, back) {
		t.Errorf("round trip mismatch: %v != %v", s, back)
	}
}

func TestTagSetUnmarshalDeduplicates(t *testing.T) {
	var s TagSet
	if err := json.Unmarshal([]byte(`["web","web","db"]`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(s) != 2 {
		t.Errorf("duplicates in input should collapse, got %v", s.Slice())
	}
}
