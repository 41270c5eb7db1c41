package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestDeterministicEncode(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		wantJSON string
	}{
		{
			name: "struct with floats",
			input: struct {
				Name  string  `json:"name"`
				Score float64 `json:"score"`
				Count int     `json:"count"`
			}{Name: "Foo", Score: 0.123456789, Count: 42},
			wantJSON: `{"count":42,"name":"Foo","score":0.123457}`,
		},
		{
			name: "omitempty and nil pointers",
			input: struct {
				Name  string   `json:"name"`
				Score *float64 `json:"score,omitempty"`
				Count int      `json:"count,omitempty"`
				Skip  string   `json:"-"`
			}{Name: "Foo", Skip: "x"},
			wantJSON: `{"name":"Foo"}`,
		},
		{
			name: "zero values without omitempty are kept",
			input: struct {
				Percentile float64 `json:"percentile"`
				Close      bool    `json:"close"`
			}{},
			wantJSON: `{"close":false,"percentile":0}`,
		},
		{
			name:     "map keys sorted",
			input:    map[string]int{"zebra": 1, "alpha": 2, "beta": 3},
			wantJSON: `{"alpha":2,"beta":3,"zebra":1}`,
		},
		{
			name:     "empty collections dropped",
			input:    map[string]interface{}{"files": []string{}, "teams": map[string]string{}, "name": "Foo"},
			wantJSON: `{"name":"Foo"}`,
		},
		{
			name:     "html is not escaped",
			input:    map[string]string{"link": "<a>&</a>"},
			wantJSON: `{"link":"<a>&</a>"}`,
		},
		{
			name:     "nil",
			input:    nil,
			wantJSON: `null`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeterministicEncode(tt.input)
			if err != nil {
				t.Fatalf("DeterministicEncode() error = %v", err)
			}
			if string(got) != tt.wantJSON {
				t.Errorf("DeterministicEncode() = %s, want %s", got, tt.wantJSON)
			}
		})
	}
}

func TestDeterministicEncodeIndented(t *testing.T) {
	got, err := DeterministicEncodeIndented(map[string]interface{}{"b": 1, "a": map[string]int{"c": 2}}, "  ")
	if err != nil {
		t.Fatalf("DeterministicEncodeIndented() error = %v", err)
	}
	want := "{\n  \"a\": {\n    \"c\": 2\n  },\n  \"b\": 1\n}"
	if string(got) != want {
		t.Errorf("DeterministicEncodeIndented() = %q, want %q", got, want)
	}
}

func TestDeterministicEncode_Stable(t *testing.T) {
	input := map[string]interface{}{}
	for _, k := range []string{"k1", "k2", "k3", "k4", "k5", "k6", "k7", "k8"} {
		input[k] = map[string]float64{"x": 1.0 / 3.0, "y": 2.5}
	}

	first, err := DeterministicEncode(input)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		again, _ := DeterministicEncode(input)
		if !bytes.Equal(first, again) {
			t.Fatalf("Encoding differs on run %d", i)
		}
	}
}

func TestDocsBlob(t *testing.T) {
	got, err := DocsBlob(map[string]interface{}{"features": map[string]int{"Foo": 1}})
	if err != nil {
		t.Fatalf("DocsBlob() error = %v", err)
	}
	want := `window.FEATURE_MAP_CONFIG = {"features":{"Foo":1}};` + "\n"
	if string(got) != want {
		t.Errorf("DocsBlob() = %q, want %q", got, want)
	}

	empty, _ := DocsBlob(map[string]interface{}{})
	if !strings.HasSuffix(string(empty), " = {};\n") {
		t.Errorf("Empty blob should assign an object, got %q", empty)
	}
}

func TestSortHealthRows(t *testing.T) {
	rows := []HealthRow{
		{Feature: "B", Overall: 50},
		{Feature: "C", Overall: 90},
		{Feature: "A", Overall: 50},
	}
	SortHealthRows(rows)

	want := []string{"C", "A", "B"}
	for i, r := range rows {
		if r.Feature != want[i] {
			t.Errorf("rows[%d] = %s, want %s", i, r.Feature, want[i])
		}
	}
}
