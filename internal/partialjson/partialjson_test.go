package partialjson

import (
	"reflect"
	"testing"
)

func TestParseCompleteDocuments(t *testing.T) {
	t.Parallel()

	value, ok := Parse(`{"query":"cats","top_k":3}`)
	if !ok {
		t.Fatalf("expected complete document to parse")
	}
	object, isObject := value.(map[string]any)
	if !isObject {
		t.Fatalf("expected object root, got %T", value)
	}
	if object["query"] != "cats" {
		t.Fatalf("unexpected query: %#v", object["query"])
	}
}

func TestParseTruncatedPrefixes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input string
		want  any
	}{
		{name: "unterminated value string", input: `{"query":"refund pol`, want: map[string]any{"query": "refund pol"}},
		{name: "dangling key", input: `{"qu`, want: map[string]any{}},
		{name: "key without colon", input: `{"a":1,"b"`, want: map[string]any{"a": float64(1)}},
		{name: "dangling colon", input: `{"a":1,"b":`, want: map[string]any{"a": float64(1)}},
		{name: "trailing comma", input: `{"a":1,`, want: map[string]any{"a": float64(1)}},
		{name: "open array", input: `{"ids":[1,2`, want: map[string]any{"ids": []any{float64(1), float64(2)}}},
		{name: "half literal", input: `{"done":tru`, want: map[string]any{"done": true}},
		{name: "half number", input: `{"score":12.`, want: map[string]any{"score": float64(12)}},
		{name: "nested object", input: `{"filter":{"tag":"faq`, want: map[string]any{"filter": map[string]any{"tag": "faq"}}},
		{name: "trailing escape", input: `{"text":"a\`, want: map[string]any{"text": "a"}},
		{name: "bare open object", input: `{`, want: map[string]any{}},
		{name: "bare open array", input: `[`, want: []any{}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Parse(tc.input)
			if !ok {
				t.Fatalf("Parse(%q) failed", tc.input)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Parse(%q) = %#v, want %#v", tc.input, got, tc.want)
			}
		})
	}
}

func TestParseRejectsUnrecoverableInput(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "   ", "}", "]", `{"a":1}}`} {
		if _, ok := Parse(input); ok {
			t.Fatalf("Parse(%q) unexpectedly succeeded", input)
		}
	}
}

func TestParseObjectRequiresObjectRoot(t *testing.T) {
	t.Parallel()

	if _, ok := ParseObject(`[1,2,3]`); ok {
		t.Fatalf("expected array root to be rejected")
	}

	object, ok := ParseObject(`{"query":"cats"}`)
	if !ok {
		t.Fatalf("expected object root to parse")
	}
	if object["query"] != "cats" {
		t.Fatalf("unexpected object: %#v", object)
	}
}

func TestParseConcatenatedDeltas(t *testing.T) {
	t.Parallel()

	buffer := ""
	for _, delta := range []string{`{"qu`, `ery":"cats"}`} {
		buffer += delta
		if _, ok := Parse(buffer); !ok {
			t.Fatalf("Parse(%q) failed mid-stream", buffer)
		}
	}

	object, ok := ParseObject(buffer)
	if !ok {
		t.Fatalf("expected final buffer to parse")
	}
	if object["query"] != "cats" {
		t.Fatalf("unexpected final object: %#v", object)
	}
}
