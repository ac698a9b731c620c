package harness_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"codejudge/internal/judge/harness"
)

func TestParseValue(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		fragment string
		kind     harness.ValueKind
		want     interface{}
	}{
		{name: "integer", fragment: "5", kind: harness.KindNumber, want: json.Number("5")},
		{name: "array", fragment: "[1,2]", kind: harness.KindArray, want: []interface{}{json.Number("1"), json.Number("2")}},
		{name: "bare-string", fragment: "hello", kind: harness.KindString, want: "hello"},
		{name: "double-quoted", fragment: `"hi"`, kind: harness.KindString, want: "hi"},
		{name: "single-quoted", fragment: `'hi'`, kind: harness.KindString, want: "hi"},
		{name: "assignment", fragment: "nums = [3, 4]", kind: harness.KindArray, want: []interface{}{json.Number("3"), json.Number("4")}},
		{name: "assignment-string", fragment: `s = "abc"`, kind: harness.KindString, want: "abc"},
		{name: "equality-kept", fragment: "a == b", kind: harness.KindString, want: "a == b"},
		{name: "object", fragment: `{"a":true}`, kind: harness.KindObject, want: map[string]interface{}{"a": true}},
		{name: "bool", fragment: "false", kind: harness.KindBool, want: false},
		{name: "null", fragment: "null", kind: harness.KindNull, want: nil},
		{name: "leading-plus", fragment: "+7", kind: harness.KindNumber, want: json.Number("7")},
		{name: "trailing-dot", fragment: "5.", kind: harness.KindNumber, want: json.Number("5")},
		{name: "leading-dot", fragment: ".5", kind: harness.KindNumber, want: json.Number("0.5")},
		{name: "trailing-garbage", fragment: "[1] x", kind: harness.KindString, want: "[1] x"},
		{name: "unbalanced-quote", fragment: `"abc`, kind: harness.KindString, want: `"abc`},
		{name: "mismatched-quotes", fragment: `"abc'`, kind: harness.KindString, want: `"abc'`},
		{name: "empty", fragment: "   ", kind: harness.KindString, want: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := harness.ParseValue(tt.fragment)
			if got.Kind != tt.kind {
				t.Fatalf("expected kind %s, got %s", tt.kind, got.Kind)
			}
			if !reflect.DeepEqual(got.Data, tt.want) {
				t.Fatalf("expected %#v, got %#v", tt.want, got.Data)
			}
		})
	}
}

func TestParseValueIsTotal(t *testing.T) {
	t.Parallel()
	inputs := []string{"", "=", "==", "x =", "[", "]", "{", "\"", "'", "1e", "--1", "[1,,2]", "\x00", "ünïcode", "a = b = c"}
	for _, in := range inputs {
		got := harness.ParseValue(in)
		if got.Kind == "" {
			t.Fatalf("input %q produced no kind", in)
		}
	}
}

func TestValueString(t *testing.T) {
	t.Parallel()
	if got := harness.ParseValue("[1, 2, [3]]").String(); got != "[1,2,[3]]" {
		t.Fatalf("expected compact array, got %s", got)
	}
	if got := harness.ParseValue(`"a<b"`).String(); got != "a<b" {
		t.Fatalf("expected raw string, got %s", got)
	}
}
