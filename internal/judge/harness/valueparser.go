package harness

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// ValueKind classifies a parsed argument.
type ValueKind string

const (
	KindNull   ValueKind = "null"
	KindBool   ValueKind = "bool"
	KindNumber ValueKind = "number"
	KindString ValueKind = "string"
	KindArray  ValueKind = "array"
	KindObject ValueKind = "object"
)

// Value is one parsed argument. Data holds nil, bool, json.Number, string,
// []interface{} or map[string]interface{} according to Kind.
type Value struct {
	Kind ValueKind   `json:"kind"`
	Data interface{} `json:"value"`
}

var (
	assignmentPrefix = regexp.MustCompile(`^\s*[A-Za-z_$][\w$]*\s*=`)
	decimalLiteral   = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
)

// ParseValue converts one argument fragment into a value. It never fails:
// assignment prefix, then JSON literal, then decimal number, then string.
func ParseValue(fragment string) Value {
	s := stripAssignment(fragment)

	if v, ok := parseJSONLiteral(s); ok {
		return v
	}
	if decimalLiteral.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Value{Kind: KindNumber, Data: json.Number(strconv.FormatFloat(f, 'g', -1, 64))}
		}
	}
	return Value{Kind: KindString, Data: unquote(s)}
}

// stripAssignment removes a leading "name =" but leaves "a == b" alone.
func stripAssignment(s string) string {
	if loc := assignmentPrefix.FindStringIndex(s); loc != nil {
		rest := s[loc[1]:]
		if !strings.HasPrefix(rest, "=") {
			s = rest
		}
	}
	return strings.TrimSpace(s)
}

func parseJSONLiteral(s string) (Value, bool) {
	if s == "" {
		return Value{}, false
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var data interface{}
	if err := dec.Decode(&data); err != nil {
		return Value{}, false
	}
	// Reject trailing content such as "1 2" or "[1] x".
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, false
	}
	return Value{Kind: kindOf(data), Data: data}, true
}

func kindOf(data interface{}) ValueKind {
	switch data.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case json.Number:
		return KindNumber
	case string:
		return KindString
	case []interface{}:
		return KindArray
	default:
		return KindObject
	}
}

// unquote strips one matching pair of surrounding quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'') && first == last {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// String renders the value compactly, the way the drivers print results.
func (v Value) String() string {
	if v.Kind == KindString {
		s, _ := v.Data.(string)
		return s
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v.Data); err != nil {
		return ""
	}
	return strings.TrimRight(buf.String(), "\n")
}
