package util

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/kaptinlin/jsonrepair"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ParseJSON extracts a JSON object or array from model output. The whole
// text (fences stripped) is tried first, then the outermost {...} slice when
// the object is surrounded by chatter. jsonrepair only runs when the whole
// text already starts as JSON, so prose that merely contains brackets or
// braces stays ok=false. Scalars are never structured.
func ParseJSON(text string) (any, bool) {
	s := StripCodeFences(text)
	if s == "" {
		return nil, false
	}
	if v, ok := decodeContainer(s); ok {
		return v, true
	}
	if c := slice(s, '{', '}'); c != "" && c != s {
		if v, ok := decodeContainer(c); ok {
			return v, true
		}
	}
	if s[0] != '{' && s[0] != '[' {
		return nil, false
	}
	repaired, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return nil, false
	}
	return decodeContainer(repaired)
}

// Decode re-encodes a parsed value into a typed struct.
func Decode(v any, out any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func decodeContainer(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return nil, false
	}
	var v any
	if err := json.UnmarshalFromString(s, &v); err != nil {
		return nil, false
	}
	switch v.(type) {
	case map[string]any, []any:
		return v, true
	}
	return nil, false
}

func slice(s string, open, close byte) string {
	first := strings.IndexByte(s, open)
	last := strings.LastIndexByte(s, close)
	if first == -1 || last <= first {
		return ""
	}
	return s[first : last+1]
}
