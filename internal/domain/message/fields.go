package message

import (
	"fmt"
	"strings"
)

// Fields is the untyped MessageDetails mapping produced by the envelope
// decoder. Values are strings, nested Fields, or []interface{} for repeated
// elements.
type Fields map[string]interface{}

// String returns the trimmed text of key, or "" when absent or not a scalar
func (f Fields) String(key string) string {
	switch v := f[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]interface{}:
		if text, ok := v["#text"].(string); ok {
			return strings.TrimSpace(text)
		}
	case Fields:
		return Fields(v).String("#text")
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
	return ""
}

// Has reports whether key is present with a non-empty value
func (f Fields) Has(key string) bool {
	switch v := f[key].(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	default:
		return true
	}
}

// Sub returns the nested element at key, or nil
func (f Fields) Sub(key string) Fields {
	return asFields(f[key])
}

// List returns the elements under key as an ordered sequence, whether the
// element occurred once or many times.
func (f Fields) List(key string) []Fields {
	var out []Fields
	for _, item := range asSlice(f[key]) {
		if sub := asFields(item); sub != nil {
			out = append(out, sub)
		}
	}
	return out
}

// Strings is List for repeated scalar elements
func (f Fields) Strings(key string) []string {
	var out []string
	for _, item := range asSlice(f[key]) {
		if s, ok := item.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func asFields(v interface{}) Fields {
	switch t := v.(type) {
	case Fields:
		return t
	case map[string]interface{}:
		return Fields(t)
	}
	return nil
}

func asSlice(v interface{}) []interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case []interface{}:
		return t
	case []map[string]interface{}:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out
	default:
		return []interface{}{t}
	}
}
