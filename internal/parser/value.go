package parser

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind tags the variants of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is the tagged representation of a parsed model response. All model
// output enters the system through this type: downstream code never touches
// raw decoded JSON, so every consumer goes through one validated boundary.
type Value struct {
	kind Kind
	b    bool
	num  float64
	str  string
	arr  []*Value
	obj  map[string]*Value
}

func fromDecoded(v any) *Value {
	switch t := v.(type) {
	case nil:
		return &Value{kind: KindNull}
	case bool:
		return &Value{kind: KindBool, b: t}
	case float64:
		return &Value{kind: KindNumber, num: t}
	case string:
		return &Value{kind: KindString, str: t}
	case []any:
		arr := make([]*Value, len(t))
		for i, el := range t {
			arr[i] = fromDecoded(el)
		}
		return &Value{kind: KindArray, arr: arr}
	case map[string]any:
		obj := make(map[string]*Value, len(t))
		for k, el := range t {
			obj[k] = fromDecoded(el)
		}
		return &Value{kind: KindObject, obj: obj}
	default:
		return &Value{kind: KindString, str: fmt.Sprintf("%v", t)}
	}
}

// FromJSON decodes data into a Value.
func FromJSON(data []byte) (*Value, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return fromDecoded(raw), nil
}

// Object builds an object Value from already-built children. Used by tests
// and by code assembling structured artifacts.
func Object(fields map[string]*Value) *Value {
	obj := make(map[string]*Value, len(fields))
	for k, v := range fields {
		obj[k] = v
	}
	return &Value{kind: KindObject, obj: obj}
}

// String builds a string Value.
func String(s string) *Value { return &Value{kind: KindString, str: s} }

// Number builds a number Value.
func Number(f float64) *Value { return &Value{kind: KindNumber, num: f} }

func (v *Value) Kind() Kind { return v.kind }

// Get returns the named field of an object Value, or nil.
func (v *Value) Get(key string) *Value {
	if v == nil || v.kind != KindObject {
		return nil
	}
	return v.obj[key]
}

// Index returns the i-th element of an array Value, or nil.
func (v *Value) Index(i int) *Value {
	if v == nil || v.kind != KindArray || i < 0 || i >= len(v.arr) {
		return nil
	}
	return v.arr[i]
}

// Len returns the element count for arrays and field count for objects.
func (v *Value) Len() int {
	if v == nil {
		return 0
	}
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	}
	return 0
}

// Keys returns the sorted field names of an object Value.
func (v *Value) Keys() []string {
	if v == nil || v.kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Str returns the string content of a string Value; numbers and bools are
// formatted, anything else yields "".
func (v *Value) Str() string {
	if v == nil {
		return ""
	}
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	}
	return ""
}

// Float returns the numeric content of a number Value.
func (v *Value) Float() float64 {
	if v == nil || v.kind != KindNumber {
		return 0
	}
	return v.num
}

// Int returns the numeric content truncated to an int.
func (v *Value) Int() int { return int(v.Float()) }

// Interface converts back to plain decoded-JSON form, for re-marshalling
// into artifacts.
func (v *Value) Interface() any {
	if v == nil {
		return nil
	}
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindArray:
		out := make([]any, len(v.arr))
		for i, el := range v.arr {
			out[i] = el.Interface()
		}
		return out
	default:
		out := make(map[string]any, len(v.obj))
		for k, el := range v.obj {
			out[k] = el.Interface()
		}
		return out
	}
}

// FlattenSeparator joins parent and child keys in flattened mappings.
const FlattenSeparator = "."

// Flatten collapses nested objects and arrays into a single-level mapping.
// Object keys join by name, array elements by index: {"a":{"b":1}} becomes
// {"a.b":1} and {"xs":[{"y":2}]} becomes {"xs.0.y":2}. Scalar leaves keep
// their key as-is, so flattening an already-flat object is the identity.
// Callers use the result to check "did the response contain field X
// anywhere" without knowing the nesting shape the model chose.
func (v *Value) Flatten() map[string]*Value {
	out := make(map[string]*Value)
	flattenInto(out, "", v)
	return out
}

func flattenInto(out map[string]*Value, prefix string, v *Value) {
	if v == nil {
		return
	}
	join := func(key string) string {
		if prefix == "" {
			return key
		}
		return prefix + FlattenSeparator + key
	}
	switch v.kind {
	case KindObject:
		if len(v.obj) == 0 && prefix != "" {
			out[prefix] = v
			return
		}
		for k, el := range v.obj {
			flattenInto(out, join(k), el)
		}
	case KindArray:
		if len(v.arr) == 0 && prefix != "" {
			out[prefix] = v
			return
		}
		for i, el := range v.arr {
			flattenInto(out, join(strconv.Itoa(i)), el)
		}
	default:
		if prefix == "" {
			// A bare scalar response flattens to a single unnamed entry.
			out[""] = v
			return
		}
		out[prefix] = v
	}
}

// MissingKeys returns the expected keys absent from flat, sorted.
func MissingKeys(flat map[string]*Value, expected []string) []string {
	var missing []string
	for _, k := range expected {
		if _, ok := flat[k]; !ok {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return missing
}

// stripFences removes a single layer of fenced-code markup around s:
// a leading ``` line (optionally tagged, e.g. ```json) and a trailing ```.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		// Drop the language tag on the fence line, if any.
		first := strings.TrimSpace(s[:idx])
		if first == "" || !strings.ContainsAny(first, "{}[]\"") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
