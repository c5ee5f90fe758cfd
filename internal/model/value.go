package model

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is a tagged variant holding one argument value: a scalar, a list, or a
// string-keyed map. Nested structures are walked by recursion over the tag,
// never by reflection, so every walk terminates on well-formed input.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []Value
	m    map[string]Value
}

// Null is the zero Value.
var Null = Value{}

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a numeric Value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List returns a list Value.
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

// Map returns a map Value. The map is used as-is.
func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindMap, m: m}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// Str returns the string payload and whether v is a string.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the numeric payload and whether v is a number.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Items returns the list payload (nil for non-lists).
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// Fields returns the map payload (nil for non-maps).
func (v Value) Fields() map[string]Value {
	if v.kind != KindMap {
		return nil
	}
	return v.m
}

// Len returns the number of items of a list, fields of a map, or 0.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.m)
	default:
		return 0
	}
}

// FromAny converts decoded JSON/YAML/structpb data into a Value.
// Unsupported types become their fmt-free string form where possible, or Null.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null
	case Value:
		return t
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case uint64:
		return Number(float64(t))
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return Number(f)
		}
		return String(t.String())
	case []any:
		items := make([]Value, len(t))
		for i, it := range t {
			items[i] = FromAny(it)
		}
		return List(items...)
	case []string:
		items := make([]Value, len(t))
		for i, s := range t {
			items[i] = String(s)
		}
		return List(items...)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, it := range t {
			m[k] = FromAny(it)
		}
		return Map(m)
	case map[string]string:
		m := make(map[string]Value, len(t))
		for k, s := range t {
			m[k] = String(s)
		}
		return Map(m)
	default:
		return Null
	}
}

// ToAny converts v back into plain Go data suitable for encoding/json.
func (v Value) ToAny() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, len(v.list))
		for i, it := range v.list {
			out[i] = it.ToAny()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, it := range v.m {
			out[k] = it.ToAny()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON encodes v as its natural JSON form.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToAny())
}

// UnmarshalJSON decodes any JSON value into v.
func (v *Value) UnmarshalJSON(data []byte) error {
	var x any
	if err := json.Unmarshal(data, &x); err != nil {
		return err
	}
	*v = FromAny(x)
	return nil
}

// Walk calls fn for every scalar string reachable from v, depth first.
// Map keys are visited in sorted order.
func (v Value) Walk(fn func(s string)) {
	switch v.kind {
	case KindString:
		fn(v.str)
	case KindList:
		for _, it := range v.list {
			it.Walk(fn)
		}
	case KindMap:
		for _, k := range sortedKeys(v.m) {
			v.m[k].Walk(fn)
		}
	}
}

// Text renders v as a compact deterministic string (keys sorted).
func (v Value) Text() string {
	var sb strings.Builder
	v.writeText(&sb)
	return sb.String()
}

func (v Value) writeText(sb *strings.Builder) {
	switch v.kind {
	case KindString:
		sb.WriteString(v.str)
	case KindNumber:
		sb.WriteString(strconv.FormatFloat(v.num, 'f', -1, 64))
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.b))
	case KindList:
		sb.WriteByte('[')
		for i, it := range v.list {
			if i > 0 {
				sb.WriteByte(' ')
			}
			it.writeText(sb)
		}
		sb.WriteByte(']')
	case KindMap:
		sb.WriteByte('{')
		for i, k := range sortedKeys(v.m) {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(k)
			sb.WriteByte('=')
			v.m[k].writeText(sb)
		}
		sb.WriteByte('}')
	}
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Args is the top-level argument mapping of a tool call.
type Args map[string]Value

// ArgsFromMap converts decoded JSON arguments into Args.
func ArgsFromMap(m map[string]any) Args {
	args := make(Args, len(m))
	for k, v := range m {
		args[k] = FromAny(v)
	}
	return args
}

// Value returns the arguments as a single map Value.
func (a Args) Value() Value {
	return Map(map[string]Value(a))
}

// Text renders the arguments deterministically as "k=v" pairs.
func (a Args) Text() string {
	v := a.Value()
	s := v.Text()
	return strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}")
}
