// Package resource holds the in-memory resource tree exchanged between
// handlers and wire formats.
//
// A tree is built from three kinds of nodes: scalars (string, number, bool
// or null), ordered lists and keyed mappings. Mappings keep the order in
// which keys were first inserted so that encoders produce stable output.
package resource

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

// ErrUnsupportedType is returned by FromNative for Go values that have no
// tree representation (channels, funcs, structs, non-string map keys).
var ErrUnsupportedType = errors.New("unsupported value type")

type Kind uint8

const (
	KindScalar Kind = iota
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a single node of a resource tree. The zero value is a null scalar.
//
// Values are not safe for concurrent mutation; a tree handed to an encoder
// must not be modified until the encoder returns.
type Value struct {
	kind   Kind
	scalar any
	items  []*Value
	keys   []string
	fields map[string]*Value
}

// Field is one key/value entry used to build a mapping.
type Field struct {
	Key   string
	Value *Value
}

// Pair is shorthand for Field{Key: key, Value: v}.
func Pair(key string, v *Value) Field {
	return Field{Key: key, Value: v}
}

// Null returns a null scalar.
func Null() *Value {
	return &Value{kind: KindScalar}
}

// String returns a string scalar.
func String(s string) *Value {
	return &Value{kind: KindScalar, scalar: s}
}

// Scalar wraps a primitive. Integers are widened to int64 (uint64 for
// unsigned), floats to float64. Anything that is not a primitive is stored
// in its fmt representation.
func Scalar(v any) *Value {
	return &Value{kind: KindScalar, scalar: normalizeScalar(v)}
}

// List returns an ordered list holding items. Nil items become nulls.
func List(items ...*Value) *Value {
	l := &Value{kind: KindList, items: make([]*Value, 0, len(items))}
	for _, it := range items {
		l.Append(it)
	}
	return l
}

// Map returns a mapping holding fields in the given order. A repeated key
// replaces the earlier value but keeps its position.
func Map(fields ...Field) *Value {
	m := &Value{kind: KindMap, fields: make(map[string]*Value, len(fields))}
	for _, f := range fields {
		m.Set(f.Key, f.Value)
	}
	return m
}

func (v *Value) Kind() Kind {
	if v == nil {
		return KindScalar
	}
	return v.kind
}

func (v *Value) IsScalar() bool { return v.Kind() == KindScalar }
func (v *Value) IsList() bool   { return v.Kind() == KindList }
func (v *Value) IsMap() bool    { return v.Kind() == KindMap }

// IsContainer reports whether v is a list or a mapping.
func (v *Value) IsContainer() bool {
	k := v.Kind()
	return k == KindList || k == KindMap
}

// IsNull reports whether v is a null scalar.
func (v *Value) IsNull() bool {
	return v == nil || (v.kind == KindScalar && v.scalar == nil)
}

// Len returns the number of list items or mapping entries; 0 for scalars.
func (v *Value) Len() int {
	switch v.Kind() {
	case KindList:
		return len(v.items)
	case KindMap:
		return len(v.keys)
	}
	return 0
}

// Items returns the list items. The slice is owned by v.
func (v *Value) Items() []*Value {
	if v.Kind() != KindList {
		return nil
	}
	return v.items
}

// Keys returns mapping keys in insertion order. The slice is owned by v.
func (v *Value) Keys() []string {
	if v.Kind() != KindMap {
		return nil
	}
	return v.keys
}

// Get returns the value stored under key in a mapping.
func (v *Value) Get(key string) (*Value, bool) {
	if v.Kind() != KindMap {
		return nil, false
	}
	f, ok := v.fields[key]
	return f, ok
}

// Index returns the i-th list item, or nil when out of range.
func (v *Value) Index(i int) *Value {
	if v.Kind() != KindList || i < 0 || i >= len(v.items) {
		return nil
	}
	return v.items[i]
}

// Set inserts or replaces key in a mapping. It panics on non-mappings.
func (v *Value) Set(key string, val *Value) {
	if v.kind != KindMap {
		panic("resource: Set on " + v.kind.String())
	}
	if val == nil {
		val = Null()
	}
	if v.fields == nil {
		v.fields = make(map[string]*Value)
	}
	if _, ok := v.fields[key]; !ok {
		v.keys = append(v.keys, key)
	}
	v.fields[key] = val
}

// Append adds an item to a list. It panics on non-lists.
func (v *Value) Append(val *Value) {
	if v.kind != KindList {
		panic("resource: Append on " + v.kind.String())
	}
	if val == nil {
		val = Null()
	}
	v.items = append(v.items, val)
}

// Interface returns the raw scalar (nil, string, bool, int64, uint64 or
// float64). It returns nil for containers.
func (v *Value) Interface() any {
	if v.Kind() != KindScalar || v == nil {
		return nil
	}
	return v.scalar
}

// Text is the textual form of a scalar as written to text-only formats:
// null is "", booleans are "true"/"false", numbers use the shortest
// representation.
func (v *Value) Text() string {
	if v.Kind() != KindScalar || v == nil {
		return ""
	}
	switch s := v.scalar.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case uint64:
		return strconv.FormatUint(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}

// Native converts the tree into plain Go values: map[string]any, []any and
// scalars. Key order is lost.
func (v *Value) Native() any {
	switch v.Kind() {
	case KindList:
		out := make([]any, len(v.items))
		for i, it := range v.items {
			out[i] = it.Native()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.keys))
		for _, k := range v.keys {
			out[k] = v.fields[k].Native()
		}
		return out
	default:
		return v.Interface()
	}
}

// Equal reports whether both trees have the same shape, the same key order
// and equal scalars.
func (v *Value) Equal(o *Value) bool {
	if v.Kind() != o.Kind() {
		return false
	}
	switch v.Kind() {
	case KindList:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.keys) != len(o.keys) {
			return false
		}
		for i, k := range v.keys {
			if o.keys[i] != k || !v.fields[k].Equal(o.fields[k]) {
				return false
			}
		}
		return true
	default:
		return v.Interface() == o.Interface()
	}
}

func (v *Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return string(b)
}

// FromNative builds a tree from plain Go values. Keys of Go maps are sorted
// since their iteration order is random.
func FromNative(x any) (*Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case *Value:
		if t == nil {
			return Null(), nil
		}
		return t, nil
	case string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return Scalar(t), nil
	case json.Number:
		return numberValue(t), nil
	case []any:
		l := List()
		for _, it := range t {
			item, err := FromNative(it)
			if err != nil {
				return nil, err
			}
			l.Append(item)
		}
		return l, nil
	case map[string]any:
		m := Map()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			item, err := FromNative(t[k])
			if err != nil {
				return nil, err
			}
			m.Set(k, item)
		}
		return m, nil
	}
	return fromReflect(reflect.ValueOf(x))
}

func fromReflect(rv reflect.Value) (*Value, error) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return FromNative(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		l := List()
		for i := 0; i < rv.Len(); i++ {
			item, err := FromNative(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			l.Append(item)
		}
		return l, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map key %s", ErrUnsupportedType, rv.Type().Key())
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		m := Map()
		for _, k := range keys {
			item, err := FromNative(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface())
			if err != nil {
				return nil, err
			}
			m.Set(k, item)
		}
		return m, nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Bool:
		return Scalar(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Scalar(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Scalar(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return Scalar(rv.Float()), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, rv.Type())
}

func normalizeScalar(v any) any {
	switch t := v.(type) {
	case nil, string, bool, int64, uint64, float64:
		return t
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return uint64(t)
	case uint8:
		return uint64(t)
	case uint16:
		return uint64(t)
	case uint32:
		return uint64(t)
	case float32:
		return float64(t)
	case json.Number:
		return numberValue(t).scalar
	default:
		return fmt.Sprint(t)
	}
}

// numberValue prefers int64 and falls back to float64.
func numberValue(n json.Number) *Value {
	if i, err := n.Int64(); err == nil {
		return &Value{kind: KindScalar, scalar: i}
	}
	if f, err := n.Float64(); err == nil {
		return &Value{kind: KindScalar, scalar: f}
	}
	return &Value{kind: KindScalar, scalar: n.String()}
}
