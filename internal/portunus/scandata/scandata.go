// Package scandata models the JSON payloads handed back to access point
// devices and the deterministic merge used to compose them.
//
// A payload is a tree of three node kinds: Object, Array and Scalar.
// Merging is structural:
//
//   - Object + Object merges key by key, recursively.
//   - Array + Array appends the source elements and removes duplicates
//     (by canonical JSON encoding), keeping first occurrence order.
//   - Any other combination is replaced by the source node.
//
// Merge never mutates its inputs.
package scandata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Node is one of Object, Array or Scalar.
type Node interface {
	isNode()
}

// Object is a JSON object.
type Object map[string]Node

// Array is a JSON array.
type Array []Node

// Scalar holds a string, json.Number, bool or nil.
type Scalar struct {
	Value any
}

func (Object) isNode() {}
func (Array) isNode()  {}
func (Scalar) isNode() {}

// Merge layers src on top of dst and returns the result.
func Merge(dst, src Node) Node {
	if src == nil {
		return clone(dst)
	}
	if dst == nil {
		return clone(src)
	}

	switch d := dst.(type) {
	case Object:
		if s, ok := src.(Object); ok {
			return MergeObjects(d, s)
		}
	case Array:
		if s, ok := src.(Array); ok {
			return mergeArrays(d, s)
		}
	}

	return clone(src)
}

// MergeObjects is Merge specialised to objects. A nil argument is treated
// as an empty object; the result is never nil.
func MergeObjects(dst, src Object) Object {
	out := make(Object, len(dst)+len(src))
	for k, v := range dst {
		out[k] = clone(v)
	}
	for k, v := range src {
		if existing, ok := out[k]; ok {
			out[k] = Merge(existing, v)
			continue
		}
		out[k] = clone(v)
	}
	return out
}

// MergeAll folds objs left to right, so later objects win on scalar
// conflicts.
func MergeAll(objs ...Object) Object {
	out := Object{}
	for _, o := range objs {
		out = MergeObjects(out, o)
	}
	return out
}

func mergeArrays(dst, src Array) Array {
	out := make(Array, 0, len(dst)+len(src))
	seen := make(map[string]struct{}, len(dst)+len(src))

	add := func(n Node) {
		key := canonical(n)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, clone(n))
	}

	for _, n := range dst {
		add(n)
	}
	for _, n := range src {
		add(n)
	}
	return out
}

// canonical returns a stable encoding used for array deduplication.
// encoding/json sorts map keys, so equal trees encode identically.
func canonical(n Node) string {
	b, err := json.Marshal(nodeOrNull(n))
	if err != nil {
		return fmt.Sprintf("%#v", n)
	}
	return string(b)
}

func nodeOrNull(n Node) Node {
	if n == nil {
		return Scalar{}
	}
	return n
}

// Equal reports whether a and b encode to the same JSON.
func Equal(a, b Node) bool {
	return canonical(a) == canonical(b)
}

// Clone returns a deep copy of o.
func (o Object) Clone() Object {
	if o == nil {
		return nil
	}
	return clone(o).(Object)
}

func clone(n Node) Node {
	switch v := n.(type) {
	case Object:
		out := make(Object, len(v))
		for k, c := range v {
			out[k] = clone(c)
		}
		return out
	case Array:
		out := make(Array, len(v))
		for i, c := range v {
			out[i] = clone(c)
		}
		return out
	default:
		return n
	}
}

// MarshalJSON encodes the scalar value.
func (s Scalar) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Value)
}

// MarshalJSON encodes a nil Object as {} rather than null.
func (o Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]Node(o))
}

// UnmarshalJSON decodes a JSON object. A JSON null yields an empty object.
func (o *Object) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Parse decodes a JSON document that must be an object (or null / empty).
func Parse(data []byte) (Object, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Object{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode scan data: %w", err)
	}

	obj, ok := FromAny(raw).(Object)
	if !ok {
		return nil, fmt.Errorf("scan data must be a JSON object")
	}
	return obj, nil
}

// FromAny converts decoded JSON/YAML values into a Node tree. Numbers are
// normalised to json.Number so that 1 and 1.0 from different decoders
// compare the same way they print.
func FromAny(v any) Node {
	switch t := v.(type) {
	case nil:
		return Scalar{}
	case Node:
		return clone(t)
	case map[string]any:
		out := make(Object, len(t))
		for k, c := range t {
			out[k] = FromAny(c)
		}
		return out
	case []any:
		out := make(Array, len(t))
		for i, c := range t {
			out[i] = FromAny(c)
		}
		return out
	case string, bool, json.Number:
		return Scalar{Value: t}
	case int:
		return Scalar{Value: json.Number(strconv.Itoa(t))}
	case int64:
		return Scalar{Value: json.Number(strconv.FormatInt(t, 10))}
	case int32:
		return Scalar{Value: json.Number(strconv.FormatInt(int64(t), 10))}
	case uint64:
		return Scalar{Value: json.Number(strconv.FormatUint(t, 10))}
	case float64:
		return Scalar{Value: json.Number(strconv.FormatFloat(t, 'f', -1, 64))}
	case float32:
		return Scalar{Value: json.Number(strconv.FormatFloat(float64(t), 'f', -1, 32))}
	}

	// Anything else goes through a JSON round trip.
	b, err := json.Marshal(v)
	if err != nil {
		return Scalar{}
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Scalar{}
	}
	return FromAny(raw)
}

// ToAny converts the object into plain Go values (map[string]any, []any,
// string, bool, int64, float64, nil), suitable for structpb.
func (o Object) ToAny() map[string]any {
	out := make(map[string]any, len(o))
	for k, v := range o {
		out[k] = toAny(v)
	}
	return out
}

func toAny(n Node) any {
	switch v := n.(type) {
	case Object:
		return v.ToAny()
	case Array:
		out := make([]any, len(v))
		for i, c := range v {
			out[i] = toAny(c)
		}
		return out
	case Scalar:
		if num, ok := v.Value.(json.Number); ok {
			if i, err := num.Int64(); err == nil {
				return i
			}
			if f, err := num.Float64(); err == nil {
				return f
			}
			return num.String()
		}
		return v.Value
	}
	return nil
}
