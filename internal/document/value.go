package document

import (
	"math"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	// Undefined is the zero Kind and marks an absent value.
	Undefined Kind = iota
	Null
	Bool
	Number
	String
	Array
	Object
)

// String returns the name used in error messages.
func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "undefined"
	}
}

// Value is a JSON value. The zero Value is Undefined.
type Value struct {
	kind Kind
	b    bool
	f    float64
	s    string // string contents, or the literal of a number
	arr  []Value
	obj  *Map
}

// NullValue returns a JSON null.
func NullValue() Value { return Value{kind: Null} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: String, s: s} }

// NumberValue wraps a float64, formatting it the way JSON.stringify does.
func NumberValue(f float64) Value {
	return Value{kind: Number, f: f, s: formatNumber(f)}
}

// IntValue wraps an integer.
func IntValue(i int64) Value {
	return Value{kind: Number, f: float64(i), s: strconv.FormatInt(i, 10)}
}

// numberLiteral keeps the literal as read from JSON.
func numberLiteral(lit string) Value {
	f, _ := strconv.ParseFloat(lit, 64)
	return Value{kind: Number, f: f, s: lit}
}

// ArrayValue wraps a sequence of values.
func ArrayValue(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: Array, arr: items}
}

// ObjectValue wraps a mapping. A nil map becomes an empty one.
func ObjectValue(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: Object, obj: m}
}

func formatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "null"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Kind reports the variant.
func (v Value) Kind() Kind { return v.kind }

// IsMapping reports whether v is a (non-null) object.
func (v Value) IsMapping() bool { return v.kind == Object }

// IsDefined reports whether v holds anything, null included.
func (v Value) IsDefined() bool { return v.kind != Undefined }

// Map returns the mapping held by an Object value, or nil.
func (v Value) Map() *Map {
	if v.kind != Object {
		return nil
	}
	return v.obj
}

// Items returns the elements of an Array value, or nil.
func (v Value) Items() []Value {
	if v.kind != Array {
		return nil
	}
	return v.arr
}

// Str returns the contents of a String value.
func (v Value) Str() string {
	if v.kind != String {
		return ""
	}
	return v.s
}

// Float returns the numeric value of a Number.
func (v Value) Float() float64 {
	if v.kind != Number {
		return 0
	}
	return v.f
}

// Bool returns the boolean of a Bool value.
func (v Value) Bool() bool { return v.kind == Bool && v.b }

// Field looks up key when v is an object; anything else has no fields.
func (v Value) Field(key string) Value {
	if v.kind != Object {
		return Value{}
	}
	return v.obj.Get(key)
}

// Truthy follows JavaScript truthiness: undefined, null, false, 0 and ""
// are falsy, everything else (empty objects and arrays included) is truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case Null, Undefined:
		return false
	case Bool:
		return v.b
	case Number:
		return v.f != 0 && !math.IsNaN(v.f)
	case String:
		return v.s != ""
	default:
		return true
	}
}

// StrictEqual compares two values by kind and content. Arrays and objects
// compare element by element.
func (v Value) StrictEqual(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Undefined, Null:
		return true
	case Bool:
		return v.b == o.b
	case Number:
		return v.f == o.f
	case String:
		return v.s == o.s
	case Array:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].StrictEqual(o.arr[i]) {
				return false
			}
		}
		return true
	case Object:
		return v.obj.Equal(o.obj)
	}
	return false
}

// Clone returns a deep copy.
func (v Value) Clone() Value {
	switch v.kind {
	case Array:
		items := make([]Value, len(v.arr))
		for i, item := range v.arr {
			items[i] = item.Clone()
		}
		return Value{kind: Array, arr: items}
	case Object:
		return Value{kind: Object, obj: v.obj.Clone()}
	default:
		return v
	}
}

// Interface converts v into plain Go values (map[string]any, []any, float64,
// string, bool, nil). Key order is lost.
func (v Value) Interface() any {
	switch v.kind {
	case Bool:
		return v.b
	case Number:
		return v.f
	case String:
		return v.s
	case Array:
		out := make([]any, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.Interface()
		}
		return out
	case Object:
		out := make(map[string]any, v.obj.Len())
		v.obj.Range(func(key string, val Value) bool {
			out[key] = val.Interface()
			return true
		})
		return out
	default:
		return nil
	}
}

// String renders v as compact JSON. Strings are quoted.
func (v Value) String() string {
	b, err := Marshal(v, 0)
	if err != nil {
		return "<invalid>"
	}
	return string(b)
}
