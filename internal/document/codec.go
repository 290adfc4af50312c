package document

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"slices"
	"strconv"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var (
	decodeAPI  = jsoniter.ConfigDefault
	compactAPI = jsoniter.Config{EscapeHTML: false}.Froze()

	indentMu   sync.Mutex
	indentAPIs = map[int]jsoniter.API{}
)

// ErrNotObject is returned by ParseObject for valid JSON that is not an object.
var ErrNotObject = errors.New("document: JSON value is not an object")

// Parse decodes a single JSON value, keeping the key order of every object.
func Parse(data []byte) (Value, error) {
	iter := decodeAPI.BorrowIterator(data)
	defer decodeAPI.ReturnIterator(iter)

	v := readValue(iter)
	if iter.Error != nil && iter.Error != io.EOF {
		return Value{}, fmt.Errorf("document: invalid JSON: %w", iter.Error)
	}
	if !v.IsDefined() {
		return Value{}, errors.New("document: invalid JSON: no value")
	}
	// A top-level number may already have hit EOF; otherwise only whitespace
	// may follow the value.
	if iter.Error == nil {
		iter.WhatIsNext()
		if iter.Error != io.EOF {
			return Value{}, errors.New("document: invalid JSON: unexpected data after top-level value")
		}
	}
	return v, nil
}

// ParseObject decodes a JSON object.
func ParseObject(data []byte) (*Map, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if !v.IsMapping() {
		return nil, fmt.Errorf("%w (got %s)", ErrNotObject, v.Kind())
	}
	return v.Map(), nil
}

// MustParseObject is ParseObject for literals known to be valid. It panics
// on error.
func MustParseObject(s string) *Map {
	m, err := ParseObject([]byte(s))
	if err != nil {
		panic(err)
	}
	return m
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Value {
	v, err := Parse([]byte(s))
	if err != nil {
		panic(err)
	}
	return v
}

func readValue(iter *jsoniter.Iterator) Value {
	switch iter.WhatIsNext() {
	case jsoniter.ObjectValue:
		m := NewMap()
		iter.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
			v := readValue(it)
			if it.Error != nil {
				return false
			}
			m.Set(field, v)
			return true
		})
		if iter.Error == io.EOF {
			iter.Error = io.ErrUnexpectedEOF
		}
		return ObjectValue(m)
	case jsoniter.ArrayValue:
		items := []Value{}
		iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			v := readValue(it)
			if it.Error != nil {
				return false
			}
			items = append(items, v)
			return true
		})
		if iter.Error == io.EOF {
			iter.Error = io.ErrUnexpectedEOF
		}
		return ArrayValue(items...)
	case jsoniter.StringValue:
		return StringValue(iter.ReadString())
	case jsoniter.NumberValue:
		lit := string(iter.ReadNumber())
		if _, err := strconv.ParseFloat(lit, 64); err != nil && !errors.Is(err, strconv.ErrRange) {
			iter.Error = fmt.Errorf("invalid number literal %q", lit)
			return Value{}
		}
		return numberLiteral(lit)
	case jsoniter.BoolValue:
		return BoolValue(iter.ReadBool())
	case jsoniter.NilValue:
		iter.ReadNil()
		return NullValue()
	default:
		if iter.Error == nil {
			iter.ReportError("readValue", "expected a JSON value")
		}
		if iter.Error == io.EOF {
			iter.Error = io.ErrUnexpectedEOF
		}
		return Value{}
	}
}

// Marshal encodes v. A positive indent pretty-prints with that many spaces
// per level, the way JSON.stringify(v, null, indent) does.
func Marshal(v Value, indent int) ([]byte, error) {
	api := apiFor(indent)
	stream := api.BorrowStream(nil)
	defer api.ReturnStream(stream)

	writeValue(stream, v)
	if stream.Error != nil {
		return nil, fmt.Errorf("document: encode: %w", stream.Error)
	}
	return slices.Clone(stream.Buffer()), nil
}

// MarshalMaps encodes a collection as a JSON array.
func MarshalMaps(docs []*Map, indent int) ([]byte, error) {
	items := make([]Value, len(docs))
	for i, d := range docs {
		items[i] = ObjectValue(d)
	}
	return Marshal(ArrayValue(items...), indent)
}

// ParseMaps decodes a JSON array whose elements are all objects.
func ParseMaps(data []byte) ([]*Map, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if v.Kind() != Array {
		return nil, fmt.Errorf("document: expected an array of objects, got %s", v.Kind())
	}
	docs := make([]*Map, 0, len(v.arr))
	for i, item := range v.arr {
		if !item.IsMapping() {
			return nil, fmt.Errorf("document: element %d is %s, not an object", i, item.Kind())
		}
		docs = append(docs, item.obj)
	}
	return docs, nil
}

func apiFor(indent int) jsoniter.API {
	if indent <= 0 {
		return compactAPI
	}
	indentMu.Lock()
	defer indentMu.Unlock()
	api, ok := indentAPIs[indent]
	if !ok {
		api = jsoniter.Config{EscapeHTML: false, IndentionStep: indent}.Froze()
		indentAPIs[indent] = api
	}
	return api
}

func writeValue(stream *jsoniter.Stream, v Value) {
	switch v.kind {
	case Null, Undefined:
		stream.WriteNil()
	case Bool:
		stream.WriteBool(v.b)
	case Number:
		stream.WriteRaw(v.s)
	case String:
		stream.WriteString(v.s)
	case Array:
		if len(v.arr) == 0 {
			stream.WriteEmptyArray()
			return
		}
		stream.WriteArrayStart()
		for i, item := range v.arr {
			if i > 0 {
				stream.WriteMore()
			}
			writeValue(stream, item)
		}
		stream.WriteArrayEnd()
	case Object:
		if v.obj.Len() == 0 {
			stream.WriteEmptyObject()
			return
		}
		stream.WriteObjectStart()
		first := true
		v.obj.Range(func(key string, val Value) bool {
			if !first {
				stream.WriteMore()
			}
			first = false
			stream.WriteObjectField(key)
			writeValue(stream, val)
			return true
		})
		stream.WriteObjectEnd()
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return Marshal(v, 0)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (m *Map) MarshalJSON() ([]byte, error) {
	return Marshal(ObjectValue(m), 0)
}

// UnmarshalJSON implements json.Unmarshaler. JSON null leaves m empty.
func (m *Map) UnmarshalJSON(data []byte) error {
	v, err := Parse(data)
	if err != nil {
		return err
	}
	*m = Map{values: make(map[string]Value)}
	switch v.Kind() {
	case Null:
		return nil
	case Object:
		*m = *v.obj
		return nil
	default:
		return fmt.Errorf("%w (got %s)", ErrNotObject, v.Kind())
	}
}

// From converts plain Go values into a Value. Go maps have no order, so
// their keys are sorted.
func From(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return NullValue(), nil
	case Value:
		return t, nil
	case *Map:
		return ObjectValue(t), nil
	case bool:
		return BoolValue(t), nil
	case string:
		return StringValue(t), nil
	case int:
		return IntValue(int64(t)), nil
	case int8:
		return IntValue(int64(t)), nil
	case int16:
		return IntValue(int64(t)), nil
	case int32:
		return IntValue(int64(t)), nil
	case int64:
		return IntValue(t), nil
	case uint:
		return IntValue(int64(t)), nil
	case uint8:
		return IntValue(int64(t)), nil
	case uint16:
		return IntValue(int64(t)), nil
	case uint32:
		return IntValue(int64(t)), nil
	case uint64:
		return NumberValue(float64(t)), nil
	case float32:
		return NumberValue(float64(t)), nil
	case float64:
		return NumberValue(t), nil
	case jsoniter.Number:
		return numberLiteral(string(t)), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := From(item)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			items[i] = v
		}
		return ArrayValue(items...), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		m := NewMap()
		for _, k := range keys {
			v, err := From(t[k])
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			m.Set(k, v)
		}
		return ObjectValue(m), nil
	default:
		return Value{}, fmt.Errorf("document: unsupported type %s", reflect.TypeOf(x))
	}
}

// MustFrom is From for values known to be convertible.
func MustFrom(x any) Value {
	v, err := From(x)
	if err != nil {
		panic(err)
	}
	return v
}
