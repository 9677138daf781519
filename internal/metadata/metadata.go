// Package metadata holds the optional per-cell property bag. Values are
// restricted to a fixed set of scalar kinds so the bag can be encoded as a
// self-describing CBOR document and decoded back with kinds intact.
package metadata

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/fxamacker/cbor/v2"
)

var ErrUnsupportedKind = errors.New("unsupported metadata value kind")

type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindString
	KindBool
	KindChar
	KindTime
)

var kindNames = [...]string{
	"invalid", "int8", "int16", "int32", "int64",
	"uint8", "uint16", "uint32", "uint64",
	"float32", "float64", "string", "bool", "char", "time",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Char marks a rune that should be stored as a character rather than an int32.
type Char rune

// Value is one tagged scalar.
type Value struct {
	kind Kind
	i    int64
	u    uint64
	f    float64
	s    string
}

// ValueOf wraps v, which must be one of the supported Go scalar types.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case int8:
		return Value{kind: KindInt8, i: int64(x)}, nil
	case int16:
		return Value{kind: KindInt16, i: int64(x)}, nil
	case int32:
		return Value{kind: KindInt32, i: int64(x)}, nil
	case int64:
		return Value{kind: KindInt64, i: x}, nil
	case int:
		return Value{kind: KindInt64, i: int64(x)}, nil
	case uint8:
		return Value{kind: KindUint8, u: uint64(x)}, nil
	case uint16:
		return Value{kind: KindUint16, u: uint64(x)}, nil
	case uint32:
		return Value{kind: KindUint32, u: uint64(x)}, nil
	case uint64:
		return Value{kind: KindUint64, u: x}, nil
	case uint:
		return Value{kind: KindUint64, u: uint64(x)}, nil
	case float32:
		return Value{kind: KindFloat32, f: float64(x)}, nil
	case float64:
		return Value{kind: KindFloat64, f: x}, nil
	case string:
		return Value{kind: KindString, s: x}, nil
	case bool:
		var u uint64
		if x {
			u = 1
		}
		return Value{kind: KindBool, u: u}, nil
	case Char:
		return Value{kind: KindChar, i: int64(x)}, nil
	case time.Time:
		return Value{kind: KindTime, i: x.UnixNano()}, nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedKind, v)
	}
}

func (v Value) Kind() Kind { return v.kind }

// Interface returns the value as the Go type it was stored with. Plain int
// and uint come back as int64 and uint64.
func (v Value) Interface() any {
	switch v.kind {
	case KindInt8:
		return int8(v.i)
	case KindInt16:
		return int16(v.i)
	case KindInt32:
		return int32(v.i)
	case KindInt64:
		return v.i
	case KindUint8:
		return uint8(v.u)
	case KindUint16:
		return uint16(v.u)
	case KindUint32:
		return uint32(v.u)
	case KindUint64:
		return v.u
	case KindFloat32:
		return float32(v.f)
	case KindFloat64:
		return v.f
	case KindString:
		return v.s
	case KindBool:
		return v.u != 0
	case KindChar:
		return Char(v.i)
	case KindTime:
		return time.Unix(0, v.i).UTC()
	default:
		return nil
	}
}

// Bag maps property names to values. The zero Bag is empty and ready to use.
type Bag struct {
	values map[string]Value
}

func New() *Bag { return &Bag{} }

// Set stores v under key, replacing any previous value.
func (b *Bag) Set(key string, v any) error {
	val, err := ValueOf(v)
	if err != nil {
		return fmt.Errorf("metadata %q: %w", key, err)
	}
	if b.values == nil {
		b.values = make(map[string]Value)
	}
	b.values[key] = val
	return nil
}

func (b *Bag) Get(key string) (any, bool) {
	v, ok := b.Value(key)
	if !ok {
		return nil, false
	}
	return v.Interface(), true
}

func (b *Bag) Value(key string) (Value, bool) {
	if b == nil {
		return Value{}, false
	}
	v, ok := b.values[key]
	return v, ok
}

func (b *Bag) Delete(key string) {
	if b != nil {
		delete(b.values, key)
	}
}

func (b *Bag) Len() int {
	if b == nil {
		return 0
	}
	return len(b.values)
}

// Keys returns the property names in sorted order.
func (b *Bag) Keys() []string {
	if b == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(b.values))
}

// wireValue is the CBOR shape of a Value. Only the field matching K is set.
type wireValue struct {
	K Kind    `cbor:"1,keyasint"`
	I int64   `cbor:"2,keyasint,omitempty"`
	U uint64  `cbor:"3,keyasint,omitempty"`
	F float64 `cbor:"4,keyasint,omitempty"`
	S string  `cbor:"5,keyasint,omitempty"`
}

var encMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// MarshalBinary encodes the bag as a deterministic CBOR map. An empty bag
// encodes to no bytes.
func (b *Bag) MarshalBinary() ([]byte, error) {
	if b.Len() == 0 {
		return nil, nil
	}
	doc := make(map[string]wireValue, len(b.values))
	for k, v := range b.values {
		doc[k] = wireValue{K: v.kind, I: v.i, U: v.u, F: v.f, S: v.s}
	}
	out, err := encMode.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return out, nil
}

func (b *Bag) UnmarshalBinary(data []byte) error {
	b.values = nil
	if len(data) == 0 {
		return nil
	}
	var doc map[string]wireValue
	if err := cbor.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	b.values = make(map[string]Value, len(doc))
	for k, w := range doc {
		if w.K == KindInvalid || int(w.K) >= len(kindNames) {
			return fmt.Errorf("decode metadata %q: %w: %v", k, ErrUnsupportedKind, w.K)
		}
		b.values[k] = Value{kind: w.K, i: w.I, u: w.U, f: w.F, s: w.S}
	}
	return nil
}
