package metadata

import (
	"errors"
	"testing"
	"time"
)

func TestSetRejectsUnsupportedKinds(t *testing.T) {
	b := New()
	for _, v := range []any{[]byte("x"), struct{}{}, map[string]int{}, complex(1, 2), nil} {
		if err := b.Set("k", v); !errors.Is(err, ErrUnsupportedKind) {
			t.Fatalf("%T: got %v", v, err)
		}
	}
	if b.Len() != 0 {
		t.Fatalf("rejected values must not be stored")
	}
}

func TestKindsSurviveEncoding(t *testing.T) {
	when := time.Date(2024, 3, 1, 12, 30, 0, 5, time.UTC)
	in := map[string]any{
		"i8":    int8(-8),
		"i16":   int16(-1600),
		"i32":   int32(-320000),
		"i64":   int64(-1 << 40),
		"u8":    uint8(200),
		"u16":   uint16(60000),
		"u32":   uint32(4000000000),
		"u64":   uint64(1 << 63),
		"f32":   float32(1.5),
		"f64":   3.25,
		"str":   "chest",
		"yes":   true,
		"no":    false,
		"glyph": Char('λ'),
		"at":    when,
		"zero":  int32(0),
	}
	b := New()
	for k, v := range in {
		if err := b.Set(k, v); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}
	raw, err := b.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out Bag
	if err := out.UnmarshalBinary(raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Len() != len(in) {
		t.Fatalf("len: got %d want %d", out.Len(), len(in))
	}
	for k, want := range in {
		got, ok := out.Get(k)
		if !ok {
			t.Fatalf("missing %s", k)
		}
		if wt, isTime := want.(time.Time); isTime {
			if !got.(time.Time).Equal(wt) {
				t.Fatalf("%s: got %v want %v", k, got, want)
			}
			continue
		}
		if got != want {
			t.Fatalf("%s: got %#v (%T) want %#v (%T)", k, got, got, want, want)
		}
	}
}

func TestDeterministicEncoding(t *testing.T) {
	a, b := New(), New()
	_ = a.Set("x", int16(1))
	_ = a.Set("y", "two")
	_ = b.Set("y", "two")
	_ = b.Set("x", int16(1))
	ra, _ := a.MarshalBinary()
	rb, _ := b.MarshalBinary()
	if string(ra) != string(rb) {
		t.Fatalf("encoding depends on insertion order")
	}
}

func TestEmptyBag(t *testing.T) {
	var b *Bag
	if b.Len() != 0 || b.Keys() != nil {
		t.Fatalf("nil bag should read as empty")
	}
	raw, err := New().MarshalBinary()
	if err != nil || len(raw) != 0 {
		t.Fatalf("empty bag: %v %d", err, len(raw))
	}
	var out Bag
	if err := out.UnmarshalBinary(nil); err != nil || out.Len() != 0 {
		t.Fatalf("decode empty: %v", err)
	}
}

func TestKeysSorted(t *testing.T) {
	b := New()
	_ = b.Set("b", true)
	_ = b.Set("a", true)
	_ = b.Set("c", true)
	b.Delete("c")
	keys := b.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("keys: %v", keys)
	}
}

func TestUnmarshalRejectsUnknownKind(t *testing.T) {
	raw, err := encMode.Marshal(map[string]wireValue{"bad": {K: Kind(99)}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out Bag
	if err := out.UnmarshalBinary(raw); !errors.Is(err, ErrUnsupportedKind) {
		t.Fatalf("got %v", err)
	}
}
