package block

import (
	"errors"
	"testing"

	"infinimap.ai/internal/metadata"
)

func TestDataPacksIDAndMeta(t *testing.T) {
	b := New(0x1234, 0xBEEF, FlagSolid|FlagOpaque)
	if b.Data() != 0xBEEF1234 {
		t.Fatalf("data: %#x", b.Data())
	}
	var c Block
	c.SetData(b.Data())
	if c.ID != 0x1234 || c.Meta != 0xBEEF {
		t.Fatalf("unpack: %+v", c)
	}
	if !b.Has(FlagSolid) || b.Has(FlagLiquid) {
		t.Fatalf("flags: %b", b.Flags)
	}
	if !Air.IsAir() || b.IsAir() {
		t.Fatalf("air")
	}
}

func TestCodecPlainRecord(t *testing.T) {
	var c Codec
	rec := make([]byte, c.RecordSize())
	meta, err := c.EncodeCell(rec, New(7, 2, FlagLight), nil)
	if err != nil || len(meta) != 0 {
		t.Fatalf("encode: %v meta=%d", err, len(meta))
	}
	want := []byte{7, 0, 2, 0, byte(FlagLight), 0, 0, 0, 0, 0, 0, 0}
	if string(rec) != string(want) {
		t.Fatalf("record: %v", rec)
	}
	got, err := c.DecodeCell(rec, meta)
	if err != nil || got != New(7, 2, FlagLight) {
		t.Fatalf("decode: %+v %v", got, err)
	}
}

func TestCodecCarriesMetadata(t *testing.T) {
	var c Codec
	bag := metadata.New()
	_ = bag.Set("owner", "ana")
	_ = bag.Set("charges", uint8(3))

	recs := make([][]byte, 3)
	var meta []byte
	var err error
	blocks := []Block{New(1, 0, 0).WithMetadata(bag), New(2, 0, 0), New(3, 0, 0).WithMetadata(bag)}
	for i, b := range blocks {
		recs[i] = make([]byte, RecordSize)
		if meta, err = c.EncodeCell(recs[i], b, meta); err != nil {
			t.Fatalf("encode %d: %v", i, err)
		}
	}
	for i, want := range blocks {
		got, err := c.DecodeCell(recs[i], meta)
		if err != nil {
			t.Fatalf("decode %d: %v", i, err)
		}
		if !SameKind(got, want) {
			t.Fatalf("decode %d: %+v", i, got)
		}
		if want.Metadata == nil {
			if got.Metadata != nil || got.TagOffset != 0 {
				t.Fatalf("block %d gained metadata", i)
			}
			continue
		}
		if v, _ := got.Metadata.Get("owner"); v != "ana" {
			t.Fatalf("owner: %v", v)
		}
		if v, _ := got.Metadata.Get("charges"); v != uint8(3) {
			t.Fatalf("charges: %#v", v)
		}
	}
}

func TestCodecRejectsBadTag(t *testing.T) {
	var c Codec
	rec := make([]byte, RecordSize)
	rec[8] = 5
	if _, err := c.DecodeCell(rec, []byte{1}); !errors.Is(err, ErrBadTag) {
		t.Fatalf("got %v", err)
	}
	if _, err := c.DecodeCell(rec, []byte{0, 0, 0, 0, 9}); !errors.Is(err, ErrBadTag) {
		t.Fatalf("truncated: %v", err)
	}
}
