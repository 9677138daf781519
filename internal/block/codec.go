package block

import (
	"encoding/binary"
	"errors"
	"fmt"

	"infinimap.ai/internal/metadata"
)

// RecordSize is the fixed on-disk size of one block: data, flags, tag offset.
const RecordSize = 12

var ErrBadTag = errors.New("block metadata tag out of range")

// Codec writes blocks as 12-byte little-endian records. A block carrying a
// non-empty bag has its bag appended to the chunk's metadata section as a
// uvarint length followed by the CBOR document; TagOffset stores the entry's
// position plus one so that zero always means "no metadata".
type Codec struct{}

func (Codec) RecordSize() int { return RecordSize }

func (Codec) EncodeCell(rec []byte, b Block, meta []byte) ([]byte, error) {
	tag := uint32(0)
	if b.Metadata.Len() > 0 {
		doc, err := b.Metadata.MarshalBinary()
		if err != nil {
			return meta, err
		}
		tag = uint32(len(meta)) + 1
		meta = binary.AppendUvarint(meta, uint64(len(doc)))
		meta = append(meta, doc...)
	}
	binary.LittleEndian.PutUint32(rec[0:4], b.Data())
	binary.LittleEndian.PutUint32(rec[4:8], b.Flags)
	binary.LittleEndian.PutUint32(rec[8:12], tag)
	return meta, nil
}

func (Codec) DecodeCell(rec []byte, meta []byte) (Block, error) {
	var b Block
	b.SetData(binary.LittleEndian.Uint32(rec[0:4]))
	b.Flags = binary.LittleEndian.Uint32(rec[4:8])
	b.TagOffset = binary.LittleEndian.Uint32(rec[8:12])
	if b.TagOffset == 0 {
		return b, nil
	}
	off := int(b.TagOffset - 1)
	if off >= len(meta) {
		return b, fmt.Errorf("%w: %d >= %d", ErrBadTag, off, len(meta))
	}
	n, w := binary.Uvarint(meta[off:])
	if w <= 0 || uint64(len(meta)-off-w) < n {
		return b, fmt.Errorf("%w: truncated entry at %d", ErrBadTag, off)
	}
	start := off + w
	bag := metadata.New()
	if err := bag.UnmarshalBinary(meta[start : start+int(n)]); err != nil {
		return b, err
	}
	b.Metadata = bag
	return b, nil
}
