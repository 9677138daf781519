package chunkfile

import (
	"encoding/binary"
	"fmt"
)

// Codec turns one cell into a fixed-width record. Variable-size data goes into
// the shared metadata section: EncodeCell appends to meta and returns it, and
// DecodeCell reads from the complete section.
type Codec[T any] interface {
	RecordSize() int
	EncodeCell(rec []byte, v T, meta []byte) ([]byte, error)
	DecodeCell(rec []byte, meta []byte) (T, error)
}

// Fixed encodes any fixed-size value (numbers, bools, arrays and structs of
// them) little-endian.
type Fixed[T any] struct{}

func (Fixed[T]) RecordSize() int {
	var zero T
	return binary.Size(zero)
}

func (Fixed[T]) EncodeCell(rec []byte, v T, meta []byte) ([]byte, error) {
	if _, err := binary.Encode(rec, binary.LittleEndian, v); err != nil {
		return meta, fmt.Errorf("fixed encode %T: %w", v, err)
	}
	return meta, nil
}

func (Fixed[T]) DecodeCell(rec []byte, _ []byte) (T, error) {
	var v T
	if _, err := binary.Decode(rec, binary.LittleEndian, &v); err != nil {
		return v, fmt.Errorf("fixed decode %T: %w", v, err)
	}
	return v, nil
}
