// Package chunkfile is the on-disk layout for one chunk and a directory store
// built on it.
//
// A chunk file is a zstd stream wrapping:
//
//	header   16 bytes, little-endian
//	records  cells * codec.RecordSize() bytes, flat storage order
//	metadata header.MetaLen bytes of codec-owned side data
package chunkfile

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	Magic         uint16 = 0xC45A
	FormatVersion uint16 = 1
	EngineVersion uint16 = 1

	HeaderSize = 16
)

var (
	ErrBadMagic    = errors.New("chunkfile: bad magic")
	ErrVersion     = errors.New("chunkfile: unsupported format version")
	ErrTruncated   = errors.New("chunkfile: truncated")
	ErrRecordWidth = errors.New("chunkfile: codec record size must be positive")
)

type Header struct {
	Magic   uint16
	Format  uint16
	Engine  uint16
	Cells   uint32
	MetaLen uint32
}

func (h Header) put(b []byte) {
	binary.LittleEndian.PutUint16(b[0:2], h.Magic)
	binary.LittleEndian.PutUint16(b[2:4], h.Format)
	binary.LittleEndian.PutUint16(b[4:6], h.Engine)
	binary.LittleEndian.PutUint16(b[6:8], 0)
	binary.LittleEndian.PutUint32(b[8:12], h.Cells)
	binary.LittleEndian.PutUint32(b[12:16], h.MetaLen)
}

func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header is %d bytes", ErrTruncated, len(b))
	}
	h := Header{
		Magic:   binary.LittleEndian.Uint16(b[0:2]),
		Format:  binary.LittleEndian.Uint16(b[2:4]),
		Engine:  binary.LittleEndian.Uint16(b[4:6]),
		Cells:   binary.LittleEndian.Uint32(b[8:12]),
		MetaLen: binary.LittleEndian.Uint32(b[12:16]),
	}
	if h.Magic != Magic {
		return h, fmt.Errorf("%w: %#04x", ErrBadMagic, h.Magic)
	}
	if h.Format != FormatVersion {
		return h, fmt.Errorf("%w: %d", ErrVersion, h.Format)
	}
	return h, nil
}

// Encode lays cells out as an uncompressed chunk image.
func Encode[T any](codec Codec[T], cells []T) ([]byte, error) {
	width := codec.RecordSize()
	if width <= 0 {
		return nil, ErrRecordWidth
	}
	buf := make([]byte, HeaderSize+len(cells)*width)
	var meta []byte
	var err error
	for i, v := range cells {
		off := HeaderSize + i*width
		if meta, err = codec.EncodeCell(buf[off:off+width], v, meta); err != nil {
			return nil, fmt.Errorf("encode cell %d: %w", i, err)
		}
	}
	Header{
		Magic:   Magic,
		Format:  FormatVersion,
		Engine:  EngineVersion,
		Cells:   uint32(len(cells)),
		MetaLen: uint32(len(meta)),
	}.put(buf[:HeaderSize])
	return append(buf, meta...), nil
}

// Decode is the inverse of Encode.
func Decode[T any](codec Codec[T], image []byte) ([]T, error) {
	h, err := ParseHeader(image)
	if err != nil {
		return nil, err
	}
	width := codec.RecordSize()
	if width <= 0 {
		return nil, ErrRecordWidth
	}
	body := uint64(h.Cells) * uint64(width)
	if uint64(len(image)-HeaderSize) != body+uint64(h.MetaLen) {
		return nil, fmt.Errorf("%w: %d cells of %d bytes and %d metadata bytes in %d",
			ErrTruncated, h.Cells, width, h.MetaLen, len(image)-HeaderSize)
	}
	meta := image[HeaderSize+int(body):]
	cells := make([]T, h.Cells)
	for i := range cells {
		off := HeaderSize + i*width
		if cells[i], err = codec.DecodeCell(image[off:off+width], meta); err != nil {
			return nil, fmt.Errorf("decode cell %d: %w", i, err)
		}
	}
	return cells, nil
}
