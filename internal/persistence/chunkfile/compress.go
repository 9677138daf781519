package chunkfile

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

// Pack encodes cells and compresses the image in one step, for stores that
// keep chunks as blobs. It also returns the digest of the uncompressed image.
func Pack[T any](codec Codec[T], cells []T) (blob []byte, digest uint64, err error) {
	image, err := Encode(codec, cells)
	if err != nil {
		return nil, 0, err
	}
	return encoder.EncodeAll(image, nil), Digest(image), nil
}

// Unpack is the inverse of Pack.
func Unpack[T any](codec Codec[T], blob []byte) ([]T, error) {
	image, err := decoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return Decode(codec, image)
}
