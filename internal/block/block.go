// Package block is the stock cell type stored in maps: a compact id/meta pair
// with flag bits and an optional property bag.
package block

import (
	"infinimap.ai/internal/metadata"
)

// Flag bits carried by every block.
const (
	FlagSolid uint32 = 1 << iota
	FlagOpaque
	FlagLiquid
	FlagLight
)

// Air is the zero Block.
var Air = Block{}

// Block is comparable: two blocks are equal when their fixed fields match and
// they share the same Metadata bag (or both have none).
type Block struct {
	ID        uint16
	Meta      uint16
	Flags     uint32
	TagOffset uint32
	Metadata  *metadata.Bag
}

func New(id, meta uint16, flags uint32) Block {
	return Block{ID: id, Meta: meta, Flags: flags}
}

// Data packs ID into the low half and Meta into the high half.
func (b Block) Data() uint32 { return uint32(b.ID) | uint32(b.Meta)<<16 }

func (b *Block) SetData(d uint32) {
	b.ID = uint16(d)
	b.Meta = uint16(d >> 16)
}

func (b Block) Has(flag uint32) bool { return b.Flags&flag != 0 }

func (b Block) IsAir() bool { return b.ID == 0 }

// SameKind reports whether a and b share id and meta, ignoring flags and
// metadata. Useful with ContainsFunc.
func SameKind(a, b Block) bool { return a.ID == b.ID && a.Meta == b.Meta }

// WithMetadata returns a copy of b carrying bag.
func (b Block) WithMetadata(bag *metadata.Bag) Block {
	b.Metadata = bag
	return b
}
