// Package pcm manages extracted ADPCM sample blocks and their placement in
// the target sample ROM.
package pcm

import (
	"encoding/binary"
	"fmt"

	"github.com/dan-rodrigues/ym2610-pcb/pkg/vgm"
)

// Type distinguishes the two Yamaha ADPCM formats.
type Type int

const (
	// TypeA is the fixed-rate 6-channel format.
	TypeA Type = iota
	// TypeB is the variable-rate Delta-T format.
	TypeB
)

// String returns "A" or "B".
func (t Type) String() string {
	if t == TypeA {
		return "A"
	}
	return "B"
}

// Block is one extracted sample blob. Offset is its position in the source
// sample ROM; RemappedOffset its position in the rebuilt ROM image.
type Block struct {
	Offset         uint32
	RemappedOffset uint32
	TotalSize      uint32
	Type           Type
	Data           []byte
}

// Overlaps reports whether the remapped ranges of two blocks intersect.
func (b *Block) Overlaps(other *Block) bool {
	ownStart := b.RemappedOffset
	ownEnd := ownStart + uint32(len(b.Data))
	otherStart := other.RemappedOffset
	otherEnd := otherStart + uint32(len(other.Data))

	return ownEnd > otherStart && ownStart < otherEnd
}

// Data block layout within a 0x67 command:
//
//	0x67 0x66 type size:u32 | payload
//
// where the ADPCM payload is total_rom_size:u32 offset:u32 data, all
// little-endian, and size counts the payload.
const (
	dataBlockHeaderSize  = 7
	adpcmPayloadOverhead = 8
	adpcmDataIndex       = 15
)

// ParseADPCMBlock decodes a 0x67 data block of type 0x82/0x83 starting at
// index, returning the block and the number of bytes consumed. Returns a
// nil block if the data block is of some other type. Zero-length blocks are
// returned with empty data; callers may discard them.
func ParseADPCMBlock(image []byte, index int, byteswap bool) (*Block, int, error) {
	if index+dataBlockHeaderSize > len(image) {
		return nil, 0, fmt.Errorf("%w: truncated data block at %#x", vgm.ErrInvalidInput, index)
	}

	blockType := image[index+2]
	if blockType != vgm.BlockTypeADPCMA && blockType != vgm.BlockTypeADPCMB {
		return nil, 0, nil
	}

	if index+adpcmDataIndex > len(image) {
		return nil, 0, fmt.Errorf("%w: truncated ADPCM block at %#x", vgm.ErrInvalidInput, index)
	}

	size := int(binary.LittleEndian.Uint32(image[index+3 : index+7]))
	if size < adpcmPayloadOverhead {
		return nil, 0, fmt.Errorf("%w: ADPCM block size %#x below payload overhead at %#x",
			vgm.ErrInvalidInput, size, index)
	}
	dataSize := size - adpcmPayloadOverhead

	totalSize := binary.LittleEndian.Uint32(image[index+7 : index+11])
	if totalSize == 0 {
		return nil, 0, fmt.Errorf("%w: ADPCM block with zero ROM size at %#x",
			vgm.ErrInvalidInput, index)
	}

	offset := binary.LittleEndian.Uint32(image[index+11 : index+15])

	if index+adpcmDataIndex+dataSize > len(image) {
		return nil, 0, fmt.Errorf("%w: ADPCM block data extends past EOF at %#x",
			vgm.ErrInvalidInput, index)
	}

	block := &Block{
		Offset:    offset,
		TotalSize: totalSize,
		Type:      TypeA,
		// The remapped offset usually (not always) changes later.
		RemappedOffset: offset,
	}
	if blockType == vgm.BlockTypeADPCMB {
		block.Type = TypeB
	}

	data := image[index+adpcmDataIndex : index+adpcmDataIndex+dataSize]
	if byteswap {
		block.Data = ByteSwap(data)
	} else {
		block.Data = append([]byte(nil), data...)
	}

	return block, adpcmDataIndex + dataSize, nil
}

// ParseUncompressedBlock decodes a 0x67 data block of type 0x00 starting at
// index. Returns ok=false for any other block type.
func ParseUncompressedBlock(image []byte, index int) (data []byte, consumed int, ok bool) {
	if index+dataBlockHeaderSize > len(image) {
		return nil, 0, false
	}

	if image[index+2] != vgm.BlockTypeUncompressed {
		return nil, 0, false
	}

	size := int(binary.LittleEndian.Uint32(image[index+3 : index+7]))
	if index+dataBlockHeaderSize+size > len(image) {
		return nil, 0, false
	}

	return image[index+dataBlockHeaderSize : index+dataBlockHeaderSize+size], dataBlockHeaderSize + size, true
}

// ByteSwap reorders every 4-byte group as 3-2-1-0, compensating for the
// sample ROM bus wiring of the device. Applying it twice restores the
// input. A trailing partial group is copied unchanged.
func ByteSwap(data []byte) []byte {
	swapped := make([]byte, len(data))

	index := 0
	for ; index+4 <= len(data); index += 4 {
		swapped[index+0] = data[index+3]
		swapped[index+1] = data[index+2]
		swapped[index+2] = data[index+1]
		swapped[index+3] = data[index+0]
	}
	copy(swapped[index:], data[index:])

	return swapped
}
