// Package vgm provides loading and header access for VGM byte images.
//
// A VGM image is a fixed 0x100-byte header followed by a command stream.
// All multi-byte header fields are little-endian; the offset fields (EOF,
// GD3, loop, data start) are stored relative to their own position, with 0
// meaning "absent".
package vgm

import "encoding/binary"

// Header field positions.
const (
	HeaderSize = 0x100

	EOFOffsetIndex    = 0x04
	VersionIndex      = 0x08
	SN76489ClockIndex = 0x0c
	GD3OffsetIndex    = 0x14
	LoopOffsetIndex   = 0x1c
	YM2612ClockIndex  = 0x2c
	DataOffsetIndex   = 0x34
	YM2610ClockIndex  = 0x4c

	// Loop base/modifier bytes, unused by the target player.
	LoopBaseIndex     = 0x7e
	LoopModifierIndex = 0x7f

	// Start of the command stream in files predating the data-offset field.
	LegacyStartIndex = 0x40

	// MinimumHeaderSize is the smallest header any VGM version carries.
	MinimumHeaderSize = 0x40

	// MinimumStartIndex is the forced data start of the output image.
	MinimumStartIndex = 0x100

	// OutputVersion is written to every output; earlier versions predate
	// YM2610(B) support.
	OutputVersion = 0x00000170
)

// Image is a mutable VGM byte image under construction.
type Image struct {
	Data []byte
}

// Append adds bytes to the end of the image.
func (img *Image) Append(b ...byte) {
	img.Data = append(img.Data, b...)
}

// AppendWord adds a little-endian 32-bit word to the end of the image.
func (img *Image) AppendWord(word uint32) {
	img.Data = binary.LittleEndian.AppendUint32(img.Data, word)
}

// Insert splices b into the image ahead of index.
func (img *Image) Insert(index int, b []byte) {
	img.Data = append(img.Data, make([]byte, len(b))...)
	copy(img.Data[index+len(b):], img.Data[index:])
	copy(img.Data[index:], b)
}

// ReadHeaderWord reads a little-endian word from the header.
func (img *Image) ReadHeaderWord(headerIndex int) uint32 {
	return binary.LittleEndian.Uint32(img.Data[headerIndex : headerIndex+4])
}

// WriteHeaderWord writes a little-endian word into the header.
func (img *Image) WriteHeaderWord(headerIndex int, word uint32) {
	binary.LittleEndian.PutUint32(img.Data[headerIndex:headerIndex+4], word)
}

// ReadHeaderOffset resolves a relative offset field to an absolute file
// index. Returns 0 if the field is absent.
func (img *Image) ReadHeaderOffset(headerIndex int) int {
	fileOffset := int(img.ReadHeaderWord(headerIndex))
	if fileOffset == 0 {
		return 0
	}
	return fileOffset + headerIndex
}

// WriteHeaderOffset stores fileIndex as an offset relative to the field
// position and returns the stored relative value.
func (img *Image) WriteHeaderOffset(headerIndex, fileIndex int) int {
	fileOffset := fileIndex - headerIndex
	img.WriteHeaderWord(headerIndex, uint32(fileOffset))
	return fileOffset
}

// DisplaceHeaderOffset shifts the target of an offset field by delta.
func (img *Image) DisplaceHeaderOffset(headerIndex, delta int) {
	fileIndex := int(img.ReadHeaderWord(headerIndex)) + headerIndex + delta
	img.WriteHeaderOffset(headerIndex, fileIndex)
}

// LoopIndex returns the absolute loop position, or 0 if the image has no
// loop.
func (img *Image) LoopIndex() int {
	return img.ReadHeaderOffset(LoopOffsetIndex)
}

// WriteLoopOffset stores loopIndex in the loop offset field and returns the
// relative value written.
func (img *Image) WriteLoopOffset(loopIndex int) int {
	return img.WriteHeaderOffset(LoopOffsetIndex, loopIndex)
}

// DisplaceLoopOffset shifts the loop position by delta.
func (img *Image) DisplaceLoopOffset(delta int) {
	img.DisplaceHeaderOffset(LoopOffsetIndex, delta)
}
