// Package chip models the per-chip state needed to translate VGM command
// streams from YM2610/YM2610B, YM2612 and SN76489 sources onto a YM2610B
// target.
package chip

import "encoding/binary"

// Kind identifies a supported source chip family.
type Kind int

const (
	KindYM2610 Kind = iota
	KindYM2610B
	KindYM2612
	KindSN76489
)

// String returns the chip family name.
func (k Kind) String() string {
	switch k {
	case KindYM2610:
		return "YM2610"
	case KindYM2610B:
		return "YM2610B"
	case KindYM2612:
		return "YM2612"
	case KindSN76489:
		return "SN76489"
	default:
		return "unknown"
	}
}

// Chip is a chip declared by a VGM header.
type Chip struct {
	Kind        Kind
	HeaderIndex int
	Clock       uint32
}

// WriteAction is a single register write against the target chip. Port 1
// register addresses carry a 0x100 offset.
type WriteAction struct {
	Address uint16
	Data    byte
}

type chipAttributes struct {
	kind         Kind
	headerIndex  int
	presenceMask uint32
}

var attributes = []chipAttributes{
	{KindYM2610, 0x4c, 0},
	{KindYM2610B, 0x4c, 1 << 31},
	{KindYM2612, 0x2c, 0},
	{KindSN76489, 0x0c, 0},
}

// presenceBit flags the "B" variant in the YM2610 clock field.
const presenceBit = uint32(1) << 31

// maxChipClock rejects clock fields that no supported chip can reach;
// anything above is leftover data from an unrelated chip slot.
const maxChipClock = 8000000

// Detect scans the header clock fields and returns the chips this stream
// drives. Clocks are returned with the presence flag masked off.
func Detect(header []byte) []Chip {
	var chips []Chip

	for _, attr := range attributes {
		if attr.headerIndex+4 > len(header) {
			continue
		}

		clock := binary.LittleEndian.Uint32(header[attr.headerIndex : attr.headerIndex+4])
		if clock == 0 || clock&^presenceBit > maxChipClock {
			continue
		}
		if attr.presenceMask != 0 && clock&attr.presenceMask == 0 {
			continue
		}

		chips = append(chips, Chip{
			Kind:        attr.kind,
			HeaderIndex: attr.headerIndex,
			Clock:       clock &^ presenceBit,
		})
	}

	return chips
}

// ClockField returns the header clock field position and presence mask for a
// chip family.
func ClockField(kind Kind) (headerIndex int, presenceMask uint32) {
	for _, attr := range attributes {
		if attr.kind == kind {
			return attr.headerIndex, attr.presenceMask
		}
	}
	return 0, 0
}
