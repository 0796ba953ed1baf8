package preprocess

import (
	"encoding/binary"
	"fmt"

	"github.com/dan-rodrigues/ym2610-pcb/pkg/chip"
	"github.com/dan-rodrigues/ym2610-pcb/pkg/pcm"
	"github.com/dan-rodrigues/ym2610-pcb/pkg/vgm"
)

// Inserter splices command sequences into a processed stream at sample
// timestamps, tracking a cursor over the existing commands and keeping the
// loop offset consistent. Timestamps passed to successive InsertCommands
// calls must not decrease.
type Inserter struct {
	out           *ProcessedVGM
	index         int
	baseTimestamp int
}

// NewInserter creates an inserter whose cursor starts at baseIndex.
func NewInserter(out *ProcessedVGM, baseIndex int) *Inserter {
	return &Inserter{out: out, index: baseIndex}
}

// InsertCommands splices commands at the first position whose accumulated
// delay reaches timestamp. A splice landing mid-delay is placed after the
// delay command; splitting would only be needed for DAC stream opcodes,
// which never coexist with this path.
func (ins *Inserter) InsertCommands(commands []byte, timestamp int) error {
	for ins.index < len(ins.out.Data) {
		if ins.baseTimestamp >= timestamp {
			break
		}

		cmd := ins.out.Data[ins.index]

		if length := nonDelayCommandLength(cmd); length > 0 {
			ins.index += length
			continue
		}

		if samples, length, ok := delayCommand(ins.out.Data, ins.index); ok {
			ins.baseTimestamp += samples
			ins.index += length
			continue
		}

		if cmd == vgm.CmdEndOfStream {
			break
		}

		return fmt.Errorf("%w: unexpected command %#02x at %#x during insertion",
			vgm.ErrState, cmd, ins.index)
	}

	ins.out.Insert(ins.index, commands)

	// Displace the loop offset if the inserted commands land ahead of it.
	if ins.out.LoopIndex() >= ins.index {
		ins.out.DisplaceLoopOffset(len(commands))
	}

	return nil
}

func nonDelayCommandLength(cmd byte) int {
	switch cmd {
	case vgm.CmdYM2612Port0, vgm.CmdYM2612Port1, vgm.CmdYM2610Port0, vgm.CmdYM2610Port1:
		return 3
	}
	return 0
}

func delayCommand(data []byte, index int) (samples, length int, ok bool) {
	cmd := data[index]

	switch {
	case cmd&0xf0 == vgm.CmdDelayShortBase:
		return int(cmd&0x0f) + 1, 1, true
	case cmd == vgm.CmdDelay60th:
		return vgm.Delay60thSamples, 1, true
	case cmd == vgm.CmdDelay50th:
		return vgm.Delay50thSamples, 1, true
	case cmd == vgm.CmdDelayWord:
		if index+3 > len(data) {
			return 0, 0, false
		}
		return int(binary.LittleEndian.Uint16(data[index+1 : index+3])), 3, true
	}

	return 0, 0, false
}

// DACCommandInserter splices ADPCM-B play sequences for DAC-derived sample
// blocks at their original timeline timestamps.
type DACCommandInserter struct {
	inserter     *Inserter
	sampleBlocks []*chip.SampleBlock
	encoded      []*pcm.Block
}

// NewDACCommandInserter pairs each captured sample block with its encoded
// counterpart. The two slices are index-aligned.
func NewDACCommandInserter(out *ProcessedVGM, sampleBlocks []*chip.SampleBlock, encoded []*pcm.Block) *DACCommandInserter {
	return &DACCommandInserter{
		inserter:     NewInserter(out, out.ReadHeaderOffset(vgm.DataOffsetIndex)),
		sampleBlocks: sampleBlocks,
		encoded:      encoded,
	}
}

// Insert splices one play sequence per block, in timestamp order.
func (d *DACCommandInserter) Insert() error {
	if len(d.sampleBlocks) != len(d.encoded) {
		return fmt.Errorf("%w: %d sample blocks but %d encoded blocks",
			vgm.ErrState, len(d.sampleBlocks), len(d.encoded))
	}

	previousTimestamp := 0
	for i, source := range d.sampleBlocks {
		if source.Timestamp < previousTimestamp {
			return fmt.Errorf("%w: DAC block timestamps must be ascending (%d after %d)",
				vgm.ErrState, source.Timestamp, previousTimestamp)
		}
		previousTimestamp = source.Timestamp

		if err := d.inserter.InsertCommands(adpcmbPlayCommands(d.encoded[i]), source.Timestamp); err != nil {
			return err
		}
	}

	return nil
}

// adpcmbPlayCommands builds the register write sequence that plays one
// ADPCM-B block: reset, start/end addresses in 256-byte units, delta-N for
// 44.1 kHz, volume, pan, start.
func adpcmbPlayCommands(block *pcm.Block) []byte {
	const pitch44p1kHz = 0xcb6b

	start := block.RemappedOffset >> 8
	end := start + uint32(len(block.Data))>>8 - 1

	return []byte{
		0x58, 0x10, 0x01,
		0x58, 0x10, 0x00,

		0x58, 0x12, byte(start),
		0x58, 0x13, byte(start >> 8),
		0x58, 0x14, byte(end),
		0x58, 0x15, byte(end >> 8),

		0x58, 0x19, pitch44p1kHz & 0xff,
		0x58, 0x1a, pitch44p1kHz >> 8,

		0x58, 0x1b, 0x60,

		0x58, 0x11, 0xc0,

		0x58, 0x10, 0x80,
	}
}
