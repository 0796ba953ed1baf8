package preprocess

import (
	"encoding/binary"
	"fmt"

	"github.com/dan-rodrigues/ym2610-pcb/pkg/adpcm"
	"github.com/dan-rodrigues/ym2610-pcb/pkg/chip"
	"github.com/dan-rodrigues/ym2610-pcb/pkg/logger"
	"github.com/dan-rodrigues/ym2610-pcb/pkg/metrics"
	"github.com/dan-rodrigues/ym2610-pcb/pkg/pcm"
	"github.com/dan-rodrigues/ym2610-pcb/pkg/vgm"
	"github.com/dan-rodrigues/ym2610-pcb/pkg/wav"
)

// DefaultTargetClock is the YM2610B clock of the playback appliance.
const DefaultTargetClock = 8000000

// adpcmBFixedOffset places ADPCM-B samples in their own half of the ROM
// when the source used separate A/B address spaces. Combined A+B content
// over 8 MB would wrap the bank byte; sources stay well under 4 MB each.
const adpcmBFixedOffset = 0x400000

// Options control preprocessing behavior.
type Options struct {
	// RewritePCM emits the relocated sample blocks as in-stream data
	// blocks at the start of the command stream instead of leaving them
	// for a side-channel upload.
	RewritePCM bool

	// ByteswapPCM swaps every 4-byte group of sample data to compensate
	// for the device's ROM bus wiring.
	ByteswapPCM bool

	// WriteWAV exports the captured DAC timeline (and its partitioned
	// blocks) as WAV files for debugging.
	WriteWAV bool

	// TargetClock overrides the YM2610B clock. Zero selects the default.
	TargetClock uint32
}

// Preprocessor rewrites source VGM streams for the YM2610B target.
type Preprocessor struct {
	log     *logger.Logger
	metrics *metrics.Collector
}

// New creates a preprocessor.
func New(log *logger.Logger) *Preprocessor {
	return &Preprocessor{log: log.WithComponent("preprocess")}
}

// WithMetrics attaches a collector for pipeline counters.
func (p *Preprocessor) WithMetrics(collector *metrics.Collector) *Preprocessor {
	p.metrics = collector
	return p
}

// Preprocess walks the source command stream and produces the rewritten
// image plus its extracted sample blocks.
func (p *Preprocessor) Preprocess(src []byte, opts Options) (*ProcessedVGM, error) {
	if opts.TargetClock == 0 {
		opts.TargetClock = DefaultTargetClock
	}

	if len(src) < vgm.MinimumHeaderSize {
		return nil, fmt.Errorf("%w: file shorter than minimum header (%d bytes)",
			vgm.ErrInvalidInput, len(src))
	}

	out := &ProcessedVGM{Blocks: pcm.NewSet(p.log)}

	// Copy the source header; fields are updated in place below and at
	// finalization. Short headers are zero-extended.
	header := make([]byte, vgm.HeaderSize)
	copy(header, src[:min(len(src), vgm.HeaderSize)])
	out.Data = header

	startIndex := out.ReadHeaderOffset(vgm.DataOffsetIndex)
	if startIndex == 0 {
		// Files predating the data-offset field start at 0x40.
		startIndex = vgm.LegacyStartIndex
	}
	if startIndex >= len(src) {
		return nil, fmt.Errorf("%w: data start %#x beyond EOF", vgm.ErrInvalidInput, startIndex)
	}
	p.log.Debug("VGM start index", logger.Hex("index", startIndex))

	// Clear any leftover junk between a short source header and the
	// full-size output header.
	if startIndex < vgm.HeaderSize {
		for i := startIndex; i < vgm.HeaderSize; i++ {
			out.Data[i] = 0
		}
	}
	// The target player ignores the loop base/modifier fields.
	out.Data[vgm.LoopBaseIndex] = 0
	out.Data[vgm.LoopModifierIndex] = 0

	loopIndex := out.LoopIndex()
	p.log.Debug("VGM loop index", logger.Hex("index", loopIndex))

	chips := chip.Detect(src)
	for _, c := range chips {
		p.log.Info("found chip", logger.String("chip", c.Kind.String()), logger.Uint32("clock", c.Clock))
	}

	var ym2610Chip, ym2612Chip, psgChip *chip.Chip
	for i := range chips {
		c := &chips[i]
		switch c.Kind {
		case chip.KindYM2610, chip.KindYM2610B:
			if ym2610Chip == nil {
				ym2610Chip = c
			}
		case chip.KindYM2612:
			ym2612Chip = c
		case chip.KindSN76489:
			psgChip = c
		}
	}

	if ym2610Chip == nil && ym2612Chip == nil {
		return nil, fmt.Errorf("%w: expected either YM2610 or YM2612 in header", vgm.ErrUnsupportedFeature)
	}

	// Some versions predate YM2610(B) support.
	out.WriteHeaderWord(vgm.VersionIndex, vgm.OutputVersion)

	// The output command stream always begins right after the full-size
	// header, regardless of where the source's began.
	out.WriteHeaderOffset(vgm.DataOffsetIndex, vgm.MinimumStartIndex)

	// Bank-selector write positions in the output, patched after the
	// sample ROM layout is final.
	var adpcmABankIndexes, adpcmBBankIndexes []int

	var opnState *chip.OPNState
	var dacState *chip.DACState
	if ym2612Chip != nil {
		opnState = chip.NewOPNState(ym2612Chip.Clock, opts.TargetClock)
		dacState = chip.NewDACState()
	}

	var psgState *chip.PSGState
	if psgChip != nil {
		psgState = chip.NewPSGState(psgChip.Clock, opts.TargetClock)
		out.writeActions(psgState.Preamble())
	}

	// loopIndexAdjusted records where the source loop point lands in the
	// output; -1 until seen.
	loopIndexAdjusted := -1

	copyCommand := func(index, length int) int {
		out.Append(src[index : index+length]...)
		return index + length
	}

	index := startIndex

scan:
	for index < len(src) {
		if index == loopIndex && loopIndexAdjusted < 0 {
			loopIndexAdjusted = len(out.Data)
		}

		cmd := src[index]
		if p.metrics != nil {
			p.metrics.CommandProcessed()
		}

		switch {
		case cmd == vgm.CmdYM2610Port0 || cmd == vgm.CmdYM2610Port1:
			if err := requireBytes(src, index, 3); err != nil {
				return nil, err
			}
			recordBankWrite(out, src, index, &adpcmABankIndexes, &adpcmBBankIndexes)
			index = copyCommand(index, 3)

		case cmd == vgm.CmdYM2612Port0 || cmd == vgm.CmdYM2612Port1:
			if err := requireBytes(src, index, 3); err != nil {
				return nil, err
			}
			if opnState == nil {
				return nil, fmt.Errorf("%w: YM2612 write without YM2612 clock in header", vgm.ErrState)
			}

			address := uint16(src[index+1])
			if cmd == vgm.CmdYM2612Port1 {
				address += 0x100
			}
			data := src[index+2]

			// Direct DAC writes retroactively replace the last logged
			// sample.
			if address == 0x02a {
				dacState.SetOutput(data)
			}

			out.writeActions(opnState.Write(address, data))
			index += 3

		case cmd == vgm.CmdPSGStereo:
			// Stereo writes sometimes appear but aren't used.
			if err := requireBytes(src, index, 2); err != nil {
				return nil, err
			}
			if p.metrics != nil {
				p.metrics.WritesDropped(1)
			}
			index += 2

		case cmd == vgm.CmdPSGWrite:
			if err := requireBytes(src, index, 2); err != nil {
				return nil, err
			}
			if psgState == nil {
				return nil, fmt.Errorf("%w: PSG write without SN76489 clock in header", vgm.ErrState)
			}
			out.writeActions(psgState.Write(src[index+1]))
			index += 2

		case cmd&0xf0 == vgm.CmdDelayShortBase:
			if dacState != nil {
				dacState.Delay(int(cmd&0x0f) + 1)
			}
			index = copyCommand(index, 1)

		case cmd == vgm.CmdDelayWord:
			if err := requireBytes(src, index, 3); err != nil {
				return nil, err
			}
			if dacState != nil {
				dacState.Delay(int(binary.LittleEndian.Uint16(src[index+1 : index+3])))
			}
			index = copyCommand(index, 3)

		case cmd == vgm.CmdDelay60th || cmd == vgm.CmdDelay50th:
			if dacState != nil {
				samples := vgm.Delay60thSamples
				if cmd == vgm.CmdDelay50th {
					samples = vgm.Delay50thSamples
				}
				dacState.Delay(samples)
			}
			index = copyCommand(index, 1)

		case cmd == vgm.CmdEndOfStream:
			copyCommand(index, 1)
			break scan

		case cmd&0xf0 == vgm.CmdDACSampleBase:
			if dacState == nil {
				return nil, fmt.Errorf("%w: DAC sample write without YM2612 clock in header", vgm.ErrState)
			}

			delay := int(cmd & 0x0f)
			if err := dacState.OutputDataBankSample(delay); err != nil {
				return nil, err
			}
			// The sample itself becomes part of an ADPCM-B block; only
			// the wait portion survives as a stream command.
			if delay > 0 {
				out.Append(vgm.CmdDelayShortBase | byte(delay-1))
			}
			index++

		case cmd == vgm.CmdDataBankSeek:
			if err := requireBytes(src, index, 5); err != nil {
				return nil, err
			}
			if dacState == nil {
				return nil, fmt.Errorf("%w: DAC bank seek without YM2612 clock in header", vgm.ErrState)
			}
			dacState.Seek(int(binary.LittleEndian.Uint32(src[index+1 : index+5])))
			index += 5

		case cmd == vgm.CmdDataBlock:
			block, consumed, err := pcm.ParseADPCMBlock(src, index, opts.ByteswapPCM)
			if err != nil {
				return nil, err
			}
			if block != nil {
				p.log.Info("found PCM block",
					logger.String("type", block.Type.String()),
					logger.Hex("size", len(block.Data)),
					logger.Hex("offset", int(block.Offset)),
					logger.Hex("total", int(block.TotalSize)))

				// Zero-size blocks appear in some rips; skip them.
				if len(block.Data) > 0 {
					out.Blocks.Add(block)
					if p.metrics != nil {
						p.metrics.PCMBlockExtracted(len(block.Data))
					}
				}
				index += consumed
				continue
			}

			if data, consumed, ok := pcm.ParseUncompressedBlock(src, index); ok {
				if dacState == nil {
					return nil, fmt.Errorf("%w: uncompressed data block without YM2612 clock in header", vgm.ErrState)
				}
				dacState.ExtendDataBank(data)
				p.log.Debug("extended DAC data bank", logger.Hex("size", dacState.BankSize()))
				index += consumed
				continue
			}

			return nil, fmt.Errorf("%w: unrecognized data block at %#x", vgm.ErrUnsupportedFeature, index)

		default:
			return nil, fmt.Errorf("%w: unrecognized command byte %#02x at %#x",
				vgm.ErrUnsupportedFeature, cmd, index)
		}
	}

	if loopIndexAdjusted >= 0 {
		relative := out.WriteLoopOffset(loopIndexAdjusted)
		p.log.Debug("adjusted loop offset", logger.Hex("offset", relative))
	}

	if p.metrics != nil && psgState != nil {
		p.metrics.WritesDropped(psgState.DroppedWrites())
	}

	if dacState != nil {
		if err := p.convertDACBlocks(out, dacState, opts); err != nil {
			return nil, err
		}
	} else {
		// DAC-derived blocks are already linear from offset 0; only
		// extracted ADPCM blocks need relocation and bank patching.
		p.relocatePCM(out, adpcmABankIndexes, adpcmBBankIndexes)
	}

	if opts.RewritePCM {
		inserted := p.writePCMBlocks(out, vgm.MinimumStartIndex)
		if out.LoopIndex() != 0 {
			out.DisplaceLoopOffset(inserted)
		}
	}

	// The GD3 region is carried over byte-for-byte; it spans from its
	// source offset to EOF.
	gd3Input := out.ReadHeaderOffset(vgm.GD3OffsetIndex)
	if gd3Input > 0 && gd3Input < len(src) {
		out.WriteHeaderOffset(vgm.GD3OffsetIndex, len(out.Data))
		out.Append(src[gd3Input:]...)
	} else {
		out.WriteHeaderWord(vgm.GD3OffsetIndex, 0)
	}

	out.WriteHeaderOffset(vgm.EOFOffsetIndex, len(out.Data))

	// The output is always a YM2610B VGM regardless of input.
	writeChipClock(out, chip.KindYM2610B, opts.TargetClock)
	writeChipClock(out, chip.KindSN76489, 0)
	writeChipClock(out, chip.KindYM2612, 0)

	return out, nil
}

// convertDACBlocks partitions the captured DAC timeline, encodes each block
// to ADPCM-B and splices the play sequences into the stream.
func (p *Preprocessor) convertDACBlocks(out *ProcessedVGM, dacState *chip.DACState, opts Options) error {
	sampleBlocks := dacState.PartitionBlocks()
	p.log.Info("partitioned DAC timeline", logger.Int("blocks", len(sampleBlocks)))

	if opts.WriteWAV {
		if err := wav.WriteUnsigned8("out.wav", dacState.Samples()); err != nil {
			return err
		}
		var combined []byte
		for _, block := range sampleBlocks {
			combined = append(combined, block.Data...)
		}
		if err := wav.WriteUnsigned8("out_blocks.wav", combined); err != nil {
			return err
		}
	}

	encoded := make([]*pcm.Block, 0, len(sampleBlocks))
	encodedOffset := uint32(0)

	for _, block := range sampleBlocks {
		pcm16 := make([]int16, len(block.Data))
		for i, sample := range block.Data {
			pcm16[i] = int16((int(sample) - 0x80) * 0x100)
		}

		samples := adpcm.Encode(pcm16)

		encodedBlock := &pcm.Block{
			TotalSize:      0x1000000,
			RemappedOffset: encodedOffset,
			Type:           pcm.TypeB,
			Data:           samples,
		}
		if opts.ByteswapPCM {
			encodedBlock.Data = pcm.ByteSwap(samples)
		}
		encodedOffset += uint32(len(samples))

		encoded = append(encoded, encodedBlock)
		out.Blocks.Add(encodedBlock)
		if p.metrics != nil {
			p.metrics.DACBlockEncoded()
		}
	}

	return NewDACCommandInserter(out, sampleBlocks, encoded).Insert()
}

// relocatePCM decides between the unified and non-unified sample ROM
// layouts, assigns final block offsets and patches every recorded bank
// byte.
func (p *Preprocessor) relocatePCM(out *ProcessedVGM, adpcmABankIndexes, adpcmBBankIndexes []int) {
	if out.Blocks.Overlapping() {
		p.log.Info("PCM blocks overlap, assuming non-unified PCM")

		// ADPCM-B moves into its own half of the ROM; ADPCM-A stays put.
		out.Blocks.OffsetTypeB(adpcmBFixedOffset)
		for _, bankIndex := range adpcmBBankIndexes {
			out.Data[bankIndex] += adpcmBFixedOffset >> 16
		}
		return
	}

	p.log.Info("PCM blocks don't overlap, assuming unified PCM")

	out.Blocks.Sort(true)
	out.Blocks.MergeContiguous()
	out.Blocks.Rebase()

	bankIndexes := make([]int, 0, len(adpcmABankIndexes)+len(adpcmBBankIndexes))
	bankIndexes = append(bankIndexes, adpcmABankIndexes...)
	bankIndexes = append(bankIndexes, adpcmBBankIndexes...)

	for _, bankIndex := range bankIndexes {
		bankByte := out.Data[bankIndex]
		remapped, ok := out.Blocks.RemapBankByte(bankByte)
		if !ok {
			p.log.Warn("couldn't match PCM bank byte", logger.Hex("bank", int(bankByte)))
			continue
		}
		out.Data[bankIndex] = remapped
	}
}

// writePCMBlocks splices every block back into the stream as data-block
// commands at startIndex and returns the inserted length.
func (p *Preprocessor) writePCMBlocks(out *ProcessedVGM, startIndex int) int {
	var commands []byte

	for _, block := range out.Blocks.Blocks {
		blockType := byte(vgm.BlockTypeADPCMA)
		if block.Type == pcm.TypeB {
			blockType = vgm.BlockTypeADPCMB
		}

		commands = append(commands, vgm.CmdDataBlock, vgm.CmdEndOfStream, blockType)
		commands = binary.LittleEndian.AppendUint32(commands, uint32(len(block.Data)+8))
		commands = binary.LittleEndian.AppendUint32(commands, block.TotalSize)
		commands = binary.LittleEndian.AppendUint32(commands, block.RemappedOffset)
		commands = append(commands, block.Data...)
	}

	out.Insert(startIndex, commands)
	return len(commands)
}

// recordBankWrite notes the output position of the data byte of any
// ADPCM bank-selector write for later patching.
func recordBankWrite(out *ProcessedVGM, src []byte, index int, adpcmABankIndexes, adpcmBBankIndexes *[]int) {
	address := uint16(src[index+1])
	if src[index] == vgm.CmdYM2610Port1 {
		address += 0x100
	}

	// The command is copied verbatim; its data byte lands 2 past the
	// current output end.
	outputIndex := len(out.Data) + 2

	switch {
	case address >= 0x118 && address <= 0x11d, address >= 0x128 && address <= 0x12d:
		// ADPCM-A high address
		*adpcmABankIndexes = append(*adpcmABankIndexes, outputIndex)
	case address == 0x013 || address == 0x015:
		// ADPCM-B high address
		*adpcmBBankIndexes = append(*adpcmBBankIndexes, outputIndex)
	}
}

func writeChipClock(out *ProcessedVGM, kind chip.Kind, clock uint32) {
	headerIndex, presenceMask := chip.ClockField(kind)
	if clock > 0 {
		clock |= presenceMask
	}
	out.WriteHeaderWord(headerIndex, clock)
}

func requireBytes(src []byte, index, length int) error {
	if index+length > len(src) {
		return fmt.Errorf("%w: truncated command at %#x", vgm.ErrInvalidInput, index)
	}
	return nil
}
