package chip

import (
	"fmt"

	"github.com/dan-rodrigues/ym2610-pcb/pkg/vgm"
)

const (
	// silenceRun is the repeat count that splits the timeline into blocks.
	silenceRun = 512

	// blockAlignment pads each block to the ADPCM-B address granularity.
	blockAlignment = 0x200

	// padByte is the unsigned-PCM zero level.
	padByte = 0x80
)

// DACState accumulates the YM2612 DAC sample timeline for later conversion
// to ADPCM-B. The timeline is a dense byte array indexed by sample count at
// 44.1 kHz: delays extend the last written sample, and data-bank reads
// append new samples at the read cursor.
type DACState struct {
	dataBank []byte
	samples  []byte
	index    int
}

// NewDACState creates an empty DAC capture.
func NewDACState() *DACState {
	return &DACState{}
}

// ExtendDataBank appends source sample data to the bank.
func (d *DACState) ExtendDataBank(data []byte) {
	d.dataBank = append(d.dataBank, data...)
}

// BankSize returns the accumulated data bank length.
func (d *DACState) BankSize() int {
	return len(d.dataBank)
}

// Seek positions the bank read cursor.
func (d *DACState) Seek(index int) {
	d.index = index
}

// SetOutput retroactively rewrites the most recent timeline sample, for
// direct writes to the DAC data register.
func (d *DACState) SetOutput(data byte) {
	if len(d.samples) == 0 {
		return
	}
	d.samples[len(d.samples)-1] = data
}

// Delay extends the last written sample by count. Before any sample has
// been written the timeline is extended with zeros.
func (d *DACState) Delay(count int) {
	var sample byte
	if len(d.samples) > 0 {
		sample = d.samples[len(d.samples)-1]
	}
	d.appendRun(sample, count)
}

// OutputDataBankSample reads one byte from the bank at the cursor,
// advancing it, and extends the timeline with that sample for the given
// delay count.
func (d *DACState) OutputDataBankSample(delay int) error {
	if d.index >= len(d.dataBank) {
		return fmt.Errorf("%w: DAC bank read at %#x beyond bank size %#x",
			vgm.ErrState, d.index, len(d.dataBank))
	}

	sample := d.dataBank[d.index]
	d.index++
	d.appendRun(sample, delay)
	return nil
}

// Samples returns the captured timeline.
func (d *DACState) Samples() []byte {
	return d.samples
}

func (d *DACState) appendRun(sample byte, count int) {
	for i := 0; i < count; i++ {
		d.samples = append(d.samples, sample)
	}
}

// SampleBlock is a run of audible DAC samples. Timestamp is the timeline
// index where audible content resumes.
type SampleBlock struct {
	Timestamp int
	Data      []byte
}

// PartitionBlocks splits the timeline into non-silent blocks. A block spans
// from where the previous silence ended (or 0) to where the next silence
// begins, padded to the block alignment with the unsigned zero level. Blocks
// are returned in timestamp order.
func (d *DACState) PartitionBlocks() []*SampleBlock {
	var blocks []*SampleBlock
	current := &SampleBlock{Timestamp: 0}

	index := 0
	for {
		silenceStart, silenceEnd, found := d.scanSilence(index)
		if !found {
			break
		}
		index = silenceEnd

		if data := d.samples[current.Timestamp:silenceStart]; len(data) > 0 {
			current.Data = padToAlignment(data)
			blocks = append(blocks, current)
		}

		// The next block starts where this silence ends.
		current = &SampleBlock{Timestamp: silenceEnd}
	}

	if data := d.samples[current.Timestamp:]; len(data) > 0 {
		current.Data = padToAlignment(data)
		blocks = append(blocks, current)
	}

	return blocks
}

// scanSilence returns the first range at or after index where the same byte
// repeats for at least silenceRun consecutive samples.
func (d *DACState) scanSilence(index int) (start, end int, found bool) {
	consecutive := 0
	var prev byte
	startIndex := index

	for index < len(d.samples) {
		sample := d.samples[index]

		if sample == prev {
			consecutive++
		} else {
			if consecutive >= silenceRun {
				return startIndex, index, true
			}
			consecutive = 0
			startIndex = index
		}

		prev = sample
		index++
	}

	if consecutive >= silenceRun {
		return startIndex, index, true
	}
	return 0, 0, false
}

func padToAlignment(data []byte) []byte {
	padded := make([]byte, len(data))
	copy(padded, data)

	if remainder := len(padded) % blockAlignment; remainder > 0 {
		for i := remainder; i < blockAlignment; i++ {
			padded = append(padded, padByte)
		}
	}

	return padded
}
