package chip

// FNUM register slots per channel. Channels 1-3 use 0xa4..0xa6 with the
// channel 3 special mode operators at 0xac..0xae; port 1 mirrors both
// ranges at +0x100. The low registers sit 4 below their high counterparts.
var fnumHighIndex = map[uint16]int{
	0x0a4: 0, 0x0a5: 1, 0x0a6: 2,
	0x0ac: 3, 0x0ad: 4, 0x0ae: 5,
	0x1a4: 6, 0x1a5: 7, 0x1a6: 8,
	0x1ac: 9, 0x1ad: 10, 0x1ae: 11,
}

var fnumLowIndex = map[uint16]int{
	0x0a0: 0, 0x0a1: 1, 0x0a2: 2,
	0x0a8: 3, 0x0a9: 4, 0x0aa: 5,
	0x1a0: 6, 0x1a1: 7, 0x1a2: 8,
	0x1a8: 9, 0x1a9: 10, 0x1aa: 11,
}

// OPNState tracks the subset of OPN FM state needed to rescale pitches for a
// different master clock. Writes to anything but the FNUM registers pass
// through untouched.
type OPNState struct {
	pitchFactor uint64
	pitches     [12]byte
}

// NewOPNState creates a rescaler from the source chip clock to the target
// chip clock.
func NewOPNState(referenceClock, targetClock uint32) *OPNState {
	return &OPNState{
		pitchFactor: (uint64(referenceClock) << 32) / uint64(targetClock),
	}
}

// Write consumes one register write and returns the writes to emit, in
// order. FNUM high writes are held back until the matching low write
// arrives; the pair is then emitted high-first with the frequency number
// rescaled and the block bits preserved.
func (o *OPNState) Write(address uint16, data byte) []WriteAction {
	if index, ok := fnumHighIndex[address]; ok {
		o.pitches[index] = data
		return nil
	}

	index, ok := fnumLowIndex[address]
	if !ok {
		return []WriteAction{{Address: address, Data: data}}
	}

	high := o.pitches[index]
	fnum := (uint32(high&0x07) << 8) | uint32(data)
	scaled := uint32((uint64(fnum) * o.pitchFactor) >> 32)
	block := high & 0xf8

	return []WriteAction{
		// The high byte must be written first for the chip to latch the
		// pair correctly.
		{Address: address + 4, Data: byte((scaled>>8)&0x07) | block},
		{Address: address, Data: byte(scaled)},
	}
}
