package pcm

import (
	"sort"

	"github.com/dan-rodrigues/ym2610-pcb/pkg/logger"
)

// Set owns the blocks extracted for one output image and packs them into
// the target sample ROM.
type Set struct {
	Blocks []*Block

	log *logger.Logger
}

// NewSet creates an empty block set.
func NewSet(log *logger.Logger) *Set {
	return &Set{log: log}
}

// Add appends a block.
func (s *Set) Add(block *Block) {
	s.Blocks = append(s.Blocks, block)
}

// Overlapping reports whether any two blocks' input ranges intersect, which
// implies the source used separate A/B sample address spaces.
func (s *Set) Overlapping() bool {
	// O(n^2), there are never enough blocks for it to matter.
	for i, x := range s.Blocks {
		for j, y := range s.Blocks {
			if i == j {
				continue
			}
			if x.Overlaps(y) {
				return true
			}
		}
	}
	return false
}

// Sort orders blocks by source offset, stable. In a non-unified layout the
// ADPCM-B blocks sort after all ADPCM-A blocks; with a unified ROM the two
// types interleave by address.
func (s *Set) Sort(assumeUnified bool) {
	var bOffset uint32 = 0x1000000
	if assumeUnified {
		bOffset = 0
	}

	key := func(b *Block) uint32 {
		if b.Type == TypeB {
			return b.Offset + bOffset
		}
		return b.Offset
	}

	sort.SliceStable(s.Blocks, func(i, j int) bool {
		return key(s.Blocks[i]) < key(s.Blocks[j])
	})
}

// MergeContiguous folds each block into its predecessor when their source
// ranges touch and the types match.
func (s *Set) MergeContiguous() {
	if len(s.Blocks) < 2 {
		return
	}

	merged := s.Blocks[:1]
	for _, block := range s.Blocks[1:] {
		prev := merged[len(merged)-1]
		if prev.Type == block.Type && prev.Offset+uint32(len(prev.Data)) == block.Offset {
			prev.Data = append(prev.Data, block.Data...)
			continue
		}
		merged = append(merged, block)
	}

	s.Blocks = merged
}

// Rebase assigns each block a remapped offset packed into the sample ROM.
// Two adjacent source blocks from different 64 KB banks stay in different
// 64 KB destination banks, and no block may straddle a 1 MB bank boundary:
// a straddling placement advances the base to the next 1 MB boundary and
// repacks from the last 64 KB split point so blocks sharing that bank move
// together.
func (s *Set) Rebase() {
	base := uint32(0)

	var previousEndBank uint32
	havePreviousEndBank := false
	previousSplitIndex := 0

	// Indexes already moved for a 1 MB crossing; checked so a block sized
	// exactly one bank can't loop forever.
	corrected := make(map[int]bool)
	bankCrossed := false

	index := 0
	for index < len(s.Blocks) {
		block := s.Blocks[index]

		blockBank := block.Offset >> 16
		blockEndBank := (block.Offset + uint32(len(block.Data))) >> 16
		remappedOffset := block.Offset & 0xffff

		if !bankCrossed && havePreviousEndBank && previousEndBank != blockBank {
			base += 0x10000
			previousSplitIndex = index
		}

		bankCrossed = false
		if !corrected[index] {
			start := base + remappedOffset
			end := start + uint32(len(block.Data))
			if start&0xf00000 != end&0xf00000 {
				base = (base + 0x100000) & 0xf00000
				bankCrossed = true
			}
		}

		if bankCrossed {
			// Go back and move all blocks that share the 64K bank.
			corrected[index] = true
			if s.log != nil {
				s.log.Debug("1MB bank crossing, repacking",
					logger.Hex("split_index", previousSplitIndex),
					logger.Hex("base", int(base)))
			}
			index = previousSplitIndex
			continue
		}

		block.RemappedOffset = remappedOffset + base

		if blockEndBank != blockBank {
			base += (blockEndBank - blockBank) * 0x10000
		}
		previousEndBank = blockEndBank
		havePreviousEndBank = true

		if s.log != nil {
			s.log.Debug("remapped PCM block",
				logger.Hex("remapped", int(block.RemappedOffset)),
				logger.Hex("original", int(block.Offset)),
				logger.Hex("size", len(block.Data)))
		}

		index++
	}
}

// RemapBankByte maps the high byte of a 24-bit source sample address into
// the rebuilt ROM. Returns false if no block covers the bank.
func (s *Set) RemapBankByte(bankByte byte) (byte, bool) {
	for _, block := range s.Blocks {
		offsetBank := block.Offset >> 16
		endBank := (block.Offset + uint32(len(block.Data))) >> 16

		bank := uint32(bankByte)
		if bank < offsetBank || bank > endBank {
			continue
		}

		remappedBank := block.RemappedOffset >> 16
		return byte(bank - offsetBank + remappedBank), true
	}

	return 0, false
}

// OffsetTypeB shifts every ADPCM-B block's remapped offset by delta. Used
// in the non-unified layout where B samples live in their own 4 MB half of
// the ROM.
func (s *Set) OffsetTypeB(delta uint32) {
	for _, block := range s.Blocks {
		if block.Type != TypeB {
			continue
		}
		previous := block.RemappedOffset
		block.RemappedOffset += delta
		if s.log != nil {
			s.log.Debug("offset ADPCM-B block",
				logger.Hex("from", int(previous)),
				logger.Hex("to", int(block.RemappedOffset)))
		}
	}
}
