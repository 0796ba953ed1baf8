// Package preprocess rewrites VGM command streams for YM2610B playback:
// translating foreign chip writes, extracting and relocating sample data,
// and patching the header for the target player.
package preprocess

import (
	"github.com/dan-rodrigues/ym2610-pcb/pkg/chip"
	"github.com/dan-rodrigues/ym2610-pcb/pkg/pcm"
	"github.com/dan-rodrigues/ym2610-pcb/pkg/vgm"
)

// ProcessedVGM is the finalized output image and the sample blocks that
// accompany it. Blocks are uploaded out-of-band unless the stream was
// processed with the in-stream PCM rewrite enabled.
type ProcessedVGM struct {
	vgm.Image

	Blocks *pcm.Set
}

// writeActions appends register writes as 0x58/0x59 commands. Addresses at
// or above 0x100 select port 1.
func (p *ProcessedVGM) writeActions(actions []chip.WriteAction) {
	for _, action := range actions {
		cmd := byte(vgm.CmdYM2610Port0)
		if action.Address >= 0x100 {
			cmd = vgm.CmdYM2610Port1
		}
		p.Append(cmd, byte(action.Address), action.Data)
	}
}
