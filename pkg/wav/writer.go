// Package wav exports captured DAC audio for debugging.
package wav

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const sampleRate = 44100

// WriteUnsigned8 writes 8-bit unsigned samples as a mono 16-bit 44.1 kHz
// WAV file.
func WriteUnsigned8(path string, samples []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create WAV file: %w", err)
	}

	encoder := wav.NewEncoder(f, sampleRate, 16, 1, 1)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, len(samples)),
	}
	for i, sample := range samples {
		buf.Data[i] = (int(sample) - 0x80) * 0x100
	}

	if err := encoder.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("failed to write WAV data: %w", err)
	}
	if err := encoder.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}

	return f.Close()
}
