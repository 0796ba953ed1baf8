package wav

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

func TestWriteUnsigned8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	samples := []byte{0x80, 0x00, 0xff, 0x80}

	if err := WriteUnsigned8(path, samples); err != nil {
		t.Fatalf("WriteUnsigned8 failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open written file: %v", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		t.Fatalf("Failed to decode WAV: %v", err)
	}

	if decoder.SampleRate != 44100 {
		t.Errorf("Expected 44100 Hz, got %d", decoder.SampleRate)
	}
	if decoder.NumChans != 1 {
		t.Errorf("Expected mono, got %d channels", decoder.NumChans)
	}

	want := []int{0, -0x8000, 0x7f00, 0}
	if len(buf.Data) != len(want) {
		t.Fatalf("Expected %d samples, got %d", len(want), len(buf.Data))
	}
	for i, w := range want {
		if buf.Data[i] != w {
			t.Errorf("Sample %d: expected %d, got %d", i, w, buf.Data[i])
		}
	}
}
