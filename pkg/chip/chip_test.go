package chip

import (
	"encoding/binary"
	"testing"
)

func headerWithClocks(clocks map[int]uint32) []byte {
	header := make([]byte, 0x100)
	for index, clock := range clocks {
		binary.LittleEndian.PutUint32(header[index:], clock)
	}
	return header
}

func TestDetectYM2610B(t *testing.T) {
	header := headerWithClocks(map[int]uint32{0x4c: 8000000 | 1<<31})

	chips := Detect(header)

	// The YM2610 entry matches too since it carries no presence mask.
	if len(chips) != 2 {
		t.Fatalf("Expected 2 chips (YM2610 + YM2610B), got %d", len(chips))
	}
	for _, c := range chips {
		if c.Clock != 8000000 {
			t.Errorf("Expected masked clock 8000000, got %d", c.Clock)
		}
	}
	if chips[1].Kind != KindYM2610B {
		t.Errorf("Expected second chip YM2610B, got %s", chips[1].Kind)
	}
}

func TestDetectYM2610WithoutFlag(t *testing.T) {
	header := headerWithClocks(map[int]uint32{0x4c: 8000000})

	chips := Detect(header)

	if len(chips) != 1 || chips[0].Kind != KindYM2610 {
		t.Fatalf("Expected only YM2610, got %v", chips)
	}
}

func TestDetectYM2612AndPSG(t *testing.T) {
	header := headerWithClocks(map[int]uint32{
		0x2c: 7670453,
		0x0c: 3579545,
	})

	chips := Detect(header)

	if len(chips) != 2 {
		t.Fatalf("Expected 2 chips, got %d", len(chips))
	}
	if chips[0].Kind != KindYM2612 || chips[0].Clock != 7670453 {
		t.Errorf("Expected YM2612 @ 7670453, got %s @ %d", chips[0].Kind, chips[0].Clock)
	}
	if chips[1].Kind != KindSN76489 || chips[1].Clock != 3579545 {
		t.Errorf("Expected SN76489 @ 3579545, got %s @ %d", chips[1].Kind, chips[1].Clock)
	}
}

func TestDetectSkipsOverfastAndZeroClocks(t *testing.T) {
	header := headerWithClocks(map[int]uint32{
		0x2c: 9000000, // over the supported clock range
		0x0c: 0,       // absent
	})

	if chips := Detect(header); len(chips) != 0 {
		t.Errorf("Expected no chips, got %v", chips)
	}
}

func TestClockField(t *testing.T) {
	index, mask := ClockField(KindYM2610B)
	if index != 0x4c || mask != 1<<31 {
		t.Errorf("Expected (0x4c, 1<<31), got (%#x, %#x)", index, mask)
	}

	index, mask = ClockField(KindSN76489)
	if index != 0x0c || mask != 0 {
		t.Errorf("Expected (0x0c, 0), got (%#x, %#x)", index, mask)
	}
}
