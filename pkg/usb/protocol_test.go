package usb

import (
	"encoding/binary"
	"errors"
	"testing"
)

func statusBytes(header, target, vgmOffset, length uint32) []byte {
	data := make([]byte, StatusMessageLength)
	binary.LittleEndian.PutUint32(data[0:4], header)
	binary.LittleEndian.PutUint32(data[4:8], target)
	binary.LittleEndian.PutUint32(data[8:12], vgmOffset)
	binary.LittleEndian.PutUint32(data[12:16], length)
	return data
}

func TestStatusMessageParse(t *testing.T) {
	var msg StatusMessage
	err := msg.Parse(statusBytes(0x00012301, 0x4000, 0x1200, 0x800))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if !msg.IsBufferingRequest() {
		t.Error("Expected buffering request")
	}
	if got := msg.SequenceCounter(); got != 0x123 {
		t.Errorf("Expected sequence counter 0x123, got %#x", got)
	}
	if msg.TargetOffset != 0x4000 || msg.VGMOffset != 0x1200 || msg.ChunkLength != 0x800 {
		t.Errorf("Unexpected fields: %+v", msg)
	}
}

func TestStatusMessageParseWrongLength(t *testing.T) {
	var msg StatusMessage
	err := msg.Parse(make([]byte, 8))
	if !errors.Is(err, ErrDevice) {
		t.Errorf("Expected ErrDevice for short message, got %v", err)
	}
}

func TestStatusMessageNonBuffering(t *testing.T) {
	var msg StatusMessage
	if err := msg.Parse(statusBytes(0x02, 0, 0, 0)); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if msg.IsBufferingRequest() {
		t.Error("Expected header 0x02 to not be a buffering request")
	}
}
