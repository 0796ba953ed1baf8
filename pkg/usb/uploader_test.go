package usb

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/dan-rodrigues/ym2610-pcb/pkg/logger"
	"github.com/dan-rodrigues/ym2610-pcb/pkg/pcm"
)

type transferRecord struct {
	kind    string // "control" or "bulk"
	request uint8
	value   uint16
	payload []byte
}

// fakeTransport records transfers and serves queued status reads.
type fakeTransport struct {
	mu        sync.Mutex
	transfers []transferRecord
	status    [][]byte
	statusErr error
}

func (f *fakeTransport) control(request uint8, value uint16, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transfers = append(f.transfers, transferRecord{
		kind:    "control",
		request: request,
		value:   value,
		payload: append([]byte(nil), payload...),
	})
	return nil
}

func (f *fakeTransport) bulkWrite(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transfers = append(f.transfers, transferRecord{
		kind:    "bulk",
		payload: append([]byte(nil), data...),
	})
	return nil
}

func (f *fakeTransport) readStatus(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.status) == 0 {
		if f.statusErr != nil {
			return 0, f.statusErr
		}
		return 0, context.DeadlineExceeded
	}
	next := f.status[0]
	f.status = f.status[1:]
	return copy(buf, next), nil
}

func (f *fakeTransport) recorded() []transferRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transferRecord(nil), f.transfers...)
}

func testLog() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Output: io.Discard})
}

func TestUploadVGMTransactionOrder(t *testing.T) {
	fake := &fakeTransport{}
	uploader := newUploader(fake, testLog())

	data := []byte{0x01, 0x02, 0x03}
	if err := uploader.UploadVGM(data, 0, true); err != nil {
		t.Fatalf("UploadVGM failed: %v", err)
	}

	transfers := fake.recorded()
	if len(transfers) != 3 {
		t.Fatalf("Expected 3 transfers, got %d", len(transfers))
	}

	if transfers[0].kind != "control" || transfers[0].request != RequestSetWriteMode {
		t.Errorf("Expected SET_WRITE_MODE first, got %+v", transfers[0])
	}
	if transfers[0].value != uint16(WriteModeVGM) {
		t.Errorf("Expected VGM write mode, got %d", transfers[0].value)
	}

	wantPayload := make([]byte, 8)
	binary.LittleEndian.PutUint32(wantPayload[4:], uint32(len(data)))
	if !bytes.Equal(transfers[0].payload, wantPayload) {
		t.Errorf("Expected payload %v, got %v", wantPayload, transfers[0].payload)
	}

	if transfers[1].kind != "bulk" || !bytes.Equal(transfers[1].payload, data) {
		t.Errorf("Expected bulk data write second, got %+v", transfers[1])
	}

	if transfers[2].kind != "control" || transfers[2].request != RequestStartPlayback {
		t.Errorf("Expected START_PLAYBACK last, got %+v", transfers[2])
	}
}

func TestUploadVGMWithoutPlayback(t *testing.T) {
	fake := &fakeTransport{}
	uploader := newUploader(fake, testLog())

	if err := uploader.UploadVGM([]byte{0xff}, 0x4000, false); err != nil {
		t.Fatalf("UploadVGM failed: %v", err)
	}

	transfers := fake.recorded()
	if len(transfers) != 2 {
		t.Fatalf("Expected 2 transfers, got %d", len(transfers))
	}
	if got := binary.LittleEndian.Uint32(transfers[0].payload[0:4]); got != 0x4000 {
		t.Errorf("Expected offset 0x4000, got %#x", got)
	}
}

func TestUploadPCMSelectsWriteMode(t *testing.T) {
	tests := []struct {
		name string
		typ  pcm.Type
		want WriteMode
	}{
		{"ADPCM-A", pcm.TypeA, WriteModePCMA},
		{"ADPCM-B", pcm.TypeB, WriteModePCMB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeTransport{}
			uploader := newUploader(fake, testLog())

			block := &pcm.Block{
				Type:           tt.typ,
				RemappedOffset: 0x10000,
				Data:           []byte{1, 2, 3, 4},
			}
			if err := uploader.UploadPCM(block); err != nil {
				t.Fatalf("UploadPCM failed: %v", err)
			}

			transfers := fake.recorded()
			if transfers[0].value != uint16(tt.want) {
				t.Errorf("Expected write mode %d, got %d", tt.want, transfers[0].value)
			}
			if got := binary.LittleEndian.Uint32(transfers[0].payload[0:4]); got != 0x10000 {
				t.Errorf("Expected offset 0x10000, got %#x", got)
			}
		})
	}
}

func TestUploadFailurePropagates(t *testing.T) {
	fake := &failingTransport{err: errors.New("pipe error")}
	uploader := newUploader(fake, testLog())

	if err := uploader.UploadVGM([]byte{1}, 0, false); err == nil {
		t.Error("Expected control failure to propagate")
	}
}

type failingTransport struct {
	err error
}

func (f *failingTransport) control(uint8, uint16, []byte) error { return f.err }
func (f *failingTransport) bulkWrite([]byte) error              { return f.err }
func (f *failingTransport) readStatus([]byte) (int, error)      { return 0, f.err }
