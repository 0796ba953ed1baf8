package usb

import (
	"encoding/binary"
	"sync"

	"github.com/dan-rodrigues/ym2610-pcb/pkg/logger"
	"github.com/dan-rodrigues/ym2610-pcb/pkg/pcm"
)

// Uploader serializes upload transactions against the device. One
// transaction is a SET_WRITE_MODE control transfer, its bulk payload and
// optionally the START_PLAYBACK request; the status poller must never
// interleave an upload between a control transfer and its bulk write, so
// every transaction runs under one mutex.
type Uploader struct {
	mu sync.Mutex
	t  transport

	log *logger.Logger
}

// NewUploader creates an uploader for an open device.
func NewUploader(device *Device, log *logger.Logger) *Uploader {
	return newUploader(device, log)
}

func newUploader(t transport, log *logger.Logger) *Uploader {
	return &Uploader{t: t, log: log.WithComponent("usb.uploader")}
}

// UploadPCM uploads one sample block to its remapped ROM offset.
func (u *Uploader) UploadPCM(block *pcm.Block) error {
	mode := WriteModePCMA
	if block.Type == pcm.TypeB {
		mode = WriteModePCMB
	}

	u.log.Info("uploading PCM block",
		logger.String("type", block.Type.String()),
		logger.Hex("offset", int(block.RemappedOffset)),
		logger.Hex("size", len(block.Data)))

	return u.upload(mode, block.RemappedOffset, block.Data, false)
}

// UploadVGM uploads VGM data to the device buffer at offset, optionally
// (re)starting playback once the write completes.
func (u *Uploader) UploadVGM(data []byte, offset uint32, startPlayback bool) error {
	return u.upload(WriteModeVGM, offset, data, startPlayback)
}

func (u *Uploader) upload(mode WriteMode, offset uint32, data []byte, startPlayback bool) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	payload := make([]byte, 8)
	binary.LittleEndian.PutUint32(payload[0:4], offset)
	binary.LittleEndian.PutUint32(payload[4:8], uint32(len(data)))

	if err := u.t.control(RequestSetWriteMode, uint16(mode), payload); err != nil {
		return err
	}
	if err := u.t.bulkWrite(data); err != nil {
		return err
	}

	if startPlayback {
		return u.t.control(RequestStartPlayback, 0, nil)
	}
	return nil
}
