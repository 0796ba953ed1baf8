package usb

import (
	"context"
	"fmt"

	"github.com/dan-rodrigues/ym2610-pcb/pkg/logger"
)

// Poller services the device's re-buffering requests: it reads the
// interrupt IN endpoint with a short timeout and answers each valid request
// by uploading the requested VGM chunk to the requested device offset.
//
// Timeouts are expected while the device has nothing to say. Messages with
// an unknown header or a non-sequential counter are ignored with a warning.
// Any other device error is fatal and terminates Run.
type Poller struct {
	t        transport
	uploader *Uploader
	vgm      []byte
	log      *logger.Logger

	sequenceCounter uint32

	// OnRequest, if set, is called after each serviced buffering request.
	OnRequest func(StatusMessage)
}

// NewPoller creates a poller over the finalized VGM image. The image must
// not be mutated while the poller runs; the poller only reads slices of it.
func NewPoller(device *Device, uploader *Uploader, vgmData []byte, log *logger.Logger) *Poller {
	return newPoller(device, uploader, vgmData, log)
}

func newPoller(t transport, uploader *Uploader, vgmData []byte, log *logger.Logger) *Poller {
	return &Poller{
		t:        t,
		uploader: uploader,
		vgm:      vgmData,
		log:      log.WithComponent("usb.poller"),
	}
}

// Run polls until the context is cancelled or a fatal device error occurs.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info("polling for status")

	buf := make([]byte, StatusMessageLength)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := p.t.readStatus(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			return fmt.Errorf("status poll failed: %w", err)
		}

		var msg StatusMessage
		if err := msg.Parse(buf[:n]); err != nil {
			p.log.Warn("ignoring malformed status message", logger.Error(err))
			continue
		}

		if !msg.IsBufferingRequest() {
			p.log.Warn("ignoring request with unknown header", logger.Hex("header", int(msg.Header)))
			continue
		}

		if msg.SequenceCounter() != p.sequenceCounter {
			p.log.Warn("ignoring request with nonsequential counter",
				logger.Uint32("received", msg.SequenceCounter()),
				logger.Uint32("expected", p.sequenceCounter))
			continue
		}
		p.sequenceCounter = (p.sequenceCounter + 1) & sequenceCounterMask

		if err := p.service(msg); err != nil {
			return err
		}
	}
}

func (p *Poller) service(msg StatusMessage) error {
	start := int(msg.VGMOffset)
	end := start + int(msg.ChunkLength)
	if start > len(p.vgm) || end > len(p.vgm) {
		p.log.Warn("ignoring request beyond VGM image",
			logger.Hex("offset", start),
			logger.Hex("length", int(msg.ChunkLength)))
		return nil
	}

	p.log.Debug("sending VGM chunk",
		logger.Hex("buffer_offset", int(msg.TargetOffset)),
		logger.Hex("vgm_offset", start),
		logger.Hex("length", int(msg.ChunkLength)))

	if err := p.uploader.UploadVGM(p.vgm[start:end], msg.TargetOffset, false); err != nil {
		return err
	}

	if p.OnRequest != nil {
		p.OnRequest(msg)
	}
	return nil
}
