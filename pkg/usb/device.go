package usb

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/gousb"

	"github.com/dan-rodrigues/ym2610-pcb/pkg/logger"
)

// transport is the raw device surface needed by the uploader and poller,
// split out so both can be tested against a fake.
type transport interface {
	control(request uint8, value uint16, payload []byte) error
	bulkWrite(data []byte) error
	readStatus(buf []byte) (int, error)
}

// Device is an open handle to the playback appliance: configuration 1,
// interface (1,0), one bulk OUT endpoint for data and one interrupt IN
// endpoint for status.
type Device struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface

	dataOut  *gousb.OutEndpoint
	statusIn *gousb.InEndpoint

	log *logger.Logger
}

// Open finds and claims the appliance. Zero IDs select the default
// VID:PID.
func Open(vendorID, productID uint16, log *logger.Logger) (*Device, error) {
	if vendorID == 0 {
		vendorID = VendorID
	}
	if productID == 0 {
		productID = ProductID
	}

	d := &Device{
		ctx: gousb.NewContext(),
		log: log.WithComponent("usb"),
	}

	dev, err := d.ctx.OpenDeviceWithVIDPID(gousb.ID(vendorID), gousb.ID(productID))
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to open device: %w", err)
	}
	if dev == nil {
		d.Close()
		return nil, fmt.Errorf("%w: device %04x:%04x not found", ErrDevice, vendorID, productID)
	}
	d.dev = dev

	if err := dev.SetAutoDetach(true); err != nil {
		d.log.Warn("couldn't enable kernel driver auto-detach", logger.Error(err))
	}

	cfg, err := dev.Config(1)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to claim configuration 1: %w", err)
	}
	d.cfg = cfg

	intf, err := cfg.Interface(1, 0)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to claim interface (1,0): %w", err)
	}
	d.intf = intf

	if err := d.findEndpoints(); err != nil {
		d.Close()
		return nil, err
	}

	d.log.Info("device opened",
		logger.String("product", fmt.Sprintf("%04x:%04x", vendorID, productID)))

	return d, nil
}

// findEndpoints locates the bulk OUT data endpoint and interrupt IN status
// endpoint on the claimed interface.
func (d *Device) findEndpoints() error {
	for _, ep := range d.intf.Setting.Endpoints {
		switch {
		case ep.Direction == gousb.EndpointDirectionOut && ep.TransferType == gousb.TransferTypeBulk:
			out, err := d.intf.OutEndpoint(ep.Number)
			if err != nil {
				return fmt.Errorf("failed to open bulk OUT endpoint: %w", err)
			}
			d.dataOut = out

		case ep.Direction == gousb.EndpointDirectionIn && ep.TransferType == gousb.TransferTypeInterrupt:
			in, err := d.intf.InEndpoint(ep.Number)
			if err != nil {
				return fmt.Errorf("failed to open interrupt IN endpoint: %w", err)
			}
			d.statusIn = in
		}
	}

	if d.dataOut == nil {
		return fmt.Errorf("%w: data endpoint not found", ErrDevice)
	}
	if d.statusIn == nil {
		return fmt.Errorf("%w: status endpoint not found", ErrDevice)
	}
	return nil
}

// Close releases the interface and USB context.
func (d *Device) Close() {
	if d.intf != nil {
		d.intf.Close()
	}
	if d.cfg != nil {
		d.cfg.Close()
	}
	if d.dev != nil {
		d.dev.Close()
	}
	if d.ctx != nil {
		d.ctx.Close()
	}
}

func (d *Device) control(request uint8, value uint16, payload []byte) error {
	if _, err := d.dev.Control(requestTypeVendorInterface, request, value, 0, payload); err != nil {
		return fmt.Errorf("control request %#02x failed: %w", request, err)
	}
	return nil
}

func (d *Device) bulkWrite(data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), bulkTimeout)
	defer cancel()

	n, err := d.dataOut.WriteContext(ctx, data)
	if err != nil {
		return fmt.Errorf("bulk write failed: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("%w: short bulk write (%d of %d bytes)", ErrDevice, n, len(data))
	}
	return nil
}

func (d *Device) readStatus(buf []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), statusPollTimeout)
	defer cancel()

	return d.statusIn.ReadContext(ctx, buf)
}

// isTimeout reports whether a status read failed only because no report
// arrived within the poll window.
func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, gousb.TransferTimedOut)
}
