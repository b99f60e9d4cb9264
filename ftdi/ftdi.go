// Package ftdi drives an FT2232H USB FIFO bridge in synchronous FIFO
// mode through gousb. It covers exactly what the radar front-end
// needs: channel A configured for flow-controlled streaming reads,
// plus bulk writes for outbound configuration traffic.
package ftdi

import (
	"errors"
	"fmt"

	"github.com/google/gousb"
)

const (
	VendorID  = 0x0403 // FTDI
	ProductID = 0x6010 // FT2232H
)

// FTDI vendor control requests, as issued by libftdi.
const (
	reqReset           = 0x00
	reqSetFlowCtrl     = 0x02
	reqSetLatencyTimer = 0x09
	reqSetBitmode      = 0x0B
)

// Request values.
const (
	resetSIO     = 0 // reqReset: reset the channel
	resetPurgeRX = 1 // reqReset: purge the host-bound buffer
	resetPurgeTX = 2 // reqReset: purge the device-bound buffer

	flowRTSCTS = 0x0100 // reqSetFlowCtrl: hardware flow control, in the high byte of wIndex

	bitmodeSyncFF = 0x40 // reqSetBitmode: synchronous FIFO, in the high byte of wValue
	bitmaskAll    = 0xFF // reqSetBitmode: all data bits enabled
)

const (
	// Channel A. FTDI control requests address channels with a
	// 1-based wIndex; the bulk endpoints live on interface 0.
	channelA = 1

	// Latency timer in milliseconds. Bounds how long the chip sits
	// on a partial packet before flushing it to the host.
	latencyMs = 2

	// ChunkSize is the transfer size for streaming reads and the
	// segment size for bulk writes.
	ChunkSize = 0x10000

	// Stream depth: transfers kept in flight by the read stream.
	streamTransfers = 8
)

// Device is an open FT2232H channel A in synchronous FIFO mode.
type Device struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	intf *gousb.Interface
	done func()

	in  *gousb.InEndpoint
	out *gousb.OutEndpoint

	// Bulk-in max packet size; every packet starts with two modem
	// status bytes that must be stripped from the payload.
	maxPacket int
}

// Open finds the first FT2232H by VID/PID and configures channel A for
// synchronous FIFO streaming: reset, all-bits FIFO bitmode, RTS/CTS
// flow control, short latency timer, purged buffers.
func Open(vid, pid uint16) (*Device, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("open device %04x:%04x: %w", vid, pid, err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("device %04x:%04x not found", vid, pid)
	}

	d := &Device{ctx: ctx, dev: dev}
	if err := d.configure(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Device) configure() error {
	// The kernel ftdi_sio driver claims the chip as a serial port;
	// take it over for the session.
	if err := d.dev.SetAutoDetach(true); err != nil {
		return fmt.Errorf("set auto-detach: %w", err)
	}

	intf, done, err := d.dev.DefaultInterface()
	if err != nil {
		return fmt.Errorf("claim interface A: %w", err)
	}
	d.intf = intf
	d.done = done

	in, err := intf.InEndpoint(1)
	if err != nil {
		return fmt.Errorf("open bulk-in endpoint: %w", err)
	}
	out, err := intf.OutEndpoint(2)
	if err != nil {
		return fmt.Errorf("open bulk-out endpoint: %w", err)
	}
	d.in = in
	d.out = out
	d.maxPacket = in.Desc.MaxPacketSize

	steps := []struct {
		name         string
		request      uint8
		value, index uint16
	}{
		{"reset", reqReset, resetSIO, channelA},
		{"set latency timer", reqSetLatencyTimer, latencyMs, channelA},
		{"set synchronous fifo mode", reqSetBitmode, bitmodeSyncFF<<8 | bitmaskAll, channelA},
		{"set flow control", reqSetFlowCtrl, 0, flowRTSCTS | channelA},
	}
	for _, s := range steps {
		if err := d.control(s.request, s.value, s.index); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	if err := d.Purge(); err != nil {
		return err
	}
	return nil
}

func (d *Device) control(request uint8, value, index uint16) error {
	_, err := d.dev.Control(
		gousb.ControlOut|gousb.ControlVendor|gousb.ControlDevice,
		request, value, index, nil)
	return err
}

// Purge discards both the host-bound and device-bound FIFO buffers.
func (d *Device) Purge() error {
	if err := d.control(reqReset, resetPurgeRX, channelA); err != nil {
		return fmt.Errorf("purge rx: %w", err)
	}
	if err := d.control(reqReset, resetPurgeTX, channelA); err != nil {
		return fmt.Errorf("purge tx: %w", err)
	}
	return nil
}

// stripStatus removes the two modem status bytes the chip prepends to
// every bulk-in packet. buf is compacted in place; the shortened
// payload slice is returned.
func stripStatus(buf []byte, maxPacket int) []byte {
	if maxPacket <= 2 {
		return buf[:0]
	}
	out := buf[:0]
	for off := 0; off < len(buf); off += maxPacket {
		end := off + maxPacket
		if end > len(buf) {
			end = len(buf)
		}
		if end-off <= 2 {
			continue
		}
		out = append(out, buf[off+2:end]...)
	}
	return out
}

// ReadStream reads the FIFO continuously and hands each payload chunk
// to fn. It returns when fn returns a non-nil error (which is passed
// through to the caller) or when the stream itself fails. Chunks are
// delivered with modem status bytes already stripped; empty chunks are
// delivered as zero-length slices.
func (d *Device) ReadStream(fn func(chunk []byte) error) error {
	stream, err := d.in.NewStream(ChunkSize, streamTransfers)
	if err != nil {
		return fmt.Errorf("open read stream: %w", err)
	}
	defer stream.Close()

	buf := make([]byte, ChunkSize)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			if cbErr := fn(stripStatus(buf[:n], d.maxPacket)); cbErr != nil {
				return cbErr
			}
		}
		if err != nil {
			return fmt.Errorf("stream read: %w", err)
		}
	}
}

// Write sends p to the device-bound FIFO, segmenting at ChunkSize.
// Returns the number of bytes accepted; n < len(p) comes with an
// error.
func (d *Device) Write(p []byte) (int, error) {
	var written int
	for written < len(p) {
		end := written + ChunkSize
		if end > len(p) {
			end = len(p)
		}
		seg := p[written:end]
		n, err := d.out.Write(seg)
		written += n
		if err != nil {
			return written, fmt.Errorf("bulk write: %w", err)
		}
		if n < len(seg) {
			return written, errors.New("bulk write: short transfer")
		}
	}
	return written, nil
}

// Close releases the interface and the device. Safe to call on a
// partially opened Device.
func (d *Device) Close() error {
	if d.intf != nil {
		// Best effort: drop whatever the chip still buffers.
		_ = d.Purge()
	}
	if d.done != nil {
		d.done()
		d.done = nil
		d.intf = nil
	}
	var err error
	if d.dev != nil {
		err = d.dev.Close()
		d.dev = nil
	}
	if d.ctx != nil {
		if cerr := d.ctx.Close(); err == nil {
			err = cerr
		}
		d.ctx = nil
	}
	return err
}
