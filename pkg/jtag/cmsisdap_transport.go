package jtag

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"
)

const (
	// Raspberry Pi debug probe USB identifiers
	VendorIDRaspberryPi = 0x2E8A
	ProductIDCMSISDAP   = 0x000C

	// DefaultPacketSize is the CMSIS-DAP v1 HID report size, used until the
	// bulk endpoint descriptor says otherwise.
	DefaultPacketSize = 64
	DefaultTimeout    = 5 * time.Second
)

// ErrNoProbe reports that no matching CMSIS-DAP probe is connected.
var ErrNoProbe = errors.New("jtag: no CMSIS-DAP probe found")

// Transport carries one CMSIS-DAP command and its response.
type Transport interface {
	WriteRead(cmd []byte) ([]byte, error)
	Close() error
}

// USBTransport handles USB communication with a CMSIS-DAP v2 probe over its
// vendor-class bulk interface.
type USBTransport struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	done func()

	epOut *gousb.OutEndpoint
	epIn  *gousb.InEndpoint

	packetSize int
	timeout    time.Duration
}

// OpenUSBTransport opens the first known CMSIS-DAP probe, or the one whose
// serial number matches serial when it is non-empty.
func OpenUSBTransport(serial string) (*USBTransport, error) {
	ctx := gousb.NewContext()

	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		_, ok := classifyUSBDevice(desc)
		return ok
	})
	if err != nil && len(devs) == 0 {
		ctx.Close()
		return nil, fmt.Errorf("jtag: usb: %w", err)
	}

	var dev *gousb.Device
	for _, d := range devs {
		if dev == nil && matchesSerial(d, serial) {
			dev = d
			continue
		}
		d.Close()
	}
	if dev == nil {
		ctx.Close()
		if serial != "" {
			return nil, fmt.Errorf("%w with serial %q", ErrNoProbe, serial)
		}
		return nil, ErrNoProbe
	}

	// Not supported on every platform.
	_ = dev.SetAutoDetach(true)

	t := &USBTransport{
		ctx:        ctx,
		dev:        dev,
		packetSize: DefaultPacketSize,
		timeout:    DefaultTimeout,
	}
	if err := t.claimInterface(); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

func matchesSerial(d *gousb.Device, serial string) bool {
	if serial == "" {
		return true
	}
	s, err := d.SerialNumber()
	return err == nil && s == serial
}

// claimInterface finds and claims the vendor-class interface and its bulk
// endpoints.
func (t *USBTransport) claimInterface() error {
	cfgNum, err := t.dev.ActiveConfigNum()
	if err != nil {
		return fmt.Errorf("jtag: usb: active config: %w", err)
	}
	cfg, err := t.dev.Config(cfgNum)
	if err != nil {
		return fmt.Errorf("jtag: usb: config %d: %w", cfgNum, err)
	}

	num := -1
	for _, intf := range cfg.Desc.Interfaces {
		if len(intf.AltSettings) > 0 && intf.AltSettings[0].Class == gousb.ClassVendorSpec {
			num = intf.Number
			break
		}
	}
	if num < 0 {
		cfg.Close()
		return fmt.Errorf("jtag: usb: no vendor interface (CMSIS-DAP v1 HID probes are not supported)")
	}

	intf, err := cfg.Interface(num, 0)
	if err != nil {
		cfg.Close()
		return fmt.Errorf("jtag: usb: claim interface %d: %w", num, err)
	}
	t.done = func() {
		intf.Close()
		cfg.Close()
	}

	for _, ep := range intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		switch {
		case ep.Direction == gousb.EndpointDirectionOut && t.epOut == nil:
			if t.epOut, err = intf.OutEndpoint(ep.Number); err != nil {
				return fmt.Errorf("jtag: usb: OUT endpoint: %w", err)
			}
		case ep.Direction == gousb.EndpointDirectionIn && t.epIn == nil:
			if t.epIn, err = intf.InEndpoint(ep.Number); err != nil {
				return fmt.Errorf("jtag: usb: IN endpoint: %w", err)
			}
			t.packetSize = ep.MaxPacketSize
		}
	}
	if t.epOut == nil || t.epIn == nil {
		return fmt.Errorf("jtag: usb: bulk endpoints not found")
	}
	return nil
}

// WriteRead performs a command/response transaction.
func (t *USBTransport) WriteRead(cmd []byte) ([]byte, error) {
	if _, err := t.epOut.Write(cmd); err != nil {
		return nil, fmt.Errorf("jtag: usb write: %w", err)
	}
	resp := make([]byte, t.packetSize)
	n, err := t.epIn.Read(resp)
	if err != nil {
		return nil, fmt.Errorf("jtag: usb read: %w", err)
	}
	return resp[:n], nil
}

// PacketSize returns the bulk IN packet size.
func (t *USBTransport) PacketSize() int {
	return t.packetSize
}

// Close releases USB resources
func (t *USBTransport) Close() error {
	if t.done != nil {
		t.done()
		t.done = nil
	}
	if t.dev != nil {
		t.dev.Close()
		t.dev = nil
	}
	if t.ctx != nil {
		t.ctx.Close()
		t.ctx = nil
	}
	return nil
}
