package jtag

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/OpenTraceLab/jbang/internal/logging"
)

// DefaultProbeClockHz is the SWJ clock used when none is configured. It
// bounds the probe's pin settle time, not the bit rate: every level change
// is a USB round trip.
const DefaultProbeClockHz = 1_000_000

// ProbeInfo holds the DAP_Info strings of a connected probe.
type ProbeInfo struct {
	Vendor   string
	Product  string
	Serial   string
	Firmware string
}

// CMSISDAPPins drives the JTAG pins of a CMSIS-DAP probe one level at a
// time with DAP_SWJ_Pins. Each setter is one command/response exchange; the
// pin levels sampled by the latest exchange answer TDO.
//
// The first transport failure is latched and reported by Err; later pin
// operations are dropped.
type CMSISDAPPins struct {
	serial  string
	clockHz uint32

	tr    Transport
	proto *CMSISDAPProtocol
	info  ProbeInfo

	out, in byte
	err     error

	log *logrus.Entry
}

// NewCMSISDAPPins selects a probe by serial number (any probe when empty).
// Nothing is opened until Init.
func NewCMSISDAPPins(serial string, clockHz uint32) *CMSISDAPPins {
	if clockHz == 0 {
		clockHz = DefaultProbeClockHz
	}
	return &CMSISDAPPins{
		serial:  serial,
		clockHz: clockHz,
		log:     logging.For("cmsis-dap"),
	}
}

// NewCMSISDAPPinsOn uses an already open transport.
func NewCMSISDAPPinsOn(tr Transport, clockHz uint32) *CMSISDAPPins {
	p := NewCMSISDAPPins("", clockHz)
	p.tr = tr
	return p
}

// Init opens the probe, connects its JTAG port and parks TCK low with TRST
// released.
func (p *CMSISDAPPins) Init() error {
	if p.tr == nil {
		usb, err := OpenUSBTransport(p.serial)
		if err != nil {
			return err
		}
		p.tr = usb
	}
	p.proto = NewCMSISDAPProtocol(DefaultPacketSize)

	if err := p.queryInfo(); err != nil {
		return err
	}
	p.log.WithFields(logrus.Fields{
		"vendor":   p.info.Vendor,
		"product":  p.info.Product,
		"serial":   p.info.Serial,
		"firmware": p.info.Firmware,
	}).Info("probe")

	resp, err := p.tr.WriteRead(p.proto.EncodeConnect(PortJTAG))
	if err != nil {
		return fmt.Errorf("jtag: cmsis-dap connect: %w", err)
	}
	port, err := p.proto.DecodeConnect(resp)
	if err != nil {
		return err
	}
	if port != PortJTAG {
		return fmt.Errorf("jtag: cmsis-dap: connected port %d, not JTAG", port)
	}

	resp, err = p.tr.WriteRead(p.proto.EncodeSetClock(p.clockHz))
	if err != nil {
		return fmt.Errorf("jtag: cmsis-dap clock: %w", err)
	}
	if err := p.proto.DecodeSetClock(resp); err != nil {
		return err
	}

	p.out = PinNTRST | PinNRST
	p.exchange(PinTCK | PinTMS | PinTDI | PinNTRST)
	return p.err
}

func (p *CMSISDAPPins) queryInfo() error {
	fields := []struct {
		id  byte
		dst *string
	}{
		{InfoVendorID, &p.info.Vendor},
		{InfoProductID, &p.info.Product},
		{InfoSerialNum, &p.info.Serial},
		{InfoFirmwareVer, &p.info.Firmware},
	}
	for _, f := range fields {
		resp, err := p.tr.WriteRead(p.proto.EncodeInfo(f.id))
		if err != nil {
			return fmt.Errorf("jtag: cmsis-dap info: %w", err)
		}
		// Optional strings may be absent; an empty answer is fine.
		*f.dst, _ = p.proto.DecodeInfo(resp)
	}
	return nil
}

// Info returns the probe identification read by Init.
func (p *CMSISDAPPins) Info() ProbeInfo { return p.info }

func (p *CMSISDAPPins) exchange(sel byte) {
	if p.err != nil {
		return
	}
	resp, err := p.tr.WriteRead(p.proto.EncodeSWJPins(p.out, sel, 0))
	if err == nil {
		p.in, err = p.proto.DecodeSWJPins(resp)
	}
	if err != nil {
		p.err = fmt.Errorf("cmsis-dap swj pins: %w", err)
	}
}

func (p *CMSISDAPPins) set(pin byte, level bool) {
	if level {
		p.out |= pin
	} else {
		p.out &^= pin
	}
	p.exchange(pin)
}

func (p *CMSISDAPPins) SetTRST(level bool) { p.set(PinNTRST, level) }
func (p *CMSISDAPPins) SetTCK(level bool)  { p.set(PinTCK, level) }
func (p *CMSISDAPPins) SetTMS(level bool)  { p.set(PinTMS, level) }
func (p *CMSISDAPPins) SetTDI(level bool)  { p.set(PinTDI, level) }

func (p *CMSISDAPPins) TDO() bool { return p.in&PinTDO != 0 }

// RTCK is not reported by DAP_SWJ_Pins.
func (p *CMSISDAPPins) RTCK() bool { return false }

// Err returns the first transport failure.
func (p *CMSISDAPPins) Err() error { return p.err }

// Close disconnects the probe and releases the transport.
func (p *CMSISDAPPins) Close() error {
	if p.tr == nil {
		return nil
	}
	if p.proto != nil && p.err == nil {
		if resp, err := p.tr.WriteRead(p.proto.EncodeDisconnect()); err == nil {
			if err := p.proto.DecodeDisconnect(resp); err != nil {
				p.log.WithError(err).Warn("disconnect")
			}
		}
	}
	err := p.tr.Close()
	p.tr = nil
	return err
}
