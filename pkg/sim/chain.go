// Package sim models JTAG silicon at the pin level. A Chain implements the
// jtag.Pins contract: it runs its own IEEE 1149.1 controller off TCK/TMS and
// routes scans through the devices currently in the scan path.
package sim

import (
	"github.com/OpenTraceLab/jbang/pkg/tap"
)

// Device is one TAP in a simulated chain. Registers are at most 64 bits wide.
type Device interface {
	IRLength() int
	// Reset is applied on entering Test-Logic-Reset; hard is set for TRST.
	Reset(hard bool)
	CaptureIR() uint64
	UpdateIR(ir uint64)
	// DRLength is the width of the data register selected by the current IR.
	DRLength() int
	CaptureDR() uint64
	UpdateDR(dr uint64)
	// Idle is called on every rising TCK edge in Run-Test/Idle.
	Idle()
}

type segment struct {
	dev   Device
	width int
}

// Chain is a pin-level JTAG scan chain.
type Chain struct {
	devices []Device
	route   func() []Device

	machine *tap.StateMachine
	trst    bool
	tck     bool
	tms     bool
	tdi     bool

	shift  []bool // active scan path, index 0 drives TDO
	layout []segment

	irScans int
	drScans int
	pulses  int
	inits   int

	// Fail, when set, is reported through Err to exercise latched provider
	// errors.
	Fail error
}

// NewChain builds a chain over devices. route returns the devices currently
// in the scan path, TDO end first; nil routes through all of them.
func NewChain(route func() []Device, devices ...Device) *Chain {
	c := &Chain{
		devices: devices,
		route:   route,
		machine: tap.NewStateMachine(),
		trst:    true,
	}
	if c.route == nil {
		c.route = func() []Device { return c.devices }
	}
	return c
}

// State reports the simulated controller state.
func (c *Chain) State() tap.State { return c.machine.State() }

// IRScans counts Capture-IR passes.
func (c *Chain) IRScans() int { return c.irScans }

// DRScans counts Capture-DR passes.
func (c *Chain) DRScans() int { return c.drScans }

// Pulses counts rising TCK edges seen with TRST released.
func (c *Chain) Pulses() int { return c.pulses }

// Inits counts Init calls.
func (c *Chain) Inits() int { return c.inits }

func (c *Chain) Init() error {
	c.inits++
	return nil
}

func (c *Chain) Err() error { return c.Fail }

func (c *Chain) SetTRST(level bool) {
	c.trst = level
	if !level {
		c.machine.ForceReset()
		c.shift = c.shift[:0]
		for _, d := range c.devices {
			d.Reset(true)
		}
	}
}

func (c *Chain) SetTCK(level bool) {
	if level && !c.tck && c.trst {
		c.rising()
	}
	c.tck = level
}

func (c *Chain) SetTMS(level bool) { c.tms = level }

func (c *Chain) SetTDI(level bool) { c.tdi = level }

func (c *Chain) TDO() bool {
	switch c.machine.State() {
	case tap.StateShiftDR, tap.StateShiftIR:
		if len(c.shift) > 0 {
			return c.shift[0]
		}
	}
	return false
}

func (c *Chain) RTCK() bool { return false }

func (c *Chain) rising() {
	c.pulses++
	from := c.machine.State()
	switch from {
	case tap.StateCaptureIR:
		c.capture(true)
	case tap.StateCaptureDR:
		c.capture(false)
	case tap.StateShiftIR, tap.StateShiftDR:
		if len(c.shift) > 0 {
			c.shift = append(c.shift[1:], c.tdi)
		}
	case tap.StateRunTestIdle:
		for _, d := range c.devices {
			d.Idle()
		}
	}

	switch c.machine.Clock(c.tms) {
	case tap.StateUpdateIR:
		c.update(true)
	case tap.StateUpdateDR:
		c.update(false)
	case tap.StateTestLogicReset:
		if from != tap.StateTestLogicReset {
			for _, d := range c.devices {
				d.Reset(false)
			}
		}
	}
}

func (c *Chain) capture(ir bool) {
	if ir {
		c.irScans++
	} else {
		c.drScans++
	}
	c.shift = c.shift[:0]
	c.layout = c.layout[:0]
	for _, d := range c.route() {
		var w int
		var v uint64
		if ir {
			w, v = d.IRLength(), d.CaptureIR()
		} else {
			w, v = d.DRLength(), d.CaptureDR()
		}
		for i := 0; i < w; i++ {
			c.shift = append(c.shift, v>>uint(i)&1 == 1)
		}
		c.layout = append(c.layout, segment{dev: d, width: w})
	}
}

func (c *Chain) update(ir bool) {
	off := 0
	for _, seg := range c.layout {
		var v uint64
		for i := 0; i < seg.width && off+i < len(c.shift); i++ {
			if c.shift[off+i] {
				v |= 1 << uint(i)
			}
		}
		off += seg.width
		if ir {
			seg.dev.UpdateIR(v)
		} else {
			seg.dev.UpdateDR(v)
		}
	}
	c.layout = c.layout[:0]
}
