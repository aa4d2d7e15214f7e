package pinio

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Periph drives the JTAG signals through periph.io GPIO lines, named as
// gpioreg knows them ("GPIO17", "P9_12").
type Periph struct {
	names Names

	trst, tck, tms, tdi gpio.PinIO
	tdo, rtck           gpio.PinIO

	err error
}

// NewPeriph checks the pin assignment; lines are looked up by Init.
func NewPeriph(names Names) (*Periph, error) {
	if err := names.requireOutputs(); err != nil {
		return nil, err
	}
	return &Periph{names: names}, nil
}

func (p *Periph) Init() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("pinio: periph: %w", err)
	}
	lookup := func(signal, name string) (gpio.PinIO, error) {
		if name == "" {
			return nil, nil
		}
		pin := gpioreg.ByName(name)
		if pin == nil {
			return nil, fmt.Errorf("pinio: periph: %s: no GPIO line %q", signal, name)
		}
		return pin, nil
	}
	var err error
	if p.trst, err = lookup("trst", p.names.TRST); err != nil {
		return err
	}
	if p.tck, err = lookup("tck", p.names.TCK); err != nil {
		return err
	}
	if p.tms, err = lookup("tms", p.names.TMS); err != nil {
		return err
	}
	if p.tdi, err = lookup("tdi", p.names.TDI); err != nil {
		return err
	}
	if p.tdo, err = lookup("tdo", p.names.TDO); err != nil {
		return err
	}
	if p.rtck, err = lookup("rtck", p.names.RTCK); err != nil {
		return err
	}

	for _, in := range []gpio.PinIO{p.tdo, p.rtck} {
		if in == nil {
			continue
		}
		if err := in.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return fmt.Errorf("pinio: periph: %s: %w", in, err)
		}
	}
	// TRST released, clock idle low.
	p.out(p.trst, true)
	p.out(p.tck, false)
	p.out(p.tms, true)
	p.out(p.tdi, true)
	return p.err
}

func (p *Periph) out(pin gpio.PinIO, level bool) {
	if p.err != nil {
		return
	}
	if err := pin.Out(gpio.Level(level)); err != nil {
		p.err = fmt.Errorf("pinio: periph: %s: %w", pin, err)
	}
}

func (p *Periph) in(pin gpio.PinIO) bool {
	if pin == nil {
		return false
	}
	return pin.Read() == gpio.High
}

func (p *Periph) SetTRST(level bool) { p.out(p.trst, level) }
func (p *Periph) SetTCK(level bool)  { p.out(p.tck, level) }
func (p *Periph) SetTMS(level bool)  { p.out(p.tms, level) }
func (p *Periph) SetTDI(level bool)  { p.out(p.tdi, level) }
func (p *Periph) TDO() bool          { return p.in(p.tdo) }
func (p *Periph) RTCK() bool         { return p.in(p.rtck) }

// Err returns the first output error.
func (p *Periph) Err() error { return p.err }

// Close releases the lines back to inputs.
func (p *Periph) Close() error {
	for _, pin := range []gpio.PinIO{p.trst, p.tck, p.tms, p.tdi} {
		if pin == nil {
			continue
		}
		if err := pin.In(gpio.Float, gpio.NoEdge); err != nil {
			return fmt.Errorf("pinio: periph: %s: %w", pin, err)
		}
	}
	return nil
}
