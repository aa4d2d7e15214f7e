package pinio

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
)

// Rpio drives BCM-numbered Raspberry Pi GPIOs through /dev/gpiomem.
type Rpio struct {
	trst, tck, tms, tdi rpio.Pin
	tdo, rtck           rpio.Pin
	hasTDO, hasRTCK     bool

	open bool
}

// NewRpio parses BCM pin numbers.
func NewRpio(names Names) (*Rpio, error) {
	trst, tck, tms, tdi, tdo, rtck, err := names.numbers()
	if err != nil {
		return nil, err
	}
	r := &Rpio{
		trst: rpio.Pin(trst),
		tck:  rpio.Pin(tck),
		tms:  rpio.Pin(tms),
		tdi:  rpio.Pin(tdi),
	}
	if tdo >= 0 {
		r.tdo, r.hasTDO = rpio.Pin(tdo), true
	}
	if rtck >= 0 {
		r.rtck, r.hasRTCK = rpio.Pin(rtck), true
	}
	return r, nil
}

func (r *Rpio) Init() error {
	if err := rpio.Open(); err != nil {
		return fmt.Errorf("pinio: rpio: %w", err)
	}
	r.open = true

	for _, pin := range []rpio.Pin{r.trst, r.tck, r.tms, r.tdi} {
		pin.Output()
	}
	if r.hasTDO {
		r.tdo.Input()
		r.tdo.PullUp()
	}
	if r.hasRTCK {
		r.rtck.Input()
		r.rtck.PullOff()
	}
	r.trst.High()
	r.tck.Low()
	return nil
}

func write(pin rpio.Pin, level bool) {
	if level {
		pin.High()
	} else {
		pin.Low()
	}
}

func (r *Rpio) SetTRST(level bool) { write(r.trst, level) }
func (r *Rpio) SetTCK(level bool)  { write(r.tck, level) }
func (r *Rpio) SetTMS(level bool)  { write(r.tms, level) }
func (r *Rpio) SetTDI(level bool)  { write(r.tdi, level) }

func (r *Rpio) TDO() bool {
	return r.hasTDO && r.tdo.Read() == rpio.High
}

func (r *Rpio) RTCK() bool {
	return r.hasRTCK && r.rtck.Read() == rpio.High
}

// Close returns the outputs to inputs and unmaps the GPIO block.
func (r *Rpio) Close() error {
	if !r.open {
		return nil
	}
	for _, pin := range []rpio.Pin{r.trst, r.tck, r.tms, r.tdi} {
		pin.Input()
	}
	r.open = false
	return rpio.Close()
}
