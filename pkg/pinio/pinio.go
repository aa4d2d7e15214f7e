// Package pinio provides jtag.Pins implementations on local GPIO: periph.io
// lines, Raspberry Pi registers through go-rpio, and AM335x pad
// configuration registers.
package pinio

import (
	"fmt"
	"strconv"
)

// Names maps JTAG signals to provider-specific pin identifiers. TDO and
// RTCK may be empty when not wired.
type Names struct {
	TRST string
	TCK  string
	TMS  string
	TDI  string
	TDO  string
	RTCK string
}

func (n Names) outputs() []struct{ signal, name string } {
	return []struct{ signal, name string }{
		{"trst", n.TRST},
		{"tck", n.TCK},
		{"tms", n.TMS},
		{"tdi", n.TDI},
	}
}

func (n Names) requireOutputs() error {
	for _, o := range n.outputs() {
		if o.name == "" {
			return fmt.Errorf("pinio: no pin for %s", o.signal)
		}
	}
	return nil
}

// numbers parses the pin identifiers as integers; -1 marks an unwired
// optional input.
func (n Names) numbers() (trst, tck, tms, tdi, tdo, rtck int, err error) {
	if err = n.requireOutputs(); err != nil {
		return
	}
	parse := func(signal, s string) int {
		if err != nil {
			return -1
		}
		if s == "" {
			return -1
		}
		v, perr := strconv.Atoi(s)
		if perr != nil || v < 0 {
			err = fmt.Errorf("pinio: %s: bad pin number %q", signal, s)
			return -1
		}
		return v
	}
	trst = parse("trst", n.TRST)
	tck = parse("tck", n.TCK)
	tms = parse("tms", n.TMS)
	tdi = parse("tdi", n.TDI)
	tdo = parse("tdo", n.TDO)
	rtck = parse("rtck", n.RTCK)
	return
}
