package coresight

import "fmt"

// DSCR bits.
const (
	DSCRRXFull = 1 << 30 // DBGDTRRX holds data the core has not read
	DSCRTXFull = 1 << 29
)

// DCC is the host side of the Cortex-A debug communications channel. The
// core picks words up with its own coprocessor reads.
type DCC struct {
	mem  Memory
	base uint32
}

// NewDCC returns a channel to the core debug component at base.
func NewDCC(mem Memory, base uint32) *DCC {
	return &DCC{mem: mem, base: base}
}

// ClearStatus reads DBGPRSR and DBGDSCR, which clears the sticky
// power-down/reset flags and the sticky DCC flags.
func (d *DCC) ClearStatus() error {
	for _, reg := range []uint32{RegDBGPRSR, RegDBGDSCR} {
		if _, err := d.mem.Read(d.base + reg); err != nil {
			return fmt.Errorf("coresight: clear status: %w", err)
		}
	}
	return nil
}

// Send writes v to DBGDTRRX.
func (d *DCC) Send(v uint32) error {
	if err := d.mem.Write(d.base+RegDBGDTRRX, v); err != nil {
		return fmt.Errorf("coresight: dcc send: %w", err)
	}
	return nil
}

// Status returns DBGDSCR.
func (d *DCC) Status() (uint32, error) {
	v, err := d.mem.Read(d.base + RegDBGDSCR)
	if err != nil {
		return 0, fmt.Errorf("coresight: dcc status: %w", err)
	}
	return v, nil
}

// Pending reports whether the last word sent is still unread by the core.
func (d *DCC) Pending() (bool, error) {
	v, err := d.Status()
	if err != nil {
		return false, err
	}
	return v&DSCRRXFull != 0, nil
}
