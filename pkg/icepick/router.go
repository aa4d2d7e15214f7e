package icepick

import (
	"fmt"

	"github.com/OpenTraceLab/jbang/pkg/jtag"
)

// Router scans ICEPick's instruction and data registers while other TAPs may
// sit between ICEPick and TDO. Those TAPs are held in BYPASS: their IR bits
// are shifted as ones and each contributes one DR bit.
type Router struct {
	seq *jtag.Sequencer

	// LeadIR is the total IR length of the TAPs on the TDO side of ICEPick.
	LeadIR int
	// LeadTAPs is how many TAPs that is.
	LeadTAPs int
}

// NewRouter returns a Router for a chain where ICEPick is alone.
func NewRouter(seq *jtag.Sequencer) *Router {
	return &Router{seq: seq}
}

// NewLinkedRouter returns a Router for the chain after BringUp, with one
// linked TAP of irLen bits in front of ICEPick.
func NewLinkedRouter(seq *jtag.Sequencer, irLen int) *Router {
	return &Router{seq: seq, LeadIR: irLen, LeadTAPs: 1}
}

// Instruction loads code into ICEPick's IR.
func (r *Router) Instruction(code uint8) error {
	ones := uint64(1)<<uint(r.LeadIR) - 1
	_, err := r.seq.ScanIR(IRLength+r.LeadIR, uint64(code)<<uint(r.LeadIR)|ones)
	return err
}

// Scan shifts an nbits-wide ICEPick data register.
func (r *Router) Scan(nbits int, out uint64) (uint64, error) {
	in, err := r.seq.ScanDR(nbits+r.LeadTAPs, out<<uint(r.LeadTAPs))
	return in >> uint(r.LeadTAPs), err
}

// Connect performs the public-connect handshake. With verify set, the key
// echoed back must match.
func (r *Router) Connect(verify bool) error {
	if err := r.Instruction(IRPublicConnect); err != nil {
		return err
	}
	if _, err := r.Scan(8, ConnectWord); err != nil {
		return err
	}
	if !verify {
		return nil
	}
	got, err := r.Scan(8, 0)
	if err != nil {
		return err
	}
	if err := jtag.Verify("icepick connect", got, 0xF, ConnectKey); err != nil {
		err.(*jtag.MismatchError).Reason = "icepick connect failed"
		return err
	}
	return nil
}

// Select connects and loads the router instruction.
func (r *Router) Select() error {
	if err := r.Connect(true); err != nil {
		return err
	}
	return r.Instruction(IRRouter)
}

// Write sends a raw router word with the write flag set. With verify set,
// the register address echoed by the following scan must match.
func (r *Router) Write(word uint32, verify bool) error {
	if _, err := r.Scan(32, uint64(word|RouterWrite)); err != nil {
		return err
	}
	if !verify {
		return nil
	}
	_, err := r.check(uint8(word >> 24 & 0x7F))
	return err
}

// Read returns the 24-bit content of router register reg.
func (r *Router) Read(reg uint8) (uint32, error) {
	if reg > 0x7F {
		return 0, fmt.Errorf("icepick: router register 0x%02x out of range", reg)
	}
	if _, err := r.Scan(32, uint64(reg)<<24); err != nil {
		return 0, err
	}
	return r.check(reg)
}

// Store writes 24 bits of data into router register reg and returns the
// value read back.
func (r *Router) Store(reg uint8, data uint32) (uint32, error) {
	if reg > 0x7F {
		return 0, fmt.Errorf("icepick: router register 0x%02x out of range", reg)
	}
	if err := r.Write(uint32(reg)<<24|data&RouterDataMask, false); err != nil {
		return 0, err
	}
	return r.check(reg)
}

// check clocks out the result of the previous router scan and verifies its
// address byte. Bit 31 of the readback is clear on success.
func (r *Router) check(reg uint8) (uint32, error) {
	got, err := r.Scan(32, 0)
	if err != nil {
		return 0, err
	}
	if got>>24 != uint64(reg) {
		return 0, &jtag.MismatchError{
			Check:  "icepick router",
			Got:    got >> 24,
			Want:   uint64(reg),
			Reason: "icepick write error",
		}
	}
	return uint32(got) & RouterDataMask, nil
}
