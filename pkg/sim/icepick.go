package sim

// ICEPick instruction codes as documented for ICEPick-C/D.
const (
	icepickIRLen      = 6
	icepickBypass     = 0x3F
	icepickIDCode     = 0x04
	icepickPubConnect = 0x07
	icepickRouter     = 0x02

	icepickConnectKey = 0x9
	icepickWriteBit   = 0x80
	routerWriteBit    = 1 << 31
	routerSelectTAP   = 1 << 8
)

// ICEPick models the TI debug router. Router registers are only reachable
// after the public-connect handshake; writing the select bit of LinkRegister
// splices the secondary TAP into the chain on the next Run-Test/Idle clock.
type ICEPick struct {
	IDCode       uint32
	LinkRegister uint8

	// OnLink runs when the secondary TAP joins the chain.
	OnLink func()
	// Locked makes the router ignore the connect key.
	Locked bool

	ir          uint64
	key         uint8
	regs        map[uint8]uint32
	last        uint32
	pendingLink bool
	linked      bool

	writes []uint32
}

// NewICEPick returns a router in its power-on state.
func NewICEPick(idcode uint32, linkRegister uint8) *ICEPick {
	p := &ICEPick{IDCode: idcode, LinkRegister: linkRegister}
	p.Reset(true)
	return p
}

// Connected reports whether the public-connect key has been accepted.
func (p *ICEPick) Connected() bool { return p.key == icepickConnectKey }

// Linked reports whether the secondary TAP is in the scan path.
func (p *ICEPick) Linked() bool { return p.linked }

// Register returns the 24-bit content of a router register.
func (p *ICEPick) Register(reg uint8) uint32 { return p.regs[reg] }

// RouterWrites lists router write scans in the order they were latched,
// including the write bit.
func (p *ICEPick) RouterWrites() []uint32 {
	return append([]uint32(nil), p.writes...)
}

// IR returns the current instruction.
func (p *ICEPick) IR() uint64 { return p.ir }

func (p *ICEPick) IRLength() int { return icepickIRLen }

func (p *ICEPick) Reset(hard bool) {
	p.ir = icepickIDCode
	if hard {
		p.key = 0
		p.regs = make(map[uint8]uint32)
		p.last = 0
		p.pendingLink = false
		p.linked = false
	}
}

func (p *ICEPick) CaptureIR() uint64 { return 0x01 }

func (p *ICEPick) UpdateIR(ir uint64) { p.ir = ir & icepickBypass }

func (p *ICEPick) DRLength() int {
	switch p.ir {
	case icepickIDCode:
		return 32
	case icepickPubConnect:
		return 8
	case icepickRouter:
		if p.Connected() {
			return 32
		}
	}
	return 1
}

func (p *ICEPick) CaptureDR() uint64 {
	switch p.ir {
	case icepickIDCode:
		return uint64(p.IDCode)
	case icepickPubConnect:
		return uint64(p.key)
	case icepickRouter:
		if p.Connected() {
			return uint64(p.last)
		}
	}
	return 0
}

func (p *ICEPick) UpdateDR(dr uint64) {
	switch p.ir {
	case icepickPubConnect:
		if dr&icepickWriteBit != 0 && !p.Locked {
			p.key = uint8(dr & 0xF)
		}
	case icepickRouter:
		if !p.Connected() {
			return
		}
		word := uint32(dr)
		reg := uint8(word >> 24 & 0x7F)
		if word&routerWriteBit == 0 {
			p.last = uint32(reg)<<24 | p.regs[reg]
			return
		}
		data := word & 0xFFFFFF
		p.regs[reg] = data
		p.last = uint32(reg)<<24 | data
		p.writes = append(p.writes, word)
		if reg == p.LinkRegister && data&routerSelectTAP != 0 && !p.linked {
			p.pendingLink = true
		}
	}
}

func (p *ICEPick) Idle() {
	if p.pendingLink {
		p.pendingLink = false
		p.linked = true
		if p.OnLink != nil {
			p.OnLink()
		}
	}
}
