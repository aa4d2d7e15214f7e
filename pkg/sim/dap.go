package sim

// ARM JTAG-DP instruction codes.
const (
	dapIRLen  = 4
	dapAbort  = 0x8
	dapDPACC  = 0xA
	dapAPACC  = 0xB
	dapIDCode = 0xE
	dapBypass = 0xF

	// AckOK is the JTAG-DP OK/FAULT acknowledge.
	AckOK = 0x2
	// AckWait is the JTAG-DP WAIT acknowledge.
	AckWait = 0x1
)

// CTRL/STAT bits.
const (
	ctrlCSysPwrUpReq = 1 << 30
	ctrlCDbgPwrUpReq = 1 << 28
	ctrlStickyOrun   = 1 << 1
	ctrlStickyCmp    = 1 << 4
	ctrlStickyErr    = 1 << 5
	ctrlStickyMask   = ctrlStickyOrun | ctrlStickyCmp | ctrlStickyErr
)

// DAP models an ADIv5 JTAG-DP. Every DPACC/APACC capture returns the
// acknowledge and the read result of the previous access; writes echo their
// data into the result so the pipeline delay is observable.
type DAP struct {
	IDCode uint32
	DPIDR  uint32

	// Ack overrides the acknowledge of captured DPACC/APACC scans when
	// non-zero.
	Ack uint8
	// Sticky holds CTRL/STAT sticky error flags; they are write-one-to-clear.
	Sticky uint32

	APs map[uint8]*MemAP

	ir     uint64
	ctrl   uint32
	sel    uint32
	result uint32
	aborts int
}

// NewDAP returns a DAP with no access ports.
func NewDAP(idcode uint32) *DAP {
	d := &DAP{IDCode: idcode, DPIDR: idcode, APs: make(map[uint8]*MemAP)}
	d.Reset(true)
	return d
}

// IR returns the current instruction.
func (d *DAP) IR() uint64 { return d.ir }

// Select returns the DP SELECT register.
func (d *DAP) Select() uint32 { return d.sel }

// Aborts counts ABORT scans that set DAPABORT.
func (d *DAP) Aborts() int { return d.aborts }

// Poke sets the value the next DPACC/APACC capture returns.
func (d *DAP) Poke(result uint32) { d.result = result }

func (d *DAP) IRLength() int { return dapIRLen }

func (d *DAP) Reset(hard bool) {
	d.ir = dapIDCode
	if hard {
		d.ctrl = 0
		d.sel = 0
		d.result = 0
	}
}

func (d *DAP) CaptureIR() uint64 { return 0x1 }

func (d *DAP) UpdateIR(ir uint64) { d.ir = ir & dapBypass }

func (d *DAP) DRLength() int {
	switch d.ir {
	case dapAbort, dapDPACC, dapAPACC:
		return 35
	case dapIDCode:
		return 32
	}
	return 1
}

func (d *DAP) CaptureDR() uint64 {
	switch d.ir {
	case dapIDCode:
		return uint64(d.IDCode)
	case dapAbort, dapDPACC, dapAPACC:
		ack := uint64(AckOK)
		if d.Ack != 0 {
			ack = uint64(d.Ack)
		}
		return ack | uint64(d.result)<<3
	}
	return 0
}

func (d *DAP) UpdateDR(dr uint64) {
	read := dr&1 == 1
	addr := uint8(dr>>1&0x3) << 2
	data := uint32(dr >> 3)
	switch d.ir {
	case dapAbort:
		if data&1 != 0 {
			d.aborts++
			d.Sticky = 0
		}
		d.result = 0
	case dapDPACC:
		d.result = d.dp(addr, read, data)
	case dapAPACC:
		d.result = d.ap(addr, read, data)
	}
}

func (d *DAP) Idle() {}

func (d *DAP) dp(addr uint8, read bool, data uint32) uint32 {
	switch addr {
	case 0x0:
		if read {
			return d.DPIDR
		}
	case 0x4:
		if read {
			return d.ctrl | d.Sticky
		}
		req := data & (ctrlCSysPwrUpReq | ctrlCDbgPwrUpReq)
		d.ctrl = req | req<<1
		d.Sticky &^= data & ctrlStickyMask
	case 0x8:
		if read {
			return d.sel
		}
		d.sel = data
	case 0xC:
		if read {
			return d.result
		}
	}
	return data
}

func (d *DAP) ap(addr uint8, read bool, data uint32) uint32 {
	ap, ok := d.APs[uint8(d.sel>>24)]
	if !ok {
		d.Sticky |= ctrlStickyErr
		return 0
	}
	reg := uint8(d.sel>>4&0xF)<<4 | addr
	return ap.access(reg, read, data)
}

// MemAP models a memory access port over a sparse word memory.
type MemAP struct {
	IDR uint32
	CSW uint32
	TAR uint32
	Mem map[uint32]uint32

	// OnWrite observes every DRW write after it is stored.
	OnWrite func(addr, value uint32)

	reads  []uint32
	writes []uint32
}

// NewMemAP returns an access port with empty memory.
func NewMemAP(idr uint32) *MemAP {
	return &MemAP{IDR: idr, Mem: make(map[uint32]uint32)}
}

// Reads lists the addresses read through DRW.
func (m *MemAP) Reads() []uint32 { return append([]uint32(nil), m.reads...) }

// Writes lists the addresses written through DRW.
func (m *MemAP) Writes() []uint32 { return append([]uint32(nil), m.writes...) }

func (m *MemAP) access(reg uint8, read bool, data uint32) uint32 {
	switch reg {
	case 0x00:
		if read {
			return m.CSW
		}
		m.CSW = data
	case 0x04:
		if read {
			return m.TAR
		}
		m.TAR = data
	case 0x0C:
		addr := m.TAR
		m.increment()
		if read {
			m.reads = append(m.reads, addr)
			return m.Mem[addr]
		}
		m.Mem[addr] = data
		m.writes = append(m.writes, addr)
		if m.OnWrite != nil {
			m.OnWrite(addr, data)
		}
	case 0xFC:
		if read {
			return m.IDR
		}
	}
	return data
}

func (m *MemAP) increment() {
	if m.CSW>>4&0x3 == 1 {
		m.TAR += 4
	}
}
