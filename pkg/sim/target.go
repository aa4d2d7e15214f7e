package sim

// AM335x debug silicon identities.
const (
	AM335xICEPickID = 0x0B94402F
	AM335xDAPID     = 0x3BA00477
	APBAPIDR        = 0x44770002

	am335xDAPTAP = 0x2C
	am335xAPBSel = 1

	// AM335xA8Debug is the Cortex-A8 debug component on the APB-AP.
	AM335xA8Debug = 0x80001000
)

// Target is an ICEPick router with one ARM DAP behind it, wired as on the
// AM335x: the DAP joins the chain on the TDO side once linked.
type Target struct {
	*Chain
	ICEPick *ICEPick
	DAP     *DAP
	APB     *MemAP
}

// NewTarget builds the AM335x debug topology with the Cortex-A8 debug
// registers' authentication status pre-populated.
func NewTarget() *Target {
	t := &Target{
		ICEPick: NewICEPick(AM335xICEPickID, am335xDAPTAP),
		DAP:     NewDAP(AM335xDAPID),
		APB:     NewMemAP(APBAPIDR),
	}
	t.DAP.APs[am335xAPBSel] = t.APB
	t.ICEPick.OnLink = func() { t.DAP.Reset(false) }

	// Public debug granted, secure debug implemented but denied.
	t.APB.Mem[AM335xA8Debug+0xFB8] = 0xAF

	// Cortex-A8 debug: CoreSight class, ARM part 0xC08.
	for i, b := range []uint32{0x0D, 0x90, 0x05, 0xB1} {
		t.APB.Mem[AM335xA8Debug+0xFF0+uint32(i)*4] = b
	}
	for i, b := range []uint32{0x08, 0xBC, 0x0B, 0x00} {
		t.APB.Mem[AM335xA8Debug+0xFE0+uint32(i)*4] = b
	}
	t.APB.Mem[AM335xA8Debug+0xFD0] = 0x04

	// A write to DBGDTRRX sets DBGDSCR.RXfull until the core reads it.
	t.APB.OnWrite = func(addr, value uint32) {
		if addr == AM335xA8Debug+0x080 {
			t.APB.Mem[AM335xA8Debug+0x088] |= 1 << 30
		}
	}

	t.Chain = NewChain(t.route, t.DAP, t.ICEPick)
	return t
}

func (t *Target) route() []Device {
	if t.ICEPick.Linked() {
		return []Device{t.DAP, t.ICEPick}
	}
	return []Device{t.ICEPick}
}
