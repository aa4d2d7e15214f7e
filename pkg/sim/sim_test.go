package sim

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/OpenTraceLab/jbang/pkg/tap"
)

// bang drives the chain directly: one rising edge per TMS bit, sampling TDO
// before each edge.
func bang(c *Chain, tms []bool, tdi uint64) uint64 {
	var tdo uint64
	for i, bit := range tms {
		c.SetTMS(bit)
		c.SetTDI(tdi>>uint(i)&1 == 1)
		if c.TDO() {
			tdo |= 1 << uint(i)
		}
		c.SetTCK(true)
		c.SetTCK(false)
	}
	return tdo
}

func TestChainReset(t *testing.T) {
	target := NewTarget()
	bang(target.Chain, []bool{false, true, false}, 0)
	if target.State() != tap.StateCaptureDR {
		t.Fatalf("state = %s, want CaptureDR", target.State())
	}

	target.SetTRST(false)
	if target.State() != tap.StateTestLogicReset {
		t.Errorf("state after TRST = %s", target.State())
	}
	target.SetTRST(true)
	if target.ICEPick.IR() != icepickIDCode {
		t.Errorf("ICEPick IR = 0x%x, want IDCODE", target.ICEPick.IR())
	}
}

func TestChainShiftsIDCode(t *testing.T) {
	target := NewTarget()
	// TLR -> RTI -> SelectDR -> CaptureDR -> ShiftDR
	bang(target.Chain, []bool{false, true, false, false}, 0)

	tms := make([]bool, 32)
	tms[31] = true
	if got := bang(target.Chain, tms, 0); got != AM335xICEPickID {
		t.Errorf("IDCODE = 0x%08X, want 0x%08X", got, AM335xICEPickID)
	}
	if target.DRScans() != 1 || target.IRScans() != 0 {
		t.Errorf("scans: dr=%d ir=%d", target.DRScans(), target.IRScans())
	}
}

func TestICEPickLinksOnIdle(t *testing.T) {
	p := NewICEPick(AM335xICEPickID, 0x2C)
	linked := 0
	p.OnLink = func() { linked++ }

	p.UpdateIR(icepickPubConnect)
	p.UpdateDR(0x89)
	if !p.Connected() {
		t.Fatal("connect key rejected")
	}
	p.UpdateIR(icepickRouter)
	if p.DRLength() != 32 {
		t.Fatalf("router width = %d", p.DRLength())
	}
	p.UpdateDR(1<<31 | 0x2C<<24 | 0x2100)
	if p.Linked() {
		t.Fatal("linked before Run-Test/Idle")
	}
	p.Idle()
	p.Idle()
	if !p.Linked() || linked != 1 {
		t.Errorf("linked=%v callbacks=%d", p.Linked(), linked)
	}
	if got := p.CaptureDR(); got != 0x2C002100 {
		t.Errorf("router capture = 0x%08X", got)
	}
}

func TestICEPickRouterNeedsConnect(t *testing.T) {
	p := NewICEPick(AM335xICEPickID, 0x2C)
	p.UpdateIR(icepickRouter)
	if p.DRLength() != 1 {
		t.Errorf("router width before connect = %d, want 1", p.DRLength())
	}
	p.UpdateDR(1<<31 | 0x2C<<24 | 0x2100)
	if len(p.RouterWrites()) != 0 {
		t.Error("router accepted a write before connect")
	}
}

func TestDAPStickyWriteOneToClear(t *testing.T) {
	d := NewDAP(AM335xDAPID)
	d.Sticky = ctrlStickyErr | ctrlStickyCmp

	d.dp(0x4, false, 0x50000000|ctrlStickyErr)
	if got := d.dp(0x4, true, 0); got != 0xF0000000|ctrlStickyCmp {
		t.Errorf("CTRL/STAT = 0x%08X", got)
	}
}

func TestMemAPAutoIncrement(t *testing.T) {
	m := NewMemAP(APBAPIDR)
	m.Mem[0x100] = 1
	m.Mem[0x104] = 2

	m.access(0x00, false, 0xE3000012)
	m.access(0x04, false, 0x100)
	var got []uint32
	for i := 0; i < 2; i++ {
		got = append(got, m.access(0x0C, true, 0))
	}
	if diff := cmp.Diff([]uint32{1, 2}, got); diff != "" {
		t.Errorf("reads mismatch (-want +got):\n%s", diff)
	}
	if m.access(0xFC, true, 0) != APBAPIDR {
		t.Error("IDR read failed")
	}

	m.access(0x00, false, 0xE3000002)
	m.access(0x04, false, 0x100)
	m.access(0x0C, false, 7)
	m.access(0x0C, false, 8)
	if m.Mem[0x100] != 8 || m.TAR != 0x100 {
		t.Errorf("no-increment write: mem=%d tar=0x%x", m.Mem[0x100], m.TAR)
	}
}
