// Package icepick brings up a TI ICEPick-C/D debug router: it authenticates
// with the public-connect handshake and writes the router registers that
// splice the ARM DAP into the scan chain.
package icepick

import (
	"github.com/sirupsen/logrus"

	"github.com/OpenTraceLab/jbang/internal/logging"
	"github.com/OpenTraceLab/jbang/pkg/idcode"
	"github.com/OpenTraceLab/jbang/pkg/jtag"
)

// IRLength is the width of the ICEPick instruction register.
const IRLength = 6

// Instruction codes.
const (
	IRBypass    = 0b111111 // 1 bit
	IRIDCode    = 0b000100 // 32 bits
	IRICEPickID = 0b000101 // 32 bits
	IRUserCode  = 0b001000 // 32 bits

	// Boundary-scan pass-through, recommended codes.
	IRClamp        = 0b011101
	IRHighZ        = 0b011110
	IRRunBIST      = 0b011010
	IRSample       = 0b011011
	IRPreload      = 0b011100
	IRInTest       = 0b011001
	IRExTest       = 0b011000
	IRExTestNoPull = 0b010111
	IRExTestPulse  = 0b100100
	IRExTestTrain  = 0b100101

	// Router services; everything below requires the public connect first.
	IRPublicConnect  = 0b000111 // 8 bits
	IRPrivateConnect = 0b011111 // 1 bit
	IRRouter         = 0b000010 // 32 bits
)

// Public-connect handshake.
const (
	ConnectWord = 0b1000_1001 // write bit | key
	ConnectKey  = 0b1001
)

// Router scan layout: write flag, 7-bit register address, 24-bit data.
const (
	RouterWrite    = 1 << 31
	RouterDataMask = 0xFFFFFF
)

// DefaultSettleCycles is how long the chain is clocked in Run-Test/Idle after
// the router is returned to bypass, so linked TAPs take effect.
const DefaultSettleCycles = 16

// Config is the per-target bring-up recipe.
type Config struct {
	// HasTDO is false on boards where TDO is not wired back; every readback
	// check is then skipped.
	HasTDO bool

	IDCodeMask  uint32
	IDCodeMatch uint32

	// RouterWords are written in order; later entries may depend on links
	// made by earlier ones.
	RouterWords []uint32

	SettleCycles int

	Log *logrus.Entry
}

func (c *Config) logger() *logrus.Entry {
	if c.Log != nil {
		return c.Log
	}
	return logging.For("icepick")
}

// BringUp resets the TAP, identifies the router and configures it. On return
// the router is in bypass and the linked TAPs are in the chain. Any readback
// mismatch is returned as a *jtag.MismatchError; nothing is retried.
func BringUp(seq *jtag.Sequencer, cfg Config) error {
	log := cfg.logger()

	seq.Reset()
	seq.RunIdle(100)

	if cfg.HasTDO {
		id, err := seq.ScanDR(32, 0)
		if err != nil {
			return err
		}
		log.Infof("JTAG ID: %08x (%s)", id, idcode.ParseIDCode(uint32(id)))
		if err := jtag.Verify("icepick idcode", id, uint64(cfg.IDCodeMask), uint64(cfg.IDCodeMatch)); err != nil {
			err.(*jtag.MismatchError).Reason = "device not recognized"
			return err
		}
	}

	r := NewRouter(seq)
	if err := r.Connect(cfg.HasTDO); err != nil {
		return err
	}
	log.Debug("public connect accepted")

	if err := r.Instruction(IRRouter); err != nil {
		return err
	}
	for _, w := range cfg.RouterWords {
		if err := r.Write(w, cfg.HasTDO); err != nil {
			return err
		}
		log.Debugf("router [%02x] <- %06x", w>>24&0x7F, w&RouterDataMask)
	}

	if err := r.Instruction(IRBypass); err != nil {
		return err
	}
	settle := cfg.SettleCycles
	if settle <= 0 {
		settle = DefaultSettleCycles
	}
	seq.RunIdle(settle)
	return seq.Err()
}
