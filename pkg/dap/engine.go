package dap

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/OpenTraceLab/jbang/internal/logging"
	"github.com/OpenTraceLab/jbang/pkg/icepick"
	"github.com/OpenTraceLab/jbang/pkg/idcode"
	"github.com/OpenTraceLab/jbang/pkg/jtag"
)

// Engine issues DP and AP transactions through a sequencer whose chain is
// the DAP followed by ICEPick in bypass. It caches the DAP instruction so
// consecutive accesses on the same port skip the IR scan.
type Engine struct {
	seq    *jtag.Sequencer
	hasTDO bool
	log    *logrus.Entry

	ir    IR
	count uint64
	last  Pending
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger replaces the default "dap" log entry.
func WithLogger(l *logrus.Entry) Option {
	return func(e *Engine) { e.log = l }
}

// WithTDO controls acknowledge and status checking. Without TDO every
// captured value is meaningless and no check is made.
func WithTDO(has bool) Option {
	return func(e *Engine) { e.hasTDO = has }
}

// NewEngine returns an engine for a DAP that has just been linked into the
// chain, so its IR still holds IDCODE.
func NewEngine(seq *jtag.Sequencer, opts ...Option) *Engine {
	e := &Engine{
		seq:    seq,
		hasTDO: true,
		log:    logging.For("dap"),
		ir:     IRIDCode,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sequencer returns the underlying sequencer.
func (e *Engine) Sequencer() *jtag.Sequencer { return e.seq }

// HasTDO reports whether results are checked.
func (e *Engine) HasTDO() bool { return e.hasTDO }

// CachedIR returns the instruction the engine believes the DAP holds.
func (e *Engine) CachedIR() IR { return e.ir }

// Last returns the most recently submitted transaction.
func (e *Engine) Last() Pending { return e.last }

// Reset resets the TAP and forgets the cached instruction and pipeline.
func (e *Engine) Reset() {
	e.seq.Reset()
	e.ir = IRNone
	e.last = Pending{}
}

// SelectIR loads ir into the DAP, with ICEPick kept in BYPASS in the same
// scan. It does nothing when ir is already cached.
func (e *Engine) SelectIR(ir IR) error {
	if !ir.known() {
		return fmt.Errorf("%w: 0b%04b", ErrUnknownIR, uint8(ir))
	}
	if ir == e.ir {
		return nil
	}
	out := uint64(ir) | uint64(icepick.IRBypass)<<IRLength
	if _, err := e.seq.ScanIR(IRLength+icepick.IRLength, out); err != nil {
		e.ir = IRNone
		return err
	}
	e.ir = ir
	return nil
}

// Transact submits one access and returns its handle together with the
// response to the previous one. The acknowledge checked here also belongs
// to the previous transaction.
func (e *Engine) Transact(ir IR, op uint8, arg uint32) (Pending, Response, error) {
	if op > 0b111 {
		return Pending{}, Response{}, fmt.Errorf("dap: opcode 0b%b out of range", op)
	}
	if err := e.SelectIR(ir); err != nil {
		return Pending{}, Response{}, err
	}

	sc := e.seq.EnterDR()
	ack, err := sc.Shift(3, uint64(op))
	if err != nil {
		sc.Commit()
		return Pending{}, Response{}, err
	}
	data, err := sc.Shift(32, uint64(arg))
	if err != nil {
		sc.Commit()
		return Pending{}, Response{}, err
	}
	// ICEPick's bypass bit.
	if _, err := sc.Shift(1, 0); err != nil {
		sc.Commit()
		return Pending{}, Response{}, err
	}
	e.seq.RunIdle(1)

	prev := e.last
	e.count++
	e.last = Pending{id: e.count, IR: ir, Op: op}
	resp := Response{Data: uint32(data), For: prev}
	e.log.Debugf("%s arg=%08x -> %08x (ack 0b%03b)", e.last, arg, resp.Data, ack)

	if err := e.seq.Err(); err != nil {
		return e.last, resp, err
	}
	if e.hasTDO && ack != AckOK {
		return e.last, resp, &AckError{Ack: uint8(ack), For: prev}
	}
	return e.last, resp, nil
}

func (e *Engine) submit(ir IR, op uint8, arg uint32) (Pending, error) {
	p, _, err := e.Transact(ir, op, arg)
	return p, err
}

// DPAbort sets DAPABORT.
func (e *Engine) DPAbort() (Pending, error) { return e.submit(IRAbort, OpDPAbort, 1) }

// DPWriteCSW writes DP CTRL/STAT.
func (e *Engine) DPWriteCSW(v uint32) (Pending, error) { return e.submit(IRDPACC, OpDPWriteCSW, v) }

// DPReadCSW requests DP CTRL/STAT.
func (e *Engine) DPReadCSW() (Pending, error) { return e.submit(IRDPACC, OpDPReadCSW, 0) }

// DPWriteSelect writes DP SELECT.
func (e *Engine) DPWriteSelect(v uint32) (Pending, error) {
	return e.submit(IRDPACC, OpDPWriteSelect, v)
}

// DPNop writes RDBUFF, which only flushes the pipeline.
func (e *Engine) DPNop() (Pending, error) { return e.submit(IRDPACC, OpDPNop, 0) }

func (e *Engine) APWriteCSW(v uint32) (Pending, error) { return e.submit(IRAPACC, OpAPWriteCSW, v) }
func (e *Engine) APReadCSW() (Pending, error)          { return e.submit(IRAPACC, OpAPReadCSW, 0) }
func (e *Engine) APWriteAddr(v uint32) (Pending, error) {
	return e.submit(IRAPACC, OpAPWriteAddr, v)
}
func (e *Engine) APReadAddr() (Pending, error) { return e.submit(IRAPACC, OpAPReadAddr, 0) }
func (e *Engine) APWriteData(v uint32) (Pending, error) {
	return e.submit(IRAPACC, OpAPWriteData, v)
}
func (e *Engine) APReadData() (Pending, error) { return e.submit(IRAPACC, OpAPReadData, 0) }

// CheckedRead flushes p, which must be the last submitted transaction, and
// returns its data. The flush reads CTRL/STAT, whose acknowledge completes
// p, and a final RDBUFF nop returns CTRL/STAT for the ready check.
func (e *Engine) CheckedRead(p Pending) (uint32, error) {
	if !p.Valid() || p != e.last {
		return 0, fmt.Errorf("%w: %s (last is %s)", ErrStalePending, p, e.last)
	}
	_, data, err := e.Transact(IRDPACC, OpDPReadCSW, 0)
	if err != nil {
		return 0, err
	}
	_, status, err := e.Transact(IRDPACC, OpDPNop, 0)
	if err != nil {
		return 0, err
	}
	if e.hasTDO {
		if err := jtag.Verify("dp ctrl/stat", uint64(status.Data), 0, CtrlStatReady); err != nil {
			err.(*jtag.MismatchError).Reason = "DP-CSW unexpected"
			return 0, err
		}
	}
	return data.Data, nil
}

// Config is the DAP part of a target profile.
type Config struct {
	IDCode   uint32
	PowerUp  uint32
	APSelect uint8
	APCSW    uint32
}

// DefaultConfig is the Cortex-A8 APB-AP setup of the AM335x.
func DefaultConfig() Config {
	return Config{
		IDCode:   0x3BA00477,
		PowerUp:  0x50000032,
		APSelect: 1,
		APCSW:    0xE3000012,
	}
}

// Init identifies the DAP, powers up the debug domains and selects the AP.
func (e *Engine) Init(cfg Config) error {
	if e.hasTDO {
		if err := e.SelectIR(IRIDCode); err != nil {
			return err
		}
		got, err := e.seq.ScanDR(32, 0)
		if err != nil {
			return err
		}
		e.log.Infof("DAP JTAG ID: %08x (%s)", got, idcode.ParseIDCode(uint32(got)))
		if err := jtag.Verify("dap idcode", got, 0, uint64(cfg.IDCode)); err != nil {
			err.(*jtag.MismatchError).Reason = "device not recognized"
			return err
		}
	}

	p, err := e.DPWriteCSW(cfg.PowerUp)
	if err != nil {
		return err
	}
	if _, err := e.CheckedRead(p); err != nil {
		return fmt.Errorf("dap: power-up: %w", err)
	}

	if _, err := e.DPWriteSelect(uint32(cfg.APSelect) << 24); err != nil {
		return err
	}
	if _, err := e.APWriteCSW(cfg.APCSW); err != nil {
		return err
	}
	e.log.Debugf("ap %d selected, csw=%08x", cfg.APSelect, cfg.APCSW)
	return nil
}
