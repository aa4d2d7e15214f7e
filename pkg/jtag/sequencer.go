package jtag

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/OpenTraceLab/jbang/internal/logging"
	"github.com/OpenTraceLab/jbang/pkg/tap"
)

// MaxShiftBits is the widest single shift a Scan accepts.
const MaxShiftBits = 64

// Sequencer bit-bangs the TAP through a Pins provider. It tracks the exact
// IEEE 1149.1 state in lockstep with every TCK pulse and walks the state
// graph between three resting phases: Reset, Idle and Shifting.
//
// A Sequencer owns its pins; nothing else may toggle them while it is in use.
// It is not safe for concurrent use.
type Sequencer struct {
	pins    Pins
	machine *tap.StateMachine

	// gen identifies the active scan; every exit from a shift phase bumps it
	// so stale *Scan handles are rejected.
	gen    uint64
	pulses uint64

	log *logrus.Entry
}

// SequencerOption configures a Sequencer.
type SequencerOption func(*Sequencer)

// WithLogger replaces the default "jtag" log entry.
func WithLogger(l *logrus.Entry) SequencerOption {
	return func(s *Sequencer) { s.log = l }
}

// NewSequencer takes ownership of pins. The TAP is assumed to be in
// Test-Logic-Reset until Reset is called.
func NewSequencer(pins Pins, opts ...SequencerOption) *Sequencer {
	s := &Sequencer{
		pins:    pins,
		machine: tap.NewStateMachine(),
		log:     logging.For("jtag"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init runs the provider's one-time setup.
func (s *Sequencer) Init() error {
	if err := s.pins.Init(); err != nil {
		return fmt.Errorf("jtag: pin init: %w", err)
	}
	return nil
}

// State reports the exact TAP controller state.
func (s *Sequencer) State() tap.State { return s.machine.State() }

// Phase reports the coarse phase of the TAP controller.
func (s *Sequencer) Phase() tap.Phase { return tap.PhaseOf(s.machine.State()) }

// Pulses counts TCK pulses issued since construction.
func (s *Sequencer) Pulses() uint64 { return s.pulses }

// RTCK samples the returned clock.
func (s *Sequencer) RTCK() bool { return s.pins.RTCK() }

// Err returns the first error latched by the pin provider.
func (s *Sequencer) Err() error {
	if err := PinsErr(s.pins); err != nil {
		return fmt.Errorf("jtag: pins: %w", err)
	}
	return nil
}

func (s *Sequencer) pulse() {
	s.pins.SetTCK(true)
	s.pins.SetTCK(false)
	s.pulses++
}

func (s *Sequencer) clock(tms []bool) {
	for _, bit := range tms {
		s.pins.SetTMS(bit)
		s.pulse()
		s.machine.Clock(bit)
	}
}

func (s *Sequencer) walk(to tap.State) {
	tms, err := tap.Path(s.machine.State(), to)
	if err != nil {
		// Both ends are always valid states.
		panic(err)
	}
	s.clock(tms)
}

// Reset asserts TRST while clocking five TMS=1 cycles, then releases TRST.
// Either mechanism alone reaches Test-Logic-Reset from any state.
func (s *Sequencer) Reset() {
	s.pins.SetTRST(false)
	s.pins.SetTCK(false)
	s.pins.SetTDI(true)
	for _, bit := range s.machine.Reset() {
		s.pins.SetTMS(bit)
		s.pulse()
	}
	s.pins.SetTRST(true)
	s.gen++
	s.log.Debug("reset")
}

// Commit leaves the shift phase through Exit1 into Update, which latches
// the shifted value. From Test-Logic-Reset it clocks once into Run-Test/Idle.
// It is a no-op when already idle, so calling it twice equals calling it once.
func (s *Sequencer) Commit() {
	switch s.machine.State() {
	case tap.StateCaptureDR, tap.StateShiftDR:
		s.walk(tap.StateUpdateDR)
		s.log.Debug("commit dr")
	case tap.StateCaptureIR, tap.StateShiftIR:
		s.walk(tap.StateUpdateIR)
		s.log.Debug("commit ir")
	case tap.StateTestLogicReset:
		s.walk(tap.StateRunTestIdle)
	}
	s.gen++
}

// RunIdle commits and then clocks n cycles in Run-Test/Idle.
func (s *Sequencer) RunIdle(n int) {
	s.Commit()
	for i := 0; i < n; i++ {
		s.pins.SetTMS(false)
		s.pulse()
		s.machine.Clock(false)
	}
	s.log.Debugf("run <%d>", n)
}

// EnterDR commits and walks into Capture-DR. The returned scan is valid
// until the next state-changing call on the sequencer.
func (s *Sequencer) EnterDR() *Scan {
	return s.enter(tap.StateCaptureDR, "dr")
}

// EnterIR commits and walks into Capture-IR.
func (s *Sequencer) EnterIR() *Scan {
	return s.enter(tap.StateCaptureIR, "ir")
}

func (s *Sequencer) enter(capture tap.State, name string) *Scan {
	s.Commit()
	s.walk(capture)
	s.gen++
	return &Scan{seq: s, gen: s.gen, name: name}
}

// ScanDR shifts nbits through the selected data register and commits.
func (s *Sequencer) ScanDR(nbits int, out uint64) (uint64, error) {
	return s.EnterDR().transfer(nbits, out)
}

// ScanIR shifts nbits through the instruction register and commits.
func (s *Sequencer) ScanIR(nbits int, out uint64) (uint64, error) {
	return s.EnterIR().transfer(nbits, out)
}

// Scan is the handle for one register scan in progress. Only the scan most
// recently entered may shift.
type Scan struct {
	seq  *Sequencer
	gen  uint64
	name string
}

// Active reports whether the scan may still shift.
func (sc *Scan) Active() bool {
	return sc.gen == sc.seq.gen && sc.seq.Phase() == tap.PhaseShifting
}

// Shift clocks nbits (at most 64) through the scan register, LSB first,
// returning the captured bits.
//
// Each bit costs one pulse followed by TDI and TDO: the first pulse leaves
// Capture (loading the register) and puts captured bit 0 on TDO; every later
// pulse shifts in the previous TDI bit. The final TDI bit is clocked in by the
// first TMS=1 pulse of Commit or by the first pulse of the next Shift.
func (sc *Scan) Shift(nbits int, out uint64) (uint64, error) {
	if !sc.Active() {
		return 0, ErrNotShifting
	}
	if nbits < 0 || nbits > MaxShiftBits {
		return 0, fmt.Errorf("jtag: cannot shift %d bits at once", nbits)
	}
	s := sc.seq
	var in uint64
	for i := 0; i < nbits; i++ {
		s.pulse()
		s.machine.Clock(false)
		s.pins.SetTDI(out>>uint(i)&1 == 1)
		if s.pins.TDO() {
			in |= 1 << uint(i)
		}
	}
	s.log.Debugf("%s <%d> 0x%x / 0x%x", sc.name, nbits, in, out)
	return in, s.Err()
}

// Commit ends the scan. It does nothing if the scan is no longer active.
func (sc *Scan) Commit() {
	if sc.Active() {
		sc.seq.Commit()
	}
}

func (sc *Scan) transfer(nbits int, out uint64) (uint64, error) {
	in, err := sc.Shift(nbits, out)
	sc.Commit()
	if err != nil {
		return 0, err
	}
	return in, sc.seq.Err()
}
