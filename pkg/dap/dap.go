// Package dap drives an ARM ADIv5 JTAG-DP sitting behind an ICEPick router.
//
// Every DPACC/APACC scan returns the acknowledge and data of the transaction
// submitted before it. Engine makes that delay explicit: Transact hands back
// a Pending for the transaction it just submitted and a Response labelled
// with the Pending it actually answers.
package dap

import (
	"errors"
	"fmt"
)

// IRLength is the width of the JTAG-DP instruction register.
const IRLength = 4

// IR is a JTAG-DP instruction.
type IR uint8

const (
	IRAbort  IR = 0b1000
	IRDPACC  IR = 0b1010
	IRAPACC  IR = 0b1011
	IRIDCode IR = 0b1110
	IRBypass IR = 0b1111

	// IRNone marks the cached instruction as unknown; it is never scanned.
	IRNone IR = 0xFF
)

func (ir IR) known() bool {
	switch ir {
	case IRAbort, IRDPACC, IRAPACC, IRIDCode, IRBypass:
		return true
	}
	return false
}

func (ir IR) String() string {
	switch ir {
	case IRAbort:
		return "abort"
	case IRDPACC:
		return "dpacc"
	case IRAPACC:
		return "apacc"
	case IRIDCode:
		return "idcode"
	case IRBypass:
		return "bypass"
	case IRNone:
		return "none"
	}
	return fmt.Sprintf("IR(0b%04b)", uint8(ir))
}

// Access opcodes: A[3:2] in bits 2:1, RnW in bit 0.
const (
	OpDPAbort = 0b000 // IRAbort, argument 1 sets DAPABORT

	OpDPWriteCSW    = 0b010
	OpDPReadCSW     = 0b011
	OpDPWriteSelect = 0b100
	OpDPNop         = 0b110 // write to RDBUFF, ignored by the DP

	OpAPWriteCSW  = 0b000
	OpAPReadCSW   = 0b001
	OpAPWriteAddr = 0b010
	OpAPReadAddr  = 0b011
	OpAPWriteData = 0b110
	OpAPReadData  = 0b111
)

// AckOK is the OK/FAULT acknowledge. Anything else, including WAIT, is an
// error here since there is no retry.
const AckOK = 0b010

// CtrlStatReady is what CTRL/STAT reads once both power domains acknowledge
// and no sticky error is set.
const CtrlStatReady = 0xF0000000

var (
	// ErrAck is matched by every *AckError.
	ErrAck = errors.New("dap: unexpected acknowledge")
	// ErrUnknownIR reports a transaction on an instruction the engine does
	// not drive.
	ErrUnknownIR = errors.New("dap: unknown instruction")
	// ErrStalePending reports a CheckedRead of something other than the
	// most recently submitted transaction.
	ErrStalePending = errors.New("dap: pending transaction already flushed")
)

// AckError is a bad acknowledge. It belongs to the transaction in For, the
// one before the scan that observed it.
type AckError struct {
	Ack uint8
	For Pending
}

func (e *AckError) Error() string {
	return fmt.Sprintf("dap: status code 0b%03b after %s", e.Ack, e.For)
}

func (e *AckError) Is(target error) bool {
	return target == ErrAck
}

// Pending identifies a submitted transaction whose result has not been
// clocked out yet. The zero value is no transaction.
type Pending struct {
	id uint64
	IR IR
	Op uint8
}

// Valid reports whether p names a transaction.
func (p Pending) Valid() bool { return p.id != 0 }

func (p Pending) String() string {
	if !p.Valid() {
		return "no transaction"
	}
	return fmt.Sprintf("#%d %s/0b%03b", p.id, p.IR, p.Op)
}

// Response is what a scan clocked out: the data of the transaction in For.
// When For is not Valid the data is stale chain content.
type Response struct {
	Data uint32
	For  Pending
}
