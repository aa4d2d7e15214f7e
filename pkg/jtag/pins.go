package jtag

// Pins is the pin-level I/O capability the sequencer bit-bangs through. The
// setters are strict overwrites of the pin level. TRST is active low.
//
// Pin toggling has no error return. Providers backed by something that can
// fail (USB, mapped registers) latch the first failure and expose it through
// an Err() error method, which the sequencer checks at every scan boundary.
type Pins interface {
	// Init performs one-time platform setup: pin multiplexing, clock
	// enables, direction. It is called once before the first reset.
	Init() error

	SetTRST(level bool)
	SetTCK(level bool)
	SetTMS(level bool)
	SetTDI(level bool)

	TDO() bool
	// RTCK reports the returned clock; constant false when unsupported.
	RTCK() bool
}

type errorer interface {
	Err() error
}

// PinsErr returns the latched error of p, if p tracks one.
func PinsErr(p Pins) error {
	if e, ok := p.(errorer); ok {
		return e.Err()
	}
	return nil
}
