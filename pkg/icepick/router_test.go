package icepick

import (
	"errors"
	"testing"

	"github.com/OpenTraceLab/jbang/pkg/jtag"
)

func TestRouterAfterLink(t *testing.T) {
	seq, target := newTarget(t)
	if err := BringUp(seq, am335xConfig()); err != nil {
		t.Fatalf("BringUp: %v", err)
	}

	// The DAP's 4-bit IR sits between ICEPick and TDO.
	r := NewLinkedRouter(seq, 4)
	if err := r.Select(); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := target.DAP.IR(); got != 0b1111 {
		t.Errorf("DAP IR = 0b%04b, want bypass", got)
	}
	if got := target.ICEPick.IR(); got != IRRouter {
		t.Errorf("ICEPick IR = 0b%06b, want router", got)
	}

	v, err := r.Read(0x2C)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if v != 0x002100 {
		t.Errorf("router[2c] = %06x, want 002100", v)
	}

	v, err = r.Store(0x24, 0x000123)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if v != 0x000123 || target.ICEPick.Register(0x24) != 0x000123 {
		t.Errorf("router[24] = %06x (readback %06x), want 000123", target.ICEPick.Register(0x24), v)
	}
}

func TestRouterReadRange(t *testing.T) {
	seq, _ := newTarget(t)
	r := NewRouter(seq)
	if _, err := r.Read(0x80); err == nil {
		t.Error("Read(0x80) succeeded")
	}
	if _, err := r.Store(0xFF, 0); err == nil {
		t.Error("Store(0xff) succeeded")
	}
}

func TestRouterReadbackMismatch(t *testing.T) {
	seq, _ := newTarget(t)
	seq.Reset()
	r := NewRouter(seq)
	if err := r.Connect(true); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	// Still on the connect instruction: the 8-bit register echoes the key,
	// not the router address.
	_, err := r.Read(0x2C)
	if !errors.Is(err, jtag.ErrMismatch) {
		t.Fatalf("error = %v, want mismatch", err)
	}
}
