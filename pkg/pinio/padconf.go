package pinio

import (
	"errors"
	"fmt"
	"os"
)

// AM335x register windows.
const (
	am335xPRCM  = 0x44E00000
	am335xCtrl  = 0x44E10000
	am335xGPIO3 = 0x481AE000

	prcmGPIO3Clk   = 0x0B4 // CM_PER_GPIO3_CLKCTRL
	prcmDebugSSClk = 0x414 // CM_WKUP_DEBUGSS_CLKCTRL

	ctrlPad      = 0x800
	ctrlPadMax   = 384
	gpioDataIn   = 0x138
	moduleEnable = 0x2
)

// Pad configuration fields.
const (
	padMode7  = 7
	padPullUp = 2 << 3
	padRxEn   = 1 << 5
)

// tdoBit is GPIO3_7, the EMU0 ball muxed as a GPIO.
const tdoBit = 7

// moduleWait bounds the clock-domain ready poll.
const moduleWait = 100000

// ErrPadIgnored reports a padconf write that did not stick. The control
// module drops writes that are not made in a privileged mode.
var ErrPadIgnored = errors.New("pinio: padconf write ignored")

// Padconf bit-bangs JTAG on an AM335x's own debug inputs. Each input is
// pulled up inside the pad; clearing the pad's receiver enable makes the
// signal read as low, setting it lets the pull-up through. TDO comes back on
// GPIO3_7.
type Padconf struct {
	trst, tck, tms, tdi uint32
	tdo                 int

	prcm, ctrl, gpio Region

	closers []func() error
	err     error
}

// NewPadconf parses control-module pad indices. TDO may be empty.
func NewPadconf(names Names) (*Padconf, error) {
	trst, tck, tms, tdi, tdo, _, err := names.numbers()
	if err != nil {
		return nil, err
	}
	for _, pad := range []int{trst, tck, tms, tdi, tdo} {
		if pad >= ctrlPadMax {
			return nil, fmt.Errorf("pinio: padconf: pad %d out of range", pad)
		}
	}
	return &Padconf{
		trst: uint32(trst),
		tck:  uint32(tck),
		tms:  uint32(tms),
		tdi:  uint32(tdi),
		tdo:  tdo,
	}, nil
}

// UseRegions replaces /dev/mem with the given register windows.
func (p *Padconf) UseRegions(prcm, ctrl, gpio Region) {
	p.prcm, p.ctrl, p.gpio = prcm, ctrl, gpio
}

func (p *Padconf) Init() error {
	if p.ctrl == nil {
		if err := p.mapRegions(); err != nil {
			return err
		}
	}
	if err := p.enable(prcmDebugSSClk, "debugss"); err != nil {
		return err
	}
	if p.tdo >= 0 {
		p.writePad(uint32(p.tdo), padMode7|padPullUp|padRxEn)
		if err := p.enable(prcmGPIO3Clk, "gpio3"); err != nil {
			return err
		}
	}
	return p.err
}

func (p *Padconf) mapRegions() error {
	f, err := os.OpenFile("/dev/mem", os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return fmt.Errorf("pinio: padconf: %w", err)
	}
	defer f.Close()

	windows := []struct {
		phys uint32
		dst  *Region
	}{
		{am335xPRCM, &p.prcm},
		{am335xCtrl, &p.ctrl},
		{am335xGPIO3, &p.gpio},
	}
	for _, w := range windows {
		r, err := MapRegion(f, w.phys, 0x1000)
		if err != nil {
			p.Close()
			return err
		}
		*w.dst = r
		p.closers = append(p.closers, r.Close)
	}
	return nil
}

// enable turns on a module clock and waits for it to become functional.
func (p *Padconf) enable(reg uint32, name string) error {
	p.prcm.Write32(reg, p.prcm.Read32(reg)&^3|moduleEnable)
	for i := 0; i < moduleWait; i++ {
		if p.prcm.Read32(reg)>>16&3 == 0 {
			return nil
		}
	}
	return fmt.Errorf("pinio: padconf: %s module did not become ready", name)
}

func (p *Padconf) writePad(pad, v uint32) {
	if p.err != nil {
		return
	}
	off := ctrlPad + pad*4
	p.ctrl.Write32(off, v)
	if got := p.ctrl.Read32(off) & 0x7F; got != v {
		p.err = fmt.Errorf("%w: pad %d reads 0x%02x, wrote 0x%02x", ErrPadIgnored, pad, got, v)
	}
}

func (p *Padconf) input(pad uint32, level bool) {
	v := uint32(padPullUp)
	if level {
		v |= padRxEn
	}
	p.writePad(pad, v)
}

func (p *Padconf) SetTRST(level bool) { p.input(p.trst, level) }
func (p *Padconf) SetTCK(level bool)  { p.input(p.tck, level) }
func (p *Padconf) SetTMS(level bool)  { p.input(p.tms, level) }
func (p *Padconf) SetTDI(level bool)  { p.input(p.tdi, level) }

func (p *Padconf) TDO() bool {
	if p.tdo < 0 {
		return false
	}
	return p.gpio.Read32(gpioDataIn)>>tdoBit&1 == 1
}

// RTCK is not routed.
func (p *Padconf) RTCK() bool { return false }

// Err returns the first ignored pad write.
func (p *Padconf) Err() error { return p.err }

// Close unmaps the register windows.
func (p *Padconf) Close() error {
	var errs []error
	for _, c := range p.closers {
		errs = append(errs, c())
	}
	p.closers = nil
	return errors.Join(errs...)
}
