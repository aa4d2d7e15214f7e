package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/OpenTraceLab/jbang/internal/logging"
	"github.com/OpenTraceLab/jbang/pkg/dap"
	"github.com/OpenTraceLab/jbang/pkg/icepick"
	"github.com/OpenTraceLab/jbang/pkg/jtag"
	"github.com/OpenTraceLab/jbang/pkg/pinio"
	"github.com/OpenTraceLab/jbang/pkg/sim"
	"github.com/OpenTraceLab/jbang/pkg/target"
)

// backends maps a pins backend name to its constructor.
var backends = map[string]func(target.Pins) (jtag.Pins, error){
	"sim": func(target.Pins) (jtag.Pins, error) {
		return sim.NewTarget(), nil
	},
	"padconf": func(p target.Pins) (jtag.Pins, error) {
		pc, err := pinio.NewPadconf(pinNames(p))
		if err != nil {
			return nil, err
		}
		return pc, nil
	},
	"periph": func(p target.Pins) (jtag.Pins, error) {
		pp, err := pinio.NewPeriph(pinNames(p))
		if err != nil {
			return nil, err
		}
		return pp, nil
	},
	"rpio": func(p target.Pins) (jtag.Pins, error) {
		r, err := pinio.NewRpio(pinNames(p))
		if err != nil {
			return nil, err
		}
		return r, nil
	},
	"cmsis-dap": func(p target.Pins) (jtag.Pins, error) {
		return jtag.NewCMSISDAPPins(p.Serial, p.ClockHz), nil
	},
}

func backendList() string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func pinNames(p target.Pins) pinio.Names {
	return pinio.Names{TRST: p.TRST, TCK: p.TCK, TMS: p.TMS, TDI: p.TDI, TDO: p.TDO, RTCK: p.RTCK}
}

// loadProfile resolves --config, --profile and the pin overrides.
func loadProfile() (target.Profile, error) {
	var (
		p   target.Profile
		err error
	)
	switch {
	case configFile != "":
		p, err = target.Load(configFile)
	case profileName != "":
		p, err = target.Lookup(profileName)
	default:
		p, err = target.Lookup(target.Default)
	}
	if err != nil {
		return p, err
	}
	if pinsBackend != "" {
		p.Pins.Backend = pinsBackend
	}
	if probeSerial != "" {
		p.Pins.Serial = probeSerial
	}
	return p, p.Validate()
}

// session is a target brought up to the point the command needs.
type session struct {
	profile target.Profile
	pins    jtag.Pins
	seq     *jtag.Sequencer
	engine  *dap.Engine
	mem     *dap.MemAP
}

// openSession opens the pins and runs the ICEPick bring-up. With initDAP it
// also powers up the debug port and selects the memory AP.
func openSession(initDAP bool) (*session, error) {
	p, err := loadProfile()
	if err != nil {
		return nil, err
	}
	open, ok := backends[p.Pins.Backend]
	if !ok {
		return nil, fmt.Errorf("unknown pins backend %q (want one of %s)", p.Pins.Backend, backendList())
	}
	pins, err := open(p.Pins)
	if err != nil {
		return nil, fmt.Errorf("%s pins: %w", p.Pins.Backend, err)
	}

	s := &session{profile: p, pins: pins, seq: jtag.NewSequencer(pins)}
	logging.For("jbang").Debugf("profile %s, %s pins", p.Name, p.Pins.Backend)

	if err := s.bringUp(initDAP); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) bringUp(initDAP bool) error {
	if err := s.seq.Init(); err != nil {
		return err
	}
	if err := icepick.BringUp(s.seq, s.profile.ICEPickConfig()); err != nil {
		return fmt.Errorf("icepick: %w", err)
	}
	if !initDAP {
		return nil
	}
	s.engine = dap.NewEngine(s.seq, dap.WithTDO(s.profile.HasTDO))
	if err := s.engine.Init(s.profile.DAPConfig()); err != nil {
		return fmt.Errorf("dap: %w", err)
	}
	s.mem = dap.NewMemAP(s.engine)
	return nil
}

// requireTDO rejects commands whose only output is read back through TDO.
func (s *session) requireTDO(what string) error {
	if !s.profile.HasTDO {
		return fmt.Errorf("%s needs TDO, profile %s has none", what, s.profile.Name)
	}
	return nil
}

func (s *session) Close() error {
	if c, ok := s.pins.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
