// Package target holds per-board bring-up profiles. Built-in profiles are
// embedded YAML; user files extend one of them and override fields.
package target

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/OpenTraceLab/jbang/pkg/dap"
	"github.com/OpenTraceLab/jbang/pkg/icepick"
)

// Default is the profile used when none is named.
const Default = "am335x"

// ErrUnknownProfile is returned by Lookup for a name with no built-in
// profile.
var ErrUnknownProfile = errors.New("target: unknown profile")

// Profile describes one board: how to reach the router, what to write to
// it, and how the pins are driven.
type Profile struct {
	Name        string `yaml:"name"`
	Extends     string `yaml:"extends,omitempty"`
	Description string `yaml:"description,omitempty"`

	// HasTDO is false when TDO is not wired back; all checks are skipped.
	HasTDO bool `yaml:"has_tdo"`

	ICEPick ICEPick `yaml:"icepick"`
	DAP     DAP     `yaml:"dap"`

	// DebugBase is the core debug component on the selected AP.
	DebugBase uint32 `yaml:"debug_base"`
	// DCCSettle is how long to wait after a DCC write.
	DCCSettle time.Duration `yaml:"dcc_settle"`

	Pins Pins `yaml:"pins"`
}

// ICEPick is the router part of a profile.
type ICEPick struct {
	IDCodeMask   uint32   `yaml:"idcode_mask"`
	IDCodeMatch  uint32   `yaml:"idcode_match"`
	RouterWords  []uint32 `yaml:"router_words"`
	SettleCycles int      `yaml:"settle_cycles"`
}

// DAP is the debug port part of a profile.
type DAP struct {
	IDCode   uint32 `yaml:"idcode"`
	PowerUp  uint32 `yaml:"power_up"`
	APSelect uint8  `yaml:"ap_select"`
	APCSW    uint32 `yaml:"ap_csw"`
}

// Pins selects and configures the pin provider. Signal names are provider
// specific: pad indices, BCM numbers or periph pin names.
type Pins struct {
	Backend string `yaml:"backend"`

	TRST string `yaml:"trst,omitempty"`
	TCK  string `yaml:"tck,omitempty"`
	TMS  string `yaml:"tms,omitempty"`
	TDI  string `yaml:"tdi,omitempty"`
	TDO  string `yaml:"tdo,omitempty"`
	RTCK string `yaml:"rtck,omitempty"`

	// Serial picks a CMSIS-DAP probe when several are attached.
	Serial string `yaml:"serial,omitempty"`
	// ClockHz is the CMSIS-DAP SWJ clock; zero keeps the probe default.
	ClockHz uint32 `yaml:"clock_hz,omitempty"`
}

// ICEPickConfig returns the bring-up recipe.
func (p Profile) ICEPickConfig() icepick.Config {
	return icepick.Config{
		HasTDO:       p.HasTDO,
		IDCodeMask:   p.ICEPick.IDCodeMask,
		IDCodeMatch:  p.ICEPick.IDCodeMatch,
		RouterWords:  append([]uint32(nil), p.ICEPick.RouterWords...),
		SettleCycles: p.ICEPick.SettleCycles,
	}
}

// DAPConfig returns the debug port setup.
func (p Profile) DAPConfig() dap.Config {
	return dap.Config{
		IDCode:   p.DAP.IDCode,
		PowerUp:  p.DAP.PowerUp,
		APSelect: p.DAP.APSelect,
		APCSW:    p.DAP.APCSW,
	}
}

// Validate checks the fields that would otherwise fail deep inside
// bring-up.
func (p Profile) Validate() error {
	if p.Name == "" {
		return errors.New("target: profile has no name")
	}
	if p.HasTDO && p.ICEPick.IDCodeMatch&^p.ICEPick.IDCodeMask != 0 {
		return fmt.Errorf("target: %s: idcode_match 0x%08x has bits outside idcode_mask 0x%08x",
			p.Name, p.ICEPick.IDCodeMatch, p.ICEPick.IDCodeMask)
	}
	if len(p.ICEPick.RouterWords) == 0 {
		return fmt.Errorf("target: %s: no router_words", p.Name)
	}
	for _, w := range p.ICEPick.RouterWords {
		if w&icepick.RouterWrite != 0 {
			return fmt.Errorf("target: %s: router word 0x%08x has the write flag set", p.Name, w)
		}
	}
	if p.ICEPick.SettleCycles < 0 {
		return fmt.Errorf("target: %s: negative settle_cycles", p.Name)
	}
	if p.DebugBase&0xFFF != 0 {
		return fmt.Errorf("target: %s: debug_base 0x%08x is not 4KB aligned", p.Name, p.DebugBase)
	}
	if p.Pins.Backend == "" {
		return fmt.Errorf("target: %s: no pins backend", p.Name)
	}
	return nil
}

//go:embed profiles/*.yaml
var builtinFS embed.FS

var builtin = map[string][]byte{}

func init() {
	entries, err := builtinFS.ReadDir("profiles")
	if err != nil {
		panic(err)
	}
	for _, e := range entries {
		data, err := builtinFS.ReadFile(path.Join("profiles", e.Name()))
		if err != nil {
			panic(err)
		}
		builtin[strings.TrimSuffix(e.Name(), ".yaml")] = data
	}
}

// Names lists the built-in profiles.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a built-in profile.
func Lookup(name string) (Profile, error) {
	return lookup(name, 0)
}

func lookup(name string, depth int) (Profile, error) {
	data, ok := builtin[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w %q (have %s)", ErrUnknownProfile, name, strings.Join(Names(), ", "))
	}
	return parse(data, depth)
}

// Load reads a profile file.
func Load(file string) (Profile, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return Profile{}, fmt.Errorf("target: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return Profile{}, fmt.Errorf("%s: %w", file, err)
	}
	return p, nil
}

// Parse decodes a profile document. A document naming a profile in
// "extends" starts from that profile; fields it sets replace the base
// values, lists and the pins section included.
func Parse(data []byte) (Profile, error) {
	return parse(data, 0)
}

const maxExtends = 8

func parse(data []byte, depth int) (Profile, error) {
	var head struct {
		Extends string `yaml:"extends"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return Profile{}, fmt.Errorf("target: %w", err)
	}

	var p Profile
	if head.Extends != "" {
		if depth >= maxExtends {
			return Profile{}, fmt.Errorf("target: extends chain deeper than %d at %q", maxExtends, head.Extends)
		}
		base, err := lookup(head.Extends, depth+1)
		if err != nil {
			return Profile{}, err
		}
		p = base
		// A pins section is replaced, not merged.
		if hasKey(data, "pins") {
			p.Pins = Pins{}
		}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Profile{}, fmt.Errorf("target: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func hasKey(data []byte, key string) bool {
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return false
	}
	_, ok := doc[key]
	return ok
}

// Marshal renders p as YAML.
func (p Profile) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}
