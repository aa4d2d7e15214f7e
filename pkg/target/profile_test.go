package target

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLookupAM335x(t *testing.T) {
	p, err := Lookup(Default)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	want := Profile{
		Name:        "am335x",
		Description: "AM335x Cortex-A8 unlock through padconf bit-banging",
		HasTDO:      true,
		ICEPick: ICEPick{
			IDCodeMask:   0x0FFFFFFF,
			IDCodeMatch:  0x0B94402F,
			RouterWords:  []uint32{0x60002000, 0x2C002100},
			SettleCycles: 16,
		},
		DAP: DAP{
			IDCode:   0x3BA00477,
			PowerUp:  0x50000032,
			APSelect: 1,
			APCSW:    0xE3000012,
		},
		DebugBase: 0x80001000,
		DCCSettle: time.Millisecond,
		Pins: Pins{
			Backend: "padconf",
			TRST:    "120",
			TCK:     "119",
			TMS:     "116",
			TDI:     "117",
			TDO:     "121",
		},
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}

	cfg := p.ICEPickConfig()
	if !cfg.HasTDO || cfg.IDCodeMatch != 0x0B94402F || len(cfg.RouterWords) != 2 {
		t.Errorf("icepick config = %+v", cfg)
	}
	if got := p.DAPConfig().APSelect; got != 1 {
		t.Errorf("ap select = %d", got)
	}
}

func TestBuiltinsExtend(t *testing.T) {
	tests := []struct {
		name    string
		hasTDO  bool
		backend string
		tdo     string
	}{
		{name: "am335x-notdo", hasTDO: false, backend: "padconf"},
		{name: "am335x-cmsisdap", hasTDO: true, backend: "cmsis-dap"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Lookup(tc.name)
			if err != nil {
				t.Fatalf("Lookup: %v", err)
			}
			if p.Name != tc.name || p.Extends != Default {
				t.Errorf("name=%q extends=%q", p.Name, p.Extends)
			}
			if p.HasTDO != tc.hasTDO || p.Pins.Backend != tc.backend || p.Pins.TDO != tc.tdo {
				t.Errorf("has_tdo=%v pins=%+v", p.HasTDO, p.Pins)
			}
			// Inherited from the base profile.
			if diff := cmp.Diff([]uint32{0x60002000, 0x2C002100}, p.ICEPick.RouterWords); diff != "" {
				t.Errorf("router words (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNames(t *testing.T) {
	want := []string{"am335x", "am335x-cmsisdap", "am335x-notdo"}
	if diff := cmp.Diff(want, Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, err := Lookup("omap4"); !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("error = %v, want ErrUnknownProfile", err)
	}
}

func TestParseOverrides(t *testing.T) {
	p, err := Parse([]byte(`
name: bench
extends: am335x
icepick:
  settle_cycles: 64
pins:
  backend: rpio
  trst: "4"
  tck: "17"
  tms: "27"
  tdi: "22"
  tdo: "23"
dcc_settle: 5ms
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.ICEPick.SettleCycles != 64 || p.ICEPick.IDCodeMatch != 0x0B94402F {
		t.Errorf("icepick = %+v", p.ICEPick)
	}
	if p.DCCSettle != 5*time.Millisecond {
		t.Errorf("dcc_settle = %v", p.DCCSettle)
	}
	want := Pins{Backend: "rpio", TRST: "4", TCK: "17", TMS: "27", TDI: "22", TDO: "23"}
	if diff := cmp.Diff(want, p.Pins); diff != "" {
		t.Errorf("pins mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"unknown field": "name: x\nextends: am335x\nbogus: 1\n",
		"unknown base":  "name: x\nextends: nope\n",
		"mask":          "name: x\nextends: am335x\nicepick:\n  idcode_mask: 0x0000FFFF\n",
		"write flag":    "name: x\nextends: am335x\nicepick:\n  router_words: [0xE0002000]\n",
		"no router":     "name: x\nextends: am335x\nicepick:\n  router_words: []\n",
		"alignment":     "name: x\nextends: am335x\ndebug_base: 0x80001004\n",
		"no name":       "extends: am335x\nname: \"\"\n",
		"no backend":    "name: x\nextends: am335x\npins:\n  trst: \"1\"\n",
		"syntax":        "name: [\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Errorf("Parse accepted %q", doc)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "board.yaml")
	if err := os.WriteFile(file, []byte("name: board\nextends: am335x-cmsisdap\npins:\n  backend: cmsis-dap\n  serial: E6614C311B\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Pins.Serial != "E6614C311B" || p.Pins.ClockHz != 0 {
		t.Errorf("pins = %+v", p.Pins)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load of a missing file succeeded")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	p, err := Lookup("am335x-cmsisdap")
	if err != nil {
		t.Fatal(err)
	}
	data, err := p.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v\n%s", err, data)
	}
	if diff := cmp.Diff(p, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
