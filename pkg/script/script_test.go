package script

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type memory map[uint32]uint32

func (m memory) Read(addr uint32) (uint32, error) { return m[addr], nil }

func (m memory) Write(addr, value uint32) error {
	m[addr] = value
	return nil
}

type failing struct{}

func (failing) Read(uint32) (uint32, error) { return 0, errors.New("bus fault") }
func (failing) Write(uint32, uint32) error  { return errors.New("bus fault") }

func newEnv(mem memory) (*Env, *bytes.Buffer, *[]time.Duration) {
	var out bytes.Buffer
	var slept []time.Duration
	env := &Env{
		Mem:       mem,
		Out:       &out,
		Symbols:   map[string]uint32{"debug": 0x80001000},
		DCCSettle: time.Millisecond,
		Sleep:     func(d time.Duration) { slept = append(slept, d) },
	}
	return env, &out, &slept
}

func TestRun(t *testing.T) {
	src := `
# public debug check
auth
read debug+0x314   # DBGPRSR
write debug + 0x80 0x1234_5678
read 0x80001080
dcc 42
sleep 250us
sleep 3
`
	p, err := ParseString("unlock.jb", src)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	mem := memory{0x80001FB8: 0xAF, 0x80001314: 0x1}
	env, out, slept := newEnv(mem)

	if err := p.Run(env); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := strings.Join([]string{
		"public invasive debug: granted",
		"public non-invasive debug: granted",
		"secure invasive debug: denied",
		"secure non-invasive debug: denied",
		"0x80001314: 0x00000001",
		"0x80001080 <- 0x12345678",
		"0x80001080: 0x12345678",
		"dcc <- 42",
	}, "\n") + "\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	if mem[0x80001080] != 42 {
		t.Errorf("DBGDTRRX = %d, want 42", mem[0x80001080])
	}
	wantSleeps := []time.Duration{time.Millisecond, 250 * time.Microsecond, 3 * time.Millisecond}
	if diff := cmp.Diff(wantSleeps, *slept); diff != "" {
		t.Errorf("sleeps mismatch (-want +got):\n%s", diff)
	}
}

func TestRunComponentID(t *testing.T) {
	mem := memory{}
	for i, b := range []uint32{0x0D, 0x90, 0x05, 0xB1} {
		mem[0x80001FF0+uint32(i)*4] = b
	}
	for i, b := range []uint32{0x08, 0xBC, 0x0B, 0x00} {
		mem[0x80001FE0+uint32(i)*4] = b
	}
	mem[0x80001FD0] = 0x04

	p, err := ParseString("id.jb", "id")
	if err != nil {
		t.Fatal(err)
	}
	env, out, _ := newEnv(mem)
	if err := p.Run(env); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.HasPrefix(out.String(), "0x80001000: class 0x9 part 0xc08") {
		t.Errorf("output = %q", out.String())
	}
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"unknown command":   "erase 0x0",
		"missing argument":  "read",
		"extra argument":    "write 1 2 3",
		"duration as addr":  "read 10ms",
		"dangling plus":     "read debug+",
		"duration in a sum": "sleep 1ms+2",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseString("bad.jb", src); err == nil {
				t.Errorf("ParseString(%q) succeeded", src)
			}
		})
	}
}

func TestRunErrors(t *testing.T) {
	tests := map[string]string{
		"undefined symbol": "read rom+4",
		"overflow":         "read 0xFFFFFFFF+1",
		"too wide":         "read 0x100000000",
		"sleep symbol":     "sleep debug",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			p, err := ParseString("bad.jb", src)
			if err != nil {
				t.Fatalf("ParseString: %v", err)
			}
			env, _, _ := newEnv(memory{})
			if err := p.Run(env); err == nil {
				t.Errorf("Run(%q) succeeded", src)
			}
		})
	}
}

func TestRunStopsAtFirstError(t *testing.T) {
	p, err := ParseString("fail.jb", "write 0x0 1\nread 0x4\n")
	if err != nil {
		t.Fatal(err)
	}
	env, out, _ := newEnv(nil)
	env.Mem = failing{}

	err = p.Run(env)
	if err == nil || !strings.Contains(err.Error(), "fail.jb:1:1: write: bus fault") {
		t.Errorf("error = %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("output after failure: %q", out.String())
	}
}

func TestParseFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "auth.jb")
	if err := os.WriteFile(file, []byte("auth 0x80001000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := ParseFile(file)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(p.Statements) != 1 || p.Statements[0].Command != "auth" {
		t.Errorf("statements = %+v", p.Statements)
	}
	if _, err := ParseFile(filepath.Join(t.TempDir(), "none.jb")); err == nil {
		t.Error("ParseFile of a missing file succeeded")
	}
}
