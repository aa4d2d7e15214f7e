package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// execute runs the root command with fresh flag state and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	verbose, quiet = false, false
	profileName, configFile, pinsBackend, probeSerial = "", "", "", ""
	noProgress, dccValue, authBase = false, -1, ""
	icepickRegs, defines = nil, nil
	skipUSB = false

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if err != nil {
		t.Logf("stderr:\n%s", errOut.String())
	}
	return out.String(), err
}

func TestCommandsE2E(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "unlock.jb")
	err := os.WriteFile(scriptPath, []byte(`# auth then a DCC word
auth
read debug+0xfb8
dcc 7
sleep 1ms
`), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	authLines := []string{
		"public invasive debug: granted",
		"public non-invasive debug: granted",
		"secure invasive debug: denied",
		"secure non-invasive debug: denied",
	}

	tests := []struct {
		name        string
		args        []string
		wantErr     string
		wantContain []string
	}{
		{
			name:        "read",
			args:        []string{"--pins", "sim", "read", "0x80001fb8"},
			wantContain: []string{"0x80001fb8: 0x000000af"},
		},
		{
			name:        "write",
			args:        []string{"--pins", "sim", "write", "0x80001080", "0x1234"},
			wantContain: []string{"0x80001080 <- 0x00001234"},
		},
		{
			name:        "dump",
			args:        []string{"--pins", "sim", "dump", "--no-progress", "0x80001ff0", "4"},
			wantContain: []string{"80001ff0: 0000000d 00000090 00000005 000000b1"},
		},
		{
			name:        "auth",
			args:        []string{"--pins", "sim", "auth"},
			wantContain: authLines,
		},
		{
			name:        "unlock",
			args:        []string{"--pins", "sim", "unlock", "--value", "42"},
			wantContain: append(append([]string{}, authLines...), "value: 42", "dcc rx pending: true"),
		},
		{
			name:        "icepick",
			args:        []string{"--pins", "sim", "icepick"},
			wantContain: []string{"icepick [60]: 002000", "icepick [2c]: 002100"},
		},
		{
			name:        "icepick explicit register",
			args:        []string{"--pins", "sim", "icepick", "--reg", "0x2c"},
			wantContain: []string{"icepick [2c]: 002100"},
		},
		{
			name:        "run",
			args:        []string{"--pins", "sim", "run", scriptPath},
			wantContain: append(append([]string{}, authLines...), "0x80001fb8: 0x000000af", "dcc <- 7"),
		},
		{
			name:        "interfaces",
			args:        []string{"interfaces", "--no-usb"},
			wantContain: []string{"cmsis-dap, padconf, periph, rpio, sim", "am335x-notdo"},
		},
		{
			name:    "read without TDO",
			args:    []string{"--pins", "sim", "--profile", "am335x-notdo", "read", "0x80001fb8"},
			wantErr: "needs TDO",
		},
		{
			name:    "unknown backend",
			args:    []string{"--pins", "jlink", "read", "0"},
			wantErr: "unknown pins backend",
		},
		{
			name:    "unknown profile",
			args:    []string{"--pins", "sim", "--profile", "omap4", "auth"},
			wantErr: "unknown profile",
		},
		{
			name:    "bad address",
			args:    []string{"--pins", "sim", "read", "0xfoo"},
			wantErr: "bad value",
		},
		{
			name:    "unaligned dump",
			args:    []string{"--pins", "sim", "dump", "--no-progress", "0x80001002", "2"},
			wantErr: "unaligned",
		},
		{
			name:    "bad define",
			args:    []string{"--pins", "sim", "run", "-D", "nothing", scriptPath},
			wantErr: "bad define",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want one containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v\nOutput: %s", err, out)
			}
			for _, want := range tt.wantContain {
				if !strings.Contains(out, want) {
					t.Errorf("Output missing expected string: %q\nGot:\n%s", want, out)
				}
			}
		})
	}
}

func TestNotDOUnlock(t *testing.T) {
	out, err := execute(t, "--pins", "sim", "--profile", "am335x-notdo", "unlock", "--value", "5")
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if strings.Contains(out, "debug:") || strings.Contains(out, "pending") {
		t.Errorf("readback reported without TDO:\n%s", out)
	}
	if !strings.Contains(out, "value: 5") {
		t.Errorf("missing sent value:\n%s", out)
	}
}

func TestDescribeMismatch(t *testing.T) {
	_, err := execute(t, "--pins", "sim", "--config", writeProfile(t, `
name: wrong-silicon
extends: am335x
icepick:
  idcode_match: 0x0B95502F
`), "auth")
	if err == nil {
		t.Fatal("bring-up accepted the wrong IDCODE")
	}
	msg := describe(err)
	for _, want := range []string{"device not recognized", `check "icepick idcode"`, "0xB94402F"} {
		if !strings.Contains(msg, want) {
			t.Errorf("describe() = %q, missing %q", msg, want)
		}
	}
}

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
