package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/jbang/pkg/script"
)

var defines []string

var runCmd = &cobra.Command{
	Use:   "run SCRIPT",
	Short: "Run an access script against the target",
	Long: `Bring up the target and run a script of memory accesses. Use "-" to read the
script from stdin.

A script has one command per line:
  read ADDR            write ADDR VALUE       auth [BASE]
  dcc VALUE            sleep DURATION         id [BASE]

Numbers are decimal or 0x hex; arguments may add symbols, as in debug+0x88.
The symbol "debug" is the profile's debug base; --define adds more.`,
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringArrayVarP(&defines, "define", "D", nil, "define a symbol, NAME=VALUE")
}

func runScript(cmd *cobra.Command, args []string) error {
	var (
		prog *script.Program
		err  error
	)
	if args[0] == "-" {
		prog, err = script.Parse("stdin", cmd.InOrStdin())
	} else {
		prog, err = script.ParseFile(args[0])
	}
	if err != nil {
		return err
	}

	symbols := map[string]uint32{}
	for _, d := range defines {
		name, value, ok := strings.Cut(d, "=")
		if !ok || name == "" {
			return fmt.Errorf("bad define %q, want NAME=VALUE", d)
		}
		v, err := parseWord(value)
		if err != nil {
			return err
		}
		symbols[name] = v
	}

	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, ok := symbols["debug"]; !ok {
		symbols["debug"] = s.profile.DebugBase
	}
	return prog.Run(&script.Env{
		Mem:       s.mem,
		Out:       cmd.OutOrStdout(),
		Symbols:   symbols,
		DCCSettle: s.profile.DCCSettle,
	})
}
