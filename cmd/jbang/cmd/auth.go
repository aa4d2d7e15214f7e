package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/jbang/pkg/coresight"
)

var authBase string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Show the debug authentication status of the core",
	Long: `Read DBGAUTHSTATUS of the core debug component and print which debug
privileges are granted or denied. Privileges that are not implemented are not
listed.`,
	Args: cobra.NoArgs,
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.Flags().StringVar(&authBase, "base", "", "debug component base (default from profile)")
}

func printAuth(w io.Writer, mem coresight.Memory, base uint32) error {
	a, err := coresight.ReadAuthStatus(mem, base)
	if err != nil {
		return err
	}
	for _, f := range a.Fields() {
		if f.Permission == coresight.NotImplemented {
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", f.Name, f.Permission)
	}
	return nil
}

func runAuth(cmd *cobra.Command, args []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.requireTDO("auth"); err != nil {
		return err
	}

	base := s.profile.DebugBase
	if authBase != "" {
		if base, err = parseWord(authBase); err != nil {
			return err
		}
	}
	return printAuth(cmd.OutOrStdout(), s.mem, base)
}
