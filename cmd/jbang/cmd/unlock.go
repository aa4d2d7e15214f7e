package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/jbang/pkg/coresight"
)

var dccValue int64

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Bring up the debug subsystem and exchange a word over DCC",
	Long: `Run the full bring-up: reset, ICEPick connect and router writes, DAP power-up
and AP selection. Then report the Cortex-A8 authentication status, clear its
sticky status bits and send a word (this process's pid unless --value is
given) into the core's debug communication channel.

When jbang runs on the AM335x itself the word can be read back on the core with
an MRC p14 from DBGDTRRX; this tool only reports whether it is pending.`,
	Args: cobra.NoArgs,
	RunE: runUnlock,
}

func init() {
	rootCmd.AddCommand(unlockCmd)
	unlockCmd.Flags().Int64Var(&dccValue, "value", -1, "word to send instead of the pid")
}

func runUnlock(cmd *cobra.Command, args []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	base := s.profile.DebugBase
	if s.profile.HasTDO {
		if err := printAuth(out, s.mem, base); err != nil {
			return err
		}
	}

	dcc := coresight.NewDCC(s.mem, base)
	if err := dcc.ClearStatus(); err != nil {
		return err
	}

	v := uint32(os.Getpid())
	label := "our pid"
	if dccValue >= 0 {
		v, label = uint32(dccValue), "value"
	}
	fmt.Fprintf(out, "%s: %d\n", label, v)
	if err := dcc.Send(v); err != nil {
		return err
	}
	time.Sleep(s.profile.DCCSettle)

	if s.profile.HasTDO {
		pending, err := dcc.Pending()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "dcc rx pending: %t\n", pending)
	}
	return nil
}
