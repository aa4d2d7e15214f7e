package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/jbang/internal/logging"
	"github.com/OpenTraceLab/jbang/pkg/jtag"
)

var (
	// Global flags
	verbose     bool
	quiet       bool
	profileName string
	configFile  string
	pinsBackend string
	probeSerial string
)

var rootCmd = &cobra.Command{
	Use:   "jbang",
	Short: "Software JTAG debug unlock for the TI AM335x",
	Long: `jbang drives JTAG from GPIOs, pad configuration registers or a CMSIS-DAP
probe in pin mode. It brings up the ICEPick router, links the ARM debug access
port into the chain and then reads and writes memory through the APB-AP.

Examples:
  jbang unlock                                # full bring-up, auth status, DCC
  jbang read 0x80001fb8                       # one word via the APB-AP
  jbang dump 0x80001000 64                    # a block, with progress
  jbang --profile am335x-cmsisdap auth        # through a CMSIS-DAP probe
  jbang --pins sim run testdata/unlock.jb     # script against the simulator`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Configure(cmd.ErrOrStderr(), logging.Level(verbose, quiet))
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logging.Root().Fatalf("%s", describe(err))
	}
}

// describe names the failed check and the offending value.
func describe(err error) string {
	var mm *jtag.MismatchError
	if errors.As(err, &mm) {
		return fmt.Sprintf("%v [check %q read 0x%X]", err, mm.Check, mm.Got)
	}
	return err.Error()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "trace every scan")
	pf.BoolVarP(&quiet, "quiet", "q", false, "only log warnings")
	pf.StringVarP(&profileName, "profile", "p", "", "built-in target profile (default \"am335x\")")
	pf.StringVarP(&configFile, "config", "c", "", "target profile YAML file")
	pf.StringVar(&pinsBackend, "pins", "", "override the pin backend ("+backendList()+")")
	pf.StringVar(&probeSerial, "serial", "", "CMSIS-DAP probe serial number")
}
