package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/jbang/pkg/jtag"
	"github.com/OpenTraceLab/jbang/pkg/target"
)

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List CMSIS-DAP probes, pin backends and target profiles",
	Long: `Scan the host for CMSIS-DAP probes and print them with the available pin
backends and built-in target profiles. Use the probe serial with --serial when
more than one is attached.`,
	Args: cobra.NoArgs,
	RunE: runInterfaces,
}

var skipUSB bool

func init() {
	rootCmd.AddCommand(interfacesCmd)
	interfacesCmd.Flags().BoolVar(&skipUSB, "no-usb", false, "do not scan USB")
}

func runInterfaces(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if !skipUSB {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		infos, err := jtag.DiscoverInterfaces(ctx)
		if err != nil {
			return fmt.Errorf("discover interfaces: %w", err)
		}
		fmt.Fprintln(out, "Detected probes:")
		for _, iface := range infos {
			if iface.Kind == jtag.InterfaceKindSim {
				continue
			}
			fmt.Fprintf(out, "  - %s [%s] (VID:PID %04X:%04X) serial %q\n",
				iface.Label(), iface.Kind, iface.VendorID, iface.ProductID, iface.Serial)
		}
	}

	fmt.Fprintf(out, "Pin backends: %s\n", backendList())
	fmt.Fprintln(out, "Profiles:")
	for _, name := range target.Names() {
		p, err := target.Lookup(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  - %-16s %s\n", name, p.Description)
	}
	return nil
}
