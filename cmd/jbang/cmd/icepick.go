package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/jbang/pkg/dap"
	"github.com/OpenTraceLab/jbang/pkg/icepick"
)

var icepickRegs []string

var icepickCmd = &cobra.Command{
	Use:   "icepick",
	Short: "Dump ICEPick router registers after bring-up",
	Long: `Run the ICEPick bring-up, then read router registers back through the linked
chain. By default the registers written by the profile's router words are
shown.

Examples:
  jbang icepick
  jbang icepick --reg 0x2c --reg 0x60`,
	Args: cobra.NoArgs,
	RunE: runICEPick,
}

func init() {
	rootCmd.AddCommand(icepickCmd)
	icepickCmd.Flags().StringSliceVar(&icepickRegs, "reg", nil, "router register to read (repeatable)")
}

func runICEPick(cmd *cobra.Command, args []string) error {
	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.requireTDO("icepick"); err != nil {
		return err
	}

	var regs []uint8
	seen := map[uint8]bool{}
	add := func(reg uint8) {
		if !seen[reg] {
			seen[reg] = true
			regs = append(regs, reg)
		}
	}
	for _, r := range icepickRegs {
		v, err := parseWord(r)
		if err != nil {
			return err
		}
		if v > 0x7F {
			return fmt.Errorf("router register 0x%x out of range", v)
		}
		add(uint8(v))
	}
	if len(regs) == 0 {
		for _, w := range s.profile.ICEPick.RouterWords {
			add(uint8(w >> 24 & 0x7F))
		}
	}

	r := icepick.NewLinkedRouter(s.seq, dap.IRLength)
	if err := r.Select(); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, reg := range regs {
		v, err := r.Read(reg)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "icepick [%02x]: %06x\n", reg, v)
	}
	return nil
}
