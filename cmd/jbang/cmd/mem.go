package cmd

import (
	"fmt"
	"strconv"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"
)

var noProgress bool

var readCmd = &cobra.Command{
	Use:   "read ADDR",
	Short: "Read one word through the memory AP",
	Args:  cobra.ExactArgs(1),
	RunE:  runRead,
}

var writeCmd = &cobra.Command{
	Use:   "write ADDR VALUE",
	Short: "Write one word through the memory AP",
	Args:  cobra.ExactArgs(2),
	RunE:  runWrite,
}

var dumpCmd = &cobra.Command{
	Use:   "dump ADDR COUNT",
	Short: "Read COUNT consecutive words",
	Long: `Read COUNT words starting at ADDR and print them four to a line.
ADDR must be word aligned.`,
	Args: cobra.ExactArgs(2),
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(readCmd, writeCmd, dumpCmd)
	dumpCmd.Flags().BoolVar(&noProgress, "no-progress", false, "do not draw a progress bar")
}

// parseWord accepts decimal, 0x hex, 0o octal and 0b binary with optional
// underscores.
func parseWord(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("bad value %q", s)
	}
	return uint32(v), nil
}

func runRead(cmd *cobra.Command, args []string) error {
	addr, err := parseWord(args[0])
	if err != nil {
		return err
	}
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.requireTDO("read"); err != nil {
		return err
	}

	v, err := s.mem.Read(addr)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "0x%08x: 0x%08x\n", addr, v)
	return nil
}

func runWrite(cmd *cobra.Command, args []string) error {
	addr, err := parseWord(args[0])
	if err != nil {
		return err
	}
	value, err := parseWord(args[1])
	if err != nil {
		return err
	}
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.mem.Write(addr, value); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "0x%08x <- 0x%08x\n", addr, value)
	return nil
}

func runDump(cmd *cobra.Command, args []string) error {
	addr, err := parseWord(args[0])
	if err != nil {
		return err
	}
	count, err := strconv.Atoi(args[1])
	if err != nil || count <= 0 {
		return fmt.Errorf("bad count %q", args[1])
	}
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.requireTDO("dump"); err != nil {
		return err
	}

	var progress func(int)
	if !noProgress && !quiet {
		bar := pb.New(count).SetWriter(cmd.ErrOrStderr())
		bar.Start()
		defer bar.Finish()
		progress = func(done int) { bar.SetCurrent(int64(done)) }
	}

	words, err := s.mem.ReadBlock(addr, count, progress)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, w := range words {
		if i%4 == 0 {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "%08x:", addr+uint32(i*4))
		}
		fmt.Fprintf(out, " %08x", w)
	}
	fmt.Fprintln(out)
	return nil
}
