// Command jbang unlocks and explores the debug subsystem of a TI AM335x by
// bit-banging JTAG.
package main

import "github.com/OpenTraceLab/jbang/cmd/jbang/cmd"

func main() {
	cmd.Execute()
}
