// Package coresight reads and drives ARM CoreSight debug components through
// a word-addressed memory port.
package coresight

// Memory is word access to the debug bus; *dap.MemAP implements it.
type Memory interface {
	Read(addr uint32) (uint32, error)
	Write(addr, value uint32) error
}

// Cortex-A8 debug register offsets from the component base.
const (
	RegDBGDTRRX   = 0x080 // host to core
	RegDBGDSCR    = 0x088
	RegDBGPRSR    = 0x314
	RegAuthStatus = 0xFB8
)
