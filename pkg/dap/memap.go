package dap

import (
	"fmt"
)

// MemAP reads and writes 32-bit words through the AP selected by Init.
type MemAP struct {
	e *Engine
}

// NewMemAP returns a memory client on an initialized engine.
func NewMemAP(e *Engine) *MemAP {
	return &MemAP{e: e}
}

// Engine returns the underlying engine.
func (m *MemAP) Engine() *Engine { return m.e }

// Read returns the word at addr.
func (m *MemAP) Read(addr uint32) (uint32, error) {
	if _, err := m.e.APWriteAddr(addr); err != nil {
		return 0, fmt.Errorf("dap: read 0x%08x: %w", addr, err)
	}
	p, err := m.e.APReadData()
	if err != nil {
		return 0, fmt.Errorf("dap: read 0x%08x: %w", addr, err)
	}
	v, err := m.e.CheckedRead(p)
	if err != nil {
		return 0, fmt.Errorf("dap: read 0x%08x: %w", addr, err)
	}
	if m.e.hasTDO {
		m.e.log.Infof("read 0x%08x -> 0x%08x", addr, v)
	}
	return v, nil
}

// Write stores value at addr and waits for the access to complete.
func (m *MemAP) Write(addr, value uint32) error {
	if _, err := m.e.APWriteAddr(addr); err != nil {
		return fmt.Errorf("dap: write 0x%08x: %w", addr, err)
	}
	p, err := m.e.APWriteData(value)
	if err != nil {
		return fmt.Errorf("dap: write 0x%08x: %w", addr, err)
	}
	if _, err := m.e.CheckedRead(p); err != nil {
		return fmt.Errorf("dap: write 0x%08x: %w", addr, err)
	}
	m.e.log.Debugf("write 0x%08x <- 0x%08x", addr, value)
	return nil
}

// ReadBlock reads n consecutive words starting at addr. progress, if not
// nil, is called after each word with the number read so far.
func (m *MemAP) ReadBlock(addr uint32, n int, progress func(done int)) ([]uint32, error) {
	if addr&3 != 0 {
		return nil, fmt.Errorf("dap: unaligned block address 0x%08x", addr)
	}
	words := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		v, err := m.Read(addr + uint32(i)*4)
		if err != nil {
			return words, err
		}
		words = append(words, v)
		if progress != nil {
			progress(i + 1)
		}
	}
	return words, nil
}
