package pinio

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Region is a window of 32-bit device registers addressed by byte offset.
type Region interface {
	Read32(off uint32) uint32
	Write32(off, v uint32)
}

// MemRegion is a physical register window mapped from /dev/mem.
type MemRegion struct {
	phys uint32
	mem  []byte
}

// MapRegion maps size bytes of physical address space at phys, which must
// be page aligned.
func MapRegion(f *os.File, phys uint32, size int) (*MemRegion, error) {
	page := unix.Getpagesize()
	if int(phys)%page != 0 {
		return nil, fmt.Errorf("pinio: 0x%08x is not page aligned", phys)
	}
	size += (page - size%page) % page
	mem, err := unix.Mmap(int(f.Fd()), int64(phys), size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("pinio: mmap 0x%08x: %w", phys, err)
	}
	return &MemRegion{phys: phys, mem: mem}, nil
}

func (r *MemRegion) word(off uint32) *uint32 {
	if int(off)+4 > len(r.mem) || off&3 != 0 {
		panic(fmt.Sprintf("pinio: register 0x%08x outside mapping", r.phys+off))
	}
	return (*uint32)(unsafe.Pointer(&r.mem[off]))
}

// Atomic accesses keep every register access a single 32-bit load or store.
func (r *MemRegion) Read32(off uint32) uint32 { return atomic.LoadUint32(r.word(off)) }
func (r *MemRegion) Write32(off, v uint32)    { atomic.StoreUint32(r.word(off), v) }

// Close unmaps the window.
func (r *MemRegion) Close() error {
	if r.mem == nil {
		return nil
	}
	err := unix.Munmap(r.mem)
	r.mem = nil
	return err
}
