package coresight

import (
	"fmt"

	"github.com/OpenTraceLab/jbang/pkg/idcode"
)

// Component identification registers sit in the last 48 bytes of every
// 4KB CoreSight block.
const (
	regPIDR4 = 0xFD0
	regPIDR0 = 0xFE0
	regCIDR0 = 0xFF0

	cidPreambleMask = 0xFFFF0FFF
	cidPreamble     = 0xB105000D
)

// Component classes.
const (
	ClassGenericVerification = 0x0
	ClassROMTable            = 0x1
	ClassCoreSight           = 0x9
	ClassPeripheralTest      = 0xB
	ClassGenericIP           = 0xE
	ClassPrimeCell           = 0xF
)

// ComponentID is the decoded CIDR/PIDR block.
type ComponentID struct {
	CID uint32
	PID uint64

	Class    uint8
	Part     uint16
	Revision uint8
	// Designer is the JEP106 code in bank<<7|id form.
	Designer uint16
}

// DesignerName returns the JEP106 name of the designer.
func (c ComponentID) DesignerName() string {
	m, ok := idcode.LookupManufacturer(c.Designer)
	if !ok {
		return fmt.Sprintf("JEP106 %d/0x%02x", c.Designer>>7, c.Designer&0x7F)
	}
	return m.Name
}

func (c ComponentID) String() string {
	return fmt.Sprintf("class 0x%x part 0x%03x rev %d by %s", c.Class, c.Part, c.Revision, c.DesignerName())
}

// DecodeComponentID decodes the byte-lane values of CIDR0..3 and
// PIDR0..4.
func DecodeComponentID(cid uint32, pid uint64) (ComponentID, error) {
	if cid&cidPreambleMask != cidPreamble {
		return ComponentID{}, fmt.Errorf("coresight: bad component preamble 0x%08x", cid)
	}
	return ComponentID{
		CID:      cid,
		PID:      pid,
		Class:    uint8(cid >> 12 & 0xF),
		Part:     uint16(pid & 0xFFF),
		Revision: uint8(pid >> 20 & 0xF),
		Designer: uint16(pid>>32&0xF)<<7 | uint16(pid>>12&0x7F),
	}, nil
}

// ReadComponentID reads the identification block of the component at base.
func ReadComponentID(mem Memory, base uint32) (ComponentID, error) {
	var cid uint32
	for i := uint32(0); i < 4; i++ {
		v, err := mem.Read(base + regCIDR0 + i*4)
		if err != nil {
			return ComponentID{}, fmt.Errorf("coresight: CIDR%d: %w", i, err)
		}
		cid |= (v & 0xFF) << (8 * i)
	}

	var pid uint64
	for i := uint32(0); i < 4; i++ {
		v, err := mem.Read(base + regPIDR0 + i*4)
		if err != nil {
			return ComponentID{}, fmt.Errorf("coresight: PIDR%d: %w", i, err)
		}
		pid |= uint64(v&0xFF) << (8 * i)
	}
	v, err := mem.Read(base + regPIDR4)
	if err != nil {
		return ComponentID{}, fmt.Errorf("coresight: PIDR4: %w", err)
	}
	pid |= uint64(v&0xFF) << 32

	return DecodeComponentID(cid, pid)
}
