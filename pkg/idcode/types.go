package idcode

import "fmt"

// IDCode represents a parsed IEEE 1149.1 JTAG IDCODE
type IDCode struct {
	Raw              uint32 // full IDCODE
	Version          uint8  // [31:28]
	PartNumber       uint16 // [27:12]
	ManufacturerCode uint16 // [11:1] JEP106 bank and id
	HasIDCode        bool   // bit 0 == 1
}

// String formats the code with its manufacturer, e.g.
// "0x3BA00477 (ARM part 0xBA00 rev 3)".
func (id IDCode) String() string {
	m, _ := LookupManufacturer(id.ManufacturerCode)
	return fmt.Sprintf("0x%08X (%s part 0x%04X rev %d)", id.Raw, m.Abbreviation, id.PartNumber, id.Version)
}

// Manufacturer represents a JEP106 manufacturer entry
type Manufacturer struct {
	Code         uint16 // JEP106 bank<<7 | id
	Name         string
	Abbreviation string
}
