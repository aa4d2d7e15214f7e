package jtag

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/gousb"
)

// InterfaceKind names the pin provider a listed interface maps to.
type InterfaceKind string

const (
	InterfaceKindCMSISDAP InterfaceKind = "cmsis-dap"
	InterfaceKindSim      InterfaceKind = "sim"
)

// InterfaceInfo is one entry of DiscoverInterfaces.
type InterfaceInfo struct {
	Kind        InterfaceKind
	Description string
	VendorID    uint16
	ProductID   uint16
	Serial      string // empty when the descriptor could not be read
}

// Label is the description, or the USB ID when the probe is not in the
// table.
func (i InterfaceInfo) Label() string {
	if i.Description != "" {
		return i.Description
	}
	return fmt.Sprintf("%s %04X:%04X", i.Kind, i.VendorID, i.ProductID)
}

type usbID struct{ vid, pid gousb.ID }

// probeNames lists CMSIS-DAP v2 probes able to run DAP_SWJ_Pins.
var probeNames = map[usbID]string{
	{VendorIDRaspberryPi, ProductIDCMSISDAP}: "Raspberry Pi Debug Probe",
	{0x0D28, 0x0204}:                         "DAPLink CMSIS-DAP",
	{0x1366, 0x0101}:                         "SEGGER J-Link CMSIS-DAP",
}

func classifyUSBDevice(desc *gousb.DeviceDesc) (InterfaceInfo, bool) {
	name, ok := probeNames[usbID{desc.Vendor, desc.Product}]
	if !ok {
		return InterfaceInfo{}, false
	}
	return InterfaceInfo{
		Kind:        InterfaceKindCMSISDAP,
		Description: name,
		VendorID:    uint16(desc.Vendor),
		ProductID:   uint16(desc.Product),
	}, true
}

// DiscoverInterfaces opens every known probe long enough to read its serial
// number. The simulator is always the last entry. Devices the user may not
// open are skipped silently.
func DiscoverInterfaces(ctx context.Context) ([]InterfaceInfo, error) {
	usb := gousb.NewContext()
	defer usb.Close()

	devs, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if ctx.Err() != nil {
			return false
		}
		_, ok := classifyUSBDevice(desc)
		return ok
	})

	found := make([]InterfaceInfo, 0, len(devs)+1)
	for _, dev := range devs {
		info, _ := classifyUSBDevice(dev.Desc)
		info.Serial, _ = dev.SerialNumber()
		dev.Close()
		found = append(found, info)
	}
	switch {
	case err != nil && !errors.Is(err, gousb.ErrorAccess):
		return found, fmt.Errorf("jtag: usb scan: %w", err)
	case ctx.Err() != nil:
		return found, ctx.Err()
	}

	return append(found, InterfaceInfo{
		Kind:        InterfaceKindSim,
		Description: "Simulated AM335x (no hardware)",
	}), nil
}
