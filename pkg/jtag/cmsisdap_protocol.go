package jtag

import (
	"encoding/binary"
	"fmt"
)

// CMSIS-DAP command IDs.
const (
	CmdInfo       = 0x00
	CmdConnect    = 0x02
	CmdDisconnect = 0x03
	CmdSWJPins    = 0x10
	CmdSWJClock   = 0x11
)

// DAP_Info IDs
const (
	InfoVendorID    = 0x01
	InfoProductID   = 0x02
	InfoSerialNum   = 0x03
	InfoFirmwareVer = 0x04
	InfoPacketSize  = 0xFF
)

// Connection ports
const (
	PortDefault = 0
	PortSWD     = 1
	PortJTAG    = 2
)

// Status codes
const (
	StatusOK    = 0x00
	StatusError = 0xFF
)

// DAP_SWJ_Pins bit positions.
const (
	PinTCK   = 1 << 0
	PinTMS   = 1 << 1
	PinTDI   = 1 << 2
	PinTDO   = 1 << 3
	PinNTRST = 1 << 5
	PinNRST  = 1 << 7
)

// CMSISDAPProtocol handles encoding/decoding of CMSIS-DAP commands
type CMSISDAPProtocol struct {
	PacketSize int
}

func NewCMSISDAPProtocol(packetSize int) *CMSISDAPProtocol {
	return &CMSISDAPProtocol{PacketSize: packetSize}
}

func expect(resp []byte, cmd byte, n int) error {
	if len(resp) < n {
		return fmt.Errorf("cmsis-dap: response too short for command 0x%02X", cmd)
	}
	if resp[0] != cmd {
		return fmt.Errorf("cmsis-dap: invalid command ID 0x%02X, want 0x%02X", resp[0], cmd)
	}
	return nil
}

// EncodeInfo builds a DAP_Info command
func (p *CMSISDAPProtocol) EncodeInfo(infoID byte) []byte {
	return []byte{CmdInfo, infoID}
}

// DecodeInfo parses a DAP_Info string response
func (p *CMSISDAPProtocol) DecodeInfo(resp []byte) (string, error) {
	if err := expect(resp, CmdInfo, 2); err != nil {
		return "", err
	}
	length := int(resp[1])
	if len(resp) < 2+length {
		return "", fmt.Errorf("cmsis-dap: incomplete info string")
	}
	s := resp[2 : 2+length]
	// Strings are NUL terminated on most probes.
	if n := len(s); n > 0 && s[n-1] == 0 {
		s = s[:n-1]
	}
	return string(s), nil
}

// DecodePacketSize parses the DAP_Info packet size response.
func (p *CMSISDAPProtocol) DecodePacketSize(resp []byte) (int, error) {
	if err := expect(resp, CmdInfo, 4); err != nil {
		return 0, err
	}
	if resp[1] != 2 {
		return 0, fmt.Errorf("cmsis-dap: packet size has length %d", resp[1])
	}
	return int(binary.LittleEndian.Uint16(resp[2:4])), nil
}

// EncodeConnect builds a DAP_Connect command
func (p *CMSISDAPProtocol) EncodeConnect(port byte) []byte {
	return []byte{CmdConnect, port}
}

// DecodeConnect parses a DAP_Connect response
func (p *CMSISDAPProtocol) DecodeConnect(resp []byte) (byte, error) {
	if err := expect(resp, CmdConnect, 2); err != nil {
		return 0, err
	}
	if resp[1] == PortDefault {
		return 0, fmt.Errorf("cmsis-dap: connection failed")
	}
	return resp[1], nil
}

// EncodeDisconnect builds a DAP_Disconnect command
func (p *CMSISDAPProtocol) EncodeDisconnect() []byte {
	return []byte{CmdDisconnect}
}

// DecodeDisconnect parses a DAP_Disconnect response
func (p *CMSISDAPProtocol) DecodeDisconnect(resp []byte) error {
	return p.decodeStatus(resp, CmdDisconnect, "disconnect")
}

// EncodeSetClock builds a DAP_SWJ_Clock command
func (p *CMSISDAPProtocol) EncodeSetClock(hz uint32) []byte {
	cmd := make([]byte, 5)
	cmd[0] = CmdSWJClock
	binary.LittleEndian.PutUint32(cmd[1:], hz)
	return cmd
}

// DecodeSetClock parses response
func (p *CMSISDAPProtocol) DecodeSetClock(resp []byte) error {
	return p.decodeStatus(resp, CmdSWJClock, "set clock")
}

// EncodeSWJPins builds a DAP_SWJ_Pins command. Only the pins in sel are
// driven to their level in out; wait is the settle time in microseconds
// before the pins are read back.
func (p *CMSISDAPProtocol) EncodeSWJPins(out, sel byte, wait uint32) []byte {
	cmd := make([]byte, 7)
	cmd[0] = CmdSWJPins
	cmd[1] = out
	cmd[2] = sel
	binary.LittleEndian.PutUint32(cmd[3:], wait)
	return cmd
}

// DecodeSWJPins returns the pin levels sampled after the write.
func (p *CMSISDAPProtocol) DecodeSWJPins(resp []byte) (byte, error) {
	if err := expect(resp, CmdSWJPins, 2); err != nil {
		return 0, err
	}
	return resp[1], nil
}

func (p *CMSISDAPProtocol) decodeStatus(resp []byte, cmd byte, what string) error {
	if err := expect(resp, cmd, 2); err != nil {
		return err
	}
	if resp[1] != StatusOK {
		return fmt.Errorf("cmsis-dap: %s failed (status 0x%02X)", what, resp[1])
	}
	return nil
}
