package jtag

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestProtocolEncode(t *testing.T) {
	proto := NewCMSISDAPProtocol(64)

	tests := []struct {
		name string
		got  []byte
		want []byte
	}{
		{"info vendor", proto.EncodeInfo(InfoVendorID), []byte{0x00, 0x01}},
		{"info serial", proto.EncodeInfo(InfoSerialNum), []byte{0x00, 0x03}},
		{"info packet size", proto.EncodeInfo(InfoPacketSize), []byte{0x00, 0xFF}},
		{"connect jtag", proto.EncodeConnect(PortJTAG), []byte{0x02, 0x02}},
		{"disconnect", proto.EncodeDisconnect(), []byte{0x03}},
		{"clock 1 MHz", proto.EncodeSetClock(1_000_000), []byte{0x11, 0x40, 0x42, 0x0F, 0x00}},
		{"clock 10 MHz", proto.EncodeSetClock(10_000_000), []byte{0x11, 0x80, 0x96, 0x98, 0x00}},
		{
			"swj pins tck high",
			proto.EncodeSWJPins(PinTCK|PinNTRST, PinTCK, 0),
			[]byte{0x10, 0x21, 0x01, 0x00, 0x00, 0x00, 0x00},
		},
		{
			"swj pins with wait",
			proto.EncodeSWJPins(0, PinNTRST, 0x0102),
			[]byte{0x10, 0x00, 0x20, 0x02, 0x01, 0x00, 0x00},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.got); diff != "" {
				t.Errorf("encoding mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestProtocolDecodeInfo(t *testing.T) {
	proto := NewCMSISDAPProtocol(64)

	tests := []struct {
		name    string
		resp    []byte
		want    string
		wantErr bool
	}{
		{"plain", []byte{0x00, 0x04, 'T', 'e', 's', 't'}, "Test", false},
		{"nul terminated", []byte{0x00, 0x04, 'A', 'B', 'C', 0x00}, "ABC", false},
		{"absent", []byte{0x00, 0x00}, "", false},
		{"too short", []byte{0x00}, "", true},
		{"wrong command", []byte{0x01, 0x04, 'T', 'e', 's', 't'}, "", true},
		{"truncated", []byte{0x00, 0x10, 'T', 'e', 's', 't'}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := proto.DecodeInfo(tt.resp)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeInfo() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DecodeInfo() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProtocolDecodeConnect(t *testing.T) {
	proto := NewCMSISDAPProtocol(64)

	tests := []struct {
		name    string
		resp    []byte
		want    byte
		wantErr bool
	}{
		{"jtag", []byte{0x02, 0x02}, PortJTAG, false},
		{"swd only", []byte{0x02, 0x01}, PortSWD, false},
		{"refused", []byte{0x02, 0x00}, 0, true},
		{"too short", []byte{0x02}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := proto.DecodeConnect(tt.resp)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeConnect() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DecodeConnect() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestProtocolDecodePacketSize(t *testing.T) {
	proto := NewCMSISDAPProtocol(64)

	tests := []struct {
		name    string
		resp    []byte
		want    int
		wantErr bool
	}{
		{"v2 bulk", []byte{0x00, 0x02, 0x00, 0x02}, 512, false},
		{"v1 hid", []byte{0x00, 0x02, 0x40, 0x00}, 64, false},
		{"bad length", []byte{0x00, 0x01, 0x40, 0x00}, 0, true},
		{"too short", []byte{0x00, 0x02}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := proto.DecodePacketSize(tt.resp)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodePacketSize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DecodePacketSize() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestProtocolDecodeSWJPins(t *testing.T) {
	proto := NewCMSISDAPProtocol(64)

	pins, err := proto.DecodeSWJPins([]byte{0x10, PinTDO | PinNTRST})
	if err != nil {
		t.Fatal(err)
	}
	if pins&PinTDO == 0 {
		t.Errorf("DecodeSWJPins() = 0x%02X, TDO not set", pins)
	}
	if _, err := proto.DecodeSWJPins([]byte{0x11, 0x00}); err == nil {
		t.Error("DecodeSWJPins() accepted a DAP_SWJ_Clock response")
	}
}

func TestProtocolStatus(t *testing.T) {
	proto := NewCMSISDAPProtocol(64)

	tests := []struct {
		name    string
		decode  func([]byte) error
		resp    []byte
		wantErr bool
	}{
		{"clock ok", proto.DecodeSetClock, []byte{0x11, 0x00}, false},
		{"clock error", proto.DecodeSetClock, []byte{0x11, 0xFF}, true},
		{"clock wrong id", proto.DecodeSetClock, []byte{0x03, 0x00}, true},
		{"disconnect ok", proto.DecodeDisconnect, []byte{0x03, 0x00}, false},
		{"disconnect short", proto.DecodeDisconnect, []byte{0x03}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.decode(tt.resp); (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
