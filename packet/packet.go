// Package packet decodes the fixed 12-byte telemetry notification sent by
// load-cell slot sensors.
//
// Layout (little-endian):
//
//	0-1   magic 0xCA 0xFE
//	2     slot hint (u8)
//	3     flags (u8)
//	4-5   delta milligrams (i16)
//	6-7   weight x10 (u16)
//	8-9   device baseline x10 (u16)
//	10    event code (u8)
//	11    sequence (u8, wraps)
package packet

import (
	"encoding/binary"
	"errors"
	"math"
)

const (
	PacketLength = 12
	MagicByte0   = 0xCA
	MagicByte1   = 0xFE
)

// Flag bits reported by the sensor firmware.
const (
	FlagTaken = 1 << iota
	FlagRemoved
	FlagUnexpected
	FlagStable
)

var (
	ErrTooShort = errors.New("packet too short")
	ErrBadMagic = errors.New("bad magic bytes")
)

// TelemetryPacket is one decoded notification. Values are taken as-is from
// the wire, range checking is not the codec's job.
type TelemetryPacket struct {
	SlotIDHint          uint8
	Flags               uint8
	DeltaMilligrams     int16
	WeightGrams         float64
	DeviceBaselineGrams float64
	EventCode           uint8
	Sequence            uint8
}

// Decode validates and decodes raw notification bytes. It fails with
// ErrTooShort for anything under 12 bytes and ErrBadMagic if the first two
// bytes are not 0xCA 0xFE. No state, no other validation.
func Decode(data []byte) (*TelemetryPacket, error) {
	if len(data) < PacketLength {
		return nil, ErrTooShort
	}
	if data[0] != MagicByte0 || data[1] != MagicByte1 {
		return nil, ErrBadMagic
	}

	return &TelemetryPacket{
		SlotIDHint:          data[2],
		Flags:               data[3],
		DeltaMilligrams:     int16(binary.LittleEndian.Uint16(data[4:6])),
		WeightGrams:         float64(binary.LittleEndian.Uint16(data[6:8])) / 10.0,
		DeviceBaselineGrams: float64(binary.LittleEndian.Uint16(data[8:10])) / 10.0,
		EventCode:           data[10],
		Sequence:            data[11],
	}, nil
}

// Encode builds the wire representation of a packet. Weights are quantized
// to 0.1 g on the way out, so Decode(Encode(p)) can differ from p by up to
// half that step.
func (p *TelemetryPacket) Encode() []byte {
	data := make([]byte, PacketLength)
	data[0] = MagicByte0
	data[1] = MagicByte1
	data[2] = p.SlotIDHint
	data[3] = p.Flags
	binary.LittleEndian.PutUint16(data[4:6], uint16(p.DeltaMilligrams))
	binary.LittleEndian.PutUint16(data[6:8], uint16(math.Round(p.WeightGrams*10)))
	binary.LittleEndian.PutUint16(data[8:10], uint16(math.Round(p.DeviceBaselineGrams*10)))
	data[10] = p.EventCode
	data[11] = p.Sequence
	return data
}

// HasFlag reports whether the given flag bit is set.
func (p *TelemetryPacket) HasFlag(flag uint8) bool {
	return p.Flags&flag != 0
}
