package main

import (
	"bufio"
	"fmt"
	"sync"

	"github.com/tarm/serial"

	"github.com/medisense/pillslot-monitor/packet"
)

// serialSource reads telemetry packets from a directly attached sensor on a
// serial port. The port path doubles as the device address. Framing is by
// magic-byte resync, bytes are discarded until 0xCA 0xFE is seen, then the
// rest of the 12-byte packet is read.
type serialSource struct {
	port          *serial.Port
	portName      string
	notifications chan notification

	writeMu sync.Mutex
}

func newSerialSource(portName string, baudRate int) (*serialSource, error) {
	port, err := serial.OpenPort(&serial.Config{Name: portName, Baud: baudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port '%s': %v", portName, err)
	}
	s := &serialSource{
		port:          port,
		portName:      portName,
		notifications: make(chan notification, 10),
	}
	go s.readLoop()
	return s, nil
}

func (s *serialSource) Notifications() <-chan notification {
	return s.notifications
}

func (s *serialSource) readLoop() {
	reader := bufio.NewReader(s.port)
	for {
		data, err := readPacket(reader)
		if err != nil {
			log.Errorf("Serial read failed: %v", err)
			close(s.notifications)
			return
		}
		s.notifications <- notification{DeviceAddress: s.portName, Data: data}
	}
}

// readPacket scans for the magic sequence then reads the remaining packet
// bytes. Garbage between packets is skipped silently.
func readPacket(reader *bufio.Reader) ([]byte, error) {
	for {
		b, err := reader.ReadByte()
		if err != nil {
			return nil, err
		}
		if b != packet.MagicByte0 {
			continue
		}
		next, err := reader.ReadByte()
		if err != nil {
			return nil, err
		}
		if next != packet.MagicByte1 {
			// 0xCA could start a real packet, try again from the second byte.
			if next == packet.MagicByte0 {
				reader.UnreadByte()
			}
			continue
		}

		data := make([]byte, packet.PacketLength)
		data[0] = packet.MagicByte0
		data[1] = packet.MagicByte1
		for i := 2; i < packet.PacketLength; i++ {
			data[i], err = reader.ReadByte()
			if err != nil {
				return nil, err
			}
		}
		return data, nil
	}
}

// SendCommand writes the ASCII command payload to the port. Only the device
// on this port can be addressed.
func (s *serialSource) SendCommand(deviceAddress string, payload []byte) error {
	if deviceAddress != s.portName {
		return fmt.Errorf("unknown device '%s', serial source only serves '%s'", deviceAddress, s.portName)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.port.Write(payload); err != nil {
		return fmt.Errorf("failed to write command to serial port: %v", err)
	}
	return nil
}
