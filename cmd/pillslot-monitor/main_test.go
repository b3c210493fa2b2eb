package main

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medisense/pillslot-monitor/packet"
)

func TestReadPacketSkipsGarbage(t *testing.T) {
	pkt := &packet.TelemetryPacket{SlotIDHint: 3, WeightGrams: 100}
	stream := append([]byte{0x00, 0x42, 0xCA, 0x00}, pkt.Encode()...)

	data, err := readPacket(bufio.NewReader(bytes.NewReader(stream)))
	require.NoError(t, err)

	decoded, err := packet.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), decoded.SlotIDHint)
	assert.Equal(t, 100.0, decoded.WeightGrams)
}

func TestReadPacketResyncsOnRepeatedMagicByte(t *testing.T) {
	// A stray 0xCA directly before a real packet must not eat its magic.
	pkt := &packet.TelemetryPacket{SlotIDHint: 7}
	stream := append([]byte{0xCA}, pkt.Encode()...)

	data, err := readPacket(bufio.NewReader(bytes.NewReader(stream)))
	require.NoError(t, err)

	decoded, err := packet.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, uint8(7), decoded.SlotIDHint)
}

func TestReadPacketSequentialPackets(t *testing.T) {
	a := &packet.TelemetryPacket{SlotIDHint: 1, Sequence: 10}
	b := &packet.TelemetryPacket{SlotIDHint: 2, Sequence: 11}
	reader := bufio.NewReader(bytes.NewReader(append(a.Encode(), b.Encode()...)))

	first, err := readPacket(reader)
	require.NoError(t, err)
	second, err := readPacket(reader)
	require.NoError(t, err)

	da, _ := packet.Decode(first)
	db, _ := packet.Decode(second)
	assert.Equal(t, uint8(1), da.SlotIDHint)
	assert.Equal(t, uint8(2), db.SlotIDHint)
}

func TestReadPacketEOF(t *testing.T) {
	_, err := readPacket(bufio.NewReader(bytes.NewReader([]byte{0xCA, 0xFE, 0x01})))
	assert.Error(t, err)
}

func TestParseConfig(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "monitor.yaml")
	content := []byte("source: dbus\nstore-file: /tmp/test-state.db\nlog-level: debug\n")
	require.NoError(t, os.WriteFile(configFile, content, 0644))

	config, err := ParseConfig(configFile)
	require.NoError(t, err)
	assert.Equal(t, "dbus", config.Source)
	assert.Equal(t, "/tmp/test-state.db", config.StoreFile)
	assert.Equal(t, "debug", config.LogLevel)
	// Defaults fill the rest.
	assert.Equal(t, "/dev/ttyS0", config.SerialPort)
	assert.Equal(t, 115200, config.BaudRate)
}

func TestParseConfigMissingFile(t *testing.T) {
	_, err := ParseConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseConfigBadBaudRate(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "monitor.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("baud-rate: -9600\n"), 0644))

	_, err := ParseConfig(configFile)
	assert.Error(t, err)
}
