package main

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	bridgeInterface = "org.medisense.scalebridge"
	bridgePath      = "/org/medisense/scalebridge"
	bridgeSignal    = bridgeInterface + ".Notification"
)

// dbusSource receives telemetry notifications relayed by the Bluetooth bridge
// daemon as D-Bus signals, one signal per device notification carrying the
// device address and the raw bytes.
type dbusSource struct {
	conn          *dbus.Conn
	notifications chan notification
}

func newDbusSource() (*dbusSource, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %v", err)
	}

	rule := fmt.Sprintf("type='signal',interface='%s'", bridgeInterface)
	call := conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule)
	if call.Err != nil {
		return nil, fmt.Errorf("failed to add match rule: %v", call.Err)
	}

	signals := make(chan *dbus.Signal, 10)
	conn.Signal(signals)

	s := &dbusSource{
		conn:          conn,
		notifications: make(chan notification, 10),
	}

	log.Infof("Listening for D-Bus signals from %s...", bridgeInterface)
	go func() {
		for signal := range signals {
			if signal.Name != bridgeSignal {
				continue
			}
			if len(signal.Body) != 2 {
				log.Errorf("Unexpected signal format in body: %v", signal.Body)
				continue
			}
			address, ok := signal.Body[0].(string)
			if !ok {
				log.Errorf("Unexpected address type in signal: %v", signal.Body[0])
				continue
			}
			data, ok := signal.Body[1].([]byte)
			if !ok {
				log.Errorf("Unexpected data type in signal: %v", signal.Body[1])
				continue
			}
			s.notifications <- notification{DeviceAddress: address, Data: data}
		}
	}()

	return s, nil
}

func (s *dbusSource) Notifications() <-chan notification {
	return s.notifications
}

// SendCommand asks the bridge to write the command payload to the device.
func (s *dbusSource) SendCommand(deviceAddress string, payload []byte) error {
	obj := s.conn.Object(bridgeInterface, bridgePath)
	call := obj.Call(bridgeInterface+".SendCommand", 0, deviceAddress, payload)
	if call.Err != nil {
		return fmt.Errorf("failed to send command to device %s: %v", deviceAddress, call.Err)
	}
	return nil
}
