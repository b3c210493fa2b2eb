package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/medisense/pillslot-monitor/engine"
	"github.com/medisense/pillslot-monitor/identity"
	"github.com/medisense/pillslot-monitor/packet"
	"github.com/medisense/pillslot-monitor/store"
)

const (
	dbusName = "org.medisense.pillslot"
	dbusPath = "/org/medisense/pillslot"
)

// service is the control-plane D-Bus surface: pairing, slot configuration
// edits, outbound commands and state queries. Edits are persisted to the
// store after every mutation.
type service struct {
	engine   *engine.Engine
	resolver *identity.Resolver
	store    *store.Store
	source   notificationSource
}

func startService(eng *engine.Engine, resolver *identity.Resolver, db *store.Store, source notificationSource) error {
	log.Info("Starting pillslot control service")
	conn, err := dbus.SystemBus()
	if err != nil {
		return err
	}
	reply, err := conn.RequestName(dbusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return errors.New("name already taken")
	}

	s := &service{
		engine:   eng,
		resolver: resolver,
		store:    db,
		source:   source,
	}

	conn.Export(s, dbusPath, dbusName)
	conn.Export(genIntrospectable(s), dbusPath, "org.freedesktop.DBus.Introspectable")
	return nil
}

func genIntrospectable(v interface{}) introspect.Introspectable {
	node := &introspect.Node{
		Interfaces: []introspect.Interface{{
			Name:    dbusName,
			Methods: introspect.Methods(v),
		}},
	}
	return introspect.NewIntrospectable(node)
}

func (s *service) savePairings() *dbus.Error {
	if err := s.store.SavePairings(s.resolver.Pairings()); err != nil {
		log.Errorf("Failed to save pairings: %v", err)
		return dbus.NewError(dbusName+".StoreError", nil)
	}
	return nil
}

func (s *service) saveConfig(slot uint8) *dbus.Error {
	if err := s.store.SaveSlotConfig(s.engine.Config(slot)); err != nil {
		log.Errorf("Failed to save slot %d config: %v", slot, err)
		return dbus.NewError(dbusName+".StoreError", nil)
	}
	return nil
}

// Pair associates a device address with a logical slot and an optional label.
func (s *service) Pair(address string, slot uint8, label string) *dbus.Error {
	log.Infof("Pairing device %s to slot %d", address, slot)
	s.resolver.Pair(address, slot)
	if label != "" {
		s.resolver.SetLabel(address, label)
	}
	return s.savePairings()
}

// Unpair removes the pairing for a slot, if any.
func (s *service) Unpair(slot uint8) *dbus.Error {
	log.Infof("Unpairing slot %d", slot)
	s.resolver.Unpair(slot)
	return s.savePairings()
}

// SetLabel sets the user label for a device address.
func (s *service) SetLabel(address, label string) *dbus.Error {
	s.resolver.SetLabel(address, label)
	return s.savePairings()
}

func (s *service) sendCommand(slot uint8, payload []byte) *dbus.Error {
	address, ok := s.resolver.Address(slot)
	if !ok {
		return dbus.NewError(dbusName+".UnpairedSlot", nil)
	}
	if err := s.source.SendCommand(address, payload); err != nil {
		log.Errorf("Failed to send command to slot %d: %v", slot, err)
		return dbus.NewError(dbusName+".CommandError", nil)
	}
	return nil
}

// Tare sends the tare command to the device paired with the slot.
func (s *service) Tare(slot uint8) *dbus.Error {
	log.Infof("Sending TARE to slot %d", slot)
	return s.sendCommand(slot, packet.CommandTare)
}

// Zero sends the zero command to the device paired with the slot.
func (s *service) Zero(slot uint8) *dbus.Error {
	log.Infof("Sending ZERO to slot %d", slot)
	return s.sendCommand(slot, packet.CommandZero)
}

// AdoptDeviceBaseline copies the last device-reported baseline into the
// slot's bottle baseline and returns it.
func (s *service) AdoptDeviceBaseline(slot uint8) (float64, *dbus.Error) {
	baseline, ok := s.engine.AdoptDeviceBaseline(slot)
	if !ok {
		return 0, dbus.NewError(dbusName+".NoTelemetry", nil)
	}
	return baseline, s.saveConfig(slot)
}

// ResetSlot clears the smoothing state and history for a slot.
func (s *service) ResetSlot(slot uint8) *dbus.Error {
	log.Infof("Resetting slot %d", slot)
	s.engine.ResetSlot(slot)
	return nil
}

// SetSlotConfig replaces a slot's configuration from a JSON record.
func (s *service) SetSlotConfig(configJSON string) *dbus.Error {
	var cfg engine.SlotConfig
	if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
		return dbus.NewError(dbusName+".BadConfig", []interface{}{err.Error()})
	}
	s.engine.SetConfig(cfg)
	return s.saveConfig(cfg.SlotID)
}

// AddPillSample captures one pill calibration weight for a slot.
func (s *service) AddPillSample(slot uint8, grams float64) *dbus.Error {
	s.engine.AddPillSample(slot, grams)
	return s.saveConfig(slot)
}

// RemovePillSample removes the calibration sample at the given index.
func (s *service) RemovePillSample(slot uint8, index int32) *dbus.Error {
	s.engine.RemovePillSample(slot, int(index))
	return s.saveConfig(slot)
}

// ClearPillSamples removes all calibration samples for a slot.
func (s *service) ClearPillSamples(slot uint8) *dbus.Error {
	s.engine.ClearPillSamples(slot)
	return s.saveConfig(slot)
}

// Loss returns the bottle loss for a slot as a formatted string, empty when
// either the baseline or a current weight is missing.
func (s *service) Loss(slot uint8) (string, *dbus.Error) {
	loss, ok := s.engine.ComputeLoss(slot)
	if !ok {
		return "", nil
	}
	return fmt.Sprintf("%.1f", loss), nil
}

// EstimatePills converts a target dose to a pill count given the catalog's
// per-pill strength. Returns -1 when either input is missing or non-positive.
func (s *service) EstimatePills(medMgPerPill, targetDoseMg float64) (int32, *dbus.Error) {
	pills, ok := engine.EstimatePillsFromDose(medMgPerPill, targetDoseMg)
	if !ok {
		return -1, nil
	}
	return int32(pills), nil
}

// DoseWeight returns the expected weight of one dose for a slot as a
// formatted string, empty when the average pill weight or target count is
// not set.
func (s *service) DoseWeight(slot uint8) (string, *dbus.Error) {
	cfg := s.engine.Config(slot)
	weight, ok := engine.EstimateDoseWeight(cfg.AveragePillWeightGrams, cfg.TargetPillCount)
	if !ok {
		return "", nil
	}
	return fmt.Sprintf("%.3f", weight), nil
}

// Status returns a JSON snapshot of all slot states and pairings.
func (s *service) Status() (string, *dbus.Error) {
	snapshot := struct {
		Slots    []engine.SlotState   `json:"slots"`
		Pairings []identity.Pairing   `json:"pairings"`
		Configs  []engine.SlotConfig  `json:"configs"`
		Events   []engine.EventRecord `json:"events"`
	}{
		Slots:    s.engine.States(),
		Pairings: s.resolver.Pairings(),
		Configs:  s.engine.Configs(),
		Events:   s.engine.Events(),
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", dbus.NewError(dbusName+".MarshalError", nil)
	}
	return string(data), nil
}

// Events returns the event log as JSON, newest first.
func (s *service) Events() (string, *dbus.Error) {
	data, err := json.Marshal(s.engine.Events())
	if err != nil {
		return "", dbus.NewError(dbusName+".MarshalError", nil)
	}
	return string(data), nil
}
