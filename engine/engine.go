// Package engine turns decoded slot telemetry into smoothed, queryable
// per-slot state and a bounded event log. Packets run through one pipeline,
// decode, resolve identity, smooth, append history, derive event, serialized
// under a single lock so a slot never sees a partial update.
package engine

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/medisense/pillslot-monitor/identity"
	"github.com/medisense/pillslot-monitor/packet"
)

// MedicationLookup resolves a medication id from the external catalog to a
// display name. The engine holds ids only, never copies of catalog records.
type MedicationLookup interface {
	MedicationName(id string) (string, bool)
}

const unknownMedication = "unknown medication"

// SlotState is the engine-owned state for one logical slot. Created on first
// reference, mutated only by the pipeline, reset but never deleted.
type SlotState struct {
	SlotID                  uint8     `json:"slotId"`
	SmoothedWeightGrams     *float64  `json:"smoothedWeightGrams,omitempty"`
	LastDeviceBaselineGrams float64   `json:"lastDeviceBaselineGrams"`
	LastFlags               uint8     `json:"lastFlags"`
	LastSequence            uint8     `json:"lastSequence"`
	LastUpdate              time.Time `json:"lastUpdate"`
	History                 []Sample  `json:"history,omitempty"`
}

// Result reports what one notification did to the engine.
type Result struct {
	SlotID        uint8
	SmoothedGrams float64
	Event         *EventRecord
	// CommandStatus is the transient feedback text for a firmware event
	// code, empty for ordinary telemetry. Not persisted, not logged as an
	// event record.
	CommandStatus string
}

// Engine owns the keyed slot tables. Construct one per process and hand it to
// the transport and control-plane callers, there is no global state.
type Engine struct {
	log      *logrus.Logger
	resolver *identity.Resolver
	catalog  MedicationLookup
	now      func() time.Time

	mu      sync.Mutex
	slots   map[uint8]*SlotState
	configs map[uint8]*SlotConfig
	events  []EventRecord
}

// New creates an engine. catalog may be nil, medication references then
// always render as unknown.
func New(log *logrus.Logger, resolver *identity.Resolver, catalog MedicationLookup) *Engine {
	if log == nil {
		log = logrus.New()
	}
	return &Engine{
		log:      log,
		resolver: resolver,
		catalog:  catalog,
		now:      time.Now,
		slots:    map[uint8]*SlotState{},
		configs:  map[uint8]*SlotConfig{},
	}
}

// HandleNotification runs the full pipeline for one raw notification from the
// device at deviceAddr. Decode failures drop the packet and leave all state
// unchanged. A missing pairing is not an error, the packet's own slot hint is
// used instead.
func (e *Engine) HandleNotification(deviceAddr string, raw []byte) (*Result, error) {
	pkt, err := packet.Decode(raw)
	if err != nil {
		return nil, err
	}

	slotID := pkt.SlotIDHint
	if resolved, ok := e.resolver.Resolve(deviceAddr); ok {
		slotID = resolved
	} else {
		e.log.Debugf("No pairing for device %s, using reported slot hint %d", deviceAddr, pkt.SlotIDHint)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	state := e.slotLocked(slotID)

	smoothed := nextSmoothed(state.SmoothedWeightGrams, pkt.WeightGrams)
	state.SmoothedWeightGrams = &smoothed
	state.LastDeviceBaselineGrams = pkt.DeviceBaselineGrams
	state.LastFlags = pkt.Flags
	state.LastSequence = pkt.Sequence
	state.LastUpdate = now
	state.History = appendSample(state.History, Sample{
		Timestamp: now,
		Grams:     smoothed,
		Stable:    pkt.HasFlag(packet.FlagStable),
	}, now)

	event := deriveEvent(slotID, pkt.Flags, pkt.DeltaMilligrams, e.medicationNameLocked(slotID), now)
	if event != nil {
		e.events = pushEvent(e.events, *event)
	}

	return &Result{
		SlotID:        slotID,
		SmoothedGrams: smoothed,
		Event:         event,
		CommandStatus: packet.EventCode(pkt.EventCode).String(),
	}, nil
}

// slotLocked returns the state for a slot, creating it on first reference.
func (e *Engine) slotLocked(slotID uint8) *SlotState {
	state, ok := e.slots[slotID]
	if !ok {
		state = &SlotState{SlotID: slotID}
		e.slots[slotID] = state
	}
	return state
}

// configLocked returns the config for a slot, freshly initialized when the
// slot has none yet.
func (e *Engine) configLocked(slotID uint8) *SlotConfig {
	cfg, ok := e.configs[slotID]
	if !ok {
		cfg = &SlotConfig{SlotID: slotID}
		e.configs[slotID] = cfg
	}
	return cfg
}

func (e *Engine) medicationNameLocked(slotID uint8) string {
	cfg, ok := e.configs[slotID]
	if !ok || cfg.MedicationID == "" || e.catalog == nil {
		return unknownMedication
	}
	name, ok := e.catalog.MedicationName(cfg.MedicationID)
	if !ok {
		return unknownMedication
	}
	return name
}

// ResetSlot clears the smoothing state and history for a slot, keeping its
// configuration. Used on mode switches.
func (e *Engine) ResetSlot(slotID uint8) {
	e.mu.Lock()
	defer e.mu.Unlock()
	state := e.slotLocked(slotID)
	state.SmoothedWeightGrams = nil
	state.History = nil
}

// ComputeLoss returns the user bottle baseline minus the current smoothed
// weight. Unset when either side is missing. The device-reported baseline is
// deliberately not used here.
func (e *Engine) ComputeLoss(slotID uint8) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cfg, ok := e.configs[slotID]
	if !ok || cfg.BottleBaselineGrams == nil {
		return 0, false
	}
	state, ok := e.slots[slotID]
	if !ok || state.SmoothedWeightGrams == nil {
		return 0, false
	}
	return *cfg.BottleBaselineGrams - *state.SmoothedWeightGrams, true
}

// AdoptDeviceBaseline copies the last device-reported baseline into the user
// bottle baseline. This explicit copy is the only point where the two
// baseline notions meet.
func (e *Engine) AdoptDeviceBaseline(slotID uint8) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok := e.slots[slotID]
	if !ok || state.LastUpdate.IsZero() {
		return 0, false
	}
	baseline := state.LastDeviceBaselineGrams
	e.configLocked(slotID).BottleBaselineGrams = &baseline
	return baseline, true
}

// AddPillSample appends one calibration weight and recomputes the average.
func (e *Engine) AddPillSample(slotID uint8, grams float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cfg := e.configLocked(slotID)
	cfg.PillSampleGrams = append(cfg.PillSampleGrams, grams)
	cfg.recomputeAverage()
}

// RemovePillSample removes the calibration sample at index, recomputing the
// average. Out-of-range indexes are ignored.
func (e *Engine) RemovePillSample(slotID uint8, index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cfg := e.configLocked(slotID)
	if index < 0 || index >= len(cfg.PillSampleGrams) {
		return
	}
	cfg.PillSampleGrams = append(cfg.PillSampleGrams[:index], cfg.PillSampleGrams[index+1:]...)
	cfg.recomputeAverage()
}

// ClearPillSamples removes all calibration samples and unsets the average.
func (e *Engine) ClearPillSamples(slotID uint8) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cfg := e.configLocked(slotID)
	cfg.PillSampleGrams = nil
	cfg.recomputeAverage()
}

// SetConfig replaces a slot's configuration. The derived average is always
// recomputed from the stored samples rather than trusted from the caller.
func (e *Engine) SetConfig(cfg SlotConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cfg.recomputeAverage()
	stored := cfg
	e.configs[cfg.SlotID] = &stored
}

// Config returns a copy of a slot's configuration, freshly initialized if
// the slot has none yet.
func (e *Engine) Config(slotID uint8) SlotConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.configLocked(slotID)
}

// Configs returns a copy of every slot configuration, for persistence.
func (e *Engine) Configs() []SlotConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	configs := make([]SlotConfig, 0, len(e.configs))
	for _, cfg := range e.configs {
		configs = append(configs, *cfg)
	}
	return configs
}

// Events returns a copy of the event log, newest first.
func (e *Engine) Events() []EventRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	events := make([]EventRecord, len(e.events))
	copy(events, e.events)
	return events
}

// State returns a deep copy of one slot's state, or false if the slot has
// never been referenced.
func (e *Engine) State(slotID uint8) (SlotState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok := e.slots[slotID]
	if !ok {
		return SlotState{}, false
	}
	return copyState(state), true
}

// States returns a deep copy of all slot states.
func (e *Engine) States() []SlotState {
	e.mu.Lock()
	defer e.mu.Unlock()
	states := make([]SlotState, 0, len(e.slots))
	for _, state := range e.slots {
		states = append(states, copyState(state))
	}
	return states
}

func copyState(state *SlotState) SlotState {
	out := *state
	if state.SmoothedWeightGrams != nil {
		grams := *state.SmoothedWeightGrams
		out.SmoothedWeightGrams = &grams
	}
	out.History = make([]Sample, len(state.History))
	copy(out.History, state.History)
	return out
}
