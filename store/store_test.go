package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medisense/pillslot-monitor/engine"
	"github.com/medisense/pillslot-monitor/identity"
)

func openTestStore(t *testing.T) *Store {
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPairingsRoundTrip(t *testing.T) {
	s := openTestStore(t)

	loaded, err := s.LoadPairings()
	require.NoError(t, err)
	assert.Empty(t, loaded)

	pairings := []identity.Pairing{
		{DeviceAddress: "AA:BB:CC:DD:EE:01", SlotID: 1, Label: "bedside"},
		{DeviceAddress: "AA:BB:CC:DD:EE:02", SlotID: 2},
	}
	require.NoError(t, s.SavePairings(pairings))

	loaded, err = s.LoadPairings()
	require.NoError(t, err)
	assert.ElementsMatch(t, pairings, loaded)

	// Saving replaces the whole table.
	require.NoError(t, s.SavePairings(pairings[:1]))
	loaded, err = s.LoadPairings()
	require.NoError(t, err)
	assert.Equal(t, pairings[:1], loaded)
}

func TestSlotConfigRoundTrip(t *testing.T) {
	s := openTestStore(t)

	baseline := 150.0
	count := 3
	cfg := engine.SlotConfig{
		SlotID:              5,
		DisplayName:         "evening meds",
		MedicationID:        "med-42",
		TargetPillCount:     &count,
		BottleBaselineGrams: &baseline,
		PillSampleGrams:     []float64{0.5, 0.7},
	}
	require.NoError(t, s.SaveSlotConfig(cfg))

	configs, err := s.LoadSlotConfigs()
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, cfg, configs[0])

	// Overwrite by slot id.
	cfg.DisplayName = "morning meds"
	require.NoError(t, s.SaveSlotConfig(cfg))
	configs, err = s.LoadSlotConfigs()
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, "morning meds", configs[0].DisplayName)
}

func TestSaveSlotConfigs(t *testing.T) {
	s := openTestStore(t)

	configs := []engine.SlotConfig{
		{SlotID: 1, DisplayName: "a"},
		{SlotID: 2, DisplayName: "b"},
	}
	require.NoError(t, s.SaveSlotConfigs(configs))

	loaded, err := s.LoadSlotConfigs()
	require.NoError(t, err)
	assert.ElementsMatch(t, configs, loaded)
}
