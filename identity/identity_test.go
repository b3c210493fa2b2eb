package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPairAndResolve(t *testing.T) {
	r := NewResolver()

	_, ok := r.Resolve("AA:BB:CC:DD:EE:01")
	assert.False(t, ok)

	r.Pair("AA:BB:CC:DD:EE:01", 5)
	slot, ok := r.Resolve("AA:BB:CC:DD:EE:01")
	assert.True(t, ok)
	assert.Equal(t, uint8(5), slot)

	addr, ok := r.Address(5)
	assert.True(t, ok)
	assert.Equal(t, "AA:BB:CC:DD:EE:01", addr)
}

func TestPairEvictsPreviousOwnerOfSlot(t *testing.T) {
	r := NewResolver()
	r.Pair("AA:BB:CC:DD:EE:01", 5)
	r.Pair("AA:BB:CC:DD:EE:02", 5)

	_, ok := r.Resolve("AA:BB:CC:DD:EE:01")
	assert.False(t, ok)

	slot, ok := r.Resolve("AA:BB:CC:DD:EE:02")
	assert.True(t, ok)
	assert.Equal(t, uint8(5), slot)
}

func TestPairEvictsPreviousSlotOfAddress(t *testing.T) {
	r := NewResolver()
	r.Pair("AA:BB:CC:DD:EE:01", 5)
	r.Pair("AA:BB:CC:DD:EE:01", 7)

	_, ok := r.Address(5)
	assert.False(t, ok)

	slot, ok := r.Resolve("AA:BB:CC:DD:EE:01")
	assert.True(t, ok)
	assert.Equal(t, uint8(7), slot)
}

func TestUnpairIsIdempotent(t *testing.T) {
	r := NewResolver()
	r.Pair("AA:BB:CC:DD:EE:01", 5)

	r.Unpair(5)
	_, ok := r.Resolve("AA:BB:CC:DD:EE:01")
	assert.False(t, ok)
	_, ok = r.Address(5)
	assert.False(t, ok)

	// Unpairing again is a no-op, not an error.
	r.Unpair(5)
	r.Unpair(9)
}

func TestLabels(t *testing.T) {
	r := NewResolver()

	_, ok := r.Label("AA:BB:CC:DD:EE:01")
	assert.False(t, ok)

	r.SetLabel("AA:BB:CC:DD:EE:01", "bedside")
	label, ok := r.Label("AA:BB:CC:DD:EE:01")
	assert.True(t, ok)
	assert.Equal(t, "bedside", label)

	r.SetLabel("AA:BB:CC:DD:EE:01", "")
	_, ok = r.Label("AA:BB:CC:DD:EE:01")
	assert.False(t, ok)
}

func TestPairingsSnapshotAndRestore(t *testing.T) {
	r := NewResolver()
	r.Pair("AA:BB:CC:DD:EE:01", 1)
	r.Pair("AA:BB:CC:DD:EE:02", 2)
	r.SetLabel("AA:BB:CC:DD:EE:02", "kitchen")

	snapshot := r.Pairings()
	assert.Len(t, snapshot, 2)

	restored := NewResolver()
	restored.Restore(snapshot)
	slot, ok := restored.Resolve("AA:BB:CC:DD:EE:02")
	assert.True(t, ok)
	assert.Equal(t, uint8(2), slot)
	label, ok := restored.Label("AA:BB:CC:DD:EE:02")
	assert.True(t, ok)
	assert.Equal(t, "kitchen", label)
}
