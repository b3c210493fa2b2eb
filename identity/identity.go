// Package identity maps physical device addresses to logical slot numbers.
// A device can be remapped to a different slot without firmware changes, the
// pairing always wins over the slot hint the device reports about itself.
package identity

import "sync"

// Pairing is one address/slot association with an optional user label.
type Pairing struct {
	DeviceAddress string `json:"deviceAddress"`
	SlotID        uint8  `json:"slotId"`
	Label         string `json:"label,omitempty"`
}

// Resolver holds the bidirectional pairing table. At most one slot per
// address and one address per slot, pairing evicts the previous owner on
// either side.
type Resolver struct {
	mu         sync.Mutex
	addrToSlot map[string]uint8
	slotToAddr map[uint8]string
	labels     map[string]string
}

func NewResolver() *Resolver {
	return &Resolver{
		addrToSlot: map[string]uint8{},
		slotToAddr: map[uint8]string{},
		labels:     map[string]string{},
	}
}

// Pair associates a device address with a logical slot. Any previous pairing
// on either the address or the slot is removed first so exactly one pairing
// survives per side.
func (r *Resolver) Pair(deviceAddress string, slotID uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if oldSlot, ok := r.addrToSlot[deviceAddress]; ok {
		delete(r.slotToAddr, oldSlot)
	}
	if oldAddr, ok := r.slotToAddr[slotID]; ok {
		delete(r.addrToSlot, oldAddr)
	}
	r.addrToSlot[deviceAddress] = slotID
	r.slotToAddr[slotID] = deviceAddress
}

// Unpair removes both directions of the mapping for the given slot. Unpairing
// a slot with no pairing is a no-op.
func (r *Resolver) Unpair(slotID uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()

	addr, ok := r.slotToAddr[slotID]
	if !ok {
		return
	}
	delete(r.slotToAddr, slotID)
	delete(r.addrToSlot, addr)
}

// Resolve returns the slot paired with the device address, if any.
func (r *Resolver) Resolve(deviceAddress string) (uint8, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.addrToSlot[deviceAddress]
	return slot, ok
}

// Address returns the device address paired with the slot, if any.
func (r *Resolver) Address(slotID uint8) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	addr, ok := r.slotToAddr[slotID]
	return addr, ok
}

// Label returns the user label for a device address, if one is set.
func (r *Resolver) Label(deviceAddress string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	label, ok := r.labels[deviceAddress]
	return label, ok
}

// SetLabel sets the user label for a device address. An empty label removes
// the entry.
func (r *Resolver) SetLabel(deviceAddress, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if label == "" {
		delete(r.labels, deviceAddress)
		return
	}
	r.labels[deviceAddress] = label
}

// Pairings returns a snapshot of the table for persistence and status output.
func (r *Resolver) Pairings() []Pairing {
	r.mu.Lock()
	defer r.mu.Unlock()

	pairings := make([]Pairing, 0, len(r.addrToSlot))
	for addr, slot := range r.addrToSlot {
		pairings = append(pairings, Pairing{
			DeviceAddress: addr,
			SlotID:        slot,
			Label:         r.labels[addr],
		})
	}
	return pairings
}

// Restore loads pairings, replacing the current table. Used when resuming
// from a persisted state.
func (r *Resolver) Restore(pairings []Pairing) {
	r.mu.Lock()
	r.addrToSlot = map[string]uint8{}
	r.slotToAddr = map[uint8]string{}
	r.labels = map[string]string{}
	r.mu.Unlock()

	for _, p := range pairings {
		r.Pair(p.DeviceAddress, p.SlotID)
		if p.Label != "" {
			r.SetLabel(p.DeviceAddress, p.Label)
		}
	}
}
