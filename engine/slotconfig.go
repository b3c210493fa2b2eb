package engine

import "math"

// SlotConfig is the user-editable per-slot configuration. The engine defines
// the record shape, the caller persists it. MedicationID is a weak reference
// into an external catalog, a dangling id resolves to "unknown medication"
// rather than failing. Optional numerics are pointers so "no data yet" stays
// distinguishable from zero.
type SlotConfig struct {
	SlotID                 uint8     `json:"slotId"`
	DisplayName            string    `json:"displayName,omitempty"`
	MedicationID           string    `json:"medicationId,omitempty"`
	TargetDoseMilligrams   *float64  `json:"targetDoseMilligrams,omitempty"`
	TargetPillCount        *int      `json:"targetPillCount,omitempty"`
	BottleBaselineGrams    *float64  `json:"bottleBaselineGrams,omitempty"`
	PillSampleGrams        []float64 `json:"pillSampleGrams,omitempty"`
	AveragePillWeightGrams *float64  `json:"averagePillWeightGrams,omitempty"`
}

// recomputeAverage recalculates the average pill weight from the stored
// calibration samples, clearing it when no samples remain. Must run after
// every sample add or remove.
func (c *SlotConfig) recomputeAverage() {
	if len(c.PillSampleGrams) == 0 {
		c.AveragePillWeightGrams = nil
		return
	}
	sum := 0.0
	for _, g := range c.PillSampleGrams {
		sum += g
	}
	avg := sum / float64(len(c.PillSampleGrams))
	c.AveragePillWeightGrams = &avg
}

// EstimatePillsFromDose converts a target dose to a pill count. Unset unless
// both inputs are positive.
func EstimatePillsFromDose(medMgPerPill, targetDoseMg float64) (int, bool) {
	if medMgPerPill <= 0 || targetDoseMg <= 0 {
		return 0, false
	}
	return int(math.Round(targetDoseMg / medMgPerPill)), true
}

// EstimateDoseWeight returns the expected weight of one dose, unset unless
// both the average pill weight and the target pill count are available.
func EstimateDoseWeight(averagePillWeightGrams *float64, targetPillCount *int) (float64, bool) {
	if averagePillWeightGrams == nil || targetPillCount == nil {
		return 0, false
	}
	return *averagePillWeightGrams * float64(*targetPillCount), true
}
