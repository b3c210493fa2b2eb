package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecomputeAverage(t *testing.T) {
	cfg := &SlotConfig{SlotID: 1}
	cfg.recomputeAverage()
	assert.Nil(t, cfg.AveragePillWeightGrams)

	cfg.PillSampleGrams = []float64{0.5, 0.7}
	cfg.recomputeAverage()
	assert.NotNil(t, cfg.AveragePillWeightGrams)
	assert.InDelta(t, 0.6, *cfg.AveragePillWeightGrams, 1e-9)

	cfg.PillSampleGrams = nil
	cfg.recomputeAverage()
	assert.Nil(t, cfg.AveragePillWeightGrams)
}

func TestEstimatePillsFromDose(t *testing.T) {
	pills, ok := EstimatePillsFromDose(500, 1000)
	assert.True(t, ok)
	assert.Equal(t, 2, pills)

	pills, ok = EstimatePillsFromDose(400, 1000)
	assert.True(t, ok)
	assert.Equal(t, 3, pills) // round(2.5)

	_, ok = EstimatePillsFromDose(0, 1000)
	assert.False(t, ok)
	_, ok = EstimatePillsFromDose(500, 0)
	assert.False(t, ok)
	_, ok = EstimatePillsFromDose(-1, -1)
	assert.False(t, ok)
}

func TestEstimateDoseWeight(t *testing.T) {
	avg := 0.55
	count := 3

	weight, ok := EstimateDoseWeight(&avg, &count)
	assert.True(t, ok)
	assert.InDelta(t, 1.65, weight, 1e-9)

	_, ok = EstimateDoseWeight(nil, &count)
	assert.False(t, ok)
	_, ok = EstimateDoseWeight(&avg, nil)
	assert.False(t, ok)
}
