package engine

// smoothingAlpha is the exponential moving average factor applied to raw
// weight readings. Fixed by design: low enough to suppress load-cell jitter,
// high enough to follow a real weight step within a few samples.
const smoothingAlpha = 0.20

// nextSmoothed returns the next smoothed value for a slot. With no prior
// value the first raw sample is taken verbatim.
func nextSmoothed(prev *float64, rawGrams float64) float64 {
	if prev == nil {
		return rawGrams
	}
	return smoothingAlpha*rawGrams + (1-smoothingAlpha)*(*prev)
}
