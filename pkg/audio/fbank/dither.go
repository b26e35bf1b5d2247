package fbank

import "math/rand/v2"

// applyDither adds i.i.d. Gaussian noise with standard deviation sigma
// to samples in place. A sigma of 0 is the identity — callers disable
// dithering by passing Config.Dither == 0, not by skipping the call.
func applyDither(samples []float64, sigma float64, rng *rand.Rand) {
	if sigma == 0 {
		return
	}
	for i := range samples {
		samples[i] += sigma * rng.NormFloat64()
	}
}
