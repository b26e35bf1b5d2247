package fbank

import "math"

// hannWindow returns a periodic Hann window of length n:
// 0.5 - 0.5*cos(2*pi*i/n) for i in [0, n). "Periodic" (as opposed to
// symmetric) means the divisor is n, not n-1 — using n-1 here is exactly
// the kind of subtle deviation that produces a numerically-plausible
// but wrong mel matrix.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// hzToMel converts Hz to the O'Shaughnessy mel scale used by Kaldi-style
// front ends: 2595*log10(1+f/700).
func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// melFilterBank builds the numBins x (fftSize/2+1) triangular mel
// filterbank matrix. Bin indices are computed as
// floor((fftSize+1)*f/sampleRate), matching the reference kaldi-style
// construction rather than rounding — the two disagree by one bin at
// the edges of the spectrum often enough to matter.
//
// A filter whose weights all come out zero (its left/center/right bins
// collapse so closely that no bin gets a non-zero slope value) is
// tolerated but reported via the returned degenerate index list so
// callers can log it.
func melFilterBank(numBins, fftSize, sampleRate int, lowFreq, highFreq float64) (bank [][]float64, degenerate []int) {
	halfFFT := fftSize/2 + 1
	lowMel := hzToMel(lowFreq)
	highMel := hzToMel(highFreq)

	melPoints := make([]float64, numBins+2)
	step := (highMel - lowMel) / float64(numBins+1)
	for i := range melPoints {
		melPoints[i] = lowMel + float64(i)*step
	}

	bins := make([]int, numBins+2)
	for i, m := range melPoints {
		hz := melToHz(m)
		bin := int(math.Floor(float64(fftSize+1) * hz / float64(sampleRate)))
		if bin >= halfFFT {
			bin = halfFFT - 1
		}
		if bin < 0 {
			bin = 0
		}
		bins[i] = bin
	}

	bank = make([][]float64, numBins)
	for m := 0; m < numBins; m++ {
		filter := make([]float64, halfFFT)
		left, center, right := bins[m], bins[m+1], bins[m+2]

		for k := left; k < center && k < halfFFT; k++ {
			if center != left {
				filter[k] = float64(k-left) / float64(center-left)
			}
		}
		for k := center; k <= right && k < halfFFT; k++ {
			if right != center {
				filter[k] = float64(right-k) / float64(right-center)
			}
		}
		bank[m] = filter

		allZero := true
		for _, w := range filter {
			if w != 0 {
				allZero = false
				break
			}
		}
		if allZero {
			degenerate = append(degenerate, m)
		}
	}
	return bank, degenerate
}
