package fbank

import "gonum.org/v1/gonum/dsp/fourier"

// spectrumPlan wraps a gonum real-input FFT plan sized for one FFT
// frame, and scratch space for the power spectrum derived from its
// output coefficients.
type spectrumPlan struct {
	fft   *fourier.FFT
	coeff []complex128
}

func newSpectrumPlan(fftSize int) *spectrumPlan {
	return &spectrumPlan{fft: fourier.NewFFT(fftSize)}
}

// powerSpectrum computes |FFT(frame)|^2 at bins [0, fftSize/2], writing
// into dst (len fftSize/2+1) and returning it.
func (p *spectrumPlan) powerSpectrum(frame []float64, dst []float64) []float64 {
	p.coeff = p.fft.Coefficients(p.coeff, frame)
	for i, c := range p.coeff {
		re, im := real(c), imag(c)
		dst[i] = re*re + im*im
	}
	return dst
}
