package spectral

import (
	"math"

	"github.com/RyanBlaney/sonido-fbank/logging"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// HzToBin maps a frequency onto the one-sided FFT bin grid.
// The result is clamped to fftSize/2 so odd FFT sizes stay in range.
func HzToBin(hz float64, fftSize int, sampleRate float64) int {
	bin := int(math.Floor(float64(fftSize+1) * hz / sampleRate))
	return min(max(bin, 0), fftSize/2)
}

// FrequenciesToBins converts band edge frequencies to FFT bin indices
func FrequenciesToBins(freqs []float64, fftSize int, sampleRate float64) []int {
	bins := make([]int, len(freqs))
	for i, hz := range freqs {
		bins[i] = HzToBin(hz, fftSize, sampleRate)
	}
	return bins
}

// LinearEdgePoints returns n+2 points evenly spaced over [low, high],
// both ends included
func LinearEdgePoints(low, high float64, n int) []float64 {
	points := make([]float64, n+2)
	step := (high - low) / float64(n+1)
	for i := range points {
		points[i] = low + float64(i)*step
	}
	points[len(points)-1] = high
	return points
}

// triangularFilterBank builds one triangle per consecutive bin triple.
// Row i spans bins[i]..bins[i+2] and peaks at bins[i+1].
func triangularFilterBank(bins []int, numBins int, scale ScaleMode, logger logging.Logger) *mat.Dense {
	numFilters := len(bins) - 2
	fb := mat.NewDense(numFilters, numBins, nil)
	degenerate := 0

	for i := range numFilters {
		left, center, right := bins[i], bins[i+1], bins[i+2]
		gain := scale.gain(i, numFilters)

		// Rising edge, empty when left == center
		for k := left; k < center; k++ {
			fb.Set(i, k, gain*float64(k-left)/float64(center-left))
		}

		// Falling edge, starts at the peak
		for k := center; k < right; k++ {
			fb.Set(i, k, gain*float64(right-k)/float64(right-center))
		}

		// Zero-width falling edge: the peak still has to land somewhere
		if center == right {
			fb.Set(i, center, gain)
		}

		if left == center || center == right {
			degenerate++
		}
	}

	if degenerate > 0 {
		logger.Debug("narrow filters collapsed onto single bins", logging.Fields{
			"degenerate_filters": degenerate,
			"num_filters":        numFilters,
			"num_bins":           numBins,
		})
	}

	fb.Apply(func(_, _ int, v float64) float64 { return math.Abs(v) }, fb)
	return fb
}

// buildFilterBank validates params, places edges with edgeFn and synthesizes
// the bank. edgeFn receives the resolved frequency bounds.
func buildFilterBank(params FilterBankParams, edgeFn func(low, high float64, n int) []float64, logger logging.Logger) (*mat.Dense, error) {
	p, err := params.resolve()
	if err != nil {
		return nil, err
	}

	edges := edgeFn(p.lowFreq, p.highFreq, p.numFilters)
	bins := FrequenciesToBins(edges, p.fftSize, p.sampleRate)

	return triangularFilterBank(bins, params.NumBins(), p.scale, logger), nil
}

// ApplyFilterBank projects a one-sided power spectrum onto the filter bank.
// The spectrum length must match the bank's column count.
func ApplyFilterBank(powerSpectrum []float64, filterBank *mat.Dense) ([]float64, error) {
	rows, cols := filterBank.Dims()
	if len(powerSpectrum) != cols {
		return nil, paramError("spectrum", len(powerSpectrum), "spectrum length must equal fft_size/2+1 of the filter bank")
	}

	out := mat.NewVecDense(rows, nil)
	out.MulVec(filterBank, mat.NewVecDense(cols, powerSpectrum))
	return out.RawVector().Data, nil
}

// ApplyFilterBankFrames projects every frame of a power spectrogram in one
// matrix product. All frames must have the bank's column count.
func ApplyFilterBankFrames(powerSpectrogram [][]float64, filterBank *mat.Dense) ([][]float64, error) {
	if len(powerSpectrogram) == 0 {
		return [][]float64{}, nil
	}

	rows, cols := filterBank.Dims()
	frames := mat.NewDense(len(powerSpectrogram), cols, nil)
	for t, frame := range powerSpectrogram {
		if len(frame) != cols {
			return nil, paramError("spectrum", len(frame), "spectrum length must equal fft_size/2+1 of the filter bank")
		}
		frames.SetRow(t, frame)
	}

	var product mat.Dense
	product.Mul(frames, filterBank.T())

	out := make([][]float64, len(powerSpectrogram))
	for t := range out {
		out[t] = make([]float64, rows)
		mat.Row(out[t], t, &product)
	}
	return out, nil
}

// PeakAmplitudes returns the maximum weight of every filter
func PeakAmplitudes(filterBank *mat.Dense) []float64 {
	rows, _ := filterBank.Dims()
	peaks := make([]float64, rows)
	for i := range peaks {
		peaks[i] = floats.Max(filterBank.RawRowView(i))
	}
	return peaks
}

// toPower squares a magnitude spectrum
func toPower(magnitudeSpectrum []float64) []float64 {
	power := make([]float64, len(magnitudeSpectrum))
	floats.MulTo(power, magnitudeSpectrum, magnitudeSpectrum)
	return power
}
