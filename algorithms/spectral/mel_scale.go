package spectral

import (
	"math"

	"github.com/RyanBlaney/sonido-fbank/logging"
	"gonum.org/v1/gonum/mat"
)

// MelScale provides mel frequency conversion and mel filter banks.
// Mel banks share bin placement and triangle synthesis with LinearScale;
// only the edge spacing differs.
type MelScale struct {
	logger logging.Logger
}

// NewMelScale creates a new mel scale converter
func NewMelScale() *MelScale {
	return &MelScale{
		logger: logging.WithFields(logging.Fields{"component": "mel_filterbank"}),
	}
}

// HzToMel converts frequency in Hz to mel scale
func (ms *MelScale) HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts mel scale to frequency in Hz
func (ms *MelScale) MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// MelEdgePoints returns n+2 frequencies in Hz, evenly spaced in mels
// between low and high
func (ms *MelScale) MelEdgePoints(low, high float64, n int) []float64 {
	points := LinearEdgePoints(ms.HzToMel(low), ms.HzToMel(high), n)
	for i, mel := range points {
		points[i] = ms.MelToHz(mel)
	}
	// Pin the ends so round-tripping through log10 can't push past Nyquist
	points[0], points[len(points)-1] = low, high
	return points
}

// CreateMelFilterBank creates a mel-scale filter bank with the same shape,
// validation and scaling rules as CreateLinearFilterBank
func (ms *MelScale) CreateMelFilterBank(params FilterBankParams) (*mat.Dense, error) {
	return buildFilterBank(params, ms.MelEdgePoints, ms.logger)
}

// ApplyFilterBank applies mel filter bank to power spectrum
func (ms *MelScale) ApplyFilterBank(powerSpectrum []float64, filterBank *mat.Dense) ([]float64, error) {
	return ApplyFilterBank(powerSpectrum, filterBank)
}

// ComputeMelSpectrum computes mel-scale spectrum from magnitude spectrum
func (ms *MelScale) ComputeMelSpectrum(magnitudeSpectrum []float64, params FilterBankParams) ([]float64, error) {
	params.FFTSize = (len(magnitudeSpectrum) - 1) * 2

	filterBank, err := ms.CreateMelFilterBank(params)
	if err != nil {
		return nil, err
	}

	return ApplyFilterBank(toPower(magnitudeSpectrum), filterBank)
}
