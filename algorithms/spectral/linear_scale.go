package spectral

import (
	"github.com/RyanBlaney/sonido-fbank/logging"
	"gonum.org/v1/gonum/mat"
)

// LinearScale builds filter banks whose band edges are evenly spaced in Hz.
// Used as the front end for linear-frequency cepstral and band energy features.
type LinearScale struct {
	logger logging.Logger
}

// NewLinearScale creates a linear filter bank builder
func NewLinearScale() *LinearScale {
	return &LinearScale{
		logger: logging.WithFields(logging.Fields{"component": "linear_filterbank"}),
	}
}

// CreateLinearFilterBank computes a NumFilters x (FFTSize/2+1) matrix of
// triangular filters. Each row holds one filter; columns are FFT bins.
// Invalid params return a *ParameterError before anything is allocated.
func (ls *LinearScale) CreateLinearFilterBank(params FilterBankParams) (*mat.Dense, error) {
	return buildFilterBank(params, LinearEdgePoints, ls.logger)
}

// ApplyFilterBank applies a linear filter bank to a power spectrum
func (ls *LinearScale) ApplyFilterBank(powerSpectrum []float64, filterBank *mat.Dense) ([]float64, error) {
	return ApplyFilterBank(powerSpectrum, filterBank)
}

// ComputeLinearSpectrum computes band energies from a one-sided magnitude
// spectrum. The FFT size is taken from the spectrum length, overriding
// params.FFTSize.
func (ls *LinearScale) ComputeLinearSpectrum(magnitudeSpectrum []float64, params FilterBankParams) ([]float64, error) {
	params.FFTSize = (len(magnitudeSpectrum) - 1) * 2

	filterBank, err := ls.CreateLinearFilterBank(params)
	if err != nil {
		return nil, err
	}

	return ApplyFilterBank(toPower(magnitudeSpectrum), filterBank)
}

// ComputeLinearSpectrogramFrames processes multiple magnitude frames with a
// single filter bank sized from the first frame
func (ls *LinearScale) ComputeLinearSpectrogramFrames(spectrogram [][]float64, params FilterBankParams) ([][]float64, error) {
	if len(spectrogram) == 0 {
		return [][]float64{}, nil
	}

	params.FFTSize = (len(spectrogram[0]) - 1) * 2
	filterBank, err := ls.CreateLinearFilterBank(params)
	if err != nil {
		return nil, err
	}

	power := make([][]float64, len(spectrogram))
	for t, frame := range spectrogram {
		power[t] = toPower(frame)
	}

	return ApplyFilterBankFrames(power, filterBank)
}
