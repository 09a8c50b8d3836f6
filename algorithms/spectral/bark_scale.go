package spectral

import (
	"math"

	"github.com/RyanBlaney/sonido-fbank/logging"
	"gonum.org/v1/gonum/mat"
)

// BarkScale provides bark frequency conversion and bark-spaced triangular
// filter banks, based on critical bands of human auditory perception
type BarkScale struct {
	logger logging.Logger
}

// NewBarkScale creates a new bark scale converter
func NewBarkScale() *BarkScale {
	return &BarkScale{
		logger: logging.WithFields(logging.Fields{"component": "bark_filterbank"}),
	}
}

// HzToBark converts frequency in Hz to bark scale
// Using Traunmüller (1990) formula
func (bs *BarkScale) HzToBark(hz float64) float64 {
	return (26.81 * hz / (1960.0 + hz)) - 0.53
}

// BarkToHz converts bark scale to frequency in Hz
// Inverse of Traunmüller formula
func (bs *BarkScale) BarkToHz(bark float64) float64 {
	return 1960.0 * (bark + 0.53) / (26.28 - bark)
}

// HzToBarkZwicker converts frequency in Hz to bark scale using Zwicker & Terhardt (1980)
func (bs *BarkScale) HzToBarkZwicker(hz float64) float64 {
	return 13.0*math.Atan(0.00076*hz) + 3.5*math.Atan((hz/7500.0)*(hz/7500.0))
}

// BarkEdgePoints returns n+2 frequencies in Hz, evenly spaced in barks
func (bs *BarkScale) BarkEdgePoints(low, high float64, n int) []float64 {
	points := LinearEdgePoints(bs.HzToBark(low), bs.HzToBark(high), n)
	for i, bark := range points {
		points[i] = bs.BarkToHz(bark)
	}
	points[0], points[len(points)-1] = low, high
	return points
}

// CreateBarkFilterBank creates a bark-spaced triangular filter bank with the
// same shape, validation and scaling rules as CreateLinearFilterBank
func (bs *BarkScale) CreateBarkFilterBank(params FilterBankParams) (*mat.Dense, error) {
	return buildFilterBank(params, bs.BarkEdgePoints, bs.logger)
}

// ComputeBarkSpectrum computes bark-scale band energies from a magnitude spectrum
func (bs *BarkScale) ComputeBarkSpectrum(magnitudeSpectrum []float64, params FilterBankParams) ([]float64, error) {
	params.FFTSize = (len(magnitudeSpectrum) - 1) * 2

	filterBank, err := bs.CreateBarkFilterBank(params)
	if err != nil {
		return nil, err
	}

	return ApplyFilterBank(toPower(magnitudeSpectrum), filterBank)
}

// GetCriticalBandEdges returns the 24 critical band edge frequencies in Hz
func (bs *BarkScale) GetCriticalBandEdges() []float64 {
	return []float64{
		0, 100, 200, 300, 400, 510, 630, 770, 920, 1080,
		1270, 1480, 1720, 2000, 2320, 2700, 3150, 3700, 4400,
		5300, 6400, 7700, 9500, 12000, 15500,
	}
}
