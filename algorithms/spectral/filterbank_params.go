package spectral

import (
	"fmt"
	"math"
	"strings"
)

// ScaleMode controls how peak amplitudes vary across the filters of a bank
type ScaleMode string

const (
	ScaleConstant   ScaleMode = "constant"   // every peak is 1
	ScaleAscending  ScaleMode = "ascending"  // peaks grow with filter index
	ScaleDescending ScaleMode = "descending" // peaks shrink with filter index
)

// ParseScaleMode converts a config or flag value into a ScaleMode
func ParseScaleMode(s string) (ScaleMode, error) {
	mode := ScaleMode(strings.ToLower(strings.TrimSpace(s)))
	switch mode {
	case "":
		return ScaleConstant, nil
	case ScaleConstant, ScaleAscending, ScaleDescending:
		return mode, nil
	}
	return "", paramError("scale", s, "scale must be one of constant, ascending, descending")
}

// gain returns the amplitude factor applied to filter i of n
func (m ScaleMode) gain(i, n int) float64 {
	switch m {
	case ScaleAscending:
		return float64(i+1) / float64(n)
	case ScaleDescending:
		return float64(n-i) / float64(n)
	default:
		return 1.0
	}
}

// FilterBankParams configures a triangular filter bank.
// LowFreq and HighFreq are optional; nil means "use the default".
type FilterBankParams struct {
	NumFilters int       `json:"num_filters" yaml:"num_filters"`                 // Number of filters (default: 20)
	FFTSize    int       `json:"fft_size" yaml:"fft_size"`                       // FFT size (default: 512)
	SampleRate float64   `json:"sample_rate" yaml:"sample_rate"`                 // Sample rate in Hz (default: 16000)
	LowFreq    *float64  `json:"low_freq,omitempty" yaml:"low_freq,omitempty"`   // Lowest band edge (default: 0)
	HighFreq   *float64  `json:"high_freq,omitempty" yaml:"high_freq,omitempty"` // Highest band edge (default: sampleRate/2)
	Scale      ScaleMode `json:"scale" yaml:"scale"`                             // Peak amplitude envelope (default: constant)
}

// DefaultFilterBankParams returns the standard speech front-end settings
func DefaultFilterBankParams() FilterBankParams {
	return FilterBankParams{
		NumFilters: 20,
		FFTSize:    512,
		SampleRate: 16000,
		Scale:      ScaleConstant,
	}
}

// Hz returns a pointer to freq, for setting LowFreq/HighFreq inline
func Hz(freq float64) *float64 {
	return &freq
}

// NumBins is the width of the one-sided spectrum the bank covers
func (p FilterBankParams) NumBins() int {
	return p.FFTSize/2 + 1
}

// resolvedParams is FilterBankParams with every default filled in and checked
type resolvedParams struct {
	numFilters int
	fftSize    int
	sampleRate float64
	lowFreq    float64
	highFreq   float64
	scale      ScaleMode
}

// Validate reports the first configuration problem, if any
func (p FilterBankParams) Validate() error {
	_, err := p.resolve()
	return err
}

func (p FilterBankParams) resolve() (resolvedParams, error) {
	if p.NumFilters <= 0 {
		return resolvedParams{}, paramError("num_filters", p.NumFilters, "number of filters must be positive")
	}
	if p.FFTSize <= 0 {
		return resolvedParams{}, paramError("fft_size", p.FFTSize, "fft size must be positive")
	}
	if !isFinite(p.SampleRate) || p.SampleRate <= 0 {
		return resolvedParams{}, paramError("sample_rate", p.SampleRate, "sample rate must be a positive finite number")
	}

	nyquist := p.SampleRate / 2
	low, high := 0.0, nyquist
	if p.LowFreq != nil {
		low = *p.LowFreq
	}
	if p.HighFreq != nil {
		high = *p.HighFreq
	}

	if !isFinite(low) || low < 0 {
		return resolvedParams{}, paramError("low_freq", low, "low frequency must be a finite number >= 0")
	}
	if !isFinite(high) {
		return resolvedParams{}, paramError("high_freq", high, "high frequency must be a finite number")
	}
	if high > nyquist {
		return resolvedParams{}, paramError("high_freq", high, fmt.Sprintf("high frequency must be <= sample_rate/2 (%g)", nyquist))
	}
	if low >= high {
		return resolvedParams{}, paramError("high_freq", high, fmt.Sprintf("high frequency must be > low frequency (%g)", low))
	}

	scale, err := ParseScaleMode(string(p.Scale))
	if err != nil {
		return resolvedParams{}, err
	}

	return resolvedParams{
		numFilters: p.NumFilters,
		fftSize:    p.FFTSize,
		sampleRate: p.SampleRate,
		lowFreq:    low,
		highFreq:   high,
		scale:      scale,
	}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
