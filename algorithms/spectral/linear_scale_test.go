package spectral

import (
	"bytes"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/RyanBlaney/sonido-fbank/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const weightTolerance = 1e-12

func smallParams(scale ScaleMode) FilterBankParams {
	return FilterBankParams{
		NumFilters: 4,
		FFTSize:    8,
		SampleRate: 16,
		LowFreq:    Hz(0),
		HighFreq:   Hz(8),
		Scale:      scale,
	}
}

func TestLinearEdgePoints(t *testing.T) {
	points := LinearEdgePoints(0, 8, 4)

	want := []float64{0, 1.6, 3.2, 4.8, 6.4, 8}
	require.Len(t, points, len(want))
	for i := range want {
		assert.InDelta(t, want[i], points[i], weightTolerance, "point %d", i)
	}
	assert.Equal(t, 8.0, points[len(points)-1], "last point must be exactly high")
}

func TestFrequenciesToBins(t *testing.T) {
	bins := FrequenciesToBins(LinearEdgePoints(0, 8, 4), 8, 16)
	assert.Equal(t, []int{0, 0, 1, 2, 3, 4}, bins)
}

func TestHzToBin_ClampsOddFFTSize(t *testing.T) {
	// floor(8 * 8 / 16) = 4, but nfft=7 only has bins 0..3
	assert.Equal(t, 3, HzToBin(8, 7, 16))
	assert.Equal(t, 0, HzToBin(0, 7, 16))
}

func TestCreateLinearFilterBank_SmallScenario(t *testing.T) {
	fb, err := NewLinearScale().CreateLinearFilterBank(smallParams(ScaleConstant))
	require.NoError(t, err)

	rows, cols := fb.Dims()
	assert.Equal(t, 4, rows)
	assert.Equal(t, 5, cols)

	want := mat.NewDense(4, 5, []float64{
		1, 0, 0, 0, 0, // edges (0,0,1): single peak at bin 0
		0, 1, 0, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 0, 1, 0,
	})
	assert.True(t, mat.EqualApprox(want, fb, weightTolerance), "got\n%v", mat.Formatted(fb))
}

func TestCreateLinearFilterBank_TriangleShape(t *testing.T) {
	// bins = floor(17*[0, 8/3, 16/3, 8]/16) = [0, 2, 5, 8]
	params := FilterBankParams{NumFilters: 2, FFTSize: 16, SampleRate: 16, Scale: ScaleConstant}

	fb, err := NewLinearScale().CreateLinearFilterBank(params)
	require.NoError(t, err)

	want := [][]float64{
		{0, 0.5, 1, 2.0 / 3, 1.0 / 3, 0, 0, 0, 0},
		{0, 0, 0, 1.0 / 3, 2.0 / 3, 1, 2.0 / 3, 1.0 / 3, 0},
	}
	for i, row := range want {
		for k, w := range row {
			assert.InDelta(t, w, fb.At(i, k), weightTolerance, "filter %d bin %d", i, k)
		}
	}
}

func TestCreateLinearFilterBank_Scaling(t *testing.T) {
	tests := []struct {
		name  string
		scale ScaleMode
		peaks []float64
	}{
		{"constant", ScaleConstant, []float64{1, 1, 1, 1}},
		{"ascending", ScaleAscending, []float64{0.25, 0.5, 0.75, 1}},
		{"descending", ScaleDescending, []float64{1, 0.75, 0.5, 0.25}},
		{"unset defaults to constant", "", []float64{1, 1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb, err := NewLinearScale().CreateLinearFilterBank(smallParams(tt.scale))
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.peaks, PeakAmplitudes(fb), weightTolerance)
		})
	}
}

func TestCreateLinearFilterBank_Properties(t *testing.T) {
	configs := []FilterBankParams{
		DefaultFilterBankParams(),
		{NumFilters: 40, FFTSize: 512, SampleRate: 16000, Scale: ScaleAscending},
		{NumFilters: 26, FFTSize: 1024, SampleRate: 44100, LowFreq: Hz(300), HighFreq: Hz(8000), Scale: ScaleDescending},
		{NumFilters: 64, FFTSize: 64, SampleRate: 8000, Scale: ScaleConstant},   // many degenerate filters
		{NumFilters: 10, FFTSize: 255, SampleRate: 22050, Scale: ScaleConstant}, // odd FFT size
		{NumFilters: 1, FFTSize: 2, SampleRate: 16000, Scale: ScaleAscending},
	}

	for _, params := range configs {
		fb, err := NewLinearScale().CreateLinearFilterBank(params)
		require.NoError(t, err, "params %+v", params)

		rows, cols := fb.Dims()
		require.Equal(t, params.NumFilters, rows)
		require.Equal(t, params.FFTSize/2+1, cols)

		prevStart := -1
		peaks := PeakAmplitudes(fb)
		for i := range rows {
			row := fb.RawRowView(i)
			start, end := -1, -1
			for k, w := range row {
				require.GreaterOrEqual(t, w, 0.0)
				if w > 0 {
					if start < 0 {
						start = k
					}
					end = k
				}
			}
			require.GreaterOrEqual(t, start, 0, "filter %d is empty", i)

			// Support is one contiguous run
			for k := start; k <= end; k++ {
				assert.Greater(t, row[k], 0.0, "gap in filter %d at bin %d", i, k)
			}

			assert.GreaterOrEqual(t, start, prevStart, "filter %d starts before filter %d", i, i-1)
			prevStart = start

			if params.Scale == ScaleConstant {
				assert.Equal(t, 1.0, peaks[i], "filter %d peak", i)
			}
		}

		for i := 1; i < len(peaks); i++ {
			switch params.Scale {
			case ScaleAscending:
				assert.GreaterOrEqual(t, peaks[i], peaks[i-1])
			case ScaleDescending:
				assert.LessOrEqual(t, peaks[i], peaks[i-1])
			}
		}
	}
}

func TestCreateLinearFilterBank_FullyDegenerate(t *testing.T) {
	// Bins all collapse to 0..1, so most filters have left == center == right
	params := FilterBankParams{NumFilters: 12, FFTSize: 2, SampleRate: 16000, Scale: ScaleConstant}

	prev := logging.GetGlobalLogger()
	t.Cleanup(func() { logging.SetGlobalLogger(prev) })

	var stdout, stderr bytes.Buffer
	logger := logging.NewDefaultLoggerWithWriters(&stdout, &stderr, false)
	logger.SetLevel(logging.DebugLevel)
	logging.SetGlobalLogger(logger)

	fb, err := NewLinearScale().CreateLinearFilterBank(params)
	require.NoError(t, err)

	for i, peak := range PeakAmplitudes(fb) {
		assert.Equal(t, 1.0, peak, "filter %d", i)
	}

	assert.Contains(t, stdout.String(), "narrow filters collapsed onto single bins")
	assert.Contains(t, stdout.String(), "component=linear_filterbank")
	assert.Contains(t, stdout.String(), "degenerate_filters=12")
	assert.Empty(t, stderr.String())
}

func TestCreateLinearFilterBank_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *FilterBankParams)
		param  string
	}{
		{"negative low freq", func(p *FilterBankParams) { p.LowFreq = Hz(-1) }, "low_freq"},
		{"negative low freq with bad scale", func(p *FilterBankParams) { p.LowFreq = Hz(-1); p.Scale = "bogus" }, "low_freq"},
		{"high freq above nyquist", func(p *FilterBankParams) { p.HighFreq = Hz(16000) }, "high_freq"},
		{"low freq not below high freq", func(p *FilterBankParams) { p.LowFreq = Hz(4000); p.HighFreq = Hz(4000) }, "high_freq"},
		{"unknown scale", func(p *FilterBankParams) { p.Scale = "bogus" }, "scale"},
		{"zero filters", func(p *FilterBankParams) { p.NumFilters = 0 }, "num_filters"},
		{"negative fft size", func(p *FilterBankParams) { p.FFTSize = -512 }, "fft_size"},
		{"zero sample rate", func(p *FilterBankParams) { p.SampleRate = 0 }, "sample_rate"},
		{"NaN sample rate", func(p *FilterBankParams) { p.SampleRate = math.NaN() }, "sample_rate"},
		{"infinite sample rate", func(p *FilterBankParams) { p.SampleRate = math.Inf(1) }, "sample_rate"},
		{"NaN low freq", func(p *FilterBankParams) { p.LowFreq = Hz(math.NaN()) }, "low_freq"},
		{"infinite low freq", func(p *FilterBankParams) { p.LowFreq = Hz(math.Inf(1)) }, "low_freq"},
		{"NaN high freq", func(p *FilterBankParams) { p.HighFreq = Hz(math.NaN()) }, "high_freq"},
		{"negative infinite high freq", func(p *FilterBankParams) { p.HighFreq = Hz(math.Inf(-1)) }, "high_freq"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultFilterBankParams()
			tt.modify(&params)

			fb, err := NewLinearScale().CreateLinearFilterBank(params)
			require.Error(t, err)
			assert.Nil(t, fb)
			assert.ErrorIs(t, err, ErrInvalidParameter)

			var perr *ParameterError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.param, perr.Param)
		})
	}
}

func TestCreateLinearFilterBank_ExplicitZeroLowFreq(t *testing.T) {
	ls := NewLinearScale()

	unset, err := ls.CreateLinearFilterBank(DefaultFilterBankParams())
	require.NoError(t, err)

	params := DefaultFilterBankParams()
	params.LowFreq = Hz(0)
	params.HighFreq = Hz(8000)
	explicit, err := ls.CreateLinearFilterBank(params)
	require.NoError(t, err)

	assert.True(t, mat.Equal(unset, explicit))
}

func TestCreateLinearFilterBank_Idempotent(t *testing.T) {
	params := FilterBankParams{NumFilters: 32, FFTSize: 512, SampleRate: 22050, LowFreq: Hz(100), Scale: ScaleAscending}
	ls := NewLinearScale()

	first, err := ls.CreateLinearFilterBank(params)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*mat.Dense, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fb, err := ls.CreateLinearFilterBank(params)
			if err == nil {
				results[i] = fb
			}
		}(i)
	}
	wg.Wait()

	for i, fb := range results {
		require.NotNil(t, fb, "call %d failed", i)
		assert.True(t, mat.Equal(first, fb), "call %d differs", i)
		assert.NotSame(t, first, fb, "every call returns a fresh matrix")
	}
}

func TestComputeLinearSpectrum(t *testing.T) {
	ls := NewLinearScale()
	magnitude := []float64{1, 2, 3, 4, 5}

	bands, err := ls.ComputeLinearSpectrum(magnitude, smallParams(ScaleConstant))
	require.NoError(t, err)

	// Filters are unit impulses at bins 0..3 for this geometry
	assert.InDeltaSlice(t, []float64{1, 4, 9, 16}, bands, weightTolerance)
}

func TestComputeLinearSpectrogramFrames(t *testing.T) {
	ls := NewLinearScale()
	spectrogram := [][]float64{
		{1, 2, 3, 4, 5},
		{0, 1, 0, 1, 0},
	}

	frames, err := ls.ComputeLinearSpectrogramFrames(spectrogram, smallParams(ScaleAscending))
	require.NoError(t, err)
	require.Len(t, frames, 2)

	assert.InDeltaSlice(t, []float64{0.25, 2, 6.75, 16}, frames[0], weightTolerance)
	assert.InDeltaSlice(t, []float64{0, 0.5, 0, 1}, frames[1], weightTolerance)

	empty, err := ls.ComputeLinearSpectrogramFrames(nil, smallParams(ScaleConstant))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestApplyFilterBank_LengthMismatch(t *testing.T) {
	fb, err := NewLinearScale().CreateLinearFilterBank(smallParams(ScaleConstant))
	require.NoError(t, err)

	_, err = ApplyFilterBank([]float64{1, 2, 3}, fb)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = ApplyFilterBankFrames([][]float64{{1, 2, 3, 4, 5}, {1}}, fb)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
