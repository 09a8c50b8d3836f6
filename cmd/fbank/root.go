package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/RyanBlaney/sonido-fbank/algorithms/spectral"
	"github.com/RyanBlaney/sonido-fbank/config"
	"github.com/RyanBlaney/sonido-fbank/logging"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

type flagValues struct {
	configPath string
	numFilters int
	fftSize    int
	sampleRate float64
	lowFreq    float64
	highFreq   float64
	scale      string
	kind       string
	format     string
	logLevel   string
}

func newRootCmd(out io.Writer) *cobra.Command {
	defaults := config.Default()
	var flags flagValues

	rootCmd := &cobra.Command{
		Use:           "fbank",
		Short:         "Compute a triangular filter bank matrix",
		Long:          "Compute a linear, mel or bark triangular filter bank and write it as CSV or JSON.\nRows are filters, columns are FFT bins 0..nfft/2.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}
			return run(out, cmd.ErrOrStderr(), cfg)
		},
	}

	f := rootCmd.Flags()
	f.StringVarP(&flags.configPath, "config", "c", "", "YAML config file; flags override its values")
	f.IntVarP(&flags.numFilters, "filters", "n", defaults.FilterBank.NumFilters, "Number of filters")
	f.IntVar(&flags.fftSize, "nfft", defaults.FilterBank.FFTSize, "FFT size")
	f.Float64VarP(&flags.sampleRate, "sample-rate", "s", defaults.FilterBank.SampleRate, "Sample rate, measured in Hertz (Hz)")
	f.Float64Var(&flags.lowFreq, "low-freq", 0, "Lowest band edge in Hz (default 0)")
	f.Float64Var(&flags.highFreq, "high-freq", 0, "Highest band edge in Hz (default sample-rate/2)")
	f.StringVar(&flags.scale, "scale", string(defaults.FilterBank.Scale), "Peak amplitude envelope: constant, ascending, descending")
	f.StringVarP(&flags.kind, "kind", "k", string(defaults.Kind), "Band edge spacing: linear, mel or bark")
	f.StringVarP(&flags.format, "format", "f", string(defaults.Format), "Output format: csv or json")
	f.StringVar(&flags.logLevel, "log-level", defaults.LogLevel, "Log level: debug, info, warn, error")

	return rootCmd
}

// resolveConfig layers explicitly set flags over the config file (or defaults)
func resolveConfig(cmd *cobra.Command, flags flagValues) (config.Config, error) {
	cfg := config.Default()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("filters") {
		cfg.FilterBank.NumFilters = flags.numFilters
	}
	if changed("nfft") {
		cfg.FilterBank.FFTSize = flags.fftSize
	}
	if changed("sample-rate") {
		cfg.FilterBank.SampleRate = flags.sampleRate
	}
	if changed("low-freq") {
		cfg.FilterBank.LowFreq = spectral.Hz(flags.lowFreq)
	}
	if changed("high-freq") {
		cfg.FilterBank.HighFreq = spectral.Hz(flags.highFreq)
	}
	if changed("scale") {
		cfg.FilterBank.Scale = spectral.ScaleMode(flags.scale)
	}
	if changed("kind") {
		cfg.Kind = config.BankKind(flags.kind)
	}
	if changed("format") {
		cfg.Format = config.OutputFormat(flags.format)
	}
	if changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// run writes the matrix to out; log lines go to logOut so they never
// interleave with CSV/JSON
func run(out, logOut io.Writer, cfg config.Config) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	logger := logging.NewDiagnosticLogger(logOut)
	logger.SetLevel(level)
	logging.SetGlobalLogger(logger)

	var fb *mat.Dense
	switch cfg.Kind {
	case config.KindMel:
		fb, err = spectral.NewMelScale().CreateMelFilterBank(cfg.FilterBank)
	case config.KindBark:
		fb, err = spectral.NewBarkScale().CreateBarkFilterBank(cfg.FilterBank)
	default:
		fb, err = spectral.NewLinearScale().CreateLinearFilterBank(cfg.FilterBank)
	}
	if err != nil {
		return fmt.Errorf("failed to build %s filter bank: %w", cfg.Kind, err)
	}

	rows, cols := fb.Dims()
	logging.Debug("filter bank computed", logging.Fields{
		"kind":  cfg.Kind,
		"rows":  rows,
		"cols":  cols,
		"scale": cfg.FilterBank.Scale,
	})

	switch cfg.Format {
	case config.FormatJSON:
		return writeJSON(out, fb)
	default:
		return writeCSV(out, fb)
	}
}

func writeCSV(out io.Writer, fb *mat.Dense) error {
	rows, cols := fb.Dims()
	w := csv.NewWriter(out)
	record := make([]string, cols)

	for i := range rows {
		for j := range cols {
			record[j] = strconv.FormatFloat(fb.At(i, j), 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	w.Flush()
	return w.Error()
}

func writeJSON(out io.Writer, fb *mat.Dense) error {
	rows, _ := fb.Dims()
	matrix := make([][]float64, rows)
	for i := range matrix {
		matrix[i] = mat.Row(nil, i, fb)
	}

	enc := json.NewEncoder(out)
	return enc.Encode(matrix)
}
