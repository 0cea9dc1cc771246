package batch

import (
	"encoding/json"
	"fmt"

	"spatiotemporal/render"
	"spatiotemporal/spike"
	"spatiotemporal/utils"
)

// Config describes one batch run.
type Config struct {
	InputRoot        string
	OutputRoot       string
	AudioRoot        string // WAV tree mirroring InputRoot; empty means next to the images
	Splits           []string
	Encoder          spike.EncoderConfig
	Neuron           spike.NeuronParams
	Stride           int
	DPI              int
	Style            render.Style
	Workers          int     // <= 0 uses every CPU, 1 is sequential
	FallbackDuration float64 // seconds used when a clip duration is unavailable, 0 fails the file
	FailOnEmpty      bool
}

// DefaultConfig mirrors the settings the spatiotemporal dataset was built with.
func DefaultConfig() Config {
	return Config{
		InputRoot:        "data/stft_plots",
		OutputRoot:       "data/spatiotemporal_plots",
		Splits:           []string{"test", "train", "val"},
		Encoder:          spike.DefaultEncoderConfig(),
		Neuron:           spike.DefaultNeuronParams(),
		Stride:           10,
		DPI:              100,
		Style:            render.StyleStandalone,
		Workers:          0,
		FallbackDuration: 1.0,
	}
}

// ConfigFromEnv starts from DefaultConfig and applies SPIKE_* overrides.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.InputRoot = utils.GetEnv("SPIKE_INPUT_ROOT", cfg.InputRoot)
	cfg.OutputRoot = utils.GetEnv("SPIKE_OUTPUT_ROOT", cfg.OutputRoot)
	cfg.AudioRoot = utils.GetEnv("SPIKE_AUDIO_ROOT", cfg.AudioRoot)
	cfg.Splits = utils.GetEnvList("SPIKE_SPLITS", cfg.Splits)
	cfg.Encoder.GlobalThreshold = utils.GetEnvFloat("SPIKE_GLOBAL_THRESHOLD", cfg.Encoder.GlobalThreshold)
	cfg.Encoder.BlockSize = utils.GetEnvInt("SPIKE_BLOCK_SIZE", cfg.Encoder.BlockSize)
	cfg.Encoder.AdaptiveConstant = utils.GetEnvFloat("SPIKE_ADAPTIVE_CONSTANT", cfg.Encoder.AdaptiveConstant)
	cfg.Stride = utils.GetEnvInt("SPIKE_SAMPLING_STRIDE", cfg.Stride)
	cfg.DPI = utils.GetEnvInt("SPIKE_DPI", cfg.DPI)
	cfg.Workers = utils.GetEnvInt("SPIKE_WORKERS", cfg.Workers)
	cfg.FallbackDuration = utils.GetEnvFloat("SPIKE_FALLBACK_DURATION", cfg.FallbackDuration)

	style, err := render.ParseStyle(utils.GetEnv("SPIKE_STYLE", string(cfg.Style)))
	if err != nil {
		return Config{}, err
	}
	cfg.Style = style

	return cfg, cfg.Validate()
}

// Validate checks the parameters that would otherwise fail every file.
func (c Config) Validate() error {
	if c.InputRoot == "" || c.OutputRoot == "" {
		return fmt.Errorf("%w: input and output roots are required", spike.ErrInvalidInput)
	}
	if len(c.Splits) == 0 {
		return fmt.Errorf("%w: at least one split is required", spike.ErrInvalidInput)
	}
	if c.Encoder.BlockSize < 3 || c.Encoder.BlockSize%2 == 0 {
		return fmt.Errorf("%w: block size must be odd and >= 3, got %d", spike.ErrInvalidInput, c.Encoder.BlockSize)
	}
	if c.Stride < 1 {
		return fmt.Errorf("%w: sampling stride must be >= 1, got %d", spike.ErrInvalidInput, c.Stride)
	}
	if c.DPI <= 0 {
		return fmt.Errorf("%w: dpi must be positive, got %d", spike.ErrInvalidInput, c.DPI)
	}
	if !c.Style.Standalone() && !c.Style.Combined() {
		return fmt.Errorf("%w: unknown style %q", spike.ErrInvalidInput, c.Style)
	}
	return nil
}

// JSON returns the config as a JSON document for the run manifest.
func (c Config) JSON() string {
	data, err := json.Marshal(c)
	if err != nil {
		return "{}"
	}
	return string(data)
}
