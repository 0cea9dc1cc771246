package batch

import (
	"fmt"

	"gonum.org/v1/plot"

	"spatiotemporal/render"
	"spatiotemporal/spectro"
	"spatiotemporal/spike"
)

// Output is the in-memory result of one spectrogram pipeline.
type Output struct {
	Width      int
	Height     int
	Duration   float64
	Events     int
	Raster     int
	Standalone *render.Rendered
	Combined   *render.Rendered
}

// Plotted returns the number of points drawn on the primary figure.
func (o *Output) Plotted() int {
	if o.Standalone != nil {
		return o.Standalone.Points
	}
	if o.Combined != nil {
		return o.Combined.Points
	}
	return 0
}

// Pipeline loads one spectrogram and runs encode, simulate and render on it.
// Nothing is written to disk.
func Pipeline(path string, duration float64, cfg Config) (*Output, error) {
	img, err := spectro.Load(path)
	if err != nil {
		return nil, err
	}
	return PipelineImage(img, duration, cfg)
}

// PipelineImage is Pipeline for an already decoded image.
func PipelineImage(img *spectro.Image, duration float64, cfg Config) (*Output, error) {
	enc, err := spike.Encode(img, duration, cfg.Encoder)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	raster, err := spike.Simulate(enc.Train, enc.Height, enc.Duration, cfg.Neuron)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}

	opts := render.Options{
		NumNeurons:  enc.Height,
		Duration:    enc.Duration,
		Stride:      cfg.Stride,
		DPI:         cfg.DPI,
		FailOnEmpty: cfg.FailOnEmpty,
	}

	out := &Output{
		Width:    enc.Width,
		Height:   enc.Height,
		Duration: enc.Duration,
		Events:   len(enc.Train),
		Raster:   len(raster),
	}

	if cfg.Style.Standalone() {
		out.Standalone, err = render.Standalone(raster, opts)
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
	}

	if cfg.Style.Combined() {
		counts, err := render.CountPanel("Spikes per time bin", raster, enc.Duration, enc.Width)
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
		panels := []*plot.Plot{
			render.ImagePanel("Spectrogram", img.Gray(), enc.Duration, enc.Height),
			render.ImagePanel("Adaptive threshold mask", enc.Mask.Image(), enc.Duration, enc.Height),
			counts,
		}
		out.Combined, err = render.Combined(raster, opts, panels...)
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
	}

	return out, nil
}
