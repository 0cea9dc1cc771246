package render

// Spatiotemporal plots
//
// A raster is decimated by a fixed stride and drawn as a time vs. afferent
// scatter. Row indices are flipped (y = neurons - index - 1) so the plot has
// the same orientation as the source spectrogram. Two layouts exist: a bare
// black/white standalone image meant as classifier input, and a four-row
// figure whose last row is the labelled scatter.

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"spatiotemporal/models"
	"spatiotemporal/spectro"
)

var (
	// ErrEmptyRaster is returned when nothing is left to plot and
	// Options.FailOnEmpty is set.
	ErrEmptyRaster = errors.New("empty raster")
	// ErrInvalidInput marks bad render options.
	ErrInvalidInput = spectro.ErrInvalidInput
)

// Style selects the figure layout.
type Style string

const (
	StyleStandalone Style = "standalone"
	StyleCombined   Style = "combined"
	StyleBoth       Style = "both"
)

// ParseStyle validates a style name.
func ParseStyle(name string) (Style, error) {
	switch s := Style(name); s {
	case StyleStandalone, StyleCombined, StyleBoth:
		return s, nil
	default:
		return "", fmt.Errorf("%w: unknown style %q", ErrInvalidInput, name)
	}
}

// Standalone reports whether the style writes the standalone scatter.
func (s Style) Standalone() bool { return s == StyleStandalone || s == StyleBoth }

// Combined reports whether the style writes the combined figure.
func (s Style) Combined() bool { return s == StyleCombined || s == StyleBoth }

// Options controls sampling and figure geometry.
type Options struct {
	NumNeurons  int
	Duration    float64
	Stride      int
	DPI         int
	FailOnEmpty bool
}

// DefaultOptions returns a stride of 10 at 100 DPI.
func DefaultOptions(numNeurons int, duration float64) Options {
	return Options{
		NumNeurons: numNeurons,
		Duration:   duration,
		Stride:     10,
		DPI:        100,
	}
}

func (o Options) validate() error {
	if o.NumNeurons <= 0 {
		return fmt.Errorf("%w: neuron count must be positive, got %d", ErrInvalidInput, o.NumNeurons)
	}
	if o.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %v", ErrInvalidInput, o.Duration)
	}
	if o.Stride < 1 {
		return fmt.Errorf("%w: sampling stride must be >= 1, got %d", ErrInvalidInput, o.Stride)
	}
	if o.DPI <= 0 {
		return fmt.Errorf("%w: dpi must be positive, got %d", ErrInvalidInput, o.DPI)
	}
	return nil
}

// Rendered is an encoded PNG and the number of points drawn on it.
type Rendered struct {
	PNG    []byte
	Points int
}

// Sample keeps the events at indices 0, stride, 2*stride, ...
func Sample(raster models.SpikeTrain, stride int) (models.SpikeTrain, error) {
	if stride < 1 {
		return nil, fmt.Errorf("%w: sampling stride must be >= 1, got %d", ErrInvalidInput, stride)
	}
	sampled := make(models.SpikeTrain, 0, (len(raster)+stride-1)/stride)
	for i := 0; i < len(raster); i += stride {
		sampled = append(sampled, raster[i])
	}
	return sampled, nil
}

// Points maps events to plot coordinates: x = time, y = neurons - index - 1.
func Points(events models.SpikeTrain, numNeurons int) plotter.XYs {
	xys := make(plotter.XYs, len(events))
	for i, ev := range events {
		xys[i].X = ev.Time
		xys[i].Y = float64(numNeurons - ev.Neuron - 1)
	}
	return xys
}

func sampled(raster models.SpikeTrain, opts Options) (models.SpikeTrain, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	events, err := Sample(raster, opts.Stride)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 && opts.FailOnEmpty {
		return nil, ErrEmptyRaster
	}
	return events, nil
}

func scatter(p *plot.Plot, events models.SpikeTrain, opts Options, fill color.Color) error {
	if len(events) == 0 {
		return nil
	}
	s, err := plotter.NewScatter(Points(events, opts.NumNeurons))
	if err != nil {
		return fmt.Errorf("failed to build scatter: %w", err)
	}
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = vg.Points(1.8)
	s.GlyphStyle.Color = fill
	p.Add(s)
	return nil
}

func fixRanges(p *plot.Plot, opts Options) {
	p.X.Min = 0
	p.X.Max = opts.Duration
	p.Y.Min = -0.5
	p.Y.Max = float64(opts.NumNeurons) - 0.5
}

// Standalone draws a 7x5 inch scatter with white dots on black and no axes.
func Standalone(raster models.SpikeTrain, opts Options) (*Rendered, error) {
	events, err := sampled(raster, opts)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.BackgroundColor = color.Black
	p.HideAxes()
	p.X.Padding = 0
	p.Y.Padding = 0
	if err := scatter(p, events, opts, color.NRGBA{R: 255, G: 255, B: 255, A: 128}); err != nil {
		return nil, err
	}
	fixRanges(p, opts)

	c := vgimg.NewWith(
		vgimg.UseWH(7*vg.Inch, 5*vg.Inch),
		vgimg.UseDPI(opts.DPI),
		vgimg.UseBackgroundColor(color.Black),
	)
	p.Draw(draw.New(c))

	png, err := encode(c)
	if err != nil {
		return nil, err
	}
	return &Rendered{PNG: png, Points: len(events)}, nil
}

// Combined draws a 7x10 inch figure with four stacked rows. Up to three
// caller panels fill the first rows; the scatter always takes the last one.
func Combined(raster models.SpikeTrain, opts Options, panels ...*plot.Plot) (*Rendered, error) {
	if len(panels) > 3 {
		return nil, fmt.Errorf("%w: at most 3 panels, got %d", ErrInvalidInput, len(panels))
	}
	events, err := sampled(raster, opts)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = "Spatiotemporal Points from Spectrogram"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Afferents"
	if err := scatter(p, events, opts, color.NRGBA{R: 31, G: 119, B: 180, A: 128}); err != nil {
		return nil, err
	}
	fixRanges(p, opts)

	rows := make([][]*plot.Plot, 4)
	for i := 0; i < 3; i++ {
		var panel *plot.Plot
		if i < len(panels) {
			panel = panels[i]
		}
		if panel == nil {
			panel = plot.New()
			panel.HideAxes()
		}
		rows[i] = []*plot.Plot{panel}
	}
	rows[3] = []*plot.Plot{p}

	c := vgimg.NewWith(
		vgimg.UseWH(7*vg.Inch, 10*vg.Inch),
		vgimg.UseDPI(opts.DPI),
		vgimg.UseBackgroundColor(color.White),
	)
	dc := draw.New(c)
	tiles := draw.Tiles{
		Rows:      4,
		Cols:      1,
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 6,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 4,
	}
	canvases := plot.Align(rows, tiles, dc)
	for j := range rows {
		rows[j][0].Draw(canvases[j][0])
	}

	png, err := encode(c)
	if err != nil {
		return nil, err
	}
	return &Rendered{PNG: png, Points: len(events)}, nil
}

func encode(c *vgimg.Canvas) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
