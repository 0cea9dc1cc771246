package render

import (
	"fmt"
	"image"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"

	"spatiotemporal/models"
)

// ImagePanel shows img stretched over [0,duration] x [0,rows].
func ImagePanel(title string, img image.Image, duration float64, rows int) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Bin"
	p.Add(plotter.NewImage(img, 0, 0, duration, float64(rows)))
	p.X.Min, p.X.Max = 0, duration
	p.Y.Min, p.Y.Max = 0, float64(rows)
	return p
}

// CountPanel plots the number of spikes falling in each of bins equal time slices.
func CountPanel(title string, train models.SpikeTrain, duration float64, bins int) (*plot.Plot, error) {
	if bins <= 0 || duration <= 0 {
		return nil, fmt.Errorf("%w: count panel needs bins and duration", ErrInvalidInput)
	}

	counts := make([]float64, bins)
	for _, ev := range train {
		bin := int(ev.Time / duration * float64(bins))
		if bin >= bins {
			bin = bins - 1
		}
		if bin < 0 {
			continue
		}
		counts[bin]++
	}

	xys := make(plotter.XYs, bins)
	for i, n := range counts {
		xys[i].X = float64(i) / float64(bins) * duration
		xys[i].Y = n
	}

	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, fmt.Errorf("failed to build count line: %w", err)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Spikes"
	p.Add(line)
	p.X.Min, p.X.Max = 0, duration
	return p, nil
}
