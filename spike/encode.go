package spike

// Spike encoding
//
// Each pixel of a spectrogram is a candidate spike: the row picks the neuron
// (one per frequency bin) and the column picks the time. A pixel fires when
// it is brighter than a global floor AND passes the adaptive local threshold.
// Columns are scanned outermost, so events come out in non-decreasing time.

import (
	"fmt"
	"math"

	"spatiotemporal/models"
	"spatiotemporal/spectro"
)

// Encoding is the output of Encode.
type Encoding struct {
	Train    models.SpikeTrain
	Mask     *spectro.Mask
	Width    int
	Height   int
	Duration float64
}

// Encode converts an image into a spike train spanning duration seconds.
func Encode(img *spectro.Image, duration float64, cfg EncoderConfig) (Encoding, error) {
	if img == nil || img.Width == 0 || img.Height == 0 {
		return Encoding{}, fmt.Errorf("%w: empty image", ErrInvalidInput)
	}
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return Encoding{}, fmt.Errorf("%w: duration must be positive, got %v", ErrInvalidInput, duration)
	}
	if math.IsNaN(cfg.GlobalThreshold) || math.IsInf(cfg.GlobalThreshold, 0) {
		return Encoding{}, fmt.Errorf("%w: global threshold must be finite", ErrInvalidInput)
	}

	mask, err := spectro.AdaptiveMask(img, cfg.BlockSize, cfg.AdaptiveConstant)
	if err != nil {
		return Encoding{}, err
	}

	var train models.SpikeTrain
	width := float64(img.Width)
	for col := 0; col < img.Width; col++ {
		t := float64(col) / width * duration
		for row := 0; row < img.Height; row++ {
			if img.At(row, col) > cfg.GlobalThreshold && mask.At(row, col) {
				train = append(train, models.SpikeEvent{Time: t, Neuron: row})
			}
		}
	}

	return Encoding{
		Train:    train,
		Mask:     mask,
		Width:    img.Width,
		Height:   img.Height,
		Duration: duration,
	}, nil
}
