package spectro

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/convolution"
)

// Mask is the adaptive threshold result, true where a pixel beats its
// neighbourhood. Same shape as the image it was derived from.
type Mask struct {
	Width  int
	Height int
	bits   []bool
}

// At reports whether (row, col) passed the local threshold.
func (m *Mask) At(row, col int) bool {
	return m.bits[row*m.Width+col]
}

// Count returns the number of passing pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// Image renders the mask as black/white pixels.
func (m *Mask) Image() *image.Gray {
	gray := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.At(y, x) {
				gray.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return gray
}

// GaussianSigma is the sigma used for a block size when none is given:
// 0.3*((block-1)*0.5 - 1) + 0.8.
func GaussianSigma(blockSize int) float64 {
	return 0.3*((float64(blockSize)-1)*0.5-1) + 0.8
}

// GaussianKernel builds a normalized blockSize x blockSize kernel as the outer
// product of two 1-D Gaussians.
func GaussianKernel(blockSize int) *convolution.Kernel {
	sigma := GaussianSigma(blockSize)
	center := float64(blockSize-1) / 2

	weights := make([]float64, blockSize)
	var sum float64
	for i := range weights {
		d := float64(i) - center
		weights[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}

	k := convolution.NewKernel(blockSize, blockSize)
	for y := 0; y < blockSize; y++ {
		for x := 0; x < blockSize; x++ {
			k.Matrix[y*k.Width+x] = weights[y] * weights[x]
		}
	}
	return k
}

// AdaptiveMask compares every 8-bit pixel to the Gaussian-weighted mean of its
// blockSize neighbourhood. A pixel passes when value > mean - constant.
// The mean is rounded to the nearest 8-bit level and borders replicate the
// nearest edge pixel.
func AdaptiveMask(im *Image, blockSize int, constant float64) (*Mask, error) {
	if im == nil || im.Width == 0 || im.Height == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidInput)
	}
	if blockSize < 3 || blockSize%2 == 0 {
		return nil, fmt.Errorf("%w: block size must be odd and >= 3, got %d", ErrInvalidInput, blockSize)
	}
	if math.IsNaN(constant) || math.IsInf(constant, 0) {
		return nil, fmt.Errorf("%w: adaptive constant must be finite", ErrInvalidInput)
	}

	src := im.Gray()
	blurred := convolution.Convolve(src, GaussianKernel(blockSize).Normalized(), &convolution.Options{
		// bild truncates to uint8; the half bias turns that into rounding.
		Bias:      0.5,
		Wrap:      false,
		KeepAlpha: true,
	})

	mask := &Mask{Width: im.Width, Height: im.Height, bits: make([]bool, im.Width*im.Height)}
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			value := float64(src.GrayAt(x, y).Y)
			mean := float64(blurred.RGBAAt(x, y).R)
			mask.bits[y*im.Width+x] = value > mean-constant
		}
	}

	return mask, nil
}
