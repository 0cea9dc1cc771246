package spectro

// Spectrogram images
//
// A spectrogram arrives as a grayscale picture rendered upstream: rows are
// frequency bins (row 0 is the highest frequency, as displayed) and columns
// are time bins. Pixels are normalized into [0,1] by dividing the 8-bit gray
// level by 255. Grids built from raw floats are clamped into [0,1]; NaN and
// infinities are rejected.

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/png" // PNG decoder registration
	"math"
	"os"

	_ "golang.org/x/image/bmp"  // BMP decoder registration
	_ "golang.org/x/image/tiff" // TIFF decoder registration
)

// ErrInvalidInput marks malformed images or parameters.
var ErrInvalidInput = errors.New("invalid input")

// Image is an immutable height x width grid of intensities in [0,1].
type Image struct {
	Width  int
	Height int
	pix    []float64
}

// At returns the intensity at (row, col).
func (im *Image) At(row, col int) float64 {
	return im.pix[row*im.Width+col]
}

// Load decodes an image file and converts it to a normalized grid.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %v", ErrInvalidInput, path, err)
	}

	return FromImage(img)
}

// FromImage converts any image to grayscale and normalizes it.
func FromImage(img image.Image) (*Image, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: empty image (%dx%d)", ErrInvalidInput, width, height)
	}

	out := &Image{Width: width, Height: height, pix: make([]float64, width*height)}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gray := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			out.pix[y*width+x] = float64(gray.Y) / 255.0
		}
	}

	return out, nil
}

// FromRows builds an image from rows of raw intensities.
func FromRows(rows [][]float64) (*Image, error) {
	height := len(rows)
	if height == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty grid", ErrInvalidInput)
	}
	width := len(rows[0])

	out := &Image{Width: width, Height: height, pix: make([]float64, width*height)}
	for r, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrInvalidInput, r, len(row), width)
		}
		for c, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: non-finite value at (%d,%d)", ErrInvalidInput, r, c)
			}
			out.pix[r*width+c] = math.Max(0, math.Min(1, v))
		}
	}

	return out, nil
}

// Uniform builds a width x height image filled with one value.
func Uniform(width, height int, value float64) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: empty grid (%dx%d)", ErrInvalidInput, width, height)
	}
	rows := make([][]float64, height)
	for r := range rows {
		rows[r] = make([]float64, width)
		for c := range rows[r] {
			rows[r][c] = value
		}
	}
	return FromRows(rows)
}

// Gray quantizes the image back to 8 bits, rounding to the nearest level.
func (im *Image) Gray() *image.Gray {
	gray := image.NewGray(image.Rect(0, 0, im.Width, im.Height))
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			gray.SetGray(x, y, color.Gray{Y: uint8(math.Round(im.At(y, x) * 255))})
		}
	}
	return gray
}
