package render

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot"

	"spatiotemporal/models"
)

func gridTrain(cols, rows int, duration float64) models.SpikeTrain {
	var train models.SpikeTrain
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			train = append(train, models.SpikeEvent{Time: float64(c) / float64(cols) * duration, Neuron: r})
		}
	}
	return train
}

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func litPixels(img image.Image) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r > 0 || g > 0 || bl > 0 {
				n++
			}
		}
	}
	return n
}

func TestSampleStride(t *testing.T) {
	t.Parallel()

	train := gridTrain(4, 4, 1)

	all, err := Sample(train, 1)
	require.NoError(t, err)
	assert.Equal(t, train, all)

	every4, err := Sample(train, 4)
	require.NoError(t, err)
	assert.Equal(t, models.SpikeTrain{train[0], train[4], train[8], train[12]}, every4)

	for _, stride := range []int{3, 5, 7, 16, 40} {
		got, err := Sample(train, stride)
		require.NoError(t, err)
		assert.Len(t, got, (len(train)+stride-1)/stride, "stride %d", stride)
	}

	_, err = Sample(train, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPointsFlipRows(t *testing.T) {
	t.Parallel()

	xys := Points(models.SpikeTrain{{Time: 0.5, Neuron: 0}, {Time: 0.75, Neuron: 9}}, 10)
	assert.Equal(t, 0.5, xys[0].X)
	assert.Equal(t, 9.0, xys[0].Y)
	assert.Equal(t, 0.75, xys[1].X)
	assert.Equal(t, 0.0, xys[1].Y)
}

func TestStandaloneGeometryAndPoints(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions(4, 1)
	opts.Stride = 1
	out, err := Standalone(gridTrain(4, 4, 1), opts)
	require.NoError(t, err)
	assert.Equal(t, 16, out.Points)

	img := decode(t, out.PNG)
	assert.Equal(t, 700, img.Bounds().Dx())
	assert.Equal(t, 500, img.Bounds().Dy())
	assert.Positive(t, litPixels(img))

	opts.Stride = 4
	out, err = Standalone(gridTrain(4, 4, 1), opts)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Points)
}

func TestStandaloneIsDeterministic(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions(32, 2)
	first, err := Standalone(gridTrain(50, 32, 2), opts)
	require.NoError(t, err)
	second, err := Standalone(gridTrain(50, 32, 2), opts)
	require.NoError(t, err)
	assert.Equal(t, first.PNG, second.PNG)
}

func TestEmptyRasterPolicy(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions(8, 1)
	out, err := Standalone(nil, opts)
	require.NoError(t, err)
	assert.Zero(t, out.Points)
	assert.Zero(t, litPixels(decode(t, out.PNG)), "blank canvas expected")

	opts.FailOnEmpty = true
	_, err = Standalone(nil, opts)
	assert.ErrorIs(t, err, ErrEmptyRaster)
	_, err = Combined(nil, opts)
	assert.ErrorIs(t, err, ErrEmptyRaster)
}

func TestInvalidOptions(t *testing.T) {
	t.Parallel()

	train := gridTrain(2, 2, 1)
	for name, opts := range map[string]Options{
		"no neurons":  {NumNeurons: 0, Duration: 1, Stride: 1, DPI: 100},
		"no duration": {NumNeurons: 2, Duration: 0, Stride: 1, DPI: 100},
		"zero stride": {NumNeurons: 2, Duration: 1, Stride: 0, DPI: 100},
		"zero dpi":    {NumNeurons: 2, Duration: 1, Stride: 1, DPI: 0},
	} {
		_, err := Standalone(train, opts)
		assert.ErrorIs(t, err, ErrInvalidInput, name)
	}
}

func TestCombinedWithPanels(t *testing.T) {
	t.Parallel()

	train := gridTrain(10, 6, 1)
	opts := DefaultOptions(6, 1)
	opts.Stride = 3

	counts, err := CountPanel("Spike count", train, 1, 10)
	require.NoError(t, err)
	gram := image.NewGray(image.Rect(0, 0, 10, 6))
	panels := []*plot.Plot{ImagePanel("Spectrogram", gram, 1, 6), nil, counts}

	out, err := Combined(train, opts, panels...)
	require.NoError(t, err)
	assert.Equal(t, 20, out.Points)

	img := decode(t, out.PNG)
	assert.Equal(t, 700, img.Bounds().Dx())
	assert.Equal(t, 1000, img.Bounds().Dy())

	_, err = Combined(train, opts, nil, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestParseStyle(t *testing.T) {
	t.Parallel()

	s, err := ParseStyle("both")
	require.NoError(t, err)
	assert.True(t, s.Standalone())
	assert.True(t, s.Combined())

	s, err = ParseStyle("standalone")
	require.NoError(t, err)
	assert.False(t, s.Combined())

	_, err = ParseStyle("poster")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
