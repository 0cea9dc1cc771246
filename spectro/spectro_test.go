package spectro

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadNormalizesGrayLevels(t *testing.T) {
	t.Parallel()

	src := image.NewGray(image.Rect(0, 0, 3, 2))
	src.SetGray(0, 0, color.Gray{Y: 0})
	src.SetGray(1, 0, color.Gray{Y: 255})
	src.SetGray(2, 1, color.Gray{Y: 51})

	path := filepath.Join(t.TempDir(), "clip_stft.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	img, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, img.Width)
	assert.Equal(t, 2, img.Height)
	assert.Equal(t, 0.0, img.At(0, 0))
	assert.Equal(t, 1.0, img.At(0, 1))
	assert.InDelta(t, 0.2, img.At(1, 2), 1e-12)
}

func TestLoadRejectsGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken_stft.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NotErrorIs(t, err, ErrInvalidInput)
}

func TestFromRowsClampsAndValidates(t *testing.T) {
	t.Parallel()

	img, err := FromRows([][]float64{{-0.5, 0.25}, {1.5, 1}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, img.At(0, 0))
	assert.Equal(t, 0.25, img.At(0, 1))
	assert.Equal(t, 1.0, img.At(1, 0))

	_, err = FromRows(nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = FromRows([][]float64{{0.1, 0.2}, {0.3}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = FromRows([][]float64{{math.NaN()}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Uniform(0, 4, 0.5)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGaussianKernelIsNormalizedAndSymmetric(t *testing.T) {
	t.Parallel()

	k := GaussianKernel(19)
	var sum float64
	for _, v := range k.Matrix {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.InDelta(t, k.Matrix[0], k.Matrix[len(k.Matrix)-1], 1e-15)
	center := 9*k.Width + 9
	for _, v := range k.Matrix {
		assert.LessOrEqual(t, v, k.Matrix[center])
	}
	assert.InDelta(t, 3.2, GaussianSigma(19), 1e-12)
}

func TestAdaptiveMaskUniformImage(t *testing.T) {
	t.Parallel()

	img, err := Uniform(4, 4, 0.5)
	require.NoError(t, err)

	// A positive constant lowers the local threshold below a flat field.
	all, err := AdaptiveMask(img, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, 16, all.Count())

	// A negative constant demands pixels brighter than their surroundings.
	none, err := AdaptiveMask(img, 3, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, none.Count())
}

func TestAdaptiveMaskFlatFieldRejectsEverything(t *testing.T) {
	t.Parallel()

	for _, value := range []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1} {
		img, err := Uniform(40, 40, value)
		require.NoError(t, err)
		for _, block := range []int{3, 5, 19} {
			mask, err := AdaptiveMask(img, block, 0)
			require.NoError(t, err)
			assert.Zero(t, mask.Count(), "value %.1f block %d", value, block)
		}
	}
}

func TestAdaptiveMaskReplicatesBorders(t *testing.T) {
	t.Parallel()

	// Bright field with a dark bottom row. Replicated borders keep the top
	// row flat; wrapping would pull the dark row in above it.
	const size = 12
	rows := make([][]float64, size)
	for r := range rows {
		rows[r] = make([]float64, size)
		if r < size-1 {
			for c := range rows[r] {
				rows[r][c] = 200.0 / 255
			}
		}
	}

	img, err := FromRows(rows)
	require.NoError(t, err)

	mask, err := AdaptiveMask(img, 3, 0)
	require.NoError(t, err)
	for c := 0; c < size; c++ {
		assert.False(t, mask.At(0, c), "top row col %d", c)
		assert.True(t, mask.At(size-2, c), "row above the dark edge col %d", c)
		assert.False(t, mask.At(size-1, c), "dark row col %d", c)
	}
	assert.Equal(t, size, mask.Count())
}

func TestAdaptiveMaskPicksIsolatedPeak(t *testing.T) {
	t.Parallel()

	rows := make([][]float64, 7)
	for r := range rows {
		rows[r] = make([]float64, 7)
	}
	rows[3][3] = 1

	img, err := FromRows(rows)
	require.NoError(t, err)

	mask, err := AdaptiveMask(img, 5, -5)
	require.NoError(t, err)
	assert.True(t, mask.At(3, 3))
	assert.Equal(t, 1, mask.Count())
	assert.Equal(t, uint8(255), mask.Image().GrayAt(3, 3).Y)
	assert.Equal(t, uint8(0), mask.Image().GrayAt(0, 0).Y)
}

func TestAdaptiveMaskRejectsBadBlockSize(t *testing.T) {
	t.Parallel()

	img, err := Uniform(4, 4, 0.5)
	require.NoError(t, err)

	for _, block := range []int{0, 1, 2, 4, 18} {
		_, err := AdaptiveMask(img, block, 0)
		assert.ErrorIs(t, err, ErrInvalidInput, "block %d", block)
	}
}
