package spike

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spatiotemporal/models"
	"spatiotemporal/spectro"
)

// flatConfig keeps every pixel of a flat field in the adaptive mask.
func flatConfig(threshold float64) EncoderConfig {
	return EncoderConfig{GlobalThreshold: threshold, BlockSize: 3, AdaptiveConstant: 5}
}

func uniform(t *testing.T, width, height int, value float64) *spectro.Image {
	t.Helper()
	img, err := spectro.Uniform(width, height, value)
	require.NoError(t, err)
	return img
}

func TestEncodeBelowGlobalThresholdIsEmpty(t *testing.T) {
	t.Parallel()

	enc, err := Encode(uniform(t, 8, 5, 0.05), 2.0, flatConfig(0.09))
	require.NoError(t, err)
	assert.Empty(t, enc.Train)
	assert.Equal(t, 40, enc.Mask.Count())
}

func TestEncodeMidGrayExample(t *testing.T) {
	t.Parallel()

	enc, err := Encode(uniform(t, 4, 4, 0.5), 1.0, flatConfig(0.3))
	require.NoError(t, err)
	require.Len(t, enc.Train, 16)
	assert.Equal(t, 4, enc.Width)
	assert.Equal(t, 4, enc.Height)

	wantTimes := []float64{0, 0.25, 0.5, 0.75}
	for i, ev := range enc.Train {
		assert.Equal(t, wantTimes[i/4], ev.Time, "event %d", i)
		assert.Equal(t, i%4, ev.Neuron, "event %d", i)
	}

	raster, err := Simulate(enc.Train, enc.Height, enc.Duration, DefaultNeuronParams())
	require.NoError(t, err)
	assert.Equal(t, enc.Train, raster)
}

func TestEncodeEventsStayInBounds(t *testing.T) {
	t.Parallel()

	rows := make([][]float64, 12)
	for r := range rows {
		rows[r] = make([]float64, 30)
		for c := range rows[r] {
			rows[r][c] = math.Abs(math.Sin(float64(r*7+c*3) / 5))
		}
	}
	img, err := spectro.FromRows(rows)
	require.NoError(t, err)

	const duration = 3.5
	enc, err := Encode(img, duration, DefaultEncoderConfig())
	require.NoError(t, err)

	last := 0.0
	for _, ev := range enc.Train {
		assert.GreaterOrEqual(t, ev.Neuron, 0)
		assert.Less(t, ev.Neuron, img.Height)
		assert.GreaterOrEqual(t, ev.Time, 0.0)
		assert.LessOrEqual(t, ev.Time, duration)
		assert.GreaterOrEqual(t, ev.Time, last)
		last = ev.Time

		col := int(math.Round(ev.Time / duration * float64(img.Width)))
		assert.Greater(t, img.At(ev.Neuron, col), 0.09)
		assert.True(t, enc.Mask.At(ev.Neuron, col))
	}
}

func TestEncodeRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	img := uniform(t, 4, 4, 0.5)
	cases := map[string]struct {
		img      *spectro.Image
		duration float64
		cfg      EncoderConfig
	}{
		"nil image":     {nil, 1, flatConfig(0.1)},
		"zero duration": {img, 0, flatConfig(0.1)},
		"negative":      {img, -1, flatConfig(0.1)},
		"nan duration":  {img, math.NaN(), flatConfig(0.1)},
		"even block":    {img, 1, EncoderConfig{GlobalThreshold: 0.1, BlockSize: 4}},
		"tiny block":    {img, 1, EncoderConfig{GlobalThreshold: 0.1, BlockSize: 1}},
		"nan threshold": {img, 1, flatConfig(math.NaN())},
	}
	for name, tc := range cases {
		_, err := Encode(tc.img, tc.duration, tc.cfg)
		assert.ErrorIs(t, err, ErrInvalidInput, name)
	}
}

func TestSimulateEmptyAndSingle(t *testing.T) {
	t.Parallel()

	raster, err := Simulate(nil, 10, 1, DefaultNeuronParams())
	require.NoError(t, err)
	assert.Empty(t, raster)

	single := models.SpikeTrain{{Time: 0.4, Neuron: 7}}
	raster, err = Simulate(single, 10, 1, DefaultNeuronParams())
	require.NoError(t, err)
	assert.Equal(t, single, raster)
}

func TestSimulateRejectsOutOfRangeEvents(t *testing.T) {
	t.Parallel()

	_, err := Simulate(models.SpikeTrain{{Time: 0.1, Neuron: 3}}, 3, 1, DefaultNeuronParams())
	assert.ErrorIs(t, err, ErrSimulation)

	_, err = Simulate(models.SpikeTrain{{Time: 0.1, Neuron: -1}}, 3, 1, DefaultNeuronParams())
	assert.ErrorIs(t, err, ErrSimulation)

	_, err = Simulate(models.SpikeTrain{{Time: -0.1, Neuron: 0}}, 3, 1, DefaultNeuronParams())
	assert.ErrorIs(t, err, ErrSimulation)

	_, err = Simulate(nil, 0, 1, DefaultNeuronParams())
	assert.ErrorIs(t, err, ErrSimulation)

	_, err = Simulate(nil, 3, 0, DefaultNeuronParams())
	assert.ErrorIs(t, err, ErrSimulation)
}

func TestSimulateOrdersByTimeAndClipsToDuration(t *testing.T) {
	t.Parallel()

	train := models.SpikeTrain{
		{Time: 0.5, Neuron: 0},
		{Time: 0.1, Neuron: 1},
		{Time: 0.5, Neuron: 2},
		{Time: 1.5, Neuron: 0},
		{Time: 1.0, Neuron: 1},
	}
	raster, err := Simulate(train, 3, 1.0, DefaultNeuronParams())
	require.NoError(t, err)
	assert.Equal(t, models.SpikeTrain{
		{Time: 0.1, Neuron: 1},
		{Time: 0.5, Neuron: 0},
		{Time: 0.5, Neuron: 2},
		{Time: 1.0, Neuron: 1},
	}, raster)
	assert.Equal(t, 0.5, train[0].Time, "input must not be reordered")
}

func TestStrictThresholdHalvesRate(t *testing.T) {
	t.Parallel()

	params := DefaultNeuronParams()
	params.Strict = true

	train := models.SpikeTrain{
		{Time: 0.1, Neuron: 0},
		{Time: 0.2, Neuron: 0},
		{Time: 0.3, Neuron: 0},
		{Time: 0.4, Neuron: 0},
		{Time: 0.5, Neuron: 1},
	}
	raster, err := Simulate(train, 2, 1, params)
	require.NoError(t, err)
	assert.Equal(t, models.SpikeTrain{{Time: 0.2, Neuron: 0}, {Time: 0.4, Neuron: 0}}, raster)
}

func TestRefractoryAndLeak(t *testing.T) {
	t.Parallel()

	refractory := DefaultNeuronParams()
	refractory.Refractory = 0.05
	train := models.SpikeTrain{
		{Time: 0.10, Neuron: 0},
		{Time: 0.12, Neuron: 0},
		{Time: 0.20, Neuron: 0},
	}
	raster, err := Simulate(train, 1, 1, refractory)
	require.NoError(t, err)
	assert.Equal(t, models.SpikeTrain{{Time: 0.10, Neuron: 0}, {Time: 0.20, Neuron: 0}}, raster)

	leaky := DefaultNeuronParams()
	leaky.Weight = 0.6
	leaky.Tau = 0.01
	slow := models.SpikeTrain{{Time: 0.1, Neuron: 0}, {Time: 0.5, Neuron: 0}}
	raster, err = Simulate(slow, 1, 1, leaky)
	require.NoError(t, err)
	assert.Empty(t, raster, "leak should drain V between distant drives")

	fast := models.SpikeTrain{{Time: 0.1, Neuron: 0}, {Time: 0.1001, Neuron: 0}}
	raster, err = Simulate(fast, 1, 1, leaky)
	require.NoError(t, err)
	assert.Equal(t, models.SpikeTrain{{Time: 0.1001, Neuron: 0}}, raster)
}

func TestDriveResetsAfterFiring(t *testing.T) {
	t.Parallel()

	pop := NewPopulation(2, DefaultNeuronParams())
	assert.True(t, pop.Drive(1, 0.3))
	assert.Equal(t, 0.0, pop.Neurons[1].V)
	assert.True(t, pop.Neurons[1].Spiked)
	assert.Equal(t, 0.3, pop.Neurons[1].LastSpike)
	assert.Equal(t, 0.0, pop.Neurons[0].V)

	strict := DefaultNeuronParams()
	strict.Strict = true
	pop = NewPopulation(1, strict)
	assert.False(t, pop.Drive(0, 0.1))
	assert.True(t, pop.Drive(0, 0.2))
	assert.Equal(t, 0.0, pop.Neurons[0].V)
}
