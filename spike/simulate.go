package spike

// Integrate-and-fire relay
//
// The encoded train drives a population with one unit per frequency row.
// Every drive event is delivered to the unit with the same index (identity
// connectivity) and adds Weight to its membrane state V. A unit that reaches
// threshold emits a spike at the drive time and resets to VmR. With the
// default parameters each drive fires exactly once, so the raster mirrors
// the input; leak, refractoriness and the strict threshold turn the stage
// into a real filter.

import (
	"fmt"
	"math"
	"sort"

	"spatiotemporal/models"
)

// Neuron is the state of one integrate-and-fire unit.
type Neuron struct {
	V         float64 // membrane state
	LastT     float64 // time of the last update, for leak
	LastSpike float64 // time of the last emitted spike
	Spiked    bool    // whether LastSpike is valid
}

// Population is a fresh set of units, one per neuron index.
type Population struct {
	Params  NeuronParams
	Neurons []Neuron
}

// NewPopulation creates n units at rest.
func NewPopulation(n int, params NeuronParams) *Population {
	pop := &Population{Params: params, Neurons: make([]Neuron, n)}
	for i := range pop.Neurons {
		pop.Neurons[i].V = params.VmR
	}
	return pop
}

// Drive applies one drive event at time t to unit idx and reports whether it
// fired.
func (pop *Population) Drive(idx int, t float64) bool {
	p := pop.Params
	nrn := &pop.Neurons[idx]
	if nrn.Spiked && p.Refractory > 0 && t-nrn.LastSpike < p.Refractory {
		nrn.LastT = t
		return false
	}

	if p.Tau > 0 && t > nrn.LastT {
		decay := math.Exp(-(t - nrn.LastT) / p.Tau)
		nrn.V = p.VmR + (nrn.V-p.VmR)*decay
	}
	nrn.LastT = t
	nrn.V += p.Weight

	fired := nrn.V >= p.Thr
	if p.Strict {
		fired = nrn.V > p.Thr
	}
	if fired {
		nrn.V = p.VmR
		nrn.LastSpike = t
		nrn.Spiked = true
	}
	return fired
}

// Simulate replays train through a fresh population of numNeurons units for
// duration seconds and returns the emitted spikes in time order.
func Simulate(train models.SpikeTrain, numNeurons int, duration float64, params NeuronParams) (models.SpikeTrain, error) {
	if numNeurons <= 0 {
		return nil, fmt.Errorf("%w: population needs at least one neuron, got %d", ErrSimulation, numNeurons)
	}
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return nil, fmt.Errorf("%w: duration must be positive, got %v", ErrSimulation, duration)
	}

	for i, ev := range train {
		if ev.Neuron < 0 || ev.Neuron >= numNeurons {
			return nil, fmt.Errorf("%w: event %d targets neuron %d outside [0,%d)", ErrSimulation, i, ev.Neuron, numNeurons)
		}
		if ev.Time < 0 || math.IsNaN(ev.Time) || math.IsInf(ev.Time, 0) {
			return nil, fmt.Errorf("%w: event %d has invalid time %v", ErrSimulation, i, ev.Time)
		}
	}

	drive := make(models.SpikeTrain, len(train))
	copy(drive, train)
	sort.SliceStable(drive, func(i, j int) bool { return drive[i].Time < drive[j].Time })

	pop := NewPopulation(numNeurons, params)
	raster := make(models.SpikeTrain, 0, len(drive))
	for _, ev := range drive {
		if ev.Time > duration {
			break
		}
		if pop.Drive(ev.Neuron, ev.Time) {
			raster = append(raster, ev)
		}
	}

	return raster, nil
}
