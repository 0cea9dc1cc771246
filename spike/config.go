package spike

// EncoderConfig holds the thresholds used to turn pixels into spikes.
type EncoderConfig struct {
	GlobalThreshold  float64 // intensity floor for spike eligibility, default 0.09
	BlockSize        int     // adaptive threshold neighbourhood, odd >= 3, default 19
	AdaptiveConstant float64 // offset subtracted from the local mean, default -5
}

// DefaultEncoderConfig returns the thresholds the spatiotemporal plots were tuned with.
func DefaultEncoderConfig() EncoderConfig {
	return EncoderConfig{
		GlobalThreshold:  0.09,
		BlockSize:        19,
		AdaptiveConstant: -5,
	}
}

// NeuronParams configures the integrate-and-fire population.
type NeuronParams struct {
	Thr        float64 // firing threshold on V, default 1
	VmR        float64 // reset value after a spike, default 0
	Weight     float64 // increment delivered by one drive event, default 1
	Strict     bool    // fire only when V > Thr instead of V >= Thr
	Tau        float64 // leak time constant in seconds, 0 disables leak
	Refractory float64 // seconds after a spike during which drive is ignored
}

// DefaultNeuronParams returns the 1:1 relay configuration: every drive event
// crosses threshold and fires exactly once.
func DefaultNeuronParams() NeuronParams {
	return NeuronParams{
		Thr:    1,
		VmR:    0,
		Weight: 1,
	}
}
