package spike

import (
	"errors"

	"spatiotemporal/spectro"
)

var (
	// ErrInvalidInput marks malformed images or parameters.
	ErrInvalidInput = spectro.ErrInvalidInput
	// ErrSimulation marks spike trains the population cannot replay.
	ErrSimulation = errors.New("simulation error")
)
