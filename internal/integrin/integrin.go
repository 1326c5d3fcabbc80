// Package integrin integrates the Novikova-Storm model of the number of bound
// integrins in a focal adhesion under tension.
package integrin

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"adhesim/internal/model"
)

// ErrSizeMismatch reports force and size sequences of different length.
var ErrSizeMismatch = errors.New("forces and sizes differ in length")

// Params are the model constants. Size is kept within [N0, Nt].
type Params struct {
	Nt    float64 `json:"ns_Nt"`
	PhiS  float64 `json:"ns_phi_s"`
	PhiC  float64 `json:"ns_phi_c"`
	D0    float64 `json:"ns_d0"`
	Gamma float64 `json:"ns_gamma"`
	Dt    float64 `json:"ns_dt"`
	T     float64 `json:"ns_T"`
	N0    float64 `json:"adhesion_integrin_N0"`
	FStar float64 `json:"ns_f_star"`
}

// Steps is the number of explicit Euler sub-steps covering T.
func (p Params) Steps() int {
	return int(math.Ceil(p.T / p.Dt))
}

// Integrator advances adhesion sizes.
type Integrator struct {
	params Params
	logger *slog.Logger
}

func New(params Params, logger *slog.Logger) *Integrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Integrator{params: params, logger: logger}
}

func (in *Integrator) Params() Params {
	return in.params
}

// Integrate advances size under the given tension for the configured time.
//
// If the decay rate comes out +Inf or NaN, growth and decay are both zeroed
// for that sub-step.
func (in *Integrator) Integrate(force, size float64) float64 {
	p := in.params
	steps := p.Steps()
	for i := 0; i < steps; i++ {
		phi := p.FStar * (force / size)

		growth := p.Gamma * (p.Nt - size)
		decayRate := p.D0 * (math.Exp(phi-p.PhiS) + math.Exp(p.PhiC-phi))
		if math.IsInf(decayRate, 1) || math.IsNaN(decayRate) {
			in.logger.Warn("integrin decay rate not finite",
				"force", force,
				"size", size,
				"phi", phi,
				"step", i,
			)
			growth = 0
			decayRate = 0
		}
		decay := size * decayRate
		size += p.Dt * (growth - decay)

		size = model.Clamp(size, p.N0, p.Nt)
	}
	return size
}

// IntegrateAll applies Integrate to each force/size pair and returns the new
// sizes. The input slices are not modified.
func (in *Integrator) IntegrateAll(forces, sizes []float64) ([]float64, error) {
	if len(forces) != len(sizes) {
		return nil, fmt.Errorf("integrate %d forces with %d sizes: %w", len(forces), len(sizes), ErrSizeMismatch)
	}
	out := make([]float64, len(sizes))
	for i := range sizes {
		out[i] = in.Integrate(forces[i], sizes[i])
	}
	return out, nil
}
