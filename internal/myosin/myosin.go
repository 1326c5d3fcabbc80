// Package myosin integrates the fraction of activated myosin at an adhesion
// driven by the local actin signal.
package myosin

// Baseline is the myosin fraction towards which actin-driven decay pulls.
const Baseline = 0.1

type Params struct {
	CreationRate        float64 `json:"myosin_creation_rate"`
	DecayRate           float64 `json:"myosin_decay_rate"`
	IntegrationTime     float64 `json:"myosin_integration_time"`
	IntegrationTimestep float64 `json:"myosin_integration_timestep"`
}

// Derivative is dm/dt = creation*(1-m) - decay*a*(m-Baseline).
func Derivative(activity, m float64, p Params) float64 {
	return p.CreationRate*(1-m) - p.DecayRate*activity*(m-Baseline)
}

// Integrate advances m by explicit Euler steps of IntegrationTimestep until
// IntegrationTime has been covered. The result is not clamped.
func Integrate(activity, m float64, p Params) float64 {
	if p.IntegrationTimestep <= 0 {
		return m
	}
	for t := 0.0; t < p.IntegrationTime; t += p.IntegrationTimestep {
		m += Derivative(activity, m, p) * p.IntegrationTimestep
	}
	return m
}
