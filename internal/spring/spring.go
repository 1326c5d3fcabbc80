// Package spring implements harmonic linear and angular spring potentials.
//
// Energy differences and forces are computed independently: the energy path
// clamps the cosine before arccos, the endpoint force path does not.
package spring

import (
	"math"

	"adhesim/internal/model"
)

// LinearEnergy is 0.5*k*(|p-neighbor|-r0)^2.
func LinearEnergy(k, r0 float64, neighbor, p model.Position) float64 {
	d := p.Sub(neighbor).Length() - r0
	return 0.5 * k * d * d
}

// LinearEnergyDelta is the work needed to move a point bonded to neighbor
// from `from` to `to`.
func LinearEnergyDelta(k, r0 float64, neighbor, from, to model.Position) float64 {
	return LinearEnergy(k, r0, neighbor, to) - LinearEnergy(k, r0, neighbor, from)
}

// Angle returns the angle at middle between point and far, in radians.
func Angle(point, middle, far model.Position) float64 {
	x := point.Sub(middle)
	y := far.Sub(middle)
	cos := x.Dot(y) / (x.Length() * y.Length())
	return math.Acos(model.Clamp(cos, -1.0, 1.0))
}

// AngularEnergy is 0.5*k*(theta-theta0)^2 for the angle point-middle-far.
func AngularEnergy(k, theta0 float64, middle, far, point model.Position) float64 {
	d := Angle(point, middle, far) - theta0
	return 0.5 * k * d * d
}

// AngularEnergyDelta is the work needed to move the endpoint of an angle
// constraint from `from` to `to`.
func AngularEnergyDelta(k, theta0 float64, middle, far, from, to model.Position) float64 {
	return AngularEnergy(k, theta0, middle, far, to) - AngularEnergy(k, theta0, middle, far, from)
}

// LinearForce returns the force on b of the spring a-b. It points away from
// a when the spring is compressed. Coincident points give NaN.
func LinearForce(a, b model.Position, k, r0 float64) model.Force {
	ab := b.Sub(a)
	r := ab.Length()
	return ab.Scale(k * (r0 - r) / r)
}

// AngularForceOnEndpoint returns the force on endpoint a of the angle a-b-c,
// perpendicular to b->a.
func AngularForceOnEndpoint(a, b, c model.Position, k, theta0 float64) model.Force {
	vhat := a.Sub(b).Unit()
	what := c.Sub(b).Unit()
	theta := math.Acos(vhat.Dot(what))
	return vhat.Perp().Scale(k * (theta0 - theta))
}

// AngularForceOnMiddle returns the force on the middle particle b of the
// angle a-b-c using the two-sided formulation F_b = -(F_a + F_c).
func AngularForceOnMiddle(a, b, c model.Position, k, theta0 float64) model.Force {
	v := a.Sub(b)
	w := c.Sub(b)
	theta := math.Acos(v.Dot(w))
	size := (k / 2) * (theta - theta0)

	onA := v.Perp().Scale(size)
	onC := w.Perp().Scale(size)
	return onA.Add(onC).Scale(-1)
}
